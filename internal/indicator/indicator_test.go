package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoPinsIsNoop(t *testing.T) {
	ind, err := New(Config{Driver: "govattu"})
	require.NoError(t, err)
	_, ok := ind.(*Noop)
	assert.True(t, ok)
	assert.NoError(t, ind.Release())
}

func TestNew_UnknownDriver(t *testing.T) {
	pin := uint8(17)
	_, err := New(Config{Driver: "smoke-signals", GreenPin: &pin})
	assert.Error(t, err)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := NewMulti(a, b)

	m.Pending()
	m.Accepted()
	m.Rejected()
	m.Fault()
	m.Idle()
	require.NoError(t, m.Release())

	want := []string{"pending", "accepted", "rejected", "fault", "idle", "release"}
	assert.Equal(t, want, a.Calls())
	assert.Equal(t, want, b.Calls())
	assert.Equal(t, "release", b.Last())
	assert.Equal(t, "", (&Recorder{}).Last())
}
