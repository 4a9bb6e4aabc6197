// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_ReadReturnsQueuedTapsInOrder(t *testing.T) {
	m := NewMock()
	require.True(t, m.SetNext(1, "  first  "))
	require.True(t, m.SetNext(2, "second"))

	ctx := context.Background()
	ev, err := m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, TagEvent{UID: 1, Text: "first", HasText: true}, ev)

	ev, err = m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ev.UID)
}

func TestMock_ReadHonoursContext(t *testing.T) {
	m := NewMock()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMock_WriteRepresentsCardWithNewText(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.ErrorIs(t, m.Write(ctx, "x"), ErrNoTag, "write without a card in the field")

	m.SetNext(7, "")
	_, err := m.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Write(ctx, "abc123"))
	ev, err := m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), ev.UID)
	assert.Equal(t, "abc123", ev.Text)
}

func TestMock_CloseUnblocksRead(t *testing.T) {
	m := NewMock()
	done := make(chan error, 1)
	go func() {
		_, err := m.Read(context.Background())
		done <- err
	}()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNoTag)
	case <-time.After(time.Second):
		t.Fatal("Read did not return after Close")
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	r, err := New(Config{Type: "mock"})
	require.NoError(t, err)
	_, isMock := r.(*Mock)
	assert.True(t, isMock)

	w, ok := AsWriter(r)
	assert.True(t, ok)
	assert.NotNil(t, w)

	_, err = New(Config{Type: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestUIDFromBytes(t *testing.T) {
	assert.Equal(t, uint64(0x01020304), UIDFromBytes([]byte{1, 2, 3, 4}))
	assert.Equal(t, uint64(0), UIDFromBytes(nil))
	// Longer UIDs keep the last seven bytes.
	assert.Equal(t, uint64(0x02030405060708), UIDFromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestEncodeDecodeText(t *testing.T) {
	blocks, err := EncodeText("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	var raw []byte
	for _, b := range blocks {
		raw = append(raw, b[:]...)
	}
	assert.Len(t, raw, textSize)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", DecodeText(raw))

	blank := make([]byte, textSize)
	assert.Equal(t, "", DecodeText(blank))

	_, err = EncodeText(string(make([]byte, textSize+1)))
	assert.Error(t, err)
}

func TestParseFrame(t *testing.T) {
	frame := []byte{0x02, 0x09, 0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x03}
	var xor byte
	for _, b := range frame[1:7] {
		xor ^= b
	}
	frame[7] = xor

	tag, ok := parseFrame(frame)
	require.True(t, ok)
	assert.Equal(t, uint64(0xDEADBEEF), tag)

	bad := append([]byte(nil), frame...)
	bad[7] ^= 0xFF
	_, ok = parseFrame(bad)
	assert.False(t, ok, "checksum mismatch")

	bad = append([]byte(nil), frame...)
	bad[8] = 0x04
	_, ok = parseFrame(bad)
	assert.False(t, ok, "bad terminator")

	_, ok = parseFrame(frame[:8])
	assert.False(t, ok, "short frame")
}

func TestBadgeFormat(t *testing.T) {
	f := parseBadgeFormat("")
	assert.True(t, f.isHex)
	assert.Equal(t, 10, f.numDigits)

	id, err := f.parse("00DEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xDEADBEEF), id)

	_, err = f.parse("BEEF")
	assert.Error(t, err, "wrong digit count")

	d := parseBadgeFormat("8D")
	assert.False(t, d.isHex)
	id, err = d.parse("12345678")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345678), id)

	_, err = d.parse("1234567a")
	assert.Error(t, err)
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(time.Second)
	t0 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept(1, t0))
	assert.False(t, d.Accept(1, t0.Add(500*time.Millisecond)))
	// Held in place: the window keeps sliding.
	assert.False(t, d.Accept(1, t0.Add(1400*time.Millisecond)))
	assert.True(t, d.Accept(1, t0.Add(2500*time.Millisecond)))
	assert.True(t, d.Accept(2, t0.Add(2600*time.Millisecond)), "different uid passes immediately")

	d.Reset()
	assert.True(t, d.Accept(2, t0.Add(2700*time.Millisecond)))
}

func TestParseMockLine(t *testing.T) {
	uid, text, err := ParseMockLine(" 0xA1B2C3D4, 00000000000000000000000000000e01 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xA1B2C3D4), uid)
	assert.Equal(t, "00000000000000000000000000000e01", text)

	uid, text, err = ParseMockLine("1020304")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x01020304), uid)
	assert.Empty(t, text)

	for _, bad := range []string{"", ",text", "zz", "0"} {
		_, _, err := ParseMockLine(bad)
		assert.Error(t, err, bad)
	}
}
