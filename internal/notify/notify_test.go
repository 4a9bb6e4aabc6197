package notify

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeirei/keyfob/internal/engine"
	"github.com/toeirei/keyfob/internal/model"
)

type sent struct {
	topic    string
	retained bool
	payload  []byte
}

func recording(c *Client) *[]sent {
	var out []sent
	c.enabled = true
	c.publish = func(topic string, retained bool, payload []byte) {
		out = append(out, sent{topic, retained, payload})
	}
	return &out
}

func TestNew_DisabledWithoutHost(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())
	assert.NoError(t, c.Connect())
	c.Publish(engine.Result{Outcome: engine.OutcomeCheckedOut, Event: &model.CheckEvent{}})
	c.Close()
	assert.Equal(t, "keyfob/keyfob/event", c.EventTopic())
}

func TestPublish_OnlyRecordedResults(t *testing.T) {
	c := &Client{clientID: "door1"}
	out := recording(c)

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c.Publish(engine.Result{Outcome: engine.OutcomeSessionStarted})
	c.Publish(engine.Result{Outcome: engine.OutcomeTooSoon})
	c.Publish(engine.Result{
		Outcome: engine.OutcomeCheckedOut,
		Event: &model.CheckEvent{
			ID: 7, KeyUID: 0x01020304, EmployeeUID: 0xA1B2C3D4,
			Direction: model.DirectionOut, OccurredAt: at,
		},
	})

	require.Len(t, *out, 1)
	msg := (*out)[0]
	assert.Equal(t, "keyfob/door1/event", msg.topic)
	assert.False(t, msg.retained)

	var ev Event
	require.NoError(t, json.Unmarshal(msg.payload, &ev))
	assert.Equal(t, Event{ID: 7, Direction: "out", KeyUID: "1020304", EmployeeUID: "A1B2C3D4", At: at}, ev)
}

func TestBuildTLSConfig_MissingCA(t *testing.T) {
	_, err := buildTLSConfig(Config{CACert: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	cfg, err := buildTLSConfig(Config{})
	require.NoError(t, err)
	assert.Nil(t, cfg.RootCAs)
}
