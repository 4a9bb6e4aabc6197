package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
)

// TestEngineWithSQLiteStore runs a full borrow and return against the real
// store so the check-out is recorded exactly once.
func TestEngineWithSQLiteStore(t *testing.T) {
	store, err := db.NewStoreFromDSN("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for uid, kind := range map[uint64]model.TagKind{alice: model.KindEmployee, keyA: model.KindKey} {
		u := uuidFor(uid)
		require.NoError(t, store.RegisterTag(ctx, model.Tag{UID: uid, ContentUUID: u, Kind: kind}, model.TagContent{UUID: u, Encrypted: []byte{1}}))
	}

	clock := NewManualClock(t0)
	e := New(store, clock, DefaultTiming())
	tapDB := func(uid uint64) Result {
		res, err := e.ProcessTag(ctx, reader.TagEvent{UID: uid, Text: uuidFor(uid), HasText: true})
		require.NoError(t, err)
		return res
	}

	tapDB(alice)
	clock.Advance(3 * time.Second)
	assert.Equal(t, OutcomeCheckedOut, tapDB(keyA).Outcome)

	clock.Advance(time.Minute)
	assert.Equal(t, OutcomeTooSoon, tapDB(keyA).Outcome)

	clock.Advance(time.Minute)
	assert.Equal(t, OutcomeCheckedIn, tapDB(keyA).Outcome)

	events, err := store.EventsBetween(ctx, t0, clock.Now())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.DirectionOut, events[0].Direction)
	assert.Equal(t, model.DirectionIn, events[1].Direction)
}
