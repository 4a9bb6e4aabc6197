// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"testing"
	"time"

	"github.com/toeirei/keyfob/internal/model"
)

// WithTestStore initializes an in-memory sqlite Store for the duration of the
// provided function and restores the package-level store afterwards.
func WithTestStore(t *testing.T, fn func(s *BunStore)) {
	t.Helper()

	prevStore := store
	defer func() { store = prevStore }()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	s, ok := store.(*BunStore)
	if !ok {
		t.Fatalf("store is not *BunStore")
	}
	defer func() { _ = s.Close() }()

	fn(s)
}

const (
	testEmployee uint64 = 0xA1B2C3D4
	testKeyA     uint64 = 0x01020304
	testKeyB     uint64 = 0x05060708
)

// seedTags registers one employee and two keys with placeholder ciphertexts.
func seedTags(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, tc := range []struct {
		uid  uint64
		uuid string
		kind model.TagKind
	}{
		{testEmployee, "00000000000000000000000000000e01", model.KindEmployee},
		{testKeyA, "000000000000000000000000000000a1", model.KindKey},
		{testKeyB, "000000000000000000000000000000b1", model.KindKey},
	} {
		err := s.RegisterTag(ctx,
			model.Tag{UID: tc.uid, ContentUUID: tc.uuid, Kind: tc.kind},
			model.TagContent{UUID: tc.uuid, Encrypted: []byte("cipher-" + tc.uuid[28:])},
		)
		if err != nil {
			t.Fatalf("RegisterTag(%d): %v", tc.uid, err)
		}
	}
}

// at returns a fixed UTC instant offset by the given minutes.
func at(min int) time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}
