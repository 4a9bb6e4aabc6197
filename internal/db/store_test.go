// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/toeirei/keyfob/internal/model"
)

func TestRegisterTag_GetAndList(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		tag, err := s.GetTag(ctx, testKeyA)
		if err != nil {
			t.Fatalf("GetTag: %v", err)
		}
		if tag == nil || !tag.IsKey() || !tag.Active {
			t.Fatalf("unexpected tag: %+v", tag)
		}

		missing, err := s.GetTag(ctx, 42)
		if err != nil || missing != nil {
			t.Fatalf("expected nil, nil for unknown uid, got %+v, %v", missing, err)
		}

		entries, err := s.ListTags(ctx)
		if err != nil {
			t.Fatalf("ListTags: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 tags, got %d", len(entries))
		}
		if entries[0].Kind != model.KindEmployee {
			t.Fatalf("expected employees first, got %s", entries[0].Kind)
		}
		if len(entries[0].Encrypted) == 0 {
			t.Fatalf("expected encrypted label to be joined")
		}

		c, err := s.GetContent(ctx, tag.ContentUUID)
		if err != nil || c == nil {
			t.Fatalf("GetContent: %v %v", c, err)
		}
	})
}

func TestRegisterTag_ReRegisterKeepsActiveFlag(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		if err := s.SetTagActive(ctx, testKeyA, false); err != nil {
			t.Fatalf("SetTagActive: %v", err)
		}
		uuid := "000000000000000000000000000000a2"
		err := s.RegisterTag(ctx,
			model.Tag{UID: testKeyA, ContentUUID: uuid, Kind: model.KindKey},
			model.TagContent{UUID: uuid, Encrypted: []byte("new")},
		)
		if err != nil {
			t.Fatalf("re-register: %v", err)
		}
		tag, _ := s.GetTag(ctx, testKeyA)
		if tag.Active {
			t.Fatalf("re-registering must not reactivate a tag")
		}
		if tag.ContentUUID != uuid {
			t.Fatalf("expected content uuid %s, got %s", uuid, tag.ContentUUID)
		}
	})
}

func TestRegisterTag_RejectsMismatchedContent(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		err := s.RegisterTag(context.Background(),
			model.Tag{UID: 7, ContentUUID: "a", Kind: model.KindKey},
			model.TagContent{UUID: "b"},
		)
		if err == nil {
			t.Fatalf("expected error for mismatched content uuid")
		}
	})
}

func TestSetTagActive_Unknown(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		if err := s.SetTagActive(context.Background(), 99, true); !errors.Is(err, ErrTagNotFound) {
			t.Fatalf("expected ErrTagNotFound, got %v", err)
		}
	})
}

func TestCheckOutCheckIn(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		out, err := s.CheckOut(ctx, testKeyA, testEmployee, at(0))
		if err != nil {
			t.Fatalf("CheckOut: %v", err)
		}
		if out.Direction != model.DirectionOut || out.ID == 0 {
			t.Fatalf("unexpected out event: %+v", out)
		}
		if out.KeyUUID != "000000000000000000000000000000a1" {
			t.Fatalf("key uuid not copied into event: %q", out.KeyUUID)
		}

		if _, err := s.CheckOut(ctx, testKeyA, testEmployee, at(1)); !errors.Is(err, ErrAlreadyCheckedOut) {
			t.Fatalf("expected ErrAlreadyCheckedOut, got %v", err)
		}

		open, err := s.OpenCheckout(ctx, testKeyA)
		if err != nil || open == nil || open.ID != out.ID {
			t.Fatalf("OpenCheckout = %+v, %v; want event %d", open, err, out.ID)
		}

		in, err := s.CheckIn(ctx, testKeyA, at(5))
		if err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
		if in.CheckoutID == nil || *in.CheckoutID != out.ID {
			t.Fatalf("check-in not paired with check-out: %+v", in)
		}
		if in.EmployeeUID != testEmployee {
			t.Fatalf("check-in should carry the borrowing employee, got %d", in.EmployeeUID)
		}

		if _, err := s.CheckIn(ctx, testKeyA, at(6)); !errors.Is(err, ErrNotCheckedOut) {
			t.Fatalf("expected ErrNotCheckedOut, got %v", err)
		}
		open, _ = s.OpenCheckout(ctx, testKeyA)
		if open != nil {
			t.Fatalf("expected no open check-out after check-in")
		}

		// The key can leave again once returned.
		if _, err := s.CheckOut(ctx, testKeyA, testEmployee, at(10)); err != nil {
			t.Fatalf("second CheckOut: %v", err)
		}
	})
}

func TestCheckOut_RequiresRegisteredKeyAndEmployee(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		if _, err := s.CheckOut(ctx, 12345, testEmployee, at(0)); !errors.Is(err, ErrTagNotFound) {
			t.Fatalf("expected ErrTagNotFound for unknown key, got %v", err)
		}
		if _, err := s.CheckOut(ctx, testEmployee, testKeyA, at(0)); err == nil {
			t.Fatalf("expected error when roles are swapped")
		}
	})
}

func TestOpenCheckouts(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)
		if _, err := s.CheckOut(ctx, testKeyB, testEmployee, at(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.CheckOut(ctx, testKeyA, testEmployee, at(2)); err != nil {
			t.Fatal(err)
		}
		open, err := s.OpenCheckouts(ctx)
		if err != nil {
			t.Fatalf("OpenCheckouts: %v", err)
		}
		if len(open) != 2 || open[0].KeyUID != testKeyB {
			t.Fatalf("unexpected open check-outs: %+v", open)
		}
	})
}

func TestEventsBetween_Inclusive(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		mustOut := func(key uint64, m int) {
			if _, err := s.CheckOut(ctx, key, testEmployee, at(m)); err != nil {
				t.Fatalf("CheckOut at %d: %v", m, err)
			}
		}
		mustIn := func(key uint64, m int) {
			if _, err := s.CheckIn(ctx, key, at(m)); err != nil {
				t.Fatalf("CheckIn at %d: %v", m, err)
			}
		}
		mustOut(testKeyA, 0)
		mustOut(testKeyB, 10)
		mustIn(testKeyA, 20)
		mustIn(testKeyB, 30)

		events, err := s.EventsBetween(ctx, at(10), at(20))
		if err != nil {
			t.Fatalf("EventsBetween: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected both boundary events, got %d", len(events))
		}
		if !events[0].OccurredAt.Equal(at(10)) || !events[1].OccurredAt.Equal(at(20)) {
			t.Fatalf("unexpected order or times: %v, %v", events[0].OccurredAt, events[1].OccurredAt)
		}
		if events[1].Direction != model.DirectionIn {
			t.Fatalf("expected check-in second, got %s", events[1].Direction)
		}
		if string(events[0].KeyEncrypted) == "" || string(events[0].EmployeeEncrypted) == "" {
			t.Fatalf("expected labels joined into events")
		}

		none, err := s.EventsBetween(ctx, at(31), at(40))
		if err != nil || len(none) != 0 {
			t.Fatalf("expected no events after the last one, got %d, %v", len(none), err)
		}

		if _, err := s.EventsBetween(ctx, at(5), at(4)); err == nil {
			t.Fatalf("expected error for inverted range")
		}
	})
}

func TestListLogs(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)

		if _, err := s.CheckOut(ctx, testKeyA, testEmployee, at(0)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.CheckIn(ctx, testKeyA, at(3)); err != nil {
			t.Fatal(err)
		}
		if _, err := s.CheckOut(ctx, testKeyB, testEmployee, at(5)); err != nil {
			t.Fatal(err)
		}

		logs, err := s.ListLogs(ctx, LogFilter{})
		if err != nil {
			t.Fatalf("ListLogs: %v", err)
		}
		if len(logs) != 2 {
			t.Fatalf("expected 2 log rows, got %d", len(logs))
		}
		if logs[0].KeyUID != testKeyB || logs[0].CheckedIn != nil {
			t.Fatalf("expected newest open row first, got %+v", logs[0])
		}
		if logs[1].CheckedIn == nil || !logs[1].CheckedIn.Equal(at(3)) {
			t.Fatalf("expected paired check-in at %v, got %+v", at(3), logs[1].CheckedIn)
		}

		open, err := s.ListLogs(ctx, LogFilter{OpenOnly: true})
		if err != nil || len(open) != 1 {
			t.Fatalf("OpenOnly: got %d rows, %v", len(open), err)
		}

		ranged, err := s.ListLogs(ctx, LogFilter{Start: at(0), End: at(0)})
		if err != nil || len(ranged) != 1 || ranged[0].KeyUID != testKeyA {
			t.Fatalf("range filter: %+v, %v", ranged, err)
		}

		limited, err := s.ListLogs(ctx, LogFilter{Limit: 1})
		if err != nil || len(limited) != 1 {
			t.Fatalf("limit: got %d rows, %v", len(limited), err)
		}
	})
}
