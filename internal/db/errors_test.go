package db

import (
	"errors"
	"testing"
)

func TestMapDBError(t *testing.T) {
	if MapDBError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	for _, msg := range []string{
		"UNIQUE constraint failed: open_checkouts.key_uid",
		"ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)",
		"Error 1062 (23000): Duplicate entry '1' for key 'PRIMARY'",
	} {
		if !errors.Is(MapDBError(errors.New(msg)), ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for %q", msg)
		}
	}
	other := errors.New("connection refused")
	if MapDBError(other) != other {
		t.Fatal("unrelated errors must pass through")
	}
}
