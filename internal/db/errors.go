// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicate is returned when attempting to insert a record that already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAlreadyCheckedOut is returned when a key already has an open check-out.
	ErrAlreadyCheckedOut = errors.New("key is already checked out")
	// ErrNotCheckedOut is returned when checking in a key that is not out.
	ErrNotCheckedOut = errors.New("key is not checked out")
	// ErrTagNotFound is returned by updates that target an unknown UID.
	ErrTagNotFound = errors.New("tag not registered")
)

// MapDBError maps driver-specific constraint violations to ErrDuplicate. The
// match is string based so this file does not import the SQL drivers.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry (1062), Postgres unique violation (23505), SQLite unique/primary key constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	return err
}
