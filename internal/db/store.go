// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/keyfob/internal/model"
)

// Store is the persistence boundary used by the tap engine, the services and
// the user interfaces. Every implementation must keep at most one open
// check-out per key, even under concurrent writers.
type Store interface {
	// RegisterTag stores the content row (if new) and inserts or updates the
	// tag. Re-registering a known UID keeps its active flag.
	RegisterTag(ctx context.Context, tag model.Tag, content model.TagContent) error
	// GetTag returns nil, nil for an unknown UID.
	GetTag(ctx context.Context, uid uint64) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.TagEntry, error)
	SetTagActive(ctx context.Context, uid uint64, active bool) error
	// GetContent returns nil, nil for an unknown UUID.
	GetContent(ctx context.Context, uuid string) (*model.TagContent, error)

	// OpenCheckout returns the open "out" event for a key, or nil.
	OpenCheckout(ctx context.Context, keyUID uint64) (*model.CheckEvent, error)
	OpenCheckouts(ctx context.Context) ([]model.CheckEvent, error)
	// CheckOut appends an "out" event. ErrAlreadyCheckedOut when the key is out.
	CheckOut(ctx context.Context, keyUID, employeeUID uint64, at time.Time) (*model.CheckEvent, error)
	// CheckIn appends an "in" event paired with the open check-out.
	// ErrNotCheckedOut when the key is not out.
	CheckIn(ctx context.Context, keyUID uint64, at time.Time) (*model.CheckEvent, error)

	ListLogs(ctx context.Context, f LogFilter) ([]LogRecord, error)
	// EventsBetween returns all events with start <= occurred_at <= end,
	// oldest first.
	EventsBetween(ctx context.Context, start, end time.Time) ([]EventRecord, error)

	ExportBackup(ctx context.Context) (*model.BackupData, error)
	// ImportBackup replaces all rows when full is set, otherwise it adds rows
	// that do not exist yet.
	ImportBackup(ctx context.Context, data *model.BackupData, full bool) error
	Maintain(ctx context.Context, opts MaintenanceOptions) error

	Close() error
}

// LogFilter narrows ListLogs. Zero times leave that side open. Limit <= 0
// means no limit.
type LogFilter struct {
	Start    time.Time
	End      time.Time
	Limit    int
	OpenOnly bool
}

// LogRecord is one check-out joined with its check-in and the encrypted
// labels of both tags.
type LogRecord struct {
	CheckoutID        int64
	KeyUID            uint64
	KeyEncrypted      []byte
	EmployeeUID       uint64
	EmployeeEncrypted []byte
	CheckedOut        time.Time
	CheckedIn         *time.Time
}

// EventRecord is a check event with the encrypted labels it refers to.
type EventRecord struct {
	model.CheckEvent
	KeyEncrypted      []byte
	EmployeeEncrypted []byte
}

// MaintenanceOptions tunes Maintain.
type MaintenanceOptions struct {
	SkipIntegrity bool
}
