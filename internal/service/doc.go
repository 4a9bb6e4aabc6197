// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package service holds the user-facing workflows that sit between the
// store and the interfaces: tag registration, decrypted log and tag
// listings, CSV export and compressed backups.
package service

import (
	"context"
	"time"

	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/model"
)

// Cipher encrypts labels for storage. *crypto.Cipher implements it.
type Cipher interface {
	EncryptName(name string) ([]byte, error)
	DecryptName(blob []byte) (string, error)
}

// UnknownLabel is shown when a label cannot be decrypted.
const UnknownLabel = "(unknown)"

func decryptOrUnknown(c Cipher, blob []byte) string {
	if len(blob) == 0 || c == nil {
		return UnknownLabel
	}
	s, err := c.DecryptName(blob)
	if err != nil {
		return UnknownLabel
	}
	return s
}

// RegisterStore is what registration needs from the store.
type RegisterStore interface {
	GetTag(ctx context.Context, uid uint64) (*model.Tag, error)
	RegisterTag(ctx context.Context, tag model.Tag, content model.TagContent) error
}

// TagStore lists and toggles tags.
type TagStore interface {
	ListTags(ctx context.Context) ([]model.TagEntry, error)
	SetTagActive(ctx context.Context, uid uint64, active bool) error
}

// LogStore lists paired check-outs.
type LogStore interface {
	ListLogs(ctx context.Context, f db.LogFilter) ([]db.LogRecord, error)
}

// EventStore reads raw events for export.
type EventStore interface {
	EventsBetween(ctx context.Context, start, end time.Time) ([]db.EventRecord, error)
}

// BackupStore dumps and loads all tables.
type BackupStore interface {
	ExportBackup(ctx context.Context) (*model.BackupData, error)
	ImportBackup(ctx context.Context, data *model.BackupData, full bool) error
}
