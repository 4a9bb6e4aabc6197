// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the domain types shared by the store, the tap engine
// and the user interfaces.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TagKind discriminates employee badges from key fobs. Both are RFID tags
// from the same population.
type TagKind string

const (
	KindEmployee TagKind = "employee"
	KindKey      TagKind = "key"
)

// ParseTagKind accepts the canonical names plus the short forms "emp" and "k".
func ParseTagKind(s string) (TagKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee", "emp", "e":
		return KindEmployee, nil
	case "key", "k":
		return KindKey, nil
	}
	return "", fmt.Errorf("unknown tag kind %q (want employee or key)", s)
}

// Direction of a check event.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Tag is a registered RFID card. ContentUUID is the 32-hex identifier written
// into the card's data blocks and keys the encrypted label.
type Tag struct {
	UID          uint64    `json:"uid"`
	ContentUUID  string    `json:"content_uuid"`
	Kind         TagKind   `json:"kind"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsEmployee reports whether the tag is an employee badge.
func (t Tag) IsEmployee() bool { return t.Kind == KindEmployee }

// IsKey reports whether the tag is a key fob.
func (t Tag) IsKey() bool { return t.Kind == KindKey }

// TagContent is the encrypted display name (employee) or label (key) behind
// a content UUID. Rows are written once.
type TagContent struct {
	UUID         string    `json:"uuid"`
	Encrypted    []byte    `json:"encrypted"`
	RegisteredAt time.Time `json:"registered_at"`
}

// CheckEvent is one append-only check-out or check-in record. For an "in"
// event CheckoutID points at the "out" event it closes.
type CheckEvent struct {
	ID           int64     `json:"id"`
	KeyUID       uint64    `json:"key_uid"`
	KeyUUID      string    `json:"key_uuid"`
	EmployeeUID  uint64    `json:"employee_uid"`
	EmployeeUUID string    `json:"employee_uuid"`
	Direction    Direction `json:"direction"`
	CheckoutID   *int64    `json:"checkout_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// LogStatus is the state of a check-out in the log view.
type LogStatus string

const (
	StatusOut LogStatus = "OUT"
	StatusIn  LogStatus = "IN"
)

// LogRow pairs a check-out with its check-in, if any, and carries the
// decrypted names for display.
type LogRow struct {
	CheckoutID   int64
	KeyUID       uint64
	KeyLabel     string
	EmployeeUID  uint64
	EmployeeName string
	CheckedOut   time.Time
	CheckedIn    *time.Time
}

// Status derives OUT/IN from the presence of a check-in.
func (r LogRow) Status() LogStatus {
	if r.CheckedIn == nil {
		return StatusOut
	}
	return StatusIn
}

// Elapsed is the hold duration, measured against now while the key is out.
func (r LogRow) Elapsed(now time.Time) time.Duration {
	end := now
	if r.CheckedIn != nil {
		end = *r.CheckedIn
	}
	if end.Before(r.CheckedOut) {
		return 0
	}
	return end.Sub(r.CheckedOut)
}

// FormatElapsed renders a duration as "1d 2h", "3h 4m", "5m 6s" or "7s".
func FormatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// BackupData is the full database dump used by backup and restore. Labels
// stay encrypted.
type BackupData struct {
	SchemaVersion int          `json:"schema_version"`
	CreatedAt     time.Time    `json:"created_at"`
	Contents      []TagContent `json:"contents"`
	Tags          []Tag        `json:"tags"`
	Events        []CheckEvent `json:"events"`
}

// TagEntry is a tag together with its encrypted label, as listed by the store.
type TagEntry struct {
	Tag
	Encrypted []byte `json:"encrypted"`
}
