// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeirei/keyfob/internal/model"
	"github.com/uptrace/bun"
)

// TagContentModel maps the tag_contents table.
type TagContentModel struct {
	bun.BaseModel `bun:"table:tag_contents"`
	UUID          string    `bun:"uuid,pk"`
	Encrypted     []byte    `bun:"encrypted"`
	RegisteredAt  time.Time `bun:"registered_at"`
}

// TagModel maps the tags table.
type TagModel struct {
	bun.BaseModel `bun:"table:tags"`
	UID           uint64    `bun:"uid,pk"`
	ContentUUID   string    `bun:"content_uuid"`
	Kind          string    `bun:"kind"`
	Active        bool      `bun:"active"`
	RegisteredAt  time.Time `bun:"registered_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

// CheckEventModel maps the append-only check_events table.
type CheckEventModel struct {
	bun.BaseModel `bun:"table:check_events"`
	ID            int64         `bun:"id,pk,autoincrement"`
	KeyUID        uint64        `bun:"key_uid"`
	KeyUUID       string        `bun:"key_uuid"`
	EmployeeUID   uint64        `bun:"employee_uid"`
	EmployeeUUID  string        `bun:"employee_uuid"`
	Direction     string        `bun:"direction"`
	CheckoutID    sql.NullInt64 `bun:"checkout_id"`
	OccurredAt    time.Time     `bun:"occurred_at"`
}

// OpenCheckoutModel maps open_checkouts. The primary key on key_uid is what
// keeps a key from being checked out twice.
type OpenCheckoutModel struct {
	bun.BaseModel `bun:"table:open_checkouts"`
	KeyUID        uint64 `bun:"key_uid,pk"`
	EventID       int64  `bun:"event_id"`
}

// --- Mapping helpers ---

func tagModelToModel(t TagModel) model.Tag {
	return model.Tag{
		UID:          t.UID,
		ContentUUID:  t.ContentUUID,
		Kind:         model.TagKind(t.Kind),
		Active:       t.Active,
		RegisteredAt: t.RegisteredAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func contentModelToModel(c TagContentModel) model.TagContent {
	return model.TagContent{UUID: c.UUID, Encrypted: c.Encrypted, RegisteredAt: c.RegisteredAt.UTC()}
}

func eventModelToModel(e CheckEventModel) model.CheckEvent {
	ev := model.CheckEvent{
		ID:           e.ID,
		KeyUID:       e.KeyUID,
		KeyUUID:      e.KeyUUID,
		EmployeeUID:  e.EmployeeUID,
		EmployeeUUID: e.EmployeeUUID,
		Direction:    model.Direction(e.Direction),
		OccurredAt:   e.OccurredAt.UTC(),
	}
	if e.CheckoutID.Valid {
		id := e.CheckoutID.Int64
		ev.CheckoutID = &id
	}
	return ev
}

func eventModelFromModel(e model.CheckEvent) CheckEventModel {
	m := CheckEventModel{
		ID:           e.ID,
		KeyUID:       e.KeyUID,
		KeyUUID:      e.KeyUUID,
		EmployeeUID:  e.EmployeeUID,
		EmployeeUUID: e.EmployeeUUID,
		Direction:    string(e.Direction),
		OccurredAt:   e.OccurredAt.UTC(),
	}
	if e.CheckoutID != nil {
		m.CheckoutID = sql.NullInt64{Int64: *e.CheckoutID, Valid: true}
	}
	return m
}

// BunStore implements Store on top of a long-lived *bun.DB.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

// BunDB exposes the underlying *bun.DB for maintenance and tests.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// DBType returns the configured engine name.
func (s *BunStore) DBType() string { return s.dbType }

// Close closes the underlying database.
func (s *BunStore) Close() error {
	if s == nil || s.bun == nil {
		return nil
	}
	return s.bun.Close()
}

func getTag(ctx context.Context, db bun.IDB, uid uint64) (*TagModel, error) {
	var tm TagModel
	err := db.NewSelect().Model(&tm).Where("uid = ?", uid).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tm, nil
}

// RegisterTag inserts or updates the tag and its content in one transaction.
func (s *BunStore) RegisterTag(ctx context.Context, tag model.Tag, content model.TagContent) error {
	if tag.UID == 0 {
		return errors.New("tag uid must not be zero")
	}
	if tag.ContentUUID == "" || tag.ContentUUID != content.UUID {
		return fmt.Errorf("tag content uuid %q does not match content %q", tag.ContentUUID, content.UUID)
	}
	now := time.Now().UTC()
	if content.RegisteredAt.IsZero() {
		content.RegisteredAt = now
	}
	if tag.RegisteredAt.IsZero() {
		tag.RegisteredAt = now
	}

	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		cm := TagContentModel{UUID: content.UUID, Encrypted: content.Encrypted, RegisteredAt: content.RegisteredAt.UTC()}
		if _, err := tx.NewInsert().Model(&cm).Ignore().Exec(ctx); err != nil {
			return fmt.Errorf("store tag content: %w", MapDBError(err))
		}

		existing, err := getTag(ctx, tx, tag.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.ContentUUID = tag.ContentUUID
			existing.Kind = string(tag.Kind)
			existing.UpdatedAt = now
			_, err := tx.NewUpdate().Model(existing).Column("content_uuid", "kind", "updated_at").WherePK().Exec(ctx)
			if err != nil {
				return fmt.Errorf("update tag %d: %w", tag.UID, err)
			}
			dbLogf("db: re-registered tag %d as %s", tag.UID, tag.Kind)
			return nil
		}

		tm := TagModel{
			UID:          tag.UID,
			ContentUUID:  tag.ContentUUID,
			Kind:         string(tag.Kind),
			Active:       true,
			RegisteredAt: tag.RegisteredAt.UTC(),
			UpdatedAt:    now,
		}
		if _, err := tx.NewInsert().Model(&tm).Exec(ctx); err != nil {
			return fmt.Errorf("insert tag %d: %w", tag.UID, MapDBError(err))
		}
		dbLogf("db: registered tag %d as %s", tag.UID, tag.Kind)
		return nil
	})
}

// GetTag returns the tag for uid, or nil when it is not registered.
func (s *BunStore) GetTag(ctx context.Context, uid uint64) (*model.Tag, error) {
	tm, err := getTag(ctx, s.bun, uid)
	if err != nil || tm == nil {
		return nil, err
	}
	t := tagModelToModel(*tm)
	return &t, nil
}

type tagEntryRow struct {
	UID          uint64    `bun:"uid"`
	ContentUUID  string    `bun:"content_uuid"`
	Kind         string    `bun:"kind"`
	Active       bool      `bun:"active"`
	RegisteredAt time.Time `bun:"registered_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
	Encrypted    []byte    `bun:"encrypted"`
}

// ListTags returns all tags with their encrypted labels, employees first.
func (s *BunStore) ListTags(ctx context.Context) ([]model.TagEntry, error) {
	var rows []tagEntryRow
	err := QueryRawInto(ctx, s.bun, &rows, `SELECT t.uid, t.content_uuid, t.kind, t.active, t.registered_at, t.updated_at, c.encrypted
		FROM tags t LEFT JOIN tag_contents c ON c.uuid = t.content_uuid
		ORDER BY t.kind, t.registered_at, t.uid`)
	if err != nil {
		return nil, err
	}
	out := make([]model.TagEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.TagEntry{
			Tag: tagModelToModel(TagModel{
				UID: r.UID, ContentUUID: r.ContentUUID, Kind: r.Kind, Active: r.Active,
				RegisteredAt: r.RegisteredAt, UpdatedAt: r.UpdatedAt,
			}),
			Encrypted: r.Encrypted,
		})
	}
	return out, nil
}

// SetTagActive toggles whether taps of uid are accepted.
func (s *BunStore) SetTagActive(ctx context.Context, uid uint64, active bool) error {
	res, err := s.bun.NewUpdate().Model((*TagModel)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTagNotFound
	}
	return nil
}

// GetContent returns the encrypted content for uuid, or nil.
func (s *BunStore) GetContent(ctx context.Context, uuid string) (*model.TagContent, error) {
	var cm TagContentModel
	err := s.bun.NewSelect().Model(&cm).Where("uuid = ?", uuid).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c := contentModelToModel(cm)
	return &c, nil
}

func openCheckout(ctx context.Context, db bun.IDB, keyUID uint64) (*CheckEventModel, error) {
	var em CheckEventModel
	err := db.NewSelect().Model(&em).
		Where("id = (SELECT event_id FROM open_checkouts WHERE key_uid = ?)", keyUID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &em, nil
}

// OpenCheckout returns the open "out" event for keyUID, or nil.
func (s *BunStore) OpenCheckout(ctx context.Context, keyUID uint64) (*model.CheckEvent, error) {
	em, err := openCheckout(ctx, s.bun, keyUID)
	if err != nil || em == nil {
		return nil, err
	}
	ev := eventModelToModel(*em)
	return &ev, nil
}

// OpenCheckouts lists every key currently out, oldest check-out first.
func (s *BunStore) OpenCheckouts(ctx context.Context) ([]model.CheckEvent, error) {
	var ems []CheckEventModel
	err := s.bun.NewSelect().Model(&ems).
		Where("id IN (SELECT event_id FROM open_checkouts)").
		Order("occurred_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.CheckEvent, 0, len(ems))
	for _, e := range ems {
		out = append(out, eventModelToModel(e))
	}
	return out, nil
}

// CheckOut records keyUID leaving with employeeUID.
func (s *BunStore) CheckOut(ctx context.Context, keyUID, employeeUID uint64, at time.Time) (*model.CheckEvent, error) {
	var ev model.CheckEvent
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		key, err := getTag(ctx, tx, keyUID)
		if err != nil {
			return err
		}
		emp, err := getTag(ctx, tx, employeeUID)
		if err != nil {
			return err
		}
		if key == nil || emp == nil {
			return ErrTagNotFound
		}
		if key.Kind != string(model.KindKey) || emp.Kind != string(model.KindEmployee) {
			return fmt.Errorf("check-out needs a key and an employee, got %s and %s", key.Kind, emp.Kind)
		}

		exists, err := tx.NewSelect().Model((*OpenCheckoutModel)(nil)).Where("key_uid = ?", keyUID).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyCheckedOut
		}

		em := CheckEventModel{
			KeyUID:       keyUID,
			KeyUUID:      key.ContentUUID,
			EmployeeUID:  employeeUID,
			EmployeeUUID: emp.ContentUUID,
			Direction:    string(model.DirectionOut),
			OccurredAt:   at.UTC(),
		}
		if _, err := tx.NewInsert().Model(&em).Exec(ctx); err != nil {
			return fmt.Errorf("insert check-out: %w", err)
		}
		if _, err := tx.NewInsert().Model(&OpenCheckoutModel{KeyUID: keyUID, EventID: em.ID}).Exec(ctx); err != nil {
			if errors.Is(MapDBError(err), ErrDuplicate) {
				return ErrAlreadyCheckedOut
			}
			return err
		}
		ev = eventModelToModel(em)
		return nil
	})
	if err != nil {
		return nil, err
	}
	dbLogf("db: key %d checked out by %d (event %d)", keyUID, employeeUID, ev.ID)
	return &ev, nil
}

// CheckIn closes the open check-out of keyUID. The "in" event carries the
// employee who took the key.
func (s *BunStore) CheckIn(ctx context.Context, keyUID uint64, at time.Time) (*model.CheckEvent, error) {
	var ev model.CheckEvent
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		out, err := openCheckout(ctx, tx, keyUID)
		if err != nil {
			return err
		}
		if out == nil {
			return ErrNotCheckedOut
		}
		em := CheckEventModel{
			KeyUID:       keyUID,
			KeyUUID:      out.KeyUUID,
			EmployeeUID:  out.EmployeeUID,
			EmployeeUUID: out.EmployeeUUID,
			Direction:    string(model.DirectionIn),
			CheckoutID:   sql.NullInt64{Int64: out.ID, Valid: true},
			OccurredAt:   at.UTC(),
		}
		if _, err := tx.NewInsert().Model(&em).Exec(ctx); err != nil {
			if errors.Is(MapDBError(err), ErrDuplicate) {
				return ErrNotCheckedOut
			}
			return fmt.Errorf("insert check-in: %w", err)
		}
		if _, err := tx.NewDelete().Model((*OpenCheckoutModel)(nil)).Where("key_uid = ?", keyUID).Exec(ctx); err != nil {
			return err
		}
		ev = eventModelToModel(em)
		return nil
	})
	if err != nil {
		return nil, err
	}
	dbLogf("db: key %d checked in (event %d)", keyUID, ev.ID)
	return &ev, nil
}

type logRow struct {
	CheckoutID        int64        `bun:"checkout_id"`
	KeyUID            uint64       `bun:"key_uid"`
	KeyEncrypted      []byte       `bun:"key_encrypted"`
	EmployeeUID       uint64       `bun:"employee_uid"`
	EmployeeEncrypted []byte       `bun:"employee_encrypted"`
	CheckedOut        time.Time    `bun:"checked_out"`
	CheckedIn         bun.NullTime `bun:"checked_in"`
}

// ListLogs returns check-outs paired with their check-ins, newest first.
// The time range applies to the check-out time and is inclusive.
func (s *BunStore) ListLogs(ctx context.Context, f LogFilter) ([]LogRecord, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "o.direction = 'out'")
	if !f.Start.IsZero() {
		where = append(where, "o.occurred_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if !f.End.IsZero() {
		where = append(where, "o.occurred_at <= ?")
		args = append(args, f.End.UTC())
	}
	if f.OpenOnly {
		where = append(where, "i.id IS NULL")
	}
	q := `SELECT o.id AS checkout_id, o.key_uid, kc.encrypted AS key_encrypted,
			o.employee_uid, ec.encrypted AS employee_encrypted,
			o.occurred_at AS checked_out, i.occurred_at AS checked_in
		FROM check_events o
		LEFT JOIN check_events i ON i.checkout_id = o.id
		LEFT JOIN tag_contents kc ON kc.uuid = o.key_uuid
		LEFT JOIN tag_contents ec ON ec.uuid = o.employee_uuid
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY o.occurred_at DESC, o.id DESC`
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var rows []logRow
	if err := QueryRawInto(ctx, s.bun, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]LogRecord, 0, len(rows))
	for _, r := range rows {
		rec := LogRecord{
			CheckoutID:        r.CheckoutID,
			KeyUID:            r.KeyUID,
			KeyEncrypted:      r.KeyEncrypted,
			EmployeeUID:       r.EmployeeUID,
			EmployeeEncrypted: r.EmployeeEncrypted,
			CheckedOut:        r.CheckedOut.UTC(),
		}
		if !r.CheckedIn.IsZero() {
			in := r.CheckedIn.Time.UTC()
			rec.CheckedIn = &in
		}
		out = append(out, rec)
	}
	return out, nil
}

type eventRow struct {
	ID                int64         `bun:"id"`
	KeyUID            uint64        `bun:"key_uid"`
	KeyUUID           string        `bun:"key_uuid"`
	EmployeeUID       uint64        `bun:"employee_uid"`
	EmployeeUUID      string        `bun:"employee_uuid"`
	Direction         string        `bun:"direction"`
	CheckoutID        sql.NullInt64 `bun:"checkout_id"`
	OccurredAt        time.Time     `bun:"occurred_at"`
	KeyEncrypted      []byte        `bun:"key_encrypted"`
	EmployeeEncrypted []byte        `bun:"employee_encrypted"`
}

// EventsBetween returns every event in [start, end], oldest first.
func (s *BunStore) EventsBetween(ctx context.Context, start, end time.Time) ([]EventRecord, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	var rows []eventRow
	err := QueryRawInto(ctx, s.bun, &rows, `SELECT e.id, e.key_uid, e.key_uuid, e.employee_uid, e.employee_uuid,
			e.direction, e.checkout_id, e.occurred_at,
			kc.encrypted AS key_encrypted, ec.encrypted AS employee_encrypted
		FROM check_events e
		LEFT JOIN tag_contents kc ON kc.uuid = e.key_uuid
		LEFT JOIN tag_contents ec ON ec.uuid = e.employee_uuid
		WHERE e.occurred_at >= ? AND e.occurred_at <= ?
		ORDER BY e.occurred_at ASC, e.id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]EventRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, EventRecord{
			CheckEvent: eventModelToModel(CheckEventModel{
				ID: r.ID, KeyUID: r.KeyUID, KeyUUID: r.KeyUUID,
				EmployeeUID: r.EmployeeUID, EmployeeUUID: r.EmployeeUUID,
				Direction: r.Direction, CheckoutID: r.CheckoutID, OccurredAt: r.OccurredAt,
			}),
			KeyEncrypted:      r.KeyEncrypted,
			EmployeeEncrypted: r.EmployeeEncrypted,
		})
	}
	return out, nil
}
