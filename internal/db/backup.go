// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/toeirei/keyfob/internal/model"
	"github.com/uptrace/bun"
)

// BackupSchemaVersion is written into every export and checked on import.
const BackupSchemaVersion = 1

// ExportBackup dumps every table inside one read transaction.
func (s *BunStore) ExportBackup(ctx context.Context) (*model.BackupData, error) {
	var backup *model.BackupData
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: BackupSchemaVersion, CreatedAt: time.Now().UTC()}

		var contents []TagContentModel
		if err := tx.NewSelect().Model(&contents).Order("uuid").Scan(ctx); err != nil {
			return err
		}
		for _, c := range contents {
			backup.Contents = append(backup.Contents, contentModelToModel(c))
		}

		var tags []TagModel
		if err := tx.NewSelect().Model(&tags).Order("uid").Scan(ctx); err != nil {
			return err
		}
		for _, t := range tags {
			backup.Tags = append(backup.Tags, tagModelToModel(t))
		}

		var events []CheckEventModel
		if err := tx.NewSelect().Model(&events).Order("id").Scan(ctx); err != nil {
			return err
		}
		for _, e := range events {
			backup.Events = append(backup.Events, eventModelToModel(e))
		}
		return nil
	})
	return backup, err
}

// ImportBackup loads a dump. A full import wipes every table first. An
// integrating import skips rows whose primary key already exists. Either
// way open_checkouts is rebuilt from the events afterwards.
func (s *BunStore) ImportBackup(ctx context.Context, data *model.BackupData, full bool) error {
	if data == nil {
		return fmt.Errorf("no backup data")
	}
	if data.SchemaVersion > BackupSchemaVersion {
		return fmt.Errorf("backup schema version %d is newer than supported version %d", data.SchemaVersion, BackupSchemaVersion)
	}

	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if full {
			// Break the self reference first so engines that check foreign
			// keys per row can delete in any order.
			stmts := []string{
				"DELETE FROM open_checkouts",
				"UPDATE check_events SET checkout_id = NULL",
				"DELETE FROM check_events",
				"DELETE FROM tags",
				"DELETE FROM tag_contents",
			}
			for _, q := range stmts {
				if _, err := ExecRaw(ctx, tx, q); err != nil {
					return err
				}
			}
		}

		contents := make([]TagContentModel, 0, len(data.Contents))
		for _, c := range data.Contents {
			contents = append(contents, TagContentModel{UUID: c.UUID, Encrypted: c.Encrypted, RegisteredAt: c.RegisteredAt.UTC()})
		}
		tags := make([]TagModel, 0, len(data.Tags))
		for _, t := range data.Tags {
			tags = append(tags, TagModel{
				UID: t.UID, ContentUUID: t.ContentUUID, Kind: string(t.Kind), Active: t.Active,
				RegisteredAt: t.RegisteredAt.UTC(), UpdatedAt: t.UpdatedAt.UTC(),
			})
		}
		events := make([]CheckEventModel, 0, len(data.Events))
		for _, e := range data.Events {
			events = append(events, eventModelFromModel(e))
		}
		// Check-ins reference their check-out, which always has the lower id.
		sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

		if len(contents) > 0 {
			q := tx.NewInsert().Model(&contents)
			if !full {
				q = q.Ignore()
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("import tag contents: %w", MapDBError(err))
			}
		}
		if len(tags) > 0 {
			q := tx.NewInsert().Model(&tags)
			if !full {
				q = q.Ignore()
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("import tags: %w", MapDBError(err))
			}
		}
		if len(events) > 0 {
			q := tx.NewInsert().Model(&events)
			if !full {
				q = q.Ignore()
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("import events: %w", MapDBError(err))
			}
		}

		if s.dbType == "postgres" {
			if _, err := ExecRaw(ctx, tx, "SELECT setval(pg_get_serial_sequence('check_events', 'id'), COALESCE((SELECT MAX(id) FROM check_events), 0) + 1, false)"); err != nil {
				return fmt.Errorf("reset event sequence: %w", err)
			}
		}

		return rebuildOpenCheckouts(ctx, tx)
	})
}

// rebuildOpenCheckouts derives open_checkouts from check-outs that have no
// matching check-in. Only the newest one per key counts.
func rebuildOpenCheckouts(ctx context.Context, tx bun.Tx) error {
	if _, err := ExecRaw(ctx, tx, "DELETE FROM open_checkouts"); err != nil {
		return err
	}
	_, err := ExecRaw(ctx, tx, `INSERT INTO open_checkouts (key_uid, event_id)
		SELECT o.key_uid, MAX(o.id) FROM check_events o
		WHERE o.direction = 'out'
		  AND NOT EXISTS (SELECT 1 FROM check_events i WHERE i.checkout_id = o.id)
		GROUP BY o.key_uid`)
	if err != nil {
		return fmt.Errorf("rebuild open check-outs: %w", err)
	}
	return nil
}
