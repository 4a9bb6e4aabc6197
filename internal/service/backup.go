// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/keyfob/internal/model"
)

// Backup writes and restores zstd-compressed JSON dumps. Labels stay
// encrypted, so a dump is only useful together with the key file.
type Backup struct {
	Store BackupStore
}

// Write exports the store to w.
func (b *Backup) Write(ctx context.Context, w io.Writer) (*model.BackupData, error) {
	data, err := b.Store.ExportBackup(ctx)
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}
	if err := WriteBackup(data, w); err != nil {
		return nil, err
	}
	return data, nil
}

// Restore reads a dump from r. Full replaces all data, otherwise missing
// rows are added.
func (b *Backup) Restore(ctx context.Context, r io.Reader, full bool) (*model.BackupData, error) {
	data, err := ReadBackup(r)
	if err != nil {
		return nil, err
	}
	if err := b.Store.ImportBackup(ctx, data, full); err != nil {
		return nil, fmt.Errorf("import backup: %w", err)
	}
	return data, nil
}

// Migrate copies everything from the backup's store into target, replacing
// target's contents.
func (b *Backup) Migrate(ctx context.Context, target BackupStore) (*model.BackupData, error) {
	data, err := b.Store.ExportBackup(ctx)
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}
	if err := target.ImportBackup(ctx, data, true); err != nil {
		return nil, fmt.Errorf("import to target: %w", err)
	}
	return data, nil
}

// WriteBackup writes compressed JSON backup data to w.
func WriteBackup(data *model.BackupData, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	return zw.Close()
}

// ReadBackup decodes a compressed JSON backup.
func ReadBackup(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &data, nil
}
