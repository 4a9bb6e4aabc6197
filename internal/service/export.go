// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{"timestamp", "direction", "key", "key_uid", "employee", "employee_uid"}

// Exporter writes check events as CSV.
type Exporter struct {
	Store  EventStore
	Cipher Cipher
}

// ExportOptions controls WriteCSV.
type ExportOptions struct {
	// Compress wraps the output in zstd.
	Compress bool
	// Location renders timestamps in this zone. Nil means UTC.
	Location *time.Location
}

// WriteCSV writes every event with start <= timestamp <= end, oldest first,
// and returns the number of data rows.
func (x *Exporter) WriteCSV(ctx context.Context, w io.Writer, start, end time.Time, opts ExportOptions) (int, error) {
	events, err := x.Store.EventsBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	out := w
	var zw *zstd.Encoder
	if opts.Compress {
		zw, err = zstd.NewWriter(w)
		if err != nil {
			return 0, fmt.Errorf("create zstd writer: %w", err)
		}
		out = zw
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for _, ev := range events {
		rec := []string{
			ev.OccurredAt.In(loc).Format(time.RFC3339),
			string(ev.Direction),
			decryptOrUnknown(x.Cipher, ev.KeyEncrypted),
			strconv.FormatUint(ev.KeyUID, 10),
			decryptOrUnknown(x.Cipher, ev.EmployeeEncrypted),
			strconv.FormatUint(ev.EmployeeUID, 10),
		}
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return 0, fmt.Errorf("finish zstd stream: %w", err)
		}
	}
	return len(events), nil
}
