// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package service

import (
	"context"
	"sort"
	"strings"

	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/model"
)

// Logs lists check-outs with decrypted names.
type Logs struct {
	Store  LogStore
	Cipher Cipher
}

// List returns rows matching f, newest check-out first.
func (l *Logs) List(ctx context.Context, f db.LogFilter) ([]model.LogRow, error) {
	recs, err := l.Store.ListLogs(ctx, f)
	if err != nil {
		return nil, err
	}
	rows := make([]model.LogRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, model.LogRow{
			CheckoutID:   r.CheckoutID,
			KeyUID:       r.KeyUID,
			KeyLabel:     decryptOrUnknown(l.Cipher, r.KeyEncrypted),
			EmployeeUID:  r.EmployeeUID,
			EmployeeName: decryptOrUnknown(l.Cipher, r.EmployeeEncrypted),
			CheckedOut:   r.CheckedOut,
			CheckedIn:    r.CheckedIn,
		})
	}
	return rows, nil
}

// LogQuery filters decrypted rows client-side, since names are only
// readable after decryption. Empty fields match everything.
type LogQuery struct {
	Employee string
	Key      string
	Status   model.LogStatus
}

// Filter applies q with case-insensitive substring matching and sorts the
// result by check-out time, newest first.
func Filter(rows []model.LogRow, q LogQuery) []model.LogRow {
	emp := strings.ToLower(strings.TrimSpace(q.Employee))
	key := strings.ToLower(strings.TrimSpace(q.Key))
	out := make([]model.LogRow, 0, len(rows))
	for _, r := range rows {
		if emp != "" && !strings.Contains(strings.ToLower(r.EmployeeName), emp) {
			continue
		}
		if key != "" && !strings.Contains(strings.ToLower(r.KeyLabel), key) {
			continue
		}
		if q.Status != "" && r.Status() != q.Status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CheckedOut.Equal(out[j].CheckedOut) {
			return out[i].CheckoutID > out[j].CheckoutID
		}
		return out[i].CheckedOut.After(out[j].CheckedOut)
	})
	return out
}
