// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/keyfob/internal/crypto"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/security"
)

func newCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := crypto.New(security.FromBytes(key))
	require.NoError(t, err)
	return c
}

func newStore(t *testing.T, name string) db.Store {
	t.Helper()
	s, err := db.NewStoreFromDSN("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)

// register enrolls a tag through the mock reader.
func register(t *testing.T, r *Registrar, m *reader.Mock, uid uint64, kind model.TagKind, label string) *model.Tag {
	t.Helper()
	m.SetNext(uid, "")
	tag, err := r.Register(context.Background(), RegisterRequest{Kind: kind, Label: label}, m)
	require.NoError(t, err)
	return tag
}

func TestRegister_WritesVerifiesAndStores(t *testing.T) {
	store := newStore(t, t.Name())
	c := newCipher(t)
	m := reader.NewMock()
	r := &Registrar{Store: store, Cipher: c, TapTimeout: time.Second, NewUUID: func() string { return "0123456789abcdef0123456789abcdef" }}

	tag := register(t, r, m, 42, model.KindEmployee, "  Ada Lovelace ")
	assert.Equal(t, uint64(42), tag.UID)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", tag.ContentUUID)
	assert.True(t, tag.Active)

	content, err := store.GetContent(context.Background(), tag.ContentUUID)
	require.NoError(t, err)
	require.NotNil(t, content)
	name, err := c.DecryptName(content.Encrypted)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", name)
}

func TestRegister_DefaultUUIDHasNoDashes(t *testing.T) {
	store := newStore(t, t.Name())
	m := reader.NewMock()
	r := &Registrar{Store: store, Cipher: newCipher(t), TapTimeout: time.Second}

	tag := register(t, r, m, 7, model.KindKey, "Server room")
	assert.Len(t, tag.ContentUUID, 32)
	assert.NotContains(t, tag.ContentUUID, "-")
}

func TestRegister_RejectsBadInput(t *testing.T) {
	r := &Registrar{Store: newStore(t, t.Name()), Cipher: newCipher(t), TapTimeout: 50 * time.Millisecond}
	m := reader.NewMock()
	ctx := context.Background()

	_, err := r.Register(ctx, RegisterRequest{Kind: model.KindKey, Label: "   "}, m)
	assert.ErrorIs(t, err, ErrEmptyLabel)

	_, err = r.Register(ctx, RegisterRequest{Kind: "door", Label: "x"}, m)
	assert.Error(t, err)

	m.SetNext(5, "")
	_, err = r.Register(ctx, RegisterRequest{Kind: model.KindKey, Label: "x", UID: 6}, m)
	assert.ErrorIs(t, err, ErrWrongTag)

	_, err = r.Register(ctx, RegisterRequest{Kind: model.KindKey, Label: "x"}, m)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "no tap arrives")
}

// lyingWriter accepts writes but the card never holds the data.
type lyingWriter struct {
	*reader.Mock
	writes int
}

func (l *lyingWriter) Write(ctx context.Context, text string) error {
	l.writes++
	return l.Mock.Write(ctx, "garbage")
}

func TestRegister_VerifyFailsAfterRetries(t *testing.T) {
	store := newStore(t, t.Name())
	m := &lyingWriter{Mock: reader.NewMock()}
	r := &Registrar{Store: store, Cipher: newCipher(t), TapTimeout: time.Second}

	m.SetNext(9, "")
	_, err := r.Register(context.Background(), RegisterRequest{Kind: model.KindKey, Label: "Van"}, m)
	assert.ErrorIs(t, err, ErrVerifyFailed)
	assert.Equal(t, 3, m.writes)

	tag, err := store.GetTag(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, tag, "nothing stored when verification fails")
}

// uidOnly hides the mock's Write method.
type uidOnly struct{ m *reader.Mock }

func (u uidOnly) Read(ctx context.Context) (reader.TagEvent, error) { return u.m.Read(ctx) }
func (u uidOnly) Close() error                                      { return u.m.Close() }

func TestRegister_UIDOnlyReader(t *testing.T) {
	store := newStore(t, t.Name())
	m := reader.NewMock()
	r := &Registrar{Store: store, Cipher: newCipher(t), TapTimeout: time.Second}

	m.SetNext(11, "")
	tag, err := r.Register(context.Background(), RegisterRequest{Kind: model.KindKey, Label: "Shed"}, uidOnly{m})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), tag.UID)
}

func seedHistory(t *testing.T, store db.Store, c *crypto.Cipher) {
	t.Helper()
	r := &Registrar{Store: store, Cipher: c, TapTimeout: time.Second}
	m := reader.NewMock()
	register(t, r, m, 1, model.KindEmployee, "Grace Hopper")
	register(t, r, m, 2, model.KindEmployee, "Alan Turing")
	register(t, r, m, 10, model.KindKey, "Main door")
	register(t, r, m, 11, model.KindKey, "Lab")

	ctx := context.Background()
	mustOK := func(_ *model.CheckEvent, err error) {
		t.Helper()
		require.NoError(t, err)
	}
	mustOK(store.CheckOut(ctx, 10, 1, base))
	mustOK(store.CheckOut(ctx, 11, 2, base.Add(time.Hour)))
	mustOK(store.CheckIn(ctx, 10, base.Add(2*time.Hour)))
	mustOK(store.CheckOut(ctx, 10, 2, base.Add(3*time.Hour)))
}

func TestLogs_ListAndFilter(t *testing.T) {
	store := newStore(t, t.Name())
	c := newCipher(t)
	seedHistory(t, store, c)

	logs := &Logs{Store: store, Cipher: c}
	rows, err := logs.List(context.Background(), db.LogFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Main door", rows[0].KeyLabel)
	assert.Equal(t, "Alan Turing", rows[0].EmployeeName)

	out := Filter(rows, LogQuery{Status: model.StatusOut})
	assert.Len(t, out, 2)

	grace := Filter(rows, LogQuery{Employee: "grace"})
	require.Len(t, grace, 1)
	assert.Equal(t, model.StatusIn, grace[0].Status())
	assert.Equal(t, 2*time.Hour, grace[0].Elapsed(base.Add(10*time.Hour)))

	assert.Len(t, Filter(rows, LogQuery{Key: "LAB", Employee: "alan"}), 1)
	assert.Empty(t, Filter(rows, LogQuery{Key: "garage"}))
}

func TestLogs_UndecryptableLabelsShowUnknown(t *testing.T) {
	store := newStore(t, t.Name())
	seedHistory(t, store, newCipher(t))

	logs := &Logs{Store: store, Cipher: newCipher(t)}
	rows, err := logs.List(context.Background(), db.LogFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, UnknownLabel, rows[0].KeyLabel)
	assert.Equal(t, UnknownLabel, rows[0].EmployeeName)
}

func TestTags_ListAndToggle(t *testing.T) {
	store := newStore(t, t.Name())
	c := newCipher(t)
	seedHistory(t, store, c)

	tags := &Tags{Store: store, Cipher: c}
	rows, err := tags.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, model.KindEmployee, rows[0].Kind)
	assert.Equal(t, "Grace Hopper", rows[0].Label)

	require.NoError(t, tags.SetActive(context.Background(), 11, false))
	tag, _ := store.GetTag(context.Background(), 11)
	assert.False(t, tag.Active)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestExport_InclusiveRange(t *testing.T) {
	store := newStore(t, t.Name())
	c := newCipher(t)
	seedHistory(t, store, c)
	x := &Exporter{Store: store, Cipher: c}

	var buf bytes.Buffer
	n, err := x.WriteCSV(context.Background(), &buf, base.Add(time.Hour), base.Add(2*time.Hour), ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 3)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{base.Add(time.Hour).Format(time.RFC3339), "out", "Lab", "11", "Alan Turing", "2"}, recs[1])
	assert.Equal(t, []string{base.Add(2 * time.Hour).Format(time.RFC3339), "in", "Main door", "10", "Grace Hopper", "1"}, recs[2])

	buf.Reset()
	n, err = x.WriteCSV(context.Background(), &buf, base.Add(4*time.Hour), base.Add(5*time.Hour), ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, readCSV(t, buf.Bytes()), 1, "header only")
}

func TestExport_Compressed(t *testing.T) {
	store := newStore(t, t.Name())
	c := newCipher(t)
	seedHistory(t, store, c)
	x := &Exporter{Store: store, Cipher: c}

	var buf bytes.Buffer
	n, err := x.WriteCSV(context.Background(), &buf, base, base.Add(24*time.Hour), ExportOptions{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	zr, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, plain), 5)
}

type failingEvents struct{}

func (failingEvents) EventsBetween(context.Context, time.Time, time.Time) ([]db.EventRecord, error) {
	return nil, errors.New("db gone")
}

func TestExport_SurfacesStoreErrors(t *testing.T) {
	x := &Exporter{Store: failingEvents{}}
	_, err := x.WriteCSV(context.Background(), &bytes.Buffer{}, base, base, ExportOptions{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "db gone"))
}

func TestBackup_WriteRestoreMigrate(t *testing.T) {
	src := newStore(t, t.Name()+"_src")
	c := newCipher(t)
	seedHistory(t, src, c)

	var buf bytes.Buffer
	data, err := (&Backup{Store: src}).Write(context.Background(), &buf)
	require.NoError(t, err)
	assert.Len(t, data.Events, 4)

	dst := newStore(t, t.Name()+"_dst")
	restored, err := (&Backup{Store: dst}).Restore(context.Background(), &buf, true)
	require.NoError(t, err)
	assert.Len(t, restored.Tags, 4)

	open, err := dst.OpenCheckouts(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 2)

	other := newStore(t, t.Name()+"_other")
	_, err = (&Backup{Store: src}).Migrate(context.Background(), other)
	require.NoError(t, err)
	rows, err := (&Logs{Store: other, Cipher: c}).List(context.Background(), db.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = ReadBackup(strings.NewReader("not zstd"))
	assert.Error(t, err)
}
