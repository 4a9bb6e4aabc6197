package service

import (
	"context"

	"github.com/toeirei/keyfob/internal/model"
)

// TagRow is a registered tag with its decrypted label.
type TagRow struct {
	model.Tag
	Label string
}

// Tags lists and toggles registered tags.
type Tags struct {
	Store  TagStore
	Cipher Cipher
}

// List returns every tag, employees first.
func (t *Tags) List(ctx context.Context) ([]TagRow, error) {
	entries, err := t.Store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]TagRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, TagRow{Tag: e.Tag, Label: decryptOrUnknown(t.Cipher, e.Encrypted)})
	}
	return rows, nil
}

// SetActive enables or disables taps of uid.
func (t *Tags) SetActive(ctx context.Context, uid uint64, active bool) error {
	return t.Store.SetTagActive(ctx, uid, active)
}
