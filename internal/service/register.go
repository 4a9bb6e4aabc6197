// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
)

var (
	// ErrEmptyLabel is returned when registering without a name or label.
	ErrEmptyLabel = errors.New("label must not be empty")
	// ErrWrongTag is returned when a different card than expected was tapped.
	ErrWrongTag = errors.New("a different tag was tapped")
	// ErrVerifyFailed is returned when the card did not hold the written
	// content after all attempts.
	ErrVerifyFailed = errors.New("could not verify the data written to the tag")
)

// RegisterRequest describes a tag to register. UID 0 accepts whichever tag
// is tapped first.
type RegisterRequest struct {
	Kind  model.TagKind
	Label string
	UID   uint64
}

// Registrar enrolls employee badges and key fobs.
type Registrar struct {
	Store  RegisterStore
	Cipher Cipher
	// Attempts is how often the write and verify step is tried. Default 3.
	Attempts int
	// TapTimeout bounds each wait for a tap. Default 30s.
	TapTimeout time.Duration
	// NewUUID generates content ids. Default: random UUID without dashes.
	NewUUID func() string
	Now     func() time.Time
}

func (r *Registrar) attempts() int {
	if r.Attempts > 0 {
		return r.Attempts
	}
	return 3
}

func (r *Registrar) tapTimeout() time.Duration {
	if r.TapTimeout > 0 {
		return r.TapTimeout
	}
	return 30 * time.Second
}

func (r *Registrar) newUUID() string {
	if r.NewUUID != nil {
		return r.NewUUID()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (r *Registrar) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Registrar) readTap(ctx context.Context, rd reader.TagReader) (reader.TagEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.tapTimeout())
	defer cancel()
	return rd.Read(ctx)
}

// Register waits for a tap, writes a fresh content UUID to the card,
// re-reads it and then stores the tag with its encrypted label. Readers
// that cannot write register the UID alone.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest, rd reader.TagReader) (*model.Tag, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if req.Kind != model.KindEmployee && req.Kind != model.KindKey {
		return nil, fmt.Errorf("unknown tag kind %q", req.Kind)
	}

	ev, err := r.readTap(ctx, rd)
	if err != nil {
		return nil, fmt.Errorf("wait for tap: %w", err)
	}
	if req.UID != 0 && ev.UID != req.UID {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongTag, req.UID, ev.UID)
	}
	uid := ev.UID

	encrypted, err := r.Cipher.EncryptName(label)
	if err != nil {
		return nil, fmt.Errorf("encrypt label: %w", err)
	}
	contentUUID := r.newUUID()

	if w, ok := reader.AsWriter(rd); ok {
		if err := r.writeAndVerify(ctx, w, rd, uid, contentUUID); err != nil {
			return nil, err
		}
	} else {
		logging.Infof("reader cannot store data, registering tag %d by UID only", uid)
	}

	now := r.now().UTC()
	tag := model.Tag{UID: uid, ContentUUID: contentUUID, Kind: req.Kind, Active: true, RegisteredAt: now, UpdatedAt: now}
	content := model.TagContent{UUID: contentUUID, Encrypted: encrypted, RegisteredAt: now}
	if err := r.Store.RegisterTag(ctx, tag, content); err != nil {
		return nil, fmt.Errorf("store tag %d: %w", uid, err)
	}
	// Re-registration keeps the stored activation flag.
	if stored, err := r.Store.GetTag(ctx, uid); err == nil && stored != nil {
		tag = *stored
	}
	logging.Infof("registered %s tag %d", req.Kind, uid)
	return &tag, nil
}

func (r *Registrar) writeAndVerify(ctx context.Context, w reader.TagWriter, rd reader.TagReader, uid uint64, text string) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(ctx, text); err != nil {
			lastErr = fmt.Errorf("write tag %d: %w", uid, err)
			logging.Warnf("registration attempt %d: %v", attempt, lastErr)
			continue
		}
		ev, err := r.readTap(ctx, rd)
		if err != nil {
			lastErr = fmt.Errorf("re-read tag %d: %w", uid, err)
			logging.Warnf("registration attempt %d: %v", attempt, lastErr)
			continue
		}
		if ev.UID == uid && strings.TrimSpace(ev.Text) == text {
			return nil
		}
		lastErr = fmt.Errorf("%w: tag %d read back %q", ErrVerifyFailed, ev.UID, ev.Text)
		logging.Warnf("registration attempt %d: %v", attempt, lastErr)
	}
	if errors.Is(lastErr, ErrVerifyFailed) {
		return lastErr
	}
	return fmt.Errorf("%w: %v", ErrVerifyFailed, lastErr)
}
