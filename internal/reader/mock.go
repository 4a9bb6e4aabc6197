// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Mock is an in-memory reader. Taps are queued with SetNext and handed out
// by Read in order. A tap with empty text acts like a UID-only reader.
type Mock struct {
	queue chan TagEvent

	mu     sync.Mutex
	last   *TagEvent
	closed bool
	done   chan struct{}
}

// NewMock returns an empty mock reader.
func NewMock() *Mock {
	return &Mock{queue: make(chan TagEvent, 16), done: make(chan struct{})}
}

// SetNext queues a tap of uid carrying text. It never blocks; when the queue
// is full the tap is dropped and false is returned.
func (m *Mock) SetNext(uid uint64, text string) bool {
	text = strings.TrimSpace(text)
	ev := TagEvent{UID: uid, Text: text, HasText: text != ""}
	select {
	case m.queue <- ev:
		return true
	default:
		return false
	}
}

// Read implements TagReader.
func (m *Mock) Read(ctx context.Context) (TagEvent, error) {
	select {
	case <-ctx.Done():
		return TagEvent{}, ctx.Err()
	case <-m.done:
		return TagEvent{}, ErrNoTag
	case ev := <-m.queue:
		m.mu.Lock()
		e := ev
		m.last = &e
		m.mu.Unlock()
		return ev, nil
	}
}

// Write stores text on the most recently read card and presents that card
// again, the way a physical card stays in the field after writing.
func (m *Mock) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.last == nil {
		m.mu.Unlock()
		return ErrNoTag
	}
	m.last.Text = strings.TrimSpace(text)
	ev := *m.last
	m.mu.Unlock()

	if !m.SetNext(ev.UID, ev.Text) {
		return ErrNoTag
	}
	return nil
}

// Close implements TagReader. Pending and future Reads return ErrNoTag.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// ParseMockLine parses a simulated tap written as "uid[,text]". The UID is
// hexadecimal with an optional 0x prefix.
func ParseMockLine(line string) (uint64, string, error) {
	uidPart, text, _ := strings.Cut(strings.TrimSpace(line), ",")
	uidPart = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(uidPart)), "0x")
	if uidPart == "" {
		return 0, "", fmt.Errorf("empty uid")
	}
	uid, err := strconv.ParseUint(uidPart, 16, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid uid %q: %w", uidPart, err)
	}
	if uid == 0 {
		return 0, "", fmt.Errorf("uid must not be zero")
	}
	return uid, strings.TrimSpace(text), nil
}
