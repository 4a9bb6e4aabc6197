// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package reader talks to the RFID hardware. Every driver yields TagEvents
// through the TagReader interface; drivers that can store data on the card
// also implement TagWriter.
package reader

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTag is returned when an operation needs a tag that is not present.
var ErrNoTag = errors.New("no tag present")

// TagEvent is one tap. Text is the data stored on the card and is only
// meaningful when HasText is set; UID-only readers leave it empty.
type TagEvent struct {
	UID     uint64
	Text    string
	HasText bool
}

// TagReader is the interface for all tag/card reader implementations.
type TagReader interface {
	// Read blocks until a tag is read or ctx is done.
	Read(ctx context.Context) (TagEvent, error)

	// Close releases any resources held by the reader.
	Close() error
}

// TagWriter is implemented by readers that can store text on the card
// currently in the field.
type TagWriter interface {
	Write(ctx context.Context, text string) error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type   string // "mfrc522", "keyboard", "serial", "mock"
	Device string // e.g. "/dev/serial0", "/dev/input/event0"
	Baud   int    // baud rate for serial devices
	Format string // keyboard digit format, e.g. "10h"
}

// New creates a TagReader based on the provided configuration.
func New(cfg Config) (TagReader, error) {
	switch cfg.Type {
	case "", "mfrc522":
		return NewMFRC522()
	case "keyboard", "10h-kbd":
		return NewKeyboard(cfg.Device, cfg.Format)
	case "serial":
		return NewSerial(cfg.Device, cfg.Baud)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}

// AsWriter returns r as a TagWriter when the driver supports writing.
func AsWriter(r TagReader) (TagWriter, bool) {
	w, ok := r.(TagWriter)
	return w, ok
}
