//go:build linux

// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"context"
	"fmt"

	"github.com/kenshaw/evdev"
	"github.com/toeirei/keyfob/internal/logging"
)

// Keyboard implements TagReader for USB keyboard-style RFID readers that
// type the badge number followed by Enter. These readers cannot store text.
type Keyboard struct {
	device *evdev.Evdev
	format badgeFormat
}

// NewKeyboard opens the input device. Format is "10h", "8d" and so on.
func NewKeyboard(device string, format string) (*Keyboard, error) {
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}
	f := parseBadgeFormat(format)
	logging.Infof("Opened keyboard reader %s (vendor 0x%04x, product 0x%04x, format %s)",
		dev.Name(), dev.ID().Vendor, dev.ID().Product, f.name)
	return &Keyboard{device: dev, format: f}, nil
}

// Read implements TagReader. Malformed lines are logged and skipped.
func (k *Keyboard) Read(ctx context.Context) (TagEvent, error) {
	ch := k.device.Poll(ctx)
	var line string

	for {
		select {
		case <-ctx.Done():
			return TagEvent{}, ctx.Err()
		case event := <-ch:
			if event == nil {
				return TagEvent{}, fmt.Errorf("keyboard device closed")
			}
			if _, ok := event.Type.(evdev.KeyType); !ok || event.Value != 1 {
				continue
			}
			if event.Type == evdev.KeyEnter {
				if line == "" {
					continue
				}
				id, err := k.format.parse(line)
				line = ""
				if err != nil {
					logging.Warnf("keyboard reader: %v", err)
					continue
				}
				return TagEvent{UID: id}, nil
			}
			line += evdev.KeyType(event.Code).String()
		}
	}
}

// Close implements TagReader.
func (k *Keyboard) Close() error {
	if k.device == nil {
		return nil
	}
	return k.device.Close()
}
