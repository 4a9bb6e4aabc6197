//go:build !linux

package reader

import (
	"context"
	"errors"
)

// Keyboard is only available on Linux, where evdev exists.
type Keyboard struct{}

// NewKeyboard always fails on this platform.
func NewKeyboard(device string, format string) (*Keyboard, error) {
	return nil, errors.New("keyboard reader requires linux evdev")
}

func (k *Keyboard) Read(ctx context.Context) (TagEvent, error) {
	return TagEvent{}, errors.New("keyboard reader requires linux evdev")
}

func (k *Keyboard) Close() error { return nil }
