// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package indicator drives the status LEDs next to the reader.
package indicator

import "fmt"

// Indicator is the interface for status indicator implementations.
type Indicator interface {
	// Idle: nothing going on.
	Idle()
	// Pending: an employee session is open and waiting for keys.
	Pending()
	// Accepted: the last tap was taken.
	Accepted()
	// Rejected: the last tap was refused.
	Rejected()
	// Fault: the reader or the database failed.
	Fault()
	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations. Pins are BCM
// numbers (govattu) or line offsets on Chip (cdev); nil means not fitted.
type Config struct {
	Driver    string // "govattu" or "cdev"
	Chip      string
	GreenPin  *uint8
	YellowPin *uint8
	RedPin    *uint8
}

func (c Config) anyPin() bool {
	return c.GreenPin != nil || c.YellowPin != nil || c.RedPin != nil
}

// New creates an Indicator for cfg. Without pins it returns a Noop.
func New(cfg Config) (Indicator, error) {
	if !cfg.anyPin() {
		return &Noop{}, nil
	}
	switch cfg.Driver {
	case "", "govattu":
		return NewGPIO(cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
	case "cdev":
		return NewCdev(cfg.Chip, cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
	default:
		return nil, fmt.Errorf("unknown indicator driver %q", cfg.Driver)
	}
}
