// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"fmt"
	"strconv"
	"strings"
)

// badgeFormat describes what a keyboard-emulating reader types per badge,
// e.g. "10h" for ten hex digits or "8d" for eight decimal digits.
type badgeFormat struct {
	numDigits int // 0 = any
	isHex     bool
	name      string
}

// parseBadgeFormat parses "10h", "10d", "8h" and similar. A bare number is
// taken as hex. Empty means "10h".
func parseBadgeFormat(format string) badgeFormat {
	if format == "" {
		format = "10h"
	}
	format = strings.ToLower(format)

	f := badgeFormat{isHex: true, name: format}
	switch {
	case strings.HasSuffix(format, "h"):
		f.numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "h"))
	case strings.HasSuffix(format, "d"):
		f.isHex = false
		f.numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "d"))
	default:
		f.numDigits, _ = strconv.Atoi(format)
	}
	return f
}

// parse converts one typed line into a badge id.
func (f badgeFormat) parse(line string) (uint64, error) {
	if f.numDigits > 0 && len(line) != f.numDigits {
		return 0, fmt.Errorf("expected %d digits, got %d (%q)", f.numDigits, len(line), line)
	}
	base := 10
	if f.isHex {
		base = 16
	}
	n, err := strconv.ParseUint(line, base, 64)
	if err != nil {
		return 0, fmt.Errorf("bad badge line %q (base %d): %w", line, base, err)
	}
	return n & 0xffffffff, nil
}
