// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/toeirei/keyfob/internal/i18n"
)

// renderResultBlock builds a vertical block containing a primary message,
// optional detail lines, and an error if present. Callers provide already
// localized strings.
func renderResultBlock(primary string, details []string, err error) string {
	var parts []string
	if primary != "" {
		parts = append(parts, primary)
	}
	if len(details) > 0 {
		parts = append(parts, "")
		for _, d := range details {
			parts = append(parts, "  "+d)
		}
	}
	if err != nil {
		parts = append(parts, "", errorStyle.Render(i18n.T("common.error", err.Error())))
	}
	return strings.Join(parts, "\n")
}
