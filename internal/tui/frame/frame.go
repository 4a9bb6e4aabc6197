// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package frame holds small rendering widgets shared by the keyfob views.
package frame

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Footer builds a one-line footer from left and right tokens, aligning the
// right token to the right edge of a line with the specified width.
// It truncates the left side if space is insufficient.
func Footer(left, right string, width int) string {
	if width <= 0 {
		return left + " " + right
	}
	rl := lipgloss.Width(right)
	ll := lipgloss.Width(left)
	if ll+rl+1 <= width {
		return left + strings.Repeat(" ", width-ll-rl) + right
	}
	maxLeft := width - rl - 1
	if maxLeft <= 0 {
		return trimToWidth(right, width)
	}
	return trimToWidth(left, maxLeft) + " " + right
}

func trimToWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= w {
		return s
	}
	return string(runes[:w])
}

// StatusBar renders Footer on a dark background.
func StatusBar(left, right string, width int) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("236"))
	return style.Render(Footer(left, right, width))
}
