// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package frame

import (
	"github.com/charmbracelet/lipgloss"
)

// Dialog represents a modal dialog box with title, message, and up to two
// buttons. An empty right label renders a single button.
type Dialog struct {
	title       string
	message     string
	buttonLeft  string
	buttonRight string
	focused     bool // which button is focused (false = left, true = right)
	width       int
	danger      bool
}

// NewDialog creates a new dialog with the given title, message, and button labels.
func NewDialog(title, message, buttonLeft, buttonRight string) *Dialog {
	return &Dialog{
		title:       title,
		message:     message,
		buttonLeft:  buttonLeft,
		buttonRight: buttonRight,
		width:       60,
	}
}

// NewErrorDialog returns a single-button dialog with a red header.
func NewErrorDialog(title, message, button string) *Dialog {
	d := NewDialog(title, message, button, "")
	d.danger = true
	return d
}

// SetWidth sets the dialog width.
func (d *Dialog) SetWidth(width int) {
	if width > 20 {
		d.width = width
	}
}

// Toggle moves focus to the other button.
func (d *Dialog) Toggle() {
	if d.buttonRight != "" {
		d.focused = !d.focused
	}
}

// IsFocusedRight returns true if the right button is focused.
func (d *Dialog) IsFocusedRight() bool {
	return d.focused
}

// Render produces the dialog box output with auto-calculated height.
func (d *Dialog) Render() string {
	headerBg := lipgloss.Color("60")
	if d.danger {
		headerBg = lipgloss.Color("124")
	}
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Background(headerBg).
		Bold(true).
		Width(d.width).
		Render(" " + d.title)

	message := lipgloss.NewStyle().
		Width(d.width-4).
		Padding(1, 2, 0, 2).
		Render(d.message)

	dialog := lipgloss.JoinVertical(lipgloss.Left, header, message, d.renderButtonArea())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Width(d.width).
		Render(dialog)
}

func (d *Dialog) renderButtonArea() string {
	button := func(label string, focused bool) string {
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("239")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("239")).
			Padding(0, 3)
		if focused {
			style = style.Background(lipgloss.Color("60")).BorderForeground(lipgloss.Color("60"))
		}
		return style.Render(label)
	}

	row := button(d.buttonLeft, !d.focused)
	if d.buttonRight != "" {
		row = lipgloss.JoinHorizontal(lipgloss.Center, row, "  ", button(d.buttonRight, d.focused))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(row)
}
