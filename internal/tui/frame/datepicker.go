// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package frame

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Date picker focus positions.
const (
	FocusYear = iota
	FocusMonth
	FocusDay
	FocusOk
	FocusCancel
	focusCount
)

// DatePicker is a day-resolution date picker dialog.
type DatePicker struct {
	Title        string
	selectedDate time.Time
	Focused      int
	Width        int
}

// NewDatePicker creates a new date picker starting at the given date,
// truncated to midnight in its location. A zero date means today.
func NewDatePicker(title string, date time.Time) *DatePicker {
	if date.IsZero() {
		date = time.Now()
	}
	y, m, d := date.Date()
	return &DatePicker{
		Title:        title,
		selectedDate: time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
		Width:        44,
	}
}

// GetDate returns the currently selected day at midnight.
func (dp *DatePicker) GetDate() time.Time {
	return dp.selectedDate
}

// IncrementField increases the currently focused field.
func (dp *DatePicker) IncrementField() { dp.step(1) }

// DecrementField decreases the currently focused field.
func (dp *DatePicker) DecrementField() { dp.step(-1) }

func (dp *DatePicker) step(n int) {
	switch dp.Focused {
	case FocusYear:
		dp.selectedDate = dp.selectedDate.AddDate(n, 0, 0)
	case FocusMonth:
		dp.selectedDate = dp.selectedDate.AddDate(0, n, 0)
	case FocusDay:
		dp.selectedDate = dp.selectedDate.AddDate(0, 0, n)
	}
}

// FocusNext moves focus to the next field, wrapping around.
func (dp *DatePicker) FocusNext() {
	dp.Focused = (dp.Focused + 1) % focusCount
}

// FocusPrev moves focus to the previous field, wrapping around.
func (dp *DatePicker) FocusPrev() {
	dp.Focused = (dp.Focused + focusCount - 1) % focusCount
}

// IsFocusedOk returns true if OK button is focused.
func (dp *DatePicker) IsFocusedOk() bool { return dp.Focused == FocusOk }

// IsFocusedCancel returns true if Cancel button is focused.
func (dp *DatePicker) IsFocusedCancel() bool { return dp.Focused == FocusCancel }

// Render produces the date picker output. help, ok and cancel are the
// already translated labels.
func (dp *DatePicker) Render(help, ok, cancel string) string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color("60")).
		Bold(true).
		Width(dp.Width - 2).
		Align(lipgloss.Center).
		Render("📅 " + dp.Title)

	preview := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Render(dp.selectedDate.Format("Monday, 02 January 2006"))

	dialog := lipgloss.JoinVertical(
		lipgloss.Center,
		header,
		dp.renderDateFields(),
		preview,
		"",
		dp.renderButtons(ok, cancel),
		lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(1, 2, 0, 2).Render(help),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Width(dp.Width).
		Render(dialog)
}

func (dp *DatePicker) renderDateFields() string {
	focused := lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color("60")).
		Bold(true).
		Padding(0, 1)
	normal := lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	field := func(pos int, text string) string {
		if dp.Focused == pos {
			return focused.Render(text)
		}
		return normal.Render(text)
	}

	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("-")
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		field(FocusYear, fmt.Sprintf("%04d", dp.selectedDate.Year())), sep,
		field(FocusMonth, fmt.Sprintf("%02d", int(dp.selectedDate.Month()))), sep,
		field(FocusDay, fmt.Sprintf("%02d", dp.selectedDate.Day())),
	)
	return lipgloss.NewStyle().Padding(1, 2).Render(line)
}

func (dp *DatePicker) renderButtons(ok, cancel string) string {
	button := func(label string, focused bool) string {
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("239")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("239")).
			Padding(0, 2)
		if focused {
			style = style.Background(lipgloss.Color("60")).BorderForeground(lipgloss.Color("60"))
		}
		return style.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		button(ok, dp.IsFocusedOk()), "  ", button(cancel, dp.IsFocusedCancel()))
}
