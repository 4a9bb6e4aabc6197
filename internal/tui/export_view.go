// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/tui/frame"
)

// exportFunc writes the CSV for [start, end] to path.
type exportFunc func(path string, start, end time.Time, compress bool) (int, error)

type exportStep int

const (
	exportFrom exportStep = iota
	exportTo
	exportFile
	exportDone
)

type exportedMsg struct {
	path string
	n    int
	err  error
}

// exportModel picks a date range and a file name, then writes the CSV.
type exportModel struct {
	step     exportStep
	from     *frame.DatePicker
	to       *frame.DatePicker
	file     textinput.Model
	compress bool
	write    exportFunc
	err      error
	result   *exportedMsg
}

func newExportModel(now time.Time, fn exportFunc) *exportModel {
	ti := textinput.New()
	ti.CharLimit = 255
	ti.Width = 50
	return &exportModel{
		from:  frame.NewDatePicker(i18n.T("export.from"), now.AddDate(0, 0, -30)),
		to:    frame.NewDatePicker(i18n.T("export.to"), now),
		file:  ti,
		write: fn,
	}
}

func (m *exportModel) Init() tea.Cmd { return nil }

// Range returns the selected start and the inclusive end of the last day.
func (m *exportModel) Range() (time.Time, time.Time) {
	start := m.from.GetDate()
	end := m.to.GetDate().AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

func (m *exportModel) defaultFileName() string {
	name := "keyfob-" + m.from.GetDate().Format("20060102") + "-" + m.to.GetDate().Format("20060102") + ".csv"
	if m.compress {
		name += ".zst"
	}
	return name
}

func (m *exportModel) picker() *frame.DatePicker {
	if m.step == exportFrom {
		return m.from
	}
	return m.to
}

func back() tea.Msg { return backToMainMsg{} }

func (m *exportModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case exportedMsg:
		m.step = exportDone
		m.result = &msg
		return nil
	case tea.KeyMsg:
		switch m.step {
		case exportFrom, exportTo:
			return m.updatePicker(msg)
		case exportFile:
			return m.updateFile(msg)
		case exportDone:
			return back
		}
	}
	return nil
}

func (m *exportModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	dp := m.picker()
	switch msg.String() {
	case "esc", "q":
		return back
	case "up", "k", "+":
		dp.IncrementField()
	case "down", "j", "-":
		dp.DecrementField()
	case "right", "l", "tab":
		dp.FocusNext()
	case "left", "h", "shift+tab":
		dp.FocusPrev()
	case "enter":
		if dp.IsFocusedCancel() {
			return back
		}
		if m.step == exportFrom {
			m.step = exportTo
			return nil
		}
		start, end := m.Range()
		if end.Before(start) {
			m.err = errors.New(i18n.T("export.bad_range"))
			return nil
		}
		m.err = nil
		m.step = exportFile
		m.file.SetValue(m.defaultFileName())
		m.file.CursorEnd()
		return m.file.Focus()
	}
	return nil
}

func (m *exportModel) updateFile(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		return back
	case tea.KeyCtrlZ:
		m.compress = !m.compress
		v := strings.TrimSuffix(m.file.Value(), ".zst")
		if m.compress {
			v += ".zst"
		}
		m.file.SetValue(v)
		return nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.file.Value())
		if path == "" {
			m.err = errors.New(i18n.T("export.no_file"))
			return nil
		}
		start, end := m.Range()
		compress, write := m.compress, m.write
		return func() tea.Msg {
			n, err := write(path, start, end, compress)
			return exportedMsg{path: path, n: n, err: err}
		}
	}
	var cmd tea.Cmd
	m.file, cmd = m.file.Update(msg)
	return cmd
}

func (m *exportModel) View() string {
	title := titleStyle.Render("📤 " + i18n.T("export.title"))
	var body string
	switch m.step {
	case exportFrom, exportTo:
		body = m.picker().Render(i18n.T("export.picker_help"), i18n.T("common.ok"), i18n.T("common.cancel"))
	case exportFile:
		start, end := m.Range()
		body = lipgloss.JoinVertical(lipgloss.Left,
			i18n.T("export.range", start.Format("2006-01-02"), end.Format("2006-01-02")),
			"",
			i18n.T("export.file"),
			m.file.View(),
			"",
			helpStyle.Render(i18n.T("export.file_help")),
		)
	case exportDone:
		r := m.result
		if r.err != nil {
			body = renderResultBlock("", nil, r.err)
		} else {
			body = renderResultBlock(successStyle.Render(i18n.T("export.done", r.n, r.path)), nil, nil)
		}
		body += "\n\n" + helpStyle.Render(i18n.T("common.any_key"))
	}
	if m.err != nil {
		body += "\n" + errorStyle.Render(m.err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}
