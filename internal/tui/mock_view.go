package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/reader"
)

// mockModel feeds simulated taps into the mock reader.
type mockModel struct {
	input  textinput.Model
	mock   *reader.Mock
	notice string
	err    error
}

func newMockModel(mock *reader.Mock) *mockModel {
	ti := textinput.New()
	ti.Placeholder = "A1B2C3D4[,content]"
	ti.CharLimit = 80
	ti.Width = 50
	ti.Focus()
	return &mockModel{input: ti, mock: mock}
}

func (m *mockModel) Init() tea.Cmd { return textinput.Blink }

func (m *mockModel) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			return back
		case tea.KeyEnter:
			uid, text, err := reader.ParseMockLine(m.input.Value())
			if err != nil {
				m.err, m.notice = err, ""
				return nil
			}
			m.err = nil
			if m.mock.SetNext(uid, text) {
				m.notice = i18n.T("mock.queued_uid", uid)
			} else {
				m.notice = i18n.T("mock.queue_full")
			}
			m.input.SetValue("")
			return nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *mockModel) View() string {
	parts := []string{
		titleStyle.Render("🧪 " + i18n.T("mock.title")),
		i18n.T("mock.prompt"),
		m.input.View(),
		"",
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	} else if m.notice != "" {
		parts = append(parts, successStyle.Render(m.notice))
	}
	parts = append(parts, helpStyle.Render(i18n.T("mock.help")))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
