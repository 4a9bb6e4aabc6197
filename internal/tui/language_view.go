package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/logging"
)

// languageModel holds the state for the language selection menu.
type languageModel struct {
	choices []string
	cursor  int
	save    func(lang string) error
}

func newLanguageModel(save func(string) error) *languageModel {
	m := &languageModel{choices: i18n.Languages(), save: save}
	for i, c := range m.choices {
		if c == i18n.Lang() {
			m.cursor = i
		}
	}
	return m
}

func (m *languageModel) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch keyMsg.String() {
	case "q", "esc":
		return back
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.choices) == 0 {
			return back
		}
		lang := m.choices[m.cursor]
		i18n.SetLang(lang)
		if m.save != nil {
			if err := m.save(lang); err != nil {
				logging.Warnf("could not save language: %v", err)
			}
		}
		return func() tea.Msg { return languageChangedMsg{} }
	}
	return nil
}

func (m *languageModel) View() string {
	items := []string{titleStyle.Render("🌐 " + i18n.T("language.select"))}
	for i, code := range m.choices {
		name := i18n.T("language.name." + code)
		if i == m.cursor {
			items = append(items, selectedItemStyle.Render("▸ "+name))
		} else {
			items = append(items, itemStyle.Render("  "+name))
		}
	}
	items = append(items, "", helpStyle.Render(i18n.T("language.help")))
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}
