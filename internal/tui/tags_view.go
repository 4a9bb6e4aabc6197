package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/service"
	"github.com/toeirei/keyfob/internal/tui/frame"
)

type tagToggledMsg struct{ err error }

// tagsModel lists registered tags and toggles their active flag. With the
// mock reader it can also simulate a tap of the selected tag.
type tagsModel struct {
	table   table.Model
	rows    []service.TagRow
	svc     *service.Tags
	mock    *reader.Mock
	confirm *frame.Dialog
	pending *service.TagRow
	notice  string
}

func newTagsModel(svc *service.Tags, mock *reader.Mock) *tagsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: i18n.T("tags.header.kind"), Width: 10},
			{Title: i18n.T("tags.header.label"), Width: 28},
			{Title: i18n.T("tags.header.uid"), Width: 16},
			{Title: i18n.T("tags.header.active"), Width: 8},
			{Title: i18n.T("tags.header.registered"), Width: 17},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())
	return &tagsModel{table: t, svc: svc, mock: mock}
}

func (m *tagsModel) setSize(width, height int) {
	if height < 5 {
		height = 5
	}
	m.table.SetHeight(height)
	m.table.SetWidth(width - 4)
}

func (m *tagsModel) setRows(rows []service.TagRow) {
	m.rows = rows
	var out []table.Row
	for _, r := range rows {
		label := r.Label
		active := i18n.T("common.yes")
		if !r.Active {
			label = inactiveItemStyle.Render(label)
			active = i18n.T("common.no")
		}
		out = append(out, table.Row{
			i18n.T("kind." + string(r.Kind)),
			label,
			fmt.Sprintf("%X", r.UID),
			active,
			r.RegisteredAt.Local().Format("2006-01-02 15:04"),
		})
	}
	m.table.SetRows(out)
}

func (m *tagsModel) selected() *service.TagRow {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return nil
	}
	r := m.rows[i]
	return &r
}

func (m *tagsModel) toggleCmd(row service.TagRow) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return tagToggledMsg{err: svc.SetActive(context.Background(), row.UID, !row.Active)}
	}
}

func (m *tagsModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tagToggledMsg:
		if msg.err != nil {
			return func() tea.Msg { return errMsg{err: msg.err} }
		}
		return loadTagsCmd(m.svc)

	case tea.KeyMsg:
		if m.confirm != nil {
			switch msg.String() {
			case "left", "right", "tab", "h", "l":
				m.confirm.Toggle()
			case "esc":
				m.confirm, m.pending = nil, nil
			case "enter":
				yes := !m.confirm.IsFocusedRight()
				row := m.pending
				m.confirm, m.pending = nil, nil
				if yes && row != nil {
					return m.toggleCmd(*row)
				}
			}
			return nil
		}

		switch msg.String() {
		case "q", "esc":
			return func() tea.Msg { return backToMainMsg{} }
		case "enter", " ":
			row := m.selected()
			if row == nil || m.svc == nil {
				return nil
			}
			if !row.Active {
				return m.toggleCmd(*row)
			}
			m.pending = row
			m.confirm = frame.NewDialog(
				i18n.T("tags.deactivate_title"),
				i18n.T("tags.deactivate_confirm", row.Label),
				i18n.T("common.yes"), i18n.T("common.no"))
			return nil
		case "t":
			row := m.selected()
			if row == nil || m.mock == nil {
				return nil
			}
			if m.mock.SetNext(row.UID, row.ContentUUID) {
				m.notice = i18n.T("mock.queued", row.Label)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *tagsModel) View() string {
	title := titleStyle.Render("🏷  " + i18n.T("tags.title"))
	if m.confirm != nil {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.confirm.Render())
	}

	body := helpStyle.Render(i18n.T("tags.empty"))
	if len(m.rows) > 0 {
		body = m.table.View()
	}
	help := i18n.T("tags.help")
	if m.mock != nil {
		help = i18n.T("tags.help_mock")
	}
	parts := []string{title, body, ""}
	if m.notice != "" {
		parts = append(parts, successStyle.Render(m.notice))
	}
	parts = append(parts, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
