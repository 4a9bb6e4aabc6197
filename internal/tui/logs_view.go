package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/service"
)

const (
	filterAll = iota
	filterKey
	filterEmployee
	filterColumns
)

// logsModel is the check-out table on the main screen.
type logsModel struct {
	table       table.Model
	allRows     []model.LogRow
	filter      string
	filterCol   int
	status      model.LogStatus // "" shows both
	isFiltering bool
	now         func() time.Time
}

func newLogsModel(now func() time.Time) *logsModel {
	if now == nil {
		now = time.Now
	}
	t := table.New(
		table.WithColumns(logColumns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())
	return &logsModel{table: t, now: now}
}

func logColumns() []table.Column {
	return []table.Column{
		{Title: i18n.T("logs.header.key"), Width: 22},
		{Title: i18n.T("logs.header.employee"), Width: 22},
		{Title: i18n.T("logs.header.checked_out"), Width: 17},
		{Title: i18n.T("logs.header.checked_in"), Width: 17},
		{Title: i18n.T("logs.header.status"), Width: 6},
		{Title: i18n.T("logs.header.elapsed"), Width: 9},
	}
}

// relabel re-reads the column titles after a language switch.
func (m *logsModel) relabel() {
	m.table.SetColumns(logColumns())
	m.rebuildTableRows()
}

func (m *logsModel) setSize(width, height int) {
	if height < 5 {
		height = 5
	}
	m.table.SetHeight(height)
	m.table.SetWidth(width - 4)
}

func (m *logsModel) setRows(rows []model.LogRow) {
	m.allRows = rows
	m.rebuildTableRows()
}

// visibleRows applies the status and text filters.
func (m *logsModel) visibleRows() []model.LogRow {
	q := service.LogQuery{Status: m.status}
	switch m.filterCol {
	case filterKey:
		q.Key = m.filter
	case filterEmployee:
		q.Employee = m.filter
	}
	rows := service.Filter(m.allRows, q)
	if m.filterCol != filterAll || m.filter == "" {
		return rows
	}
	needle := strings.ToLower(m.filter)
	out := rows[:0]
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.KeyLabel), needle) ||
			strings.Contains(strings.ToLower(r.EmployeeName), needle) {
			out = append(out, r)
		}
	}
	return out
}

// rebuildTableRows filters the master list of rows and populates the table.
func (m *logsModel) rebuildTableRows() {
	now := m.now()
	var rows []table.Row
	for _, r := range m.visibleRows() {
		in := ""
		if r.CheckedIn != nil {
			in = r.CheckedIn.Local().Format("2006-01-02 15:04")
		}
		status := string(r.Status())
		if r.Status() == model.StatusOut {
			status = specialStyle.Render(status)
		} else {
			status = successStyle.Render(status)
		}
		rows = append(rows, table.Row{
			r.KeyLabel,
			r.EmployeeName,
			r.CheckedOut.Local().Format("2006-01-02 15:04"),
			in,
			status,
			model.FormatElapsed(r.Elapsed(now)),
		})
	}
	m.table.SetRows(rows)
	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m *logsModel) cycleStatus() {
	switch m.status {
	case "":
		m.status = model.StatusOut
	case model.StatusOut:
		m.status = model.StatusIn
	default:
		m.status = ""
	}
	m.rebuildTableRows()
}

// Update handles filtering keys and table navigation.
func (m *logsModel) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.isFiltering {
			switch keyMsg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuildTableRows()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if len(m.filter) > 0 {
					r := []rune(m.filter)
					m.filter = string(r[:len(r)-1])
					m.rebuildTableRows()
				}
			case tea.KeyRunes, tea.KeySpace:
				m.filter += string(keyMsg.Runes)
				m.rebuildTableRows()
			case tea.KeyTab:
				m.filterCol = (m.filterCol + 1) % filterColumns
				m.rebuildTableRows()
			case tea.KeyShiftTab:
				m.filterCol = (m.filterCol + filterColumns - 1) % filterColumns
				m.rebuildTableRows()
			}
			return nil
		}

		switch keyMsg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return nil
		case "tab":
			m.filterCol = (m.filterCol + 1) % filterColumns
			m.rebuildTableRows()
			return nil
		case "s":
			m.cycleStatus()
			return nil
		case "esc":
			m.filter = ""
			m.rebuildTableRows()
			return nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *logsModel) View() string {
	if len(m.table.Rows()) == 0 {
		return helpStyle.Render(i18n.T("logs.empty"))
	}
	return m.table.View()
}

func (m *logsModel) footerStatus() string {
	colNames := []string{
		i18n.T("logs.column.all"),
		i18n.T("logs.header.key"),
		i18n.T("logs.header.employee"),
	}
	status := i18n.T("logs.status.all")
	if m.status != "" {
		status = string(m.status)
	}
	filter := getFilterStatusLine(m.isFiltering, m.filter, FilterI18nKeys{
		Filtering:    "logs.filtering",
		FilterActive: "logs.filter_active",
		FilterHint:   "logs.filter_hint",
	}, colNames[m.filterCol])
	return fmt.Sprintf("%s | %s", i18n.T("logs.status_filter", status), filter)
}
