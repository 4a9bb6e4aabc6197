// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui provides the terminal user interface for keyfob.
// This file, tui.go, holds the top-level model that shows the live session
// state and routes to the sub-views.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/engine"
	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/listener"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/service"
	"github.com/toeirei/keyfob/internal/tui/frame"
)

const (
	// tapBannerFor is how long the last tap result stays on screen.
	tapBannerFor = 5 * time.Second
	// logRefreshEvery is the polling interval of the log table.
	logRefreshEvery = 3 * time.Second
)

// Deps are the services the TUI works with. Listener, Logs and Tags are
// required; Mock is set only when the mock reader is in use.
type Deps struct {
	Listener  *listener.Listener
	Logs      *service.Logs
	Tags      *service.Tags
	Registrar *service.Registrar
	Exporter  *service.Exporter
	Mock      *reader.Mock
	Clock     engine.Clock
	// SaveLanguage persists a language choice. Optional.
	SaveLanguage func(lang string) error
}

// viewState represents which part of the UI is currently active.
type viewState int

const (
	mainView viewState = iota
	registerView
	tagsView
	exportView
	mockView
	languageView
)

// tapResultMsg carries one listener event into the bubbletea loop.
type tapResultMsg struct {
	ev listener.Event
}

type tickMsg time.Time

type logsLoadedMsg struct {
	rows []model.LogRow
	err  error
}

type tagsLoadedMsg struct {
	rows []service.TagRow
	err  error
}

// backToMainMsg is sent by sub-views when they close.
type backToMainMsg struct{}

// errMsg opens the error dialog.
type errMsg struct{ err error }

type languageChangedMsg struct{}

// mainModel is the top-level model. It owns the live status and the log
// table and delegates to the active sub-view.
type mainModel struct {
	deps  Deps
	state viewState

	logs     *logsModel
	register *registerModel
	tags     *tagsModel
	export   *exportModel
	mock     *mockModel
	language *languageModel

	labels      map[uint64]string
	snapshot    engine.Snapshot
	lastTap     string
	lastTapKind tapKind
	lastTapAt   time.Time
	lastRefresh time.Time
	errDialog   *frame.Dialog

	width  int
	height int
}

func newMainModel(deps Deps) mainModel {
	if deps.Clock == nil {
		deps.Clock = engine.SystemClock{}
	}
	return mainModel{
		deps:   deps,
		state:  mainView,
		logs:   newLogsModel(deps.Clock.Now),
		labels: map[uint64]string{},
	}
}

// Init starts listening, ticking and the first loads.
func (m mainModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		tickCmd(),
		loadLogsCmd(m.deps.Logs),
		loadTagsCmd(m.deps.Tags),
	)
}

func (m mainModel) waitForEvent() tea.Cmd {
	if m.deps.Listener == nil {
		return nil
	}
	events := m.deps.Listener.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return tapResultMsg{ev: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func loadLogsCmd(logs *service.Logs) tea.Cmd {
	if logs == nil {
		return nil
	}
	return func() tea.Msg {
		rows, err := logs.List(context.Background(), db.LogFilter{Limit: 500})
		return logsLoadedMsg{rows: rows, err: err}
	}
}

func loadTagsCmd(tags *service.Tags) tea.Cmd {
	if tags == nil {
		return nil
	}
	return func() tea.Msg {
		rows, err := tags.List(context.Background())
		return tagsLoadedMsg{rows: rows, err: err}
	}
}

// label resolves a UID to its decrypted name, falling back to hex.
func (m mainModel) label(uid uint64) string {
	if l, ok := m.labels[uid]; ok {
		return l
	}
	return fmt.Sprintf("%X", uid)
}

// Update is the main message loop.
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.errDialog != nil {
			switch msg.String() {
			case "enter", "esc", "q", " ":
				m.errDialog = nil
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.logs.setSize(msg.Width, msg.Height-8)
		if m.tags != nil {
			m.tags.setSize(msg.Width, msg.Height-8)
		}
		return m, nil

	case tapResultMsg:
		m.applyEvent(msg.ev)
		cmds := []tea.Cmd{m.waitForEvent()}
		if r := msg.ev.Result; r != nil && r.Recorded() {
			cmds = append(cmds, loadLogsCmd(m.deps.Logs))
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		now := m.deps.Clock.Now()
		if m.deps.Listener != nil {
			m.snapshot = m.deps.Listener.Engine().State(now)
		}
		cmds := []tea.Cmd{tickCmd()}
		if now.Sub(m.lastRefresh) >= logRefreshEvery {
			m.lastRefresh = now
			cmds = append(cmds, loadLogsCmd(m.deps.Logs))
		}
		return m, tea.Batch(cmds...)

	case logsLoadedMsg:
		if msg.err != nil {
			return m.showError(msg.err), nil
		}
		m.logs.setRows(msg.rows)
		return m, nil

	case tagsLoadedMsg:
		if msg.err != nil {
			return m.showError(msg.err), nil
		}
		m.labels = make(map[uint64]string, len(msg.rows))
		for _, r := range msg.rows {
			m.labels[r.UID] = r.Label
		}
		if m.tags != nil {
			m.tags.setRows(msg.rows)
		}
		return m, nil

	case errMsg:
		return m.showError(msg.err), nil

	case backToMainMsg:
		m.state = mainView
		m.register, m.tags, m.export, m.mock, m.language = nil, nil, nil, nil, nil
		return m, tea.Batch(loadLogsCmd(m.deps.Logs), loadTagsCmd(m.deps.Tags))

	case languageChangedMsg:
		m.logs.relabel()
		m.state = mainView
		m.language = nil
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case registerView:
		cmd = m.register.Update(msg)
	case tagsView:
		cmd = m.tags.Update(msg)
	case exportView:
		cmd = m.export.Update(msg)
	case mockView:
		cmd = m.mock.Update(msg)
	case languageView:
		cmd = m.language.Update(msg)
	default:
		return m.updateMain(msg)
	}
	return m, cmd
}

func (m mainModel) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.logs.isFiltering {
		switch keyMsg.String() {
		case "q":
			return m, tea.Quit
		case "r":
			if m.deps.Registrar != nil && m.deps.Listener != nil {
				m.state = registerView
				m.register = newRegisterModel(m.registerFunc(), m.deps.Mock)
				return m, m.register.Init()
			}
		case "t":
			m.state = tagsView
			m.tags = newTagsModel(m.deps.Tags, m.deps.Mock)
			m.tags.setSize(m.width, m.height-8)
			return m, loadTagsCmd(m.deps.Tags)
		case "e":
			if m.deps.Exporter != nil {
				m.state = exportView
				m.export = newExportModel(m.deps.Clock.Now(), m.exportFunc())
				return m, m.export.Init()
			}
		case "m":
			if m.deps.Mock != nil {
				m.state = mockView
				m.mock = newMockModel(m.deps.Mock)
				return m, m.mock.Init()
			}
		case "L":
			m.state = languageView
			m.language = newLanguageModel(m.deps.SaveLanguage)
			return m, nil
		}
	}
	return m, m.logs.Update(msg)
}

func (m mainModel) showError(err error) mainModel {
	d := frame.NewErrorDialog(i18n.T("common.error_title"), err.Error(), i18n.T("common.ok"))
	d.SetWidth(min(70, m.width-4))
	m.errDialog = d
	return m
}

// applyEvent turns a listener event into the tap banner.
func (m *mainModel) applyEvent(ev listener.Event) {
	switch {
	case ev.Result != nil:
		m.lastTap, m.lastTapKind = m.describe(*ev.Result)
	case ev.Expired:
		m.lastTap, m.lastTapKind = i18n.T("tap.expired"), tapWarn
	case ev.ReaderErr != nil:
		m.lastTap, m.lastTapKind = i18n.T("tap.reader_error", ev.ReaderErr.Error()), tapError
	default:
		return
	}
	m.lastTapAt = ev.At
	if m.deps.Listener != nil {
		m.snapshot = m.deps.Listener.Engine().State(m.deps.Clock.Now())
	}
}

type tapKind int

const (
	tapOk tapKind = iota
	tapWarn
	tapError
)

func (m mainModel) describe(r engine.Result) (string, tapKind) {
	return describeResult(r, m.label)
}

// Describe renders a tap result as one translated line. label resolves UIDs
// to display names.
func Describe(r engine.Result, label func(uid uint64) string) string {
	text, _ := describeResult(r, label)
	return text
}

func describeResult(r engine.Result, label func(uid uint64) string) (string, tapKind) {
	name := label(r.UID)
	switch r.Outcome {
	case engine.OutcomeSessionStarted:
		return i18n.T("tap.session_started", name, int(r.Remaining.Seconds())), tapOk
	case engine.OutcomeSessionCancelled:
		return i18n.T("tap.session_cancelled", name), tapOk
	case engine.OutcomeCheckedOut:
		return i18n.T("tap.checked_out", name, label(r.Employee)), tapOk
	case engine.OutcomeCheckedIn:
		return i18n.T("tap.checked_in", name), tapOk
	case engine.OutcomeTooSoon:
		return i18n.T("tap.too_soon", name, model.FormatElapsed(r.Remaining)), tapWarn
	case engine.OutcomeNoSession:
		return i18n.T("tap.no_session", name), tapWarn
	case engine.OutcomeUnregistered:
		return i18n.T("tap.unregistered", fmt.Sprintf("%X", r.UID)), tapWarn
	case engine.OutcomeInactive:
		return i18n.T("tap.inactive", name), tapWarn
	case engine.OutcomeTampered:
		return i18n.T("tap.tampered", fmt.Sprintf("%X", r.UID)), tapError
	case engine.OutcomeRejected:
		return i18n.T("tap.rejected", name), tapWarn
	default:
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		return i18n.T("tap.error", errText), tapError
	}
}

// View renders the header, the status area and the active view.
func (m mainModel) View() string {
	if m.errDialog != nil {
		return lipgloss.Place(max(m.width, 60), max(m.height, 12), lipgloss.Center, lipgloss.Center, m.errDialog.Render())
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		mainTitleStyle.Render("🔑 "+i18n.T("app.title")),
		m.statusLine(),
		m.tapBanner(),
	)

	var body string
	switch m.state {
	case registerView:
		body = m.register.View()
	case tagsView:
		body = m.tags.View()
	case exportView:
		body = m.export.View()
	case mockView:
		body = m.mock.View()
	case languageView:
		body = m.language.View()
	default:
		body = m.logs.View() + "\n" + m.mainFooter()
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

func (m mainModel) statusLine() string {
	s := m.snapshot
	switch s.Phase {
	case engine.PhaseAwaitingKey:
		return statusActiveStyle.Render(i18n.T("status.awaiting_key", m.label(s.Employee), int(s.Remaining.Seconds())))
	case engine.PhaseHoldingKeys:
		return statusActiveStyle.Render(i18n.T("status.holding", m.label(s.Employee), len(s.Keys), model.FormatElapsed(s.Remaining)))
	default:
		return statusIdleStyle.Render(i18n.T("status.idle"))
	}
}

func (m mainModel) tapBanner() string {
	if m.lastTap == "" || m.deps.Clock.Now().Sub(m.lastTapAt) > tapBannerFor {
		return ""
	}
	switch m.lastTapKind {
	case tapError:
		return tapErrorStyle.Render(m.lastTap)
	case tapWarn:
		return tapWarnStyle.Render(m.lastTap)
	default:
		return tapOkStyle.Render(m.lastTap)
	}
}

func (m mainModel) mainFooter() string {
	right := i18n.T("main.footer_keys")
	if m.deps.Mock != nil {
		right = i18n.T("main.footer_keys_mock")
	}
	return footerStyle.Render(frame.Footer(m.logs.footerStatus(), right, max(m.width-6, 40)))
}

func (m mainModel) registerFunc() registerFunc {
	l, reg := m.deps.Listener, m.deps.Registrar
	return func(ctx context.Context, req service.RegisterRequest) (*model.Tag, error) {
		var tag *model.Tag
		err := l.WithReader(func(rd reader.TagReader) error {
			t, err := reg.Register(ctx, req, rd)
			tag = t
			return err
		})
		if tag != nil {
			l.Suppress(tag.UID)
			// The reader was busy, so a session opened before may have run
			// out unseen. Start over from idle.
			l.Engine().Reset()
		}
		return tag, err
	}
}

func (m mainModel) exportFunc() exportFunc {
	x := m.deps.Exporter
	return func(path string, start, end time.Time, compress bool) (n int, err error) {
		f, err := os.Create(path)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		return x.WriteCSV(context.Background(), io.Writer(f), start, end, service.ExportOptions{Compress: compress})
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(newMainModel(deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
