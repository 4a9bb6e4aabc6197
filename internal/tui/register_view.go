// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/model"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/service"
)

// registerFunc enrolls the next tapped card.
type registerFunc func(ctx context.Context, req service.RegisterRequest) (*model.Tag, error)

type registerStep int

const (
	registerEditing registerStep = iota
	registerWaiting
	registerDone
)

type registeredMsg struct {
	tag *model.Tag
	err error
}

// registerModel asks for kind and label, then waits for the card. With the
// mock reader the card is tapped through mockTap, since the registration
// holds the reader and the mock panel cannot be opened meanwhile.
type registerModel struct {
	step     registerStep
	kind     model.TagKind
	label    textinput.Model
	register registerFunc
	cancel   context.CancelFunc
	tag      *model.Tag
	err      error

	mock       *reader.Mock
	mockTap    textinput.Model
	mockNotice string
	mockErr    error
}

func newRegisterModel(fn registerFunc, mock *reader.Mock) *registerModel {
	ti := textinput.New()
	ti.Placeholder = i18n.T("register.label_placeholder")
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	tap := textinput.New()
	tap.Placeholder = "A1B2C3D4[,content]"
	tap.CharLimit = 80
	tap.Width = 40
	return &registerModel{kind: model.KindEmployee, label: ti, register: fn, mock: mock, mockTap: tap}
}

func (m *registerModel) Init() tea.Cmd { return textinput.Blink }

func (m *registerModel) toggleKind() {
	if m.kind == model.KindEmployee {
		m.kind = model.KindKey
	} else {
		m.kind = model.KindEmployee
	}
}

func (m *registerModel) start() tea.Cmd {
	if strings.TrimSpace(m.label.Value()) == "" {
		m.err = service.ErrEmptyLabel
		return nil
	}
	m.err = nil
	m.step = registerWaiting
	if m.mock != nil {
		m.label.Blur()
		m.mockTap.Focus()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	req := service.RegisterRequest{Kind: m.kind, Label: m.label.Value()}
	fn := m.register
	return func() tea.Msg {
		defer cancel()
		tag, err := fn(ctx, req)
		return registeredMsg{tag: tag, err: err}
	}
}

func (m *registerModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case registeredMsg:
		m.step = registerDone
		m.tag, m.err = msg.tag, msg.err
		return nil
	case tea.KeyMsg:
		switch m.step {
		case registerWaiting:
			if msg.Type == tea.KeyEsc {
				if m.cancel != nil {
					m.cancel()
				}
				return nil
			}
			return m.updateMockTap(msg)
		case registerDone:
			return func() tea.Msg { return backToMainMsg{} }
		}
		switch msg.Type {
		case tea.KeyEsc:
			return func() tea.Msg { return backToMainMsg{} }
		case tea.KeyTab, tea.KeyShiftTab:
			m.toggleKind()
			return nil
		case tea.KeyEnter:
			return m.start()
		}
	}
	var cmd tea.Cmd
	m.label, cmd = m.label.Update(msg)
	return cmd
}

// updateMockTap edits the mock tap line and queues it on enter.
func (m *registerModel) updateMockTap(msg tea.KeyMsg) tea.Cmd {
	if m.mock == nil {
		return nil
	}
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.mockTap, cmd = m.mockTap.Update(msg)
		return cmd
	}
	uid, text, err := reader.ParseMockLine(m.mockTap.Value())
	if err != nil {
		m.mockErr, m.mockNotice = err, ""
		return nil
	}
	m.mockErr = nil
	if m.mock.SetNext(uid, text) {
		m.mockNotice = i18n.T("mock.queued_uid", uid)
	} else {
		m.mockNotice = i18n.T("mock.queue_full")
	}
	m.mockTap.SetValue("")
	return nil
}

func (m *registerModel) kindLabel(k model.TagKind) string {
	return i18n.T("kind." + string(k))
}

func (m *registerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🏷  "+i18n.T("register.title")) + "\n")

	switch m.step {
	case registerWaiting:
		b.WriteString(specialStyle.Render(i18n.T("register.tap_now", m.kindLabel(m.kind), m.label.Value())))
		if m.mock != nil {
			b.WriteString("\n\n" + i18n.T("mock.prompt") + "\n" + m.mockTap.View())
			if m.mockErr != nil {
				b.WriteString("\n" + errorStyle.Render(m.mockErr.Error()))
			} else if m.mockNotice != "" {
				b.WriteString("\n" + successStyle.Render(m.mockNotice))
			}
			b.WriteString("\n\n" + helpStyle.Render(i18n.T("register.waiting_help_mock")))
			return b.String()
		}
		b.WriteString("\n\n" + helpStyle.Render(i18n.T("register.waiting_help")))
		return b.String()
	case registerDone:
		if m.err != nil {
			msg := m.err
			if errors.Is(m.err, context.Canceled) {
				msg = errors.New(i18n.T("register.cancelled"))
			}
			b.WriteString(renderResultBlock("", nil, msg))
		} else {
			b.WriteString(renderResultBlock(
				successStyle.Render(i18n.T("register.done", m.kindLabel(m.tag.Kind), m.label.Value())),
				[]string{fmt.Sprintf("UID %X", m.tag.UID), i18n.T("register.content", m.tag.ContentUUID)},
				nil))
		}
		b.WriteString("\n\n" + helpStyle.Render(i18n.T("common.any_key")))
		return b.String()
	}

	for _, k := range []model.TagKind{model.KindEmployee, model.KindKey} {
		if k == m.kind {
			b.WriteString(selectedItemStyle.Render("▸ "+m.kindLabel(k)) + "  ")
		} else {
			b.WriteString(itemStyle.Render("  "+m.kindLabel(k)) + "  ")
		}
	}
	b.WriteString("\n\n" + m.label.View() + "\n")
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(i18n.T("register.help")))
	return b.String()
}
