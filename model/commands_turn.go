package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/config"
)

// ErrHalted is returned for input after a fatal provisioning failure.
var ErrHalted = errors.New("session halted, fix the agent configuration and restart")

// AskCmd starts a turn for question. The turn runs as one tea.Cmd and reports
// back with a single TurnCompleteMsg; the session refuses further input until
// that message is handled.
func (m *Model) AskCmd(question string) (tea.Cmd, error) {
	if m.Halted {
		return nil, ErrHalted
	}
	if m.Assistant == nil {
		return nil, fmt.Errorf("assistant not initialized")
	}

	turn, err := m.Session.Begin(question)
	if err != nil {
		return nil, err
	}
	m.SessionDirty = true

	asker := m.Assistant
	timeout := m.TurnTimeout
	generation := m.Session.Generation()
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		ans, err := asker.Ask(ctx, turn)
		return TurnCompleteMsg{Answer: ans, Err: err, Generation: generation}
	}, nil
}

// HandleTurnComplete applies a finished turn to the session. It reports
// false for a turn that belonged to a conversation since reset.
func (m *Model) HandleTurnComplete(msg TurnCompleteMsg) bool {
	if msg.Generation != m.Session.Generation() {
		config.Log.Debug().Msg("dropping result of abandoned turn")
		return false
	}
	if msg.Err != nil {
		config.Log.Error().Err(msg.Err).Msg("turn failed")
	}
	m.Session.Complete(msg.Answer, msg.Err)
	return true
}

// RunReportCmd executes the SQL of the assistant message at index.
func (m *Model) RunReportCmd(index int) tea.Cmd {
	if index < 0 || index >= len(m.Session.Messages) {
		return nil
	}
	sql := m.Session.Messages[index].SQL
	if sql == "" || m.Assistant == nil {
		return nil
	}

	asker := m.Assistant
	timeout := m.TurnTimeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		report, err := asker.RunReport(ctx, sql)
		return ReportMsg{MessageIndex: index, Report: report, Err: err}
	}
}

// HandleReport stores a report on the message it was run for.
func (m *Model) HandleReport(msg ReportMsg) {
	if msg.MessageIndex < 0 || msg.MessageIndex >= len(m.Session.Messages) {
		return
	}
	target := &m.Session.Messages[msg.MessageIndex]
	target.Report = msg.Report
	target.ReportErr = msg.Err
}

// LastSQLIndex returns the index of the newest message carrying SQL, or -1.
func (m *Model) LastSQLIndex() int {
	for i := len(m.Session.Messages) - 1; i >= 0; i-- {
		if m.Session.Messages[i].SQL != "" {
			return i
		}
	}
	return -1
}

// ProvisionCmd makes sure the preconfigured agent exists. Only meaningful in
// agent mode.
func (m *Model) ProvisionCmd() tea.Cmd {
	if m.Assistant == nil {
		return nil
	}
	asker := m.Assistant
	timeout := m.TurnTimeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		created, err := asker.Provision(ctx)
		return ProvisionedMsg{Created: created, Err: err}
	}
}

// HandleProvisioned halts the session when provisioning failed.
func (m *Model) HandleProvisioned(msg ProvisionedMsg) {
	if msg.Err != nil {
		m.Halt(msg.Err)
		return
	}
	if msg.Created {
		config.Log.Info().Msg("agent created")
	}
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}
