package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/assistant"
	"cortexchat/config"
	appmodel "cortexchat/model"
)

// flashCycles is how many on/off ticks a jumped-to message blinks.
const flashCycles = 6

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !a.dataModel.Session.Busy() && a.exportCancelFunc == nil {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		if a.dataModel.Session.Busy() {
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.ready = true
		a.updateViewportContent(true)
		return a, a.renderAllMarkdown()

	case tea.KeyMsg:
		return a.handleKey(msg)

	case turnCompleteMsg:
		if !a.dataModel.HandleTurnComplete(msg) {
			return a, nil
		}
		session := a.dataModel.Session
		last := len(session.Messages) - 1
		if last >= 0 && !session.Messages[last].IsError {
			cmds = append(cmds, a.renderMarkdownAsync(last, session.Messages[last].Content))
		}
		session.Ready()
		a.updateViewportContent(true)
		cmds = append(cmds, a.dataModel.AutoSaveSession())
		return a, tea.Batch(cmds...)

	case markdownRenderedMsg:
		messages := a.dataModel.Session.Messages
		if msg.MessageIndex >= 0 && msg.MessageIndex < len(messages) {
			messages[msg.MessageIndex].Rendered = msg.Rendered
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, nil

	case reportMsg:
		a.dataModel.HandleReport(msg)
		if msg.Err != nil {
			a.flash = "Report failed: " + msg.Err.Error()
		}
		a.updateViewportContent(true)
		return a, nil

	case provisionedMsg:
		a.dataModel.HandleProvisioned(msg)
		if msg.Err == nil && msg.Created {
			a.flash = "Agent created"
		}
		return a, nil

	case pingProviderMsg:
		switch {
		case msg.Valid && msg.ModelMissing:
			a.splitterStatus = "model not listed"
			config.Log.Warn().Str("provider", msg.ProviderID).Str("model", msg.Model).Msg("splitter model not offered by provider")
		case msg.Valid:
			a.splitterStatus = "ok"
		default:
			a.splitterStatus = "unreachable"
			config.Log.Warn().Err(msg.Err).Str("provider", msg.ProviderID).Msg("splitter provider unreachable")
		}
		return a, nil

	case preferenceSavedMsg:
		if msg.Err != nil {
			a.flash = fmt.Sprintf("Could not save %s: %v", msg.Field, msg.Err)
		}
		return a, nil

	case clipboardMsg:
		if msg.Err != nil {
			a.flash = "Clipboard error: " + msg.Err.Error()
		} else {
			a.flash = "Copied " + msg.What
		}
		return a, nil

	case searchResultsMsg:
		if msg.Query != a.globalSearchInput.Value() {
			return a, nil
		}
		if msg.Err != nil {
			a.flash = "Search failed: " + msg.Err.Error()
			return a, nil
		}
		a.globalSearchResults = msg.Results
		a.selectedGlobalIdx = 0
		return a, nil

	case flashTickMsg:
		if a.highlightedMessageIdx < 0 {
			return a, nil
		}
		a.highlightFlashCount++
		if a.highlightFlashCount > flashCycles {
			a.highlightedMessageIdx = -1
			a.highlightFlashCount = 0
			a.updateViewportContent(false)
			return a, nil
		}
		a.updateViewportContent(false)
		return a, flashTick()

	case sessionsListMsg, sessionLoadedMsg, sessionSavedMsg, sessionRenamedMsg,
		sessionDeletedMsg, sessionExportedMsg, sessionImportedMsg, exportCleanupDoneMsg:
		return a.handleSessionMessage(msg)
	}

	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// layout sizes the viewport and input for the window and sidebar state.
// Title, blank line, textarea and status bar take 6 lines.
func (a *AppView) layout() {
	w := a.contentWidth()
	a.viewport.Width = w
	a.viewport.Height = a.height - 6
	if a.viewport.Height < 3 {
		a.viewport.Height = 3
	}
	a.textarea.SetWidth(w)
}

func flashTick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return flashTickMsg{}
	})
}

func (a AppView) submit() (tea.Model, tea.Cmd) {
	question := a.textarea.Value()
	cmd, err := a.dataModel.AskCmd(question)
	if err != nil {
		switch {
		case errors.Is(err, appmodel.ErrBusy):
			a.flash = "Still working on the previous question"
		case errors.Is(err, appmodel.ErrHalted):
			a.flash = "The agent is unavailable"
		case errors.Is(err, assistant.ErrEmptyQuestion):
		default:
			a.flash = err.Error()
		}
		return a, nil
	}

	a.textarea.Reset()
	a.updateViewportContent(true)
	return a, tea.Batch(cmd, a.spinner.Tick)
}
