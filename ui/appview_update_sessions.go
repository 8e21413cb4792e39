package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/config"
)

// handleSessionMessage handles session-related messages
func (a AppView) handleSessionMessage(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsListMsg:
		if msg.Err != nil {
			a.sessionStatus = "Failed to list sessions: " + msg.Err.Error()
			return a, nil
		}
		a.sessionList = msg.Sessions
		a.filteredSessionList = filterSessions(a.sessionList, a.sessionFilterInput.Value())
		if a.selectedSessionIdx >= len(a.visibleSessions()) {
			a.selectedSessionIdx = max(len(a.visibleSessions())-1, 0)
		}
		return a, nil

	case sessionLoadedMsg:
		if msg.Err != nil {
			config.Log.Error().Err(msg.Err).Msg("failed to load session")
			a.showAcknowledge("Session Not Loaded", msg.Err.Error(), ModalTypeError)
			return a, nil
		}
		if err := a.dataModel.ApplyLoadedSession(msg.Session); err != nil {
			a.showAcknowledge("Session Not Loaded", err.Error(), ModalTypeWarning)
			return a, nil
		}

		a.closeAllModals()
		a.sessionFilterInput.SetValue("")
		a.textarea.Reset()
		a.flash = "Loaded " + msg.Session.Name

		cmds := []tea.Cmd{a.renderAllMarkdown()}
		if a.pendingScrollIdx >= 0 && a.pendingScrollSessionID == msg.Session.ID {
			a.highlightedMessageIdx = a.pendingScrollIdx
			a.highlightFlashCount = 1
			a.updateViewportContent(false)
			a.scrollToMessage(a.pendingScrollIdx)
			cmds = append(cmds, flashTick())
		} else {
			a.updateViewportContent(true)
		}
		a.pendingScrollIdx = -1
		a.pendingScrollSessionID = ""
		return a, tea.Batch(cmds...)

	case sessionSavedMsg:
		if msg.Err != nil {
			config.Log.Error().Err(msg.Err).Msg("failed to save session")
			a.flash = "Save failed: " + msg.Err.Error()
		}
		return a, nil

	case sessionRenamedMsg:
		if msg.Err != nil {
			a.sessionStatus = "Rename failed: " + msg.Err.Error()
		}
		return a, nil

	case sessionDeletedMsg:
		if msg.Err != nil {
			a.sessionStatus = "Delete failed: " + msg.Err.Error()
			return a, nil
		}
		a.sessionStatus = "Session deleted"
		return a, a.dataModel.FetchSessionList()

	case sessionExportedMsg:
		if a.exportCancelFunc != nil {
			a.exportCancelFunc()
		}
		switch {
		case msg.Cancelled:
			a.sessionStatus = "Export cancelled"
			return a, tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
				return exportCleanupDoneMsg{}
			})
		case msg.Err != nil:
			a.sessionStatus = "Export failed: " + msg.Err.Error()
		default:
			a.sessionStatus = "Exported to " + msg.Path
		}
		a.exportCancelFunc = nil
		return a, nil

	case exportCleanupDoneMsg:
		a.exportCancelFunc = nil
		return a, nil

	case sessionImportedMsg:
		switch {
		case msg.Cancelled:
			a.sessionStatus = "Import cancelled"
		case msg.Err != nil:
			a.sessionStatus = "Import failed: " + msg.Err.Error()
		default:
			a.sessionStatus = "Imported " + msg.Session.Name
			return a, a.dataModel.FetchSessionList()
		}
		return a, nil
	}
	return a, nil
}
