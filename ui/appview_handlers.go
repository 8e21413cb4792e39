package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/config"
	appmodel "cortexchat/model"
)

// handleKey routes a key press to the topmost modal, or to the chat view.
func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// A halted session only accepts quitting
	if a.dataModel.Halted {
		switch key {
		case "ctrl+c", "enter", "esc", a.keys.GetActionKey("quit"):
			return a.quit()
		}
		return a, nil
	}

	if key == "ctrl+c" {
		return a.quit()
	}

	switch {
	case a.showAcknowledgeModal:
		if key == "enter" || key == "esc" {
			a.showAcknowledgeModal = false
		}
		return a, nil
	case a.showHelp:
		if key == "esc" || key == "q" || key == a.keys.GetActionKey("help") {
			a.showHelp = false
		}
		return a, nil
	case a.showModelSelector:
		return a.handleModelSelectorUpdate(msg)
	case a.showSessionManager:
		return a.handleSessionManagerUpdate(msg)
	case a.showGlobalSearch:
		return a.handleGlobalSearchUpdate(msg)
	case a.showMessageSearch:
		return a.handleMessageSearchUpdate(msg)
	}

	a.flash = ""
	return a.handleChatKey(msg)
}

func (a AppView) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := a.keys
	session := a.dataModel.Session

	switch msg.String() {
	case "enter":
		return a.submit()

	case keys.GetActionKey("quit"):
		return a.quit()

	case keys.GetActionKey("help"):
		a.showHelp = true
		return a, nil

	case keys.GetActionKey("new_conversation"):
		if session.Busy() {
			// the running turn's completion is dropped by the generation check
			config.Log.Debug().Msg("new conversation while a turn is running")
		}
		cmd := a.dataModel.SaveCurrentSession()
		a.dataModel.NewConversation()
		a.textarea.Reset()
		a.updateViewportContent(true)
		a.flash = "Started a new conversation"
		return a, cmd

	case keys.GetActionKey("toggle_debug"):
		cmd := a.dataModel.ToggleDebug()
		a.updateViewportContent(false)
		return a, cmd

	case keys.GetActionKey("toggle_mode"):
		next := config.ModeAgent
		if session.Settings.Mode == config.ModeAgent {
			next = config.ModeHeuristic
		}
		return a, a.dataModel.SelectMode(next)

	case keys.GetActionKey("toggle_threads"):
		return a, a.dataModel.ToggleThreads()

	case keys.GetActionKey("model_selector"):
		a.openModelSelector()
		return a, nil

	case keys.GetActionKey("toggle_sidebar"):
		a.showSidebar = !a.showSidebar
		a.layout()
		a.updateViewportContent(false)
		return a, a.renderAllMarkdown()

	case keys.GetActionKey("session_manager"):
		a.showSessionManager = true
		a.selectedSessionIdx = 0
		a.sessionStatus = ""
		a.textarea.Blur()
		return a, a.dataModel.FetchSessionList()

	case keys.GetActionKey("search_messages"):
		a.showMessageSearch = true
		a.messageSearchInput.SetValue("")
		a.messageSearchResults = nil
		a.selectedSearchIdx = 0
		a.textarea.Blur()
		a.messageSearchInput.Focus()
		return a, nil

	case keys.GetActionKey("search_all_sessions"):
		if a.dataModel.SearchIndex == nil {
			a.flash = "Search index unavailable"
			return a, nil
		}
		a.showGlobalSearch = true
		a.globalSearchInput.SetValue("")
		a.globalSearchResults = nil
		a.selectedGlobalIdx = 0
		a.textarea.Blur()
		a.globalSearchInput.Focus()
		return a, nil

	case keys.GetActionKey("run_report"):
		idx := a.dataModel.LastSQLIndex()
		if idx < 0 {
			a.flash = "No generated SQL to run"
			return a, nil
		}
		a.flash = "Running report..."
		return a, a.dataModel.RunReportCmd(idx)

	case keys.GetActionKey("copy_sql"):
		idx := a.dataModel.LastSQLIndex()
		if idx < 0 {
			a.flash = "No generated SQL to copy"
			return a, nil
		}
		return a, copyCmd("SQL", session.Messages[idx].SQL)

	case keys.GetActionKey("yank_last_response"):
		for i := len(session.Messages) - 1; i >= 0; i-- {
			if session.Messages[i].Role == appmodel.RoleAssistant {
				return a, copyCmd("last response", session.Messages[i].Content)
			}
		}
		a.flash = "No response to copy"
		return a, nil

	case keys.GetActionKey("yank_conversation"):
		if len(session.Messages) == 0 {
			a.flash = "Nothing to copy"
			return a, nil
		}
		return a, copyCmd("conversation", transcriptText(session.Messages))

	case keys.GetActionKey("clear_input"):
		a.textarea.Reset()
		return a, nil

	case keys.GetActionKey("scroll_down"):
		a.viewport.ScrollDown(1)
		return a, nil
	case keys.GetActionKey("scroll_up"):
		a.viewport.ScrollUp(1)
		return a, nil
	case keys.GetActionKey("half_page_down"):
		a.viewport.HalfPageDown()
		return a, nil
	case keys.GetActionKey("half_page_up"):
		a.viewport.HalfPageUp()
		return a, nil
	case keys.GetActionKey("page_down"), "pgdown":
		a.viewport.PageDown()
		return a, nil
	case keys.GetActionKey("page_up"), "pgup":
		a.viewport.PageUp()
		return a, nil
	case keys.GetActionKey("scroll_to_top"):
		a.viewport.GotoTop()
		return a, nil
	case keys.GetActionKey("scroll_to_bottom"):
		a.viewport.GotoBottom()
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) quit() (tea.Model, tea.Cmd) {
	a.dataModel.Quitting = true
	if cmd := a.dataModel.AutoSaveSession(); cmd != nil {
		// save synchronously; the program exits right after
		cmd()
	}
	return a, tea.Quit
}

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{What: what, Err: clipboard.WriteAll(text)}
	}
}

// transcriptText is the plain-text form of a conversation for the clipboard.
func transcriptText(messages []appmodel.Message) string {
	var b strings.Builder
	for _, m := range messages {
		role := "You"
		if m.Role == appmodel.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s [%s]:\n%s\n", role, m.Timestamp.Format("2006-01-02 15:04"), m.Content)
		if m.SQL != "" {
			fmt.Fprintf(&b, "\nSQL:\n%s\n", m.SQL)
		}
		for _, c := range m.Citations {
			fmt.Fprintf(&b, "[%s] %s\n", c.SourceID, c.DocTitle)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
