package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cortexchat/config"
	appmodel "cortexchat/model"
	"cortexchat/storage"
)

const sidebarWidth = 34

type AppView struct {
	// Reference to core data model
	dataModel *appmodel.Model
	keys      *config.KeyBindingsConfig

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Window state
	width       int
	height      int
	ready       bool
	showSidebar bool

	showHelp bool

	// Model selector
	showModelSelector bool
	modelFilterInput  textinput.Model
	filteredModels    []string
	selectedModelIdx  int

	// Session management UI
	showSessionManager   bool
	sessionList          []storage.SessionMetadata
	filteredSessionList  []storage.SessionMetadata
	selectedSessionIdx   int
	sessionFilterMode    bool
	sessionFilterInput   textinput.Model
	sessionRenameMode    bool
	sessionRenameInput   textinput.Model
	sessionImportMode    bool
	sessionImportInput   textinput.Model
	confirmDeleteSession *storage.SessionMetadata
	exportCancelFunc     context.CancelFunc
	sessionStatus        string

	showMessageSearch    bool
	messageSearchInput   textinput.Model
	messageSearchResults []storage.MessageMatch
	selectedSearchIdx    int

	showGlobalSearch    bool
	globalSearchInput   textinput.Model
	globalSearchResults []storage.SessionMessageMatch
	selectedGlobalIdx   int
	// pendingScrollSessionID is set when a global hit lives in another session
	pendingScrollSessionID string
	pendingScrollIdx       int

	highlightedMessageIdx int
	highlightFlashCount   int

	// Acknowledge modal (for warnings/errors requiring only acknowledgement)
	showAcknowledgeModal  bool
	acknowledgeModalTitle string
	acknowledgeModalMsg   string
	acknowledgeModalType  ModalType

	// status line feedback, cleared on the next key
	flash string

	splitterStatus string
}

// NewAppView builds the root view around dataModel.
func NewAppView(dataModel *appmodel.Model) AppView {
	keys := dataModel.Config.Keybindings
	if keys == nil {
		keys = config.DefaultKeybindings()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about policies, documents or sales data..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter for newline, Enter sends
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(successColor)

	splitterStatus := "ok"
	if dataModel.CheckSplitterCmd() != nil {
		splitterStatus = "checking..."
	}

	return AppView{
		dataModel:             dataModel,
		keys:                  keys,
		textarea:              ta,
		viewport:              viewport.New(0, 0),
		spinner:               sp,
		showSidebar:           true,
		modelFilterInput:      newFilterInput("Filter: ", 64),
		sessionFilterInput:    newFilterInput("Filter: ", 64),
		sessionRenameInput:    newFilterInput("Name: ", 80),
		sessionImportInput:    newFilterInput("File: ", 256),
		messageSearchInput:    newFilterInput("Search: ", 100),
		globalSearchInput:     newFilterInput("Search all: ", 100),
		highlightedMessageIdx: -1,
		pendingScrollIdx:      -1,
		splitterStatus:        splitterStatus,
	}
}

func newFilterInput(prompt string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.CharLimit = limit
	return in
}

func (a AppView) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}

	if a.dataModel.Session.Settings.Mode == config.ModeAgent {
		cmds = append(cmds, a.dataModel.ProvisionCmd())
	}
	if cmd := a.dataModel.CheckSplitterCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading cortexchat..."
	}

	// Modal rendering order (top to bottom layers)
	if a.dataModel.Halted {
		return renderFatalModal(a.dataModel.HaltError, a.keys.DisplayActionKey("quit"), a.width, a.height)
	}

	if a.showAcknowledgeModal {
		return RenderAcknowledgeModal(a.acknowledgeModalTitle, a.acknowledgeModalMsg, a.acknowledgeModalType, a.width, a.height)
	}

	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}

	if a.showModelSelector {
		return renderModelSelector(a.filteredModels, a.selectedModelIdx, a.dataModel.Session.Settings.Model, a.modelFilterInput, len(a.dataModel.Models()), a.width, a.height)
	}

	if a.showSessionManager {
		return a.renderSessionManager()
	}

	if a.showGlobalSearch {
		return renderGlobalSearch(a.globalSearchInput, a.globalSearchResults, a.selectedGlobalIdx, a.width, a.height)
	}

	if a.showMessageSearch {
		return renderMessageSearch(a.messageSearchInput, a.messageSearchResults, a.selectedSearchIdx, a.width, a.height)
	}

	session := a.dataModel.Session
	sessionName := "New conversation"
	if session.Name != "" {
		sessionName = session.Name
	}
	title := AssistantStyle.Bold(true).Render("cortexchat") +
		TitleStyle.Render(" - "+session.Settings.Model) +
		UserStyle.Render(" - "+sessionName)
	if session.Busy() {
		title += " " + a.spinner.View() + DimStyle.Render(" thinking...")
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		a.textarea.View(),
	)
	if a.showSidebar {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, a.renderSidebar(a.viewport.Height+a.textarea.Height()))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		main,
		a.renderStatusBar(),
	)
}

func (a AppView) renderStatusBar() string {
	if a.flash != "" {
		return StatusStyle.Render(a.flash)
	}

	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	parts := []struct{ action, label string }{
		{"quit", "Quit"},
		{"new_conversation", "New"},
		{"session_manager", "Sessions"},
		{"model_selector", "Models"},
		{"run_report", "Report"},
		{"copy_sql", "Copy SQL"},
		{"help", "Help"},
	}
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%s %s  ", a.keys.DisplayActionKey(p.action), descStyle.Render(p.label))
	}
	b.WriteString("Enter " + descStyle.Render("Send"))
	return StatusStyle.Render(b.String())
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.showModelSelector = false
	a.showSessionManager = false
	a.showMessageSearch = false
	a.showGlobalSearch = false
	a.showAcknowledgeModal = false

	a.sessionFilterMode = false
	a.sessionRenameMode = false
	a.sessionImportMode = false
	a.confirmDeleteSession = nil

	a.modelFilterInput.Blur()
	a.sessionFilterInput.Blur()
	a.sessionRenameInput.Blur()
	a.sessionImportInput.Blur()
	a.messageSearchInput.Blur()
	a.globalSearchInput.Blur()
	a.textarea.Focus()
}

func (a *AppView) showAcknowledge(title, msg string, t ModalType) {
	a.showAcknowledgeModal = true
	a.acknowledgeModalTitle = title
	a.acknowledgeModalMsg = msg
	a.acknowledgeModalType = t
}

// UnlockCurrentDataDir releases the instance lock on exit.
func (a *AppView) UnlockCurrentDataDir() error {
	if a.dataModel == nil || a.dataModel.SessionStorage == nil {
		return nil
	}
	return a.dataModel.SessionStorage.UnlockInstance()
}
