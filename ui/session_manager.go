package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"cortexchat/storage"
)

// filterSessions fuzzy-matches query against session names.
func filterSessions(sessions []storage.SessionMetadata, query string) []storage.SessionMetadata {
	if strings.TrimSpace(query) == "" {
		return sessions
	}
	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Name
	}
	matches := fuzzy.Find(query, names)
	out := make([]storage.SessionMetadata, len(matches))
	for i, m := range matches {
		out[i] = sessions[m.Index]
	}
	return out
}

func (a AppView) visibleSessions() []storage.SessionMetadata {
	if a.sessionFilterMode || a.sessionFilterInput.Value() != "" {
		return a.filteredSessionList
	}
	return a.sessionList
}

func (a AppView) selectedSession() (storage.SessionMetadata, bool) {
	list := a.visibleSessions()
	if a.selectedSessionIdx < 0 || a.selectedSessionIdx >= len(list) {
		return storage.SessionMetadata{}, false
	}
	return list[a.selectedSessionIdx], true
}

func (a AppView) handleSessionManagerUpdate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if a.confirmDeleteSession != nil {
		switch key {
		case "y", "Y":
			id := a.confirmDeleteSession.ID
			a.confirmDeleteSession = nil
			if id == a.dataModel.Session.ID && a.dataModel.Session.Busy() {
				a.showAcknowledge("Cannot Delete Session", "This session is waiting for an answer.\nTry again when it completes.", ModalTypeWarning)
				return a, nil
			}
			cmd := a.dataModel.DeleteSessionCmd(id)
			a.updateViewportContent(true)
			return a, cmd
		case "n", "N", "esc":
			a.confirmDeleteSession = nil
		}
		return a, nil
	}

	if a.exportCancelFunc != nil {
		if key == "esc" {
			a.exportCancelFunc()
			a.sessionStatus = "Cancelling export..."
		}
		return a, nil
	}

	if a.sessionRenameMode {
		return a.handleSessionRenameMode(msg)
	}
	if a.sessionImportMode {
		return a.handleSessionImportMode(msg)
	}
	if a.sessionFilterMode {
		return a.handleSessionFilterMode(msg)
	}

	keys := a.keys
	switch key {
	case "esc", keys.GetActionKey("session_manager"):
		a.sessionFilterInput.SetValue("")
		a.closeAllModals()
		return a, nil

	case "down", keys.GetActionKey("list_down"):
		if a.selectedSessionIdx < len(a.visibleSessions())-1 {
			a.selectedSessionIdx++
		}
		return a, nil

	case "up", keys.GetActionKey("list_up"):
		if a.selectedSessionIdx > 0 {
			a.selectedSessionIdx--
		}
		return a, nil

	case "/":
		a.sessionFilterMode = true
		a.sessionFilterInput.SetValue("")
		a.filteredSessionList = a.sessionList
		a.selectedSessionIdx = 0
		a.sessionFilterInput.Focus()
		return a, nil

	case "enter":
		return a.loadSelectedSession()

	case "r":
		s, ok := a.selectedSession()
		if !ok {
			return a, nil
		}
		a.sessionRenameMode = true
		a.sessionRenameInput.SetValue(s.Name)
		a.sessionRenameInput.CursorEnd()
		a.sessionRenameInput.Focus()
		return a, nil

	case "d":
		if s, ok := a.selectedSession(); ok {
			a.confirmDeleteSession = &s
		}
		return a, nil

	case "x":
		s, ok := a.selectedSession()
		if !ok {
			return a, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		a.exportCancelFunc = cancel
		a.sessionStatus = ""
		return a, tea.Batch(
			a.dataModel.ExportSessionCmd(ctx, s.ID, storage.GenerateExportPath(s.Name)),
			a.spinner.Tick,
		)

	case "i":
		a.sessionImportMode = true
		a.sessionImportInput.SetValue("")
		a.sessionImportInput.Focus()
		return a, nil
	}
	return a, nil
}

func (a AppView) loadSelectedSession() (tea.Model, tea.Cmd) {
	s, ok := a.selectedSession()
	if !ok {
		return a, nil
	}
	if a.dataModel.Session.Busy() {
		a.showAcknowledge("Question In Progress", "Wait for the current answer before switching sessions.", ModalTypeWarning)
		return a, nil
	}
	if s.ID == a.dataModel.Session.ID {
		a.closeAllModals()
		return a, nil
	}
	return a, tea.Batch(a.dataModel.SaveCurrentSession(), a.dataModel.LoadSession(s.ID))
}

func (a AppView) handleSessionFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.sessionFilterMode = false
		a.sessionFilterInput.Blur()
		a.sessionFilterInput.SetValue("")
		a.selectedSessionIdx = 0
		return a, nil
	case "enter":
		a.sessionFilterMode = false
		a.sessionFilterInput.Blur()
		return a.loadSelectedSession()
	case "down", a.keys.GetActionKey("list_down_filtered"):
		if a.selectedSessionIdx < len(a.filteredSessionList)-1 {
			a.selectedSessionIdx++
		}
		return a, nil
	case "up", a.keys.GetActionKey("list_up_filtered"):
		if a.selectedSessionIdx > 0 {
			a.selectedSessionIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.sessionFilterInput, cmd = a.sessionFilterInput.Update(msg)
	a.filteredSessionList = filterSessions(a.sessionList, a.sessionFilterInput.Value())
	if a.selectedSessionIdx >= len(a.filteredSessionList) {
		a.selectedSessionIdx = max(len(a.filteredSessionList)-1, 0)
	}
	return a, cmd
}

func (a AppView) handleSessionRenameMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.sessionRenameMode = false
		a.sessionRenameInput.Blur()
		return a, nil

	case "enter":
		newName := strings.TrimSpace(a.sessionRenameInput.Value())
		s, ok := a.selectedSession()
		if newName == "" || !ok {
			return a, nil
		}
		a.sessionRenameMode = false
		a.sessionRenameInput.Blur()
		return a, a.dataModel.RenameSessionCmd(s.ID, newName)

	case a.keys.GetActionKey("clear_input"):
		a.sessionRenameInput.SetValue("")
		return a, nil
	}

	var cmd tea.Cmd
	a.sessionRenameInput, cmd = a.sessionRenameInput.Update(msg)
	return a, cmd
}

func (a AppView) handleSessionImportMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.sessionImportMode = false
		a.sessionImportInput.Blur()
		return a, nil

	case "enter":
		path := strings.TrimSpace(a.sessionImportInput.Value())
		if path == "" {
			return a, nil
		}
		a.sessionImportMode = false
		a.sessionImportInput.Blur()
		a.sessionStatus = "Importing " + path + "..."
		return a, a.dataModel.ImportSessionCmd(context.Background(), path)

	case a.keys.GetActionKey("clear_input"):
		a.sessionImportInput.SetValue("")
		return a, nil
	}

	var cmd tea.Cmd
	a.sessionImportInput, cmd = a.sessionImportInput.Update(msg)
	return a, cmd
}

func (a AppView) renderSessionManager() string {
	width, height := a.width, a.height

	if a.confirmDeleteSession != nil {
		warning := lipgloss.NewStyle().Foreground(dangerColor).Render("This action cannot be undone.")
		return RenderConfirmationModal("Delete Session",
			fmt.Sprintf("Are you sure you want to delete:\n\n\"%s\"\n\n%s", a.confirmDeleteSession.Name, warning),
			width, height)
	}

	if a.exportCancelFunc != nil {
		return renderSpinner("Exporting session... (Esc to cancel)", a.spinner.View(), width, height)
	}

	modalWidth := modalWidthFor(100, width)
	sessions := a.visibleSessions()

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Session Manager")

	var header string
	switch {
	case a.sessionFilterMode:
		header = a.sessionFilterInput.View()
	case a.sessionImportMode:
		header = a.sessionImportInput.View()
	case len(sessions) != len(a.sessionList):
		header = fmt.Sprintf("%d of %d sessions", len(sessions), len(a.sessionList))
	default:
		header = fmt.Sprintf("%d sessions", len(a.sessionList))
	}
	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	var lines []string
	if len(sessions) == 0 {
		empty := "No sessions yet. Ask a question to create one!"
		if a.sessionFilterMode {
			empty = "No matches found"
		}
		lines = append(lines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(empty))
	}

	start, end := visibleRange(len(sessions), a.selectedSessionIdx, height-14)
	for i := start; i < end; i++ {
		lines = append(lines, a.sessionLine(sessions[i], i == a.selectedSessionIdx, modalWidth))
	}

	blank := strings.Repeat(" ", modalWidth)
	lines = append([]string{blank}, lines...)
	lines = append(lines, blank)
	if a.sessionStatus != "" {
		lines = append(lines, lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center).Render(StatusStyle.Render(a.sessionStatus)))
	}

	var footer string
	switch {
	case a.sessionRenameMode:
		footer = FormatFooter(a.keys.DisplayActionKey("clear_input"), "Clear", "Enter", "Save", "Esc", "Cancel")
	case a.sessionImportMode:
		footer = FormatFooter("Enter", "Import", "Esc", "Cancel")
	case a.sessionFilterMode:
		footer = FormatFooter("Type", "to filter", "↑/↓", "Navigate", "Enter", "Load", "Esc", "Cancel")
	default:
		footer = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Load", "r", "Rename", "x", "Export", "i", "Import", "d", "Delete", "Esc", "Close")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	sections := append([]string{titleSection, headerSection}, lines...)
	sections = append(sections, footerSection)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}

func (a AppView) sessionLine(s storage.SessionMetadata, selected bool, modalWidth int) string {
	current := s.ID != "" && s.ID == a.dataModel.Session.ID

	indicator := "  "
	if selected {
		indicator = "▶ "
	}

	msgCount := fmt.Sprintf("%d msgs", s.MessageCount)
	if s.MessageCount == 1 {
		msgCount = "1 msg"
	}
	thread := " "
	if s.Threaded {
		thread = "t"
	}
	right := fmt.Sprintf("%s  %-9s %s  %8s", msgCount, s.Mode, thread, formatTimeAgo(s.UpdatedAt))

	name := s.Name
	if selected && a.sessionRenameMode {
		name = a.sessionRenameInput.View()
	} else {
		name = truncateWidth(name, modalWidth-runewidth.StringWidth(right)-18)
	}
	if current && !a.sessionRenameMode {
		name += " (current)"
	}

	left := indicator + name
	spacing := modalWidth - 4 - lipgloss.Width(left) - runewidth.StringWidth(right)
	if spacing < 2 {
		spacing = 2
	}
	line := "  " + left + strings.Repeat(" ", spacing) + right

	switch {
	case selected:
		line = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(line)
	case current:
		line = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(line)
	}
	return lipgloss.NewStyle().Width(modalWidth).Render(line)
}

// formatTimeAgo formats a time as a relative string (e.g., "2h ago", "3d ago")
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	default:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/24/30))
	}
}
