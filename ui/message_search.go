package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appmodel "cortexchat/model"
	"cortexchat/storage"
)

// linesPerResult is a worst-case estimate including wrapping.
const linesPerResult = 4

type searchResult struct {
	role    string
	label   string
	preview string
}

func (a AppView) handleMessageSearchUpdate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", a.keys.GetActionKey("search_messages"):
		a.closeAllModals()
		return a, nil
	case "up", a.keys.GetActionKey("list_up_filtered"):
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
		}
		return a, nil
	case "down", a.keys.GetActionKey("list_down_filtered"):
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
		}
		return a, nil
	case "enter":
		if a.selectedSearchIdx < 0 || a.selectedSearchIdx >= len(a.messageSearchResults) {
			return a, nil
		}
		idx := a.messageSearchResults[a.selectedSearchIdx].MessageIndex
		a.closeAllModals()
		a.highlightedMessageIdx = idx
		a.highlightFlashCount = 1
		a.updateViewportContent(false)
		a.scrollToMessage(idx)
		return a, flashTick()
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)
	a.messageSearchResults = a.dataModel.SearchCurrentSession(a.messageSearchInput.Value())
	a.selectedSearchIdx = 0
	return a, cmd
}

func (a AppView) handleGlobalSearchUpdate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", a.keys.GetActionKey("search_all_sessions"):
		a.closeAllModals()
		return a, nil
	case "up", a.keys.GetActionKey("list_up_filtered"):
		if a.selectedGlobalIdx > 0 {
			a.selectedGlobalIdx--
		}
		return a, nil
	case "down", a.keys.GetActionKey("list_down_filtered"):
		if a.selectedGlobalIdx < len(a.globalSearchResults)-1 {
			a.selectedGlobalIdx++
		}
		return a, nil
	case "enter":
		if a.selectedGlobalIdx < 0 || a.selectedGlobalIdx >= len(a.globalSearchResults) {
			return a, nil
		}
		match := a.globalSearchResults[a.selectedGlobalIdx]
		if match.SessionID == a.dataModel.Session.ID {
			a.closeAllModals()
			a.highlightedMessageIdx = match.MessageIndex
			a.highlightFlashCount = 1
			a.updateViewportContent(false)
			a.scrollToMessage(match.MessageIndex)
			return a, flashTick()
		}
		if a.dataModel.Session.Busy() {
			a.flash = "Wait for the current answer before switching sessions"
			return a, nil
		}
		a.pendingScrollSessionID = match.SessionID
		a.pendingScrollIdx = match.MessageIndex
		return a, tea.Batch(a.dataModel.SaveCurrentSession(), a.dataModel.LoadSession(match.SessionID))
	}

	var cmd tea.Cmd
	a.globalSearchInput, cmd = a.globalSearchInput.Update(msg)
	query := a.globalSearchInput.Value()
	if strings.TrimSpace(query) == "" {
		a.globalSearchResults = nil
		return a, cmd
	}
	return a, tea.Batch(cmd, a.dataModel.SearchSessionsCmd(query))
}

// scrollToMessage centers message idx in the viewport.
func (a *AppView) scrollToMessage(idx int) {
	messages := a.dataModel.Session.Messages
	width := a.contentWidth()
	debug := a.dataModel.Session.Settings.Debug

	offset := 0
	for i := 0; i < idx && i < len(messages); i++ {
		offset += strings.Count(renderMessage(messages[i], "", width, debug), "\n")
	}

	target := offset - a.viewport.Height/2
	if maxOffset := a.viewport.TotalLineCount() - a.viewport.Height; target > maxOffset {
		target = maxOffset
	}
	if target < 0 {
		target = 0
	}
	a.viewport.SetYOffset(target)
}

func renderMessageSearch(input textinput.Model, results []storage.MessageMatch, selectedIdx, width, height int) string {
	items := make([]searchResult, len(results))
	for i, r := range results {
		items[i] = searchResult{role: r.Role, label: r.Timestamp.Format("Jan 2, 3:04 PM"), preview: r.Preview}
	}
	return renderSearchModal("Search Current Session", "Type to search messages in this conversation...", input, items, selectedIdx, width, height)
}

func renderGlobalSearch(input textinput.Model, results []storage.SessionMessageMatch, selectedIdx, width, height int) string {
	items := make([]searchResult, len(results))
	for i, r := range results {
		items[i] = searchResult{
			role:    r.Role,
			label:   fmt.Sprintf("%s - %s", r.SessionName, r.Timestamp.Format("Jan 2, 3:04 PM")),
			preview: r.Preview,
		}
	}
	return renderSearchModal("Search All Sessions", "Type to search every saved conversation...", input, items, selectedIdx, width, height)
}

func renderSearchModal(title, hint string, input textinput.Model, results []searchResult, selectedIdx, width, height int) string {
	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	var body strings.Builder
	switch {
	case len(results) == 0 && input.Value() == "":
		body.WriteString(DimStyle.Render(hint))
	case len(results) == 0:
		body.WriteString(DimStyle.Render("No matches found"))
	default:
		// border, padding, title, input, count, footer and blank lines
		maxVisible := (height - 16) / linesPerResult
		if maxVisible < 1 {
			maxVisible = 1
		}
		start, end := visibleRange(len(results), selectedIdx, maxVisible)

		fmt.Fprintf(&body, "Found %d matches:\n\n", len(results))
		if start > 0 {
			body.WriteString(DimStyle.Render(fmt.Sprintf("↑ %d more above", start)) + "\n\n")
		}
		for i := start; i < end; i++ {
			r := results[i]
			roleStyle := UserStyle
			if r.role == appmodel.RoleAssistant {
				roleStyle = AssistantStyle
			}
			text := fmt.Sprintf("%s [%s]\n  %s", roleStyle.Render(r.role), r.label, truncateWidth(r.preview, modalWidth-10))
			if i == selectedIdx {
				text = SelectedStyle.Render("> ") + text
			} else {
				text = "  " + text
			}
			body.WriteString(text + "\n\n")
		}
		if end < len(results) {
			body.WriteString(DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-end)))
		}
	}

	footer := FormatFooter("Type", "to search", "↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Render(title),
		"",
		input.View(),
		"",
		strings.TrimRight(body.String(), "\n"),
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
