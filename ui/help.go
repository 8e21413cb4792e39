package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (a AppView) renderHelpModal(width, height int) string {
	kb := a.keys

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor).
		Render("cortexchat - Keyboard Shortcuts")

	blue := lipgloss.NewStyle().Foreground(accentColor)
	line := func(action, desc string) string {
		return fmt.Sprintf("• %-15s %s", kb.DisplayActionKey(action), desc)
	}

	conversation := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Conversation"),
		fmt.Sprintf("• %-15s %s", "Enter", "Ask"),
		fmt.Sprintf("• %-15s %s", "Alt+Enter", "New line"),
		line("new_conversation", "New conversation"),
		line("clear_input", "Clear input"),
		line("session_manager", "Session manager"),
		line("search_messages", "Search session"),
		line("search_all_sessions", "Search all sessions"),
		line("help", "Toggle this help"),
		line("quit", "Quit"),
	)

	settings := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Settings"),
		line("model_selector", "Select model"),
		line("toggle_mode", "Heuristic / agent"),
		line("toggle_threads", "Threads on / off"),
		line("toggle_debug", "Debug trace"),
		line("toggle_sidebar", "Show sidebar"),
	)

	navigation := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Transcript"),
		line("scroll_down", "Scroll down 1 line"),
		line("scroll_up", "Scroll up 1 line"),
		line("half_page_down", "Half page down"),
		line("half_page_up", "Half page up"),
		line("page_down", "Full page down"),
		line("page_up", "Full page up"),
		line("scroll_to_top", "Jump to top"),
		line("scroll_to_bottom", "Jump to bottom"),
	)

	answers := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Answers"),
		line("run_report", "Run generated SQL"),
		line("copy_sql", "Copy generated SQL"),
		line("yank_last_response", "Copy last response"),
		line("yank_conversation", "Copy conversation"),
	)

	columnStyle := lipgloss.NewStyle().Width(44).PaddingLeft(4)
	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(lipgloss.JoinVertical(lipgloss.Left, conversation, "", settings)),
		columnStyle.Render(lipgloss.JoinVertical(lipgloss.Left, navigation, "", answers)),
	)

	footer := DimStyle.Render(fmt.Sprintf("Press %s or Esc to close this help", kb.DisplayActionKey("help")))

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		twoColumns,
		"",
		footer,
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(96)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpBox.Render(content))
}
