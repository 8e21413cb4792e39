package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cortexchat/config"
)

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// renderSidebar lists the session settings next to the transcript, each with
// the key that changes it.
func (a AppView) renderSidebar(height int) string {
	settings := a.dataModel.Session.Settings
	keys := a.keys
	inner := sidebarWidth - 2

	item := func(label, value, action string) string {
		line := DimStyle.Render(label+": ") + value
		hint := DimStyle.Render("  " + keys.DisplayActionKey(action))
		return truncateWidth(line, inner) + "\n" + hint
	}

	mode := "heuristic"
	if settings.Mode == config.ModeAgent {
		mode = "agent"
	}

	status := a.dataModel.Session.State().String()
	if a.dataModel.Halted {
		status = ErrorStyle.Render("halted")
	}

	sections := []string{
		SidebarHeaderStyle.Render("Session"),
		DimStyle.Render("state: ") + status,
		DimStyle.Render("messages: ") + strconv.Itoa(len(a.dataModel.Session.Messages)),
		DimStyle.Render("New conversation ") + DimStyle.Render(keys.DisplayActionKey("new_conversation")),
		"",
		SidebarHeaderStyle.Render("Settings"),
		item("model", settings.Model, "model_selector"),
		item("mode", mode, "toggle_mode"),
		item("debug", onOff(settings.Debug), "toggle_debug"),
		item("threads", onOff(settings.UseThreads), "toggle_threads"),
		DimStyle.Render("  " + truncateWidth(a.dataModel.ThreadStatus(), inner-2)),
		"",
		SidebarHeaderStyle.Render("Splitter"),
		truncateWidth(a.dataModel.SplitterLabel(), inner),
		DimStyle.Render("status: ") + a.splitterStatus,
	}

	return SidebarStyle.
		Width(sidebarWidth).
		Height(height).
		Render(lipgloss.NewStyle().MaxWidth(inner).Render(strings.Join(sections, "\n")))
}
