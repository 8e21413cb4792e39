package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// filterModels returns the models matching query, best match first. An
// empty query keeps the configured order.
func filterModels(models []string, query string) []string {
	if strings.TrimSpace(query) == "" {
		return append([]string(nil), models...)
	}
	matches := fuzzy.Find(query, models)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = models[m.Index]
	}
	return out
}

func (a *AppView) openModelSelector() {
	a.showModelSelector = true
	a.modelFilterInput.SetValue("")
	a.filteredModels = filterModels(a.dataModel.Models(), "")
	a.selectedModelIdx = 0
	current := a.dataModel.Session.Settings.Model
	for i, m := range a.filteredModels {
		if m == current {
			a.selectedModelIdx = i
		}
	}
	a.textarea.Blur()
	a.modelFilterInput.Focus()
}

func (a AppView) handleModelSelectorUpdate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", a.keys.GetActionKey("model_selector"):
		a.closeAllModals()
		return a, nil

	case "enter":
		if a.selectedModelIdx < 0 || a.selectedModelIdx >= len(a.filteredModels) {
			return a, nil
		}
		selected := a.filteredModels[a.selectedModelIdx]
		a.closeAllModals()
		a.flash = "Model: " + selected
		return a, a.dataModel.SelectModel(selected)

	case "down", a.keys.GetActionKey("list_down_filtered"):
		if a.selectedModelIdx < len(a.filteredModels)-1 {
			a.selectedModelIdx++
		}
		return a, nil

	case "up", a.keys.GetActionKey("list_up_filtered"):
		if a.selectedModelIdx > 0 {
			a.selectedModelIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.modelFilterInput, cmd = a.modelFilterInput.Update(msg)
	a.filteredModels = filterModels(a.dataModel.Models(), a.modelFilterInput.Value())
	if a.selectedModelIdx >= len(a.filteredModels) {
		a.selectedModelIdx = max(len(a.filteredModels)-1, 0)
	}
	return a, cmd
}

func renderModelSelector(models []string, selectedIdx int, currentModel string, filterInput textinput.Model, total int, width, height int) string {
	modalWidth := modalWidthFor(60, width)

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Select Model")

	count := fmt.Sprintf("%d models", total)
	if len(models) != total {
		count = fmt.Sprintf("%d of %d models", len(models), total)
	}
	headerSection := lipgloss.NewStyle().
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(filterInput.View() + "\n" + DimStyle.Render(count))

	var lines []string
	if len(models) == 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render("No matches found"))
	}

	start, end := visibleRange(len(models), selectedIdx, height-12)
	for i := start; i < end; i++ {
		indicator := "  "
		if i == selectedIdx {
			indicator = "▶ "
		}
		line := indicator + models[i]
		if models[i] == currentModel {
			line += DimStyle.Render(" (current)")
		}
		if i == selectedIdx {
			line = SelectedStyle.Render(line)
		}
		lines = append(lines, line)
	}

	listSection := lipgloss.NewStyle().
		Width(modalWidth).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(FormatFooter("Type", "Filter", "↑/↓", "Navigate", "Enter", "Select", "Esc", "Close"))

	content := lipgloss.JoinVertical(lipgloss.Left, titleSection, headerSection, listSection, footerSection)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// visibleRange returns the window of a list of n items that keeps selected
// in view when only maxLines fit.
func visibleRange(n, selected, maxLines int) (int, int) {
	if maxLines < 1 {
		maxLines = 1
	}
	if n <= maxLines {
		return 0, n
	}
	start := selected - maxLines/2
	if start < 0 {
		start = 0
	}
	if start > n-maxLines {
		start = n - maxLines
	}
	return start, start + maxLines
}
