package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModal is a standalone modal for errors before the main UI starts.
type ErrorModal struct {
	title   string
	message string
	width   int
	height  int
}

func NewErrorModal(title, message string) ErrorModal {
	return ErrorModal{title: title, message: message}
}

func (m ErrorModal) Init() tea.Cmd {
	return nil
}

func (m ErrorModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ErrorModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}
	modalWidth := modalWidthFor(60, m.width)
	return RenderThreeSectionModal(m.title, centeredLines(m.message, modalWidth), "Press Enter to quit", ModalTypeError, modalWidth, m.width, m.height)
}

// renderFatalModal is shown inside the running app when agent provisioning
// failed. Input stays blocked; only quitting is possible.
func renderFatalModal(err error, quitKey string, width, height int) string {
	msg := "The Cortex agent could not be provisioned:\n\n" + err.Error() +
		"\n\nFix the agent settings in config.toml or the agent spec file, then restart."
	modalWidth := modalWidthFor(70, width)
	return RenderThreeSectionModal("Agent Unavailable", centeredLines(msg, modalWidth), FormatFooter(quitKey, "Quit"), ModalTypeError, modalWidth, width, height)
}
