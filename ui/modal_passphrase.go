package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	unlockKey = key.NewBinding(key.WithKeys("enter"))
	cancelKey = key.NewBinding(key.WithKeys("esc", "ctrl+c"))
)

// PassphraseModal asks for the passphrase of the SSH key that seals
// credentials.enc. It runs as its own program before the chat starts.
type PassphraseModal struct {
	keyPath     string
	input       textinput.Model
	problem     string
	attempt     int
	maxAttempts int
	width       int
	height      int
	cancelled   bool
}

// NewPassphraseModal builds the prompt for attempt (1-based) of
// maxAttempts. problem is shown under the input, e.g. after a wrong
// passphrase.
func NewPassphraseModal(keyPath, problem string, attempt, maxAttempts int) PassphraseModal {
	input := textinput.New()
	input.Placeholder = "passphrase"
	input.Width = 50
	input.CharLimit = 200
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.Focus()

	return PassphraseModal{
		keyPath:     keyPath,
		input:       input,
		problem:     problem,
		attempt:     attempt,
		maxAttempts: maxAttempts,
	}
}

func (m PassphraseModal) Init() tea.Cmd {
	return textinput.Blink
}

func (m PassphraseModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, cancelKey):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, unlockKey):
			if strings.TrimSpace(m.input.Value()) == "" {
				m.problem = "Passphrase cannot be empty"
				return m, nil
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PassphraseModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}

	modalWidth := modalWidthFor(70, m.width)
	blank := strings.Repeat(" ", modalWidth)

	keyLine := "Key: " + m.keyPath
	if m.keyPath == "" {
		keyLine = "Key: (security.ssh_key_path not set)"
	}
	lines := []string{
		centerTextLine("The Snowflake token is sealed with an encrypted SSH key.", modalWidth),
		centerTextLine(DimStyle.Render(keyLine), modalWidth),
		blank,
		centerTextLine(m.input.View(), modalWidth),
	}
	if m.maxAttempts > 1 {
		lines = append(lines, centerTextLine(DimStyle.Render(fmt.Sprintf("attempt %d of %d", m.attempt, m.maxAttempts)), modalWidth))
	}
	if m.problem != "" {
		warn := lipgloss.NewStyle().Foreground(dangerColor).Bold(true).Render("⚠ " + m.problem)
		lines = append(lines, blank, centerTextLine(warn, modalWidth))
	}

	return RenderThreeSectionModal("Unlock Credentials", lines,
		FormatFooter("Enter", "Unlock", "Esc", "Cancel"), ModalTypeInfo, modalWidth, m.width, m.height)
}

// Passphrase is what was typed, or "" when the prompt was cancelled.
func (m PassphraseModal) Passphrase() string {
	if m.cancelled {
		return ""
	}
	return m.input.Value()
}

func (m PassphraseModal) Cancelled() bool {
	return m.cancelled
}

func centerTextLine(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", width-w-left)
}
