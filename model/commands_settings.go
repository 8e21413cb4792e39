package model

import (
	"slices"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/config"
	"cortexchat/provider"
)

// Models returns the selectable model identifiers.
func (m *Model) Models() []string {
	return m.Config.Chat.Models
}

// SelectModel switches the session model and remembers it as the default.
func (m *Model) SelectModel(name string) tea.Cmd {
	if len(m.Config.Chat.Models) > 0 && !slices.Contains(m.Config.Chat.Models, name) {
		return nil
	}
	m.Session.SetModel(name)
	m.SessionDirty = len(m.Session.Messages) > 0
	return m.persist("model", name)
}

// SelectMode switches between the keyword heuristic and the agent. Switching
// to agent mode provisions the agent first.
func (m *Model) SelectMode(mode string) tea.Cmd {
	if mode != config.ModeHeuristic && mode != config.ModeAgent {
		return nil
	}
	if mode == m.Session.Settings.Mode {
		return nil
	}
	m.Session.SetMode(mode)

	cmds := []tea.Cmd{m.persist("mode", mode)}
	if mode == config.ModeAgent {
		cmds = append(cmds, m.ProvisionCmd())
	}
	return tea.Batch(cmds...)
}

// ToggleDebug flips debug output and persists the choice.
func (m *Model) ToggleDebug() tea.Cmd {
	on := m.Session.ToggleDebug()
	return m.persist("debug", strconv.FormatBool(on))
}

// ToggleThreads flips thread use for the session and persists the choice.
func (m *Model) ToggleThreads() tea.Cmd {
	on := m.Session.ToggleThreads()
	m.SessionDirty = len(m.Session.Messages) > 0
	return m.persist("use_threads", strconv.FormatBool(on))
}

// ThreadStatus is the sidebar line describing the remote thread.
func (m *Model) ThreadStatus() string {
	switch {
	case !m.Session.Settings.UseThreads:
		return "off"
	case m.Session.Thread.ThreadID == "":
		return "new on next question"
	default:
		return "thread " + m.Session.Thread.ThreadID.String() + " @ " + m.Session.Thread.ParentMessageID.String()
	}
}

func (m *Model) persist(field, value string) tea.Cmd {
	dataDir := m.Config.DataDir()
	return func() tea.Msg {
		err := config.UpdateChatField(dataDir, field, value)
		if err != nil {
			config.Log.Warn().Err(err).Str("field", field).Msg("failed to save preference")
		}
		return PreferenceSavedMsg{Field: field, Err: err}
	}
}

// SplitterLabel names the backend used to split compound questions.
func (m *Model) SplitterLabel() string {
	return provider.Describe(m.Config)
}

// CheckSplitterCmd pings the splitter provider. The cortex splitter needs no
// check.
func (m *Model) CheckSplitterCmd() tea.Cmd {
	id := m.Config.Splitter.Provider
	if id == "" || id == provider.SplitterCortex {
		return nil
	}
	return provider.PingProvider(id, m.Config.Splitter.BaseURL, m.Config.APIKey(id), m.Config.Splitter.Model)
}
