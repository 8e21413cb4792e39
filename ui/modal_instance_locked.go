package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	leaveKey      = key.NewBinding(key.WithKeys("enter", "esc", "q", "ctrl+c"))
	removeLockKey = key.NewBinding(key.WithKeys("d", "D"))
)

// InstanceLockedModal is shown when cortexchat.lock names a live process.
type InstanceLockedModal struct {
	pid        int
	dataDir    string
	width      int
	height     int
	removeLock bool
}

func NewInstanceLockedModal(pid int, dataDir string) InstanceLockedModal {
	return InstanceLockedModal{pid: pid, dataDir: dataDir}
}

func (m InstanceLockedModal) Init() tea.Cmd {
	return nil
}

func (m InstanceLockedModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, removeLockKey):
			m.removeLock = true
			return m, tea.Quit
		case key.Matches(msg, leaveKey):
			return m, tea.Quit
		}
	}
	return m, nil
}

// ForceDelete reports whether the user asked to take over the lock.
func (m InstanceLockedModal) ForceDelete() bool {
	return m.removeLock
}

func (m InstanceLockedModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}

	message := fmt.Sprintf(
		"Process %d is already chatting from\n%s\n\n"+
			"Two instances would overwrite each other's sessions. Quit the other one "+
			"or set CORTEXCHAT_DATA_DIR.\n\n"+
			"Press D only if that process is gone.",
		m.pid, m.dataDir)

	modalWidth := modalWidthFor(64, m.width)
	return RenderThreeSectionModal("Data Directory In Use", centeredLines(message, modalWidth),
		FormatFooter("Enter", "Quit", "D", "Remove lock"), ModalTypeError, modalWidth, m.width, m.height)
}
