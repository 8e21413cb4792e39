package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// KeyBindingsConfig holds the modifier choice and optional per-action
// overrides from keybindings.toml.
type KeyBindingsConfig struct {
	Modifiers ModifierConfig    `toml:"modifiers"`
	Actions   map[string]string `toml:"actions"`
}

type ModifierConfig struct {
	Primary   string `toml:"primary"`   // alt, ctrl, meta, super
	Secondary string `toml:"secondary"` // alt+shift, ctrl+shift
}

type actionDef struct {
	modifier string // "primary", "secondary" or "none"
	key      string
}

var actionRegistry = map[string]actionDef{
	// sidebar
	"new_conversation": {"primary", "n"},
	"toggle_debug":     {"primary", "d"},
	"toggle_mode":      {"primary", "o"},
	"toggle_threads":   {"primary", "t"},
	"model_selector":   {"primary", "m"},
	"toggle_sidebar":   {"secondary", "b"},

	// modals
	"help":                {"primary", "h"},
	"session_manager":     {"primary", "s"},
	"search_messages":     {"primary", "f"},
	"search_all_sessions": {"secondary", "f"},

	// answers
	"run_report":         {"primary", "r"},
	"copy_sql":           {"primary", "x"},
	"yank_last_response": {"primary", "y"},
	"yank_conversation":  {"primary", "c"},

	// transcript scrolling
	"scroll_down":      {"primary", "j"},
	"scroll_up":        {"primary", "k"},
	"half_page_down":   {"secondary", "j"},
	"half_page_up":     {"secondary", "k"},
	"page_down":        {"primary", "pgdown"},
	"page_up":          {"primary", "pgup"},
	"scroll_to_top":    {"primary", "g"},
	"scroll_to_bottom": {"secondary", "g"},

	"quit":        {"primary", "q"},
	"clear_input": {"primary", "u"},

	// list navigation inside modals
	"list_down":          {"none", "j"},
	"list_up":            {"none", "k"},
	"list_down_filtered": {"primary", "j"},
	"list_up_filtered":   {"primary", "k"},
}

func DefaultKeybindings() *KeyBindingsConfig {
	return &KeyBindingsConfig{
		Modifiers: ModifierConfig{
			Primary:   "alt",
			Secondary: "alt+shift",
		},
	}
}

// LoadKeybindings reads <dataDir>/keybindings.toml, writing the template on
// first run.
func LoadKeybindings(dataDir string) (*KeyBindingsConfig, error) {
	cfg := DefaultKeybindings()
	path := filepath.Join(dataDir, "keybindings.toml")

	if !FileExists(path) {
		if err := CreateDefaultKeybindings(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create keybindings: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse keybindings: %w", err)
	}
	return cfg, nil
}

func CreateDefaultKeybindings(dataDir string) error {
	path := filepath.Join(dataDir, "keybindings.toml")
	if FileExists(path) {
		return nil
	}
	if err := os.WriteFile(path, []byte(GenerateKeybindingsTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write keybindings: %w", err)
	}
	return nil
}

func GenerateKeybindingsTemplate() string {
	return `# cortexchat keybindings

# Change the modifiers if they clash with your terminal or window manager.
[modifiers]
primary = "alt"
secondary = "alt+shift"

# Per-action overrides, for example:
#   new_conversation = "ctrl+n"
#   run_report = "ctrl+r"
[actions]
`
}

func (kb *KeyBindingsConfig) Primary() string {
	if kb.Modifiers.Primary == "" {
		return "alt"
	}
	return kb.Modifiers.Primary
}

func (kb *KeyBindingsConfig) Secondary() string {
	if kb.Modifiers.Secondary == "" {
		return "alt+shift"
	}
	return kb.Modifiers.Secondary
}

// SecondaryKey builds a binding with the secondary modifier. Terminals report
// shift plus a letter as the upper-case letter, so "alt+shift" and "f" give
// "alt+F".
func (kb *KeyBindingsConfig) SecondaryKey(key string) string {
	secondary := kb.Secondary()
	if len(key) != 1 || key[0] < 'a' || key[0] > 'z' || !strings.Contains(strings.ToLower(secondary), "shift") {
		return secondary + "+" + key
	}

	var mods []string
	for _, part := range strings.Split(secondary, "+") {
		if !strings.EqualFold(part, "shift") {
			mods = append(mods, part)
		}
	}
	mods = append(mods, strings.ToUpper(key))
	return strings.Join(mods, "+")
}

// GetActionKey returns the binding for action, user overrides first.
func (kb *KeyBindingsConfig) GetActionKey(action string) string {
	if override := kb.Actions[action]; override != "" {
		return override
	}

	def, ok := actionRegistry[action]
	if !ok {
		return ""
	}
	switch def.modifier {
	case "primary":
		return kb.Primary() + "+" + def.key
	case "secondary":
		return kb.SecondaryKey(def.key)
	}
	return def.key
}

// DisplayActionKey is GetActionKey formatted for the help screen:
// "alt+F" becomes "Alt+Shift+F".
func (kb *KeyBindingsConfig) DisplayActionKey(action string) string {
	key := kb.GetActionKey(action)
	if key == "" {
		return ""
	}

	parts := strings.Split(key, "+")
	hasShift := false
	for _, p := range parts {
		if strings.EqualFold(p, "shift") {
			hasShift = true
		}
	}

	var out []string
	for i, part := range parts {
		if part == "" {
			continue
		}
		if len(part) == 1 && part[0] >= 'A' && part[0] <= 'Z' && !hasShift && i > 0 {
			out = append(out, "Shift")
		}
		out = append(out, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(out, "+")
}

// Validate reports whether the modifiers are usable, with a warning for
// combinations that often clash.
func (kb *KeyBindingsConfig) Validate() (bool, string) {
	primary, secondary := kb.Primary(), kb.Secondary()
	if primary == "shift" || secondary == "shift" {
		return false, "Shift alone conflicts with typing"
	}
	if strings.Contains(primary, "ctrl") || strings.Contains(secondary, "ctrl") {
		return true, "Warning: Ctrl may conflict with terminal shortcuts (Ctrl+C, Ctrl+Z, Ctrl+D)"
	}
	return true, ""
}
