package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cortexchat/config"
	appmodel "cortexchat/model"
	"cortexchat/storage"
	"cortexchat/ui"
)

// Version is reported by --version and the MCP handshake.
const Version = "v0.1.0"

// maxPassphraseAttempts bounds the passphrase prompt on startup.
const maxPassphraseAttempts = 3

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cortexchat",
	Short: "Terminal chat client for Snowflake Cortex agents",
	Long: `cortexchat asks a Snowflake Cortex agent about policy documents and sales
data. Document answers cite their sources; data answers carry the generated
SQL, which can be run as a report.

Run without a subcommand to start the chat.

Examples:
  cortexchat init --account-url https://myorg.snowflakecomputing.com --token $PAT
  cortexchat
  cortexchat ask "What was the total deal value last quarter?"
  cortexchat mcp`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before the config")
	cobra.OnInitialize(loadEnvFile)
}

func loadEnvFile() {
	path, _ := rootCmd.PersistentFlags().GetString("env-file")
	if err := config.LoadDotEnv(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	if err := config.CreateDefaultSystemConfig(); err != nil {
		return err
	}

	cfg, err := loadConfigInteractive()
	if err != nil {
		return err
	}
	if cfg == nil {
		// passphrase prompt cancelled
		return nil
	}

	logCloser, err := config.InitDebugLog(cfg.DataDir(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logCloser.Close()

	a, err := newApp(cfg)
	if err != nil {
		config.Log.Error().Err(err).Msg("startup failed")
		return showError("Configuration Error", err.Error()+"\n\nRun `cortexchat init` or edit config.toml in "+cfg.DataDir()+".")
	}
	defer a.Close()

	sessionStorage, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to initialize session storage: %w", err)
	}

	locked, pid, err := sessionStorage.CheckInstanceLock()
	if err != nil {
		return fmt.Errorf("failed to check instance lock: %w", err)
	}
	if locked {
		final, err := runModal(ui.NewInstanceLockedModal(pid, cfg.DataDir()))
		if err != nil {
			return err
		}
		if m, ok := final.(ui.InstanceLockedModal); !ok || !m.ForceDelete() {
			return nil
		}
		config.Log.Warn().Int("pid", pid).Msg("removing instance lock held by another process")
	}
	if err := sessionStorage.LockInstance(); err != nil {
		return fmt.Errorf("failed to lock data directory: %w", err)
	}

	searchIndex, err := storage.NewSearchIndex(cfg.DataDir(), sessionStorage)
	if err != nil {
		// search is optional; chatting still works
		config.Log.Warn().Err(err).Msg("search index unavailable")
		searchIndex = nil
	} else {
		defer searchIndex.Close()
	}

	var lastSession *storage.Session
	if id, err := sessionStorage.LoadCurrentSessionID(); err == nil && id != "" {
		if lastSession, err = sessionStorage.Load(id); err != nil {
			config.Log.Warn().Err(err).Str("session_id", id).Msg("could not restore last session")
			lastSession = nil
		}
	}

	dataModel := appmodel.NewModel(cfg, a.assistant, sessionStorage, searchIndex, lastSession, Version)
	view := ui.NewAppView(dataModel)
	defer func() {
		if err := view.UnlockCurrentDataDir(); err != nil {
			config.Log.Warn().Err(err).Msg("failed to remove instance lock")
		}
	}()

	p := tea.NewProgram(view, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running cortexchat: %w", err)
	}
	return nil
}

// loadConfigInteractive loads the config, prompting for the SSH key
// passphrase when encrypted credentials need one. A nil config with a nil
// error means the user cancelled.
func loadConfigInteractive() (*config.Config, error) {
	cfg, err := config.Load()
	if !errors.Is(err, config.ErrPassphraseRequired) {
		return cfg, err
	}

	keyPath := ""
	if user, uerr := config.LoadUserConfig(dataDirForPrompt()); uerr == nil {
		keyPath = user.Security.SSHKeyPath
	}

	problem := ""
	for attempt := 1; attempt <= maxPassphraseAttempts; attempt++ {
		final, err := runModal(ui.NewPassphraseModal(keyPath, problem, attempt, maxPassphraseAttempts))
		if err != nil {
			return nil, err
		}
		m, ok := final.(ui.PassphraseModal)
		if !ok || m.Cancelled() {
			return nil, nil
		}

		cfg, err = config.LoadWithPassphrase(m.Passphrase())
		if err == nil {
			return cfg, nil
		}
		config.Log.Warn().Err(err).Int("attempt", attempt).Msg("passphrase rejected")
		problem = "Incorrect passphrase, try again"
	}
	return nil, fmt.Errorf("failed to unlock credentials after %d attempts", maxPassphraseAttempts)
}

func dataDirForPrompt() string {
	if dir := os.Getenv("CORTEXCHAT_DATA_DIR"); dir != "" {
		return config.ExpandPath(dir)
	}
	sys, err := config.LoadSystemConfig()
	if err != nil {
		return ""
	}
	return config.ExpandPath(sys.DataDirectory)
}

func runModal(m tea.Model) (tea.Model, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run modal: %w", err)
	}
	return final, nil
}

func showError(title, msg string) error {
	_, err := runModal(ui.NewErrorModal(title, msg))
	return err
}
