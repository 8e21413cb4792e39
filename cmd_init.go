package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cortexchat/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config files and store the Snowflake credentials",
	Long: `Writes settings.toml, config.toml and keybindings.toml when they do not
exist yet. With --account-url and --token the account and the programmatic
access token are saved too.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("account-url", "", "Snowflake account URL")
	initCmd.Flags().String("token", "", "Programmatic access token")
	initCmd.Flags().String("mode", "", "Orchestration mode (heuristic or agent)")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.CreateDefaultSystemConfig(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if errors.Is(err, config.ErrPassphraseRequired) {
		return fmt.Errorf("%w: set CORTEXCHAT_SSH_PASSPHRASE to update sealed credentials", err)
	}
	if err != nil {
		return err
	}
	dataDir := cfg.DataDir()

	if err := config.CreateDefaultUserConfig(dataDir); err != nil {
		return err
	}
	if err := config.CreateDefaultKeybindings(dataDir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config:       %s\n", config.GetSettingsFilePath())
	fmt.Fprintf(out, "Data:         %s\n", dataDir)

	accountURL, _ := cmd.Flags().GetString("account-url")
	mode, _ := cmd.Flags().GetString("mode")
	if accountURL != "" || mode != "" {
		user, err := config.LoadUserConfig(dataDir)
		if err != nil {
			return err
		}
		if accountURL != "" {
			if !strings.HasPrefix(accountURL, "https://") {
				accountURL = "https://" + accountURL
			}
			user.Snowflake.AccountURL = strings.TrimRight(accountURL, "/")
		}
		if mode != "" {
			if mode != config.ModeHeuristic && mode != config.ModeAgent {
				return fmt.Errorf("unknown orchestration mode: %s", mode)
			}
			user.Agent.Mode = mode
		}
		if err := config.SaveUserConfig(user, dataDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "Account:      %s\n", user.Snowflake.AccountURL)
	}

	if token, _ := cmd.Flags().GetString("token"); token != "" {
		if err := cfg.SetCredential(config.CredentialSnowflake, strings.TrimSpace(token)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Token:        saved (%s)\n", cfg.Security.CredentialStorage)
	}
	return nil
}
