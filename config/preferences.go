package config

import (
	"fmt"
	"slices"
	"strconv"
)

// UpdateChatField persists a single sidebar preference to config.toml.
//
// Fields:
//   - "model": default model, must be one of the configured models
//   - "mode": orchestration mode, heuristic or agent
//   - "use_threads", "debug": booleans
func UpdateChatField(dataDir, field, value string) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch field {
	case "model":
		if len(cfg.Chat.Models) > 0 && !slices.Contains(cfg.Chat.Models, value) {
			return fmt.Errorf("unknown model: %s", value)
		}
		cfg.Chat.DefaultModel = value
	case "mode":
		if value != ModeHeuristic && value != ModeAgent {
			return fmt.Errorf("unknown orchestration mode: %s", value)
		}
		cfg.Agent.Mode = value
	case "use_threads", "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if field == "debug" {
			cfg.Chat.Debug = b
		} else {
			cfg.Chat.UseThreads = b
		}
	default:
		return fmt.Errorf("unknown chat field: %s", field)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// SetCredential stores a credential and writes the store back to disk.
func (c *Config) SetCredential(id, value string) error {
	if c.CredentialStore == nil {
		return fmt.Errorf("credential store not initialized")
	}
	if err := c.CredentialStore.Set(id, value); err != nil {
		return fmt.Errorf("failed to set credential: %w", err)
	}
	if err := c.CredentialStore.Save(c.DataDir()); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}
