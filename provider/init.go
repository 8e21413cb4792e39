package provider

import (
	"fmt"

	"cortexchat/config"
	"cortexchat/router"
)

// SplitterCortex sends split prompts to the Cortex agent itself.
const SplitterCortex = "cortex"

// InitializeSplitter returns the Completer used to split compound questions
// and the model to pass to it. fallback is used for the cortex backend and
// whenever the configured provider cannot be created, so a bad key degrades
// splitting instead of failing startup.
func InitializeSplitter(cfg *config.Config, fallback router.Completer) (router.Completer, string) {
	id := cfg.Splitter.Provider
	if id == "" || id == SplitterCortex {
		return fallback, ""
	}

	p, err := NewProvider(Config{
		Type:    MapProviderIDToType(id),
		BaseURL: cfg.Splitter.BaseURL,
		APIKey:  cfg.APIKey(id),
		Model:   cfg.Splitter.Model,
	})
	if err != nil {
		config.Log.Warn().Err(err).Str("provider", id).Msg("splitter provider unavailable, using cortex")
		return fallback, ""
	}
	if op, ok := p.(*OllamaProvider); ok {
		op.JSONOutput = true
	}

	config.Log.Debug().Str("provider", id).Str("model", p.GetModel()).Msg("splitter initialized")
	return NewCompleter(p), p.GetModel()
}

// Describe is the sidebar label for the configured splitter.
func Describe(cfg *config.Config) string {
	id := cfg.Splitter.Provider
	if id == "" {
		id = SplitterCortex
	}
	if cfg.Splitter.Model == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, cfg.Splitter.Model)
}
