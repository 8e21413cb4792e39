package provider

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cortexchat/config"
	"cortexchat/ollama"
)

// PingProviderMsg is sent when a provider ping completes.
type PingProviderMsg struct {
	ProviderID string
	Valid      bool
	// ModelMissing is set when the provider answered but does not list the
	// configured model.
	ModelMissing bool
	Model        string
	Err          error
}

// PingProvider checks a splitter provider's key in the background.
func PingProvider(providerID, baseURL, apiKey, model string) tea.Cmd {
	return func() tea.Msg {
		p, err := NewProvider(Config{
			Type:    MapProviderIDToType(providerID),
			BaseURL: baseURL,
			APIKey:  apiKey,
			Model:   model,
		})
		if err != nil {
			return PingProviderMsg{ProviderID: providerID, Err: fmt.Errorf("failed to create provider: %w", err)}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return CheckProvider(ctx, p, providerID, model)
	}
}

// CheckProvider pings p and, when model is set, looks it up in the
// provider's model list. A failed listing is not an error: the key already
// proved valid.
func CheckProvider(ctx context.Context, p Provider, providerID, model string) PingProviderMsg {
	if err := p.Ping(ctx); err != nil {
		return PingProviderMsg{ProviderID: providerID, Model: model, Err: fmt.Errorf("connection failed: %w", err)}
	}
	msg := PingProviderMsg{ProviderID: providerID, Model: model, Valid: true}
	if model == "" {
		config.Log.Debug().Str("provider", providerID).Msg("provider ping successful")
		return msg
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		config.Log.Debug().Err(err).Str("provider", providerID).Msg("could not list models")
		return msg
	}
	msg.ModelMissing = !hasModel(models, model)
	config.Log.Debug().
		Str("provider", providerID).
		Str("model", model).
		Bool("model_missing", msg.ModelMissing).
		Msg("provider ping successful")
	return msg
}

func hasModel(models []ollama.ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name || m.InternalName == name {
			return true
		}
	}
	return false
}
