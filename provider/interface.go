// Package provider wraps third-party LLM APIs behind one small interface.
//
// cortexchat answers questions through the Cortex agent; these providers are
// only used for side tasks that need a plain completion, such as splitting a
// compound question into one sub-question per tool. Any of them can stand in
// for the Cortex completion endpoint via NewCompleter.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeAnthropic,
//	    APIKey: key,
//	})
//	if err != nil {
//	    // handle error
//	}
//	splitter := provider.NewCompleter(p)
package provider

import (
	"context"

	"cortexchat/ollama"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}

// StreamCallback receives each streamed text chunk.
type StreamCallback func(chunk string) error

// Provider is a chat backend that can split compound questions.
type Provider interface {
	// Chat sends messages and streams the reply through callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)

	// GetModel returns the name sent to the API.
	GetModel() string

	// GetDisplayName strips vendor prefixes ("qwen/qwen3" -> "qwen3").
	GetDisplayName() string

	SetModel(model string)

	// Ping checks if the provider is reachable with the configured key.
	Ping(ctx context.Context) error
}
