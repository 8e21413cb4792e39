package provider

import (
	"context"
	"fmt"

	"cortexchat/ollama"
)

// OllamaProvider wraps ollama.Client. Requests ask for JSON output when
// JSONOutput is set, which keeps small local models on format.
type OllamaProvider struct {
	client     *ollama.Client
	JSONOutput bool
}

// NewOllamaProvider defaults to http://localhost:11434 and llama3.1:latest.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return &OllamaProvider{client: client}, nil
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, callback StreamCallback) error {
	return p.client.Chat(ctx, ConvertToOllamaMessages(messages), p.JSONOutput, ollama.StreamCallback(callback))
}

func (p *OllamaProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) GetDisplayName() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
