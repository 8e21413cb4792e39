package testutil

import (
	"context"

	"cortexchat/ollama"
	"cortexchat/provider"
)

// MockProvider implements provider.Provider with overridable func fields.
type MockProvider struct {
	ChatFunc       func(ctx context.Context, messages []provider.Message, callback provider.StreamCallback) error
	ListModelsFunc func(ctx context.Context) ([]ollama.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	// Calls records every message list passed to Chat.
	Calls [][]provider.Message

	currentModel string
}

// NewMockProvider creates a mock that streams "Mock response" in two chunks.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{currentModel: modelName}
	mock.ChatFunc = mock.defaultChat
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = func(context.Context) error { return nil }
	return mock
}

// Replying makes Chat stream reply in one chunk.
func (m *MockProvider) Replying(reply string) *MockProvider {
	m.ChatFunc = func(_ context.Context, _ []provider.Message, callback provider.StreamCallback) error {
		return callback(reply)
	}
	return m
}

func (m *MockProvider) defaultChat(ctx context.Context, messages []provider.Message, callback provider.StreamCallback) error {
	if len(messages) == 0 {
		return nil
	}
	if err := callback("Mock "); err != nil {
		return err
	}
	return callback("response")
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return []ollama.ModelInfo{
		{Name: "mock-model-1", Size: 1000, Provider: "mock", InternalName: "mock-model-1"},
		{Name: "mock-model-2", Size: 2000, Provider: "mock", InternalName: "vendor/mock-model-2"},
	}, nil
}

func (m *MockProvider) Chat(ctx context.Context, messages []provider.Message, callback provider.StreamCallback) error {
	m.Calls = append(m.Calls, messages)
	return m.ChatFunc(ctx, messages, callback)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) GetDisplayName() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
