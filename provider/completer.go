package provider

import (
	"context"
	"strings"
)

const completerSystemPrompt = "You rewrite user questions. Reply with exactly what is asked, no commentary."

// Completer adapts a Provider to a single-prompt completion.
type Completer struct {
	p Provider
}

// NewCompleter wraps p.
func NewCompleter(p Provider) *Completer {
	return &Completer{p: p}
}

// Complete sends prompt as one user message and returns the collected reply.
// The model argument is ignored when empty; otherwise it replaces the
// provider's model for this process.
func (c *Completer) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model != "" && model != c.p.GetModel() {
		c.p.SetModel(model)
	}

	var out strings.Builder
	err := c.p.Chat(ctx, []Message{
		{Role: "system", Content: completerSystemPrompt},
		{Role: "user", Content: prompt},
	}, func(chunk string) error {
		out.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
