package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cortexchat/config"
)

// Completer answers a single prompt. cortex.Client and the provider
// adapters satisfy it.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Split holds one standalone sub-question per tool.
type Split struct {
	SearchQuery  string `json:"search_query"`
	AnalystQuery string `json:"analyst_query"`
	// Fallback is set when the original question was used for both.
	Fallback bool `json:"-"`
}

const splitPrompt = `Split the user question below into two standalone questions.

- "search_query": the part about policies, procedures or documentation.
- "analyst_query": the part about data, metrics or numbers from the sales database.

Keep the original wording as much as possible. If a part is relevant to both, include it in both.
Respond with only a JSON object with the keys "search_query" and "analyst_query".

Question: %s`

// SplitQuestion asks c to partition question. Any failure, including a call
// error, unparseable output or a missing field, falls back to the original
// question for both parts. It never returns an error.
func SplitQuestion(ctx context.Context, c Completer, question, model string) Split {
	fallback := Split{SearchQuery: question, AnalystQuery: question, Fallback: true}
	if c == nil {
		return fallback
	}

	out, err := c.Complete(ctx, model, fmt.Sprintf(splitPrompt, question))
	if err != nil {
		config.Log.Warn().Err(err).Msg("question split failed, using original question")
		return fallback
	}

	var s Split
	if err := json.Unmarshal([]byte(StripCodeFence(out)), &s); err != nil {
		config.Log.Warn().Err(err).Str("output", out).Msg("question split returned invalid JSON")
		return fallback
	}
	s.SearchQuery = strings.TrimSpace(s.SearchQuery)
	s.AnalystQuery = strings.TrimSpace(s.AnalystQuery)
	if s.SearchQuery == "" || s.AnalystQuery == "" {
		config.Log.Warn().Str("output", out).Msg("question split missing a field")
		return fallback
	}
	return s
}

// StripCodeFence removes a surrounding Markdown code fence (``` or ```json)
// and returns the trimmed content. Text without a fence is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// drop the language tag line
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
