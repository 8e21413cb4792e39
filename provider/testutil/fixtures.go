package testutil

import "cortexchat/provider"

// TestMessages returns a short conversation with a system prompt.
func TestMessages() []provider.Message {
	return []provider.Message{
		{Role: "system", Content: "You are terse."},
		{Role: "user", Content: "What is the refund policy?"},
		{Role: "assistant", Content: "Refunds are accepted within 30 days."},
		{Role: "user", Content: "And how many refunds last month?"},
	}
}

// SingleUserMessage returns a single user message for simple tests.
func SingleUserMessage(content string) []provider.Message {
	return []provider.Message{{Role: "user", Content: content}}
}

// SplitReply is a well-formed splitter answer wrapped in a code fence.
const SplitReply = "```json\n{\"search_query\": \"What is the refund policy?\", \"analyst_query\": \"How many refunds last month?\"}\n```"
