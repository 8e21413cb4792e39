// Package router decides which remote tools a question needs and, for
// compound questions, splits it into one sub-question per tool.
package router

import (
	"strings"

	"cortexchat/cortex"
)

// Keyword tables are matched as lower-case substrings. Matching is a plain
// heuristic: "discount" matches "count" and paraphrases are missed.
var (
	PolicyKeywords = []string{
		"policy", "policies", "refund", "return", "shipping", "delivery",
		"warranty", "guarantee", "faq", "guideline", "procedure", "terms",
		"exchange", "cancellation", "privacy", "rule",
	}

	DataKeywords = []string{
		"how many", "how much", "count", "total", "revenue", "sales",
		"number of", "average", "sum", "top ", "trend", "per month",
		"per year", "by region", "highest", "lowest", "compare", "growth",
		"2023", "2024", "2025", "last year", "this year", "last month",
		"quarter",
	}
)

// Scope is the set of tools a question needs.
type Scope struct {
	NeedsSearch  bool
	NeedsAnalyst bool
}

// Classify is total and pure: it never fails and depends only on question.
func Classify(question string) Scope {
	q := strings.ToLower(question)
	return Scope{
		NeedsSearch:  containsAny(q, PolicyKeywords),
		NeedsAnalyst: containsAny(q, DataKeywords),
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (s Scope) Both() bool { return s.NeedsSearch && s.NeedsAnalyst }

// Filter returns the single-call tool filter for s. Both or neither map to
// FilterNone; callers handle Both separately.
func (s Scope) Filter() cortex.ToolFilter {
	switch {
	case s.NeedsSearch && !s.NeedsAnalyst:
		return cortex.FilterSearchOnly
	case s.NeedsAnalyst && !s.NeedsSearch:
		return cortex.FilterAnalystOnly
	default:
		return cortex.FilterNone
	}
}

func (s Scope) String() string {
	switch {
	case s.Both():
		return "search+analyst"
	case s.NeedsSearch:
		return "search"
	case s.NeedsAnalyst:
		return "analyst"
	default:
		return "agent"
	}
}
