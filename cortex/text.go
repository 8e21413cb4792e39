package cortex

import "strings"

var citationMarkers = strings.NewReplacer("【†", "[", "†】", "]")

// CleanText rewrites the agent's citation brackets to plain [n] markers.
func CleanText(s string) string {
	return citationMarkers.Replace(s)
}

// DisplayText prepares answer text for markdown rendering: citation markers
// are cleaned and each bullet glyph starts a new paragraph.
func DisplayText(s string) string {
	return strings.ReplaceAll(CleanText(s), "•", "\n\n")
}
