package cortex

import (
	"encoding/json"
	"strings"
)

// Result is everything a single agent response contributed to a turn.
type Result struct {
	Text      string
	SQL       string
	Citations []Citation
	ToolsUsed []string
	Metadata  Metadata
	// HasMetadata is set when a metadata event was seen.
	HasMetadata bool
	EventCount  int
}

// TraceEntry describes one classified item. Only produced in debug mode.
type TraceEntry struct {
	Event string
	Kind  string
	Tool  string
	Raw   json.RawMessage
}

// Assembler folds an event sequence into a Result.
type Assembler struct {
	// ToolNames maps remote tool types to display names.
	ToolNames map[string]string
	// Trace, when set, receives one entry per classified item.
	Trace func(TraceEntry)
}

// NewAssembler labels tool usage with the display names from tools.
func NewAssembler(tools Tools) *Assembler {
	return &Assembler{ToolNames: tools.DisplayNames()}
}

// Assemble walks events in order. Text is concatenated in arrival order,
// citations are appended without de-duplication and the last non-empty SQL
// wins. Unknown events and items are ignored.
func (a *Assembler) Assemble(events []Event) Result {
	var (
		res  Result
		text strings.Builder
	)

	for _, ev := range events {
		res.EventCount++

		if md, ok := ev.Metadata(); ok {
			res.Metadata = md
			res.HasMetadata = true
			a.trace(TraceEntry{Event: ev.Name, Kind: EventMetadata, Raw: ev.Data})
			continue
		}

		for _, item := range ev.Contents() {
			switch c := item.(type) {
			case TextContent:
				text.WriteString(c.Text)
				res.Citations = append(res.Citations, c.Citations...)
				a.trace(TraceEntry{Event: ev.Name, Kind: "text"})

			case ToolUseContent:
				name := a.toolName(c)
				res.ToolsUsed = append(res.ToolsUsed, name)
				a.trace(TraceEntry{Event: ev.Name, Kind: "tool_use", Tool: name, Raw: ev.Data})

			case ToolResultContent:
				for _, out := range c.Results {
					text.WriteString(out.Text)
					if out.SQL != "" {
						res.SQL = out.SQL
					}
					res.Citations = append(res.Citations, out.Citations...)
				}
				a.trace(TraceEntry{Event: ev.Name, Kind: "tool_result", Raw: ev.Data})

			case UnknownContent:
				a.trace(TraceEntry{Event: ev.Name, Kind: "unknown:" + c.Type, Raw: c.Raw})
			}
		}
	}

	res.Text = text.String()
	return res
}

func (a *Assembler) toolName(c ToolUseContent) string {
	if name, ok := a.ToolNames[c.ToolType]; ok && name != "" {
		return name
	}
	if c.Name != "" {
		return c.Name
	}
	if c.ToolType != "" {
		return c.ToolType
	}
	return "Unknown"
}

func (a *Assembler) trace(e TraceEntry) {
	if a.Trace != nil {
		a.Trace(e)
	}
}

// UniqueTools returns the distinct tool names in first-seen order.
func (r Result) UniqueTools() []string {
	seen := make(map[string]bool, len(r.ToolsUsed))
	var out []string
	for _, t := range r.ToolsUsed {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
