package cortex

import (
	"encoding/json"
)

// Event names used by the agent API.
const (
	EventMessageDelta = "message.delta"
	EventResponse     = "response"
	EventMetadata     = "metadata"
)

// Event is one envelope from the agent response.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Content is one classified content item. The set is closed: TextContent,
// ToolUseContent, ToolResultContent and UnknownContent.
type Content interface {
	contentType() string
}

// TextContent is answer text with the citations found in it.
type TextContent struct {
	Text      string
	Citations []Citation
}

// ToolUseContent records that the agent invoked a tool.
type ToolUseContent struct {
	ToolType string
	Name     string
}

// ToolResultContent holds what a tool returned.
type ToolResultContent struct {
	Results []ToolOutput
}

// UnknownContent is any item type this client does not understand. It is
// ignored by the assembler.
type UnknownContent struct {
	Type string
	Raw  json.RawMessage
}

func (TextContent) contentType() string       { return "text" }
func (ToolUseContent) contentType() string    { return "tool_use" }
func (ToolResultContent) contentType() string { return "tool_result" }
func (u UnknownContent) contentType() string  { return u.Type }

// ToolOutput is the json payload of a tool result.
type ToolOutput struct {
	Text      string
	SQL       string
	Citations []Citation
}

// Citation points at a document chunk that backs part of an answer.
type Citation struct {
	SourceID ID     `json:"source_id"`
	DocTitle string `json:"doc_title"`
	DocChunk ID     `json:"doc_chunk"`
}

// Metadata carries the server message id used as the next parent id.
type Metadata struct {
	MessageID ID     `json:"message_id"`
	Role      string `json:"role"`
}

type rawItem struct {
	Type        string          `json:"type"`
	Text        string          `json:"text"`
	Name        string          `json:"name"`
	Annotations []rawAnnotation `json:"annotations"`
	ToolUse     *rawToolUse     `json:"tool_use"`
	ToolResult  *rawToolResult  `json:"tool_result"`
	ToolResults *rawToolResult  `json:"tool_results"`
}

type rawAnnotation struct {
	Type     string `json:"type"`
	Index    ID     `json:"index"`
	DocTitle string `json:"doc_title"`
	DocID    ID     `json:"doc_id"`
}

type rawToolUse struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type rawToolResult struct {
	Content []struct {
		Type string        `json:"type"`
		JSON rawToolOutput `json:"json"`
	} `json:"content"`
}

type rawToolOutput struct {
	Text               string            `json:"text"`
	SQL                string            `json:"sql"`
	SearchResultsCamel []rawSearchResult `json:"searchResults"`
	SearchResultsSnake []rawSearchResult `json:"search_results"`
}

type rawSearchResult struct {
	SourceID ID     `json:"source_id"`
	DocTitle string `json:"doc_title"`
	DocID    ID     `json:"doc_id"`
}

const citationAnnotation = "cortex_search_citation"

// Contents classifies the content items carried by e. Events other than
// message deltas and responses carry none.
func (e Event) Contents() []Content {
	var items []json.RawMessage
	switch e.Name {
	case EventMessageDelta:
		var d struct {
			Delta struct {
				Content []json.RawMessage `json:"content"`
			} `json:"delta"`
		}
		if json.Unmarshal(e.Data, &d) != nil {
			return nil
		}
		items = d.Delta.Content
	case EventResponse:
		var d struct {
			Content []json.RawMessage `json:"content"`
		}
		if json.Unmarshal(e.Data, &d) != nil {
			return nil
		}
		items = d.Content
	default:
		return nil
	}

	out := make([]Content, 0, len(items))
	for _, raw := range items {
		out = append(out, classify(raw))
	}
	return out
}

// Metadata returns the metadata payload if e is a metadata event.
func (e Event) Metadata() (Metadata, bool) {
	if e.Name != EventMetadata {
		return Metadata{}, false
	}
	var m Metadata
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return Metadata{}, false
	}
	return m, true
}

func classify(raw json.RawMessage) Content {
	var it rawItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return UnknownContent{Raw: raw}
	}

	switch it.Type {
	case "text":
		tc := TextContent{Text: it.Text}
		for _, a := range it.Annotations {
			if a.Type != citationAnnotation {
				continue
			}
			tc.Citations = append(tc.Citations, Citation{
				SourceID: a.Index,
				DocTitle: a.DocTitle,
				DocChunk: a.DocID,
			})
		}
		return tc

	case "tool_use":
		tu := ToolUseContent{Name: it.Name}
		if it.ToolUse != nil {
			tu.ToolType = it.ToolUse.Type
			if it.ToolUse.Name != "" {
				tu.Name = it.ToolUse.Name
			}
		}
		return tu

	case "tool_result", "tool_results":
		res := it.ToolResult
		if res == nil {
			res = it.ToolResults
		}
		if res == nil {
			return ToolResultContent{}
		}
		var tr ToolResultContent
		for _, c := range res.Content {
			if c.Type != "json" {
				continue
			}
			tr.Results = append(tr.Results, c.JSON.output())
		}
		return tr

	default:
		return UnknownContent{Type: it.Type, Raw: raw}
	}
}

func (o rawToolOutput) output() ToolOutput {
	out := ToolOutput{Text: o.Text, SQL: o.SQL}
	for _, group := range [][]rawSearchResult{o.SearchResultsCamel, o.SearchResultsSnake} {
		for _, r := range group {
			out.Citations = append(out.Citations, Citation{
				SourceID: r.SourceID,
				DocTitle: r.DocTitle,
				DocChunk: r.DocID,
			})
		}
	}
	return out
}
