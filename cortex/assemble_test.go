package cortex

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTools = Tools{
	SearchName:        "Faq Search",
	SearchService:     "DB.SCHEMA.DOCS",
	MaxResults:        3,
	TitleColumn:       "RELATIVE_PATH",
	IDColumn:          "CHUNK_INDEX",
	AnalystName:       "Sales Analyst",
	SemanticModelFile: "@DB.SCHEMA.STAGE/model.yaml",
}

func deltaEvent(items ...string) Event {
	return Event{
		Name: EventMessageDelta,
		Data: json.RawMessage(`{"delta":{"content":[` + strings.Join(items, ",") + `]}}`),
	}
}

func responseEvent(items ...string) Event {
	return Event{
		Name: EventResponse,
		Data: json.RawMessage(`{"content":[` + strings.Join(items, ",") + `]}`),
	}
}

func textItem(s string) string {
	b, _ := json.Marshal(map[string]string{"type": "text", "text": s})
	return string(b)
}

func sqlResult(sql string) string {
	b, _ := json.Marshal(map[string]any{
		"type": "tool_results",
		"tool_results": map[string]any{
			"content": []any{map[string]any{"type": "json", "json": map[string]any{"sql": sql}}},
		},
	})
	return string(b)
}

func TestAssembleDeltaDialect(t *testing.T) {
	events := []Event{
		deltaEvent(`{"type":"tool_use","tool_use":{"type":"cortex_search","name":"x"}}`),
		deltaEvent(`{"type":"tool_results","tool_results":{"content":[{"type":"json","json":{
			"text":"Refunds within 30 days. ",
			"searchResults":[{"source_id":1,"doc_title":"refund_policy.pdf","doc_id":4}]}}]}}`),
		deltaEvent(textItem("See 【†1†】.")),
	}

	res := NewAssembler(testTools).Assemble(events)

	assert.Equal(t, "Refunds within 30 days. See 【†1†】.", res.Text)
	assert.Equal(t, []string{"Faq Search"}, res.ToolsUsed)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, Citation{SourceID: "1", DocTitle: "refund_policy.pdf", DocChunk: "4"}, res.Citations[0])
	assert.Empty(t, res.SQL)
	assert.Equal(t, 3, res.EventCount)
}

func TestAssembleResponseDialect(t *testing.T) {
	events := []Event{
		{Name: EventMetadata, Data: json.RawMessage(`{"message_id":42,"role":"assistant"}`)},
		responseEvent(
			`{"type":"tool_use","tool_use":{"type":"cortex_analyst_text_to_sql","name":"Sales Analyst"}}`,
			`{"type":"tool_result","tool_result":{"content":[{"type":"json","json":{"sql":"SELECT COUNT(*) FROM orders",
				"search_results":[{"source_id":"2","doc_title":"a.jpeg","doc_id":"0"}]}}]}}`,
			`{"type":"text","text":"There were 10 orders.","annotations":[
				{"type":"cortex_search_citation","index":3,"doc_title":"shipping.pdf","doc_id":7},
				{"type":"other","index":9}]}`,
		),
	}

	res := NewAssembler(testTools).Assemble(events)

	assert.Equal(t, "There were 10 orders.", res.Text)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", res.SQL)
	assert.Equal(t, []Citation{
		{SourceID: "2", DocTitle: "a.jpeg", DocChunk: "0"},
		{SourceID: "3", DocTitle: "shipping.pdf", DocChunk: "7"},
	}, res.Citations)
	assert.True(t, res.HasMetadata)
	assert.Equal(t, ID("42"), res.Metadata.MessageID)
	assert.Equal(t, []string{"Sales Analyst"}, res.ToolsUsed)
}

func TestAssembleLastNonEmptySQLWins(t *testing.T) {
	events := []Event{
		deltaEvent(sqlResult("SELECT 1")),
		deltaEvent(sqlResult("")),
		deltaEvent(sqlResult("SELECT 2")),
		deltaEvent(sqlResult("")),
	}
	res := NewAssembler(testTools).Assemble(events)
	assert.Equal(t, "SELECT 2", res.SQL)
}

func TestAssembleTextIsAssociative(t *testing.T) {
	e1 := deltaEvent(textItem("alpha "))
	e2 := responseEvent(textItem("beta "), textItem("gamma "))
	e3 := deltaEvent(textItem("delta"))

	a := NewAssembler(testTools)
	whole := a.Assemble([]Event{e1, e2, e3})
	left := a.Assemble([]Event{e1, e2})
	right := a.Assemble([]Event{e3})

	assert.Equal(t, whole.Text, left.Text+right.Text)
	assert.Equal(t, "alpha beta gamma delta", whole.Text)
}

func TestAssembleCitationsAreNotDeduplicated(t *testing.T) {
	item := `{"type":"tool_results","tool_results":{"content":[{"type":"json","json":{
		"searchResults":[{"source_id":1,"doc_title":"a.pdf","doc_id":1}]}}]}}`
	res := NewAssembler(testTools).Assemble([]Event{deltaEvent(item), deltaEvent(item)})
	assert.Len(t, res.Citations, 2)
}

func TestAssembleIgnoresUnknown(t *testing.T) {
	events := []Event{
		{Name: "response.status", Data: json.RawMessage(`{"status":"planning"}`)},
		deltaEvent(`{"type":"chart","chart":{}}`, textItem("ok")),
		{Name: EventResponse, Data: json.RawMessage(`"not an object"`)},
		{Name: EventMetadata, Data: json.RawMessage(`[]`)},
	}
	res := NewAssembler(testTools).Assemble(events)
	assert.Equal(t, "ok", res.Text)
	assert.False(t, res.HasMetadata)
	assert.Empty(t, res.ToolsUsed)
}

func TestAssembleEmptyInput(t *testing.T) {
	res := NewAssembler(testTools).Assemble(nil)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.SQL)
	assert.Empty(t, res.Citations)
	assert.Zero(t, res.EventCount)
}

func TestToolNameResolution(t *testing.T) {
	tests := []struct {
		name string
		item string
		want string
	}{
		{"mapped search", `{"type":"tool_use","tool_use":{"type":"cortex_search"}}`, "Faq Search"},
		{"mapped analyst", `{"type":"tool_use","tool_use":{"type":"cortex_analyst_text_to_sql"}}`, "Sales Analyst"},
		{"unknown type passes through", `{"type":"tool_use","tool_use":{"type":"web_search"}}`, "web_search"},
		{"named tool", `{"type":"tool_use","tool_use":{"type":"generic","name":"Weather"}}`, "Weather"},
		{"top level name", `{"type":"tool_use","name":"Charts"}`, "Charts"},
		{"nothing", `{"type":"tool_use"}`, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewAssembler(testTools).Assemble([]Event{deltaEvent(tt.item)})
			require.Len(t, res.ToolsUsed, 1)
			assert.Equal(t, tt.want, res.ToolsUsed[0])
		})
	}
}

func TestAssembleTrace(t *testing.T) {
	var kinds []string
	a := NewAssembler(testTools)
	a.Trace = func(e TraceEntry) { kinds = append(kinds, e.Kind) }

	a.Assemble([]Event{
		{Name: EventMetadata, Data: json.RawMessage(`{"message_id":1}`)},
		deltaEvent(`{"type":"tool_use","tool_use":{"type":"cortex_search"}}`, textItem("x"), sqlResult("SELECT 1")),
	})

	assert.Equal(t, []string{"metadata", "tool_use", "text", "tool_result"}, kinds)
}

func TestUniqueTools(t *testing.T) {
	r := Result{ToolsUsed: []string{"Faq Search", "Sales Analyst", "Faq Search"}}
	assert.Equal(t, []string{"Faq Search", "Sales Analyst"}, r.UniqueTools())
}

func TestDisplayText(t *testing.T) {
	assert.Equal(t, "See [1] and [2]", CleanText("See 【†1†】 and 【†2†】"))
	assert.Equal(t, "Items:\n\none\n\ntwo", DisplayText("Items:•one•two"))
}
