package cortex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolTypes(req AgentRequest) []string {
	var out []string
	for _, t := range req.Tools {
		out = append(out, t.ToolSpec.Type)
	}
	return out
}

func TestNewRequestToolSelection(t *testing.T) {
	tests := []struct {
		name          string
		filter        ToolFilter
		wantTypes     []string
		wantResources []string
	}{
		{"no filter declares both", FilterNone, []string{ToolTypeAnalyst, ToolTypeSearch}, []string{"Sales Analyst", "Faq Search"}},
		{"search only", FilterSearchOnly, []string{ToolTypeSearch}, []string{"Faq Search"}},
		{"analyst only", FilterAnalystOnly, []string{ToolTypeAnalyst}, []string{"Sales Analyst"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("q", "claude-sonnet-4-5", tt.filter, testTools, nil)
			assert.Equal(t, tt.wantTypes, toolTypes(req))
			assert.Len(t, req.ToolResources, len(tt.wantResources))
			for _, name := range tt.wantResources {
				assert.Contains(t, req.ToolResources, name)
			}
			assert.NotEmpty(t, req.ResponseInstruction)
		})
	}
}

func TestNewRequestInstructionsDiffer(t *testing.T) {
	none := NewRequest("q", "m", FilterNone, testTools, nil).ResponseInstruction
	search := NewRequest("q", "m", FilterSearchOnly, testTools, nil).ResponseInstruction
	analyst := NewRequest("q", "m", FilterAnalystOnly, testTools, nil).ResponseInstruction

	assert.NotEqual(t, none, search)
	assert.NotEqual(t, none, analyst)
	assert.NotEqual(t, search, analyst)
	assert.Contains(t, none, "'Faq Search'")
	assert.Contains(t, none, "'Sales Analyst'")
	assert.NotContains(t, none, "{search}")
}

func TestNewRequestThreadFields(t *testing.T) {
	tests := []struct {
		name       string
		thread     *ThreadContext
		wantThread bool
	}{
		{"nil thread", nil, false},
		{"thread without parent", &ThreadContext{ThreadID: "123"}, false},
		{"parent without thread", &ThreadContext{ParentMessageID: "0"}, false},
		{"both present", &ThreadContext{ThreadID: "123", ParentMessageID: "0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("q", "m", FilterNone, testTools, tt.thread)
			b, err := json.Marshal(req)
			require.NoError(t, err)

			var body map[string]any
			require.NoError(t, json.Unmarshal(b, &body))
			_, hasThread := body["thread_id"]
			_, hasParent := body["parent_message_id"]
			assert.Equal(t, tt.wantThread, hasThread)
			assert.Equal(t, tt.wantThread, hasParent)
			if tt.wantThread {
				assert.Equal(t, float64(123), body["thread_id"])
				assert.Equal(t, float64(0), body["parent_message_id"])
			}
		})
	}
}

func TestRequestWireShape(t *testing.T) {
	req := NewRequest("How many orders?", "claude-sonnet-4-5", FilterAnalystOnly, testTools, nil)
	b, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"model": "claude-sonnet-4-5",
		"messages": [{"role":"user","content":[{"type":"text","text":"How many orders?"}]}],
		"tools": [{"tool_spec":{"type":"cortex_analyst_text_to_sql","name":"Sales Analyst"}}],
		"tool_resources": {"Sales Analyst":{"semantic_model_file":"@DB.SCHEMA.STAGE/model.yaml"}},
		"response_instruction": `+mustJSON(t, req.ResponseInstruction)+`
	}`, string(b))
}

func TestSearchResourceBinding(t *testing.T) {
	req := NewRequest("q", "m", FilterSearchOnly, testTools, nil)
	b, err := json.Marshal(req.ToolResources["Faq Search"])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name":"DB.SCHEMA.DOCS",
		"max_results":3,
		"title_column":"RELATIVE_PATH",
		"id_column":"CHUNK_INDEX",
		"experimental":{"returnConfidenceScores":true}
	}`, string(b))
}

func TestNewAgentRequestHasNoTools(t *testing.T) {
	req := NewAgentRequest("q", "m", &ThreadContext{ThreadID: "abc", ParentMessageID: "5"})
	assert.Empty(t, req.Tools)
	assert.Empty(t, req.ToolResources)
	assert.Empty(t, req.ResponseInstruction)
	assert.Equal(t, ID("abc"), req.ThreadID)

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"thread_id":"abc"`)
	assert.Contains(t, string(b), `"parent_message_id":5`)
}

func TestToolFilterString(t *testing.T) {
	assert.Equal(t, "none", FilterNone.String())
	assert.Equal(t, "search_only", FilterSearchOnly.String())
	assert.Equal(t, "analyst_only", FilterAnalystOnly.String())
	assert.Equal(t, "ToolFilter(9)", ToolFilter(9).String())
}

func TestIDRoundTrip(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":17,"b":"x-1","c":null}`), &v))
	assert.Equal(t, ID("17"), v.A)
	assert.Equal(t, ID("x-1"), v.B)
	assert.Equal(t, ID(""), v.C)

	tests := []struct {
		id   ID
		want string
	}{
		{"42", `42`},
		{"0", `0`},
		{"-3", `-3`},
		{"007", `"007"`},
		{"+5", `"+5"`},
		{"-0", `"-0"`},
		{"1e3", `"1e3"`},
		{"x-1", `"x-1"`},
		{"", `""`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.id)
		require.NoError(t, err, tt.id)
		assert.Equal(t, tt.want, string(got), tt.id)

		var back ID
		require.NoError(t, json.Unmarshal(got, &back))
		assert.Equal(t, tt.id, back)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
