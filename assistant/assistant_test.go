package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexchat/config"
	"cortexchat/cortex"
)

var testTools = cortex.Tools{
	SearchName:        "Faq Search",
	SearchService:     "DB.SCHEMA.DOCS",
	MaxResults:        3,
	TitleColumn:       "RELATIVE_PATH",
	IDColumn:          "CHUNK_INDEX",
	AnalystName:       "Sales Analyst",
	SemanticModelFile: "@stage/model.yaml",
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []cortex.AgentRequest
	agentRun int
	threads  int
	ensured  int

	// create makes EnsureAgent report a missing agent and load its spec.
	create bool

	search     []cortex.Event
	analyst    []cortex.Event
	general    []cortex.Event
	searchErr  error
	analystErr error
	threadErr  error
	ensureErr  error
	rs         *cortex.ResultSet
	stmt       string
}

func (f *fakeBackend) Run(_ context.Context, req cortex.AgentRequest) ([]cortex.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if len(req.Tools) == 1 {
		switch req.Tools[0].ToolSpec.Type {
		case cortex.ToolTypeSearch:
			return f.search, f.searchErr
		case cortex.ToolTypeAnalyst:
			return f.analyst, f.analystErr
		}
	}
	return f.general, nil
}

func (f *fakeBackend) RunAgent(ctx context.Context, _ cortex.AgentRef, req cortex.AgentRequest) ([]cortex.Event, error) {
	f.mu.Lock()
	f.agentRun++
	f.mu.Unlock()
	return f.Run(ctx, req)
}

func (f *fakeBackend) CreateThread(context.Context, string) (cortex.ThreadContext, error) {
	f.threads++
	if f.threadErr != nil {
		return cortex.ThreadContext{}, f.threadErr
	}
	return cortex.ThreadContext{ThreadID: "1001", ParentMessageID: "0"}, nil
}

func (f *fakeBackend) EnsureAgent(_ context.Context, _ cortex.AgentRef, loadSpec func() (json.RawMessage, error)) (bool, error) {
	f.mu.Lock()
	f.ensured++
	f.mu.Unlock()
	if f.ensureErr != nil {
		return false, f.ensureErr
	}
	if !f.create {
		return false, nil
	}
	_, err := loadSpec()
	return err == nil, err
}

func (f *fakeBackend) Statement(_ context.Context, sql string, _ ...any) (*cortex.ResultSet, error) {
	f.stmt = sql
	return f.rs, nil
}

func responseEvent(t *testing.T, content ...map[string]any) cortex.Event {
	t.Helper()
	data, err := json.Marshal(map[string]any{"content": content})
	require.NoError(t, err)
	return cortex.Event{Name: cortex.EventResponse, Data: data}
}

func metadataEvent(id int) cortex.Event {
	data, _ := json.Marshal(map[string]any{"message_id": id, "role": "assistant"})
	return cortex.Event{Name: cortex.EventMetadata, Data: data}
}

func toolUse(typ string) map[string]any {
	return map[string]any{"type": "tool_use", "tool_use": map[string]any{"type": typ}}
}

func searchEvents(t *testing.T) []cortex.Event {
	return []cortex.Event{responseEvent(t,
		toolUse(cortex.ToolTypeSearch),
		map[string]any{
			"type": "tool_result",
			"tool_result": map[string]any{"content": []any{map[string]any{
				"type": "json",
				"json": map[string]any{"search_results": []any{
					map[string]any{"source_id": 1, "doc_title": "refund_policy.pdf", "doc_id": 4},
				}},
			}}},
		},
		map[string]any{"type": "text", "text": "Refunds within 30 days."},
	)}
}

func analystEvents(t *testing.T) []cortex.Event {
	return []cortex.Event{responseEvent(t,
		toolUse(cortex.ToolTypeAnalyst),
		map[string]any{
			"type": "tool_result",
			"tool_result": map[string]any{"content": []any{map[string]any{
				"type": "json",
				"json": map[string]any{"sql": "SELECT COUNT(*) FROM orders;"},
			}}},
		},
		map[string]any{"type": "text", "text": "There were 42 orders."},
	)}
}

type splitter struct{ out string }

func (s splitter) Complete(context.Context, string, string) (string, error) {
	return s.out, nil
}

func heuristic() Settings {
	return Settings{Model: "claude-sonnet-4-5", Mode: config.ModeHeuristic}
}

func TestAskDualMergesByRole(t *testing.T) {
	be := &fakeBackend{search: searchEvents(t), analyst: analystEvents(t)}
	a := New(be, Options{
		Tools:    testTools,
		Splitter: splitter{out: "```json\n{\"search_query\":\"refund policy?\",\"analyst_query\":\"how many orders?\"}\n```"},
	})

	ans, err := a.Ask(context.Background(), Turn{
		Question: "What is the refund policy and how many orders were placed?",
		Settings: Settings{Model: "m", Mode: config.ModeHeuristic, UseThreads: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, ans.Calls)
	assert.Equal(t, "Refunds within 30 days.\n\nThere were 42 orders.", ans.Text)
	assert.Equal(t, "SELECT COUNT(*) FROM orders;", ans.SQL)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "refund_policy.pdf", ans.Citations[0].DocTitle)
	assert.Equal(t, []string{"Faq Search", "Sales Analyst"}, ans.ToolsUsed)
	require.NotNil(t, ans.Split)
	assert.Equal(t, "how many orders?", ans.Split.AnalystQuery)
	assert.Empty(t, ans.Warnings)

	// dual calls never thread, even when threads are on
	assert.Zero(t, be.threads)
	require.Len(t, be.requests, 2)
	for _, r := range be.requests {
		assert.Empty(t, r.ThreadID)
		assert.Empty(t, r.ParentMessageID)
	}
}

func TestAskDualPartialFailure(t *testing.T) {
	be := &fakeBackend{
		search:     searchEvents(t),
		analystErr: &cortex.StatusError{Code: 500, Reason: "Internal Server Error"},
	}
	a := New(be, Options{Tools: testTools})

	ans, err := a.Ask(context.Background(), Turn{
		Question: "refund policy and total revenue",
		Settings: heuristic(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Refunds within 30 days.", ans.Text)
	assert.Empty(t, ans.SQL)
	require.Len(t, ans.Notes, 1)
	assert.Contains(t, ans.Notes[0], "Sales Analyst failed")
	assert.Contains(t, ans.Warnings[0], "Sales Analyst was not used")
}

func TestAskDualBothFail(t *testing.T) {
	errSearch := errors.New("search down")
	be := &fakeBackend{searchErr: errSearch, analystErr: cortex.ErrMalformedResponse}
	a := New(be, Options{Tools: testTools})

	_, err := a.Ask(context.Background(), Turn{Question: "refund policy and total revenue", Settings: heuristic()})
	require.Error(t, err)
	assert.ErrorIs(t, err, errSearch)
	assert.ErrorIs(t, err, cortex.ErrMalformedResponse)
}

func TestAskSingleFilter(t *testing.T) {
	tests := []struct {
		name     string
		question string
		wantType string
		wantN    int
	}{
		{"policy only", "What is the shipping policy?", cortex.ToolTypeSearch, 1},
		{"data only", "How many orders last month?", cortex.ToolTypeAnalyst, 1},
		{"neither", "Hello there", "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &fakeBackend{search: searchEvents(t), analyst: analystEvents(t), general: analystEvents(t)}
			a := New(be, Options{Tools: testTools})

			ans, err := a.Ask(context.Background(), Turn{Question: tt.question, Settings: heuristic()})
			require.NoError(t, err)
			assert.Equal(t, 1, ans.Calls)
			require.Len(t, be.requests, 1)
			require.Len(t, be.requests[0].Tools, tt.wantN)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, be.requests[0].Tools[0].ToolSpec.Type)
			}
		})
	}
}

func TestAskThreads(t *testing.T) {
	be := &fakeBackend{analyst: append(analystEvents(t), metadataEvent(77))}
	a := New(be, Options{Tools: testTools, Origin: "app"})
	settings := heuristic()
	settings.UseThreads = true

	ans, err := a.Ask(context.Background(), Turn{Question: "how many orders?", Settings: settings})
	require.NoError(t, err)
	assert.Equal(t, 1, be.threads)
	assert.Equal(t, cortex.ID("1001"), be.requests[0].ThreadID)
	assert.Equal(t, cortex.ID("0"), be.requests[0].ParentMessageID)
	assert.Equal(t, cortex.ThreadContext{ThreadID: "1001", ParentMessageID: "77"}, ans.Thread)

	// next turn reuses the thread and the advanced parent
	_, err = a.Ask(context.Background(), Turn{Question: "total sales?", Settings: settings, Thread: ans.Thread})
	require.NoError(t, err)
	assert.Equal(t, 1, be.threads)
	assert.Equal(t, cortex.ID("77"), be.requests[1].ParentMessageID)
}

func TestAskThreadCreationFailure(t *testing.T) {
	be := &fakeBackend{analyst: analystEvents(t), threadErr: errors.New("no threads")}
	a := New(be, Options{Tools: testTools})
	settings := heuristic()
	settings.UseThreads = true

	ans, err := a.Ask(context.Background(), Turn{Question: "how many orders?", Settings: settings})
	require.NoError(t, err)
	assert.Empty(t, be.requests[0].ThreadID)
	require.Len(t, ans.Notes, 1)
	assert.Contains(t, ans.Notes[0], "Thread unavailable")
}

func TestAskAgentMode(t *testing.T) {
	be := &fakeBackend{general: searchEvents(t)}
	ref := cortex.AgentRef{Database: "DB", Schema: "S", Name: "SALES"}
	a := New(be, Options{Tools: testTools, Agent: &ref})

	ans, err := a.Ask(context.Background(), Turn{
		Question: "refund policy and total revenue",
		Settings: Settings{Model: "m", Mode: config.ModeAgent, Debug: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, be.agentRun)
	assert.Equal(t, 1, ans.Calls)
	assert.Empty(t, be.requests[0].Tools)
	assert.NotEmpty(t, ans.Trace)
	assert.Len(t, ans.Warnings, 1)
	assert.Equal(t, 1, be.ensured)
}

func TestAskSwitchesToAgentAtRuntime(t *testing.T) {
	be := &fakeBackend{analyst: analystEvents(t), general: searchEvents(t)}
	ref := cortex.AgentRef{Database: "DB", Schema: "S", Name: "SALES_AGENT"}
	a := New(be, Options{Tools: testTools, Agent: &ref})

	_, err := a.Ask(context.Background(), Turn{Question: "how many orders?", Settings: heuristic()})
	require.NoError(t, err)
	assert.Zero(t, be.agentRun)
	assert.Zero(t, be.ensured)

	agent := Settings{Model: "m", Mode: config.ModeAgent}
	_, err = a.Ask(context.Background(), Turn{Question: "refund policy?", Settings: agent})
	require.NoError(t, err)
	assert.Equal(t, 1, be.agentRun)
	assert.Equal(t, 1, be.ensured)
	assert.Empty(t, be.requests[1].Tools)

	// the agent is only provisioned once per session
	_, err = a.Ask(context.Background(), Turn{Question: "refund policy?", Settings: agent})
	require.NoError(t, err)
	assert.Equal(t, 2, be.agentRun)
	assert.Equal(t, 1, be.ensured)
}

func TestAskAgentModeProvisionFailure(t *testing.T) {
	be := &fakeBackend{ensureErr: errors.New("forbidden")}
	ref := cortex.AgentRef{Database: "DB", Schema: "S", Name: "SALES_AGENT"}
	a := New(be, Options{Tools: testTools, Agent: &ref})

	_, err := a.Ask(context.Background(), Turn{Question: "refund policy?", Settings: Settings{Model: "m", Mode: config.ModeAgent}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB.S.SALES_AGENT")
	assert.Zero(t, be.agentRun)
}

func TestAskEmptyQuestion(t *testing.T) {
	a := New(&fakeBackend{}, Options{Tools: testTools})
	_, err := a.Ask(context.Background(), Turn{Settings: heuristic()})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

type docs struct{}

func (docs) PresignedURL(context.Context, string) (string, error) { return "", nil }
func (docs) Chunk(context.Context, string, cortex.ID) (string, error) {
	return "chunk text", nil
}

func TestAskResolvesCitations(t *testing.T) {
	be := &fakeBackend{search: searchEvents(t)}
	a := New(be, Options{Tools: testTools, Docs: docs{}})

	ans, err := a.Ask(context.Background(), Turn{Question: "refund policy?", Settings: heuristic()})
	require.NoError(t, err)
	require.Len(t, ans.Resolved, 1)
	assert.Equal(t, "chunk text", ans.Resolved[0].Body)
	assert.Equal(t, "[1]", ans.Resolved[0].Label())
}

func TestProvision(t *testing.T) {
	a := New(&fakeBackend{}, Options{Tools: testTools})
	created, err := a.Provision(context.Background())
	require.NoError(t, err)
	assert.False(t, created)

	ref := cortex.AgentRef{Database: "DB", Schema: "S", Name: "A"}
	a = New(&fakeBackend{ensureErr: errors.New("forbidden")}, Options{Agent: &ref})
	_, err = a.Provision(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB.S.A")

	// a missing agent needs a readable spec file
	a = New(&fakeBackend{create: true}, Options{Agent: &ref, SpecFile: filepath.Join(t.TempDir(), "none.json")})
	_, err = a.Provision(context.Background())
	require.Error(t, err)
}

func TestRunReport(t *testing.T) {
	be := &fakeBackend{rs: &cortex.ResultSet{Columns: []string{"N"}, Rows: [][]string{{"42"}}}}
	a := New(be, Options{Tools: testTools})

	rep, err := a.RunReport(context.Background(), "SELECT COUNT(*) FROM orders;\n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", be.stmt)
	assert.Equal(t, ReportTitle, rep.Title)
	assert.Equal(t, [][]string{{"42"}}, rep.Rows)

	_, err = a.RunReport(context.Background(), " ; ")
	assert.Error(t, err)
}
