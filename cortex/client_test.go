package cortex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{AccountURL: srv.URL, Token: "pat-token", Warehouse: "WH", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Options{Token: "x"})
	assert.Error(t, err)
	_, err = NewClient(Options{AccountURL: "https://a.snowflakecomputing.com"})
	assert.Error(t, err)
}

func TestRunSendsRequest(t *testing.T) {
	var got AgentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, inlineRunPath, r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("stream"))
		assert.Equal(t, "Bearer pat-token", r.Header.Get("Authorization"))
		assert.Equal(t, "PROGRAMMATIC_ACCESS_TOKEN", r.Header.Get("X-Snowflake-Authorization-Token-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"event":"message.delta","data":{"delta":{"content":[{"type":"text","text":"hi"}]}}}]`)
	})

	events, err := c.Run(context.Background(), NewRequest("hello", "claude-3-5-sonnet", FilterSearchOnly, testTools, nil))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "hi", NewAssembler(testTools).Assemble(events).Text)

	assert.Equal(t, "claude-3-5-sonnet", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content[0].Text)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, ToolTypeSearch, got.Tools[0].ToolSpec.Type)
}

func TestRunStreamedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: metadata\ndata: {\"message_id\":11,\"role\":\"assistant\"}\n\n")
		_, _ = io.WriteString(w, "event: response\ndata: {\"content\":[{\"type\":\"text\",\"text\":\"done\"}]}\n\n")
	})

	ref := AgentRef{Database: "SNOWFLAKE_INTELLIGENCE", Schema: "AGENTS", Name: "SALES"}
	events, err := c.RunAgent(context.Background(), ref, NewAgentRequest("q", "m", nil))
	require.NoError(t, err)

	res := NewAssembler(testTools).Assemble(events)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, ID("11"), res.Metadata.MessageID)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "status error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"token expired"}`)
			},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, 401, se.Code)
				assert.Equal(t, "Unauthorized", se.Reason)
				assert.Contains(t, se.Body, "token expired")
				assert.Contains(t, err.Error(), "HTTP Error: 401 - Unauthorized")
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = io.WriteString(w, "upstream reset")
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Run(context.Background(), NewRequest("q", "m", FilterNone, testTools, nil))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRunTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Options{AccountURL: url, Token: "t", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Run(context.Background(), NewRequest("q", "m", FilterNone, testTools, nil))
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "failed to call agent")
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req AgentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.Tools)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"event":"response","data":{"content":[{"type":"text","text":"{\"a\":1}"}]}}]`)
	})

	text, err := c.Complete(context.Background(), "m", "split this")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

func TestCreateThread(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, threadsPath, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "streamlit_sales_assistant", body["origin_application"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"thread_id": 98765}`)
	})

	tc, err := c.CreateThread(context.Background(), "streamlit_sales_assistant")
	require.NoError(t, err)
	assert.Equal(t, ThreadContext{ThreadID: "98765", ParentMessageID: "0"}, tc)
	assert.True(t, tc.Complete())
}

func TestCreateThreadMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	})
	_, err := c.CreateThread(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEnsureAgent(t *testing.T) {
	ref := AgentRef{Database: "SNOWFLAKE_INTELLIGENCE", Schema: "AGENTS", Name: "CORTEX_SALES_AGENT"}
	spec := json.RawMessage(`{"instructions":{"response":"be brief"}}`)

	t.Run("exists", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v2/databases/snowflake_intelligence/schemas/agents/agents/CORTEX_SALES_AGENT", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})
		created, err := c.EnsureAgent(context.Background(), ref, func() (json.RawMessage, error) {
			t.Fatal("spec should not be loaded")
			return nil, nil
		})
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("created", func(t *testing.T) {
		var posted map[string]string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			assert.Equal(t, "/api/v2/databases/snowflake_intelligence/schemas/agents/agents", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.WriteHeader(http.StatusCreated)
		})
		created, err := c.EnsureAgent(context.Background(), ref, func() (json.RawMessage, error) { return spec, nil })
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "CORTEX_SALES_AGENT", posted["name"])
		assert.JSONEq(t, string(spec), posted["agent_spec"])
	})

	t.Run("spec missing", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.EnsureAgent(context.Background(), ref, func() (json.RawMessage, error) {
			return nil, errors.New("no such file")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load agent configuration")
	})

	t.Run("create rejected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := c.EnsureAgent(context.Background(), ref, func() (json.RawMessage, error) { return spec, nil })
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusForbidden, se.Code)
	})
}

func TestStatementBindingsAndPolling(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == statementsPath:
			var req statementRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SELECT CHUNK FROM T WHERE RELATIVE_PATH = ? AND CHUNK_INDEX = ?", req.Statement)
			assert.Equal(t, "WH", req.Warehouse)
			assert.Equal(t, binding{Type: "TEXT", Value: "report.pdf"}, req.Bindings["1"])
			assert.Equal(t, binding{Type: "FIXED", Value: "3"}, req.Bindings["2"])
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"statementHandle":"h-1","message":"running"}`)
		case r.Method == http.MethodGet && r.URL.Path == statementsPath+"/h-1":
			if polls.Add(1) < 2 {
				w.WriteHeader(http.StatusAccepted)
				_, _ = io.WriteString(w, `{"statementHandle":"h-1"}`)
				return
			}
			_, _ = io.WriteString(w, `{"statementHandle":"h-1",
				"resultSetMetaData":{"rowType":[{"name":"CHUNK"}]},
				"data":[["chunk three"],[null]]}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	rs, err := c.Statement(context.Background(),
		"SELECT CHUNK FROM T WHERE RELATIVE_PATH = ? AND CHUNK_INDEX = ?", "report.pdf", ID("3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CHUNK"}, rs.Columns)
	assert.Equal(t, [][]string{{"chunk three"}, {""}}, rs.Rows)
	first, ok := rs.First()
	assert.True(t, ok)
	assert.Equal(t, "chunk three", first)
	assert.Equal(t, int32(2), polls.Load())
}

func TestStatementUnsupportedBinding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Statement(context.Background(), "SELECT ?", 1.5)
	assert.Error(t, err)
}

func TestTrimStatement(t *testing.T) {
	assert.Equal(t, "SELECT 1", TrimStatement("  SELECT 1;\n"))
	assert.Equal(t, "SELECT 'a;b'", TrimStatement("SELECT 'a;b';;"))
}

func TestAgentRefPath(t *testing.T) {
	ref := AgentRef{Database: "DB", Schema: "SCH", Name: "My_Agent"}
	assert.Equal(t, "/api/v2/databases/db/schemas/sch/agents/My_Agent", ref.Path())
	assert.Equal(t, "DB.SCH.My_Agent", ref.String())
}
