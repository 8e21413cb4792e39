package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexchat/assistant"
	"cortexchat/config"
)

func testConfig(t *testing.T, accountURL string) *config.Config {
	t.Helper()
	store := config.NewCredentialStore(config.SecurityPlainText, "")
	require.NoError(t, store.Set(config.CredentialSnowflake, "pat-123"))
	return &config.Config{
		DataDirectory: t.TempDir(),
		Snowflake:     config.SnowflakeConfig{AccountURL: accountURL},
		Agent: config.AgentConfig{
			Mode:     config.ModeHeuristic,
			Database: "DB",
			Schema:   "SC",
			Name:     "SALES_AGENT",
		},
		DocStore:        config.DocStoreConfig{Type: config.DocStoreSnowflake},
		CredentialStore: store,
	}
}

func TestAppReachesAgentAfterModeSwitch(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"event":"response","data":{"content":[{"type":"text","text":"ok"}]}}]`))
	}))
	defer srv.Close()

	a, err := newApp(testConfig(t, srv.URL))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	_, err = a.assistant.Ask(ctx, assistant.Turn{
		Question: "Hello there",
		Settings: assistant.Settings{Model: "m", Mode: config.ModeHeuristic},
	})
	require.NoError(t, err)

	ans, err := a.assistant.Ask(ctx, assistant.Turn{
		Question: "Hello again",
		Settings: assistant.Settings{Model: "m", Mode: config.ModeAgent},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", ans.Text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/v2/cortex/agent:run",
		"GET /api/v2/databases/db/schemas/sc/agents/SALES_AGENT",
		"POST /api/v2/databases/db/schemas/sc/agents/SALES_AGENT:run",
	}, paths)
}

func TestAgentFromConfig(t *testing.T) {
	cfg := testConfig(t, "https://acct.snowflakecomputing.com")
	ref := agentFromConfig(cfg)
	require.NotNil(t, ref)
	assert.Equal(t, "DB.SC.SALES_AGENT", ref.String())

	cfg.Agent.Name = ""
	assert.Nil(t, agentFromConfig(cfg))
}
