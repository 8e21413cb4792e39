package main

import (
	"fmt"
	"time"

	"cortexchat/assistant"
	"cortexchat/citation"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/provider"
	"cortexchat/storage"
)

// app is the wiring shared by the TUI and the non-interactive commands.
type app struct {
	cfg       *config.Config
	client    *cortex.Client
	docs      citation.DocStore
	mirror    *storage.DocMirror
	assistant *assistant.Assistant
}

func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Token() == "" {
		return nil, fmt.Errorf("no Snowflake access token: set SNOWFLAKE_PAT or run `cortexchat init --token`")
	}

	client, err := cortex.NewClient(cortex.Options{
		AccountURL: cfg.Snowflake.AccountURL,
		Token:      cfg.Token(),
		Role:       cfg.Snowflake.Role,
		Warehouse:  cfg.Snowflake.Warehouse,
		Timeout:    time.Duration(cfg.Snowflake.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake client: %w", err)
	}

	a := &app{cfg: cfg, client: client}

	switch cfg.DocStore.Type {
	case config.DocStoreSQLite:
		mirror, err := storage.OpenDocMirror(config.ResolvePath(cfg.DataDir(), cfg.DocStore.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open document mirror: %w", err)
		}
		a.mirror = mirror
		a.docs = mirror
	default:
		a.docs = citation.NewSnowflakeStore(client, cfg.Tools.DocsStage, cfg.Tools.ChunksTable)
	}

	splitter, splitModel := provider.InitializeSplitter(cfg, client)

	opts := assistant.Options{
		Tools:      toolsFromConfig(cfg.Tools),
		SpecFile:   config.ResolvePath(cfg.DataDir(), cfg.Agent.SpecFile),
		Origin:     cfg.Chat.OriginApplication,
		Splitter:   splitter,
		SplitModel: splitModel,
		Docs:       a.docs,
	}
	opts.Agent = agentFromConfig(cfg)
	a.assistant = assistant.New(client, opts)

	config.Log.Debug().
		Str("account", cfg.Snowflake.AccountURL).
		Str("mode", cfg.Agent.Mode).
		Str("docstore", cfg.DocStore.Type).
		Str("splitter", provider.Describe(cfg)).
		Msg("app initialized")
	return a, nil
}

// Close releases the local document mirror when one is open.
func (a *app) Close() error {
	if a.mirror != nil {
		return a.mirror.Close()
	}
	return nil
}

// agentFromConfig returns the preconfigured agent, or nil when none is
// named. It is set regardless of the startup mode so that a switch to agent
// mode later in the session reaches it.
func agentFromConfig(cfg *config.Config) *cortex.AgentRef {
	if !cfg.HasAgent() {
		return nil
	}
	return &cortex.AgentRef{
		Database: cfg.Agent.Database,
		Schema:   cfg.Agent.Schema,
		Name:     cfg.Agent.Name,
	}
}

func toolsFromConfig(t config.ToolsConfig) cortex.Tools {
	return cortex.Tools{
		SearchName:        t.SearchName,
		SearchService:     t.SearchService,
		MaxResults:        t.MaxResults,
		TitleColumn:       t.TitleColumn,
		IDColumn:          t.IDColumn,
		AnalystName:       t.AnalystName,
		SemanticModelFile: t.SemanticModelFile,
	}
}
