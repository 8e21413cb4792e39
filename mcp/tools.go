package mcp

import (
	"context"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"cortexchat/assistant"
	"cortexchat/citation"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/router"
)

func (s *Server) addTool(tool mcpgo.Tool, handler mcpserver.ToolHandlerFunc) {
	s.srv.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return s.tools
}

func (s *Server) registerTools() {
	s.addTool(
		mcpgo.NewTool("ask",
			mcpgo.WithDescription("Answer a question about company policies (document search) and/or sales data (text-to-SQL). Returns the answer text, generated SQL and document citations."),
			mcpgo.WithString("question", mcpgo.Required(), mcpgo.Description("The question in natural language")),
			mcpgo.WithString("mode", mcpgo.Description("heuristic (route locally) or agent (let the remote agent decide)"), mcpgo.Enum(config.ModeHeuristic, config.ModeAgent)),
			mcpgo.WithBoolean("use_threads", mcpgo.Description("Continue the server-side conversation thread")),
		),
		s.handleAsk,
	)

	s.addTool(
		mcpgo.NewTool("classify",
			mcpgo.WithDescription("Show which tools a question would be routed to, without calling the agent."),
			mcpgo.WithString("question", mcpgo.Required(), mcpgo.Description("The question to classify")),
		),
		s.handleClassify,
	)

	s.addTool(
		mcpgo.NewTool("run_report",
			mcpgo.WithDescription("Run SQL previously returned by ask and return the result table."),
			mcpgo.WithString("sql", mcpgo.Required(), mcpgo.Description("A single SELECT statement")),
		),
		s.handleRunReport,
	)

	s.addTool(
		mcpgo.NewTool("new_conversation",
			mcpgo.WithDescription("Forget the current conversation thread."),
		),
		s.handleNewConversation,
	)

	if s.docs != nil {
		s.addTool(
			mcpgo.NewTool("lookup_citation",
				mcpgo.WithDescription("Resolve a citation returned by ask to its text chunk (.pdf) or a signed URL (.jpeg)."),
				mcpgo.WithString("doc_title", mcpgo.Required(), mcpgo.Description("Document path as returned in the citation")),
				mcpgo.WithString("doc_chunk", mcpgo.Description("Chunk index for .pdf documents")),
				mcpgo.WithString("source_id", mcpgo.Description("Citation number, echoed back")),
			),
			s.handleLookupCitation,
		)
	}
}

type askResult struct {
	Answer    string            `json:"answer"`
	SQL       string            `json:"sql,omitempty"`
	Citations []cortex.Citation `json:"citations,omitempty"`
	ToolsUsed []string          `json:"tools_used,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
	Route     string            `json:"route"`
	ThreadID  cortex.ID         `json:"thread_id,omitempty"`
}

func (s *Server) handleAsk(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	settings := s.settings
	settings.Mode = req.GetString("mode", settings.Mode)
	settings.UseThreads = req.GetBool("use_threads", settings.UseThreads)
	if settings.Mode != config.ModeHeuristic && settings.Mode != config.ModeAgent {
		return mcpgo.NewToolResultError(fmt.Sprintf("unknown mode %q", settings.Mode)), nil
	}

	if settings.UseThreads {
		s.turnMu.Lock()
		defer s.turnMu.Unlock()
	}
	thread, gen := s.currentThread()

	ans, err := s.asker.Ask(ctx, assistant.Turn{
		Question: question,
		Settings: settings,
		Thread:   thread,
	})
	if err != nil {
		config.Log.Error().Err(err).Msg("mcp ask failed")
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if settings.UseThreads && !s.commitThread(ans.Thread, gen) {
		config.Log.Debug().Str("thread_id", ans.Thread.ThreadID.String()).Msg("conversation reset during ask, thread dropped")
	}

	return jsonResult(askResult{
		Answer:    cortex.CleanText(ans.Text),
		SQL:       ans.SQL,
		Citations: ans.Citations,
		ToolsUsed: ans.ToolsUsed,
		Notes:     ans.Notes,
		Route:     ans.Scope.String(),
		ThreadID:  ans.Thread.ThreadID,
	})
}

func (s *Server) handleClassify(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	scope := router.Classify(question)
	return jsonResult(map[string]any{
		"needs_search":  scope.NeedsSearch,
		"needs_analyst": scope.NeedsAnalyst,
		"route":         scope.String(),
		"filter":        scope.Filter().String(),
	})
}

func (s *Server) handleRunReport(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	rep, err := s.asker.RunReport(ctx, sql)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"title":   rep.Title,
		"columns": rep.Columns,
		"rows":    rep.Rows,
	})
}

func (s *Server) handleNewConversation(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	s.resetThread()
	return mcpgo.NewToolResultText("conversation reset"), nil
}

func (s *Server) handleLookupCitation(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	title, err := req.RequireString("doc_title")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	c := cortex.Citation{
		SourceID: cortex.ID(req.GetString("source_id", "")),
		DocTitle: title,
		DocChunk: cortex.ID(req.GetString("doc_chunk", "")),
	}

	resolved := citation.NewRenderer(s.docs).Resolve(ctx, []cortex.Citation{c})
	if len(resolved) == 0 {
		return mcpgo.NewToolResultError(fmt.Sprintf("unsupported document type: %s", title)), nil
	}
	r := resolved[0]
	if r.Err != nil {
		return mcpgo.NewToolResultError(r.Err.Error()), nil
	}
	return jsonResult(map[string]any{
		"source_id": r.Citation.SourceID,
		"doc_title": r.Citation.DocTitle,
		"kind":      kindName(r.Kind),
		"body":      r.Body,
		"missing":   r.Missing,
	})
}

func kindName(k citation.Kind) string {
	if k == citation.KindImage {
		return "url"
	}
	return "text"
}
