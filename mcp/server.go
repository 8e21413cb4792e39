// Package mcp exposes the assistant as an MCP server over stdio, so other
// agents can ask the same questions the TUI does.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"cortexchat/assistant"
	"cortexchat/citation"
	"cortexchat/config"
	"cortexchat/cortex"
)

// Asker is the part of assistant.Assistant the server needs.
type Asker interface {
	Ask(ctx context.Context, turn assistant.Turn) (*assistant.Answer, error)
	RunReport(ctx context.Context, sql string) (*assistant.Report, error)
}

// Server holds one conversation: thread context persists across ask calls
// until new_conversation resets it.
type Server struct {
	asker    Asker
	docs     citation.DocStore
	settings assistant.Settings
	srv      *mcpserver.MCPServer
	tools    []string

	// turnMu serializes threaded asks so each one sees the thread the
	// previous one advanced.
	turnMu sync.Mutex

	mu     sync.Mutex
	thread cortex.ThreadContext
	// gen is bumped by new_conversation. A turn that started under an older
	// generation does not write its thread back.
	gen uint64
}

// NewServer registers all tools. docs may be nil, in which case
// lookup_citation is not offered.
func NewServer(asker Asker, docs citation.DocStore, settings assistant.Settings, version string) *Server {
	s := &Server{
		asker:    asker,
		docs:     docs,
		settings: settings,
		srv: mcpserver.NewMCPServer("cortexchat", version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, e.g. to mount it on another
// transport.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.srv
}

// Serve speaks MCP on in and out until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	config.Log.Info().Str("model", s.settings.Model).Str("mode", s.settings.Mode).Msg("mcp server listening on stdio")
	return mcpserver.NewStdioServer(s.srv).Listen(ctx, in, out)
}

func (s *Server) currentThread() (cortex.ThreadContext, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread, s.gen
}

// commitThread stores t unless the conversation was reset since gen.
func (s *Server) commitThread(t cortex.ThreadContext, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.thread = t
	return true
}

func (s *Server) resetThread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thread = cortex.ThreadContext{}
	s.gen++
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
