// Package assistant runs one chat turn against the remote agent: it picks
// the tools, issues one or two calls, merges what came back and resolves
// citations.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cortexchat/citation"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/router"
)

// Backend is the part of cortex.Client a turn needs.
type Backend interface {
	Run(ctx context.Context, req cortex.AgentRequest) ([]cortex.Event, error)
	RunAgent(ctx context.Context, ref cortex.AgentRef, req cortex.AgentRequest) ([]cortex.Event, error)
	CreateThread(ctx context.Context, origin string) (cortex.ThreadContext, error)
	EnsureAgent(ctx context.Context, ref cortex.AgentRef, loadSpec func() (json.RawMessage, error)) (bool, error)
	Statement(ctx context.Context, sql string, args ...any) (*cortex.ResultSet, error)
}

// Settings are the per-session choices that shape a turn.
type Settings struct {
	Model      string `json:"model"`
	Debug      bool   `json:"debug"`
	Mode       string `json:"mode"`
	UseThreads bool   `json:"use_threads"`
}

// Options configure an Assistant. Only Tools is required.
type Options struct {
	Tools cortex.Tools
	// Agent names the preconfigured agent used in agent mode. Nil means
	// agent mode falls back to one unfiltered inline call.
	Agent *cortex.AgentRef
	// SpecFile is read when the agent has to be created.
	SpecFile string
	Origin   string
	// Splitter partitions compound questions. Nil disables splitting.
	Splitter router.Completer
	// SplitModel defaults to the turn's model.
	SplitModel string
	// Docs resolves citations. Nil leaves them unresolved.
	Docs citation.DocStore
}

// Assistant answers questions one turn at a time. It is safe for
// concurrent use; per-session state travels on Turn and Answer.
type Assistant struct {
	backend    Backend
	tools      cortex.Tools
	agent      *cortex.AgentRef
	specFile   string
	origin     string
	splitter   router.Completer
	splitModel string
	renderer   *citation.Renderer

	// provisioned is set once the agent is known to exist.
	mu          sync.Mutex
	provisioned bool
}

// New returns an Assistant that sends every call through backend.
func New(backend Backend, opts Options) *Assistant {
	a := &Assistant{
		backend:    backend,
		tools:      opts.Tools,
		agent:      opts.Agent,
		specFile:   opts.SpecFile,
		origin:     opts.Origin,
		splitter:   opts.Splitter,
		splitModel: opts.SplitModel,
	}
	if opts.Docs != nil {
		a.renderer = citation.NewRenderer(opts.Docs)
	}
	return a
}

// Provision makes sure the preconfigured agent exists, creating it from the
// spec file if needed. It is a no-op without an agent. A failure here means
// agent mode cannot be used at all.
func (a *Assistant) Provision(ctx context.Context) (created bool, err error) {
	if a.agent == nil {
		return false, nil
	}
	created, err = a.backend.EnsureAgent(ctx, *a.agent, func() (json.RawMessage, error) {
		return config.LoadAgentSpec(a.specFile)
	})
	if err != nil {
		return false, fmt.Errorf("failed to provision agent %s: %w", a.agent, err)
	}
	a.mu.Lock()
	a.provisioned = true
	a.mu.Unlock()
	return created, nil
}

// ensureProvisioned provisions the agent on the first agent-mode turn when
// the session started in another mode.
func (a *Assistant) ensureProvisioned(ctx context.Context) error {
	if a.agent == nil {
		return nil
	}
	a.mu.Lock()
	done := a.provisioned
	a.mu.Unlock()
	if done {
		return nil
	}
	_, err := a.Provision(ctx)
	return err
}

// Turn is one question plus the session state it runs under.
type Turn struct {
	Question string
	Settings Settings
	// Thread is the session's thread context. It is only read; the updated
	// context comes back on the Answer.
	Thread cortex.ThreadContext
}

// Answer is the merged outcome of a turn.
type Answer struct {
	Text      string
	SQL       string
	Citations []cortex.Citation
	Resolved  []citation.Resolved
	ToolsUsed []string
	// Notes describe calls that failed while the turn as a whole succeeded.
	Notes []string
	// Warnings are debug summaries, e.g. a compound question that only
	// reached one tool.
	Warnings []string
	Trace    []cortex.TraceEntry
	Scope    router.Scope
	Split    *router.Split
	Thread   cortex.ThreadContext
	Calls    int
	Events   int
}

// ErrEmptyQuestion is returned for blank input.
var ErrEmptyQuestion = errors.New("question is empty")

// Ask runs one turn. The returned error is non-nil only when no call
// produced an answer.
func (a *Assistant) Ask(ctx context.Context, turn Turn) (*Answer, error) {
	if turn.Question == "" {
		return nil, ErrEmptyQuestion
	}

	log := config.Log.With().Str("mode", turn.Settings.Mode).Str("model", turn.Settings.Model).Logger()
	scope := router.Classify(turn.Question)
	log.Debug().Str("scope", scope.String()).Msg("turn started")

	var (
		ans *Answer
		err error
	)
	switch {
	case turn.Settings.Mode == config.ModeAgent:
		if err = a.ensureProvisioned(ctx); err == nil {
			ans, err = a.single(ctx, turn, cortex.FilterNone, true)
		}
	case scope.Both():
		ans, err = a.dual(ctx, turn)
	default:
		ans, err = a.single(ctx, turn, scope.Filter(), false)
	}
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		return nil, err
	}

	ans.Scope = scope
	ans.Warnings = append(ans.Warnings, coverageWarnings(scope, a.tools, ans.ToolsUsed)...)
	if a.renderer != nil && len(ans.Citations) > 0 {
		ans.Resolved = a.renderer.Resolve(ctx, ans.Citations)
	}

	log.Debug().
		Int("calls", ans.Calls).
		Int("events", ans.Events).
		Strs("tools", ans.ToolsUsed).
		Bool("sql", ans.SQL != "").
		Int("citations", len(ans.Citations)).
		Msg("turn complete")
	return ans, nil
}

// call is the outcome of one agent request.
type call struct {
	result cortex.Result
	trace  []cortex.TraceEntry
}

func (a *Assistant) invoke(ctx context.Context, req cortex.AgentRequest, useAgent, debug bool) (call, error) {
	var (
		events []cortex.Event
		err    error
	)
	if useAgent && a.agent != nil {
		events, err = a.backend.RunAgent(ctx, *a.agent, req)
	} else {
		events, err = a.backend.Run(ctx, req)
	}
	if err != nil {
		return call{}, err
	}

	var c call
	asm := cortex.NewAssembler(a.tools)
	if debug {
		asm.Trace = func(e cortex.TraceEntry) { c.trace = append(c.trace, e) }
	}
	c.result = asm.Assemble(events)
	return c, nil
}

// single issues one call. It is the only path that uses threads.
func (a *Assistant) single(ctx context.Context, turn Turn, filter cortex.ToolFilter, useAgent bool) (*Answer, error) {
	ans := &Answer{Thread: turn.Thread, Calls: 1}

	var thread *cortex.ThreadContext
	if turn.Settings.UseThreads {
		if !ans.Thread.Complete() {
			tc, err := a.backend.CreateThread(ctx, a.origin)
			if err != nil {
				config.Log.Warn().Err(err).Msg("thread creation failed, continuing without thread")
				ans.Notes = append(ans.Notes, fmt.Sprintf("Thread unavailable: %v", err))
			} else {
				ans.Thread = tc
			}
		}
		if ans.Thread.Complete() {
			thread = &ans.Thread
		}
	}

	var req cortex.AgentRequest
	if useAgent && a.agent != nil {
		req = cortex.NewAgentRequest(turn.Question, turn.Settings.Model, thread)
	} else {
		req = cortex.NewRequest(turn.Question, turn.Settings.Model, filter, a.tools, thread)
	}

	c, err := a.invoke(ctx, req, useAgent, turn.Settings.Debug)
	if err != nil {
		return nil, err
	}

	res := c.result
	ans.Text = res.Text
	ans.SQL = res.SQL
	ans.Citations = res.Citations
	ans.ToolsUsed = res.UniqueTools()
	ans.Trace = c.trace
	ans.Events = res.EventCount

	if thread != nil && res.HasMetadata && res.Metadata.MessageID != "" {
		ans.Thread.ParentMessageID = res.Metadata.MessageID
	}
	return ans, nil
}

func coverageWarnings(scope router.Scope, tools cortex.Tools, used []string) []string {
	has := make(map[string]bool, len(used))
	for _, u := range used {
		has[u] = true
	}
	var out []string
	if scope.NeedsSearch && !has[tools.SearchName] {
		out = append(out, fmt.Sprintf("Question looked like a policy question but %s was not used", tools.SearchName))
	}
	if scope.NeedsAnalyst && !has[tools.AnalystName] {
		out = append(out, fmt.Sprintf("Question looked like a data question but %s was not used", tools.AnalystName))
	}
	return out
}
