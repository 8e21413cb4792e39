package cortex

import (
	"fmt"
	"strings"
)

// ToolFilter restricts which tools are declared for one agent call.
type ToolFilter int

const (
	FilterNone ToolFilter = iota
	FilterSearchOnly
	FilterAnalystOnly
)

func (f ToolFilter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterSearchOnly:
		return "search_only"
	case FilterAnalystOnly:
		return "analyst_only"
	default:
		return fmt.Sprintf("ToolFilter(%d)", int(f))
	}
}

// Remote tool type identifiers.
const (
	ToolTypeSearch  = "cortex_search"
	ToolTypeAnalyst = "cortex_analyst_text_to_sql"
)

// ThreadContext links a call to a server-side conversation thread.
type ThreadContext struct {
	ThreadID        ID `json:"thread_id"`
	ParentMessageID ID `json:"parent_message_id"`
}

// Complete reports whether both ids are present. Threads are only sent when
// they are.
func (t ThreadContext) Complete() bool {
	return t.ThreadID != "" && t.ParentMessageID != ""
}

// ContentPart is one piece of a message. Only "text" parts are sent.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is one entry of the request's conversation.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ToolSpec declares a tool by remote type and display name.
type ToolSpec struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type Tool struct {
	ToolSpec ToolSpec `json:"tool_spec"`
}

// AgentRequest is the body of an agent :run call.
type AgentRequest struct {
	Model               string         `json:"model,omitempty"`
	Messages            []Message      `json:"messages"`
	Tools               []Tool         `json:"tools,omitempty"`
	ToolResources       map[string]any `json:"tool_resources,omitempty"`
	ResponseInstruction string         `json:"response_instruction,omitempty"`
	ThreadID            ID             `json:"thread_id,omitempty"`
	ParentMessageID     ID             `json:"parent_message_id,omitempty"`
}

// Tools describes the two remote tools and their resource bindings.
type Tools struct {
	SearchName        string
	SearchService     string
	MaxResults        int
	TitleColumn       string
	IDColumn          string
	AnalystName       string
	SemanticModelFile string
}

// DisplayNames maps remote tool types to the names shown to the user.
func (t Tools) DisplayNames() map[string]string {
	return map[string]string{
		ToolTypeSearch:  t.SearchName,
		ToolTypeAnalyst: t.AnalystName,
	}
}

func (t Tools) searchTool() Tool {
	return Tool{ToolSpec: ToolSpec{Type: ToolTypeSearch, Name: t.SearchName}}
}

func (t Tools) analystTool() Tool {
	return Tool{ToolSpec: ToolSpec{Type: ToolTypeAnalyst, Name: t.AnalystName}}
}

func (t Tools) searchResource() map[string]any {
	return map[string]any{
		"name":         t.SearchService,
		"max_results":  t.MaxResults,
		"title_column": t.TitleColumn,
		"id_column":    t.IDColumn,
		"experimental": map[string]any{"returnConfidenceScores": true},
	}
}

func (t Tools) analystResource() map[string]any {
	return map[string]any{"semantic_model_file": t.SemanticModelFile}
}

// declare returns the tool list, resources and instruction for filter.
func (t Tools) declare(filter ToolFilter) ([]Tool, map[string]any, string) {
	switch filter {
	case FilterSearchOnly:
		return []Tool{t.searchTool()},
			map[string]any{t.SearchName: t.searchResource()},
			t.searchInstruction()
	case FilterAnalystOnly:
		return []Tool{t.analystTool()},
			map[string]any{t.AnalystName: t.analystResource()},
			t.analystInstruction()
	default:
		return []Tool{t.analystTool(), t.searchTool()},
			map[string]any{
				t.AnalystName: t.analystResource(),
				t.SearchName:  t.searchResource(),
			},
			t.generalInstruction()
	}
}

func userMessage(text string) []Message {
	return []Message{{Role: "user", Content: []ContentPart{{Type: "text", Text: text}}}}
}

// NewRequest builds an inline-tools request for question. Thread ids are
// attached only when thread carries both of them.
func NewRequest(question, model string, filter ToolFilter, tools Tools, thread *ThreadContext) AgentRequest {
	declared, resources, instruction := tools.declare(filter)
	req := AgentRequest{
		Model:               model,
		Messages:            userMessage(question),
		Tools:               declared,
		ToolResources:       resources,
		ResponseInstruction: instruction,
	}
	attachThread(&req, thread)
	return req
}

// NewAgentRequest builds a request for a preconfigured agent. Tools live in
// the agent definition, so only the question and thread are sent.
func NewAgentRequest(question, model string, thread *ThreadContext) AgentRequest {
	req := AgentRequest{
		Model:    model,
		Messages: userMessage(question),
	}
	attachThread(&req, thread)
	return req
}

func attachThread(req *AgentRequest, thread *ThreadContext) {
	if thread == nil || !thread.Complete() {
		return
	}
	req.ThreadID = thread.ThreadID
	req.ParentMessageID = thread.ParentMessageID
}

func (t Tools) generalInstruction() string {
	r := strings.NewReplacer("{search}", t.SearchName, "{analyst}", t.AnalystName)
	return r.Replace(`You are an intelligent assistant with access to two independent tools:

1. '{search}' - searches a PDF document for policy/procedure information
2. '{analyst}' - queries a database to get quantitative sales data

CRITICAL RULES:
- These tools have COMPLETELY SEPARATE data sources
- '{search}' ONLY has access to policy documents (refund policy, shipping policy, etc.)
- '{analyst}' ONLY has access to the sales database (orders, revenue, customers, etc.)
- You CANNOT answer database questions using '{search}' results
- You CANNOT answer policy questions using '{analyst}' results

EXECUTION STRATEGY:
When a user asks a compound question with multiple parts:
1. Identify ALL distinct questions in the query
2. For EACH question about policies/procedures, call '{search}'
3. For EACH question about data/analytics/numbers, call '{analyst}'
4. You MUST call BOTH tools if the query requires both types of information
5. Only after receiving results from ALL necessary tools, synthesize a complete answer

EXAMPLES:
- "What is the refund policy and how many orders were placed?"
  MUST call BOTH: '{search}' for policy AND '{analyst}' for order count
- "How many refunds were processed?"
  MUST call '{analyst}' (this is asking for data, not policy)
- "What is the shipping policy?"
  MUST call '{search}' (this is asking for policy information)

If you fail to call '{analyst}' for a data question, you are providing incorrect information.`)
}

func (t Tools) searchInstruction() string {
	return fmt.Sprintf(`You are a policy assistant. Use '%s' to answer from the policy and procedure documents only.
Quote the relevant passage and cite the document it came from.
Do not answer questions about sales figures, orders or revenue.`, t.SearchName)
}

func (t Tools) analystInstruction() string {
	return fmt.Sprintf(`You are a sales data analyst. Use '%s' to answer from the sales database only.
Always generate and return the SQL used to compute the answer, and state the numbers it produced.
Do not answer questions about company policies or procedures.`, t.AnalystName)
}
