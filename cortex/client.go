package cortex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"cortexchat/config"
)

// DefaultTimeout bounds every REST call, including reading a streamed body.
const DefaultTimeout = 50 * time.Second

const (
	inlineRunPath = "/api/v2/cortex/agent:run"
	threadsPath   = "/api/v2/cortex/threads"
)

// Options configure a Client. AccountURL and Token are required.
type Options struct {
	// AccountURL is https://<account>.snowflakecomputing.com
	AccountURL string
	// Token is a programmatic access token.
	Token     string
	Role      string
	Warehouse string
	Timeout   time.Duration
}

// Client talks to the Snowflake Cortex REST API.
type Client struct {
	httpClient *resty.Client
	warehouse  string
	role       string
}

// NewClient returns a Client authenticated with a programmatic access token.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.AccountURL) == "" {
		return nil, fmt.Errorf("account URL is required")
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("Snowflake access token is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.AccountURL, "/")).
		SetAuthToken(opts.Token).
		SetHeader("X-Snowflake-Authorization-Token-Type", "PROGRAMMATIC_ACCESS_TOKEN").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "cortexchat").
		SetTimeout(opts.Timeout)
	if opts.Role != "" {
		hc.SetHeader("X-Snowflake-Role", opts.Role)
	}

	return &Client{
		httpClient: hc,
		warehouse:  opts.Warehouse,
		role:       opts.Role,
	}, nil
}

// Run posts req to the inline-tools endpoint and returns the decoded events.
// There are no retries: any failure is final for the call.
func (c *Client) Run(ctx context.Context, req AgentRequest) ([]Event, error) {
	return c.run(ctx, inlineRunPath, req)
}

// RunAgent posts req to a preconfigured agent.
func (c *Client) RunAgent(ctx context.Context, ref AgentRef, req AgentRequest) ([]Event, error) {
	return c.run(ctx, ref.Path()+":run", req)
}

func (c *Client) run(ctx context.Context, path string, body AgentRequest) ([]Event, error) {
	requestID := uuid.NewString()
	log := config.Log.With().Str("request_id", requestID).Str("path", path).Logger()
	log.Debug().
		Str("model", body.Model).
		Int("tools", len(body.Tools)).
		Str("thread_id", body.ThreadID.String()).
		Msg("agent request")

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("stream", "true").
		SetHeader("Accept", "text/event-stream, application/json").
		SetHeader("X-Request-ID", requestID).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(path)
	if err != nil {
		log.Error().Err(err).Msg("agent request failed")
		return nil, fmt.Errorf("failed to call agent: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.IsError() {
		se := statusError(resp, raw)
		log.Error().Int("status", se.Code).Str("body", se.Body).Msg("agent returned error status")
		return nil, se
	}

	events, err := DecodeEvents(raw, resp.Header().Get("Content-Type"))
	if err != nil {
		log.Error().Err(err).Msg("failed to decode agent response")
		return nil, err
	}
	log.Debug().Int("events", len(events)).Dur("elapsed", time.Since(start)).Msg("agent response")
	return events, nil
}

// Complete sends prompt with no tools declared and returns the answer text.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	req := AgentRequest{Model: model, Messages: userMessage(prompt)}
	events, err := c.Run(ctx, req)
	if err != nil {
		return "", err
	}
	res := (&Assembler{}).Assemble(events)
	return res.Text, nil
}

// CreateThread opens a server-side conversation thread. The first turn in a
// thread uses parent message id 0.
func (c *Client) CreateThread(ctx context.Context, origin string) (ThreadContext, error) {
	var out struct {
		ThreadID ID `json:"thread_id"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"origin_application": origin}).
		SetResult(&out).
		Post(threadsPath)
	if err != nil {
		return ThreadContext{}, fmt.Errorf("failed to create thread: %w", err)
	}
	if resp.IsError() {
		return ThreadContext{}, statusErrorFromBody(resp)
	}
	if out.ThreadID == "" {
		return ThreadContext{}, fmt.Errorf("%w: thread response has no thread_id", ErrMalformedResponse)
	}

	config.Log.Debug().Str("thread_id", out.ThreadID.String()).Msg("thread created")
	return ThreadContext{ThreadID: out.ThreadID, ParentMessageID: "0"}, nil
}

// Ping checks that the account URL and token are accepted.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("showLimit", "1").
		Get("/api/v2/databases")
	if err != nil {
		return fmt.Errorf("failed to reach Snowflake: %w", err)
	}
	if resp.IsError() {
		return statusErrorFromBody(resp)
	}
	return nil
}

func statusError(resp *resty.Response, body io.Reader) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(body, 4096))
	return newStatusError(resp.StatusCode(), resp.Status(), string(b))
}

func statusErrorFromBody(resp *resty.Response) *StatusError {
	return newStatusError(resp.StatusCode(), resp.Status(), truncate(resp.String(), 4096))
}

func newStatusError(code int, status, body string) *StatusError {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		reason = http.StatusText(code)
	}
	return &StatusError{Code: code, Reason: reason, Body: strings.TrimSpace(body)}
}
