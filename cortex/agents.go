package cortex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"cortexchat/config"
)

// AgentRef names a preconfigured agent object.
type AgentRef struct {
	Database string
	Schema   string
	Name     string
}

// Path is the REST resource of the agent. Database and schema are
// lower-cased, the agent name is kept as is.
func (r AgentRef) Path() string {
	return fmt.Sprintf("/api/v2/databases/%s/schemas/%s/agents/%s",
		strings.ToLower(r.Database), strings.ToLower(r.Schema), r.Name)
}

func (r AgentRef) collectionPath() string {
	return fmt.Sprintf("/api/v2/databases/%s/schemas/%s/agents",
		strings.ToLower(r.Database), strings.ToLower(r.Schema))
}

// String is the fully qualified DATABASE.SCHEMA.NAME.
func (r AgentRef) String() string {
	return r.Database + "." + r.Schema + "." + r.Name
}

// AgentExists reports whether the agent object is present. A 404 is not an
// error.
func (c *Client) AgentExists(ctx context.Context, ref AgentRef) (bool, error) {
	resp, err := c.httpClient.R().SetContext(ctx).Get(ref.Path())
	if err != nil {
		return false, fmt.Errorf("failed to check agent %s: %w", ref, err)
	}
	switch {
	case resp.StatusCode() == http.StatusOK:
		return true, nil
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	default:
		return false, statusErrorFromBody(resp)
	}
}

// CreateAgent creates the agent from spec. The API expects agent_spec as a
// JSON-encoded string, not an object.
func (c *Client) CreateAgent(ctx context.Context, ref AgentRef, spec json.RawMessage) error {
	payload := map[string]string{
		"name":       ref.Name,
		"agent_spec": string(spec),
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(ref.collectionPath())
	if err != nil {
		return fmt.Errorf("failed to create agent %s: %w", ref, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return statusErrorFromBody(resp)
	}
	config.Log.Info().Str("agent", ref.String()).Msg("agent created")
	return nil
}

// EnsureAgent creates the agent when it does not exist. loadSpec is only
// called when creation is needed.
func (c *Client) EnsureAgent(ctx context.Context, ref AgentRef, loadSpec func() (json.RawMessage, error)) (created bool, err error) {
	exists, err := c.AgentExists(ctx, ref)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	spec, err := loadSpec()
	if err != nil {
		return false, fmt.Errorf("failed to load agent configuration: %w", err)
	}
	if err := c.CreateAgent(ctx, ref, spec); err != nil {
		return false, err
	}
	return true, nil
}
