package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadAgentSpec reads an agent definition exported as
// {"data": {"agent_spec": {...}}} and returns the agent_spec object.
func LoadAgentSpec(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent spec %s: %w", path, err)
	}

	var doc struct {
		Data struct {
			AgentSpec json.RawMessage `json:"agent_spec"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON in agent spec %s: %w", path, err)
	}

	spec := bytes.TrimSpace(doc.Data.AgentSpec)
	if len(spec) == 0 || bytes.Equal(spec, []byte("null")) || bytes.Equal(spec, []byte("{}")) {
		return nil, fmt.Errorf("agent spec %s has no data.agent_spec", path)
	}
	return spec, nil
}
