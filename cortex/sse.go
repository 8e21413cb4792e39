package cortex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	dataPrefix  = "data:"
	eventPrefix = "event:"
	doneMarker  = "[DONE]"

	maxLineSize = 4 << 20
)

// DecodeEvents reads an agent response body. The body is either a JSON array
// of {event, data} objects or a text/event-stream. A bare JSON string or null
// decodes to no events.
func DecodeEvents(r io.Reader, contentType string) ([]Event, error) {
	if strings.Contains(contentType, "text/event-stream") {
		return readSSE(r)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var events []Event
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return events, nil
	case '"':
		return nil, nil
	case '{':
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil || ev.Name == "" {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(string(body), 200))
		}
		return []Event{ev}, nil
	}

	if bytes.HasPrefix(body, []byte(eventPrefix)) || bytes.HasPrefix(body, []byte(dataPrefix)) {
		return readSSE(bytes.NewReader(body))
	}
	return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(string(body), 200))
}

func readSSE(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		events []Event
		name   string
		data   []string
	)

	flush := func() error {
		defer func() { name, data = "", nil }()
		if len(data) == 0 {
			return nil
		}
		payload := strings.Join(data, "\n")
		if !json.Valid([]byte(payload)) {
			return fmt.Errorf("%w: invalid event data %q", ErrMalformedResponse, truncate(payload, 200))
		}
		if name == "" {
			// data-only frames carry the whole envelope
			var ev Event
			if err := json.Unmarshal([]byte(payload), &ev); err == nil && ev.Name != "" {
				events = append(events, ev)
			}
			return nil
		}
		events = append(events, Event{Name: name, Data: json.RawMessage(payload)})
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "":
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, eventPrefix):
			name = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
		case strings.HasPrefix(line, dataPrefix):
			d := strings.TrimPrefix(strings.TrimPrefix(line, dataPrefix), " ")
			if d == doneMarker {
				return events, nil
			}
			data = append(data, d)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event stream: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return events, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
