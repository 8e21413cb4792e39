package cortex

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response body is neither a JSON
// event array nor an event stream.
var ErrMalformedResponse = errors.New("malformed agent response")

// StatusError is a non-success HTTP status from the REST API.
type StatusError struct {
	Code   int
	Reason string
	Body   string
}

func (e *StatusError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "Unknown reason"
	}
	if e.Body == "" {
		return fmt.Sprintf("HTTP Error: %d - %s", e.Code, reason)
	}
	return fmt.Sprintf("HTTP Error: %d - %s: %s", e.Code, reason, e.Body)
}

// IsNotFound reports whether err is a 404 from the REST API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}
