package cortex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a server-assigned identifier (thread id, message id, source id).
// The API sends these as numbers or strings; numeric ids are written back
// as numbers.
type ID string

// MarshalJSON writes canonical integers ("17", "0", "-3") as JSON numbers and
// anything else, including "007" and "+5", as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isInt() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) isInt() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }
