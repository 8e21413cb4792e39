package cortex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const statementsPath = "/api/v2/statements"

// ResultSet is a fully materialized SQL API result. Values are the API's
// string renderings; NULL becomes an empty string.
type ResultSet struct {
	Columns []string
	Rows    [][]string
	Handle  string
}

// Empty reports whether r has no rows. A nil ResultSet is empty.
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// First returns the first column of the first row.
func (r *ResultSet) First() (string, bool) {
	if r.Empty() || len(r.Rows[0]) == 0 {
		return "", false
	}
	return r.Rows[0][0], true
}

type binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type statementRequest struct {
	Statement string             `json:"statement"`
	Timeout   int                `json:"timeout"`
	Warehouse string             `json:"warehouse,omitempty"`
	Role      string             `json:"role,omitempty"`
	Bindings  map[string]binding `json:"bindings,omitempty"`
}

type statementResponse struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	StatementHandle   string `json:"statementHandle"`
	ResultSetMetaData struct {
		RowType []struct {
			Name string `json:"name"`
		} `json:"rowType"`
	} `json:"resultSetMetaData"`
	Data [][]*string `json:"data"`
}

// Statement runs sql through the SQL API with positional bindings (? markers).
// Strings bind as TEXT, integers as FIXED.
func (c *Client) Statement(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	bindings, err := bind(args)
	if err != nil {
		return nil, err
	}

	body := statementRequest{
		Statement: sql,
		Timeout:   int(DefaultTimeout / time.Second),
		Warehouse: c.warehouse,
		Role:      c.role,
		Bindings:  bindings,
	}

	var out statementResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(statementsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	if resp.IsError() {
		return nil, statusErrorFromBody(resp)
	}

	for resp.StatusCode() == http.StatusAccepted {
		if out.StatementHandle == "" {
			return nil, fmt.Errorf("%w: statement accepted without handle", ErrMalformedResponse)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		handle := out.StatementHandle
		out = statementResponse{}
		resp, err = c.httpClient.R().
			SetContext(ctx).
			SetResult(&out).
			Get(statementsPath + "/" + handle)
		if err != nil {
			return nil, fmt.Errorf("failed to poll statement %s: %w", handle, err)
		}
		if resp.IsError() {
			return nil, statusErrorFromBody(resp)
		}
	}

	rs := &ResultSet{Handle: out.StatementHandle}
	for _, col := range out.ResultSetMetaData.RowType {
		rs.Columns = append(rs.Columns, col.Name)
	}
	for _, row := range out.Data {
		vals := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				vals[i] = *v
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, nil
}

func bind(args []any) (map[string]binding, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]binding, len(args))
	for i, a := range args {
		var b binding
		switch v := a.(type) {
		case string:
			b = binding{Type: "TEXT", Value: v}
		case ID:
			if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				b = binding{Type: "FIXED", Value: string(v)}
			} else {
				b = binding{Type: "TEXT", Value: string(v)}
			}
		case int:
			b = binding{Type: "FIXED", Value: strconv.Itoa(v)}
		case int64:
			b = binding{Type: "FIXED", Value: strconv.FormatInt(v, 10)}
		case json.Number:
			b = binding{Type: "FIXED", Value: v.String()}
		default:
			return nil, fmt.Errorf("unsupported binding type %T at position %d", a, i+1)
		}
		out[strconv.Itoa(i+1)] = b
	}
	return out, nil
}

// TrimStatement drops trailing semicolons, which the SQL API rejects for
// single statements.
func TrimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \n\t")
}
