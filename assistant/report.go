package assistant

import (
	"context"
	"fmt"
	"strings"

	"cortexchat/cortex"
)

// ReportTitle heads the table produced from generated SQL.
const ReportTitle = "Sales Metrics Report"

// Report is the table produced by running an answer's SQL.
type Report struct {
	Title   string
	SQL     string
	Columns []string
	Rows    [][]string
}

// RunReport executes SQL generated by the analyst tool. A trailing semicolon
// is stripped first.
func (a *Assistant) RunReport(ctx context.Context, sql string) (*Report, error) {
	stmt := cortex.TrimStatement(sql)
	if strings.TrimSpace(stmt) == "" {
		return nil, fmt.Errorf("no SQL to run")
	}

	rs, err := a.backend.Statement(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to run report query: %w", err)
	}
	return &Report{
		Title:   ReportTitle,
		SQL:     stmt,
		Columns: rs.Columns,
		Rows:    rs.Rows,
	}, nil
}
