package assistant

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/router"
)

// dual answers a compound question with two single-tool calls issued
// concurrently. Neither call carries thread ids: two calls with the same
// parent would fork the thread.
//
// The halves are merged by role, never by completion order: text is search
// then analyst, SQL comes only from the analyst call and citations only from
// the search call.
func (a *Assistant) dual(ctx context.Context, turn Turn) (*Answer, error) {
	splitModel := a.splitModel
	if splitModel == "" {
		splitModel = turn.Settings.Model
	}
	split := router.SplitQuestion(ctx, a.splitter, turn.Question, splitModel)
	config.Log.Debug().
		Str("search_query", split.SearchQuery).
		Str("analyst_query", split.AnalystQuery).
		Bool("fallback", split.Fallback).
		Msg("question split")

	var (
		search, analyst       call
		searchErr, analystErr error
		g                     errgroup.Group
	)
	// Each half records its own error so one failure does not cancel the
	// other.
	g.Go(func() error {
		req := cortex.NewRequest(split.SearchQuery, turn.Settings.Model, cortex.FilterSearchOnly, a.tools, nil)
		search, searchErr = a.invoke(ctx, req, false, turn.Settings.Debug)
		return nil
	})
	g.Go(func() error {
		req := cortex.NewRequest(split.AnalystQuery, turn.Settings.Model, cortex.FilterAnalystOnly, a.tools, nil)
		analyst, analystErr = a.invoke(ctx, req, false, turn.Settings.Debug)
		return nil
	})
	_ = g.Wait()

	if searchErr != nil && analystErr != nil {
		return nil, fmt.Errorf("both agent calls failed: %w", errors.Join(searchErr, analystErr))
	}

	ans := &Answer{Thread: turn.Thread, Calls: 2, Split: &split}
	var texts []string

	if searchErr != nil {
		ans.Notes = append(ans.Notes, fmt.Sprintf("%s failed: %v", a.tools.SearchName, searchErr))
	} else {
		texts = append(texts, search.result.Text)
		ans.Citations = search.result.Citations
		ans.ToolsUsed = append(ans.ToolsUsed, search.result.UniqueTools()...)
		ans.Trace = append(ans.Trace, search.trace...)
		ans.Events += search.result.EventCount
	}

	if analystErr != nil {
		ans.Notes = append(ans.Notes, fmt.Sprintf("%s failed: %v", a.tools.AnalystName, analystErr))
	} else {
		texts = append(texts, analyst.result.Text)
		ans.SQL = analyst.result.SQL
		for _, t := range analyst.result.UniqueTools() {
			if !contains(ans.ToolsUsed, t) {
				ans.ToolsUsed = append(ans.ToolsUsed, t)
			}
		}
		ans.Trace = append(ans.Trace, analyst.trace...)
		ans.Events += analyst.result.EventCount
	}

	ans.Text = joinTexts(texts)
	return ans, nil
}

// joinTexts separates non-empty parts with a blank line.
func joinTexts(parts []string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
