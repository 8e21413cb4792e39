package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cortexchat/assistant"
	"cortexchat/config"
	"cortexchat/cortex"
	appmodel "cortexchat/model"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Long: `Ask one question without starting the chat. The answer, its citations and
any generated SQL are printed to stdout. Logs go to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("model", "", "Model to use (default from config)")
	askCmd.Flags().String("mode", "", "Orchestration mode: heuristic or agent")
	askCmd.Flags().Bool("debug", false, "Print the event trace")
	askCmd.Flags().Bool("report", false, "Run the generated SQL and print the report")
	askCmd.Flags().Bool("json", false, "Print the answer as JSON")
}

// askOutput is the --json form of an answer.
type askOutput struct {
	Answer    string            `json:"answer"`
	SQL       string            `json:"sql,omitempty"`
	Citations []askCitation     `json:"citations,omitempty"`
	Tools     []string          `json:"tools_used,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	Report    *assistant.Report `json:"report,omitempty"`
}

type askCitation struct {
	SourceID string `json:"source_id"`
	DocTitle string `json:"doc_title"`
	Content  string `json:"content,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	settings := appmodel.DefaultSettings(cfg)
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		settings.Model = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		settings.Mode = v
	}
	settings.Debug, _ = cmd.Flags().GetBool("debug")
	// a single question has no thread to continue
	settings.UseThreads = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if settings.Mode == config.ModeAgent {
		if _, err := a.assistant.Provision(ctx); err != nil {
			return fmt.Errorf("agent unavailable: %w", err)
		}
	}

	question := strings.Join(args, " ")
	ans, err := a.assistant.Ask(ctx, assistant.Turn{Question: question, Settings: settings})
	if err != nil {
		return err
	}

	var report *assistant.Report
	if wantReport, _ := cmd.Flags().GetBool("report"); wantReport && ans.SQL != "" {
		report, err = a.assistant.RunReport(ctx, ans.SQL)
		if err != nil {
			config.Log.Error().Err(err).Msg("report failed")
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toAskOutput(ans, report))
	}
	printAnswer(out, ans, report, settings.Debug)
	return nil
}

func toAskOutput(ans *assistant.Answer, report *assistant.Report) askOutput {
	o := askOutput{
		Answer:   cortex.DisplayText(ans.Text),
		SQL:      ans.SQL,
		Tools:    ans.ToolsUsed,
		Notes:    ans.Notes,
		Warnings: ans.Warnings,
		Report:   report,
	}
	if len(ans.Resolved) > 0 {
		for _, r := range ans.Resolved {
			o.Citations = append(o.Citations, askCitation{
				SourceID: r.Citation.SourceID.String(),
				DocTitle: r.Citation.DocTitle,
				Content:  r.Body,
			})
		}
		return o
	}
	for _, c := range ans.Citations {
		o.Citations = append(o.Citations, askCitation{SourceID: c.SourceID.String(), DocTitle: c.DocTitle})
	}
	return o
}

func printAnswer(w io.Writer, ans *assistant.Answer, report *assistant.Report, debug bool) {
	bold := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w, cortex.DisplayText(ans.Text))
	for _, note := range ans.Notes {
		fmt.Fprintf(w, "! %s\n", note)
	}

	if len(ans.Resolved) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold.Render("Sources"))
		for _, r := range ans.Resolved {
			fmt.Fprintf(w, "%s %s\n", r.Label(), r.Citation.DocTitle)
			if r.Body != "" {
				fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(strings.TrimSpace(r.Body), "\n", "\n    "))
			}
		}
	}

	if ans.SQL != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold.Render("SQL"))
		fmt.Fprintln(w, strings.TrimSpace(ans.SQL))
	}

	if report != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold.Render(report.Title))
		fmt.Fprintln(w, table.New().
			Border(lipgloss.NormalBorder()).
			Headers(report.Columns...).
			Rows(report.Rows...).
			String())
	}

	if debug {
		fmt.Fprintln(w)
		for _, t := range ans.Trace {
			fmt.Fprintf(w, "trace: %s %s %s\n", t.Event, t.Kind, t.Tool)
		}
		for _, warn := range ans.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		fmt.Fprintf(w, "debug: %d call(s), %d event(s), tools: %s\n", ans.Calls, ans.Events, strings.Join(ans.ToolsUsed, ", "))
	}
}
