package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cortexchat/config"
	"cortexchat/mcp"
	appmodel "cortexchat/model"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant as an MCP server on stdio",
	Long: `Expose ask, classify, run_report, lookup_citation and
new_conversation as MCP tools over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("threads", false, "Continue one remote thread across ask calls")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := appmodel.DefaultSettings(cfg)
	settings.Debug = false
	settings.UseThreads, _ = cmd.Flags().GetBool("threads")

	if settings.Mode == config.ModeAgent {
		if _, err := a.assistant.Provision(ctx); err != nil {
			return err
		}
	}

	srv := mcp.NewServer(a.assistant, a.docs, settings, Version)
	config.Log.Info().Strs("tools", srv.ToolNames()).Msg("mcp tools registered")
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
