package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cortexchat/storage"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions or rebuild the search index",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the message search index from the session files",
	Args:  cobra.NoArgs,
	RunE:  runSessionsReindex,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsReindexCmd)
}

func openSessionStorage() (*storage.SessionStorage, string, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, "", err
	}
	s, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		return nil, "", err
	}
	return s, cfg.DataDir(), nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	s, _, err := openSessionStorage()
	if err != nil {
		return err
	}
	sessions, err := s.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name", "Model", "Mode", "Messages", "Updated")
	for _, m := range sessions {
		t.Row(m.ID[:min(8, len(m.ID))], m.Name, m.Model, m.Mode,
			strconv.Itoa(m.MessageCount), m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runSessionsReindex(cmd *cobra.Command, args []string) error {
	s, dataDir, err := openSessionStorage()
	if err != nil {
		return err
	}
	idx, err := storage.NewSearchIndex(dataDir, s)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Rebuild(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d sessions.\n", n)
	return nil
}
