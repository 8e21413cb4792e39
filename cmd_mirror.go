package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cortexchat/citation"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/storage"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Manage the local sqlite copy of the document chunks",
	Long: `The mirror lets citations resolve without a Snowflake round trip. Set
[docstore] type = "sqlite" in config.toml to use it.`,
}

var mirrorSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the chunk table from Snowflake into the mirror",
	Args:  cobra.NoArgs,
	RunE:  runMirrorSync,
}

var mirrorImportCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Load records from a JSON lines file",
	Long: `Each line is {"relative_path": ..., "chunk_index": ..., "chunk": ..., "url": ...}.
Records with only a url set the image URL for that path.`,
	Args: cobra.ExactArgs(1),
	RunE: runMirrorImport,
}

var mirrorStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many chunks and URLs the mirror holds",
	Args:  cobra.NoArgs,
	RunE:  runMirrorStats,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	mirrorCmd.AddCommand(mirrorSyncCmd)
	mirrorCmd.AddCommand(mirrorImportCmd)
	mirrorCmd.AddCommand(mirrorStatsCmd)

	mirrorSyncCmd.Flags().Bool("urls", false, "Also fetch presigned URLs for .jpeg documents (they expire)")
	mirrorSyncCmd.Flags().Int("parallel", 4, "Concurrent URL lookups")
}

func openMirror(cfg *config.Config) (*storage.DocMirror, error) {
	return storage.OpenDocMirror(config.ResolvePath(cfg.DataDir(), cfg.DocStore.Path))
}

func loadCLIConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.UseConsoleLog(os.Stderr, cfg.LogLevel)
	return cfg, nil
}

func runMirrorSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	// the sync itself always reads from Snowflake
	cfg.DocStore.Type = config.DocStoreSnowflake
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mirror, err := openMirror(cfg)
	if err != nil {
		return err
	}
	defer mirror.Close()

	ctx := cmd.Context()
	rs, err := a.client.Statement(ctx, fmt.Sprintf("SELECT RELATIVE_PATH, CHUNK_INDEX, CHUNK FROM %s", cfg.Tools.ChunksTable))
	if err != nil {
		return fmt.Errorf("failed to read chunk table: %w", err)
	}

	records := make([]storage.DocRecord, 0, len(rs.Rows))
	images := make(map[string]bool)
	for _, row := range rs.Rows {
		if len(row) < 3 {
			continue
		}
		records = append(records, storage.DocRecord{
			RelativePath: row[0],
			ChunkIndex:   cortex.ID(row[1]),
			Chunk:        row[2],
		})
		if strings.HasSuffix(strings.ToLower(row[0]), ".jpeg") {
			images[row[0]] = true
		}
	}

	if withURLs, _ := cmd.Flags().GetBool("urls"); withURLs {
		parallel, _ := cmd.Flags().GetInt("parallel")
		urls, err := fetchURLs(ctx, citation.NewSnowflakeStore(a.client, cfg.Tools.DocsStage, cfg.Tools.ChunksTable), images, parallel)
		if err != nil {
			return err
		}
		records = append(records, urls...)
	}

	if err := mirror.Put(ctx, records); err != nil {
		return fmt.Errorf("failed to write mirror: %w", err)
	}
	chunks, urls, err := mirror.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d rows. Mirror holds %d chunks and %d URLs.\n", len(rs.Rows), chunks, urls)
	return nil
}

// fetchURLs looks up presigned URLs for paths, at most parallel at a time.
// Paths without a URL are skipped.
func fetchURLs(ctx context.Context, store citation.DocStore, paths map[string]bool, parallel int) ([]storage.DocRecord, error) {
	if parallel < 1 {
		parallel = 1
	}

	var (
		mu  sync.Mutex
		out []storage.DocRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for path := range paths {
		g.Go(func() error {
			url, err := store.PresignedURL(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to get URL for %s: %w", path, err)
			}
			if url == "" {
				return nil
			}
			mu.Lock()
			out = append(out, storage.DocRecord{RelativePath: path, URL: url})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runMirrorImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	mirror, err := openMirror(cfg)
	if err != nil {
		return err
	}
	defer mirror.Close()

	f, err := os.Open(config.ExpandPath(args[0]))
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	n, err := mirror.ImportJSONL(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records.\n", n)
	return nil
}

func runMirrorStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}
	mirror, err := openMirror(cfg)
	if err != nil {
		return err
	}
	defer mirror.Close()

	chunks, urls, err := mirror.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d chunks, %d URLs\n", chunks, urls)
	return nil
}
