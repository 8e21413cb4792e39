package storage

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cortexchat/config"
	"cortexchat/cortex"
)

const docSchema = `
CREATE TABLE IF NOT EXISTS doc_chunks (
	relative_path TEXT NOT NULL,
	chunk_index   TEXT NOT NULL,
	chunk         TEXT NOT NULL,
	PRIMARY KEY (relative_path, chunk_index)
);
CREATE TABLE IF NOT EXISTS doc_urls (
	relative_path TEXT PRIMARY KEY,
	url           TEXT NOT NULL
);
`

// DocMirror is a local copy of the document chunk table. It answers the same
// two lookups as the Snowflake stage and table, so citations resolve offline.
type DocMirror struct {
	db *sql.DB
}

// OpenDocMirror opens or creates the mirror database at path.
func OpenDocMirror(path string) (*DocMirror, error) {
	db, err := openDB(path, docSchema)
	if err != nil {
		return nil, err
	}
	return &DocMirror{db: db}, nil
}

// PresignedURL returns the stored URL for path, or "" when there is none.
func (m *DocMirror) PresignedURL(ctx context.Context, path string) (string, error) {
	var url string
	err := m.db.QueryRowContext(ctx,
		`SELECT url FROM doc_urls WHERE relative_path = ?`, path).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up url: %w", err)
	}
	return url, nil
}

// Chunk returns the text of chunk index of path, or "" when missing.
func (m *DocMirror) Chunk(ctx context.Context, path string, index cortex.ID) (string, error) {
	var chunk string
	err := m.db.QueryRowContext(ctx,
		`SELECT chunk FROM doc_chunks WHERE relative_path = ? AND chunk_index = ?`,
		path, index.String()).Scan(&chunk)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up chunk: %w", err)
	}
	return chunk, nil
}

// DocRecord is one line of a mirror import file. A record with a URL and no
// chunk text only sets the URL.
type DocRecord struct {
	RelativePath string    `json:"relative_path"`
	ChunkIndex   cortex.ID `json:"chunk_index"`
	Chunk        string    `json:"chunk"`
	URL          string    `json:"url"`
}

// Put upserts records in one transaction.
func (m *DocMirror) Put(ctx context.Context, records []DocRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if r.RelativePath == "" {
			return fmt.Errorf("record has no relative_path")
		}
		if r.Chunk != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO doc_chunks (relative_path, chunk_index, chunk) VALUES (?, ?, ?)`,
				r.RelativePath, r.ChunkIndex.String(), r.Chunk); err != nil {
				return fmt.Errorf("failed to store chunk %s/%s: %w", r.RelativePath, r.ChunkIndex, err)
			}
		}
		if r.URL != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO doc_urls (relative_path, url) VALUES (?, ?)`,
				r.RelativePath, r.URL); err != nil {
				return fmt.Errorf("failed to store url for %s: %w", r.RelativePath, err)
			}
		}
	}
	return tx.Commit()
}

// ImportJSONL reads one DocRecord per line. Blank lines are skipped.
func (m *DocMirror) ImportJSONL(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8<<20)

	var (
		batch []DocRecord
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.Put(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec DocRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, rec)
		if len(batch) >= 500 {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("failed to read import file: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	config.Log.Info().Int("records", total).Msg("doc mirror import complete")
	return total, nil
}

// Stats returns the number of stored chunks and URLs.
func (m *DocMirror) Stats(ctx context.Context) (chunks, urls int, err error) {
	if err = m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doc_chunks`).Scan(&chunks); err != nil {
		return 0, 0, err
	}
	if err = m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doc_urls`).Scan(&urls); err != nil {
		return 0, 0, err
	}
	return chunks, urls, nil
}

func (m *DocMirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
