package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SessionMessageMatch is a search hit across all sessions.
type SessionMessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

const searchSchema = `
CREATE TABLE IF NOT EXISTS messages (
	session_id   TEXT NOT NULL,
	session_name TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	PRIMARY KEY (session_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// SearchIndex mirrors session transcripts into sqlite so that searching does
// not have to parse every session file.
type SearchIndex struct {
	db      *sql.DB
	storage *SessionStorage
}

// NewSearchIndex opens dataDir/search.db, migrating older schemas.
func NewSearchIndex(dataDir string, storage *SessionStorage) (*SearchIndex, error) {
	db, err := openDB(filepath.Join(dataDir, "search.db"), searchSchema)
	if err != nil {
		return nil, err
	}

	// sql column was added after the first release of the index
	has, err := columnExists(db, "messages", "sql_text")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check for sql_text column: %w", err)
	}
	if !has {
		if _, err := db.Exec(`ALTER TABLE messages ADD COLUMN sql_text TEXT DEFAULT ''`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to add sql_text column: %w", err)
		}
	}

	return &SearchIndex{db: db, storage: storage}, nil
}

// Index replaces the rows of session.
func (si *SearchIndex) Index(ctx context.Context, session *Session) error {
	tx, err := si.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("failed to clear session index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO messages (session_id, session_name, idx, role, content, sql_text, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, msg := range session.Messages {
		if _, err := stmt.ExecContext(ctx, session.ID, session.Name, i, msg.Role, msg.Content, msg.SQL, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to index message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Remove drops every row of the session.
func (si *SearchIndex) Remove(ctx context.Context, sessionID string) error {
	_, err := si.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

// Rebuild re-indexes every stored session.
func (si *SearchIndex) Rebuild(ctx context.Context) (int, error) {
	if _, err := si.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	list, err := si.storage.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, meta := range list {
		session, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}
		if err := si.Index(ctx, session); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchAllSessions returns messages whose text or SQL contains query, most
// recent first.
func (si *SearchIndex) SearchAllSessions(ctx context.Context, query string) ([]SessionMessageMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []SessionMessageMatch{}, nil
	}

	pattern := "%" + likeEscaper.Replace(query) + "%"
	rows, err := si.db.QueryContext(ctx, `
	SELECT session_id, session_name, idx, role, content, created_at
	FROM messages
	WHERE content LIKE ? ESCAPE '\' OR sql_text LIKE ? ESCAPE '\'
	ORDER BY created_at DESC, idx DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}
	defer rows.Close()

	var matches []SessionMessageMatch
	for rows.Next() {
		var m SessionMessageMatch
		if err := rows.Scan(&m.SessionID, &m.SessionName, &m.MessageIndex, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Preview = preview(m.Content)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (si *SearchIndex) Close() error {
	if si.db != nil {
		return si.db.Close()
	}
	return nil
}
