package citation

import (
	"context"
	"fmt"

	"cortexchat/cortex"
)

// Statementer runs parameterized SQL. cortex.Client satisfies it.
type Statementer interface {
	Statement(ctx context.Context, sql string, args ...any) (*cortex.ResultSet, error)
}

// SnowflakeStore reads citations from the stage and chunk table through the
// SQL API.
type SnowflakeStore struct {
	db          Statementer
	stage       string
	chunksTable string
}

// NewSnowflakeStore reads signed URLs from stage and chunk text from
// chunksTable.
func NewSnowflakeStore(db Statementer, stage, chunksTable string) *SnowflakeStore {
	return &SnowflakeStore{db: db, stage: stage, chunksTable: chunksTable}
}

// PresignedURL returns a short-lived download URL for path on the stage.
func (s *SnowflakeStore) PresignedURL(ctx context.Context, path string) (string, error) {
	// the stage name is an identifier and cannot be bound
	query := fmt.Sprintf("SELECT GET_PRESIGNED_URL('%s', ?) AS URL", s.stage)
	rs, err := s.db.Statement(ctx, query, path)
	if err != nil {
		return "", err
	}
	url, _ := rs.First()
	return url, nil
}

// Chunk returns the indexed text chunk of path, or "" when there is none.
func (s *SnowflakeStore) Chunk(ctx context.Context, path string, index cortex.ID) (string, error) {
	query := fmt.Sprintf("SELECT CHUNK FROM %s WHERE RELATIVE_PATH = ? AND CHUNK_INDEX = ?", s.chunksTable)
	rs, err := s.db.Statement(ctx, query, path, index)
	if err != nil {
		return "", err
	}
	chunk, _ := rs.First()
	return chunk, nil
}
