package citation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexchat/cortex"
)

type chunkCall struct {
	path  string
	index cortex.ID
}

type fakeStore struct {
	urls      map[string]string
	chunks    map[chunkCall]string
	urlErr    error
	urlCalls  []string
	chunkCall []chunkCall
}

func (f *fakeStore) PresignedURL(_ context.Context, path string) (string, error) {
	f.urlCalls = append(f.urlCalls, path)
	return f.urls[path], f.urlErr
}

func (f *fakeStore) Chunk(_ context.Context, path string, index cortex.ID) (string, error) {
	c := chunkCall{path, index}
	f.chunkCall = append(f.chunkCall, c)
	return f.chunks[c], nil
}

func TestResolvePDFChunk(t *testing.T) {
	store := &fakeStore{chunks: map[chunkCall]string{{"report.pdf", "3"}: "Refunds are issued within 30 days."}}
	r := NewRenderer(store)

	got := r.Resolve(context.Background(), []cortex.Citation{{SourceID: "1", DocTitle: "report.pdf", DocChunk: "3"}})

	require.Len(t, got, 1)
	assert.Equal(t, []chunkCall{{"report.pdf", "3"}}, store.chunkCall)
	assert.Equal(t, KindText, got[0].Kind)
	assert.Equal(t, "Refunds are issued within 30 days.", got[0].Body)
	assert.False(t, got[0].Missing)
	assert.Equal(t, "[1]", got[0].Label())
}

func TestResolvePlaceholders(t *testing.T) {
	store := &fakeStore{}
	r := NewRenderer(store)

	got := r.Resolve(context.Background(), []cortex.Citation{
		{SourceID: "1", DocTitle: "report.pdf", DocChunk: "3"},
		{SourceID: "2", DocTitle: "chart.jpeg", DocChunk: "0"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, NoText, got[0].Body)
	assert.True(t, got[0].Missing)
	assert.Equal(t, NoURL, got[1].Body)
	assert.Equal(t, KindImage, got[1].Kind)
	assert.True(t, got[1].Missing)
}

func TestResolveBySuffix(t *testing.T) {
	store := &fakeStore{urls: map[string]string{"Photos/Store.JPEG": "https://signed"}}
	r := NewRenderer(store)

	got := r.Resolve(context.Background(), []cortex.Citation{
		{SourceID: "1", DocTitle: "notes.txt"},
		{SourceID: "2", DocTitle: "Photos/Store.JPEG"},
		{SourceID: "3", DocTitle: "image.png"},
		{SourceID: "4", DocTitle: ""},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "https://signed", got[0].Body)
	assert.Equal(t, []string{"Photos/Store.JPEG"}, store.urlCalls)
	assert.Empty(t, store.chunkCall)
}

func TestResolveLookupErrorKeepsGoing(t *testing.T) {
	store := &fakeStore{
		urlErr: errors.New("warehouse suspended"),
		chunks: map[chunkCall]string{{"a.pdf", "1"}: "text"},
	}
	r := NewRenderer(store)

	got := r.Resolve(context.Background(), []cortex.Citation{
		{SourceID: "1", DocTitle: "a.jpeg"},
		{SourceID: "2", DocTitle: "a.pdf", DocChunk: "1"},
	})

	require.Len(t, got, 2)
	assert.Error(t, got[0].Err)
	assert.Equal(t, NoURL, got[0].Body)
	assert.NoError(t, got[1].Err)
	assert.Equal(t, "text", got[1].Body)
}

type fakeStatementer struct {
	sql  string
	args []any
	rs   *cortex.ResultSet
}

func (f *fakeStatementer) Statement(_ context.Context, sql string, args ...any) (*cortex.ResultSet, error) {
	f.sql, f.args = sql, args
	return f.rs, nil
}

func TestSnowflakeStoreQueries(t *testing.T) {
	db := &fakeStatementer{rs: &cortex.ResultSet{Columns: []string{"CHUNK"}, Rows: [][]string{{"hello"}}}}
	s := NewSnowflakeStore(db, "@DOCS", "DOCS_CHUNKS_TABLE")

	chunk, err := s.Chunk(context.Background(), "report.pdf", "3")
	require.NoError(t, err)
	assert.Equal(t, "hello", chunk)
	assert.Equal(t, "SELECT CHUNK FROM DOCS_CHUNKS_TABLE WHERE RELATIVE_PATH = ? AND CHUNK_INDEX = ?", db.sql)
	assert.Equal(t, []any{"report.pdf", cortex.ID("3")}, db.args)

	db.rs = &cortex.ResultSet{}
	url, err := s.PresignedURL(context.Background(), "a.jpeg")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, "SELECT GET_PRESIGNED_URL('@DOCS', ?) AS URL", db.sql)
	assert.Equal(t, []any{"a.jpeg"}, db.args)
}
