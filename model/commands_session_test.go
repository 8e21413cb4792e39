package model

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexchat/config"
	"cortexchat/storage"
)

// captureLog points config.Log at a buffer for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := config.Log
	config.Log = zerolog.New(&buf)
	t.Cleanup(func() { config.Log = prev })
	return &buf
}

func TestSessionCmdsLogIndexFailures(t *testing.T) {
	m := newTestModel(t, &fakeAsker{})
	index, err := storage.NewSearchIndex(t.TempDir(), m.SessionStorage)
	require.NoError(t, err)
	// a closed index fails every write
	require.NoError(t, index.Close())
	m.SearchIndex = index

	for _, id := range []string{"keep", "drop"} {
		require.NoError(t, m.SessionStorage.Save(&storage.Session{ID: id, Name: id}))
	}
	logs := captureLog(t)

	msg := m.RenameSessionCmd("keep", "renamed")()
	_, ok := msg.(SessionsListMsg)
	assert.True(t, ok, "rename succeeds without the index, got %T", msg)
	assert.Contains(t, logs.String(), "failed to reindex renamed session")

	deleted, ok := m.DeleteSessionCmd("drop")().(SessionDeletedMsg)
	require.True(t, ok)
	assert.NoError(t, deleted.Err)
	assert.Contains(t, logs.String(), "failed to remove session from search index")
	assert.Contains(t, logs.String(), `"session_id":"drop"`)

	file := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name":"imported","messages":[{"role":"user","content":"hi"}]}`), 0600))
	imported, ok := m.ImportSessionCmd(context.Background(), file)().(SessionImportedMsg)
	require.True(t, ok)
	require.NoError(t, imported.Err)
	assert.Contains(t, logs.String(), "failed to index imported session")
}
