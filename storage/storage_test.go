package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cortexchat/cortex"
)

func newTestStorage(t *testing.T) (*SessionStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSessionStorage(dir)
	if err != nil {
		t.Fatalf("NewSessionStorage() error = %v", err)
	}
	return s, dir
}

func TestSessionRoundTrip(t *testing.T) {
	s, _ := newTestStorage(t)

	session := &Session{
		Name:       "Refunds",
		Model:      "claude-sonnet-4-5",
		Mode:       "heuristic",
		UseThreads: true,
		Thread:     cortex.ThreadContext{ThreadID: "42", ParentMessageID: "7"},
		Messages: []Message{
			{Role: "user", Content: "What is the refund policy?", Timestamp: time.Now()},
			{
				Role:      "assistant",
				Content:   "Refunds within 30 days.",
				SQL:       "SELECT 1",
				Citations: []cortex.Citation{{SourceID: "1", DocTitle: "policy.pdf", DocChunk: "3"}},
				ToolsUsed: []string{"Faq Search"},
				Timestamp: time.Now(),
			},
		},
	}
	if err := s.Save(session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if session.ID == "" {
		t.Fatal("Save() did not assign an id")
	}

	info, err := os.Stat(filepath.Join(s.sessionsDir, session.ID+".json"))
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file perm = %o, want 0600", perm)
	}

	loaded, err := s.Load(session.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Thread != session.Thread {
		t.Errorf("Thread = %+v, want %+v", loaded.Thread, session.Thread)
	}
	if got := loaded.Messages[1].Citations[0].DocTitle; got != "policy.pdf" {
		t.Errorf("citation doc title = %q", got)
	}
	if loaded.Messages[1].SQL != "SELECT 1" {
		t.Errorf("SQL = %q", loaded.Messages[1].SQL)
	}
}

func TestListSkipsCorruptAndSorts(t *testing.T) {
	s, _ := newTestStorage(t)

	older := &Session{Name: "older"}
	if err := s.Save(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	newer := &Session{Name: "newer", Thread: cortex.ThreadContext{ThreadID: "9"}}
	if err := s.Save(newer); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.sessionsDir, "broken.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d sessions, want 2", len(list))
	}
	if list[0].Name != "newer" || !list[0].Threaded {
		t.Errorf("first = %+v, want newer threaded session", list[0])
	}
}

func TestCurrentSessionID(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.SaveCurrentSessionID("abc\n"); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadCurrentSessionID()
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("LoadCurrentSessionID() = %q, want abc", got)
	}
}

func TestGenerateSessionName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "Refund policy?", "Refund policy?"},
		{"newlines", "line one\nline two", "line one line two"},
		{"long", strings.Repeat("a", 40), strings.Repeat("a", 30) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateSessionName(tt.input); got != tt.want {
				t.Errorf("GenerateSessionName() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := GenerateSessionName("  "); !strings.HasPrefix(got, "Session ") {
		t.Errorf("blank name = %q, want Session prefix", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Q3 revenue: total?", "Q3-revenue--total"},
		{"../etc", "etc"},
		{"", "session"},
		{"...", "session"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.input); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSearchMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "How many ORDERS shipped?"},
		{Role: "assistant", Content: "42", SQL: "SELECT COUNT(*) FROM orders"},
		{Role: "user", Content: "refund policy"},
	}
	got := SearchMessages(msgs, "orders")
	if len(got) != 2 {
		t.Fatalf("SearchMessages() = %d matches, want 2", len(got))
	}
	if got[1].MessageIndex != 1 {
		t.Errorf("second match index = %d, want 1", got[1].MessageIndex)
	}
	if len(SearchMessages(msgs, "")) != 0 {
		t.Error("empty query should match nothing")
	}
}

func TestInstanceLock(t *testing.T) {
	s, _ := newTestStorage(t)

	locked, _, err := s.CheckInstanceLock()
	if err != nil || locked {
		t.Fatalf("CheckInstanceLock() = %v, %v; want unlocked", locked, err)
	}
	if err := s.LockInstance(); err != nil {
		t.Fatal(err)
	}
	// own pid never counts as another instance
	locked, _, err = s.CheckInstanceLock()
	if err != nil || locked {
		t.Errorf("own lock reported as held: %v, %v", locked, err)
	}
	if err := s.UnlockInstance(); err != nil {
		t.Fatal(err)
	}
	if err := s.UnlockInstance(); err != nil {
		t.Errorf("second UnlockInstance() error = %v", err)
	}
}

func TestSearchIndex(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	idx, err := NewSearchIndex(dir, s)
	if err != nil {
		t.Fatalf("NewSearchIndex() error = %v", err)
	}
	defer idx.Close()

	session := &Session{
		Name: "Sales",
		Messages: []Message{
			{Role: "user", Content: "total revenue 100%?", Timestamp: time.Now()},
			{Role: "assistant", Content: "It was 5M", SQL: "SELECT SUM(amount) FROM deals", Timestamp: time.Now()},
		},
	}
	if err := s.Save(session); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, session); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"REVENUE", 1},
		{"deals", 1},
		{"100%", 1},
		{"%", 1},
		{"nothing here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := idx.SearchAllSessions(ctx, tt.query)
		if err != nil {
			t.Fatalf("SearchAllSessions(%q) error = %v", tt.query, err)
		}
		if len(got) != tt.want {
			t.Errorf("SearchAllSessions(%q) = %d matches, want %d", tt.query, len(got), tt.want)
		}
	}

	n, err := idx.Rebuild(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Rebuild() = %d, %v; want 1", n, err)
	}

	if err := idx.Remove(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := idx.SearchAllSessions(ctx, "revenue")
	if len(got) != 0 {
		t.Errorf("after Remove got %d matches", len(got))
	}
}

func TestDocMirror(t *testing.T) {
	ctx := context.Background()
	m, err := OpenDocMirror(filepath.Join(t.TempDir(), "mirror", "docs.db"))
	if err != nil {
		t.Fatalf("OpenDocMirror() error = %v", err)
	}
	defer m.Close()

	input := strings.Join([]string{
		`{"relative_path":"refund_policy.pdf","chunk_index":0,"chunk":"Refunds are issued within 30 days."}`,
		``,
		`{"relative_path":"refund_policy.pdf","chunk_index":"1","chunk":"Shipping is free."}`,
		`{"relative_path":"chart.jpeg","url":"https://example.com/chart.jpeg"}`,
	}, "\n")
	n, err := m.ImportJSONL(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportJSONL() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ImportJSONL() = %d, want 3", n)
	}

	chunk, err := m.Chunk(ctx, "refund_policy.pdf", "0")
	if err != nil || chunk != "Refunds are issued within 30 days." {
		t.Errorf("Chunk(0) = %q, %v", chunk, err)
	}
	chunk, _ = m.Chunk(ctx, "refund_policy.pdf", "1")
	if chunk != "Shipping is free." {
		t.Errorf("Chunk(1) = %q", chunk)
	}
	missing, err := m.Chunk(ctx, "refund_policy.pdf", "9")
	if err != nil || missing != "" {
		t.Errorf("missing chunk = %q, %v; want empty", missing, err)
	}

	url, err := m.PresignedURL(ctx, "chart.jpeg")
	if err != nil || url != "https://example.com/chart.jpeg" {
		t.Errorf("PresignedURL() = %q, %v", url, err)
	}
	url, _ = m.PresignedURL(ctx, "other.jpeg")
	if url != "" {
		t.Errorf("unknown url = %q, want empty", url)
	}

	chunks, urls, err := m.Stats(ctx)
	if err != nil || chunks != 2 || urls != 1 {
		t.Errorf("Stats() = %d, %d, %v", chunks, urls, err)
	}

	if _, err := m.ImportJSONL(ctx, strings.NewReader("not json\n")); err == nil {
		t.Error("ImportJSONL() accepted invalid line")
	}
}
