package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"cortexchat/cortex"
)

// Message is one persisted transcript entry. Assistant messages also carry
// what the turn produced besides text.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	SQL       string            `json:"sql,omitempty"`
	Citations []cortex.Citation `json:"citations,omitempty"`
	ToolsUsed []string          `json:"tools_used,omitempty"`
	// Notes are per-call failures of a turn that still produced an answer.
	Notes []string `json:"notes,omitempty"`
	// IsError marks a turn that failed; Content holds the error text.
	IsError   bool      `json:"is_error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a saved conversation: settings, thread context and transcript.
type Session struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Model      string               `json:"model"`
	Mode       string               `json:"mode"`
	UseThreads bool                 `json:"use_threads"`
	Thread     cortex.ThreadContext `json:"thread,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Messages   []Message            `json:"messages"`
}

// SessionMetadata is what the session list needs without the transcript.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	Mode         string    `json:"mode"`
	Threaded     bool      `json:"threaded"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SessionStorage keeps one JSON file per session under <dataDir>/sessions.
type SessionStorage struct {
	sessionsDir string
}

// NewSessionStorage stores sessions under dataDir/sessions.
func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	sessionsDir := filepath.Join(dataDir, "sessions")

	// 0700: transcripts may contain business data
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &SessionStorage{sessionsDir: sessionsDir}, nil
}

func (s *SessionStorage) path(id string) string {
	return filepath.Join(s.sessionsDir, id+".json")
}

// Save writes session, assigning an id and timestamps when missing.
func (s *SessionStorage) Save(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.path(session.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *SessionStorage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// List returns metadata for all sessions, newest first. Unreadable files are
// skipped.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []SessionMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		sessions = append(sessions, SessionMetadata{
			ID:           session.ID,
			Name:         session.Name,
			Model:        session.Model,
			Mode:         session.Mode,
			Threaded:     session.Thread.ThreadID != "",
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
			MessageCount: len(session.Messages),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

func (s *SessionStorage) currentIDPath() string {
	return filepath.Join(filepath.Dir(s.sessionsDir), "current_session.id")
}

// SaveCurrentSessionID remembers which session to reopen on the next start.
func (s *SessionStorage) SaveCurrentSessionID(id string) error {
	return os.WriteFile(s.currentIDPath(), []byte(id), 0600)
}

func (s *SessionStorage) LoadCurrentSessionID() (string, error) {
	data, err := os.ReadFile(s.currentIDPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *SessionStorage) RenameSession(id string, newName string) error {
	session, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Name = newName
	if err := s.Save(session); err != nil {
		return fmt.Errorf("failed to save renamed session: %w", err)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-",
	"<", "-", ">", "-", "|", "-", " ", "-", "\n", "-", "\r", "-",
)

// SanitizeFilename replaces characters that are invalid in file names.
func SanitizeFilename(name string) string {
	name = strings.Trim(filenameReplacer.Replace(name), "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "session"
	}
	return name
}

// GenerateExportPath returns ~/Downloads/cortexchat-session-<name>-<time>.json
func GenerateExportPath(sessionName string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE")
	}

	filename := fmt.Sprintf("cortexchat-session-%s-%s.json",
		SanitizeFilename(sessionName), time.Now().Format("20060102-150405"))
	return filepath.Join(homeDir, "Downloads", filename)
}

// ExportToJSON writes the session to exportPath as indented JSON.
func (s *SessionStorage) ExportToJSON(id string, exportPath string) error {
	session, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateSessionName derives a name from the first question.
func GenerateSessionName(firstMessage string) string {
	name := strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(firstMessage))
	if runes := []rune(name); len(runes) > 30 {
		name = string(runes[:30]) + "..."
	}
	if name == "" {
		return fmt.Sprintf("Session %s", time.Now().Format("Jan 2, 3:04 PM"))
	}
	return name
}

// MessageMatch is a hit within one session's transcript.
type MessageMatch struct {
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

// SearchMessages does a case-insensitive substring search over messages.
func SearchMessages(messages []Message, query string) []MessageMatch {
	if query == "" {
		return []MessageMatch{}
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch
	for i, msg := range messages {
		if !strings.Contains(strings.ToLower(msg.Content), queryLower) &&
			!strings.Contains(strings.ToLower(msg.SQL), queryLower) {
			continue
		}
		matches = append(matches, MessageMatch{
			MessageIndex: i,
			Role:         msg.Role,
			Content:      msg.Content,
			Preview:      preview(msg.Content),
			Timestamp:    msg.Timestamp,
		})
	}
	return matches
}

func preview(s string) string {
	if runes := []rune(s); len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return s
}

// LockInstance records this process as the owner of the data directory.
func (s *SessionStorage) LockInstance() error {
	return os.WriteFile(s.lockPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

func (s *SessionStorage) UnlockInstance() error {
	err := os.Remove(s.lockPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CheckInstanceLock reports whether another live process holds the lock.
// Stale or unreadable lock files are removed.
func (s *SessionStorage) CheckInstanceLock() (bool, int, error) {
	data, err := os.ReadFile(s.lockPath())
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil || pid == os.Getpid() {
		_ = os.Remove(s.lockPath())
		return false, 0, nil
	}
	if !processAlive(pid) {
		_ = os.Remove(s.lockPath())
		return false, 0, nil
	}
	return true, pid, nil
}

func (s *SessionStorage) lockPath() string {
	return filepath.Join(filepath.Dir(s.sessionsDir), "cortexchat.lock")
}
