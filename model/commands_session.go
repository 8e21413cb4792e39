package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"cortexchat/config"
	"cortexchat/storage"
)

// FetchSessionList retrieves the list of saved sessions
func (m *Model) FetchSessionList() tea.Cmd {
	if m.SessionStorage == nil {
		return nil
	}
	store := m.SessionStorage
	return func() tea.Msg {
		sessions, err := store.List()
		return SessionsListMsg{Sessions: sessions, Err: err}
	}
}

// LoadSession loads a session by ID
func (m *Model) LoadSession(sessionID string) tea.Cmd {
	if m.SessionStorage == nil {
		return nil
	}
	store := m.SessionStorage
	return func() tea.Msg {
		session, err := store.Load(sessionID)
		return SessionLoadedMsg{Session: session, Err: err}
	}
}

// ApplyLoadedSession makes a loaded session the current conversation. It is
// refused while a turn is running.
func (m *Model) ApplyLoadedSession(saved *storage.Session) error {
	if m.Session.Busy() {
		return ErrBusy
	}
	next := SessionFromStorage(saved, DefaultSettings(m.Config))
	next.generation = m.Session.generation + 1
	m.Session = next
	m.SessionDirty = false
	if m.SessionStorage != nil {
		_ = m.SessionStorage.SaveCurrentSessionID(saved.ID)
	}
	return nil
}

// SaveCurrentSession saves the current session to storage. A session is
// given its id and name on first save so the snapshot written in the
// background matches the one in memory.
func (m *Model) SaveCurrentSession() tea.Cmd {
	if m.SessionStorage == nil || len(m.Session.Messages) == 0 {
		return nil
	}

	s := m.Session
	if s.ID == "" {
		s.ID = uuid.New().String()
		s.CreatedAt = time.Now()
	}
	if s.Name == "" {
		s.Name = storage.GenerateSessionName(s.FirstQuestion())
	}
	m.SessionDirty = false

	snapshot := s.ToStorage()
	store := m.SessionStorage
	index := m.SearchIndex
	return func() tea.Msg {
		if err := store.Save(snapshot); err != nil {
			return SessionSavedMsg{Err: err}
		}
		_ = store.SaveCurrentSessionID(snapshot.ID)

		if index != nil {
			if err := index.Index(context.Background(), snapshot); err != nil {
				// the session file is authoritative; the index can be rebuilt
				config.Log.Warn().Err(err).Str("session_id", snapshot.ID).Msg("failed to index session")
			}
		}
		return SessionSavedMsg{}
	}
}

// AutoSaveSession saves after a completed turn when something changed.
func (m *Model) AutoSaveSession() tea.Cmd {
	if !m.SessionDirty {
		return nil
	}
	return m.SaveCurrentSession()
}

// RenameSessionCmd renames a session and refreshes the session list
func (m *Model) RenameSessionCmd(sessionID, newName string) tea.Cmd {
	if m.SessionStorage == nil {
		return nil
	}
	if m.Session.ID == sessionID {
		m.Session.Name = newName
	}

	store := m.SessionStorage
	index := m.SearchIndex
	return func() tea.Msg {
		if err := store.RenameSession(sessionID, newName); err != nil {
			return SessionRenamedMsg{Err: err}
		}
		if index != nil {
			if session, err := store.Load(sessionID); err == nil {
				if err := index.Index(context.Background(), session); err != nil {
					config.Log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to reindex renamed session")
				}
			}
		}

		sessions, err := store.List()
		if err != nil {
			return SessionRenamedMsg{Err: err}
		}
		return SessionsListMsg{Sessions: sessions}
	}
}

// DeleteSessionCmd removes a session file and its index entries. Deleting
// the current session starts a new conversation.
func (m *Model) DeleteSessionCmd(sessionID string) tea.Cmd {
	if m.SessionStorage == nil {
		return nil
	}
	if m.Session.ID == sessionID && !m.Session.Busy() {
		m.NewConversation()
	}

	store := m.SessionStorage
	index := m.SearchIndex
	return func() tea.Msg {
		if err := store.Delete(sessionID); err != nil {
			return SessionDeletedMsg{ID: sessionID, Err: err}
		}
		if index != nil {
			if err := index.Remove(context.Background(), sessionID); err != nil {
				config.Log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to remove session from search index")
			}
		}
		return SessionDeletedMsg{ID: sessionID}
	}
}

// ExportSessionCmd exports a session to a JSON file
func (m *Model) ExportSessionCmd(ctx context.Context, sessionID, exportPath string) tea.Cmd {
	store := m.SessionStorage
	return func() tea.Msg {
		if store == nil {
			return SessionExportedMsg{Err: fmt.Errorf("session storage not initialized")}
		}

		select {
		case <-ctx.Done():
			return SessionExportedMsg{Cancelled: true}
		default:
		}

		if err := store.ExportToJSON(sessionID, exportPath); err != nil {
			return SessionExportedMsg{Err: err}
		}

		// the write may have raced a cancel; leave no partial export behind
		select {
		case <-ctx.Done():
			_ = os.Remove(exportPath)
			return SessionExportedMsg{Cancelled: true}
		default:
		}
		return SessionExportedMsg{Path: exportPath}
	}
}

// ImportSessionCmd imports a session from a JSON file
func (m *Model) ImportSessionCmd(ctx context.Context, filePath string) tea.Cmd {
	store := m.SessionStorage
	index := m.SearchIndex
	return func() tea.Msg {
		if store == nil {
			return SessionImportedMsg{Err: fmt.Errorf("session storage not initialized")}
		}

		data, err := os.ReadFile(config.ExpandPath(filePath))
		if err != nil {
			return SessionImportedMsg{Err: fmt.Errorf("failed to read file: %w", err)}
		}

		select {
		case <-ctx.Done():
			return SessionImportedMsg{Cancelled: true}
		default:
		}

		var session storage.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return SessionImportedMsg{Err: fmt.Errorf("invalid session file: %w", err)}
		}
		if session.Name == "" {
			return SessionImportedMsg{Err: fmt.Errorf("invalid session: missing name")}
		}
		if len(session.Messages) == 0 {
			return SessionImportedMsg{Err: fmt.Errorf("invalid session: no messages")}
		}

		// an imported copy never continues the original's remote thread
		session.ID = uuid.New().String()
		session.Thread.ThreadID = ""
		session.Thread.ParentMessageID = ""
		session.CreatedAt = time.Now()

		if err := store.Save(&session); err != nil {
			return SessionImportedMsg{Err: fmt.Errorf("failed to save session: %w", err)}
		}
		if index != nil {
			if err := index.Index(ctx, &session); err != nil {
				config.Log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to index imported session")
			}
		}
		return SessionImportedMsg{Session: &session}
	}
}

// SearchSessionsCmd searches every saved transcript.
func (m *Model) SearchSessionsCmd(query string) tea.Cmd {
	if m.SearchIndex == nil {
		return nil
	}
	index := m.SearchIndex
	return func() tea.Msg {
		results, err := index.SearchAllSessions(context.Background(), query)
		return SearchResultsMsg{Query: query, Results: results, Err: err}
	}
}

// SearchCurrentSession searches the open conversation in memory.
func (m *Model) SearchCurrentSession(query string) []storage.MessageMatch {
	return storage.SearchMessages(m.Session.ToStorage().Messages, query)
}
