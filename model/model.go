package model

import (
	"context"
	"time"

	"cortexchat/assistant"
	"cortexchat/config"
	"cortexchat/storage"
)

// Asker is the part of the assistant the UI drives.
type Asker interface {
	Ask(ctx context.Context, turn assistant.Turn) (*assistant.Answer, error)
	RunReport(ctx context.Context, sql string) (*assistant.Report, error)
	Provision(ctx context.Context) (bool, error)
}

// Model holds the core application data and business logic state
type Model struct {
	// Core dependencies
	Config         *config.Config
	Assistant      Asker
	SessionStorage *storage.SessionStorage
	SearchIndex    *storage.SearchIndex

	// Application data
	Session *Session

	// Runtime state (not UI)
	SessionDirty bool
	Quitting     bool
	// Halted is set when agent provisioning failed. No further turns run.
	Halted    bool
	HaltError error

	// TurnTimeout bounds a whole turn. The remote calls carry their own
	// timeout as well.
	TurnTimeout time.Duration

	Version string
}

// NewModel creates a Model. lastSession, when non-nil, is restored as the
// current conversation.
func NewModel(cfg *config.Config, asker Asker, sessionStorage *storage.SessionStorage, searchIndex *storage.SearchIndex, lastSession *storage.Session, version string) *Model {
	defaults := DefaultSettings(cfg)

	session := NewSession(defaults)
	if lastSession != nil {
		session = SessionFromStorage(lastSession, defaults)
		config.Log.Debug().
			Str("session_id", lastSession.ID).
			Int("messages", len(lastSession.Messages)).
			Msg("restored last session")
	}

	return &Model{
		Config:         cfg,
		Assistant:      asker,
		SessionStorage: sessionStorage,
		SearchIndex:    searchIndex,
		Session:        session,
		TurnTimeout:    3 * time.Minute,
		Version:        version,
	}
}

// NewConversation resets the session. The previous one stays on disk if it
// was saved.
func (m *Model) NewConversation() {
	m.Session.Reset()
	m.SessionDirty = false
	if m.SessionStorage != nil {
		_ = m.SessionStorage.SaveCurrentSessionID("")
	}
}

// Halt stops all further turns after a fatal error.
func (m *Model) Halt(err error) {
	m.Halted = true
	m.HaltError = err
	config.Log.Error().Err(err).Msg("session halted")
}
