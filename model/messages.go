package model

import (
	"cortexchat/assistant"
	"cortexchat/storage"
)

// TurnCompleteMsg is the single completion message of a chat turn.
type TurnCompleteMsg struct {
	Answer *assistant.Answer
	Err    error
	// Generation is the session generation the turn was started in.
	Generation int
}

// ReportMsg carries the table for the message at MessageIndex.
type ReportMsg struct {
	MessageIndex int
	Report       *assistant.Report
	Err          error
}

// ProvisionedMsg reports the outcome of making sure the agent exists.
type ProvisionedMsg struct {
	Created bool
	Err     error
}

type MarkdownRenderedMsg struct {
	MessageIndex int
	Rendered     string
}

type SessionsListMsg struct {
	Sessions []storage.SessionMetadata
	Err      error
}

type SessionLoadedMsg struct {
	Session *storage.Session
	Err     error
}

type SessionSavedMsg struct {
	Err error
}

type SessionRenamedMsg struct {
	Err error
}

// SessionDeletedMsg is sent after a session file is removed.
type SessionDeletedMsg struct {
	ID  string
	Err error
}

type SessionExportedMsg struct {
	Path      string
	Err       error
	Cancelled bool
}

// SessionImportedMsg carries a session read from an export file.
type SessionImportedMsg struct {
	Session   *storage.Session
	Err       error
	Cancelled bool
}

type ExportCleanupDoneMsg struct{}

// SearchResultsMsg carries hits from the cross-session search index.
type SearchResultsMsg struct {
	Query   string
	Results []storage.SessionMessageMatch
	Err     error
}

type PreferenceSavedMsg struct {
	Field string
	Err   error
}

type ClipboardMsg struct {
	What string
	Err  error
}

type FlashTickMsg struct{}
