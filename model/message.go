package model

import (
	"time"

	"cortexchat/assistant"
	"cortexchat/citation"
	"cortexchat/cortex"
	"cortexchat/storage"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry as the UI shows it.
type Message struct {
	Role    string
	Content string
	SQL     string

	Citations []cortex.Citation
	// Resolved holds the looked-up citation content. It is not persisted and
	// is empty for messages restored from disk.
	Resolved  []citation.Resolved
	ToolsUsed []string
	Notes     []string
	Warnings  []string
	Trace     []cortex.TraceEntry
	Calls     int
	Events    int

	// Report is the executed SQL, filled in on request.
	Report    *assistant.Report
	ReportErr error

	IsError   bool
	Rendered  string // cached markdown render
	Timestamp time.Time
}

func messageFromAnswer(ans *assistant.Answer) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   cortex.DisplayText(ans.Text),
		SQL:       ans.SQL,
		Citations: ans.Citations,
		Resolved:  ans.Resolved,
		ToolsUsed: ans.ToolsUsed,
		Notes:     ans.Notes,
		Warnings:  ans.Warnings,
		Trace:     ans.Trace,
		Calls:     ans.Calls,
		Events:    ans.Events,
		Timestamp: time.Now(),
	}
}

func (m Message) toStorage() storage.Message {
	return storage.Message{
		Role:      m.Role,
		Content:   m.Content,
		SQL:       m.SQL,
		Citations: m.Citations,
		ToolsUsed: m.ToolsUsed,
		Notes:     m.Notes,
		IsError:   m.IsError,
		Timestamp: m.Timestamp,
	}
}

func messageFromStorage(m storage.Message) Message {
	return Message{
		Role:      m.Role,
		Content:   m.Content,
		SQL:       m.SQL,
		Citations: m.Citations,
		ToolsUsed: m.ToolsUsed,
		Notes:     m.Notes,
		IsError:   m.IsError,
		Timestamp: m.Timestamp,
	}
}
