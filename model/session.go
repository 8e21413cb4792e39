package model

import (
	"errors"
	"time"

	"cortexchat/assistant"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/storage"
)

// State is where a session is in its turn cycle.
type State int

const (
	StateEmpty State = iota
	StateAwaitingInput
	StateProcessing
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateProcessing:
		return "processing"
	case StateDisplaying:
		return "displaying"
	}
	return "unknown"
}

// ErrBusy is returned when a question arrives while a turn is running.
var ErrBusy = errors.New("a question is already being answered")

// Session is the per-conversation context every handler works on. Nothing
// about a conversation lives outside of it.
type Session struct {
	// ID and Name are empty until the session is first saved.
	ID        string
	Name      string
	CreatedAt time.Time

	Messages []Message
	Thread   cortex.ThreadContext
	Settings assistant.Settings

	state State
	// generation changes on every Reset so late completions of an abandoned
	// turn can be recognized.
	generation int
}

// NewSession starts an empty conversation with the given settings.
func NewSession(settings assistant.Settings) *Session {
	return &Session{Settings: settings, state: StateEmpty}
}

// DefaultSettings derives the initial sidebar choices from the config.
func DefaultSettings(cfg *config.Config) assistant.Settings {
	return assistant.Settings{
		Model:      cfg.Chat.DefaultModel,
		Debug:      cfg.Chat.Debug,
		Mode:       cfg.Agent.Mode,
		UseThreads: cfg.Chat.UseThreads,
	}
}

func (s *Session) State() State {
	return s.state
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.state == StateProcessing
}

// Reset is "new conversation": transcript and thread context go, settings
// stay. The next save creates a new session file.
func (s *Session) Reset() {
	s.ID = ""
	s.Name = ""
	s.CreatedAt = time.Time{}
	s.Messages = nil
	s.Thread = cortex.ThreadContext{}
	s.state = StateEmpty
	s.generation++
}

// Generation changes on every Reset. A turn that completes under an older
// generation is dropped.
func (s *Session) Generation() int {
	return s.generation
}

// Ready marks the session as accepting input.
func (s *Session) Ready() {
	if s.state == StateEmpty || s.state == StateDisplaying {
		s.state = StateAwaitingInput
	}
}

// Begin appends the user's question and moves to processing. It returns the
// turn to run.
func (s *Session) Begin(question string) (assistant.Turn, error) {
	if s.state == StateProcessing {
		return assistant.Turn{}, ErrBusy
	}
	if question == "" {
		return assistant.Turn{}, assistant.ErrEmptyQuestion
	}

	s.Messages = append(s.Messages, Message{
		Role:      RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	})
	s.state = StateProcessing

	return assistant.Turn{
		Question: question,
		Settings: s.Settings,
		Thread:   s.Thread,
	}, nil
}

// Complete records the outcome of the running turn and moves to displaying.
// A failed turn is appended as an error message so the transcript shows it.
func (s *Session) Complete(ans *assistant.Answer, err error) {
	if s.state != StateProcessing {
		return
	}
	s.state = StateDisplaying

	if err != nil {
		s.Messages = append(s.Messages, Message{
			Role:      RoleAssistant,
			Content:   err.Error(),
			IsError:   true,
			Timestamp: time.Now(),
		})
		return
	}

	if s.Settings.UseThreads {
		s.Thread = ans.Thread
	}
	s.Messages = append(s.Messages, messageFromAnswer(ans))
}

// SetModel changes the model used from the next turn on.
func (s *Session) SetModel(model string) {
	s.Settings.Model = model
}

func (s *Session) SetMode(mode string) {
	s.Settings.Mode = mode
}

func (s *Session) ToggleDebug() bool {
	s.Settings.Debug = !s.Settings.Debug
	return s.Settings.Debug
}

// ToggleThreads flips thread usage. Turning threads off drops the current
// thread so that turning them back on starts a fresh one.
func (s *Session) ToggleThreads() bool {
	s.Settings.UseThreads = !s.Settings.UseThreads
	if !s.Settings.UseThreads {
		s.Thread = cortex.ThreadContext{}
	}
	return s.Settings.UseThreads
}

// FirstQuestion returns the first user message, used to name the session.
func (s *Session) FirstQuestion() string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg.Content
		}
	}
	return ""
}

// ToStorage converts the session into its persisted form.
func (s *Session) ToStorage() *storage.Session {
	out := &storage.Session{
		ID:         s.ID,
		Name:       s.Name,
		Model:      s.Settings.Model,
		Mode:       s.Settings.Mode,
		UseThreads: s.Settings.UseThreads,
		Thread:     s.Thread,
		CreatedAt:  s.CreatedAt,
		Messages:   make([]storage.Message, 0, len(s.Messages)),
	}
	for _, msg := range s.Messages {
		out.Messages = append(out.Messages, msg.toStorage())
	}
	return out
}

// SessionFromStorage restores a saved session. Debug is not persisted and is
// taken from defaults, as are a missing model or mode.
func SessionFromStorage(saved *storage.Session, defaults assistant.Settings) *Session {
	settings := defaults
	if saved.Model != "" {
		settings.Model = saved.Model
	}
	if saved.Mode != "" {
		settings.Mode = saved.Mode
	}
	settings.UseThreads = saved.UseThreads

	s := &Session{
		ID:        saved.ID,
		Name:      saved.Name,
		CreatedAt: saved.CreatedAt,
		Thread:    saved.Thread,
		Settings:  settings,
		Messages:  make([]Message, 0, len(saved.Messages)),
	}
	for _, msg := range saved.Messages {
		s.Messages = append(s.Messages, messageFromStorage(msg))
	}
	if !settings.UseThreads {
		s.Thread = cortex.ThreadContext{}
	}

	s.state = StateEmpty
	if len(s.Messages) > 0 {
		s.state = StateAwaitingInput
	}
	return s
}
