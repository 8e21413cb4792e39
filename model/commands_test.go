package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortexchat/assistant"
	"cortexchat/config"
	"cortexchat/cortex"
	"cortexchat/storage"
)

type fakeAsker struct {
	answer    *assistant.Answer
	err       error
	report    *assistant.Report
	reportErr error
	provErr   error
	created   bool

	turns   []assistant.Turn
	reports []string
}

func (f *fakeAsker) Ask(_ context.Context, turn assistant.Turn) (*assistant.Answer, error) {
	f.turns = append(f.turns, turn)
	return f.answer, f.err
}

func (f *fakeAsker) RunReport(_ context.Context, sql string) (*assistant.Report, error) {
	f.reports = append(f.reports, sql)
	return f.report, f.reportErr
}

func (f *fakeAsker) Provision(context.Context) (bool, error) {
	return f.created, f.provErr
}

func newTestModel(t *testing.T, asker Asker) *Model {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSessionStorage(dir)
	require.NoError(t, err)

	cfg := &config.Config{
		DataDirectory: dir,
		Chat: config.ChatConfig{
			DefaultModel: "claude-sonnet-4-5",
			Models:       []string{"claude-sonnet-4-5", "openai-gpt-4.1"},
		},
		Agent: config.AgentConfig{Mode: config.ModeHeuristic},
	}
	return NewModel(cfg, asker, store, nil, nil, "test")
}

func TestAskCmdRunsOneTurn(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{Text: "There were 12 orders.", SQL: "SELECT COUNT(*) FROM orders"}}
	m := newTestModel(t, asker)

	cmd, err := m.AskCmd("How many orders?")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.True(t, m.Session.Busy())

	_, err = m.AskCmd("second")
	assert.ErrorIs(t, err, ErrBusy)

	msg, ok := cmd().(TurnCompleteMsg)
	require.True(t, ok)
	assert.True(t, m.HandleTurnComplete(msg))

	require.Len(t, asker.turns, 1)
	assert.Equal(t, "How many orders?", asker.turns[0].Question)
	assert.Equal(t, StateDisplaying, m.Session.State())
	require.Len(t, m.Session.Messages, 2)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", m.Session.Messages[1].SQL)
	assert.True(t, m.SessionDirty)
}

func TestAbandonedTurnIsDropped(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{Text: "late"}}
	m := newTestModel(t, asker)

	cmd, err := m.AskCmd("q")
	require.NoError(t, err)
	m.NewConversation()

	next, err := m.AskCmd("fresh question")
	require.NoError(t, err)

	assert.False(t, m.HandleTurnComplete(cmd().(TurnCompleteMsg)))
	assert.True(t, m.Session.Busy())

	assert.True(t, m.HandleTurnComplete(next().(TurnCompleteMsg)))
	require.Len(t, m.Session.Messages, 2)
	assert.Equal(t, "fresh question", m.Session.Messages[0].Content)
}

func TestAskCmdHalted(t *testing.T) {
	m := newTestModel(t, &fakeAsker{})
	m.HandleProvisioned(ProvisionedMsg{Err: errors.New("agent spec missing")})

	assert.True(t, m.Halted)
	_, err := m.AskCmd("q")
	assert.ErrorIs(t, err, ErrHalted)
	assert.Empty(t, m.Session.Messages)
}

func TestRunReportCmd(t *testing.T) {
	report := &assistant.Report{Title: assistant.ReportTitle, Columns: []string{"N"}, Rows: [][]string{{"12"}}}
	asker := &fakeAsker{answer: &assistant.Answer{Text: "a", SQL: "SELECT 12 AS N"}, report: report}
	m := newTestModel(t, asker)

	cmd, err := m.AskCmd("q")
	require.NoError(t, err)
	m.HandleTurnComplete(cmd().(TurnCompleteMsg))

	idx := m.LastSQLIndex()
	require.Equal(t, 1, idx)

	reportCmd := m.RunReportCmd(idx)
	require.NotNil(t, reportCmd)
	m.HandleReport(reportCmd().(ReportMsg))

	assert.Equal(t, []string{"SELECT 12 AS N"}, asker.reports)
	assert.Equal(t, report, m.Session.Messages[idx].Report)
	assert.Nil(t, m.RunReportCmd(0), "user messages carry no SQL")
	assert.Nil(t, m.RunReportCmd(7))
}

func TestSaveCurrentSession(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{Text: "a", Thread: cortex.ThreadContext{ThreadID: "3", ParentMessageID: "8"}}}
	m := newTestModel(t, asker)
	m.Session.Settings.UseThreads = true

	assert.Nil(t, m.SaveCurrentSession(), "nothing to save yet")

	cmd, err := m.AskCmd("What is the refund policy?")
	require.NoError(t, err)
	m.HandleTurnComplete(cmd().(TurnCompleteMsg))

	save := m.AutoSaveSession()
	require.NotNil(t, save)
	require.NotEmpty(t, m.Session.ID)
	assert.Equal(t, "What is the refund policy?", m.Session.Name)

	saved, ok := save().(SessionSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.Nil(t, m.AutoSaveSession(), "clean after save")

	loaded, err := m.SessionStorage.Load(m.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, cortex.ID("3"), loaded.Thread.ThreadID)
	assert.Len(t, loaded.Messages, 2)

	current, err := m.SessionStorage.LoadCurrentSessionID()
	require.NoError(t, err)
	assert.Equal(t, m.Session.ID, current)
}

func TestApplyLoadedSession(t *testing.T) {
	m := newTestModel(t, &fakeAsker{})
	saved := &storage.Session{
		ID:       "s1",
		Name:     "Old",
		Model:    "openai-gpt-4.1",
		Messages: []storage.Message{{Role: RoleUser, Content: "hi"}},
	}

	require.NoError(t, m.ApplyLoadedSession(saved))
	assert.Equal(t, "s1", m.Session.ID)
	assert.Equal(t, "openai-gpt-4.1", m.Session.Settings.Model)
	assert.Equal(t, StateAwaitingInput, m.Session.State())
}

func TestSelectModel(t *testing.T) {
	m := newTestModel(t, &fakeAsker{})
	assert.Nil(t, m.SelectModel("not-a-model"))
	assert.Equal(t, "claude-sonnet-4-5", m.Session.Settings.Model)

	require.NotNil(t, m.SelectModel("openai-gpt-4.1"))
	assert.Equal(t, "openai-gpt-4.1", m.Session.Settings.Model)
}

func TestThreadStatus(t *testing.T) {
	m := newTestModel(t, &fakeAsker{})
	assert.Equal(t, "off", m.ThreadStatus())

	m.Session.Settings.UseThreads = true
	assert.Equal(t, "new on next question", m.ThreadStatus())

	m.Session.Thread = cortex.ThreadContext{ThreadID: "42", ParentMessageID: "7"}
	assert.Equal(t, "thread 42 @ 7", m.ThreadStatus())
}
