package provider_test

import (
	"context"
	"errors"
	"testing"

	"cortexchat/provider"
	"cortexchat/provider/testutil"
	"cortexchat/router"
)

func TestCompleterCollectsChunks(t *testing.T) {
	mock := testutil.NewMockProvider("m1")
	c := provider.NewCompleter(mock)

	out, err := c.Complete(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "Mock response" {
		t.Errorf("Complete() = %q", out)
	}
	if mock.GetModel() != "m1" {
		t.Errorf("empty model changed provider model to %q", mock.GetModel())
	}
	if len(mock.Calls) != 1 || len(mock.Calls[0]) != 2 || mock.Calls[0][1].Content != "prompt" {
		t.Errorf("unexpected chat call: %+v", mock.Calls)
	}
}

func TestCompleterError(t *testing.T) {
	mock := testutil.NewMockProvider("m1")
	mock.ChatFunc = func(context.Context, []provider.Message, provider.StreamCallback) error {
		return errors.New("rate limited")
	}
	if _, err := provider.NewCompleter(mock).Complete(context.Background(), "m2", "p"); err == nil {
		t.Fatal("expected error")
	}
	if mock.GetModel() != "m2" {
		t.Errorf("model = %q, want m2", mock.GetModel())
	}
}

func TestCompleterDrivesSplitter(t *testing.T) {
	c := provider.NewCompleter(testutil.NewMockProvider("m").Replying(testutil.SplitReply))

	split := router.SplitQuestion(context.Background(), c, "refund policy and how many refunds?", "m")
	if split.Fallback {
		t.Fatal("split fell back")
	}
	if split.AnalystQuery != "How many refunds last month?" {
		t.Errorf("AnalystQuery = %q", split.AnalystQuery)
	}
}
