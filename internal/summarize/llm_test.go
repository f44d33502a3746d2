package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/echo-copilot/echo/internal/model"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestSummarizeUsesLLMWhenAvailable(t *testing.T) {
	client := &fakeCompleter{response: "Refactored the auth module."}
	s := NewLLMSummarizer(client, time.Minute, nil)
	s.CheckHealth(context.Background())

	ev := model.ActivityEvent{Type: model.EventAgentMessage, Text: "I refactored the auth module to use sessions."}
	n := s.Summarize(context.Background(), ev)

	if n.SummarizationMethod != model.SummarizationLLM {
		t.Errorf("SummarizationMethod = %v, want llm", n.SummarizationMethod)
	}
	if n.Text != "Refactored the auth module." {
		t.Errorf("Text = %q", n.Text)
	}
}

func TestSummarizeFallsBackToTruncationOnFailure(t *testing.T) {
	client := &fakeCompleter{err: errors.New("connection refused")}
	s := NewLLMSummarizer(client, time.Minute, nil)
	s.CheckHealth(context.Background())

	// CheckHealth itself failed, so available is false -> truncation path.
	longText := strings.Repeat("a", 1500)
	ev := model.ActivityEvent{Type: model.EventAgentMessage, Text: longText}
	n := s.Summarize(context.Background(), ev)

	if n.SummarizationMethod != model.SummarizationTruncation {
		t.Errorf("SummarizationMethod = %v, want truncation", n.SummarizationMethod)
	}
	if !strings.HasSuffix(n.Text, "...") {
		t.Errorf("expected truncated text to end with ellipsis, got %q", n.Text[len(n.Text)-10:])
	}
	if len(n.Text) != truncatedLength+3 {
		t.Errorf("len(Text) = %d, want %d", len(n.Text), truncatedLength+3)
	}
}

func TestSummarizeShortTextUnderLimitIsNotTruncated(t *testing.T) {
	s := NewLLMSummarizer(nil, time.Minute, nil)
	ev := model.ActivityEvent{Type: model.EventAgentMessage, Text: "Short message."}
	n := s.Summarize(context.Background(), ev)
	if n.Text != "Short message." {
		t.Errorf("Text = %q", n.Text)
	}
}
