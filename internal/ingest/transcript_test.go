package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/echo-copilot/echo/internal/model"
)

func TestTranscriptWatcherEmitsAssistantText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess1.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewTranscriptWatcher(dir, nil)
	events := make(chan model.ActivityEvent, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, events) }()

	time.Sleep(100 * time.Millisecond)

	line := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Refactored the parser."}]}}` + "\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(line); err != nil {
		t.Fatal(err)
	}
	f.Close()

	select {
	case ev := <-events:
		if ev.Type != model.EventAgentMessage {
			t.Errorf("Type = %v, want agent_message", ev.Type)
		}
		if ev.Text != "Refactored the parser." {
			t.Errorf("Text = %q", ev.Text)
		}
		if ev.SessionID != "sess1" {
			t.Errorf("SessionID = %q, want sess1", ev.SessionID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transcript event")
	}

	cancel()
	<-done
}

func TestDedupSuppressesRepeats(t *testing.T) {
	w := NewTranscriptWatcher(t.TempDir(), nil)
	now := time.Now()

	if !w.shouldEmit("s1", now) {
		t.Fatal("first emit should be allowed")
	}
	if w.shouldEmit("s1", now) {
		t.Fatal("second emit within the dedup window should be suppressed")
	}
	if !w.shouldEmit("s1", now.Add(2*time.Second)) {
		t.Fatal("emit after the dedup window should be allowed again")
	}
}
