package voicein

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	return f.text, f.err
}

func TestClientUnavailableWithNilBackend(t *testing.T) {
	c := NewClient(nil, time.Minute, nil)
	c.Start(context.Background())
	if c.IsAvailable() {
		t.Fatal("expected client with nil backend to be unavailable")
	}
	if got := c.Transcribe(context.Background(), []byte{1}); got != "" {
		t.Fatalf("Transcribe = %q, want empty string", got)
	}
}

func TestClientTranscribesWhenAvailable(t *testing.T) {
	c := NewClient(&fakeTranscriber{text: "allow it"}, time.Minute, nil)
	c.Start(context.Background())
	if !c.IsAvailable() {
		t.Fatal("expected client with a backend to be available")
	}
	if got := c.Transcribe(context.Background(), []byte{1}); got != "allow it" {
		t.Fatalf("Transcribe = %q, want %q", got, "allow it")
	}
}

func TestClientSwallowsBackendError(t *testing.T) {
	c := NewClient(&fakeTranscriber{err: errors.New("network down")}, time.Minute, nil)
	c.Start(context.Background())
	if got := c.Transcribe(context.Background(), []byte{1}); got != "" {
		t.Fatalf("Transcribe = %q, want empty string on backend error", got)
	}
}
