package voicein

import (
	"context"
	"errors"
	"testing"

	"github.com/echo-copilot/echo/internal/voiceout"
)

type stubSynth struct {
	pcm []byte
	err error
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.pcm, s.err
}

type noopDevice struct{}

func (noopDevice) Play(pcm []byte) error { return nil }
func (noopDevice) Stop()                 {}

func TestTTSConfirmerNoOpWithoutSynthOrPlayer(t *testing.T) {
	c := NewTTSConfirmer(nil, nil)
	if err := c.Confirm(context.Background(), "Sending: Allow"); err != nil {
		t.Fatalf("expected no-op confirm to succeed, got %v", err)
	}
}

func TestTTSConfirmerPlaysSynthesizedAudio(t *testing.T) {
	player := voiceout.NewPlayer(noopDevice{}, 10, nil)
	go player.Run()
	defer player.Close()

	c := NewTTSConfirmer(&stubSynth{pcm: []byte("confirmed")}, player)
	if err := c.Confirm(context.Background(), "Sending: Allow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTTSConfirmerPropagatesSynthesisError(t *testing.T) {
	c := NewTTSConfirmer(&stubSynth{err: errors.New("tts down")}, voiceout.NewPlayer(nil, 10, nil))
	if err := c.Confirm(context.Background(), "Sending: Allow"); err == nil {
		t.Fatal("expected synthesis error to propagate")
	}
}
