package voicein

import (
	"context"
	"testing"
	"time"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/voiceout"
)

// stubConfirmer counts the confirmations the engine asks for.
type stubConfirmer struct{ called int }

func (s *stubConfirmer) Confirm(ctx context.Context, text string) error {
	s.called++
	return nil
}

func newUnavailableMicrophone() *Microphone {
	// Never Started, so IsAvailable() stays false — exercises the
	// "microphone not available" early-return path without touching
	// real audio hardware.
	return NewMicrophone(nil, 16000, nil)
}

func TestEngineStateDisabledWithNoBackends(t *testing.T) {
	mic := newUnavailableMicrophone()
	client := NewClient(nil, time.Minute, nil)
	client.Start(context.Background())
	matcher := NewMatcher(0.6)
	dispatcher := NewDispatcher("", nil)

	e := NewEngine(mic, client, matcher, dispatcher, nil, nil, nil, nil, 0.6, CaptureOptions{}, nil)
	if e.State() != StateDisabled {
		t.Fatalf("State() = %q, want disabled", e.State())
	}
}

func TestEngineHandleBlockedSkipsWhenMicUnavailable(t *testing.T) {
	mic := newUnavailableMicrophone()
	client := NewClient(&fakeTranscriber{text: "allow"}, time.Minute, nil)
	client.Start(context.Background())
	matcher := NewMatcher(0.6)
	dispatcher := NewDispatcher("tmux", nil)
	dispatcher.Start()

	respBus := bus.New[model.ResponseEvent]()
	ch, id := respBus.Subscribe()
	defer respBus.Unsubscribe(id)

	e := NewEngine(mic, client, matcher, dispatcher, nil, nil, nil, respBus, 0.6, CaptureOptions{
		ListenTimeout: 50 * time.Millisecond,
		MaxDuration:   time.Second,
	}, nil)

	e.handleBlocked(context.Background(), model.ActivityEvent{
		SessionID:   "s1",
		Type:        model.EventAgentBlocked,
		Options:     []string{"Allow", "Deny"},
		BlockReason: model.BlockPermission,
	})

	select {
	case <-ch:
		t.Fatal("expected no response event when microphone is unavailable")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEngineCancelsListeningOnNonBlockedEventForActiveSession(t *testing.T) {
	mic := newUnavailableMicrophone()
	client := NewClient(nil, time.Minute, nil)
	matcher := NewMatcher(0.6)
	dispatcher := NewDispatcher("", nil)

	e := NewEngine(mic, client, matcher, dispatcher, nil, nil, nil, nil, 0.6, CaptureOptions{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.currentSession = "s1"
	e.cancelListen = cancel
	e.mu.Unlock()

	e.handle(context.Background(), model.ActivityEvent{SessionID: "s1", Type: model.EventAgentStopped})

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected the active listen context to be cancelled")
	}
}

func TestEngineManualResponseDispatchesAndClearsAlert(t *testing.T) {
	mic := newUnavailableMicrophone()
	client := NewClient(nil, time.Minute, nil)
	matcher := NewMatcher(0.6)
	dispatcher := NewDispatcher("tmux", nil)
	dispatcher.Start()
	var calls [][]string
	dispatcher.runCmd = func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}

	alerts := voiceout.NewAlertManager(0, 3, nil)
	alerts.Activate(context.Background(), "s1", model.BlockPermission, "needs approval")

	e := NewEngine(mic, client, matcher, dispatcher, nil, alerts, nil, nil, 0.6, CaptureOptions{}, nil)

	ok := e.HandleManualResponse(context.Background(), "s1", "Allow")
	if !ok {
		t.Fatal("expected manual dispatch to succeed")
	}
	if len(calls) != 1 {
		t.Fatalf("expected one dispatch call, got %d", len(calls))
	}
	if alerts.HasActiveAlert("s1") {
		t.Fatal("expected alert to be cleared after successful manual dispatch")
	}
}

func TestEngineConfirmAndDispatchCallsConfirmer(t *testing.T) {
	mic := newUnavailableMicrophone()
	client := NewClient(nil, time.Minute, nil)
	matcher := NewMatcher(0.6)
	dispatcher := NewDispatcher("tmux", nil)
	dispatcher.Start()
	dispatcher.runCmd = func(ctx context.Context, name string, args ...string) error { return nil }

	confirmer := &stubConfirmer{}
	e := NewEngine(mic, client, matcher, dispatcher, confirmer, nil, nil, nil, 0.6, CaptureOptions{}, nil)

	e.confirmAndDispatch(context.Background(), MatchResult{MatchedText: "Allow"}, "s1")
	if confirmer.called != 1 {
		t.Fatalf("confirmer called %d times, want 1", confirmer.called)
	}
}
