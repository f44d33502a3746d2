package voiceout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/model"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte(text), nil
}

func (s *fakeSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestEngine(t *testing.T, synth *fakeSynth) (*Engine, *Player, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	player := NewPlayer(dev, 10, nil)
	go player.Run()
	t.Cleanup(player.Close)

	alerts := NewAlertManager(0, 3, nil)
	sink := NewRemoteSink("", nil)
	engine := NewEngine(player, synth, alerts, sink, 16000, 10, nil)
	return engine, player, dev
}

func TestEngineHandleNormalEnqueues(t *testing.T) {
	synth := &fakeSynth{}
	engine, player, _ := newTestEngine(t, synth)

	engine.handle(context.Background(), model.NarrationEvent{
		SessionID: "s1",
		Priority:  model.NarrationNormal,
		Text:      "a tool ran",
	})

	time.Sleep(50 * time.Millisecond)
	if synth.callCount() != 1 {
		t.Fatalf("synth calls = %d, want 1", synth.callCount())
	}
	_ = player
}

func TestEngineHandleLowSkipsWhenBacklogged(t *testing.T) {
	synth := &fakeSynth{}
	dev := &fakeDevice{}
	player := NewPlayer(dev, 0, nil) // backlogThreshold 0: never drains (Run not started)

	alerts := NewAlertManager(0, 3, nil)
	sink := NewRemoteSink("", nil)
	engine := NewEngine(player, synth, alerts, sink, 16000, 0, nil)

	player.Enqueue([]byte("filler"), PriorityNormal)

	engine.handle(context.Background(), model.NarrationEvent{
		SessionID: "s1",
		Priority:  model.NarrationLow,
		Text:      "low priority narration",
	})

	if synth.callCount() != 0 {
		t.Fatalf("expected low-priority narration to be skipped under backlog, got %d synth calls", synth.callCount())
	}
}

func TestEngineHandleCriticalSignalsCompletion(t *testing.T) {
	synth := &fakeSynth{}
	engine, _, dev := newTestEngine(t, synth)

	sig := engine.CriticalComplete()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sig.Wait(ctx); err != nil {
		t.Fatalf("expected signal to start set: %v", err)
	}

	engine.handle(context.Background(), model.NarrationEvent{
		SessionID:   "s1",
		Priority:    model.NarrationCritical,
		BlockReason: model.BlockPermission,
		Text:        "the agent needs permission",
	})

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := sig.Wait(ctx2); err != nil {
		t.Fatalf("expected signal to be set again after handleCritical completes: %v", err)
	}
	if !engine.alerts.HasActiveAlert("s1") {
		t.Fatal("expected critical narration to activate an alert")
	}
	_ = dev
}

func TestEngineHandleCriticalSignalsCompletionEvenOnSynthError(t *testing.T) {
	synth := &fakeSynth{err: errors.New("tts unavailable")}
	engine, _, _ := newTestEngine(t, synth)

	engine.handle(context.Background(), model.NarrationEvent{
		SessionID:   "s1",
		Priority:    model.NarrationCritical,
		BlockReason: model.BlockIdle,
		Text:        "waiting",
	})

	sig := engine.CriticalComplete()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sig.Wait(ctx); err != nil {
		t.Fatalf("expected signal to be set even when synthesis fails: %v", err)
	}
}

func TestEngineTestTTS(t *testing.T) {
	synth := &fakeSynth{}
	engine, _, _ := newTestEngine(t, synth)

	result := engine.TestTTS(context.Background())
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !result.Played {
		t.Fatal("expected Played to be true")
	}
	if result.Bytes == 0 {
		t.Fatal("expected non-zero byte count")
	}
}

func TestEngineRunConsumesFromBus(t *testing.T) {
	synth := &fakeSynth{}
	engine, _, _ := newTestEngine(t, synth)

	narrationBus := bus.New[model.NarrationEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Run(ctx, narrationBus)
	time.Sleep(10 * time.Millisecond) // let Run subscribe

	narrationBus.Emit(model.NarrationEvent{SessionID: "s1", Priority: model.NarrationNormal, Text: "hello"})

	time.Sleep(50 * time.Millisecond)
	if synth.callCount() != 1 {
		t.Fatalf("synth calls = %d, want 1", synth.callCount())
	}
}
