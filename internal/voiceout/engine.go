package voiceout

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

// Synthesizer is the capability S3 needs from a TTS backend: turn text into
// PCM16 samples at the engine's sample rate. The teacher's richer
// TTSProvider (streaming, voice/language selection) is adapted down to this
// single method for narration, which is always spoken in one default voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TestTTSResult reports the outcome of a diagnostic synth+play round trip.
type TestTTSResult struct {
	Played bool
	Bytes  int
	Err    error
}

// Engine is the S3 stage: it consumes NarrationEvents and routes them by
// priority — CRITICAL preempts and blocks on alert+speech before resuming
// normal playback, NORMAL is queued, LOW is dropped outright under backlog
// rather than even synthesized.
type Engine struct {
	player           *Player
	synth            Synthesizer
	alerts           *AlertManager
	criticalComplete *Signal
	sink             *RemoteSink
	sampleRate       int
	backlogThreshold int
	log              logging.Logger
}

// NewEngine wires an Engine. sink may be a disabled RemoteSink (see
// NewRemoteSink with an empty url).
func NewEngine(player *Player, synth Synthesizer, alerts *AlertManager, sink *RemoteSink, sampleRate, backlogThreshold int, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	e := &Engine{
		player:           player,
		synth:            synth,
		alerts:           alerts,
		criticalComplete: NewSignal(),
		sink:             sink,
		sampleRate:       sampleRate,
		backlogThreshold: backlogThreshold,
		log:              log,
	}
	alerts.SetRepeatCallback(e.repeatAlert)
	return e
}

// CriticalComplete exposes the handoff signal S4 waits on before opening
// the microphone.
func (e *Engine) CriticalComplete() *Signal {
	return e.criticalComplete
}

// Run drains the narration bus until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, narration *bus.Bus[model.NarrationEvent]) {
	ch, id := narration.Subscribe()
	defer narration.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			e.handle(ctx, n)
		}
	}
}

func (e *Engine) handle(ctx context.Context, n model.NarrationEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("voiceout: handler panic — continuing with next narration", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch n.Priority {
	case model.NarrationCritical:
		e.handleCritical(ctx, n)
	case model.NarrationLow:
		e.handleLow(ctx, n)
	default:
		e.handleNormal(ctx, n)
	}
}

func (e *Engine) handleCritical(ctx context.Context, n model.NarrationEvent) {
	e.criticalComplete.Clear()
	defer e.criticalComplete.Set()

	e.player.Interrupt()
	e.alerts.Activate(ctx, n.SessionID, n.BlockReason, n.Text)

	if err := e.player.PlayAlert(n.BlockReason, e.sampleRate); err != nil {
		e.log.Warn("voiceout: alert tone playback failed", "error", err)
	}

	pcm, err := e.synth.Synthesize(ctx, n.Text)
	if err != nil {
		e.log.Warn("voiceout: critical narration synthesis failed", "error", err)
		return
	}
	if err := e.player.PlayImmediate(pcm); err != nil {
		e.log.Warn("voiceout: critical narration playback failed", "error", err)
	}
	e.sink.Publish(ctx, pcm)
}

func (e *Engine) handleNormal(ctx context.Context, n model.NarrationEvent) {
	pcm, err := e.synth.Synthesize(ctx, n.Text)
	if err != nil {
		e.log.Warn("voiceout: normal narration synthesis failed", "error", err)
		return
	}
	e.player.Enqueue(pcm, PriorityNormal)
	e.sink.Publish(ctx, pcm)
}

func (e *Engine) handleLow(ctx context.Context, n model.NarrationEvent) {
	if e.player.QueueDepth() > e.backlogThreshold {
		return
	}
	pcm, err := e.synth.Synthesize(ctx, n.Text)
	if err != nil {
		e.log.Warn("voiceout: low-priority narration synthesis failed", "error", err)
		return
	}
	e.player.Enqueue(pcm, PriorityLow)
	e.sink.Publish(ctx, pcm)
}

// repeatAlert is invoked by AlertManager on each repeat tick: it replays
// the alert tone and re-speaks the original narration text.
func (e *Engine) repeatAlert(ctx context.Context, reason model.BlockReason, narrationText string) {
	if err := e.player.PlayAlert(reason, e.sampleRate); err != nil {
		e.log.Warn("voiceout: repeat alert tone failed", "error", err)
	}
	pcm, err := e.synth.Synthesize(ctx, narrationText)
	if err != nil {
		e.log.Warn("voiceout: repeat narration synthesis failed", "error", err)
		return
	}
	if err := e.player.PlayImmediate(pcm); err != nil {
		e.log.Warn("voiceout: repeat narration playback failed", "error", err)
	}
}

// TestTTS runs the synth+play path end to end with a fixed diagnostic
// phrase and reports the outcome; echod serves it at GET /test-tts.
func (e *Engine) TestTTS(ctx context.Context) TestTTSResult {
	start := time.Now()
	pcm, err := e.synth.Synthesize(ctx, "This is a test of the echo voice output.")
	if err != nil {
		return TestTTSResult{Err: err}
	}
	if err := e.player.PlayImmediate(pcm); err != nil {
		return TestTTSResult{Bytes: len(pcm), Err: err}
	}
	e.log.Debug("voiceout: test-tts completed", "bytes", len(pcm), "elapsed", time.Since(start))
	return TestTTSResult{Played: true, Bytes: len(pcm)}
}
