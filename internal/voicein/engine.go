package voicein

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/voiceout"
)

// State summarizes the operational state of the S4 subsystem.
type State string

const (
	StateListening State = "listening"
	StateActive    State = "active"
	StateDegraded  State = "degraded"
	StateDisabled  State = "disabled"
)

const (
	ttsWaitTimeout = 20 * time.Second
	ttsWaitInitial = 500 * time.Millisecond
)

// Confirmer optionally speaks a short confirmation ("Sending: Allow")
// before dispatch. Adapted from the teacher's ad hoc access to the TTS
// engine's internals into a narrow capability the S4 engine can call.
type Confirmer interface {
	Confirm(ctx context.Context, text string) error
}

// Engine is the S4 stage: it watches the activity bus for agent_blocked
// events carrying response options, captures and transcribes a spoken
// reply, matches it to an option, and dispatches it back into the
// assistant's terminal.
type Engine struct {
	microphone *Microphone
	client     *Client
	matcher    *Matcher
	dispatcher *Dispatcher
	confirmer  Confirmer

	alerts           *voiceout.AlertManager
	criticalComplete *voiceout.Signal
	response         *bus.Bus[model.ResponseEvent]

	confidenceThreshold float64
	captureOpts         CaptureOptions

	log logging.Logger

	mu             sync.Mutex
	currentSession string
	cancelListen   context.CancelFunc
}

// NewEngine wires an Engine. confirmer and response may be nil/disabled.
func NewEngine(
	microphone *Microphone,
	client *Client,
	matcher *Matcher,
	dispatcher *Dispatcher,
	confirmer Confirmer,
	alerts *voiceout.AlertManager,
	criticalComplete *voiceout.Signal,
	response *bus.Bus[model.ResponseEvent],
	confidenceThreshold float64,
	captureOpts CaptureOptions,
	log logging.Logger,
) *Engine {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Engine{
		microphone:          microphone,
		client:              client,
		matcher:             matcher,
		dispatcher:          dispatcher,
		confirmer:           confirmer,
		alerts:              alerts,
		criticalComplete:    criticalComplete,
		response:            response,
		confidenceThreshold: confidenceThreshold,
		captureOpts:         captureOpts,
		log:                 log,
	}
}

// State reports S4's operational health.
func (e *Engine) State() State {
	if e.IsListening() {
		return StateListening
	}
	sttOK := e.client.IsAvailable()
	micOK := e.microphone.IsAvailable()
	switch {
	case sttOK && micOK:
		return StateActive
	case sttOK || micOK:
		return StateDegraded
	default:
		return StateDisabled
	}
}

// IsListening reports whether a capture cycle is in progress.
func (e *Engine) IsListening() bool { return e.microphone.IsListening() }

// STTAvailable reports the transcription backend's last-known health.
func (e *Engine) STTAvailable() bool { return e.client.IsAvailable() }

// MicAvailable reports whether the capture device is usable.
func (e *Engine) MicAvailable() bool { return e.microphone.IsAvailable() }

// DispatchAvailable reports whether a response-dispatch method was detected.
func (e *Engine) DispatchAvailable() bool { return e.dispatcher.IsAvailable() }

// Run watches the activity bus until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, activity *bus.Bus[model.ActivityEvent]) {
	ch, id := activity.Subscribe()
	defer activity.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			e.cancelActiveListen()
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev model.ActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("voicein: handler panic — continuing with next event", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if ev.Type == model.EventAgentBlocked {
		e.handleBlocked(ctx, ev)
		return
	}

	e.mu.Lock()
	active := e.currentSession != "" && e.currentSession == ev.SessionID
	e.mu.Unlock()
	if active {
		e.log.Info("voicein: cancelling listening for resolved session", "session", ev.SessionID)
		e.cancelActiveListen()
	}
}

func (e *Engine) handleBlocked(ctx context.Context, ev model.ActivityEvent) {
	e.cancelActiveListen()

	listenCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.currentSession = ev.SessionID
	e.cancelListen = cancel
	e.mu.Unlock()

	go e.listenAndRespond(listenCtx, ev.SessionID, ev.Options, ev.BlockReason)
}

func (e *Engine) cancelActiveListen() {
	e.mu.Lock()
	cancel := e.cancelListen
	e.cancelListen = nil
	e.mu.Unlock()

	if cancel != nil {
		e.microphone.Cancel()
		cancel()
	}
}

// waitForTTS blocks until S3 finishes playing the critical alert +
// narration for this block, so the microphone never opens while the
// speaker is active. The initial delay lets the event propagate through
// ingest -> summarize -> voiceout before the signal is checked, matching
// the teacher's rationale for why a bare poll of a boolean flag races.
func (e *Engine) waitForTTS(ctx context.Context) {
	if e.criticalComplete == nil {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(ttsWaitInitial):
	}

	waitCtx, cancel := context.WithTimeout(ctx, ttsWaitTimeout)
	defer cancel()
	if err := e.criticalComplete.Wait(waitCtx); err != nil {
		e.log.Warn("voicein: timed out waiting for TTS to finish critical playback")
	}
}

func (e *Engine) listenAndRespond(ctx context.Context, sessionID string, options []string, blockReason model.BlockReason) {
	defer e.clearCurrentSession(sessionID)

	e.waitForTTS(ctx)

	if !e.microphone.IsAvailable() {
		e.log.Info("voicein: microphone not available — skipping voice capture")
		return
	}

	audio := e.microphone.CaptureUntilSilence(ctx, e.captureOpts)
	if audio == nil {
		e.log.Info("voicein: no speech detected", "session", sessionID)
		return
	}

	if !e.client.IsAvailable() {
		e.log.Info("voicein: STT not available — cannot transcribe")
		return
	}
	transcript := e.client.Transcribe(ctx, audio)
	if transcript == "" {
		e.log.Warn("voicein: transcription returned empty", "session", sessionID)
		return
	}
	e.log.Info("voicein: transcript", "session", sessionID, "text", transcript)

	result := e.matcher.Match(transcript, options, blockReason)
	e.log.Info("voicein: match result", "session", sessionID, "text", result.MatchedText, "confidence", result.Confidence, "method", result.Method)

	if result.Method != model.MatchVerbatim && result.Confidence < e.confidenceThreshold {
		e.log.Info("voicein: low confidence — not dispatching", "session", sessionID, "confidence", result.Confidence)
		return
	}

	if e.response != nil {
		e.response.Emit(model.ResponseEvent{
			Text:        result.MatchedText,
			Transcript:  transcript,
			SessionID:   sessionID,
			MatchMethod: result.Method,
			Confidence:  result.Confidence,
			Options:     options,
		})
	}

	e.confirmAndDispatch(ctx, result, sessionID)
}

func (e *Engine) confirmAndDispatch(ctx context.Context, result MatchResult, sessionID string) {
	if e.confirmer != nil {
		if err := e.confirmer.Confirm(ctx, fmt.Sprintf("Sending: %s", result.MatchedText)); err != nil {
			e.log.Debug("voicein: confirmation speech failed — continuing with dispatch", "error", err)
		}
	}

	if e.dispatcher.IsAvailable() {
		if e.dispatcher.Dispatch(ctx, result.MatchedText) {
			e.log.Info("voicein: response dispatched", "session", sessionID, "text", result.MatchedText)
		} else {
			e.log.Warn("voicein: response dispatch failed", "session", sessionID)
		}
	} else {
		e.log.Info("voicein: dispatch unavailable — matched response logged for manual entry", "text", result.MatchedText)
	}

	// Clear the alert regardless of dispatch outcome so it stops repeating
	// once a reply has been matched.
	if e.alerts != nil {
		e.alerts.ClearAlert(sessionID)
	}
}

func (e *Engine) clearCurrentSession(sessionID string) {
	e.mu.Lock()
	if e.currentSession == sessionID {
		e.currentSession = ""
		e.cancelListen = nil
	}
	e.mu.Unlock()
}

// HandleManualResponse bypasses STT capture and matching entirely,
// dispatching text directly — the path a POST /respond HTTP endpoint uses.
func (e *Engine) HandleManualResponse(ctx context.Context, sessionID, text string) bool {
	e.cancelActiveListen()

	if e.response != nil {
		e.response.Emit(model.ResponseEvent{
			Text:        text,
			Transcript:  text,
			SessionID:   sessionID,
			MatchMethod: model.MatchVerbatim,
			Confidence:  1.0,
		})
	}

	if !e.dispatcher.IsAvailable() {
		e.log.Warn("voicein: dispatch unavailable for manual response", "text", text)
		if e.alerts != nil {
			e.alerts.ClearAlert(sessionID)
		}
		return false
	}

	success := e.dispatcher.Dispatch(ctx, text)
	e.log.Info("voicein: manual response dispatched", "session", sessionID, "text", text, "success", success)
	if e.alerts != nil {
		e.alerts.ClearAlert(sessionID)
	}
	return success
}
