package voiceout

import (
	"context"
	"sync"
	"time"

	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

// RepeatCallback re-fires narration for a still-unanswered alert.
type RepeatCallback func(ctx context.Context, reason model.BlockReason, narrationText string)

type activeAlert struct {
	alert  model.ActiveAlert
	cancel context.CancelFunc
}

// AlertManager tracks one active alert per session and re-fires it at
// RepeatInterval until ClearAlert is called or MaxRepeats is reached.
// Activating a new alert for a session replaces (and cancels the repeat
// timer of) any existing one for that session.
type AlertManager struct {
	mu             sync.Mutex
	active         map[string]*activeAlert
	repeatInterval time.Duration
	maxRepeats     int
	callback       RepeatCallback
	log            logging.Logger
}

// NewAlertManager builds an AlertManager. repeatInterval <= 0 disables the
// repeat timer entirely (each alert fires once and waits for resolution).
func NewAlertManager(repeatInterval time.Duration, maxRepeats int, log logging.Logger) *AlertManager {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &AlertManager{
		active:         make(map[string]*activeAlert),
		repeatInterval: repeatInterval,
		maxRepeats:     maxRepeats,
		log:            log,
	}
}

// SetRepeatCallback installs the function invoked on each repeat.
func (m *AlertManager) SetRepeatCallback(cb RepeatCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// ActiveAlertCount returns the number of sessions with an outstanding alert.
func (m *AlertManager) ActiveAlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// HasActiveAlert reports whether sessionID currently has an open alert.
func (m *AlertManager) HasActiveAlert(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[sessionID]
	return ok
}

// GetActiveAlert returns a copy of the active alert for sessionID, if any.
func (m *AlertManager) GetActiveAlert(sessionID string) (model.ActiveAlert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.active[sessionID]
	if !ok {
		return model.ActiveAlert{}, false
	}
	return a.alert, true
}

// Activate registers a new alert for sessionID, replacing any existing one,
// and starts its repeat timer (if repeatInterval > 0).
func (m *AlertManager) Activate(ctx context.Context, sessionID string, reason model.BlockReason, narrationText string) {
	m.clearLocked(sessionID)

	alertCtx, cancel := context.WithCancel(ctx)
	entry := &activeAlert{
		alert: model.ActiveAlert{
			SessionID:     sessionID,
			BlockReason:   reason,
			NarrationText: narrationText,
			CreatedAt:     time.Now(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.active[sessionID] = entry
	m.mu.Unlock()

	if m.repeatInterval > 0 {
		go m.repeatLoop(alertCtx, sessionID)
	}
}

// ClearAlert removes sessionID's alert and cancels its repeat timer.
// Idempotent: clearing an already-cleared (or never-existing) session is a
// no-op, matching the original's unconditional-clear semantics used by
// both the manual-override path and the main listen pipeline.
func (m *AlertManager) ClearAlert(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(sessionID)
}

func (m *AlertManager) clearLocked(sessionID string) {
	entry, ok := m.active[sessionID]
	if !ok {
		return
	}
	entry.cancel()
	delete(m.active, sessionID)
}

// HandleActivityEvent clears sessionID's alert whenever a non-agent_blocked
// event arrives for that session — any other activity means the block was
// resolved through some other channel.
func (m *AlertManager) HandleActivityEvent(ev model.ActivityEvent) {
	if ev.Type == model.EventAgentBlocked {
		return
	}
	if m.HasActiveAlert(ev.SessionID) {
		m.log.Info("voiceout: alert resolved externally", "session_id", ev.SessionID, "event_type", ev.Type)
		m.ClearAlert(ev.SessionID)
	}
}

func (m *AlertManager) repeatLoop(ctx context.Context, sessionID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.repeatInterval):
		}

		m.mu.Lock()
		entry, ok := m.active[sessionID]
		if !ok {
			m.mu.Unlock()
			return
		}
		if entry.alert.RepeatCount >= m.maxRepeats {
			m.log.Info("voiceout: max alert repeats reached", "session_id", sessionID, "max", m.maxRepeats)
			m.mu.Unlock()
			return
		}
		entry.alert.RepeatCount++
		reason := entry.alert.BlockReason
		text := entry.alert.NarrationText
		cb := m.callback
		m.mu.Unlock()

		if cb != nil {
			cb(ctx, reason, text)
		}
	}
}
