// Package ingest implements S1: converting raw Claude Code hook payloads and
// transcript JSONL lines into model.ActivityEvent values.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

const (
	hookPostToolUse  = "PostToolUse"
	hookNotification = "Notification"
	hookStop         = "Stop"
	hookSessionStart = "SessionStart"
	hookSessionEnd   = "SessionEnd"
)

type rawHookPayload struct {
	HookEventName string         `json:"hook_event_name"`
	SessionID     string         `json:"session_id"`
	ToolName      string         `json:"tool_name"`
	ToolInput     map[string]any `json:"tool_input"`
	ToolResponse  any            `json:"tool_response"`
	Type          string         `json:"type"`
	Message       string         `json:"message"`
	Options       []string       `json:"options"`
	StopReason    string         `json:"stop_reason"`
	Reason        string         `json:"reason"`
}

// HookAdapter turns raw hook JSON (as Claude Code writes it to a hook
// script's stdin) into ActivityEvents.
type HookAdapter struct {
	log logging.Logger
}

// NewHookAdapter builds a HookAdapter. A nil logger installs a no-op.
func NewHookAdapter(log logging.Logger) *HookAdapter {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &HookAdapter{log: log}
}

// ParseHookEvent converts a raw hook JSON payload into an ActivityEvent.
// Malformed JSON returns (nil, err); an unrecognised hook_event_name is
// logged at warn level and returns (nil, nil). Callers drop a nil event
// and never crash the ingest loop.
func (h *HookAdapter) ParseHookEvent(raw []byte) (*model.ActivityEvent, error) {
	var payload rawHookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("ingest: malformed hook payload: %w", err)
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = "unknown"
	}

	switch payload.HookEventName {
	case hookPostToolUse:
		return h.parsePostToolUse(payload, sessionID), nil
	case hookNotification:
		return h.parseNotification(payload, sessionID), nil
	case hookStop:
		return h.parseStop(payload, sessionID), nil
	case hookSessionStart:
		ev := model.NewActivityEvent(sessionID, model.SourceHook, model.EventSessionStart)
		return &ev, nil
	case hookSessionEnd:
		ev := model.NewActivityEvent(sessionID, model.SourceHook, model.EventSessionEnd)
		return &ev, nil
	default:
		h.log.Warn("ingest: unrecognised hook_event_name, skipping", "hook_event_name", payload.HookEventName)
		return nil, nil
	}
}

func (h *HookAdapter) parsePostToolUse(payload rawHookPayload, sessionID string) *model.ActivityEvent {
	ev := model.NewActivityEvent(sessionID, model.SourceHook, model.EventToolExecuted)
	ev.ToolName = payload.ToolName
	ev.ToolInput = payload.ToolInput
	ev.ToolOutput = payload.ToolResponse
	return &ev
}

func (h *HookAdapter) parseNotification(payload rawHookPayload, sessionID string) *model.ActivityEvent {
	ev := model.NewActivityEvent(sessionID, model.SourceHook, model.EventAgentBlocked)
	ev.BlockReason = inferBlockReason(payload.Type, payload.Message)
	ev.Message = payload.Message
	ev.Options = payload.Options
	return &ev
}

func (h *HookAdapter) parseStop(payload rawHookPayload, sessionID string) *model.ActivityEvent {
	ev := model.NewActivityEvent(sessionID, model.SourceHook, model.EventAgentStopped)
	ev.StopReason = payload.StopReason
	if ev.StopReason == "" {
		ev.StopReason = payload.Reason
	}
	return &ev
}

// inferBlockReason determines a BlockReason from notification metadata: the
// explicit type field is checked first, then keyword matching against the
// message body as a fallback. The message fallback only ever resolves to
// permission or idle — a bare "question" in prose is too noisy a signal.
func inferBlockReason(notificationType, message string) model.BlockReason {
	lowered := strings.ToLower(notificationType)
	switch {
	case strings.Contains(lowered, "permission"):
		return model.BlockPermission
	case strings.Contains(lowered, "idle"):
		return model.BlockIdle
	case strings.Contains(lowered, "question"):
		return model.BlockQuestion
	}

	if message != "" {
		msgLower := strings.ToLower(message)
		switch {
		case strings.Contains(msgLower, "permission"):
			return model.BlockPermission
		case strings.Contains(msgLower, "idle"):
			return model.BlockIdle
		}
	}

	return ""
}
