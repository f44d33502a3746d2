package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

const (
	summarizationPrompt = "Summarize this AI coding assistant message in one short sentence " +
		"(under 20 words) suitable for text-to-speech narration. " +
		"Focus on what was done or decided, not how.\n\nMessage:\n%s\n\nSummary:"

	maxTruncationLength = 1000
	truncatedLength     = 990
)

// Completer is the capability an LLM summarizer needs: one-shot text
// completion. The teacher's provider clients (openai/anthropic/google) are
// adapted to satisfy this rather than the richer conversational
// LLMProvider interface the teacher originally defined, since S2 only ever
// needs a single-turn summarization call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMSummarizer summarizes agent_message text via an LLM, falling back to
// truncation when the backend is unavailable. Availability is tracked with
// an atomic bool set only by CheckHealth, and re-probed on an interval
// while unavailable — matching the "Shared is_available flags"
// design used across every subsystem here.
type LLMSummarizer struct {
	client  Completer
	log     logging.Logger
	healthInterval time.Duration

	available      atomic.Bool
	lastHealthCheck atomic.Int64 // unix nanos
}

// NewLLMSummarizer builds a summarizer around a Completer. healthInterval
// controls how often availability is re-checked while the backend is down.
func NewLLMSummarizer(client Completer, healthInterval time.Duration, log logging.Logger) *LLMSummarizer {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &LLMSummarizer{client: client, log: log, healthInterval: healthInterval}
}

// IsAvailable reports the last-known health of the LLM backend.
func (s *LLMSummarizer) IsAvailable() bool {
	return s.available.Load()
}

// CheckHealth probes the backend with a trivial completion and updates the
// availability flag. Called once at startup by echod and, while the backend
// is unavailable, again by maybeRecheckHealth once healthInterval elapses.
func (s *LLMSummarizer) CheckHealth(ctx context.Context) {
	s.lastHealthCheck.Store(time.Now().UnixNano())
	if s.client == nil {
		s.available.Store(false)
		return
	}
	_, err := s.client.Complete(ctx, "ping")
	s.available.Store(err == nil)
	if err != nil {
		s.log.Warn("summarize: LLM backend unavailable — using truncation fallback", "error", err)
	}
}

func (s *LLMSummarizer) maybeRecheckHealth(ctx context.Context) {
	if s.available.Load() {
		return
	}
	last := time.Unix(0, s.lastHealthCheck.Load())
	if time.Since(last) >= s.healthInterval {
		s.CheckHealth(ctx)
	}
}

// Summarize produces a NarrationEvent for an agent_message event, trying
// the LLM first and falling back to truncation on any failure.
func (s *LLMSummarizer) Summarize(ctx context.Context, ev model.ActivityEvent) model.NarrationEvent {
	s.maybeRecheckHealth(ctx)

	if s.available.Load() && s.client != nil {
		summary, err := s.client.Complete(ctx, fmt.Sprintf(summarizationPrompt, ev.Text))
		if err == nil {
			return model.NarrationEvent{
				Text:                strings.TrimSpace(summary),
				Priority:            model.NarrationNormal,
				SourceEventType:     model.EventAgentMessage,
				SummarizationMethod: model.SummarizationLLM,
				SessionID:           ev.SessionID,
				SourceEventID:       ev.EventID,
			}
		}
		s.log.Warn("summarize: LLM summarization failed — falling back to truncation", "error", err)
	}

	return s.truncate(ev)
}

func (s *LLMSummarizer) truncate(ev model.ActivityEvent) model.NarrationEvent {
	text := ev.Text
	var summary string
	if len(text) <= maxTruncationLength {
		summary = text
	} else {
		summary = strings.TrimRight(text[:truncatedLength], " \t\n") + "..."
	}

	return model.NarrationEvent{
		Text:                summary,
		Priority:            model.NarrationNormal,
		SourceEventType:     model.EventAgentMessage,
		SummarizationMethod: model.SummarizationTruncation,
		SessionID:           ev.SessionID,
		SourceEventID:       ev.EventID,
	}
}
