// Package model defines the shared event types that flow through echo's
// pipeline: ActivityEvent out of S1, NarrationEvent out of S2, ResponseEvent
// out of S4, and the ActiveAlert bookkeeping type used by the voice-out
// alert state machine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of activity an ActivityEvent carries.
type EventType string

const (
	EventToolExecuted EventType = "tool_executed"
	EventAgentMessage EventType = "agent_message"
	EventAgentBlocked EventType = "agent_blocked"
	EventAgentStopped EventType = "agent_stopped"
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
)

// BlockReason narrows why an agent_blocked event was raised.
type BlockReason string

const (
	BlockPermission BlockReason = "permission_prompt"
	BlockQuestion   BlockReason = "question"
	BlockIdle       BlockReason = "idle_prompt"
)

// Source distinguishes which ingest path produced the event.
type Source string

const (
	SourceHook       Source = "hook"
	SourceTranscript Source = "transcript"
)

// ActivityEvent is the canonical tagged union produced by S1 ingest and
// consumed by every downstream stage. Fields not relevant to Type are left
// zero-valued; callers switch on Type before reading type-specific fields.
type ActivityEvent struct {
	EventID   string
	Timestamp time.Time
	SessionID string
	Source    Source
	Type      EventType

	// tool_executed
	ToolName   string
	ToolInput  map[string]any
	ToolOutput any

	// agent_message
	Text string

	// agent_blocked
	BlockReason BlockReason
	Message     string
	Options     []string

	// agent_stopped
	StopReason string
}

// NewActivityEvent stamps an event with a fresh ID and the current time.
func NewActivityEvent(sessionID string, source Source, typ EventType) ActivityEvent {
	return ActivityEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		SessionID: sessionID,
		Source:    source,
		Type:      typ,
	}
}

// NarrationPriority ranks how urgently S3 must speak a NarrationEvent.
type NarrationPriority int

const (
	NarrationLow NarrationPriority = iota
	NarrationNormal
	NarrationCritical
)

// SummarizationMethod records how S2 produced a NarrationEvent's text.
type SummarizationMethod string

const (
	SummarizationTemplate  SummarizationMethod = "template"
	SummarizationLLM       SummarizationMethod = "llm"
	SummarizationTruncation SummarizationMethod = "truncation"
)

// NarrationEvent is what S2 emits and S3 consumes.
type NarrationEvent struct {
	Text                string
	Priority            NarrationPriority
	SourceEventType     EventType
	SummarizationMethod SummarizationMethod
	SessionID           string
	SourceEventID       string
	BlockReason         BlockReason
	Options             []string
}

// MatchMethod records which strategy the response matcher used.
type MatchMethod string

const (
	MatchOrdinal  MatchMethod = "ordinal"
	MatchYesNo    MatchMethod = "yes_no"
	MatchDirect   MatchMethod = "direct"
	MatchFuzzy    MatchMethod = "fuzzy"
	MatchVerbatim MatchMethod = "verbatim"
)

// ResponseEvent is what S4 emits after a spoken (or manual) reply is matched.
type ResponseEvent struct {
	Text        string
	Transcript  string
	SessionID   string
	MatchMethod MatchMethod
	Confidence  float64
	Options     []string
}

// ActiveAlert tracks a blocked session's outstanding alert for the repeat
// timer that re-fires narration until the developer answers.
type ActiveAlert struct {
	SessionID      string
	BlockReason    BlockReason
	NarrationText  string
	CreatedAt      time.Time
	RepeatCount    int
}
