// Package health assembles a point-in-time Snapshot of every echo
// subsystem's availability, for the HTTP /health endpoint and for export as
// OpenTelemetry gauges. No subsystem depends on this package — it only
// reads the availability accessors each one already exposes.
package health

import (
	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/summarize"
	"github.com/echo-copilot/echo/internal/voicein"
	"github.com/echo-copilot/echo/internal/voiceout"
)

// Version is echod's reported release. There is no build-tag-driven
// version injection yet, so this is a plain constant bumped by hand.
const Version = "0.1.0"

// Snapshot mirrors the original server's /health response shape:
// top-level fields always present, stt_* fields present only when an STT
// engine (voicein.Engine) is wired in.
type Snapshot struct {
	Status               string `json:"status"`
	Version              string `json:"version"`
	Subscribers          int    `json:"subscribers"`
	NarrationSubscribers int    `json:"narration_subscribers"`
	OllamaAvailable      bool   `json:"ollama_available"`
	TTSState             string `json:"tts_state"`
	TTSAvailable         bool   `json:"tts_available"`
	AudioAvailable       bool   `json:"audio_available"`
	LiveKitConnected     bool   `json:"livekit_connected"`
	AlertActive          bool   `json:"alert_active"`
	TTSProvider          string `json:"tts_provider"`

	STTState          string `json:"stt_state,omitempty"`
	STTAvailable      bool   `json:"stt_available,omitempty"`
	MicAvailable      bool   `json:"mic_available,omitempty"`
	DispatchAvailable bool   `json:"dispatch_available,omitempty"`
	STTListening      bool   `json:"stt_listening,omitempty"`

	hasSTT bool
}

// HasSTT reports whether this Snapshot includes the stt_* fields — i.e.
// whether an STT engine was wired into the Collector that produced it.
func (s Snapshot) HasSTT() bool { return s.hasSTT }

// AvailabilityReporter is satisfied by any TTS/LLM backend whose liveness
// is tracked with the health-check-and-degrade pattern used throughout the
// codebase (summarize.LLMSummarizer, providers/tts.ElevenLabs,
// voicein.Client).
type AvailabilityReporter interface {
	IsAvailable() bool
}

// Collector pulls availability state from every stage of the pipeline on
// demand; it holds no state of its own beyond references to the live
// subsystems.
type Collector struct {
	activity  *bus.Bus[model.ActivityEvent]
	narration *bus.Bus[model.NarrationEvent]

	summarizer *summarize.LLMSummarizer

	tts         AvailabilityReporter
	ttsName     string
	audioPlayer *voiceout.Player
	sink        *voiceout.RemoteSink
	alerts      *voiceout.AlertManager

	sttEngine *voicein.Engine
}

// NewCollector wires a Collector. sttEngine may be nil — a deployment can
// run with voice-out narration only, mirroring the original server's
// optional stt_engine.
func NewCollector(
	activity *bus.Bus[model.ActivityEvent],
	narration *bus.Bus[model.NarrationEvent],
	summarizer *summarize.LLMSummarizer,
	tts AvailabilityReporter,
	ttsName string,
	audioPlayer *voiceout.Player,
	sink *voiceout.RemoteSink,
	alerts *voiceout.AlertManager,
	sttEngine *voicein.Engine,
) *Collector {
	return &Collector{
		activity:    activity,
		narration:   narration,
		summarizer:  summarizer,
		tts:         tts,
		ttsName:     ttsName,
		audioPlayer: audioPlayer,
		sink:        sink,
		alerts:      alerts,
		sttEngine:   sttEngine,
	}
}

// Snapshot assembles the current Snapshot.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		Status:               "ok",
		Version:              Version,
		Subscribers:          c.activity.SubscriberCount(),
		NarrationSubscribers: c.narration.SubscriberCount(),
		TTSProvider:          c.ttsName,
	}

	if c.summarizer != nil {
		s.OllamaAvailable = c.summarizer.IsAvailable()
	}
	if c.tts != nil {
		s.TTSAvailable = c.tts.IsAvailable()
	}
	if c.audioPlayer != nil {
		s.AudioAvailable = true
	}
	s.TTSState = stateOf(s.AudioAvailable, s.TTSAvailable)
	if c.sink != nil {
		s.LiveKitConnected = c.sink.Enabled()
	}
	if c.alerts != nil {
		s.AlertActive = c.alerts.ActiveAlertCount() > 0
	}

	if c.sttEngine != nil {
		s.hasSTT = true
		s.STTState = string(c.sttEngine.State())
		s.STTAvailable = c.sttEngine.STTAvailable()
		s.MicAvailable = c.sttEngine.MicAvailable()
		s.DispatchAvailable = c.sttEngine.DispatchAvailable()
		s.STTListening = c.sttEngine.IsListening()
	}

	return s
}

// stateOf derives a coarse tts_state string from audio device and backend
// availability, matching the original's three-value TTSState enum
// ("ready", "degraded", "disabled") without needing a dedicated state
// machine of its own — voiceout.Engine has no notion of "state" beyond
// what availability and the alert manager already expose.
func stateOf(audioAvailable, backendAvailable bool) string {
	switch {
	case audioAvailable && backendAvailable:
		return "ready"
	case audioAvailable:
		return "degraded"
	default:
		return "disabled"
	}
}
