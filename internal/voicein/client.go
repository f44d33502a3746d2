package voicein

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/echo-copilot/echo/internal/logging"
)

// Transcriber is the capability S4 needs from an STT backend: turn
// captured PCM16 audio into text. Adapted down from the teacher's richer
// STTProvider (streaming partials, language hints) to the single
// request/response shape Echo's manual confirm-and-dispatch flow uses.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// Client wraps a Transcriber with the same availability-tracking pattern
// summarize.LLMSummarizer uses: an atomic health flag set at startup and
// re-checked periodically, so a transient provider outage degrades
// gracefully instead of blocking the listen cycle.
type Client struct {
	backend         Transcriber
	log             logging.Logger
	healthInterval  time.Duration
	available       atomic.Bool
	lastHealthCheck atomic.Int64
}

// NewClient builds a Client around backend. A nil backend leaves the
// client permanently unavailable (no STT provider configured).
func NewClient(backend Transcriber, healthInterval time.Duration, log logging.Logger) *Client {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Client{backend: backend, healthInterval: healthInterval, log: log}
}

// Start probes the backend for availability.
func (c *Client) Start(ctx context.Context) {
	c.CheckHealth(ctx)
}

// Stop marks the client unavailable.
func (c *Client) Stop() {
	c.available.Store(false)
}

// IsAvailable reports the last known health state.
func (c *Client) IsAvailable() bool { return c.available.Load() }

// CheckHealth records whether backend is configured, refreshing the
// availability flag. A real network probe is deliberately not performed
// here — the same tradeoff the teacher's provider health flags make —
// since most STT backends have no cheap no-op health endpoint.
func (c *Client) CheckHealth(_ context.Context) {
	c.available.Store(c.backend != nil)
	c.lastHealthCheck.Store(time.Now().UnixNano())
}

func (c *Client) maybeRecheckHealth(ctx context.Context) {
	last := c.lastHealthCheck.Load()
	if last != 0 && time.Since(time.Unix(0, last)) < c.healthInterval {
		return
	}
	c.CheckHealth(ctx)
}

// Transcribe runs the backend transcription. Returns "" if unavailable or
// on backend failure; errors are logged, not propagated, matching the
// teacher's "log and degrade" treatment of provider failures.
func (c *Client) Transcribe(ctx context.Context, pcm []byte) string {
	c.maybeRecheckHealth(ctx)
	if !c.IsAvailable() {
		return ""
	}
	text, err := c.backend.Transcribe(ctx, pcm)
	if err != nil {
		c.log.Warn("voicein: transcription failed", "error", err)
		return ""
	}
	return text
}
