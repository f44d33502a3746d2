// Package tts adapts TTS backends to voiceout.Synthesizer — text in, raw
// PCM16 audio out.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/echo-copilot/echo/internal/logging"
)

// ElevenLabs is the default TTS backend: an HTTP client with the same
// health-check-and-degrade lifecycle as LLMSummarizer and voicein.Client —
// a missing API key or an unreachable host leaves IsAvailable false
// instead of failing every synthesis call.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	voiceID string
	model   string
	client  *http.Client
	log     logging.Logger

	available       atomic.Bool
	lastHealthCheck atomic.Int64
	healthInterval  time.Duration
}

func NewElevenLabs(apiKey, baseURL, voiceID, model string, timeout, healthInterval time.Duration, log logging.Logger) *ElevenLabs {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &ElevenLabs{
		apiKey:         apiKey,
		baseURL:        baseURL,
		voiceID:        voiceID,
		model:          model,
		client:         &http.Client{Timeout: timeout},
		log:            log,
		healthInterval: healthInterval,
	}
}

// IsAvailable reports the last-known health of the backend.
func (e *ElevenLabs) IsAvailable() bool { return e.available.Load() }

// CheckHealth validates the API key via GET /v1/user.
func (e *ElevenLabs) CheckHealth(ctx context.Context) {
	e.lastHealthCheck.Store(time.Now().UnixNano())
	if e.apiKey == "" {
		e.available.Store(false)
		e.log.Info("voiceout: no ElevenLabs API key — TTS disabled")
		return
	}

	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+"/v1/user", nil)
	if err != nil {
		e.available.Store(false)
		return
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.available.Store(false)
		e.log.Warn("voiceout: ElevenLabs not available — TTS disabled", "error", err)
		return
	}
	defer resp.Body.Close()

	e.available.Store(resp.StatusCode == http.StatusOK)
	if !e.available.Load() {
		e.log.Warn("voiceout: ElevenLabs returned non-200 — TTS unavailable", "status", resp.StatusCode)
	}
}

func (e *ElevenLabs) maybeRecheckHealth(ctx context.Context) {
	if e.available.Load() {
		return
	}
	last := e.lastHealthCheck.Load()
	if last != 0 && time.Since(time.Unix(0, last)) < e.healthInterval {
		return
	}
	e.CheckHealth(ctx)
}

// Synthesize sends text to ElevenLabs and returns raw PCM16 (16kHz) audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	e.maybeRecheckHealth(ctx)
	if !e.available.Load() {
		return nil, fmt.Errorf("voiceout: ElevenLabs unavailable")
	}

	payload, err := json.Marshal(map[string]string{"text": text, "model_id": e.model})
	if err != nil {
		return nil, err
	}

	u := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.voiceID) + "?output_format=pcm_16000"
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.available.Store(false)
		return nil, fmt.Errorf("voiceout: ElevenLabs synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voiceout: ElevenLabs synthesis error (status %d)", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (e *ElevenLabs) Name() string { return "elevenlabs-tts" }
