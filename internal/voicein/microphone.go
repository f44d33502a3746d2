package voicein

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/echo-copilot/echo/internal/device"
	"github.com/echo-copilot/echo/internal/logging"
)

// frame is one buffer of captured PCM16 audio paired with its RMS energy,
// as delivered by device.Capture's callback.
type frame struct {
	pcm []byte
	rms float64
}

// Microphone is an energy-gated capture source: CaptureUntilSilence opens
// the input device only for the duration of one listen cycle, waits for
// speech onset, records until trailing silence (or a max duration), and
// closes the device again. Two-phase VAD logic mirrors the teacher's
// threshold-based RMS gate, adapted from a blocking read loop to
// callback-delivered frames.
type Microphone struct {
	ctx        *device.Context
	sampleRate int
	log        logging.Logger

	available atomic.Bool

	mu        sync.Mutex
	capture   *device.Capture
	frames    chan frame
	listening atomic.Bool
}

// NewMicrophone builds a Microphone bound to an already-initialized audio
// context. Probing for a usable input device happens in Start, mirroring
// the teacher's graceful-degradation lifecycle.
func NewMicrophone(ctx *device.Context, sampleRate int, log logging.Logger) *Microphone {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Microphone{ctx: ctx, sampleRate: sampleRate, log: log}
}

// Start probes for an input device. A failure to open one is logged and
// leaves IsAvailable false rather than propagating — capture is a
// best-effort feature, never a hard dependency.
func (m *Microphone) Start() {
	cap, err := device.OpenCapture(m.ctx, m.sampleRate, m.onFrame)
	if err != nil {
		m.log.Warn("voicein: no microphone input device — capture disabled", "error", err)
		m.available.Store(false)
		return
	}
	cap.Close() // probe only; reopened per capture cycle in CaptureUntilSilence
	m.available.Store(true)
	m.log.Info("voicein: microphone input device detected — capture enabled")
}

// Stop releases resources and marks the microphone unavailable.
func (m *Microphone) Stop() {
	m.available.Store(false)
	m.Cancel()
}

// IsAvailable reports whether an input device was found.
func (m *Microphone) IsAvailable() bool { return m.available.Load() }

// IsListening reports whether a capture cycle is currently in progress.
func (m *Microphone) IsListening() bool { return m.listening.Load() }

// Cancel stops an in-progress capture cycle, if any.
func (m *Microphone) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capture != nil {
		m.capture.Close()
		m.capture = nil
	}
}

func (m *Microphone) onFrame(pcm []byte, rms float64) {
	m.mu.Lock()
	ch := m.frames
	m.mu.Unlock()
	if ch == nil {
		return
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	select {
	case ch <- frame{pcm: cp, rms: rms}:
	default:
	}
}

// CaptureOptions parameterizes one listen cycle; all fields mirror
// microphone.py's capture_until_silence keyword arguments.
type CaptureOptions struct {
	MaxDuration      time.Duration
	SilenceThreshold float64
	SilenceDuration  time.Duration
	ListenTimeout    time.Duration
}

// CaptureUntilSilence records audio until trailing silence is detected or
// MaxDuration elapses. It returns nil if the microphone is unavailable, no
// speech is detected within ListenTimeout, or the capture is cancelled.
func (m *Microphone) CaptureUntilSilence(ctx context.Context, opts CaptureOptions) []byte {
	if !m.IsAvailable() {
		return nil
	}

	cap, err := device.OpenCapture(m.ctx, m.sampleRate, m.onFrame)
	if err != nil {
		m.log.Warn("voicein: microphone stream error", "error", err)
		return nil
	}

	ch := make(chan frame, 64)
	m.mu.Lock()
	m.frames = ch
	m.capture = cap
	m.mu.Unlock()
	m.listening.Store(true)

	defer func() {
		m.listening.Store(false)
		m.mu.Lock()
		m.frames = nil
		if m.capture == cap {
			m.capture = nil
		}
		m.mu.Unlock()
		cap.Close()
	}()

	if err := cap.Start(); err != nil {
		m.log.Warn("voicein: microphone stream error", "error", err)
		return nil
	}

	return captureLoop(ctx, ch, opts)
}

// chunkDuration approximates the teacher's fixed 100ms blocksize; actual
// malgo callback buffers vary in size, so elapsed time is tracked per
// frame received rather than per sample, trading precision for simplicity.
const chunkDuration = 100 * time.Millisecond

// captureLoop runs the two-phase VAD state machine over a stream of
// frames: wait for speech onset up to ListenTimeout, then record until
// SilenceDuration of trailing silence or MaxDuration is reached. Split out
// from CaptureUntilSilence so it can be exercised without a real device.
func captureLoop(ctx context.Context, ch <-chan frame, opts CaptureOptions) []byte {
	var frames [][]byte
	speechStarted := false
	silenceElapsed := time.Duration(0)
	totalElapsed := time.Duration(0)
	waitElapsed := time.Duration(0)

	// Phase 1: wait for speech onset, up to ListenTimeout.
waitLoop:
	for waitElapsed < opts.ListenTimeout {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			waitElapsed += chunkDuration
			if f.rms > opts.SilenceThreshold {
				speechStarted = true
				frames = append(frames, f.pcm)
				totalElapsed += chunkDuration
				break waitLoop
			}
		}
	}
	if !speechStarted {
		return nil
	}

	// Phase 2: record until silence or MaxDuration.
	for totalElapsed < opts.MaxDuration {
		select {
		case <-ctx.Done():
			return joinFrames(frames)
		case f, ok := <-ch:
			if !ok {
				return joinFrames(frames)
			}
			frames = append(frames, f.pcm)
			totalElapsed += chunkDuration

			if f.rms < opts.SilenceThreshold {
				silenceElapsed += chunkDuration
				if silenceElapsed >= opts.SilenceDuration {
					return joinFrames(frames)
				}
			} else {
				silenceElapsed = 0
			}
		}
	}
	return joinFrames(frames)
}

func joinFrames(frames [][]byte) []byte {
	if len(frames) == 0 {
		return nil
	}
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	out := make([]byte, 0, total)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}
