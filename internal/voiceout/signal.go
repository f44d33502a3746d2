package voiceout

import (
	"context"
	"sync"
)

// Signal is a resettable one-shot event, the Go equivalent of
// asyncio.Event's set/clear/wait: Wait blocks until Set is called (or ctx is
// cancelled), and Clear re-arms it. S3 clears it when it starts playing a
// CRITICAL narration's speech and sets it when that playback finishes; S4
// waits on it before opening the microphone, so capture and playback never
// contend for the same audio device.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal returns a Signal that starts in the "set" state, matching the
// idle steady-state where nothing is blocking on critical playback.
func NewSignal() *Signal {
	s := &Signal{ch: make(chan struct{})}
	close(s.ch)
	return s
}

// Set marks the signal as satisfied; idempotent.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
	default:
		close(s.ch)
	}
}

// Clear re-arms the signal so the next Wait blocks again.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
		s.ch = make(chan struct{})
	default:
	}
}

// Wait blocks until Set is called or ctx is done, whichever comes first.
func (s *Signal) Wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
