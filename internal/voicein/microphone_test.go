package voicein

import (
	"context"
	"testing"
	"time"
)

func TestCaptureLoopReturnsNilWhenNoSpeechBeforeTimeout(t *testing.T) {
	ch := make(chan frame, 10)
	for i := 0; i < 3; i++ {
		ch <- frame{pcm: []byte{0, 0}, rms: 0.001}
	}
	close(ch)

	got := captureLoop(context.Background(), ch, CaptureOptions{
		ListenTimeout:    200 * time.Millisecond,
		MaxDuration:      time.Second,
		SilenceThreshold: 0.02,
		SilenceDuration:  300 * time.Millisecond,
	})
	if got != nil {
		t.Fatalf("expected nil (no speech detected), got %d bytes", len(got))
	}
}

func TestCaptureLoopRecordsUntilSilence(t *testing.T) {
	ch := make(chan frame, 10)
	ch <- frame{pcm: []byte{1, 0}, rms: 0.5} // speech onset
	ch <- frame{pcm: []byte{2, 0}, rms: 0.5} // still speaking
	ch <- frame{pcm: []byte{3, 0}, rms: 0.0} // silence tick 1
	ch <- frame{pcm: []byte{4, 0}, rms: 0.0} // silence tick 2 -> silence duration reached
	close(ch)

	got := captureLoop(context.Background(), ch, CaptureOptions{
		ListenTimeout:    time.Second,
		MaxDuration:      5 * time.Second,
		SilenceThreshold: 0.02,
		SilenceDuration:  200 * time.Millisecond, // 2 chunks at 100ms
	})
	want := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCaptureLoopStopsAtMaxDuration(t *testing.T) {
	ch := make(chan frame, 20)
	ch <- frame{pcm: []byte{1, 0}, rms: 0.5}
	for i := 0; i < 10; i++ {
		ch <- frame{pcm: []byte{2, 0}, rms: 0.5} // never goes silent
	}

	got := captureLoop(context.Background(), ch, CaptureOptions{
		ListenTimeout:    time.Second,
		MaxDuration:      300 * time.Millisecond, // 3 chunks total
		SilenceThreshold: 0.02,
		SilenceDuration:  time.Second,
	})
	if len(got) != 6 { // 3 frames * 2 bytes
		t.Fatalf("got %d bytes, want 6 (capped by MaxDuration)", len(got))
	}
}

func TestCaptureLoopRespectsContextCancellation(t *testing.T) {
	ch := make(chan frame)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := captureLoop(ctx, ch, CaptureOptions{
		ListenTimeout: time.Second,
		MaxDuration:   time.Second,
	})
	if got != nil {
		t.Fatalf("expected nil on immediate cancellation, got %d bytes", len(got))
	}
}

func TestJoinFramesEmpty(t *testing.T) {
	if got := joinFrames(nil); got != nil {
		t.Fatalf("expected nil for no frames, got %v", got)
	}
}

func TestJoinFramesConcatenates(t *testing.T) {
	got := joinFrames([][]byte{{1, 2}, {3, 4}})
	want := []byte{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
