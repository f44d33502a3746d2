package voiceout

import (
	"context"
	"testing"
	"time"
)

func TestSignalStartsSet(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("expected Wait to return immediately, got %v", err)
	}
}

func TestSignalClearThenWaitBlocksUntilSet(t *testing.T) {
	s := NewSignal()
	s.Clear()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- s.Wait(ctx)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Set was called")
	case <-time.After(100 * time.Millisecond):
	}

	s.Set()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Set")
	}
}

func TestSignalSetIsIdempotent(t *testing.T) {
	s := NewSignal()
	s.Set()
	s.Set() // must not panic on double-close
}

func TestSignalWaitRespectsContextCancellation(t *testing.T) {
	s := NewSignal()
	s.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}
