package bus

import (
	"testing"
	"time"
)

func TestEmitFanOut(t *testing.T) {
	b := New[int]()
	chA, idA := b.Subscribe()
	chB, idB := b.Subscribe()
	defer b.Unsubscribe(idA)
	defer b.Unsubscribe(idB)

	b.Emit(42)

	select {
	case v := <-chA:
		if v != 42 {
			t.Fatalf("chA got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("chA: timed out waiting for event")
	}

	select {
	case v := <-chB:
		if v != 42 {
			t.Fatalf("chB got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("chB: timed out waiting for event")
	}
}

func TestSlowSubscriberIsolation(t *testing.T) {
	b := NewWithBuffer[int](1, nil)
	slow, idSlow := b.Subscribe()
	fast, idFast := b.Subscribe()
	defer b.Unsubscribe(idSlow)
	defer b.Unsubscribe(idFast)

	// Fill the slow subscriber's buffer without draining it; the fast
	// subscriber reads each value as it arrives.
	b.Emit(1)
	<-fast
	b.Emit(2) // dropped for slow, since buffer size is 1 and slow hasn't read

	if got := b.DroppedCount(idSlow); got != 1 {
		t.Fatalf("dropped count for slow = %d, want 1", got)
	}

	<-slow // drain the one buffered value
	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber did not receive second event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[string]()
	ch, id := b.Subscribe()
	b.Unsubscribe(id)

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}
}

func TestSubscriberCount(t *testing.T) {
	b := New[int]()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers initially")
	}
	_, id := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after Subscribe")
	}
	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after Unsubscribe")
	}
}
