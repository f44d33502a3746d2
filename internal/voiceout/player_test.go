package voiceout

import (
	"sync"
	"testing"
	"time"
)

type fakeDevice struct {
	mu     sync.Mutex
	played [][]byte
	stops  int
}

func (d *fakeDevice) Play(pcm []byte) error {
	time.Sleep(5 * time.Millisecond)
	d.mu.Lock()
	d.played = append(d.played, pcm)
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Stop() {
	d.mu.Lock()
	d.stops++
	d.mu.Unlock()
}

func TestPlayerDropsLowPriorityUnderBacklog(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev, 1, nil)

	p.Enqueue([]byte{1}, PriorityLow)
	p.Enqueue([]byte{2}, PriorityLow)
	p.Enqueue([]byte{3}, PriorityLow) // depth now 2 > threshold 1, dropped

	if got := p.QueueDepth(); got != 2 {
		t.Fatalf("QueueDepth = %d, want 2", got)
	}
}

func TestPlayerNeverDropsCritical(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev, 0, nil)

	for i := 0; i < 5; i++ {
		p.Enqueue([]byte{byte(i)}, PriorityCritical)
	}
	if got := p.QueueDepth(); got != 5 {
		t.Fatalf("QueueDepth = %d, want 5", got)
	}
}

func TestPlayerPlaysCriticalBeforeNormal(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev, 10, nil)
	go p.Run()
	defer p.Close()

	p.Enqueue([]byte("normal"), PriorityNormal)
	p.Enqueue([]byte("critical"), PriorityCritical)

	time.Sleep(100 * time.Millisecond)

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.played) < 2 {
		t.Fatalf("expected 2 items played, got %d", len(dev.played))
	}
	if string(dev.played[0]) != "critical" {
		t.Fatalf("first played = %q, want critical", dev.played[0])
	}
}

func TestPlayerInterruptKeepsOnlyCritical(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev, 10, nil)

	p.Enqueue([]byte("normal"), PriorityNormal)
	p.Enqueue([]byte("low"), PriorityLow)
	p.Enqueue([]byte("critical"), PriorityCritical)

	p.Interrupt()

	if got := p.QueueDepth(); got != 1 {
		t.Fatalf("QueueDepth after interrupt = %d, want 1", got)
	}
	if dev.stops != 1 {
		t.Fatalf("device Stop calls = %d, want 1", dev.stops)
	}
}
