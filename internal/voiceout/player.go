package voiceout

import (
	"container/heap"
	"sync"

	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

// Priority ranks playback urgency; lower values play first.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityNormal   Priority = 1
	PriorityLow      Priority = 2
)

// Device abstracts the audio output sink the player writes PCM16 frames to.
// internal/device's malgo wrapper satisfies this.
type Device interface {
	Play(pcm []byte) error
	Stop()
}

type queueItem struct {
	priority Priority
	seq      int
	pcm      []byte
}

type priorityQueue []queueItem

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q priorityQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Player is a priority-preemptive audio player. Items are played in
// priority order (CRITICAL first), then FIFO within a priority level.
// LOW-priority items are dropped under backlog; CRITICAL items are never
// dropped. Interrupt() discards everything except CRITICAL items and stops
// whatever is currently playing.
type Player struct {
	mu              sync.Mutex
	queue           priorityQueue
	seq             int
	device          Device
	backlogThreshold int
	log             logging.Logger

	cond      *sync.Cond
	closed    bool
	playing   bool
	interrupted bool
}

// NewPlayer builds a Player writing to device, applying backlogThreshold to
// LOW-priority admission control. device may be nil (audio output
// unavailable), in which case Enqueue discards every item, so the queue
// stays empty and nothing is played.
func NewPlayer(device Device, backlogThreshold int, log logging.Logger) *Player {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	p := &Player{device: device, backlogThreshold: backlogThreshold, log: log}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// QueueDepth returns the number of items currently waiting.
func (p *Player) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Enqueue adds PCM16 audio to the playback queue. LOW-priority items are
// silently dropped once the queue depth exceeds backlogThreshold.
func (p *Player) Enqueue(pcm []byte, priority Priority) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil || p.closed {
		return
	}
	if priority == PriorityLow && len(p.queue) > p.backlogThreshold {
		p.log.Warn("voiceout: dropping low priority audio — backlog")
		return
	}

	p.seq++
	heap.Push(&p.queue, queueItem{priority: priority, seq: p.seq, pcm: pcm})
	p.cond.Signal()
}

// Interrupt drains every non-CRITICAL item from the queue, re-enqueues any
// CRITICAL items it found, and stops in-progress playback. The worker loop
// checks the interrupted flag to discard any non-CRITICAL item it was about
// to start, clearing the flag once it proceeds to play something.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.interrupted = true
	var kept priorityQueue
	for _, item := range p.queue {
		if item.priority == PriorityCritical {
			kept = append(kept, item)
		}
	}
	heap.Init(&kept)
	p.queue = kept

	if p.device != nil {
		p.device.Stop()
	}
	p.cond.Signal()
}

// PlayAlert synthesizes and plays the alert tone for reason immediately,
// bypassing the queue.
func (p *Player) PlayAlert(reason model.BlockReason, sampleRate int) error {
	if p.device == nil {
		return nil
	}
	return p.device.Play(GenerateAlertTone(reason, sampleRate))
}

// PlayImmediate plays raw PCM16 bytes immediately, bypassing the queue.
func (p *Player) PlayImmediate(pcm []byte) error {
	if p.device == nil {
		return nil
	}
	return p.device.Play(pcm)
}

// Run drains and plays the queue in priority order until Close is called.
func (p *Player) Run() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed && len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		item := heap.Pop(&p.queue).(queueItem)

		if p.interrupted && item.priority != PriorityCritical {
			p.mu.Unlock()
			continue
		}
		p.interrupted = false
		p.playing = true
		p.mu.Unlock()

		if p.device != nil {
			if err := p.device.Play(item.pcm); err != nil {
				p.log.Warn("voiceout: playback failed", "error", err)
			}
		}

		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}
}

// IsPlaying reports whether the worker is currently inside a Play call.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Close stops the worker loop and wakes it so it can exit.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}
