package summarize

import (
	"time"

	"github.com/echo-copilot/echo/internal/model"
)

// MaxBatchSize caps how many consecutive tool_executed events accumulate
// into one batch before a flush is forced.
const MaxBatchSize = 10

// BatchWindow is how long a batch may sit open, started from its first
// item, before a flush is forced regardless of size.
const BatchWindow = 500 * time.Millisecond

// Batcher coalesces consecutive tool_executed events (whatever their
// session) into a single narration, so ten file edits in a row don't speak ten
// separate sentences. Any non-tool_executed event — or the batch reaching
// MaxBatchSize, or BatchWindow elapsing since the first item — flushes the
// pending batch before that event is processed on its own.
type Batcher struct {
	pending []model.ActivityEvent
	timer   *time.Timer
}

// NewBatcher returns an empty Batcher.
func NewBatcher() *Batcher {
	return &Batcher{}
}

// Add feeds one ActivityEvent through the batcher. It returns a completed
// batch (possibly nil) that must be flushed by the caller *before* handling
// ev on its own, plus a boolean reporting whether ev itself was absorbed
// into the (still open, or just-started) batch.
//
//   - tool_executed events accumulate; Add returns (nil, true) unless
//     MaxBatchSize is reached, in which case it returns (batch, true) —
//     ev is the last member of the returned batch.
//   - any other event type flushes whatever was pending (returned as the
//     first value) and is not itself absorbed: (pendingBatch, false).
//   - agent_stopped always flushes immediately, same as any non-tool event.
func (b *Batcher) Add(ev model.ActivityEvent) (flushed []model.ActivityEvent, absorbed bool) {
	if ev.Type != model.EventToolExecuted {
		flushed = b.takePending()
		return flushed, false
	}

	if len(b.pending) == 0 {
		b.timer = time.NewTimer(BatchWindow)
	}
	b.pending = append(b.pending, ev)

	if len(b.pending) >= MaxBatchSize {
		return b.takePending(), true
	}
	return nil, true
}

// WindowExpired reports whether the currently open batch's timer has
// fired. Callers poll this (or select on Timer()) from their event loop.
func (b *Batcher) WindowExpired() bool {
	if b.timer == nil {
		return false
	}
	select {
	case <-b.timer.C:
		return true
	default:
		return false
	}
}

// Timer exposes the underlying timer's channel for use in a select
// statement; nil if no batch is open.
func (b *Batcher) Timer() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// Flush forces out whatever batch is pending, cancelling its timer.
func (b *Batcher) Flush() []model.ActivityEvent {
	return b.takePending()
}

func (b *Batcher) takePending() []model.ActivityEvent {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}
