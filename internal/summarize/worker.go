package summarize

import (
	"context"
	"runtime/debug"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

// Worker is the S2 stage: it subscribes to the ActivityEvent bus, batches
// consecutive tool_executed events, renders narration text (template first,
// LLM-with-truncation-fallback for agent_message), and emits NarrationEvents
// onto the narration bus. It runs single-threaded and sequentially, as the
// rest of the pipeline does — there is no need for per-session parallelism
// at this volume.
type Worker struct {
	activity  *bus.Bus[model.ActivityEvent]
	narration *bus.Bus[model.NarrationEvent]
	template  TemplateEngine
	llm       *LLMSummarizer
	log       logging.Logger
}

// NewWorker wires a Worker between the two buses. llm may be nil, in which
// case agent_message events always go through truncation.
func NewWorker(activity *bus.Bus[model.ActivityEvent], narration *bus.Bus[model.NarrationEvent], llm *LLMSummarizer, log logging.Logger) *Worker {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Worker{activity: activity, narration: narration, llm: llm, log: log}
}

// Run drains the activity bus until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ch, id := w.activity.Subscribe()
	defer w.activity.Unsubscribe(id)

	batcher := NewBatcher()

	for {
		select {
		case <-ctx.Done():
			w.flushBatch(batcher)
			return
		case <-batcher.Timer():
			w.flushBatch(batcher)
		case ev, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, batcher, ev)
		}
	}
}

func (w *Worker) handle(ctx context.Context, batcher *Batcher, ev model.ActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("summarize: handler panic — continuing with next event", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	flushed, absorbed := batcher.Add(ev)
	if len(flushed) > 0 {
		w.narration.Emit(w.template.RenderBatch(flushed))
	}
	if absorbed {
		return
	}

	// Non-tool_executed event: process standalone, on top of whatever
	// batch flush (if any) just happened above. agent_stopped and every
	// other type flush a pending batch identically — spec draws no
	// distinction beyond "non-tool event flushes".
	switch ev.Type {
	case model.EventAgentMessage:
		if w.llm != nil {
			w.narration.Emit(w.llm.Summarize(ctx, ev))
		} else {
			w.narration.Emit((&LLMSummarizer{}).truncate(ev))
		}
	default:
		w.narration.Emit(w.template.Render(ev))
	}
}

func (w *Worker) flushBatch(batcher *Batcher) {
	if flushed := batcher.Flush(); len(flushed) > 0 {
		w.narration.Emit(w.template.RenderBatch(flushed))
	}
}
