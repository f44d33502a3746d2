package summarize

import (
	"testing"
	"time"

	"github.com/echo-copilot/echo/internal/model"
)

func toolEvent(session string) model.ActivityEvent {
	return model.ActivityEvent{Type: model.EventToolExecuted, SessionID: session, ToolName: "Edit"}
}

func TestBatcherAbsorbsConsecutiveToolEvents(t *testing.T) {
	b := NewBatcher()
	for i := 0; i < 5; i++ {
		flushed, absorbed := b.Add(toolEvent("s1"))
		if !absorbed {
			t.Fatalf("event %d: expected absorbed", i)
		}
		if flushed != nil {
			t.Fatalf("event %d: unexpected flush before MaxBatchSize", i)
		}
	}
}

func TestBatcherFlushesAtMaxSize(t *testing.T) {
	b := NewBatcher()
	var flushed []model.ActivityEvent
	for i := 0; i < MaxBatchSize; i++ {
		f, absorbed := b.Add(toolEvent("s1"))
		if !absorbed {
			t.Fatalf("event %d: expected absorbed", i)
		}
		if f != nil {
			flushed = f
		}
	}
	if len(flushed) != MaxBatchSize {
		t.Fatalf("flushed length = %d, want %d", len(flushed), MaxBatchSize)
	}
}

func TestBatcherFlushesOnNonToolEvent(t *testing.T) {
	b := NewBatcher()
	b.Add(toolEvent("s1"))
	b.Add(toolEvent("s1"))

	nonTool := model.ActivityEvent{Type: model.EventAgentStopped, SessionID: "s1"}
	flushed, absorbed := b.Add(nonTool)
	if absorbed {
		t.Fatal("non-tool event should not be absorbed")
	}
	if len(flushed) != 2 {
		t.Fatalf("flushed length = %d, want 2", len(flushed))
	}
}

func TestBatcherWindowExpiry(t *testing.T) {
	b := NewBatcher()
	b.Add(toolEvent("s1"))

	select {
	case <-b.Timer():
	case <-time.After(BatchWindow + 200*time.Millisecond):
		t.Fatal("timed out waiting for batch window to expire")
	}

	flushed := b.Flush()
	if len(flushed) != 1 {
		t.Fatalf("flushed length = %d, want 1", len(flushed))
	}
}
