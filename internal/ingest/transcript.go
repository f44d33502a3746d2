package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
)

// dedupWindow is how long a (session_id, rounded timestamp) key is
// remembered before it is allowed to produce another agent_message event.
// Claude Code's transcript writer and the PostToolUse hook can both surface
// the same assistant turn; this keeps us from narrating it twice.
const dedupWindow = time.Second

// dedupCleanupEvery controls how often the dedup set is swept for expired
// entries, so long-running sessions don't grow it unbounded.
const dedupCleanupEvery = 50

type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// TranscriptWatcher tails *.jsonl transcript files under a Claude projects
// directory, turning new assistant text blocks into agent_message
// ActivityEvents. It is resilient to truncation (offset resets to 0 and the
// shorter file is read again from its start) and deletion (the path is dropped from the offset
// table and simply re-learned if the file reappears).
type TranscriptWatcher struct {
	root string
	log  logging.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	offsets map[string]int64

	dedupMu    sync.Mutex
	seen       map[string]time.Time
	seenEvents int
}

// NewTranscriptWatcher builds a watcher rooted at a Claude projects
// directory (e.g. ~/.claude/projects).
func NewTranscriptWatcher(root string, log logging.Logger) *TranscriptWatcher {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &TranscriptWatcher{
		root:    root,
		log:     log,
		offsets: make(map[string]int64),
		seen:    make(map[string]time.Time),
	}
}

// Run watches the directory tree until ctx is cancelled, sending an
// ActivityEvent for every new assistant message block it finds.
func (w *TranscriptWatcher) Run(ctx context.Context, events chan<- model.ActivityEvent) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingest: creating transcript watcher: %w", err)
	}
	w.watcher = fw
	defer fw.Close()

	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("ingest: watching %s: %w", w.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(ev, events)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("ingest: transcript watcher error", "error", err)
		}
	}
}

func (w *TranscriptWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable subtrees
		}
		if d.IsDir() {
			if werr := w.watcher.Add(path); werr != nil {
				w.log.Warn("ingest: failed to watch directory", "dir", path, "error", werr)
			}
		}
		return nil
	})
}

func (w *TranscriptWatcher) handleFSEvent(ev fsnotify.Event, events chan<- model.ActivityEvent) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(ev.Name)
			return
		}
	}

	if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
		w.mu.Lock()
		delete(w.offsets, ev.Name)
		w.mu.Unlock()
		return
	}

	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.consume(ev.Name, events)
}

// consume reads newly appended lines from path, starting at the
// previously-recorded byte offset. A file shrinking below the last offset
// (truncation / log rotation) resets the offset to zero.
func (w *TranscriptWatcher) consume(path string, events chan<- model.ActivityEvent) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}

	w.mu.Lock()
	offset := w.offsets[path]
	w.mu.Unlock()

	if info.Size() < offset {
		offset = 0
	}

	if _, err := f.Seek(offset, 0); err != nil {
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var read int64
	for scanner.Scan() {
		line := scanner.Bytes()
		read += int64(len(line)) + 1
		if ev := w.parseLine(path, line); ev != nil {
			events <- *ev
		}
	}

	w.mu.Lock()
	w.offsets[path] = offset + read
	w.mu.Unlock()
}

func (w *TranscriptWatcher) parseLine(path string, line []byte) *model.ActivityEvent {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var tl transcriptLine
	if err := json.Unmarshal(line, &tl); err != nil {
		return nil
	}
	if tl.Message.Role != "assistant" {
		return nil
	}

	var text strings.Builder
	for _, block := range tl.Message.Content {
		if block.Type == "text" && block.Text != "" {
			if text.Len() > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil
	}

	sessionID := sessionIDFromPath(path)
	now := time.Now()
	if !w.shouldEmit(sessionID, now) {
		return nil
	}

	ev := model.NewActivityEvent(sessionID, model.SourceTranscript, model.EventAgentMessage)
	ev.Text = text.String()
	return &ev
}

// shouldEmit applies the dedup window: a (session, rounded-to-100ms
// timestamp) pair may only produce one agent_message within dedupWindow.
func (w *TranscriptWatcher) shouldEmit(sessionID string, now time.Time) bool {
	key := fmt.Sprintf("%s:%.1f", sessionID, float64(now.UnixMilli()/100)/10.0)

	w.dedupMu.Lock()
	defer w.dedupMu.Unlock()

	if _, ok := w.seen[key]; ok {
		return false
	}
	w.seen[key] = now
	w.seenEvents++
	if w.seenEvents%dedupCleanupEvery == 0 {
		w.sweepSeenLocked(now)
	}
	return true
}

func (w *TranscriptWatcher) sweepSeenLocked(now time.Time) {
	for k, t := range w.seen {
		if now.Sub(t) > dedupWindow {
			delete(w.seen, k)
		}
	}
}

// sessionIDFromPath derives a session identifier from a transcript file
// path, taking the basename without its .jsonl extension — Claude Code
// names session transcripts <session_id>.jsonl.
func sessionIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".jsonl")
}
