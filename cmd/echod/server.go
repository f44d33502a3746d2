package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/health"
	"github.com/echo-copilot/echo/internal/ingest"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/voicein"
	"github.com/echo-copilot/echo/internal/voiceout"
)

// sseKeepalive is how often an idle SSE stream sends a ping comment to
// keep intermediate proxies and browser clients from timing the
// connection out.
const sseKeepalive = 15 * time.Second

// server holds everything an HTTP handler needs: the three buses, the
// hook adapter, the health collector, and (optionally) the S4 engine for
// manual response dispatch.
type server struct {
	hooks     *ingest.HookAdapter
	activity  *bus.Bus[model.ActivityEvent]
	narration *bus.Bus[model.NarrationEvent]
	response  *bus.Bus[model.ResponseEvent]
	collector *health.Collector
	sttEngine *voicein.Engine
	ttsEngine *voiceout.Engine
	log       logging.Logger
}

func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /event", s.handleEvent)
	mux.HandleFunc("POST /respond", s.handleRespond)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEventStream)
	mux.HandleFunc("GET /narrations", s.handleNarrationStream)
	mux.HandleFunc("GET /responses", s.handleResponseStream)
	mux.HandleFunc("GET /test-tts", s.handleTestTTS)
	return mux
}

// handleEvent is POST /event: a Claude Code hook script's raw JSON payload,
// parsed and fanned out onto the activity bus.
func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.log.Warn("echod: failed to decode hook POST body", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "reason": "invalid json"})
		return
	}

	ev, err := s.hooks.ParseHookEvent(raw)
	if err != nil {
		s.log.Warn("echod: malformed hook event", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "reason": "invalid json"})
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "unrecognized event"})
		return
	}

	s.activity.Emit(*ev)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "event_type": string(ev.Type)})
}

// respondBody is the POST /respond payload: a manual text override that
// bypasses STT capture and matching entirely.
type respondBody struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (s *server) handleRespond(w http.ResponseWriter, r *http.Request) {
	if s.sttEngine == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "reason": "stt engine not available"})
		return
	}

	var body respondBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "reason": "invalid json"})
		return
	}
	if body.SessionID == "" || body.Text == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "reason": "session_id and text are required"})
		return
	}

	success := s.sttEngine.HandleManualResponse(r.Context(), body.SessionID, body.Text)
	status := "dispatch_failed"
	if success {
		status = "ok"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     status,
		"text":       body.Text,
		"session_id": body.SessionID,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *server) handleTestTTS(w http.ResponseWriter, r *http.Request) {
	if s.ttsEngine == nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": "tts engine not available"})
		return
	}
	result := s.ttsEngine.TestTTS(r.Context())
	resp := map[string]any{"played": result.Played, "pcm_bytes": result.Bytes}
	if result.Err != nil {
		resp["error"] = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	ch, id := s.activity.Subscribe()
	defer s.activity.Unsubscribe(id)

	streamActivitySSE(w, r, ch)
}

func (s *server) handleNarrationStream(w http.ResponseWriter, r *http.Request) {
	ch, id := s.narration.Subscribe()
	defer s.narration.Unsubscribe(id)

	streamNarrationSSE(w, r, ch)
}

func (s *server) handleResponseStream(w http.ResponseWriter, r *http.Request) {
	ch, id := s.response.Subscribe()
	defer s.response.Unsubscribe(id)

	streamResponseSSE(w, r, ch)
}

// streamActivitySSE drains the activity channel onto the response, framing
// each event FastAPI-style ("event: <type>\ndata: <json>\n\n") and sending
// a ": ping" comment every sseKeepalive when nothing arrives in time.
func streamActivitySSE(w http.ResponseWriter, r *http.Request, ch <-chan model.ActivityEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, string(ev.Type), ev)
			flusher.Flush()
		case <-ticker.C:
			writeSSEPing(w)
			flusher.Flush()
		}
	}
}

func streamNarrationSSE(w http.ResponseWriter, r *http.Request, ch <-chan model.NarrationEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, string(n.SourceEventType), n)
			flusher.Flush()
		case <-ticker.C:
			writeSSEPing(w)
			flusher.Flush()
		}
	}
}

func streamResponseSSE(w http.ResponseWriter, r *http.Request, ch <-chan model.ResponseEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case resp, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, "response", resp)
			flusher.Flush()
		case <-ticker.C:
			writeSSEPing(w)
			flusher.Flush()
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

func writeSSEEvent(w http.ResponseWriter, eventName string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	w.Write([]byte("event: " + eventName + "\n"))
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}

func writeSSEPing(w http.ResponseWriter) {
	w.Write([]byte(": ping\n\n"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
