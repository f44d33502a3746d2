package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Lokutor is an alternate streaming TTS backend, adapted from the
// teacher's conversational voice/language-aware client down to the single
// default-voice call voiceout.Synthesizer needs.
type Lokutor struct {
	apiKey string
	host   string
	voice  string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewLokutor(apiKey, voice string) *Lokutor {
	if voice == "" {
		voice = "default"
	}
	return &Lokutor{apiKey: apiKey, host: "api.lokutor.com", voice: voice}
}

// IsAvailable reports whether an API key was configured. Lokutor has no
// cheap health-check endpoint to probe, so — like Client.CheckHealth for
// STT backends — configuration presence stands in for a liveness check.
func (t *Lokutor) IsAvailable() bool { return t.apiKey != "" }

func (t *Lokutor) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("voiceout: failed to connect to lokutor: %w", err)
	}
	t.conn = conn
	return conn, nil
}

// Synthesize streams text to Lokutor and collects the binary PCM chunks
// into a single buffer.
func (t *Lokutor) Synthesize(ctx context.Context, text string) ([]byte, error) {
	conn, err := t.getConn(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]interface{}{
		"text":    text,
		"voice":   t.voice,
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return nil, fmt.Errorf("voiceout: failed to send synthesis request: %w", err)
	}

	var audio []byte
	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return nil, fmt.Errorf("voiceout: failed to read from lokutor: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			audio = append(audio, payload...)
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return audio, nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return nil, fmt.Errorf("voiceout: lokutor error: %s", msg)
			}
		}
	}
}

func (t *Lokutor) Name() string { return "lokutor-tts" }

func (t *Lokutor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
