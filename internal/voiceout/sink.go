package voiceout

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/echo-copilot/echo/internal/logging"
)

// RemoteSink publishes narrated audio to a remote listener (e.g. a LiveKit
// room bridge) over a websocket, so someone away from the machine can still
// hear what the agent is doing. It is optional: a failed publish is logged
// and swallowed rather than propagated, since losing the remote feed must
// never block local playback.
type RemoteSink struct {
	url string
	log logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewRemoteSink builds a sink targeting url. url is empty means "disabled";
// Publish becomes a no-op in that case.
func NewRemoteSink(url string, log logging.Logger) *RemoteSink {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &RemoteSink{url: url, log: log}
}

// Enabled reports whether a remote URL was configured.
func (s *RemoteSink) Enabled() bool {
	return s.url != ""
}

// Publish sends a PCM16 chunk to the remote listener. Failures are logged
// and swallowed; the connection is dropped so the next Publish redials.
func (s *RemoteSink) Publish(ctx context.Context, pcm []byte) {
	if !s.Enabled() {
		return
	}

	conn, err := s.getConn(ctx)
	if err != nil {
		s.log.Warn("voiceout: remote sink connect failed", "error", err)
		return
	}

	if err := conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		s.log.Warn("voiceout: remote sink publish failed", "error", err)
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

func (s *RemoteSink) getConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("voiceout: dialing remote sink: %w", err)
	}
	s.conn = conn
	return conn, nil
}

// Close closes the underlying connection, if any.
func (s *RemoteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.conn = nil
	return err
}
