package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feastline/concierge/internal/logging"
)

// Handler receives streaming transport lifecycle and message events.
// All callbacks fire from the transport's read pump goroutine.
type Handler interface {
	TransportOpened()
	TransportClosed(err error)
	TransportEvent(ev Event)
}

// StreamConfig identifies the connection to the backend.
type StreamConfig struct {
	URL      string // base websocket URL
	UserID   string
	ThreadID string
	Channel  string // origin tag, e.g. "website"
	Role     string // e.g. "customer"
}

// Stream is the primary duplex transport over a WebSocket.
type Stream struct {
	cfg     StreamConfig
	handler Handler
	log     *logging.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewStream creates a streaming transport. Dial establishes the connection.
func NewStream(cfg StreamConfig, handler Handler, log *logging.Logger) *Stream {
	return &Stream{
		cfg:     cfg,
		handler: handler,
		log:     log.Sub("stream"),
	}
}

// Dial connects to the backend and starts the read pump. The handler's
// TransportOpened fires on success; TransportClosed fires exactly once when
// the pump exits, whatever the cause.
func (s *Stream) Dial(ctx context.Context) error {
	endpoint, err := s.buildURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.closed = false
	s.mu.Unlock()

	s.log.Info().Str("thread", s.cfg.ThreadID).Msg("stream connected")
	s.handler.TransportOpened()

	go s.readLoop(conn)
	return nil
}

// buildURL appends the identity and channel parameters to the base URL.
func (s *Stream) buildURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("stream url: %w", err)
	}
	q := u.Query()
	q.Set("userId", s.cfg.UserID)
	q.Set("threadId", s.cfg.ThreadID)
	q.Set("channel", s.cfg.Channel)
	q.Set("role", s.cfg.Role)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Send writes a structured event onto the open connection.
// Returns ErrNotConnected when the connection is not open.
func (s *Stream) Send(ev OutboundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(ev)
}

// Close shuts the connection down. Safe to call repeatedly and while
// disconnected.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conn == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	_ = s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return s.conn.Close()
}

// readLoop pumps inbound frames until the connection drops. Malformed or
// unknown events are logged and discarded, never delivered.
func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			wasClosed := s.closed
			s.conn = nil
			s.mu.Unlock()

			if wasClosed {
				s.handler.TransportClosed(nil)
			} else {
				s.log.Warn().Err(err).Msg("stream read error")
				s.handler.TransportClosed(err)
			}
			return
		}

		ev, err := ParseEvent(msg)
		if err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed event")
			continue
		}
		s.handler.TransportEvent(ev)
	}
}
