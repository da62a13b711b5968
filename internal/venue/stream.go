package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omniarb/omniarbbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// dialTimeout bounds the WebSocket handshake.
	dialTimeout = 15 * time.Second

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// StreamSource subscribes to a venue's streaming tick feed over WebSocket and
// keeps a latest-tick table per instrument. Fetch snapshots the table, so
// scans never block on the network once the stream is up. The connection is
// dialed lazily on the first Fetch and redialed with exponential backoff when
// it breaks.
type StreamSource struct {
	name   string
	wsURL  string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	latest  map[string]domain.Observation
	started bool
	closed  bool

	// done is closed when the source is shut down.
	done chan struct{}
}

// NewStreamSource creates a streaming source for the given ws:// or wss:// URL.
func NewStreamSource(wsURL string, logger *slog.Logger) *StreamSource {
	name := wsURL
	if u, err := url.Parse(wsURL); err == nil && u.Host != "" {
		name = u.Host
	}

	return &StreamSource{
		name:   name,
		wsURL:  wsURL,
		logger: logger.With(slog.String("component", "venue"), slog.String("venue", name)),
		latest: make(map[string]domain.Observation),
		done:   make(chan struct{}),
	}
}

// Name implements Source.
func (s *StreamSource) Name() string { return s.name }

// Fetch implements Source. It returns a snapshot of the latest tick per
// instrument, sorted by key for stable downstream ordering.
func (s *StreamSource) Fetch(ctx context.Context) ([]domain.Observation, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Observation, 0, len(s.latest))
	for _, obs := range s.latest {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Close shuts down the stream and stops the background loops.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	if s.conn != nil {
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// ensureConnected dials on the first call and starts the read and ping loops.
// Later calls are cheap once the stream is started; redialing after a broken
// connection is the read loop's job.
func (s *StreamSource) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("venue/stream: %s: %w", s.name, domain.ErrWSDisconnect)
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.dial(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		go s.readLoop()
		go s.pingLoop()
	}
	return nil
}

// dial establishes the WebSocket connection and installs the pong handler.
func (s *StreamSource) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("venue/stream: %s: connect: %w", s.name, err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return fmt.Errorf("venue/stream: %s: %w", s.name, domain.ErrWSDisconnect)
	}
	if s.conn != nil {
		// Another dial won the race; keep the existing connection.
		conn.Close()
		return nil
	}
	s.conn = conn
	return nil
}

// dropConn closes and clears the connection if it is still the current one.
func (s *StreamSource) dropConn(old *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == old && s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// readLoop consumes tick messages and maintains the latest-tick table. When
// the connection breaks it redials with exponential backoff until shutdown.
func (s *StreamSource) readLoop() {
	delay := reconnectDelay

	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}

			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			err := s.dial(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("redial failed", slog.String("error", err.Error()))
			}
			continue
		}

		delay = reconnectDelay

		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("stream read failed, reconnecting", slog.String("error", err.Error()))
			s.dropConn(conn)
			continue
		}

		s.handleMessage(msg)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (s *StreamSource) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()

			if conn == nil {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.dropConn(conn)
			}
		}
	}
}

// handleMessage parses a tick and updates the latest-tick table. Unparseable
// messages are dropped silently.
func (s *StreamSource) handleMessage(raw []byte) {
	var tick tickerMessage
	if err := json.Unmarshal(raw, &tick); err != nil {
		return
	}

	obs := tick.toObservation(s.name, time.Now().UTC())
	if obs.Pair == "" {
		return
	}

	s.mu.Lock()
	s.latest[obs.Key()] = obs
	s.mu.Unlock()
}
