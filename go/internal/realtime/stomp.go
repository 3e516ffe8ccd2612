package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

const (
	topicPrefix       = "/topic/rooms/"
	topicTimerStarted = "/timer-started"
	topicTimerStopped = "/timer-stopped"
)

// StartedTopic returns the STOMP destination for a room's started events.
func StartedTopic(roomID string) string {
	return topicPrefix + roomID + topicTimerStarted
}

// StoppedTopic returns the STOMP destination for a room's stopped events.
func StoppedTopic(roomID string) string {
	return topicPrefix + roomID + topicTimerStopped
}

// parseTopic maps a destination back to its room and event kind.
func parseTopic(destination string) (roomID string, kind timer.EventKind, ok bool) {
	rest, found := strings.CutPrefix(destination, topicPrefix)
	if !found {
		return "", "", false
	}
	switch {
	case strings.HasSuffix(rest, topicTimerStarted):
		return strings.TrimSuffix(rest, topicTimerStarted), timer.EventKindStarted, true
	case strings.HasSuffix(rest, topicTimerStopped):
		return strings.TrimSuffix(rest, topicTimerStopped), timer.EventKindStopped, true
	}
	return "", "", false
}

// StompConfig holds configuration for the STOMP transport
type StompConfig struct {
	URL           string // e.g. ws://localhost:8080/ws
	Token         string
	Host          string // STOMP virtual host, defaults to the URL host
	ReconnectWait time.Duration
	WriteTimeout  time.Duration
	// OnReconnect runs after every successful connect except the first.
	OnReconnect func(ctx context.Context)
	Clock       clockwork.Clock
}

// DefaultStompConfig returns default STOMP transport configuration
func DefaultStompConfig() StompConfig {
	return StompConfig{
		URL:           "ws://localhost:8080/ws",
		ReconnectWait: 2 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// StompTransport receives timer events over STOMP 1.2 on a websocket.
type StompTransport struct {
	config StompConfig
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

var _ Transport = (*StompTransport)(nil)

func NewStompTransport(config StompConfig) *StompTransport {
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &StompTransport{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"v12.stomp"},
		},
	}
}

// Run connects, subscribes to every room and dispatches MESSAGE frames until ctx
// is cancelled. Lost connections are re-established after ReconnectWait.
func (t *StompTransport) Run(ctx context.Context, rooms []string, handler Handler) error {
	log.Info().
		Str("url", t.config.URL).
		Strs("rooms", rooms).
		Msg("starting STOMP transport")

	for attempt := 0; ; attempt++ {
		err := t.runSession(ctx, rooms, handler, attempt > 0)
		if ctx.Err() != nil || t.isClosed() {
			log.Info().Msg("STOMP transport shutting down")
			return nil
		}

		log.Error().
			Err(err).
			Int("attempt", attempt+1).
			Dur("retry_in", t.config.ReconnectWait).
			Msg("STOMP connection lost")

		select {
		case <-ctx.Done():
			return nil
		case <-t.config.Clock.After(t.config.ReconnectWait):
		}
	}
}

func (t *StompTransport) runSession(ctx context.Context, rooms []string, handler Handler, reconnect bool) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer t.dropConn(conn)

	stop := context.AfterFunc(ctx, func() {
		t.writeFrame(conn, NewFrame(CommandDisconnect))
		conn.Close()
	})
	defer stop()

	for _, roomID := range rooms {
		for _, destination := range []string{StartedTopic(roomID), StoppedTopic(roomID)} {
			sub := NewFrame(CommandSubscribe,
				"id", uuid.NewString(),
				"destination", destination,
				"ack", "auto",
			)
			if err := t.writeFrame(conn, sub); err != nil {
				return fmt.Errorf("subscribe %s: %w", destination, err)
			}
		}
	}

	log.Info().Strs("rooms", rooms).Msg("STOMP subscriptions active")

	if reconnect && t.config.OnReconnect != nil {
		t.config.OnReconnect(ctx)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		frame, err := ParseFrame(data)
		if errors.Is(err, ErrHeartbeat) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed STOMP frame")
			continue
		}

		switch frame.Command {
		case CommandMessage:
			t.processMessage(ctx, frame, handler)
		case CommandError:
			return fmt.Errorf("broker error: %s %s", frame.Header("message"), strings.TrimSpace(string(frame.Body)))
		case CommandReceipt:
		default:
			log.Debug().Str("command", frame.Command).Msg("ignoring STOMP frame")
		}
	}
}

// connect dials the broker and completes the CONNECT handshake.
func (t *StompTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.config.URL, err)
	}

	host := t.config.Host
	if host == "" {
		if u, err := url.Parse(t.config.URL); err == nil {
			host = u.Hostname()
		}
	}

	connectFrame := NewFrame(CommandConnect,
		"accept-version", "1.2",
		"host", host,
		"heart-beat", "0,0",
	)
	if t.config.Token != "" {
		connectFrame.Headers["Authorization"] = "Bearer " + t.config.Token
	}
	if err := t.writeFrame(conn, connectFrame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send CONNECT: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read CONNECTED: %w", err)
	}
	frame, err := ParseFrame(data)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("parse CONNECTED: %w", err)
	}
	if frame.Command != CommandConnected {
		conn.Close()
		return nil, fmt.Errorf("broker refused connection: %s %s", frame.Header("message"), strings.TrimSpace(string(frame.Body)))
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return nil, fmt.Errorf("transport closed")
	}
	t.conn = conn
	t.mu.Unlock()

	log.Info().
		Str("url", t.config.URL).
		Str("version", frame.Header("version")).
		Msg("STOMP connected")
	return conn, nil
}

func (t *StompTransport) processMessage(ctx context.Context, frame *Frame, handler Handler) {
	destination := frame.Header("destination")
	roomID, kind, ok := parseTopic(destination)
	if !ok {
		log.Debug().Str("destination", destination).Msg("message for unknown destination - ignoring")
		return
	}

	event, err := timer.ParseEvent(kind, frame.Body)
	if err != nil {
		log.Error().
			Err(err).
			Str("destination", destination).
			Msg("failed to parse timer event")
		return
	}

	log.Debug().
		Str("room_id", roomID).
		Str("event_kind", string(kind)).
		Str("message_id", frame.Header("message-id")).
		Msg("received timer event")

	handler(ctx, bindRoom(event, roomID))
}

func (t *StompTransport) writeFrame(conn *websocket.Conn, frame *Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame.Marshal())
}

func (t *StompTransport) dropConn(conn *websocket.Conn) {
	conn.Close()
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()
}

func (t *StompTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *StompTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && !t.closed
}

// Close shuts the transport down; Run returns once its read loop notices.
func (t *StompTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
