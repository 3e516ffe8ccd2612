package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "studyroom.rooms."

// TimerSubject returns the JetStream subject for a room's timer events of kind.
func TimerSubject(roomID string, kind timer.EventKind) string {
	suffix := "started"
	if kind == timer.EventKindStopped {
		suffix = "stopped"
	}
	return subjectPrefix + roomID + ".timer." + suffix
}

// Envelope wraps every event published on the timer stream.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	RoomID    string          `json:"roomId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSConfig holds configuration for the JetStream transport
type NATSConfig struct {
	URL           string
	StreamName    string
	MaxReconnects int
	ReconnectWait time.Duration
	// OnReconnect runs after the NATS connection is re-established.
	OnReconnect func(ctx context.Context)
}

// DefaultNATSConfig returns default JetStream transport configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		StreamName:    "STUDYROOM_EVENTS",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSTransport receives timer events from a JetStream ordered consumer. Each
// (re)connect starts with the last event per subject, so the latest
// authoritative state of every room is replayed.
type NATSTransport struct {
	config NATSConfig

	mu sync.Mutex
	nc *nats.Conn
}

var _ Transport = (*NATSTransport)(nil)

func NewNATSTransport(config NATSConfig) *NATSTransport {
	if config.StreamName == "" {
		config.StreamName = DefaultNATSConfig().StreamName
	}
	return &NATSTransport{config: config}
}

// Run consumes events for rooms until ctx is cancelled.
func (t *NATSTransport) Run(ctx context.Context, rooms []string, handler Handler) error {
	nc, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	subjects := make([]string, 0, len(rooms)*2)
	for _, roomID := range rooms {
		subjects = append(subjects,
			TimerSubject(roomID, timer.EventKindStarted),
			TimerSubject(roomID, timer.EventKindStopped),
		)
	}

	consumer, err := js.OrderedConsumer(ctx, t.config.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: subjects,
		DeliverPolicy:  jetstream.DeliverLastPerSubjectPolicy,
		ReplayPolicy:   jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	log.Info().
		Str("stream", t.config.StreamName).
		Strs("subjects", subjects).
		Msg("starting JetStream timer consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("JetStream timer consumer shutting down")
			return nil
		case msg := <-messageCh:
			event, err := decodeMessage(msg.Subject(), msg.Data())
			if err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				continue
			}
			handler(ctx, event)
		}
	}
}

func (t *NATSTransport) connect(ctx context.Context) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("studyroom-timer"),
		nats.MaxReconnects(t.config.MaxReconnects),
		nats.ReconnectWait(t.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			if t.config.OnReconnect != nil {
				go t.config.OnReconnect(ctx)
			}
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(t.config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	t.mu.Lock()
	t.nc = nc
	t.mu.Unlock()
	return nc, nil
}

// decodeMessage turns a stream message into a timer event. The subject is the
// fallback for fields the envelope leaves out.
func decodeMessage(subject string, data []byte) (timer.Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	subjectRoom, subjectKind, _ := parseSubject(subject)

	kind := timer.EventKind(envelope.EventType)
	if kind == "" {
		kind = subjectKind
	}
	roomID := envelope.RoomID
	if roomID == "" {
		roomID = subjectRoom
	}

	event, err := timer.ParseEvent(kind, envelope.Payload)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("room_id", roomID).
		Str("event_type", string(kind)).
		Str("subject", subject).
		Msg("processing JetStream event")

	return bindRoom(event, roomID), nil
}

// parseSubject reads studyroom.rooms.<room>.timer.<started|stopped>.
func parseSubject(subject string) (roomID string, kind timer.EventKind, ok bool) {
	rest, found := strings.CutPrefix(subject, subjectPrefix)
	if !found {
		return "", "", false
	}
	switch {
	case strings.HasSuffix(rest, ".timer.started"):
		return strings.TrimSuffix(rest, ".timer.started"), timer.EventKindStarted, true
	case strings.HasSuffix(rest, ".timer.stopped"):
		return strings.TrimSuffix(rest, ".timer.stopped"), timer.EventKindStopped, true
	}
	return "", "", false
}

func (t *NATSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nc != nil && t.nc.IsConnected()
}

// Close closes the NATS connection.
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	nc := t.nc
	t.nc = nil
	t.mu.Unlock()

	if nc != nil {
		log.Info().Msg("closing NATS connection")
		nc.Close()
	}
	return nil
}
