package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Publisher writes timer events to the JetStream stream the NATS transport
// reads from. It is used for local development against a NATS server.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	clock  clockwork.Clock
}

// NewPublisher connects to NATS and makes sure the timer stream exists.
func NewPublisher(ctx context.Context, config NATSConfig, clock clockwork.Clock) (*Publisher, error) {
	if config.StreamName == "" {
		config.StreamName = DefaultNATSConfig().StreamName
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	nc, err := nats.Connect(config.URL, nats.Name("studyroom-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              config.StreamName,
		Subjects:          []string{subjectPrefix + ">"},
		MaxMsgsPerSubject: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", config.StreamName, err)
	}

	return &Publisher{nc: nc, js: js, stream: config.StreamName, clock: clock}, nil
}

// Publish wraps event in an Envelope and publishes it on the room's subject.
func (p *Publisher) Publish(ctx context.Context, event timer.Event) error {
	var payload any
	switch e := event.(type) {
	case timer.StartedEvent:
		payload = e.Payload
	case timer.StoppedEvent:
		payload = e.Payload
	default:
		return fmt.Errorf("unknown timer event kind: %s", event.Kind())
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := Envelope{
		EventID:   uuid.NewString(),
		EventType: string(event.Kind()),
		RoomID:    event.Room(),
		Timestamp: p.clock.Now(),
		Payload:   data,
	}
	message, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := TimerSubject(event.Room(), event.Kind())
	ack, err := p.js.Publish(ctx, subject, message, jetstream.WithMsgID(envelope.EventID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Info().
		Str("event_id", envelope.EventID).
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Msg("published timer event")
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
