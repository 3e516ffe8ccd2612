package timer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
)

// EventKind identifies a server-pushed timer event.
type EventKind string

const (
	EventKindStarted EventKind = "TimerStarted"
	EventKindStopped EventKind = "TimerStopped"
)

// Event is a parsed timer event. It is either a StartedEvent or a StoppedEvent.
type Event interface {
	Kind() EventKind
	Room() string
}

// StartedPayload is pushed when the host starts the room timer.
type StartedPayload struct {
	OriginalDurationSeconds int    `json:"duration"`
	Description             string `json:"description"`
	RoomID                  string `json:"roomId"`
	Enabled                 bool   `json:"enabled"`
	StartTimeMillis         *int64 `json:"startTime,omitempty"`
}

// StoppedPayload is pushed when the host stops the room timer.
type StoppedPayload struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

type StartedEvent struct {
	Payload StartedPayload
}

func (e StartedEvent) Kind() EventKind { return EventKindStarted }
func (e StartedEvent) Room() string    { return e.Payload.RoomID }

type StoppedEvent struct {
	Payload StoppedPayload
}

func (e StoppedEvent) Kind() EventKind { return EventKindStopped }
func (e StoppedEvent) Room() string    { return e.Payload.RoomID }

// ParseEvent decodes data as the payload for kind. Missing fields are left for the
// handlers to default; only malformed JSON or an unknown kind is an error.
func ParseEvent(kind EventKind, data []byte) (Event, error) {
	switch kind {
	case EventKindStarted:
		var payload StartedPayload
		if err := unmarshalPayload(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
		}
		return StartedEvent{Payload: payload}, nil

	case EventKindStopped:
		var payload StoppedPayload
		if err := unmarshalPayload(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", kind, err)
		}
		return StoppedEvent{Payload: payload}, nil

	default:
		return nil, fmt.Errorf("unknown timer event kind: %s", kind)
	}
}

func unmarshalPayload(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// withDefaults fills in what a sparse started payload left out.
func (p StartedPayload) withDefaults(now time.Time) (original int, startMillis int64) {
	original = p.OriginalDurationSeconds
	if original <= 0 {
		original = models.DefaultTimerDurationSeconds
	}
	startMillis = now.UnixMilli()
	if p.StartTimeMillis != nil && *p.StartTimeMillis > 0 {
		startMillis = *p.StartTimeMillis
	}
	return original, startMillis
}
