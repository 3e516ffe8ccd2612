package shell

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// Notifier forwards timer notifications to every shell watching the room.
type Notifier struct {
	connections *ConnectionManager
	clock       clockwork.Clock
}

var _ timer.Notifier = (*Notifier)(nil)

func NewNotifier(cm *ConnectionManager, clock clockwork.Clock) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{connections: cm, clock: clock}
}

func (n *Notifier) Notify(roomID string, notification timer.Notification) {
	n.broadcast(roomID, EventTypeNotification, notification)
}

func (n *Notifier) RevealTimer(roomID string) {
	n.broadcast(roomID, EventTypeRevealTimer, nil)
}

// PublishState sends the latest timer state of a room.
func (n *Notifier) PublishState(roomID string, state TimerStateResponse) {
	n.broadcast(roomID, EventTypeTimerState, state)
}

func (n *Notifier) broadcast(roomID string, eventType EventType, data any) {
	event := n.newEvent(roomID, eventType, data)
	if event == nil {
		return
	}
	n.connections.BroadcastToRoom(roomID, event)
}

func (n *Notifier) newEvent(roomID string, eventType EventType, data any) *ShellEvent {
	event := &ShellEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Room:      roomID,
		Timestamp: n.clock.Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal shell event")
			return nil
		}
		event.Data = raw
	}
	return event
}
