package realtime

import (
	"context"

	"github.com/mcdev12/studyroom/go/internal/timer"
)

// Handler receives every timer event a transport decodes.
type Handler func(ctx context.Context, event timer.Event)

// Transport delivers server-pushed timer events for a set of rooms.
type Transport interface {
	// Run subscribes to rooms and blocks until ctx is cancelled, reconnecting
	// on connection loss.
	Run(ctx context.Context, rooms []string, handler Handler) error
	// Connected reports whether the transport currently holds a live connection.
	Connected() bool
	Close() error
}

// bindRoom fills in the room of a payload that left it out, using the room the
// event was routed on.
func bindRoom(event timer.Event, roomID string) timer.Event {
	switch e := event.(type) {
	case timer.StartedEvent:
		if e.Payload.RoomID == "" {
			e.Payload.RoomID = roomID
		}
		return e
	case timer.StoppedEvent:
		if e.Payload.RoomID == "" {
			e.Payload.RoomID = roomID
		}
		return e
	}
	return event
}
