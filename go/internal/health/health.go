package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Status struct {
	Healthy            bool      `json:"healthy"`
	StorageReachable   bool      `json:"storage_reachable"`
	TransportEnabled   bool      `json:"transport_enabled"`
	TransportConnected bool      `json:"transport_connected"`
	OpenRooms          []string  `json:"open_rooms"`
	EventsDispatched   uint64    `json:"events_dispatched"`
	LastEventTime      time.Time `json:"last_event_time,omitzero"`
	Errors             []string  `json:"errors"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnectionReporter interface {
	Connected() bool
}

// EventSource reports which rooms are open and how events have flowed to them.
type EventSource interface {
	Rooms() []string
	Stats() (dispatched uint64, last time.Time)
}

type Checker struct {
	storage   Pinger
	transport ConnectionReporter // nil when pushed events are disabled
	events    EventSource
	clock     clockwork.Clock
	// quietAfter is how long rooms may go without events before it is
	// reported. Quiet rooms are normal, so this never marks the daemon unhealthy.
	quietAfter time.Duration
}

func NewChecker(storage Pinger, transport ConnectionReporter, events EventSource, clock clockwork.Clock, quietAfter time.Duration) *Checker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Checker{
		storage:    storage,
		transport:  transport,
		events:     events,
		clock:      clock,
		quietAfter: quietAfter,
	}
}

func (c *Checker) Check(ctx context.Context) Status {
	status := Status{
		Healthy:   true,
		OpenRooms: c.events.Rooms(),
		Errors:    []string{},
	}
	status.EventsDispatched, status.LastEventTime = c.events.Stats()

	if err := c.storage.Ping(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("storage ping failed: %v", err))
	} else {
		status.StorageReachable = true
	}

	if c.transport != nil {
		status.TransportEnabled = true
		status.TransportConnected = c.transport.Connected()
		if !status.TransportConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "event transport disconnected")
		}
	}

	if c.quietAfter > 0 && !status.LastEventTime.IsZero() {
		if quiet := c.clock.Since(status.LastEventTime); quiet > c.quietAfter {
			status.Errors = append(status.Errors, fmt.Sprintf("no timer events for %s", quiet.Round(time.Second)))
		}
	}

	return status
}

func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := c.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}
