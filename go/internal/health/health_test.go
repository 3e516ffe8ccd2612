package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeTransport struct{ connected bool }

func (t fakeTransport) Connected() bool { return t.connected }

type fakeEvents struct {
	rooms      []string
	dispatched uint64
	last       time.Time
}

func (e fakeEvents) Rooms() []string            { return e.rooms }
func (e fakeEvents) Stats() (uint64, time.Time) { return e.dispatched, e.last }

func TestChecker_Check(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	events := fakeEvents{rooms: []string{"ROOM42"}, dispatched: 3, last: clock.Now().Add(-time.Minute)}

	t.Run("healthy", func(t *testing.T) {
		checker := NewChecker(fakePinger{}, fakeTransport{connected: true}, events, clock, time.Hour)

		status := checker.Check(context.Background())

		assert.True(t, status.Healthy)
		assert.True(t, status.StorageReachable)
		assert.True(t, status.TransportEnabled)
		assert.True(t, status.TransportConnected)
		assert.Equal(t, []string{"ROOM42"}, status.OpenRooms)
		assert.Equal(t, uint64(3), status.EventsDispatched)
		assert.Empty(t, status.Errors)
	})

	t.Run("without transport", func(t *testing.T) {
		checker := NewChecker(fakePinger{}, nil, events, clock, time.Hour)

		status := checker.Check(context.Background())

		assert.True(t, status.Healthy)
		assert.False(t, status.TransportEnabled)
	})

	t.Run("storage down", func(t *testing.T) {
		checker := NewChecker(fakePinger{err: errors.New("disk gone")}, nil, events, clock, time.Hour)

		status := checker.Check(context.Background())

		assert.False(t, status.Healthy)
		assert.False(t, status.StorageReachable)
		require.Len(t, status.Errors, 1)
		assert.Contains(t, status.Errors[0], "disk gone")
	})

	t.Run("transport disconnected", func(t *testing.T) {
		checker := NewChecker(fakePinger{}, fakeTransport{}, events, clock, time.Hour)

		status := checker.Check(context.Background())

		assert.False(t, status.Healthy)
		assert.Equal(t, []string{"event transport disconnected"}, status.Errors)
	})

	t.Run("quiet rooms are reported but healthy", func(t *testing.T) {
		checker := NewChecker(fakePinger{}, nil, events, clock, 30*time.Second)

		status := checker.Check(context.Background())

		assert.True(t, status.Healthy)
		assert.Equal(t, []string{"no timer events for 1m0s"}, status.Errors)
	})
}

func TestChecker_ServeHTTP(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := NewChecker(fakePinger{}, fakeTransport{}, fakeEvents{}, clock, 0)

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.Healthy)
	assert.True(t, status.TransportEnabled)
}
