package shell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/clients"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu       sync.Mutex
	startErr error
}

func (b *stubBackend) StartTimer(context.Context, string, int, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startErr
}

func (b *stubBackend) StopTimer(context.Context, string) error { return nil }

func (b *stubBackend) LogStudyTime(context.Context, string, int) error { return nil }

type testShell struct {
	server  *httptest.Server
	manager *timer.Manager
	backend *stubBackend
	clock   *clockwork.FakeClock
}

func setupTestShell(t *testing.T, rooms ...string) *testShell {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	backend := &stubBackend{}
	factory := repository.NewFactory(repository.NewMemoryStorage(), clock, repository.Config{Username: "alice"})

	service := NewService(DefaultConfig(), clock)
	manager := timer.NewManager(factory, backend, service.Notifier(), timer.Options{Clock: clock})
	manager.OnOpen(service.Attach)

	ctx, cancel := context.WithCancel(context.Background())
	go service.Start(ctx)
	for _, room := range rooms {
		manager.Open(ctx, room)
	}

	mux := http.NewServeMux()
	service.RegisterRoutes(mux, manager)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		manager.CloseAll()
		cancel()
	})

	return &testShell{server: server, manager: manager, backend: backend, clock: clock}
}

func (ts *testShell) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (ts *testShell) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestStateHandler(t *testing.T) {
	t.Run("idle room", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")

		resp, body := ts.get(t, "/api/rooms/ROOM42/timer")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ROOM42", body["roomId"])
		assert.Equal(t, float64(1500), body["timerDuration"])
		assert.Equal(t, float64(1500), body["currentRemainingTime"])
		assert.Equal(t, false, body["isTimerRunning"])
	})

	t.Run("unknown room", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")

		resp, body := ts.get(t, "/api/rooms/NOPE/timer")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "room is not open", body["error"])
	})

	t.Run("start then stop", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")

		resp, body := ts.post(t, "/api/rooms/ROOM42/timer/start", `{"durationSeconds":600,"description":"Essay"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["isTimerRunning"])
		assert.Equal(t, float64(600), body["currentRemainingTime"])

		ts.clock.Advance(time.Minute)
		_, body = ts.get(t, "/api/rooms/ROOM42/timer")
		assert.Equal(t, float64(540), body["currentRemainingTime"])

		resp, body = ts.post(t, "/api/rooms/ROOM42/timer/stop", ``)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["isTimerRunning"])
	})

	t.Run("invalid duration", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")

		resp, _ := ts.post(t, "/api/rooms/ROOM42/timer/start", `{"durationSeconds":0}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("backend rejects the host command", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")
		ts.backend.startErr = &clients.APIError{StatusCode: http.StatusForbidden, Body: "not host"}

		resp, _ := ts.post(t, "/api/rooms/ROOM42/timer/start", `{"durationSeconds":60}`)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := setupTestShell(t, "ROOM42")

		resp, _ := ts.post(t, "/api/rooms/ROOM42/timer/start", `{`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func readShellEvent(t *testing.T, conn *websocket.Conn) ShellEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event ShellEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWebSocketHandler(t *testing.T) {
	ts := setupTestShell(t, "ROOM42")

	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/shell?room=ROOM42"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readShellEvent(t, conn)
	assert.Equal(t, EventTypeTimerState, initial.Type)
	assert.Equal(t, "ROOM42", initial.Room)

	session, ok := ts.manager.Get("ROOM42")
	require.True(t, ok)

	session.HandleTimerStarted(context.Background(), timer.StartedPayload{RoomID: "ROOM42", OriginalDurationSeconds: 900, Description: "Review"})

	var types []EventType
	var state TimerStateResponse
	var notification timer.Notification
	for len(types) < 3 {
		event := readShellEvent(t, conn)
		types = append(types, event.Type)
		switch event.Type {
		case EventTypeTimerState:
			require.NoError(t, json.Unmarshal(event.Data, &state))
		case EventTypeNotification:
			require.NoError(t, json.Unmarshal(event.Data, &notification))
		}
	}

	assert.Equal(t, []EventType{EventTypeTimerState, EventTypeRevealTimer, EventTypeNotification}, types)
	assert.True(t, state.IsTimerRunning)
	assert.Equal(t, 900, state.TimerDuration)
	assert.Equal(t, "Review", state.TimerDescription)
	assert.Equal(t, "Study timer started", notification.Title)
}

func TestWebSocketHandler_RequiresOpenRoom(t *testing.T) {
	ts := setupTestShell(t, "ROOM42")

	resp, err := http.Get(ts.server.URL + "/ws/shell")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.server.URL + "/ws/shell?room=NOPE")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
