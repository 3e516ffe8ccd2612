package shell

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// Service is the local bridge between room timers and the UI shell: it streams
// state and notifications over WebSocket and accepts host commands over HTTP.
type Service struct {
	connectionManager *ConnectionManager
	notifier          *Notifier
}

// Config holds configuration for the shell service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the shell service
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

func NewService(config Config, clock clockwork.Clock) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, clock)

	return &Service{
		connectionManager: connectionManager,
		notifier:          NewNotifier(connectionManager, clock),
	}
}

// Notifier returns the timer.Notifier that broadcasts to shell clients.
func (s *Service) Notifier() *Notifier {
	return s.notifier
}

// Attach streams every state change of session to the room's shell clients.
// It matches the func(*timer.Session) shape of timer.Manager.OnOpen.
func (s *Service) Attach(session *timer.Session) {
	roomID := session.RoomID()
	// Store subscribers run under the session lock, so the remaining time comes
	// from the state itself rather than CurrentRemainingTime.
	session.Store().Subscribe(func(state timer.State) {
		s.notifier.PublishState(roomID, newTimerStateResponse(roomID, state, state.TimerDuration))
	})
	log.Debug().Str("room_id", roomID).Msg("shell attached to timer session")
}

// Start processes broadcasts until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting shell service")
	s.connectionManager.Start(ctx)
}

// RegisterRoutes registers the shell HTTP and WebSocket routes for sessions
func (s *Service) RegisterRoutes(mux *http.ServeMux, sessions SessionLookup) {
	NewWebSocketHandler(s.connectionManager, sessions, s.notifier).RegisterRoutes(mux)
	NewStateHandler(sessions).RegisterStateRoutes(mux)
	log.Info().Msg("shell routes registered")
}

// GetStats returns statistics about the shell service
func (s *Service) GetStats() map[string]any {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "shell"
	return stats
}
