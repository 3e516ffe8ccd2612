package shell

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests from the shell
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	sessions          SessionLookup
	notifier          *Notifier
}

func NewWebSocketHandler(cm *ConnectionManager, sessions SessionLookup, notifier *Notifier) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		sessions:          sessions,
		notifier:          notifier,
	}
}

// HandleShellConnection handles GET /ws/shell?room=
func (h *WebSocketHandler) HandleShellConnection(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	session, ok := h.sessions.Get(room)
	if !ok {
		http.Error(w, "room is not open", http.StatusNotFound)
		return
	}

	// the client starts from the current state and then follows changes
	state := newTimerStateResponse(room, session.Store().Snapshot(), session.CurrentRemainingTime(r.Context()))
	initial := h.notifier.newEvent(room, EventTypeTimerState, state)

	if err := h.connectionManager.UpgradeConnection(w, r, room, initial); err != nil {
		// the upgrader has already replied to the client
		log.Error().
			Err(err).
			Str("room_id", room).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/shell", h.HandleShellConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
