package shell

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/studyroom/go/clients"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// SessionLookup finds the open session of a room
type SessionLookup interface {
	Get(roomID string) (*timer.Session, bool)
}

// StartTimerRequest is the body of POST /api/rooms/{room}/timer/start
type StartTimerRequest struct {
	DurationSeconds int    `json:"durationSeconds"`
	Description     string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StateHandler serves timer state and host commands to the shell
type StateHandler struct {
	sessions SessionLookup
}

func NewStateHandler(sessions SessionLookup) *StateHandler {
	return &StateHandler{sessions: sessions}
}

// HandleGetTimer handles GET /api/rooms/{room}/timer
func (h *StateHandler) HandleGetTimer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	response := newTimerStateResponse(session.RoomID(), session.Store().Snapshot(), session.CurrentRemainingTime(r.Context()))
	response.Lifecycle = session.Lifecycle().String()
	writeJSON(w, http.StatusOK, response)
}

// HandleStartTimer handles POST /api/rooms/{room}/timer/start
func (h *StateHandler) HandleStartTimer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := session.StartTimer(r.Context(), req.DurationSeconds, req.Description); err != nil {
		h.writeCommandError(w, session.RoomID(), "start", err)
		return
	}

	writeJSON(w, http.StatusOK, newTimerStateResponse(session.RoomID(), session.Store().Snapshot(), session.CurrentRemainingTime(r.Context())))
}

// HandleStopTimer handles POST /api/rooms/{room}/timer/stop
func (h *StateHandler) HandleStopTimer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.StopTimer(r.Context()); err != nil {
		h.writeCommandError(w, session.RoomID(), "stop", err)
		return
	}

	writeJSON(w, http.StatusOK, newTimerStateResponse(session.RoomID(), session.Store().Snapshot(), session.CurrentRemainingTime(r.Context())))
}

func (h *StateHandler) session(w http.ResponseWriter, r *http.Request) (*timer.Session, bool) {
	room := r.PathValue("room")
	if room == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "room is required"})
		return nil, false
	}

	session, ok := h.sessions.Get(room)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room is not open"})
		return nil, false
	}
	return session, true
}

func (h *StateHandler) writeCommandError(w http.ResponseWriter, room, command string, err error) {
	status := http.StatusBadGateway

	var apiErr *clients.APIError
	switch {
	case errors.Is(err, timer.ErrInvalidDuration), errors.Is(err, timer.ErrDescriptionTooLong):
		status = http.StatusBadRequest
	case errors.Is(err, timer.ErrSessionDisposed):
		status = http.StatusGone
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		status = apiErr.StatusCode
	}

	log.Warn().
		Err(err).
		Str("room_id", room).
		Str("command", command).
		Int("status", status).
		Msg("timer command failed")

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// RegisterStateRoutes registers the timer routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{room}/timer", h.HandleGetTimer)
	mux.HandleFunc("POST /api/rooms/{room}/timer/start", h.HandleStartTimer)
	mux.HandleFunc("POST /api/rooms/{room}/timer/stop", h.HandleStopTimer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
