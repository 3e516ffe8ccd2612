package shell

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/studyroom/go/internal/timer"
)

// EventType represents the type of shell event
type EventType string

const (
	EventTypeTimerState   EventType = "TimerState"
	EventTypeNotification EventType = "Notification"
	EventTypeRevealTimer  EventType = "RevealTimer"
)

// ShellEvent is what the UI shell receives over its websocket
type ShellEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Room      string          `json:"room"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TimerStateResponse is the timer state of one room as served to the shell
type TimerStateResponse struct {
	RoomID                string `json:"roomId"`
	TimerDuration         int    `json:"timerDuration"`
	TimerDescription      string `json:"timerDescription"`
	IsTimerRunning        bool   `json:"isTimerRunning"`
	OriginalTimerDuration int    `json:"originalTimerDuration"`
	CurrentRemainingTime  int    `json:"currentRemainingTime"`
	Lifecycle             string `json:"lifecycle,omitempty"`
}

func newTimerStateResponse(roomID string, state timer.State, remaining int) TimerStateResponse {
	return TimerStateResponse{
		RoomID:                roomID,
		TimerDuration:         state.TimerDuration,
		TimerDescription:      state.TimerDescription,
		IsTimerRunning:        state.IsTimerRunning,
		OriginalTimerDuration: state.OriginalTimerDuration,
		CurrentRemainingTime:  remaining,
	}
}
