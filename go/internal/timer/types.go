package timer

import (
	"context"
	"errors"

	"github.com/mcdev12/studyroom/go/internal/models"
)

var (
	ErrInvalidDuration    = errors.New("timer duration out of range")
	ErrDescriptionTooLong = errors.New("timer description too long")
	ErrSessionDisposed    = errors.New("timer session disposed")
)

// SaveParams describes one write of the local timer record.
// Zero StartTimeMillis means "now"; zero OriginalDurationSeconds means DurationSeconds.
type SaveParams struct {
	DurationSeconds         int
	Description             string
	IsRunning               bool
	StartTimeMillis         int64
	OriginalDurationSeconds int
}

// Snapshot is a validated local record together with its remaining time.
type Snapshot struct {
	models.TimerRecord
	RemainingTime int `json:"remainingTime"`
}

// Repository is the local persistence adapter for one room and one user.
type Repository interface {
	Save(ctx context.Context, params SaveParams) error
	Clear(ctx context.Context) error
	Validate(ctx context.Context, skipUserValidation bool) (*Snapshot, bool)
}

// RepositoryFactory builds the Repository for a room.
type RepositoryFactory func(roomID string) Repository

// Backend is what a session needs from the study room API.
type Backend interface {
	StartTimer(ctx context.Context, roomID string, durationSeconds int, description string) error
	StopTimer(ctx context.Context, roomID string) error
	LogStudyTime(ctx context.Context, roomID string, minutes int) error
}

// NotificationLevel is the severity of a user-facing notification.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a toast-style message for the user.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message,omitempty"`
}

// Notifier is the user notification surface.
type Notifier interface {
	Notify(roomID string, n Notification)
	// RevealTimer asks the surrounding shell to bring the timer view forward.
	RevealTimer(roomID string)
}
