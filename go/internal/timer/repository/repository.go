package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// DefaultStaleAfter is how long a record survives without a write.
const DefaultStaleAfter = 24 * time.Hour

const keyPrefix = "studyroom:timer:"

// Key returns the storage key for username's timer record in roomID. Terminals
// signed in as different users keep separate records on a shared storage.
func Key(roomID, username string) string {
	if username == "" {
		return keyPrefix + roomID
	}
	return keyPrefix + roomID + ":" + username
}

// Repository persists the timer record of one room for one user.
type Repository struct {
	storage    Storage
	clock      clockwork.Clock
	roomID     string
	username   string
	staleAfter time.Duration
}

// Config holds the settings shared by every room's Repository.
type Config struct {
	Username   string
	StaleAfter time.Duration
}

// NewRepository creates a repository bound to roomID.
func NewRepository(storage Storage, clock clockwork.Clock, roomID string, cfg Config) *Repository {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Repository{
		storage:    storage,
		clock:      clock,
		roomID:     roomID,
		username:   cfg.Username,
		staleAfter: cfg.StaleAfter,
	}
}

// NewFactory returns a timer.RepositoryFactory sharing storage and clock.
func NewFactory(storage Storage, clock clockwork.Clock, cfg Config) timer.RepositoryFactory {
	return func(roomID string) timer.Repository {
		return NewRepository(storage, clock, roomID, cfg)
	}
}

var _ timer.Repository = (*Repository)(nil)

func (r *Repository) key() string {
	return Key(r.roomID, r.username)
}

// Save writes the room's record.
func (r *Repository) Save(ctx context.Context, params timer.SaveParams) error {
	now := r.clock.Now()

	startTime := params.StartTimeMillis
	if startTime == 0 {
		startTime = now.UnixMilli()
	}
	original := params.OriginalDurationSeconds
	if original == 0 {
		original = params.DurationSeconds
	}

	duration := params.DurationSeconds
	if duration < 0 {
		duration = 0
	}
	if duration > original {
		duration = original
	}

	record := models.TimerRecord{
		DurationSeconds:         duration,
		Description:             params.Description,
		IsRunning:               params.IsRunning,
		StartTimeMillis:         startTime,
		OriginalDurationSeconds: original,
		OwnerUsername:           r.username,
		RoomID:                  r.roomID,
		LastWriteMillis:         now.UnixMilli(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal timer record: %w", err)
	}

	if err := r.storage.Put(ctx, r.key(), data); err != nil {
		return fmt.Errorf("failed to save timer record: %w", err)
	}

	log.Debug().
		Str("room_id", r.roomID).
		Str("status", string(record.Status())).
		Time("started_at", record.StartTime()).
		Int("duration_sec", record.DurationSeconds).
		Msg("saved timer record")
	return nil
}

// Clear removes the room's record. Removing an absent record is not an error.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.storage.Delete(ctx, r.key()); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear timer record: %w", err)
	}
	return nil
}

// Validate loads the room's record and checks it is still usable. Anything stale,
// foreign or expired is cleared and reported as absent.
func (r *Repository) Validate(ctx context.Context, skipUserValidation bool) (*timer.Snapshot, bool) {
	data, err := r.storage.Get(ctx, r.key())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("room_id", r.roomID).Msg("failed to read timer record")
		}
		return nil, false
	}

	var record models.TimerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		r.discard(ctx, "unparsable")
		return nil, false
	}

	now := r.clock.Now()

	if reason := r.rejectReason(&record, now, skipUserValidation); reason != "" {
		r.discard(ctx, reason)
		return nil, false
	}

	snapshot := &timer.Snapshot{TimerRecord: record, RemainingTime: record.DurationSeconds}
	if record.IsRunning {
		snapshot.RemainingTime = timer.CalculateRemaining(now, record.StartTimeMillis, record.OriginalDurationSeconds)
		if snapshot.RemainingTime <= 0 {
			r.discard(ctx, "expired")
			return nil, false
		}
	}

	return snapshot, true
}

func (r *Repository) rejectReason(record *models.TimerRecord, now time.Time, skipUserValidation bool) string {
	switch {
	case record.RoomID != r.roomID:
		return "room mismatch"
	case !skipUserValidation && record.OwnerUsername != r.username:
		return "user mismatch"
	case now.Sub(record.LastWrite()) > r.staleAfter:
		return "stale"
	case record.IsRunning && (record.StartTimeMillis == 0 || record.OriginalDurationSeconds == 0):
		return "incomplete running record"
	}
	return ""
}

func (r *Repository) discard(ctx context.Context, reason string) {
	log.Debug().
		Str("room_id", r.roomID).
		Str("reason", reason).
		Msg("discarding local timer record")

	if err := r.Clear(ctx); err != nil {
		log.Warn().Err(err).Str("room_id", r.roomID).Msg("failed to discard timer record")
	}
}
