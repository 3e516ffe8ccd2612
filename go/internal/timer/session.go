package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is how often a running timer refreshes its displayed value.
const DefaultTickInterval = time.Second

// Lifecycle is the stage a Session is in. Running vs. idle is tracked by the Store.
type Lifecycle int

const (
	LifecycleConstructed Lifecycle = iota
	LifecycleInitialized
	LifecycleDisposed
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleConstructed:
		return "constructed"
	case LifecycleInitialized:
		return "initialized"
	case LifecycleDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	Clock        clockwork.Clock
	TickInterval time.Duration
}

// Session reconciles one room's timer between host commands, pushed server
// events, the local record and the wall clock.
//
// Store subscribers and the Notifier are called while the session lock is held
// and must not call back into the Session.
type Session struct {
	roomID       string
	repo         Repository
	backend      Backend
	notifier     Notifier
	clock        clockwork.Clock
	tickInterval time.Duration
	store        *Store

	mu              sync.Mutex
	lifecycle       Lifecycle
	startTimeMillis int64 // start of the current running period, 0 when idle

	ctx    context.Context
	cancel context.CancelFunc
	wakeCh chan struct{}
}

// NewSession creates the session for roomID and hydrates its Store from the local
// record before returning, so callers see the right state without a network trip.
func NewSession(ctx context.Context, roomID string, repo Repository, backend Backend, notifier Notifier, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	s := &Session{
		roomID:       roomID,
		repo:         repo,
		backend:      backend,
		notifier:     notifier,
		clock:        opts.Clock,
		tickInterval: opts.TickInterval,
		lifecycle:    LifecycleConstructed,
		ctx:          sessionCtx,
		cancel:       cancel,
		wakeCh:       make(chan struct{}, 1),
	}

	initial := DefaultState()
	if snapshot, ok := repo.Validate(ctx, false); ok {
		initial = State{
			TimerDuration:         snapshot.RemainingTime,
			TimerDescription:      snapshot.Description,
			IsTimerRunning:        snapshot.IsRunning,
			OriginalTimerDuration: snapshot.OriginalDurationSeconds,
		}
		if snapshot.IsRunning {
			s.startTimeMillis = snapshot.StartTimeMillis
		}
		log.Info().
			Str("room_id", roomID).
			Bool("running", snapshot.IsRunning).
			Int("remaining_sec", snapshot.RemainingTime).
			Msg("hydrated timer from local record")
	}
	s.store = NewStore(initial)

	return s
}

// RoomID returns the room this session belongs to.
func (s *Session) RoomID() string {
	return s.roomID
}

// Store exposes the observable state.
func (s *Session) Store() *Store {
	return s.store
}

// Lifecycle returns the current lifecycle stage.
func (s *Session) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle
}

// Dispose stops the session. In-flight backend calls are cancelled and no state is
// written afterwards. Dispose is idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.lifecycle == LifecycleDisposed {
		s.mu.Unlock()
		return
	}
	s.lifecycle = LifecycleDisposed
	s.mu.Unlock()

	s.cancel()
	log.Debug().Str("room_id", s.roomID).Msg("timer session disposed")
}

// CurrentRemainingTime derives the remaining seconds: from the local record while
// running, otherwise the displayed duration.
func (s *Session) CurrentRemainingTime(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.store.Snapshot()
	if !state.IsTimerRunning {
		return state.TimerDuration
	}
	if snapshot, ok := s.repo.Validate(ctx, false); ok && snapshot.IsRunning {
		return snapshot.RemainingTime
	}
	return CalculateRemaining(s.clock.Now(), s.startTimeMillis, state.OriginalTimerDuration)
}

// HandleEvent dispatches a parsed server event.
func (s *Session) HandleEvent(ctx context.Context, event Event) {
	switch e := event.(type) {
	case StartedEvent:
		s.HandleTimerStarted(ctx, e.Payload)
	case StoppedEvent:
		s.HandleTimerStopped(ctx, e.Payload)
	default:
		log.Warn().
			Str("room_id", s.roomID).
			Str("event_kind", string(event.Kind())).
			Msg("unknown timer event - ignoring")
	}
}

// HandleTimerStarted reconciles a pushed "timer started" event. A local timer that
// is already running is kept, so a replayed event cannot restart it.
func (s *Session) HandleTimerStarted(ctx context.Context, payload StartedPayload) {
	if !s.ownsRoom(payload.RoomID, EventKindStarted) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == LifecycleDisposed {
		return
	}

	if snapshot, ok := s.repo.Validate(ctx, false); ok && snapshot.IsRunning && snapshot.RemainingTime > 0 {
		if s.store.Snapshot().IsTimerRunning && s.startTimeMillis == snapshot.StartTimeMillis {
			log.Debug().
				Str("room_id", s.roomID).
				Int("remaining_sec", snapshot.RemainingTime).
				Msg("timer already running locally - keeping local state")
			return
		}

		// the record was written by another process sharing the storage
		s.adoptLocked(snapshot)
		s.notifier.RevealTimer(s.roomID)
		s.notifier.Notify(s.roomID, Notification{
			Level:   LevelInfo,
			Title:   "Study timer started",
			Message: describe(snapshot.Description, snapshot.RemainingTime),
		})

		log.Info().
			Str("room_id", s.roomID).
			Int("remaining_sec", snapshot.RemainingTime).
			Int64("start_ms", snapshot.StartTimeMillis).
			Msg("adopted running timer from local record")
		return
	}

	now := s.clock.Now()
	original, startMillis := payload.withDefaults(now)
	remaining := CalculateRemaining(now, startMillis, original)
	if remaining <= 0 {
		log.Info().
			Str("room_id", s.roomID).
			Int("original_sec", original).
			Msg("timer started event already expired - ignoring")
		return
	}

	s.beginLocked(ctx, remaining, payload.Description, original, startMillis)

	s.notifier.RevealTimer(s.roomID)
	s.notifier.Notify(s.roomID, Notification{
		Level:   LevelInfo,
		Title:   "Study timer started",
		Message: describe(payload.Description, remaining),
	})

	log.Info().
		Str("room_id", s.roomID).
		Int("remaining_sec", remaining).
		Int("original_sec", original).
		Msg("timer started by server event")
}

// HandleTimerStopped resets the timer to defaults. Calling it repeatedly, or with
// no timer running, leaves the same end state.
func (s *Session) HandleTimerStopped(ctx context.Context, payload StoppedPayload) {
	if !s.ownsRoom(payload.RoomID, EventKindStopped) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == LifecycleDisposed {
		return
	}

	wasRunning := s.store.Snapshot().IsTimerRunning
	s.resetLocked(ctx)

	if wasRunning {
		s.notifier.Notify(s.roomID, Notification{Level: LevelInfo, Title: "Study timer stopped"})
		log.Info().Str("room_id", s.roomID).Msg("timer stopped by server event")
	}
}

// StartTimer asks the backend to start the room timer and, once accepted, starts it
// locally. A rejected request leaves local state untouched.
func (s *Session) StartTimer(ctx context.Context, durationSeconds int, description string) error {
	if err := validateStart(durationSeconds, description); err != nil {
		s.notifier.Notify(s.roomID, Notification{Level: LevelError, Title: "Invalid timer settings", Message: err.Error()})
		return err
	}
	if s.Lifecycle() == LifecycleDisposed {
		return ErrSessionDisposed
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.backend.StartTimer(callCtx, s.roomID, durationSeconds, description); err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to start timer")
		if s.Lifecycle() != LifecycleDisposed {
			s.notifier.Notify(s.roomID, Notification{Level: LevelError, Title: "Failed to start timer", Message: err.Error()})
		}
		return fmt.Errorf("start timer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == LifecycleDisposed {
		return ErrSessionDisposed
	}

	s.beginLocked(ctx, durationSeconds, description, durationSeconds, s.clock.Now().UnixMilli())
	s.notifier.Notify(s.roomID, Notification{
		Level:   LevelSuccess,
		Title:   "Study timer started",
		Message: describe(description, durationSeconds),
	})

	log.Info().
		Str("room_id", s.roomID).
		Int("duration_sec", durationSeconds).
		Msg("timer started")
	return nil
}

// StopTimer asks the backend to stop the room timer and, once accepted, resets it
// locally. A rejected request leaves the timer running.
func (s *Session) StopTimer(ctx context.Context) error {
	if s.Lifecycle() == LifecycleDisposed {
		return ErrSessionDisposed
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.backend.StopTimer(callCtx, s.roomID); err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to stop timer")
		if s.Lifecycle() != LifecycleDisposed {
			s.notifier.Notify(s.roomID, Notification{Level: LevelError, Title: "Failed to stop timer", Message: err.Error()})
		}
		return fmt.Errorf("stop timer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == LifecycleDisposed {
		return ErrSessionDisposed
	}

	s.resetLocked(ctx)
	s.notifier.Notify(s.roomID, Notification{Level: LevelSuccess, Title: "Study timer stopped"})

	log.Info().Str("room_id", s.roomID).Msg("timer stopped")
	return nil
}

// beginLocked moves the session to Running and persists the record.
func (s *Session) beginLocked(ctx context.Context, remaining int, description string, original int, startMillis int64) {
	s.startTimeMillis = startMillis
	s.store.Set(State{
		TimerDuration:         remaining,
		TimerDescription:      description,
		IsTimerRunning:        true,
		OriginalTimerDuration: original,
	})

	err := s.repo.Save(ctx, SaveParams{
		DurationSeconds:         remaining,
		Description:             description,
		IsRunning:               true,
		StartTimeMillis:         startMillis,
		OriginalDurationSeconds: original,
	})
	if err != nil {
		log.Warn().Err(err).Str("room_id", s.roomID).Msg("failed to persist running timer")
	}

	s.wake()
}

// adoptLocked moves the session to the running period described by a valid local
// record. The record is already current, so nothing is written.
func (s *Session) adoptLocked(snapshot *Snapshot) {
	s.startTimeMillis = snapshot.StartTimeMillis
	s.store.Set(State{
		TimerDuration:         snapshot.RemainingTime,
		TimerDescription:      snapshot.Description,
		IsTimerRunning:        true,
		OriginalTimerDuration: snapshot.OriginalDurationSeconds,
	})
	s.wake()
}

// resetLocked moves the session to Idle and removes the record.
func (s *Session) resetLocked(ctx context.Context) {
	s.startTimeMillis = 0
	s.store.Reset()

	if err := s.repo.Clear(ctx); err != nil {
		log.Warn().Err(err).Str("room_id", s.roomID).Msg("failed to clear timer record")
	}

	s.wake()
}

// callContext derives a context for a backend call that is also cancelled when the
// session is disposed.
func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) ownsRoom(roomID string, kind EventKind) bool {
	if roomID == "" || roomID == s.roomID {
		return true
	}
	log.Warn().
		Str("room_id", s.roomID).
		Str("event_room_id", roomID).
		Str("event_kind", string(kind)).
		Msg("timer event for another room - ignoring")
	return false
}

func (s *Session) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func validateStart(durationSeconds int, description string) error {
	if durationSeconds <= 0 || durationSeconds > models.MaxTimerDurationSeconds {
		return fmt.Errorf("%w: %d seconds", ErrInvalidDuration, durationSeconds)
	}
	if utf8.RuneCountInString(description) > models.MaxTimerDescriptionLength {
		return fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, models.MaxTimerDescriptionLength)
	}
	return nil
}

func describe(description string, seconds int) string {
	length := (time.Duration(seconds) * time.Second).String()
	if description == "" {
		return length
	}
	return fmt.Sprintf("%s (%s)", description, length)
}
