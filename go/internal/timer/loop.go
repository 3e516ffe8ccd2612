package timer

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Run drives the session until ctx is cancelled or the session is disposed.
// A refresh ticker keeps the displayed remaining time current, and a one-shot
// timer armed at the expiry instant completes the timer on time even if ticks
// are delayed. The expiry timer is re-armed on every start/stop transition.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.lifecycle == LifecycleDisposed {
		s.mu.Unlock()
		return ErrSessionDisposed
	}
	s.lifecycle = LifecycleInitialized
	s.mu.Unlock()

	log.Info().
		Str("room_id", s.roomID).
		Dur("tick_interval", s.tickInterval).
		Msg("timer sync loop started")

	ticker := s.clock.NewTicker(s.tickInterval)
	defer ticker.Stop()

	var (
		expiry  clockwork.Timer
		expiryC <-chan time.Time
	)
	disarm := func() {
		if expiry != nil {
			stopAndDrainTimer(expiry)
			expiry, expiryC = nil, nil
		}
	}
	arm := func() {
		disarm()
		at, ok := s.expiryInstant()
		if !ok {
			return
		}
		wait := at.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		expiry = s.clock.NewTimer(wait)
		expiryC = expiry.Chan()
		log.Debug().
			Str("room_id", s.roomID).
			Time("expires_at", at).
			Dur("wait", wait).
			Msg("armed expiry timer")
	}
	defer disarm()

	arm()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("room_id", s.roomID).Msg("timer sync loop shutting down")
			return nil
		case <-s.ctx.Done():
			log.Debug().Str("room_id", s.roomID).Msg("timer sync loop stopped by dispose")
			return nil
		case <-s.wakeCh:
			arm()
		case <-ticker.Chan():
			s.Sync(ctx)
		case <-expiryC:
			expiry, expiryC = nil, nil
			s.Sync(ctx)
			arm()
		}
	}
}

// Sync re-derives the remaining time of a running timer from the local record and
// completes the timer once it reaches zero. It is a no-op while idle.
func (s *Session) Sync(ctx context.Context) {
	s.mu.Lock()

	state := s.store.Snapshot()
	if s.lifecycle == LifecycleDisposed || !state.IsTimerRunning {
		s.mu.Unlock()
		return
	}

	var remaining int
	if snapshot, ok := s.repo.Validate(ctx, false); ok && snapshot.IsRunning {
		remaining = snapshot.RemainingTime
		s.startTimeMillis = snapshot.StartTimeMillis
		state.OriginalTimerDuration = snapshot.OriginalDurationSeconds
	} else if s.startTimeMillis != 0 {
		// record expired or went missing; the in-memory period is authoritative
		remaining = CalculateRemaining(s.clock.Now(), s.startTimeMillis, state.OriginalTimerDuration)
	} else {
		log.Warn().Str("room_id", s.roomID).Msg("running timer lost its start time - resetting")
		s.resetLocked(ctx)
		s.mu.Unlock()
		return
	}

	if remaining > 0 {
		if remaining != state.TimerDuration {
			s.store.Update(func(st State) State {
				st.TimerDuration = remaining
				return st
			})
		}
		err := s.repo.Save(ctx, SaveParams{
			DurationSeconds:         remaining,
			Description:             state.TimerDescription,
			IsRunning:               true,
			StartTimeMillis:         s.startTimeMillis,
			OriginalDurationSeconds: state.OriginalTimerDuration,
		})
		if err != nil {
			log.Warn().Err(err).Str("room_id", s.roomID).Msg("failed to persist timer tick")
		}
		s.mu.Unlock()
		return
	}

	// Reset before reporting so a concurrent tick cannot complete the same period twice.
	minutes := state.OriginalTimerDuration / 60
	s.resetLocked(ctx)
	s.mu.Unlock()

	s.complete(minutes)
}

// complete reports the finished study period and tells the user.
func (s *Session) complete(minutes int) {
	log.Info().
		Str("room_id", s.roomID).
		Int("minutes", minutes).
		Msg("timer finished")

	if minutes > 0 {
		callCtx, cancel := s.callContext(context.Background())
		err := s.backend.LogStudyTime(callCtx, s.roomID, minutes)
		cancel()
		if err != nil {
			log.Error().
				Err(err).
				Str("room_id", s.roomID).
				Int("minutes", minutes).
				Msg("failed to log study time")
		}
	}

	if s.Lifecycle() == LifecycleDisposed {
		return
	}
	s.notifier.Notify(s.roomID, Notification{
		Level:   LevelSuccess,
		Title:   "Study timer finished",
		Message: "Great work! Time for a break.",
	})
}

// expiryInstant reports when the current running period ends.
func (s *Session) expiryInstant() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.store.Snapshot()
	if s.lifecycle == LifecycleDisposed || !state.IsTimerRunning || s.startTimeMillis == 0 {
		return time.Time{}, false
	}
	return ExpiresAt(s.startTimeMillis, state.OriginalTimerDuration), true
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
