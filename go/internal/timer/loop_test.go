package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Run(t *testing.T) {
	t.Run("expiry timer completes the period", func(t *testing.T) {
		f := newFixture(t)
		session := f.newSession(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- session.Run(ctx) }()

		waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
		defer waitCancel()

		// idle: only the refresh ticker
		require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))
		assert.Equal(t, timer.LifecycleInitialized, session.Lifecycle())

		require.NoError(t, session.StartTimer(ctx, 120, "Flashcards"))

		// running: ticker plus the armed expiry timer
		require.NoError(t, f.clock.BlockUntilContext(waitCtx, 2))

		f.clock.Advance(120 * time.Second)

		require.Eventually(t, func() bool {
			return len(f.backend.studyTimeCalls()) == 1
		}, 5*time.Second, 10*time.Millisecond)

		assert.Equal(t, []studyTimeCall{{roomID: testRoom, minutes: 2}}, f.backend.studyTimeCalls())
		assert.Eventually(t, func() bool {
			return session.Store().Snapshot() == timer.DefaultState()
		}, 5*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("sync loop did not stop")
		}
	})

	t.Run("dispose stops the loop", func(t *testing.T) {
		f := newFixture(t)
		session := f.newSession(t)

		done := make(chan error, 1)
		go func() { done <- session.Run(context.Background()) }()

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))

		session.Dispose()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("sync loop did not stop")
		}
		assert.Equal(t, timer.LifecycleDisposed, session.Lifecycle())
	})
}
