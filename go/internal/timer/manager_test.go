package timer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(f *fixture) *timer.Manager {
	factory := repository.NewFactory(f.storage, f.clock, repository.Config{Username: testUser})
	return timer.NewManager(factory, f.backend, f.notifier, timer.Options{Clock: f.clock})
}

func TestManager_Open(t *testing.T) {
	f := newFixture(t)
	manager := newTestManager(f)
	defer manager.CloseAll()

	var opened []string
	manager.OnOpen(func(s *timer.Session) { opened = append(opened, s.RoomID()) })

	ctx := context.Background()
	first := manager.Open(ctx, "B")
	again := manager.Open(ctx, "B")
	manager.Open(ctx, "A")

	assert.Same(t, first, again)
	assert.Equal(t, []string{"B", "A"}, opened)
	assert.Equal(t, []string{"A", "B"}, manager.Rooms())
}

func TestManager_Dispatch(t *testing.T) {
	f := newFixture(t)
	manager := newTestManager(f)
	defer manager.CloseAll()

	ctx := context.Background()
	roomA := manager.Open(ctx, "A")
	roomB := manager.Open(ctx, "B")

	manager.Dispatch(ctx, timer.StartedEvent{Payload: timer.StartedPayload{RoomID: "A", OriginalDurationSeconds: 600}})
	manager.Dispatch(ctx, timer.StartedEvent{Payload: timer.StartedPayload{RoomID: "C", OriginalDurationSeconds: 600}})

	assert.True(t, roomA.Store().Snapshot().IsTimerRunning)
	assert.False(t, roomB.Store().Snapshot().IsTimerRunning)
	_, ok := manager.Get("C")
	assert.False(t, ok)

	manager.Dispatch(ctx, timer.StoppedEvent{Payload: timer.StoppedPayload{RoomID: "A"}})
	assert.False(t, roomA.Store().Snapshot().IsTimerRunning)

	dispatched, last := manager.Stats()
	assert.Equal(t, uint64(2), dispatched)
	assert.Equal(t, f.clock.Now().UnixMilli(), last.UnixMilli())
}

func TestManager_Close(t *testing.T) {
	f := newFixture(t)
	manager := newTestManager(f)

	session := manager.Open(context.Background(), "A")
	manager.Close("A")
	manager.Close("A")

	assert.Equal(t, timer.LifecycleDisposed, session.Lifecycle())
	_, ok := manager.Get("A")
	require.False(t, ok)
	assert.Empty(t, manager.Rooms())
}

func TestManager_SyncAllDuringExpiry(t *testing.T) {
	f := newFixture(t)
	manager := newTestManager(f)
	defer manager.CloseAll()

	ctx := context.Background()
	session := manager.Open(ctx, testRoom)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))

	require.NoError(t, session.StartTimer(ctx, 120, "Flashcards"))
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 2))

	f.clock.Advance(120 * time.Second)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.SyncAll(ctx)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return len(f.backend.studyTimeCalls()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool {
		return len(f.backend.studyTimeCalls()) > 1
	}, 200*time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, []studyTimeCall{{roomID: testRoom, minutes: 2}}, f.backend.studyTimeCalls())
	assert.Equal(t, timer.DefaultState(), session.Store().Snapshot())
	assert.Eventually(t, func() bool {
		finished := 0
		for _, title := range f.notifier.titles() {
			if title == "Study timer finished" {
				finished++
			}
		}
		return finished == 1
	}, 5*time.Second, 10*time.Millisecond)
}
