package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_Update(t *testing.T) {
	t.Run("notifies subscribers on change", func(t *testing.T) {
		store := NewStore(DefaultState())

		var seen []State
		store.Subscribe(func(s State) { seen = append(seen, s) })

		store.Update(func(s State) State {
			s.IsTimerRunning = true
			s.TimerDuration = 60
			return s
		})

		if assert.Len(t, seen, 1) {
			assert.True(t, seen[0].IsTimerRunning)
			assert.Equal(t, 60, seen[0].TimerDuration)
		}
	})

	t.Run("skips subscribers when nothing changed", func(t *testing.T) {
		store := NewStore(DefaultState())

		calls := 0
		store.Subscribe(func(State) { calls++ })

		store.Set(DefaultState())
		store.Reset()

		assert.Zero(t, calls)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		store := NewStore(DefaultState())

		calls := 0
		unsubscribe := store.Subscribe(func(State) { calls++ })
		store.Set(State{TimerDuration: 10, OriginalTimerDuration: 10, IsTimerRunning: true})
		unsubscribe()
		store.Reset()

		assert.Equal(t, 1, calls)
	})
}

func TestDefaultState(t *testing.T) {
	state := DefaultState()

	assert.Equal(t, 1500, state.TimerDuration)
	assert.Equal(t, 1500, state.OriginalTimerDuration)
	assert.False(t, state.IsTimerRunning)
	assert.Empty(t, state.TimerDescription)
}
