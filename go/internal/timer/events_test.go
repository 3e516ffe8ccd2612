package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	t.Run("started with all fields", func(t *testing.T) {
		event, err := ParseEvent(EventKindStarted, []byte(`{"duration":600,"description":"Chapter 4","roomId":"ABC123","enabled":true,"startTime":1767000000000}`))
		require.NoError(t, err)

		started, ok := event.(StartedEvent)
		require.True(t, ok)
		assert.Equal(t, EventKindStarted, started.Kind())
		assert.Equal(t, "ABC123", started.Room())
		assert.Equal(t, 600, started.Payload.OriginalDurationSeconds)
		assert.Equal(t, "Chapter 4", started.Payload.Description)
		require.NotNil(t, started.Payload.StartTimeMillis)
		assert.Equal(t, int64(1767000000000), *started.Payload.StartTimeMillis)
	})

	t.Run("stopped with empty body", func(t *testing.T) {
		event, err := ParseEvent(EventKindStopped, nil)
		require.NoError(t, err)

		stopped, ok := event.(StoppedEvent)
		require.True(t, ok)
		assert.Empty(t, stopped.Room())
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseEvent(EventKindStarted, []byte(`{"duration":`))
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ParseEvent(EventKind("TimerPaused"), []byte(`{}`))
		assert.ErrorContains(t, err, "unknown timer event kind")
	})
}

func TestStartedPayload_withDefaults(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("sparse payload", func(t *testing.T) {
		original, start := StartedPayload{}.withDefaults(now)

		assert.Equal(t, 1500, original)
		assert.Equal(t, now.UnixMilli(), start)
	})

	t.Run("explicit values win", func(t *testing.T) {
		startMillis := now.Add(-time.Minute).UnixMilli()
		original, start := StartedPayload{OriginalDurationSeconds: 300, StartTimeMillis: &startMillis}.withDefaults(now)

		assert.Equal(t, 300, original)
		assert.Equal(t, startMillis, start)
	})
}
