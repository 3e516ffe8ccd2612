package realtime

import (
	"testing"

	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSubject(t *testing.T) {
	assert.Equal(t, "studyroom.rooms.ABC.timer.started", TimerSubject("ABC", timer.EventKindStarted))
	assert.Equal(t, "studyroom.rooms.ABC.timer.stopped", TimerSubject("ABC", timer.EventKindStopped))

	room, kind, ok := parseSubject("studyroom.rooms.ABC.timer.stopped")
	require.True(t, ok)
	assert.Equal(t, "ABC", room)
	assert.Equal(t, timer.EventKindStopped, kind)

	_, _, ok = parseSubject("draft.events.PickMade")
	assert.False(t, ok)
}

func TestDecodeMessage(t *testing.T) {
	t.Run("full envelope", func(t *testing.T) {
		event, err := decodeMessage("studyroom.rooms.ABC.timer.started", []byte(`{
			"eventId": "6f1c",
			"eventType": "TimerStarted",
			"roomId": "ABC",
			"timestamp": "2026-03-02T09:00:00Z",
			"payload": {"duration": 900, "description": "Quiz prep", "roomId": "ABC", "enabled": true}
		}`))
		require.NoError(t, err)

		started, ok := event.(timer.StartedEvent)
		require.True(t, ok)
		assert.Equal(t, "ABC", started.Room())
		assert.Equal(t, 900, started.Payload.OriginalDurationSeconds)
		assert.Equal(t, "Quiz prep", started.Payload.Description)
	})

	t.Run("sparse envelope falls back to the subject", func(t *testing.T) {
		event, err := decodeMessage("studyroom.rooms.XYZ.timer.stopped", []byte(`{}`))
		require.NoError(t, err)

		assert.Equal(t, timer.EventKindStopped, event.Kind())
		assert.Equal(t, "XYZ", event.Room())
	})

	t.Run("malformed envelope", func(t *testing.T) {
		_, err := decodeMessage("studyroom.rooms.XYZ.timer.stopped", []byte(`nope`))
		assert.Error(t, err)
	})

	t.Run("unknown event type", func(t *testing.T) {
		_, err := decodeMessage("studyroom.rooms.XYZ.timer.stopped", []byte(`{"eventType":"TimerPaused"}`))
		assert.Error(t, err)
	})
}
