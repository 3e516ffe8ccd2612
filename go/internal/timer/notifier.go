package timer

import "github.com/rs/zerolog/log"

// LogNotifier writes notifications to the log. It is the fallback surface when
// nothing else is listening.
type LogNotifier struct{}

func (LogNotifier) Notify(roomID string, n Notification) {
	event := log.Info()
	if n.Level == LevelError {
		event = log.Warn()
	}
	event.
		Str("room_id", roomID).
		Str("level", string(n.Level)).
		Str("title", n.Title).
		Str("message", n.Message).
		Msg("notification")
}

func (LogNotifier) RevealTimer(roomID string) {
	log.Debug().Str("room_id", roomID).Msg("reveal timer")
}

// MultiNotifier fans a notification out to several surfaces.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(roomID string, n Notification) {
	for _, notifier := range m {
		notifier.Notify(roomID, n)
	}
}

func (m MultiNotifier) RevealTimer(roomID string) {
	for _, notifier := range m {
		notifier.RevealTimer(roomID)
	}
}
