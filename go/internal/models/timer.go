package models

import "time"

const (
	// DefaultTimerDurationSeconds is the duration a room timer resets to (25 minutes).
	DefaultTimerDurationSeconds = 25 * 60

	// MaxTimerDurationSeconds bounds a single study period to the staleness window.
	MaxTimerDurationSeconds = 24 * 60 * 60

	// MaxTimerDescriptionLength is the longest session label a host may set.
	MaxTimerDescriptionLength = 200
)

// TimerStatus is the coarse state of a room timer.
type TimerStatus string

const (
	TimerStatusIdle    TimerStatus = "IDLE"
	TimerStatusRunning TimerStatus = "RUNNING"
)

// TimerRecord is the persisted timer state for one room on this device.
type TimerRecord struct {
	DurationSeconds         int    `json:"duration"`
	Description             string `json:"description"`
	IsRunning               bool   `json:"isRunning"`
	StartTimeMillis         int64  `json:"startTime"`
	OriginalDurationSeconds int    `json:"originalDuration"`
	OwnerUsername           string `json:"username"`
	RoomID                  string `json:"roomId"`
	LastWriteMillis         int64  `json:"timestamp"`
}

// StartTime returns StartTimeMillis as a time.Time.
func (r *TimerRecord) StartTime() time.Time {
	return time.UnixMilli(r.StartTimeMillis)
}

// LastWrite returns LastWriteMillis as a time.Time.
func (r *TimerRecord) LastWrite() time.Time {
	return time.UnixMilli(r.LastWriteMillis)
}

// Status reports whether the record describes a running timer.
func (r *TimerRecord) Status() TimerStatus {
	if r.IsRunning {
		return TimerStatusRunning
	}
	return TimerStatusIdle
}
