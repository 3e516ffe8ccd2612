package timer

import "time"

// CalculateRemaining returns how many whole seconds are left of a countdown that
// started at startTimeMillis with originalDurationSeconds, as seen at now.
// The result is clamped to [0, originalDurationSeconds], so a start time slightly
// ahead of the local clock never yields more than the original duration.
func CalculateRemaining(now time.Time, startTimeMillis int64, originalDurationSeconds int) int {
	if originalDurationSeconds <= 0 {
		return 0
	}

	elapsedMillis := now.UnixMilli() - startTimeMillis
	elapsed := elapsedMillis / 1000
	if elapsedMillis < 0 && elapsedMillis%1000 != 0 {
		elapsed-- // floor, not truncation
	}

	remaining := int64(originalDurationSeconds) - elapsed
	switch {
	case remaining < 0:
		return 0
	case remaining > int64(originalDurationSeconds):
		return originalDurationSeconds
	}
	return int(remaining)
}

// ExpiresAt returns the instant a countdown started at startTimeMillis reaches zero.
func ExpiresAt(startTimeMillis int64, originalDurationSeconds int) time.Time {
	return time.UnixMilli(startTimeMillis).Add(time.Duration(originalDurationSeconds) * time.Second)
}
