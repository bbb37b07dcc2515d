package domain

import "time"

// RollStreak computes the streak counters after a session at sessionTime,
// given the previous session date and the current counters. Days are UTC
// calendar days. The returned longest streak is never below the returned
// current streak.
func RollStreak(lastSession *time.Time, sessionTime time.Time, current, longest int) (int, int) {
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	switch {
	case lastSession == nil:
		current = 1
	case day(sessionTime).Equal(day(*lastSession)):
		// Same day, streak unchanged.
		if current == 0 {
			current = 1
		}
	case day(sessionTime).Sub(day(*lastSession)) == 24*time.Hour:
		current++
	default:
		current = 1
	}

	if current > longest {
		longest = current
	}
	return current, longest
}
