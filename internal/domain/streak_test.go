package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollStreak(t *testing.T) {
	day := func(y int, m time.Month, d, hour int) time.Time {
		return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
	}
	monday := day(2025, time.March, 3, 9)

	tests := []struct {
		name        string
		last        *time.Time
		session     time.Time
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "first session ever",
			last:        nil,
			session:     monday,
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "same day keeps streak",
			last:        &monday,
			session:     day(2025, time.March, 3, 23),
			current:     4,
			longest:     7,
			wantCurrent: 4,
			wantLongest: 7,
		},
		{
			name:        "same day repairs zero streak",
			last:        &monday,
			session:     day(2025, time.March, 3, 10),
			current:     0,
			longest:     2,
			wantCurrent: 1,
			wantLongest: 2,
		},
		{
			name:        "next day extends streak",
			last:        &monday,
			session:     day(2025, time.March, 4, 1),
			current:     4,
			longest:     4,
			wantCurrent: 5,
			wantLongest: 5,
		},
		{
			name:        "gap resets streak",
			last:        &monday,
			session:     day(2025, time.March, 6, 9),
			current:     4,
			longest:     9,
			wantCurrent: 1,
			wantLongest: 9,
		},
		{
			name:        "session before last session resets",
			last:        &monday,
			session:     day(2025, time.March, 1, 9),
			current:     4,
			longest:     4,
			wantCurrent: 1,
			wantLongest: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := RollStreak(tt.last, tt.session, tt.current, tt.longest)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantLongest, longest)
		})
	}
}

func TestRollStreakUsesUTCCalendarDays(t *testing.T) {
	// 23:30 UTC and 00:30 UTC the next day are consecutive calendar days
	// even though only an hour apart.
	last := time.Date(2025, time.March, 3, 23, 30, 0, 0, time.UTC)
	session := time.Date(2025, time.March, 4, 0, 30, 0, 0, time.UTC)

	current, longest := RollStreak(&last, session, 2, 2)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "go", NormalizeLanguage("go"))
	assert.Equal(t, "typescript", NormalizeLanguage("typescript"))
	assert.Equal(t, "other", NormalizeLanguage("brainfuck"))
	assert.Equal(t, "other", NormalizeLanguage(""))
	assert.Equal(t, "other", NormalizeLanguage("Go")) // canonical keys are lowercase
}

func TestUserHandle(t *testing.T) {
	u := &User{Username: "octocat", DisplayName: "The Octocat"}
	assert.Equal(t, "The Octocat", u.Handle())

	u.DisplayName = ""
	assert.Equal(t, "octocat", u.Handle())

	u.Username = ""
	assert.Equal(t, "User", u.Handle())
}
