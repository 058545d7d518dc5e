package digest

import (
	"testing"
	"time"

	"github.com/onboarding-booking-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		name      string
		dt        models.DigestType
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"weekly", models.DigestWeekly, time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC), date(2024, 6, 8), date(2024, 6, 9)},
		{"weekly across month end", models.DigestWeekly, date(2024, 1, 28), date(2024, 2, 4), date(2024, 2, 5)},
		{"monthly", models.DigestMonthly, date(2024, 6, 15), date(2024, 5, 1), date(2024, 6, 1)},
		{"monthly january", models.DigestMonthly, date(2024, 1, 3), date(2023, 12, 1), date(2024, 1, 1)},
		{"quarterly Q2 run", models.DigestQuarterly, date(2024, 5, 20), date(2024, 1, 1), date(2024, 4, 1)},
		{"quarterly Q4 run", models.DigestQuarterly, date(2024, 12, 31), date(2024, 7, 1), date(2024, 10, 1)},
		{"yearly", models.DigestYearly, date(2024, 1, 1), date(2023, 1, 1), date(2024, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WindowFor(tt.dt, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(w.Start), "start: want %s got %s", tt.wantStart, w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end: want %s got %s", tt.wantEnd, w.End)
		})
	}
}

func TestWindowFor_QuarterlyRollsIntoPreviousYear(t *testing.T) {
	for _, m := range []time.Month{time.January, time.February, time.March} {
		w, err := WindowFor(models.DigestQuarterly, date(2025, m, 10))
		require.NoError(t, err)
		assert.True(t, date(2024, 10, 1).Equal(w.Start), "month %s", m)
		assert.True(t, date(2025, 1, 1).Equal(w.End), "month %s", m)
		assert.True(t, w.Contains(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)))
	}
}

func TestWindowFor_WeeklyBoundaries(t *testing.T) {
	w, err := WindowFor(models.DigestWeekly, date(2024, 6, 1))
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(date(2024, 6, 8)))
	assert.False(t, w.Contains(date(2024, 6, 9)))
	assert.False(t, w.Contains(time.Date(2024, 6, 7, 23, 59, 59, 0, time.UTC)))
}

func TestWindowFor_UsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2024, 6, 1, 1, 0, 0, 0, loc) // still May 31 in UTC

	w, err := WindowFor(models.DigestWeekly, now)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 8, 0, 0, 0, 0, loc).Equal(w.Start))
}

func TestWindowFor_UnknownType(t *testing.T) {
	_, err := WindowFor(models.DigestType("daily"), date(2024, 1, 1))
	assert.Error(t, err)
}
