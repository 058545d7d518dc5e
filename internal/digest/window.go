package digest

import (
	"fmt"
	"time"

	"github.com/onboarding-booking-api/internal/models"
)

// Window is a half-open date range [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowFor computes the window a digest of type dt covers when run on the day of now.
// The day boundary is taken in now's location.
func WindowFor(dt models.DigestType, now time.Time) (Window, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch dt {
	case models.DigestWeekly:
		// exactly one week out
		return Window{Start: today.AddDate(0, 0, 7), End: today.AddDate(0, 0, 8)}, nil
	case models.DigestMonthly:
		thisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: thisMonth.AddDate(0, -1, 0), End: thisMonth}, nil
	case models.DigestQuarterly:
		firstMonth := time.Month((int(today.Month())-1)/3*3 + 1)
		thisQuarter := time.Date(today.Year(), firstMonth, 1, 0, 0, 0, 0, loc)
		return Window{Start: thisQuarter.AddDate(0, -3, 0), End: thisQuarter}, nil
	case models.DigestYearly:
		thisYear := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Window{Start: thisYear.AddDate(-1, 0, 0), End: thisYear}, nil
	}
	return Window{}, fmt.Errorf("unknown digest type %q", dt)
}
