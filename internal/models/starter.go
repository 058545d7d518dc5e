package models

import (
	"time"
)

// Starter is a new-hire record tracked through onboarding
type Starter struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email,omitempty" db:"email"`
	JobTitle     string     `json:"job_title" db:"job_title"`
	Department   string     `json:"department" db:"department"`
	Notes        string     `json:"notes" db:"notes"`
	StartDate    time.Time  `json:"start_date" db:"start_date"`
	WeekNumber   int        `json:"week_number" db:"week_number"`
	WeekYear     int        `json:"week_year" db:"week_year"`
	EntityID     *string    `json:"entity_id" db:"entity_id"`
	IsCancelled  bool       `json:"is_cancelled" db:"is_cancelled"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason string     `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledBy  *string    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CreatedBy    *string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// SetStartDate stores the start date and its derived ISO week
func (s *Starter) SetStartDate(t time.Time) {
	s.StartDate = t
	s.WeekYear, s.WeekNumber = t.ISOWeek()
}

// StarterFilter narrows starter listings
type StarterFilter struct {
	EntityID         string     `schema:"entity_id"`
	From             *time.Time `schema:"-"`
	To               *time.Time `schema:"-"`
	IncludeCancelled bool       `schema:"include_cancelled"`
}
