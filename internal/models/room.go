package models

import (
	"time"
)

// Room is a bookable meeting room backed by a resource calendar
type Room struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Location   string    `json:"location" db:"location"`
	Capacity   int       `json:"capacity" db:"capacity"`
	CalendarID string    `json:"calendar_id" db:"calendar_id"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking reserves a room for the half-open interval [StartAt, EndAt)
type Booking struct {
	ID              string        `json:"id" db:"id"`
	RoomID          string        `json:"room_id" db:"room_id"`
	OrganizerID     string        `json:"organizer_id" db:"organizer_id"`
	Title           string        `json:"title" db:"title"`
	StartAt         time.Time     `json:"start_at" db:"start_at"`
	EndAt           time.Time     `json:"end_at" db:"end_at"`
	Status          BookingStatus `json:"status" db:"status"`
	ExternalEventID string        `json:"external_event_id,omitempty" db:"external_event_id"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether two half-open intervals intersect
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// BookingFilter narrows booking listings
type BookingFilter struct {
	RoomID string     `schema:"room_id"`
	From   *time.Time `schema:"-"`
	To     *time.Time `schema:"-"`
}
