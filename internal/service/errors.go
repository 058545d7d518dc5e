package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when credentials or a session are missing or invalid
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when an authenticated user may not perform an operation
	ErrForbidden = errors.New("not permitted")
	// ErrConflict is returned when an operation clashes with the current state
	ErrConflict = errors.New("conflict")
	// ErrUnavailable is returned when a room is already booked for the requested time
	ErrUnavailable = errors.New("room is not available for the requested time")
	// ErrCalendarSync is returned when the external calendar rejected or timed out a booking
	ErrCalendarSync = errors.New("calendar sync failed")
)

// BlockedError is returned when a delete is refused because other records reference the target
type BlockedError struct {
	Resource string
	Blocking int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s is referenced by %d record(s)", e.Resource, e.Blocking)
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}
