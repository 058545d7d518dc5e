package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
)

// roomService is the concrete implementation of RoomService
type roomService struct {
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
	audit    *auditor
	now      func() time.Time
}

func newRoomService(repos *repository.Repositories, audit *auditor, now func() time.Time) *roomService {
	return &roomService{rooms: repos.Room, bookings: repos.Booking, audit: audit, now: now}
}

// List returns every room
func (s *roomService) List(ctx context.Context) ([]*models.Room, error) {
	return s.rooms.List(ctx)
}

// Get returns one room
func (s *roomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrNotFound
	}
	return room, nil
}

// Create adds a room; admin only
func (s *roomService) Create(ctx context.Context, actor *models.User, in *models.RoomInput) (*models.Room, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeRoomInput(in)
	if err := validation.ValidateRoom(in); err != nil {
		return nil, err
	}

	room := &models.Room{ID: uuid.New().String(), Active: true}
	applyRoomInput(room, in)

	if err := s.audit.apply(ctx, actor, "room.created", "room", room.ID, in, func(ctx context.Context) error {
		return s.rooms.Create(ctx, room)
	}); err != nil {
		return nil, err
	}
	return room, nil
}

// Update replaces a room's fields; admin only
func (s *roomService) Update(ctx context.Context, actor *models.User, id string, in *models.RoomInput) (*models.Room, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeRoomInput(in)
	if err := validation.ValidateRoom(in); err != nil {
		return nil, err
	}

	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyRoomInput(room, in)

	if err := s.audit.apply(ctx, actor, "room.updated", "room", room.ID, in, func(ctx context.Context) error {
		return s.rooms.Update(ctx, room)
	}); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes a room. Rooms with pending or confirmed bookings that have not ended
// are blocked. Admin only.
func (s *roomService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	active, err := s.bookings.CountActive(ctx, id, s.now())
	if err != nil {
		return err
	}
	if active > 0 {
		return &BlockedError{Resource: "room", Blocking: active}
	}

	return s.audit.apply(ctx, actor, "room.deleted", "room", id, nil, func(ctx context.Context) error {
		deleted, err := s.rooms.Delete(ctx, id)
		if database.IsForeignKeyViolation(err) {
			return conflictf("room %s gained a booking while being deleted", id)
		}
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

// Availability returns the confirmed bookings of a room intersecting [from, to)
func (s *roomService) Availability(ctx context.Context, id string, from, to time.Time) ([]*models.Booking, error) {
	if !to.After(from) {
		return nil, validation.Errors{{Field: "to", Message: "to must be after from", Value: to.Format(time.RFC3339)}}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.bookings.ListConfirmed(ctx, id, from, to)
}

func normalizeRoomInput(in *models.RoomInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.CalendarID = strings.TrimSpace(in.CalendarID)
}

func applyRoomInput(room *models.Room, in *models.RoomInput) {
	room.Name = in.Name
	room.Location = in.Location
	room.Capacity = in.Capacity
	room.CalendarID = in.CalendarID
	if in.Active != nil {
		room.Active = *in.Active
	}
}
