package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/calendar"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// compensationTimeout bounds the cleanup calls made after a failed booking
const compensationTimeout = 10 * time.Second

// bookingService is the concrete implementation of BookingService
type bookingService struct {
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
	calendar calendar.Client
	settings SettingsService
	audit    *auditor
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func newBookingService(repos *repository.Repositories, cal calendar.Client, settings SettingsService, audit *auditor, timeout time.Duration, now func() time.Time, log zerolog.Logger) *bookingService {
	return &bookingService{
		rooms:    repos.Room,
		bookings: repos.Booking,
		calendar: cal,
		settings: settings,
		audit:    audit,
		timeout:  timeout,
		now:      now,
		log:      log.With().Str("service", "booking").Logger(),
	}
}

// List returns bookings matching filter
func (s *bookingService) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	return s.bookings.List(ctx, filter)
}

// Create books a room. The booking is inserted as pending under the room lock, mirrored
// to the room's calendar, then confirmed. A calendar failure or timeout removes the
// pending row; losing the confirm race removes both the row and the calendar event.
func (s *bookingService) Create(ctx context.Context, actor *models.User, in *models.BookingInput) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	maxDuration := time.Duration(snap.Int(SettingBookingMaxHrs)) * time.Hour

	start, end, err := validation.ValidateBooking(in, maxDuration)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if !room.Active {
		return nil, conflictf("room %s is not active", room.Name)
	}

	b := &models.Booking{
		ID:          uuid.New().String(),
		RoomID:      room.ID,
		OrganizerID: actor.ID,
		Title:       in.Title,
		StartAt:     start,
		EndAt:       end,
	}
	span.SetAttributes(
		attribute.String("booking.id", b.ID),
		attribute.String("room.id", room.ID),
	)

	if err := s.bookings.CreatePending(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, ErrUnavailable
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	var eventID string
	if room.CalendarID != "" {
		calCtx, cancel := context.WithTimeout(ctx, s.timeout)
		eventID, err = s.calendar.CreateEvent(calCtx, calendar.Event{
			CalendarID:  room.CalendarID,
			Summary:     b.Title,
			Description: fmt.Sprintf("Booked by %s", actor.Name),
			Start:       b.StartAt,
			End:         b.EndAt,
			Attendees:   []string{actor.Email},
		})
		cancel()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "calendar sync failed")
			s.log.Error().Err(err).
				Str("booking_id", b.ID).
				Str("room_id", room.ID).
				Msg("Calendar sync failed, removing pending booking")
			s.compensate(ctx, b.ID, room.CalendarID, "")
			return nil, fmt.Errorf("%w: %v", ErrCalendarSync, err)
		}
	}

	err = s.audit.apply(ctx, actor, "booking.created", "booking", b.ID, map[string]interface{}{
		"room_id": b.RoomID, "start_at": b.StartAt, "end_at": b.EndAt,
	}, func(ctx context.Context) error {
		return s.bookings.Confirm(ctx, b.ID, eventID)
	})
	if err != nil {
		s.compensate(ctx, b.ID, room.CalendarID, eventID)
		if errors.Is(err, repository.ErrOverlap) {
			s.log.Info().Str("booking_id", b.ID).Str("room_id", room.ID).Msg("Booking lost the confirm race")
			return nil, ErrUnavailable
		}
		return nil, err
	}
	b.Status = models.BookingConfirmed
	b.ExternalEventID = eventID

	s.log.Info().
		Str("booking_id", b.ID).
		Str("room_id", room.ID).
		Time("start_at", b.StartAt).
		Time("end_at", b.EndAt).
		Msg("Booking confirmed")

	return b, nil
}

// compensate undoes a half-made booking. It runs detached from the request so a
// cancelled request still cleans up.
func (s *bookingService) compensate(ctx context.Context, bookingID, calendarID, eventID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.bookings.DeletePending(ctx, bookingID); err != nil {
		s.log.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to delete pending booking")
	}
	if eventID != "" {
		if err := s.calendar.DeleteEvent(ctx, calendarID, eventID); err != nil {
			s.log.Error().Err(err).Str("booking_id", bookingID).Str("event_id", eventID).Msg("Failed to delete calendar event")
		}
	}
}

// Cancel cancels a booking; only the organizer or an admin may do so.
// Removing the calendar event is best effort.
func (s *bookingService) Cancel(ctx context.Context, actor *models.User, id string) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.OrganizerID != actor.ID && !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if b.Status == models.BookingCancelled {
		return nil, conflictf("booking is already cancelled")
	}

	err = s.audit.apply(ctx, actor, "booking.cancelled", "booking", b.ID, nil, func(ctx context.Context) error {
		ok, err := s.bookings.Cancel(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return conflictf("booking is already cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingCancelled

	if b.ExternalEventID != "" {
		room, err := s.rooms.GetByID(ctx, b.RoomID)
		if err == nil && room != nil {
			calCtx, cancel := context.WithTimeout(ctx, s.timeout)
			err = s.calendar.DeleteEvent(calCtx, room.CalendarID, b.ExternalEventID)
			cancel()
		}
		if err != nil {
			s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("Failed to remove calendar event for cancelled booking")
		}
	}
	return b, nil
}
