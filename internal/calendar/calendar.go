// Package calendar mirrors room bookings into the rooms' resource calendars.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Event is a booking as seen by the calendar provider
type Event struct {
	CalendarID  string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// Client creates and removes events in an external calendar
type Client interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Validate checks an event before it is sent
func (ev Event) Validate() error {
	if ev.CalendarID == "" {
		return errors.New("calendar id is required")
	}
	if !ev.End.After(ev.Start) {
		return errors.New("event must end after it starts")
	}
	return nil
}

// googleClient is a Client backed by the Google Calendar API
type googleClient struct {
	svc      *gcal.Service
	attempts int
	log      zerolog.Logger
}

// NewGoogle creates a Google Calendar client from service account credentials JSON
func NewGoogle(ctx context.Context, credentialsJSON []byte, attempts int, log zerolog.Logger) (Client, error) {
	svc, err := gcal.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}
	return &googleClient{
		svc:      svc,
		attempts: attempts,
		log:      log.With().Str("component", "calendar").Logger(),
	}, nil
}

// CreateEvent inserts ev into its calendar and returns the provider's event ID
func (c *googleClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}

	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}
	for _, email := range ev.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	var eventID string
	err := c.run(ctx, func() error {
		created, err := c.svc.Events.Insert(ev.CalendarID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		eventID = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}

	c.log.Debug().Str("calendar_id", ev.CalendarID).Str("event_id", eventID).Msg("Calendar event created")
	return eventID, nil
}

// DeleteEvent removes an event; an event that is already gone is not an error
func (c *googleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if eventID == "" {
		return nil
	}
	err := c.run(ctx, func() error {
		err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
		if isGone(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

// run retries fn with backoff but returns as soon as ctx is done
func (c *googleClient) run(ctx context.Context, fn func() error) error {
	retrier := retry.NewRetrier(c.attempts, 100*time.Millisecond, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- retrier.Run(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410)
}

// noopClient is used when calendar sync is disabled; every call succeeds
type noopClient struct{}

// NewNoop returns a Client that accepts every event without contacting a provider
func NewNoop() Client {
	return noopClient{}
}

func (noopClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}
	return "", nil
}

func (noopClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return nil
}
