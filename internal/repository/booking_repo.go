package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const bookingColumns = `
	id, room_id, organizer_id, title, start_at, end_at, status, COALESCE(external_event_id, ''),
	created_at, updated_at
`

// bookingRepo is the concrete implementation of BookingRepository
type bookingRepo struct {
	db *database.DB
}

// NewBookingRepo creates a new booking repository
func NewBookingRepo(db *database.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.RoomID, &b.OrganizerID, &b.Title, &b.StartAt, &b.EndAt, &b.Status,
		&b.ExternalEventID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// lockRoom takes the per-room write lock for the rest of tx
func lockRoom(ctx context.Context, tx *sql.Tx, roomID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrRoomNotFound
	}
	return err
}

// confirmedOverlaps counts confirmed bookings of roomID intersecting [start, end), ignoring excludeID
func confirmedOverlaps(ctx context.Context, tx *sql.Tx, roomID string, start, end time.Time, excludeID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE room_id = $1 AND status = 'confirmed'
			AND start_at < $3 AND end_at > $2
			AND id::text <> $4
	`
	var count int
	err := tx.QueryRowContext(ctx, query, roomID, start, end, excludeID).Scan(&count)
	return count, err
}

// CreatePending inserts b as pending if no confirmed booking of the room overlaps it.
// The room row is locked for the duration of the check and insert.
func (r *bookingRepo) CreatePending(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockRoom(ctx, tx, b.RoomID); err != nil {
			return err
		}

		n, err := confirmedOverlaps(ctx, tx, b.RoomID, b.StartAt, b.EndAt, "")
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrOverlap
		}

		query := `
			INSERT INTO bookings (id, room_id, organizer_id, title, start_at, end_at, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $7)
		`
		_, err = tx.ExecContext(ctx, query, b.ID, b.RoomID, b.OrganizerID, b.Title, b.StartAt, b.EndAt, now)
		if err != nil {
			return err
		}
		b.Status = models.BookingPending
		b.CreatedAt, b.UpdatedAt = now, now
		return nil
	})
}

// Confirm moves a pending booking to confirmed under the room lock, re-checking overlaps
// against bookings confirmed since it was created
func (r *bookingRepo) Confirm(ctx context.Context, id, externalEventID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var roomID string
		var start, end time.Time
		var status models.BookingStatus
		err := tx.QueryRowContext(ctx,
			`SELECT room_id, start_at, end_at, status FROM bookings WHERE id = $1`, id,
		).Scan(&roomID, &start, &end, &status)
		if err == sql.ErrNoRows {
			return ErrNotPending
		}
		if err != nil {
			return err
		}

		if err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}

		n, err := confirmedOverlaps(ctx, tx, roomID, start, end, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrOverlap
		}

		ok, err := rowsAffected(tx.ExecContext(ctx, `
			UPDATE bookings SET status = 'confirmed', external_event_id = NULLIF($1, ''), updated_at = NOW()
			WHERE id = $2 AND status = 'pending'
		`, externalEventID, id))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPending
		}
		return nil
	})
}

// DeletePending removes a booking that never got confirmed
func (r *bookingRepo) DeletePending(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1 AND status = 'pending'`, id)
	return err
}

// Cancel marks a booking cancelled; false if it was already cancelled or missing
func (r *bookingRepo) Cancel(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', updated_at = NOW() WHERE id = $1 AND status <> 'cancelled'`, id,
	))
}

// GetByID retrieves a booking by ID
func (r *bookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// List retrieves bookings matching filter ordered by start
func (r *bookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var w where
	if filter.RoomID != "" {
		w.add("room_id = ?", filter.RoomID)
	}
	if filter.From != nil {
		w.add("end_at > ?", *filter.From)
	}
	if filter.To != nil {
		w.add("start_at < ?", *filter.To)
	}
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings`+w.String()+` ORDER BY start_at`, w.args...)
}

// ListConfirmed retrieves the confirmed bookings of a room intersecting [from, to)
func (r *bookingRepo) ListConfirmed(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE room_id = $1 AND status = 'confirmed' AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`
	return r.query(ctx, query, roomID, from, to)
}

// CountActive counts pending or confirmed bookings of a room that have not ended by now
func (r *bookingRepo) CountActive(ctx context.Context, roomID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE room_id = $1 AND status IN ('pending', 'confirmed') AND end_at > $2
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, roomID, now).Scan(&count)
	return count, err
}

// Count returns the total number of bookings
func (r *bookingRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&count)
	return count, err
}

func (r *bookingRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
