package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const roomColumns = `id, name, location, capacity, calendar_id, active, created_at, updated_at`

// roomRepo is the concrete implementation of RoomRepository
type roomRepo struct {
	db *database.DB
}

// NewRoomRepo creates a new room repository
func NewRoomRepo(db *database.DB) RoomRepository {
	return &roomRepo{db: db}
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var room models.Room
	err := row.Scan(
		&room.ID, &room.Name, &room.Location, &room.Capacity, &room.CalendarID,
		&room.Active, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts a new room
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	query := `
		INSERT INTO rooms (id, name, location, capacity, calendar_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Location, room.Capacity, room.CalendarID, room.Active, now,
	)
	if err != nil {
		return err
	}
	room.CreatedAt, room.UpdatedAt = now, now
	return nil
}

// Update replaces the mutable fields of a room
func (r *roomRepo) Update(ctx context.Context, room *models.Room) error {
	query := `
		UPDATE rooms SET name = $1, location = $2, capacity = $3, calendar_id = $4, active = $5,
			updated_at = $6
		WHERE id = $7
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		room.Name, room.Location, room.Capacity, room.CalendarID, room.Active, now, room.ID,
	)
	if err != nil {
		return err
	}
	room.UpdatedAt = now
	return nil
}

// GetByID retrieves a room by ID
func (r *roomRepo) GetByID(ctx context.Context, id string) (*models.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return room, err
}

// List retrieves all rooms ordered by name
func (r *roomRepo) List(ctx context.Context) ([]*models.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Delete removes a room along with its cancelled and past bookings
func (r *roomRepo) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE room_id = $1 AND (status = 'cancelled' OR end_at <= NOW())`, id); err != nil {
			return err
		}
		var err error
		deleted, err = rowsAffected(tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id))
		return err
	})
	return deleted, err
}

// Count returns the total number of rooms
func (r *roomRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms").Scan(&count)
	return count, err
}
