package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const starterColumns = `
	id, name, COALESCE(email, ''), job_title, department, notes, start_date, week_number, week_year,
	entity_id, is_cancelled, cancelled_at, COALESCE(cancel_reason, ''), cancelled_by, created_by,
	created_at, updated_at
`

// starterRepo is the concrete implementation of StarterRepository
type starterRepo struct {
	db *database.DB
}

// NewStarterRepo creates a new starter repository
func NewStarterRepo(db *database.DB) StarterRepository {
	return &starterRepo{db: db}
}

func scanStarter(row rowScanner) (*models.Starter, error) {
	var s models.Starter
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.JobTitle, &s.Department, &s.Notes, &s.StartDate,
		&s.WeekNumber, &s.WeekYear, &s.EntityID, &s.IsCancelled, &s.CancelledAt,
		&s.CancelReason, &s.CancelledBy, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a starter together with its generated tasks in one transaction
func (r *starterRepo) Create(ctx context.Context, starter *models.Starter, tasks []*models.Task) error {
	now := time.Now()
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO starters (id, name, email, job_title, department, notes, start_date,
				week_number, week_year, entity_id, created_by, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		`
		_, err := tx.ExecContext(ctx, query,
			starter.ID, starter.Name, starter.Email, starter.JobTitle, starter.Department,
			starter.Notes, starter.StartDate, starter.WeekNumber, starter.WeekYear,
			starter.EntityID, starter.CreatedBy, now,
		)
		if err != nil {
			return err
		}
		starter.CreatedAt, starter.UpdatedAt = now, now

		for _, task := range tasks {
			if err := insertTask(ctx, tx, task, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update replaces the editable fields of a starter. Its tasks follow it to its entity
// in the same transaction.
func (r *starterRepo) Update(ctx context.Context, starter *models.Starter) error {
	now := time.Now()
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE starters SET name = $1, email = NULLIF($2, ''), job_title = $3, department = $4,
				notes = $5, start_date = $6, week_number = $7, week_year = $8, entity_id = $9,
				updated_at = $10
			WHERE id = $11
		`
		_, err := tx.ExecContext(ctx, query,
			starter.Name, starter.Email, starter.JobTitle, starter.Department, starter.Notes,
			starter.StartDate, starter.WeekNumber, starter.WeekYear, starter.EntityID, now, starter.ID,
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET entity_id = $1, updated_at = $2
			WHERE starter_id = $3 AND entity_id IS DISTINCT FROM $1
		`, starter.EntityID, now, starter.ID)
		return err
	})
	if err != nil {
		return err
	}
	starter.UpdatedAt = now
	return nil
}

// GetByID retrieves a starter by ID
func (r *starterRepo) GetByID(ctx context.Context, id string) (*models.Starter, error) {
	s, err := scanStarter(r.db.QueryRowContext(ctx, `SELECT `+starterColumns+` FROM starters WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// List retrieves the starters inside scope matching filter, ordered by start date
func (r *starterRepo) List(ctx context.Context, scope access.Scope, filter models.StarterFilter) ([]*models.Starter, error) {
	var w where
	w.scope("entity_id", scope)
	if filter.EntityID != "" {
		w.add("entity_id = ?", filter.EntityID)
	}
	if filter.From != nil {
		w.add("start_date >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("start_date < ?", *filter.To)
	}
	if !filter.IncludeCancelled {
		w.raw("is_cancelled = FALSE")
	}

	return r.query(ctx, `SELECT `+starterColumns+` FROM starters`+w.String()+` ORDER BY start_date, name`, w.args...)
}

// ListInWindow retrieves non-cancelled starters with an entity whose start date is in [start, end)
func (r *starterRepo) ListInWindow(ctx context.Context, start, end time.Time) ([]*models.Starter, error) {
	query := `
		SELECT ` + starterColumns + ` FROM starters
		WHERE is_cancelled = FALSE AND entity_id IS NOT NULL
			AND start_date >= $1 AND start_date < $2
		ORDER BY start_date, name
	`
	return r.query(ctx, query, start, end)
}

// Cancel soft-cancels a starter that is not already cancelled
func (r *starterRepo) Cancel(ctx context.Context, starter *models.Starter) (bool, error) {
	query := `
		UPDATE starters SET is_cancelled = TRUE, cancelled_at = $1, cancel_reason = $2,
			cancelled_by = $3, updated_at = $1
		WHERE id = $4 AND is_cancelled = FALSE
	`
	return rowsAffected(r.db.ExecContext(ctx, query,
		starter.CancelledAt, starter.CancelReason, starter.CancelledBy, starter.ID,
	))
}

// Delete hard-deletes a starter; its tasks cascade
func (r *starterRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM starters WHERE id = $1`, id))
}

// Count returns the total number of starters
func (r *starterRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM starters").Scan(&count)
	return count, err
}

func (r *starterRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Starter, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	starters := []*models.Starter{}
	for rows.Next() {
		s, err := scanStarter(rows)
		if err != nil {
			return nil, err
		}
		starters = append(starters, s)
	}
	return starters, rows.Err()
}
