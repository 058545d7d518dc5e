package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

// entityRepo is the concrete implementation of EntityRepository
type entityRepo struct {
	db *database.DB
}

// NewEntityRepo creates a new entity repository
func NewEntityRepo(db *database.DB) EntityRepository {
	return &entityRepo{db: db}
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var e models.Entity
	var emails pq.StringArray
	if err := row.Scan(&e.ID, &e.Name, &e.Color, &emails, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.NotificationEmails = []string(emails)
	if e.NotificationEmails == nil {
		e.NotificationEmails = []string{}
	}
	return &e, nil
}

// Create inserts a new entity
func (r *entityRepo) Create(ctx context.Context, entity *models.Entity) error {
	query := `
		INSERT INTO entities (id, name, color, notification_emails, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		entity.ID, entity.Name, entity.Color, pq.Array(entity.NotificationEmails), now,
	)
	if err != nil {
		return err
	}
	entity.CreatedAt, entity.UpdatedAt = now, now
	return nil
}

// Update replaces the mutable fields of an entity
func (r *entityRepo) Update(ctx context.Context, entity *models.Entity) error {
	query := `
		UPDATE entities SET name = $1, color = $2, notification_emails = $3, updated_at = $4
		WHERE id = $5
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		entity.Name, entity.Color, pq.Array(entity.NotificationEmails), now, entity.ID,
	)
	if err != nil {
		return err
	}
	entity.UpdatedAt = now
	return nil
}

// GetByID retrieves an entity by ID
func (r *entityRepo) GetByID(ctx context.Context, id string) (*models.Entity, error) {
	query := `SELECT id, name, color, notification_emails, created_at, updated_at FROM entities WHERE id = $1`
	e, err := scanEntity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// List retrieves all entities ordered by name
func (r *entityRepo) List(ctx context.Context) ([]*models.Entity, error) {
	query := `SELECT id, name, color, notification_emails, created_at, updated_at FROM entities ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []*models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Delete removes an entity
func (r *entityRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id))
}

// CountReferences counts starters, tasks and memberships that point at the entity
func (r *entityRepo) CountReferences(ctx context.Context, id string) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM starters WHERE entity_id = $1) +
			(SELECT COUNT(*) FROM tasks WHERE entity_id = $1) +
			(SELECT COUNT(*) FROM memberships WHERE entity_id = $1)
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&count)
	return count, err
}

// Count returns the total number of entities
func (r *entityRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&count)
	return count, err
}
