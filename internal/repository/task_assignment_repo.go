package repository

import (
	"context"
	"database/sql"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const assignmentColumns = `id, entity_id, task_type, user_id, created_at, updated_at`

// taskAssignmentRepo is the concrete implementation of TaskAssignmentRepository
type taskAssignmentRepo struct {
	db *database.DB
}

// NewTaskAssignmentRepo creates a new task assignment repository
func NewTaskAssignmentRepo(db *database.DB) TaskAssignmentRepository {
	return &taskAssignmentRepo{db: db}
}

func scanAssignment(row rowScanner) (*models.TaskAssignment, error) {
	var a models.TaskAssignment
	if err := row.Scan(&a.ID, &a.EntityID, &a.TaskType, &a.UserID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Set makes a.UserID responsible for (a.EntityID, a.TaskType), replacing any previous assignee.
// The conflict target is the partial unique index matching the row's kind.
// The stored id and timestamps are written back into a.
func (r *taskAssignmentRepo) Set(ctx context.Context, a *models.TaskAssignment) error {
	conflict := `(entity_id, task_type) WHERE entity_id IS NOT NULL`
	if a.EntityID == nil {
		conflict = `(task_type) WHERE entity_id IS NULL`
	}
	query := `
		INSERT INTO task_assignments (id, entity_id, task_type, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT ` + conflict + ` DO UPDATE SET
			user_id = EXCLUDED.user_id,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, a.ID, a.EntityID, a.TaskType, a.UserID).Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt,
	)
}

// GetByID retrieves a task assignment by ID
func (r *taskAssignmentRepo) GetByID(ctx context.Context, id string) (*models.TaskAssignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM task_assignments WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// Candidates returns the assignment for (entityID, taskType) and the global one for taskType, if present
func (r *taskAssignmentRepo) Candidates(ctx context.Context, entityID *string, taskType string) ([]*models.TaskAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM task_assignments
		WHERE task_type = $1 AND (entity_id IS NULL OR entity_id = $2)
	`
	return r.query(ctx, query, taskType, entityID)
}

// List retrieves all task assignments
func (r *taskAssignmentRepo) List(ctx context.Context) ([]*models.TaskAssignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM task_assignments ORDER BY task_type, entity_id NULLS FIRST`)
}

// Delete removes a task assignment
func (r *taskAssignmentRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM task_assignments WHERE id = $1`, id))
}

func (r *taskAssignmentRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.TaskAssignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*models.TaskAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
