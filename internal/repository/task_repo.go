package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const taskColumns = `
	id, starter_id, entity_id, template_id, task_type, title, description, status, priority,
	due_date, assignee_id, created_by, completed_by, completed_at, completion_notes,
	created_at, updated_at
`

// taskRepo is the concrete implementation of TaskRepository
type taskRepo struct {
	db *database.DB
}

// NewTaskRepo creates a new task repository
func NewTaskRepo(db *database.DB) TaskRepository {
	return &taskRepo{db: db}
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.StarterID, &t.EntityID, &t.TemplateID, &t.TaskType, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.DueDate, &t.AssigneeID, &t.CreatedBy, &t.CompletedBy,
		&t.CompletedAt, &t.CompletionNotes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func insertTask(ctx context.Context, q database.Querier, task *models.Task, now time.Time) error {
	query := `
		INSERT INTO tasks (id, starter_id, entity_id, template_id, task_type, title, description,
			status, priority, due_date, assignee_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	_, err := q.ExecContext(ctx, query,
		task.ID, task.StarterID, task.EntityID, task.TemplateID, task.TaskType, task.Title,
		task.Description, task.Status, task.Priority, task.DueDate, task.AssigneeID,
		task.CreatedBy, now,
	)
	if err != nil {
		return err
	}
	task.CreatedAt, task.UpdatedAt = now, now
	return nil
}

// Create inserts a new task
func (r *taskRepo) Create(ctx context.Context, task *models.Task) error {
	return insertTask(ctx, r.db, task, time.Now())
}

// Update writes every mutable field of a task
func (r *taskRepo) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET entity_id = $1, task_type = $2, title = $3, description = $4, status = $5,
			priority = $6, due_date = $7, assignee_id = $8, completed_by = $9, completed_at = $10,
			completion_notes = $11, updated_at = $12
		WHERE id = $13
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		task.EntityID, task.TaskType, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.AssigneeID, task.CompletedBy, task.CompletedAt, task.CompletionNotes,
		now, task.ID,
	)
	if err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID
func (r *taskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// List retrieves the tasks inside scope matching filter
func (r *taskRepo) List(ctx context.Context, scope access.Scope, filter models.TaskFilter) ([]*models.Task, error) {
	var w where
	w.scope("entity_id", scope)
	if filter.StarterID != "" {
		w.add("starter_id = ?", filter.StarterID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.AssigneeID != "" {
		w.add("assignee_id = ?", filter.AssigneeID)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + w.String() + ` ORDER BY due_date NULLS LAST, created_at`
	return r.query(ctx, query, w.args...)
}

// ListOpenByStarter retrieves the tasks of a starter that are not completed
func (r *taskRepo) ListOpenByStarter(ctx context.Context, starterID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE starter_id = $1 AND status <> 'completed' ORDER BY created_at`
	return r.query(ctx, query, starterID)
}

// Count returns the total number of tasks
func (r *taskRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count)
	return count, err
}

func (r *taskRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
