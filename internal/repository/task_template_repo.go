package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const templateColumns = `id, entity_id, task_type, title, description, priority, due_offset_days, active, created_at, updated_at`

// taskTemplateRepo is the concrete implementation of TaskTemplateRepository
type taskTemplateRepo struct {
	db *database.DB
}

// NewTaskTemplateRepo creates a new task template repository
func NewTaskTemplateRepo(db *database.DB) TaskTemplateRepository {
	return &taskTemplateRepo{db: db}
}

func scanTemplate(row rowScanner) (*models.TaskTemplate, error) {
	var t models.TaskTemplate
	err := row.Scan(
		&t.ID, &t.EntityID, &t.TaskType, &t.Title, &t.Description, &t.Priority,
		&t.DueOffsetDays, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new task template
func (r *taskTemplateRepo) Create(ctx context.Context, tpl *models.TaskTemplate) error {
	query := `
		INSERT INTO task_templates (id, entity_id, task_type, title, description, priority,
			due_offset_days, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		tpl.ID, tpl.EntityID, tpl.TaskType, tpl.Title, tpl.Description, tpl.Priority,
		tpl.DueOffsetDays, tpl.Active, now,
	)
	if err != nil {
		return err
	}
	tpl.CreatedAt, tpl.UpdatedAt = now, now
	return nil
}

// Update replaces the mutable fields of a task template
func (r *taskTemplateRepo) Update(ctx context.Context, tpl *models.TaskTemplate) error {
	query := `
		UPDATE task_templates SET entity_id = $1, task_type = $2, title = $3, description = $4,
			priority = $5, due_offset_days = $6, active = $7, updated_at = $8
		WHERE id = $9
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		tpl.EntityID, tpl.TaskType, tpl.Title, tpl.Description, tpl.Priority,
		tpl.DueOffsetDays, tpl.Active, now, tpl.ID,
	)
	if err != nil {
		return err
	}
	tpl.UpdatedAt = now
	return nil
}

// GetByID retrieves a task template by ID
func (r *taskTemplateRepo) GetByID(ctx context.Context, id string) (*models.TaskTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM task_templates WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// List retrieves all task templates
func (r *taskTemplateRepo) List(ctx context.Context) ([]*models.TaskTemplate, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM task_templates ORDER BY task_type, entity_id NULLS FIRST`)
}

// ListActiveFor retrieves the active templates that apply to a starter of entityID:
// the global templates plus, when entityID is set, that entity's own
func (r *taskTemplateRepo) ListActiveFor(ctx context.Context, entityID *string) ([]*models.TaskTemplate, error) {
	query := `
		SELECT ` + templateColumns + ` FROM task_templates
		WHERE active AND (entity_id IS NULL OR entity_id = $1)
		ORDER BY task_type, entity_id NULLS FIRST
	`
	return r.query(ctx, query, entityID)
}

// Delete removes a task template; generated tasks keep their data
func (r *taskTemplateRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM task_templates WHERE id = $1`, id))
}

func (r *taskTemplateRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.TaskTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []*models.TaskTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
