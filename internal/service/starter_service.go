package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// starterService is the concrete implementation of StarterService
type starterService struct {
	starters    repository.StarterRepository
	tasks       repository.TaskRepository
	templates   repository.TaskTemplateRepository
	entities    repository.EntityRepository
	assignments AssignmentService
	notify      *notifier
	audit       *auditor
	loc         *time.Location
	now         func() time.Time
	log         zerolog.Logger
}

func newStarterService(repos *repository.Repositories, assignments AssignmentService, notify *notifier, audit *auditor, loc *time.Location, now func() time.Time, log zerolog.Logger) *starterService {
	return &starterService{
		starters:    repos.Starter,
		tasks:       repos.Task,
		templates:   repos.TaskTemplate,
		entities:    repos.Entity,
		assignments: assignments,
		notify:      notify,
		audit:       audit,
		loc:         loc,
		now:         now,
		log:         log.With().Str("service", "starter").Logger(),
	}
}

// List returns the starters the actor may see
func (s *starterService) List(ctx context.Context, actor *models.User, filter models.StarterFilter) ([]*models.Starter, error) {
	return s.starters.List(ctx, access.ViewScope(actor), filter)
}

// Get returns one starter the actor may see
func (s *starterService) Get(ctx context.Context, actor *models.User, id string) (*models.Starter, error) {
	starter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(actor, starter.EntityID) {
		return nil, ErrForbidden
	}
	return starter, nil
}

// Create adds a starter, expands the matching task templates into assigned tasks,
// and announces the starter to the entity and the assignees
func (s *starterService) Create(ctx context.Context, actor *models.User, in *models.StarterInput) (*models.Starter, []*models.Task, error) {
	normalizeStarterInput(in)
	start, err := validation.ValidateStarter(in, s.loc)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanEdit(actor, in.EntityID) {
		return nil, nil, ErrForbidden
	}
	entity, err := s.entityFor(ctx, in.EntityID)
	if err != nil {
		return nil, nil, err
	}

	starter := &models.Starter{
		ID:         uuid.New().String(),
		Name:       in.Name,
		Email:      in.Email,
		JobTitle:   in.JobTitle,
		Department: in.Department,
		Notes:      in.Notes,
		EntityID:   in.EntityID,
		CreatedBy:  &actor.ID,
	}
	starter.SetStartDate(start)

	tasks, err := s.generateTasks(ctx, actor, starter)
	if err != nil {
		return nil, nil, err
	}
	err = s.audit.apply(ctx, actor, "starter.created", "starter", starter.ID, map[string]interface{}{
		"name": starter.Name, "entity_id": starter.EntityID, "start_date": starter.StartDate, "tasks": len(tasks),
	}, func(ctx context.Context) error {
		return s.starters.Create(ctx, starter, tasks)
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("starter_id", starter.ID).
		Int("tasks", len(tasks)).
		Msg("Starter created")

	s.notify.starterCreated(ctx, starter, entity, tasks)
	return starter, tasks, nil
}

// generateTasks expands the active templates for the starter's entity. Each task is
// assigned through the resolver and due relative to the start date.
func (s *starterService) generateTasks(ctx context.Context, actor *models.User, starter *models.Starter) ([]*models.Task, error) {
	templates, err := s.templates.ListActiveFor(ctx, starter.EntityID)
	if err != nil {
		return nil, err
	}

	// An entity template overrides the global template of the same type
	byType := make(map[string]*models.TaskTemplate, len(templates))
	order := make([]string, 0, len(templates))
	for _, tpl := range templates {
		existing, ok := byType[tpl.TaskType]
		if !ok {
			order = append(order, tpl.TaskType)
		}
		if !ok || (existing.EntityID == nil && tpl.EntityID != nil) {
			byType[tpl.TaskType] = tpl
		}
	}

	tasks := make([]*models.Task, 0, len(order))
	for _, taskType := range order {
		tpl := byType[taskType]
		task := &models.Task{
			ID:          uuid.New().String(),
			StarterID:   &starter.ID,
			EntityID:    starter.EntityID,
			TemplateID:  &tpl.ID,
			TaskType:    tpl.TaskType,
			Title:       tpl.Title,
			Description: tpl.Description,
			Status:      models.TaskStatusPending,
			Priority:    tpl.Priority,
			CreatedBy:   &actor.ID,
		}
		if task.Priority == "" {
			task.Priority = models.PriorityMedium
		}
		if tpl.DueOffsetDays != nil {
			due := starter.StartDate.AddDate(0, 0, *tpl.DueOffsetDays)
			task.DueDate = &due
		}

		assignment, err := s.assignments.Resolve(ctx, starter.EntityID, tpl.TaskType)
		if err != nil {
			return nil, err
		}
		if assignment != nil {
			assignee := assignment.UserID
			task.AssigneeID = &assignee
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update replaces a starter's editable fields. Moving a starter to another entity
// needs edit rights on both entities.
func (s *starterService) Update(ctx context.Context, actor *models.User, id string, in *models.StarterInput) (*models.Starter, error) {
	normalizeStarterInput(in)
	start, err := validation.ValidateStarter(in, s.loc)
	if err != nil {
		return nil, err
	}

	starter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit(actor, starter.EntityID) || !access.CanEdit(actor, in.EntityID) {
		return nil, ErrForbidden
	}
	if starter.IsCancelled {
		return nil, conflictf("starter is cancelled")
	}
	if _, err := s.entityFor(ctx, in.EntityID); err != nil {
		return nil, err
	}

	starter.Name = in.Name
	starter.Email = in.Email
	starter.JobTitle = in.JobTitle
	starter.Department = in.Department
	starter.Notes = in.Notes
	starter.EntityID = in.EntityID
	starter.SetStartDate(start)

	err = s.audit.apply(ctx, actor, "starter.updated", "starter", starter.ID, in, func(ctx context.Context) error {
		return s.starters.Update(ctx, starter)
	})
	if err != nil {
		return nil, err
	}
	return starter, nil
}

// Cancel soft-cancels a starter and notifies the entity and the owners of open tasks
func (s *starterService) Cancel(ctx context.Context, actor *models.User, id string, reason string) (*models.Starter, error) {
	starter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit(actor, starter.EntityID) {
		return nil, ErrForbidden
	}
	if starter.IsCancelled {
		return nil, conflictf("starter is already cancelled")
	}

	at := s.now()
	starter.IsCancelled = true
	starter.CancelledAt = &at
	starter.CancelReason = strings.TrimSpace(reason)
	starter.CancelledBy = &actor.ID

	err = s.audit.apply(ctx, actor, "starter.cancelled", "starter", starter.ID, map[string]string{
		"reason": starter.CancelReason,
	}, func(ctx context.Context) error {
		ok, err := s.starters.Cancel(ctx, starter)
		if err != nil {
			return err
		}
		if !ok {
			return conflictf("starter is already cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("starter_id", starter.ID).Msg("Starter cancelled")

	entity, err := s.entityFor(ctx, starter.EntityID)
	if err != nil {
		s.log.Warn().Err(err).Str("starter_id", starter.ID).Msg("Failed to load entity for cancellation email")
	}
	open, err := s.tasks.ListOpenByStarter(ctx, starter.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("starter_id", starter.ID).Msg("Failed to load open tasks for cancellation email")
	}
	s.notify.starterCancelled(ctx, starter, entity, open)

	return starter, nil
}

// Delete hard-deletes a starter and its tasks; admin only
func (s *starterService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	return s.audit.apply(ctx, actor, "starter.deleted", "starter", id, nil, func(ctx context.Context) error {
		deleted, err := s.starters.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

func (s *starterService) load(ctx context.Context, id string) (*models.Starter, error) {
	starter, err := s.starters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if starter == nil {
		return nil, ErrNotFound
	}
	return starter, nil
}

// entityFor loads the referenced entity; a dangling reference is a validation error
func (s *starterService) entityFor(ctx context.Context, entityID *string) (*models.Entity, error) {
	if entityID == nil {
		return nil, nil
	}
	entity, err := s.entities.GetByID(ctx, *entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, validation.Errors{{Field: "entity_id", Message: "unknown entity", Value: *entityID}}
	}
	return entity, nil
}

func normalizeStarterInput(in *models.StarterInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.EntityID != nil && *in.EntityID == "" {
		in.EntityID = nil
	}
}
