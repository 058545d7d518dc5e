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

// taskService is the concrete implementation of TaskService
type taskService struct {
	tasks       repository.TaskRepository
	starters    repository.StarterRepository
	users       repository.UserRepository
	assignments AssignmentService
	audit       *auditor
	loc         *time.Location
	now         func() time.Time
	log         zerolog.Logger
}

func newTaskService(repos *repository.Repositories, assignments AssignmentService, audit *auditor, loc *time.Location, now func() time.Time, log zerolog.Logger) *taskService {
	return &taskService{
		tasks:       repos.Task,
		starters:    repos.Starter,
		users:       repos.User,
		assignments: assignments,
		audit:       audit,
		loc:         loc,
		now:         now,
		log:         log.With().Str("service", "task").Logger(),
	}
}

// List returns the tasks the actor may see
func (s *taskService) List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]*models.Task, error) {
	return s.tasks.List(ctx, access.ViewScope(actor), filter)
}

// Get returns one task the actor may see
func (s *taskService) Get(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(actor, task.EntityID) && !isAssignee(actor, task) {
		return nil, ErrForbidden
	}
	return task, nil
}

// Create adds a task by hand. A task linked to a starter takes the starter's entity;
// without an explicit assignee the resolver picks one.
func (s *taskService) Create(ctx context.Context, actor *models.User, in *models.TaskInput) (*models.Task, error) {
	normalizeTaskInput(in)
	due, err := validation.ValidateTask(in, s.loc)
	if err != nil {
		return nil, err
	}
	if in.Status == models.TaskStatusCompleted {
		return nil, validation.Errors{{Field: "status", Message: "use the complete action to complete a task", Value: in.Status}}
	}

	entityID := in.EntityID
	if in.StarterID != nil {
		starter, err := s.starters.GetByID(ctx, *in.StarterID)
		if err != nil {
			return nil, err
		}
		if starter == nil || !access.CanView(actor, starter.EntityID) {
			return nil, validation.Errors{{Field: "starter_id", Message: "unknown starter", Value: *in.StarterID}}
		}
		entityID = starter.EntityID
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		StarterID:   in.StarterID,
		EntityID:    entityID,
		TaskType:    in.TaskType,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     due,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   &actor.ID,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	allowed, err := s.canCreate(ctx, actor, task)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	if task.AssigneeID == nil {
		assignment, err := s.assignments.Resolve(ctx, task.EntityID, task.TaskType)
		if err != nil {
			return nil, err
		}
		if assignment != nil {
			assignee := assignment.UserID
			task.AssigneeID = &assignee
		}
	} else if err := s.checkAssignee(ctx, *task.AssigneeID); err != nil {
		return nil, err
	}

	err = s.audit.apply(ctx, actor, "task.created", "task", task.ID, map[string]interface{}{
		"starter_id": task.StarterID, "task_type": task.TaskType, "assignee_id": task.AssigneeID,
	}, func(ctx context.Context) error {
		return s.tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Update replaces a task's editable fields. Completion goes through Complete.
func (s *taskService) Update(ctx context.Context, actor *models.User, id string, in *models.TaskInput) (*models.Task, error) {
	normalizeTaskInput(in)
	due, err := validation.ValidateTask(in, s.loc)
	if err != nil {
		return nil, err
	}

	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canMutate(ctx, actor, task)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	if in.Status != "" && in.Status != task.Status {
		if in.Status == models.TaskStatusCompleted {
			return nil, validation.Errors{{Field: "status", Message: "use the complete action to complete a task", Value: in.Status}}
		}
		if task.Status == models.TaskStatusCompleted {
			return nil, validation.Errors{{Field: "status", Message: "use the reopen action to reopen a task", Value: in.Status}}
		}
		task.Status = in.Status
	}
	if in.AssigneeID != nil {
		if err := s.checkAssignee(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
	}

	task.TaskType = in.TaskType
	task.Title = in.Title
	task.Description = in.Description
	if in.Priority != "" {
		task.Priority = in.Priority
	}
	task.DueDate = due
	task.AssigneeID = in.AssigneeID

	err = s.audit.apply(ctx, actor, "task.updated", "task", task.ID, in, func(ctx context.Context) error {
		return s.tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task completed by the actor
func (s *taskService) Complete(ctx context.Context, actor *models.User, id string, notes string) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canMutate(ctx, actor, task)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}
	if task.Status == models.TaskStatusCompleted {
		return nil, conflictf("task is already completed")
	}

	at := s.now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &at
	task.CompletedBy = &actor.ID
	task.CompletionNotes = strings.TrimSpace(notes)

	err = s.audit.apply(ctx, actor, "task.completed", "task", task.ID, map[string]string{
		"notes": task.CompletionNotes,
	}, func(ctx context.Context) error {
		return s.tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("task_id", task.ID).Str("completed_by", actor.ID).Msg("Task completed")
	return task, nil
}

// Reopen moves a completed task back to pending and clears its completion record
func (s *taskService) Reopen(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canMutate(ctx, actor, task)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, conflictf("task is not completed")
	}

	task.Status = models.TaskStatusPending
	task.CompletedAt = nil
	task.CompletedBy = nil
	task.CompletionNotes = ""

	err = s.audit.apply(ctx, actor, "task.reopened", "task", task.ID, nil, func(ctx context.Context) error {
		return s.tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// canMutate allows edit rights on the task's entity, the assignee, or the user
// responsible for the task's (entity, task type)
func (s *taskService) canMutate(ctx context.Context, actor *models.User, task *models.Task) (bool, error) {
	if access.CanEdit(actor, task.EntityID) || isAssignee(actor, task) {
		return true, nil
	}
	if actor == nil {
		return false, nil
	}
	return s.assignments.IsResponsible(ctx, actor.ID, task.EntityID, task.TaskType)
}

// canCreate allows edit rights on the entity or responsibility for its task type.
// The requested assignee grants nothing.
func (s *taskService) canCreate(ctx context.Context, actor *models.User, task *models.Task) (bool, error) {
	if access.CanEdit(actor, task.EntityID) {
		return true, nil
	}
	if actor == nil {
		return false, nil
	}
	return s.assignments.IsResponsible(ctx, actor.ID, task.EntityID, task.TaskType)
}

func (s *taskService) checkAssignee(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return validation.Errors{{Field: "assignee_id", Message: "unknown user", Value: userID}}
	}
	return nil
}

func (s *taskService) load(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

func isAssignee(actor *models.User, task *models.Task) bool {
	return actor != nil && task.AssigneeID != nil && *task.AssigneeID == actor.ID
}

func normalizeTaskInput(in *models.TaskInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.TaskType = strings.TrimSpace(in.TaskType)
	for _, p := range []**string{&in.StarterID, &in.EntityID, &in.AssigneeID, &in.DueDate} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
}
