package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// ResolveAssignment picks the responsible assignment for (entityID, taskType) from rows:
// the entity-specific row if present, otherwise the global row, otherwise nil
func ResolveAssignment(rows []*models.TaskAssignment, entityID *string, taskType string) *models.TaskAssignment {
	var global *models.TaskAssignment
	for _, a := range rows {
		if a.TaskType != taskType {
			continue
		}
		switch {
		case a.EntityID == nil:
			global = a
		case entityID != nil && *a.EntityID == *entityID:
			return a
		}
	}
	return global
}

// assignmentService is the concrete implementation of AssignmentService
type assignmentService struct {
	assignments repository.TaskAssignmentRepository
	entities    repository.EntityRepository
	users       repository.UserRepository
	audit       *auditor
	log         zerolog.Logger
}

func newAssignmentService(repos *repository.Repositories, audit *auditor, log zerolog.Logger) *assignmentService {
	return &assignmentService{
		assignments: repos.TaskAssignment,
		entities:    repos.Entity,
		users:       repos.User,
		audit:       audit,
		log:         log.With().Str("service", "assignment").Logger(),
	}
}

// List returns every assignment
func (s *assignmentService) List(ctx context.Context, actor *models.User) ([]*models.TaskAssignment, error) {
	return s.assignments.List(ctx)
}

// Set makes a user responsible for (entity, task type), replacing any previous assignee; admin only
func (s *assignmentService) Set(ctx context.Context, actor *models.User, in *models.AssignmentInput) (*models.TaskAssignment, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if in.EntityID != nil && *in.EntityID == "" {
		in.EntityID = nil
	}
	if err := validation.ValidateAssignment(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, validation.Errors{{Field: "user_id", Message: "unknown user", Value: in.UserID}}
	}
	if in.EntityID != nil {
		entity, err := s.entities.GetByID(ctx, *in.EntityID)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			return nil, validation.Errors{{Field: "entity_id", Message: "unknown entity", Value: *in.EntityID}}
		}
	}

	a := &models.TaskAssignment{
		ID:       uuid.New().String(),
		EntityID: in.EntityID,
		TaskType: in.TaskType,
		UserID:   in.UserID,
	}
	if err := s.audit.apply(ctx, actor, "assignment.set", "task_assignment", a.ID, map[string]interface{}{
		"entity_id": a.EntityID, "task_type": a.TaskType, "user_id": a.UserID,
	}, func(ctx context.Context) error {
		return s.assignments.Set(ctx, a)
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an assignment; admin only
func (s *assignmentService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	return s.audit.apply(ctx, actor, "assignment.deleted", "task_assignment", id, nil, func(ctx context.Context) error {
		deleted, err := s.assignments.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

// Resolve returns the responsible assignment for (entityID, taskType), or nil when unassigned
func (s *assignmentService) Resolve(ctx context.Context, entityID *string, taskType string) (*models.TaskAssignment, error) {
	rows, err := s.assignments.Candidates(ctx, entityID, taskType)
	if err != nil {
		return nil, err
	}
	return ResolveAssignment(rows, entityID, taskType), nil
}

// IsResponsible reports whether the specific or the global assignment for taskType names userID
func (s *assignmentService) IsResponsible(ctx context.Context, userID string, entityID *string, taskType string) (bool, error) {
	rows, err := s.assignments.Candidates(ctx, entityID, taskType)
	if err != nil {
		return false, err
	}
	for _, a := range rows {
		if a.TaskType != taskType || a.UserID != userID {
			continue
		}
		if a.EntityID == nil || (entityID != nil && *a.EntityID == *entityID) {
			return true, nil
		}
	}
	return false, nil
}

// Responsible resolves (entityID, taskType) and reports whether actor is responsible for it
func (s *assignmentService) Responsible(ctx context.Context, actor *models.User, entityID *string, taskType string) (*Responsibility, error) {
	if entityID != nil && !access.CanView(actor, entityID) {
		return nil, ErrForbidden
	}
	assignment, err := s.Resolve(ctx, entityID, taskType)
	if err != nil {
		return nil, err
	}
	responsible, err := s.IsResponsible(ctx, actor.ID, entityID, taskType)
	if err != nil {
		return nil, err
	}
	return &Responsibility{Assignment: assignment, IsResponsible: responsible}, nil
}
