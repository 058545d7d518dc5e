package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
)

// taskTemplateService is the concrete implementation of TaskTemplateService
type taskTemplateService struct {
	repo  repository.TaskTemplateRepository
	audit *auditor
}

func newTaskTemplateService(repo repository.TaskTemplateRepository, audit *auditor) *taskTemplateService {
	return &taskTemplateService{repo: repo, audit: audit}
}

// List returns every template; admin only
func (s *taskTemplateService) List(ctx context.Context, actor *models.User) ([]*models.TaskTemplate, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx)
}

// Create adds a template; admin only
func (s *taskTemplateService) Create(ctx context.Context, actor *models.User, in *models.TaskTemplateInput) (*models.TaskTemplate, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeTemplateInput(in)
	if err := validation.ValidateTaskTemplate(in); err != nil {
		return nil, err
	}

	tpl := &models.TaskTemplate{ID: uuid.New().String(), Active: true}
	applyTemplateInput(tpl, in)

	if err := s.audit.apply(ctx, actor, "task_template.created", "task_template", tpl.ID, in, func(ctx context.Context) error {
		return s.repo.Create(ctx, tpl)
	}); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Update replaces a template's fields; admin only
func (s *taskTemplateService) Update(ctx context.Context, actor *models.User, id string, in *models.TaskTemplateInput) (*models.TaskTemplate, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeTemplateInput(in)
	if err := validation.ValidateTaskTemplate(in); err != nil {
		return nil, err
	}

	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ErrNotFound
	}
	applyTemplateInput(tpl, in)

	if err := s.audit.apply(ctx, actor, "task_template.updated", "task_template", tpl.ID, in, func(ctx context.Context) error {
		return s.repo.Update(ctx, tpl)
	}); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete removes a template; generated tasks keep their copy. Admin only.
func (s *taskTemplateService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	return s.audit.apply(ctx, actor, "task_template.deleted", "task_template", id, nil, func(ctx context.Context) error {
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

func normalizeTemplateInput(in *models.TaskTemplateInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.TaskType = strings.TrimSpace(in.TaskType)
	if in.EntityID != nil && *in.EntityID == "" {
		in.EntityID = nil
	}
}

func applyTemplateInput(tpl *models.TaskTemplate, in *models.TaskTemplateInput) {
	tpl.EntityID = in.EntityID
	tpl.TaskType = in.TaskType
	tpl.Title = in.Title
	tpl.Description = in.Description
	tpl.Priority = in.Priority
	if tpl.Priority == "" {
		tpl.Priority = models.PriorityMedium
	}
	tpl.DueOffsetDays = in.DueOffsetDays
	if in.Active != nil {
		tpl.Active = *in.Active
	}
}
