package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

const defaultEntityColor = "#6b7280"

// entityService is the concrete implementation of EntityService
type entityService struct {
	entities    repository.EntityRepository
	memberships repository.MembershipRepository
	preferences repository.PreferenceRepository
	users       repository.UserRepository
	audit       *auditor
	log         zerolog.Logger
}

func newEntityService(repos *repository.Repositories, audit *auditor, log zerolog.Logger) *entityService {
	return &entityService{
		entities:    repos.Entity,
		memberships: repos.Membership,
		preferences: repos.Preference,
		users:       repos.User,
		audit:       audit,
		log:         log.With().Str("service", "entity").Logger(),
	}
}

// List returns the entities the actor may see
func (s *entityService) List(ctx context.Context, actor *models.User) ([]*models.Entity, error) {
	entities, err := s.entities.List(ctx)
	if err != nil {
		return nil, err
	}
	return access.FilterEntities(actor, entities), nil
}

// Get returns one entity the actor may see
func (s *entityService) Get(ctx context.Context, actor *models.User, id string) (*models.Entity, error) {
	entity, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}
	if !access.CanView(actor, &entity.ID) {
		return nil, ErrForbidden
	}
	return entity, nil
}

// Create adds an entity; admin only
func (s *entityService) Create(ctx context.Context, actor *models.User, in *models.EntityInput) (*models.Entity, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeEntityInput(in)
	if err := validation.ValidateEntity(in); err != nil {
		return nil, err
	}

	entity := &models.Entity{
		ID:                 uuid.New().String(),
		Name:               in.Name,
		Color:              in.Color,
		NotificationEmails: in.NotificationEmails,
	}
	if err := s.audit.apply(ctx, actor, "entity.created", "entity", entity.ID, map[string]string{"name": entity.Name}, func(ctx context.Context) error {
		err := s.entities.Create(ctx, entity)
		if database.IsUniqueViolation(err) {
			return conflictf("an entity named %q already exists", in.Name)
		}
		return err
	}); err != nil {
		return nil, err
	}
	return entity, nil
}

// Update replaces an entity's fields; admin only
func (s *entityService) Update(ctx context.Context, actor *models.User, id string, in *models.EntityInput) (*models.Entity, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	normalizeEntityInput(in)
	if err := validation.ValidateEntity(in); err != nil {
		return nil, err
	}

	entity, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}

	entity.Name = in.Name
	entity.Color = in.Color
	entity.NotificationEmails = in.NotificationEmails
	if err := s.audit.apply(ctx, actor, "entity.updated", "entity", entity.ID, in, func(ctx context.Context) error {
		err := s.entities.Update(ctx, entity)
		if database.IsUniqueViolation(err) {
			return conflictf("an entity named %q already exists", in.Name)
		}
		return err
	}); err != nil {
		return nil, err
	}
	return entity, nil
}

// Delete removes an entity nothing references; admin only
func (s *entityService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}

	refs, err := s.entities.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &BlockedError{Resource: "entity", Blocking: refs}
	}

	return s.audit.apply(ctx, actor, "entity.deleted", "entity", id, nil, func(ctx context.Context) error {
		deleted, err := s.entities.Delete(ctx, id)
		if database.IsForeignKeyViolation(err) {
			return conflictf("entity %s gained references while being deleted", id)
		}
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

// Members lists an entity's members; admin only
func (s *entityService) Members(ctx context.Context, actor *models.User, entityID string) ([]*models.MemberView, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return s.memberships.ListByEntity(ctx, entityID)
}

// SetMember creates or updates a membership and gives the member default digest preferences; admin only
func (s *entityService) SetMember(ctx context.Context, actor *models.User, entityID, userID string, canEdit bool) (*models.Membership, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if err := s.requireEntity(ctx, entityID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	m := &models.Membership{UserID: userID, EntityID: entityID, CanEdit: canEdit}
	if err := s.audit.apply(ctx, actor, "membership.set", "entity", entityID, map[string]interface{}{
		"user_id": userID, "can_edit": canEdit,
	}, func(ctx context.Context) error {
		return s.memberships.Set(ctx, m)
	}); err != nil {
		return nil, err
	}
	if err := s.preferences.EnsureDefaults(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to create default preferences")
	}
	return m, nil
}

// RemoveMember deletes a membership; admin only
func (s *entityService) RemoveMember(ctx context.Context, actor *models.User, entityID, userID string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	return s.audit.apply(ctx, actor, "membership.removed", "entity", entityID, map[string]string{"user_id": userID}, func(ctx context.Context) error {
		deleted, err := s.memberships.Delete(ctx, userID, entityID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

func (s *entityService) requireEntity(ctx context.Context, id string) error {
	entity, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return ErrNotFound
	}
	return nil
}

func normalizeEntityInput(in *models.EntityInput) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Color == "" {
		in.Color = defaultEntityColor
	}
	emails := make([]string, 0, len(in.NotificationEmails))
	for _, e := range in.NotificationEmails {
		if e = normalizeEmail(e); e != "" {
			emails = append(emails, e)
		}
	}
	in.NotificationEmails = emails
}
