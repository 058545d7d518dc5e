package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/auth"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// userService is the concrete implementation of UserService
type userService struct {
	users repository.UserRepository
	audit *auditor
	log   zerolog.Logger
}

func newUserService(users repository.UserRepository, audit *auditor, log zerolog.Logger) *userService {
	return &userService{
		users: users,
		audit: audit,
		log:   log.With().Str("service", "user").Logger(),
	}
}

// List returns every user; admin only
func (s *userService) List(ctx context.Context, actor *models.User) ([]*models.User, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.users.List(ctx)
}

// Create adds a user; admin only
func (s *userService) Create(ctx context.Context, actor *models.User, in *models.UserInput) (*models.User, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleNone
	}
	if err := validation.ValidateUser(in); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Email:       in.Email,
		Name:        in.Name,
		Role:        in.Role,
		Memberships: []models.Membership{},
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.audit.apply(ctx, actor, "user.created", "user", user.ID, map[string]interface{}{
		"email": user.Email, "role": user.Role,
	}, func(ctx context.Context) error {
		err := s.users.Create(ctx, user)
		if database.IsUniqueViolation(err) {
			return conflictf("a user with email %s already exists", in.Email)
		}
		return err
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User created")
	return user, nil
}

// UpdateRole changes a user's role; admin only
func (s *userService) UpdateRole(ctx context.Context, actor *models.User, id string, role models.Role) (*models.User, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if err := validation.ValidateRole(role); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	previous := user.Role

	if err := s.audit.apply(ctx, actor, "user.role_changed", "user", id, map[string]interface{}{
		"from": previous, "to": role,
	}, func(ctx context.Context) error {
		_, err := s.users.UpdateRole(ctx, id, role)
		return err
	}); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// Delete removes a user; admin only, and never the caller themself
func (s *userService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !access.IsAdmin(actor) {
		return ErrForbidden
	}
	if actor.ID == id {
		return conflictf("you cannot delete your own account")
	}

	return s.audit.apply(ctx, actor, "user.deleted", "user", id, nil, func(ctx context.Context) error {
		deleted, err := s.users.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}
