package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/auth"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// authService is the concrete implementation of AuthService
type authService struct {
	users  repository.UserRepository
	tokens *auth.Tokens
	audit  *auditor
	log    zerolog.Logger
}

func newAuthService(users repository.UserRepository, tokens *auth.Tokens, audit *auditor, log zerolog.Logger) *authService {
	return &authService{
		users:  users,
		tokens: tokens,
		audit:  audit,
		log:    log.With().Str("service", "auth").Logger(),
	}
}

// Login signs in with email and password
func (s *authService) Login(ctx context.Context, in *models.LoginInput) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, ErrUnauthenticated
	}
	return s.session(user)
}

// SignInSSO signs in a user whose identity the provider already verified,
// creating the user with no role on first sign-in
func (s *authService) SignInSSO(ctx context.Context, in *models.SSOInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Email
	}
	if err := validation.ValidateUser(&models.UserInput{Email: normalizeEmail(in.Email), Name: name}); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:    uuid.New().String(),
		Email: normalizeEmail(in.Email),
		Name:  name,
		Role:  models.RoleNone,
	}
	newID := user.ID
	err := s.audit.atomic(ctx, func(ctx context.Context) error {
		if err := s.users.UpsertByEmail(ctx, user); err != nil {
			return err
		}
		if user.ID != newID {
			return nil
		}
		return s.audit.record(ctx, user, "user.created", "user", user.ID, map[string]string{"source": "sso"})
	})
	if err != nil {
		return nil, err
	}
	if user.ID == newID {
		s.log.Info().Str("user_id", user.ID).Msg("User created on first sign-in")
	}

	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return s.session(stored)
}

// Authenticate resolves a session token to the current user with memberships
func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *authService) session(user *models.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
