package service

import (
	"context"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"golang.org/x/exp/slices"
)

// preferenceService is the concrete implementation of PreferenceService
type preferenceService struct {
	preferences repository.PreferenceRepository
	entities    repository.EntityRepository
	audit       *auditor
}

func newPreferenceService(repos *repository.Repositories, audit *auditor) *preferenceService {
	return &preferenceService{
		preferences: repos.Preference,
		entities:    repos.Entity,
		audit:       audit,
	}
}

// List returns the actor's preferences, creating all-enabled defaults for memberships lacking one
func (s *preferenceService) List(ctx context.Context, actor *models.User) ([]models.NotificationPreference, error) {
	if err := s.preferences.EnsureDefaults(ctx, actor.ID); err != nil {
		return nil, err
	}
	return s.preferences.ListByUser(ctx, actor.ID)
}

// Set updates the actor's digest opt-ins for one entity. Admins may hold preferences for
// any entity; everyone else needs a membership.
func (s *preferenceService) Set(ctx context.Context, actor *models.User, entityID string, in *models.PreferenceInput) (*models.NotificationPreference, error) {
	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}
	if !access.IsAdmin(actor) && !hasMembership(actor, entityID) {
		return nil, ErrForbidden
	}

	existing, err := s.preferences.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	pref := models.DefaultPreference(actor.ID, entityID)
	for _, p := range existing {
		if p.EntityID == entityID {
			pref = p
			break
		}
	}

	if in.Weekly != nil {
		pref.Weekly = *in.Weekly
	}
	if in.Monthly != nil {
		pref.Monthly = *in.Monthly
	}
	if in.Quarterly != nil {
		pref.Quarterly = *in.Quarterly
	}
	if in.Yearly != nil {
		pref.Yearly = *in.Yearly
	}

	if err := s.audit.apply(ctx, actor, "preference.set", "entity", entityID, map[string]bool{
		"weekly": pref.Weekly, "monthly": pref.Monthly, "quarterly": pref.Quarterly, "yearly": pref.Yearly,
	}, func(ctx context.Context) error {
		return s.preferences.Set(ctx, &pref)
	}); err != nil {
		return nil, err
	}
	return &pref, nil
}

func hasMembership(u *models.User, entityID string) bool {
	return slices.ContainsFunc(u.Memberships, func(m models.Membership) bool {
		return m.EntityID == entityID
	})
}
