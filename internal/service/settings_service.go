package service

import (
	"context"
	"strconv"
	"time"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/onboarding-booking-api/internal/validation"
)

// Known setting keys
const (
	SettingDigestEnabled = "digest.enabled"
	SettingBookingMaxHrs = "booking.max_hours"
	SettingSubjectPrefix = "mail.subject_prefix"
)

var settingDefaults = map[string]string{
	SettingDigestEnabled: "true",
	SettingBookingMaxHrs: "8",
	SettingSubjectPrefix: "[Onboarding]",
}

// Snapshot is an immutable view of the system settings at one revision.
// Version is the highest revision of any stored setting, 0 when none are stored.
type Snapshot struct {
	Version int64             `json:"version"`
	Values  map[string]string `json:"values"`
}

// String returns the value of key, or its default
func (s *Snapshot) String(key string) string {
	if v, ok := s.Values[key]; ok {
		return v
	}
	return settingDefaults[key]
}

// Bool returns the value of key as a bool, falling back to the default on parse errors
func (s *Snapshot) Bool(key string) bool {
	if b, err := strconv.ParseBool(s.String(key)); err == nil {
		return b
	}
	b, _ := strconv.ParseBool(settingDefaults[key])
	return b
}

// Int returns the value of key as an int, falling back to the default on parse errors
func (s *Snapshot) Int(key string) int {
	if n, err := strconv.Atoi(s.String(key)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(settingDefaults[key])
	return n
}

// settingsService is the concrete implementation of SettingsService
type settingsService struct {
	repo repository.SettingsRepository
	now  func() time.Time
}

func newSettingsService(repo repository.SettingsRepository, now func() time.Time) *settingsService {
	return &settingsService{repo: repo, now: now}
}

// Snapshot loads the current settings merged over the defaults
func (s *settingsService) Snapshot(ctx context.Context) (*Snapshot, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Values: make(map[string]string, len(settingDefaults))}
	for k, v := range settingDefaults {
		snap.Values[k] = v
	}
	for _, st := range stored {
		snap.Values[st.Key] = st.Value
		if st.Revision > snap.Version {
			snap.Version = st.Revision
		}
	}
	return snap, nil
}

// Set validates and stores a setting together with its audit record; admin only
func (s *settingsService) Set(ctx context.Context, actor *models.User, key, value string) (*models.SystemSetting, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	if err := validation.ValidateSetting(key, value); err != nil {
		return nil, err
	}

	setting := &models.SystemSetting{Key: key, Value: value, UpdatedBy: &actor.ID}
	entry, err := newAuditEntry(s.now(), actor, "setting.set", "setting", key, map[string]string{"value": value})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Set(ctx, setting, entry); err != nil {
		return nil, err
	}
	return setting, nil
}
