package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/auth"
	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/internal/mocks"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// testNow is a Monday
var testNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *service.Services
	store    *mocks.Store
	calendar *mocks.MockCalendar
	mail     *mocks.MockSender
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, store := mocks.NewRepositories()
	cal := mocks.NewMockCalendar()
	mail := mocks.NewMockSender()

	cfg := &config.Config{
		Calendar: config.CalendarConfig{Timeout: 100 * time.Millisecond},
		Digest: config.DigestConfig{
			Timezone:    "UTC",
			Locale:      "en_US",
			Concurrency: 2,
			AppURL:      "https://onboarding.example.com",
		},
	}
	deps := service.Dependencies{
		Calendar: cal,
		Mailer:   mail,
		Tokens:   auth.NewTokens("test-secret-that-is-long-enough", "test", time.Hour),
		Now:      func() time.Time { return testNow },
	}

	return &fixture{
		svc:      service.NewServices(repos, deps, cfg, zerolog.Nop()),
		store:    store,
		calendar: cal,
		mail:     mail,
		ctx:      context.Background(),
	}
}

func (f *fixture) addUser(role models.Role, email string) *models.User {
	u := &models.User{
		ID:    uuid.New().String(),
		Email: email,
		Name:  strings.Split(email, "@")[0],
		Role:  role,
	}
	f.store.Users[u.ID] = u
	return u
}

func (f *fixture) addEntity(name string, notificationEmails ...string) *models.Entity {
	e := &models.Entity{
		ID:                 uuid.New().String(),
		Name:               name,
		Color:              "#6b7280",
		NotificationEmails: notificationEmails,
	}
	f.store.Entities[e.ID] = e
	return e
}

// addMember records the membership in the store and on the in-hand user
func (f *fixture) addMember(u *models.User, e *models.Entity, canEdit bool) {
	m := models.Membership{UserID: u.ID, EntityID: e.ID, CanEdit: canEdit}
	f.store.AddMembership(m)
	u.Memberships = append(u.Memberships, m)
}

func hasAction(store *mocks.Store, action string) bool {
	for _, a := range store.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}

func TestAuthService_SignInSSOCreatesUserOnce(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Auth.SignInSSO(f.ctx, &models.SSOInput{Email: " New.Hire@Example.com ", Name: "New Hire"})
	if err != nil {
		t.Fatalf("SignInSSO failed: %v", err)
	}
	if first.User.Role != models.RoleNone {
		t.Errorf("Expected role none on first sign-in, got %s", first.User.Role)
	}
	if first.User.Email != "new.hire@example.com" {
		t.Errorf("Expected normalized email, got %s", first.User.Email)
	}
	if first.Token == "" {
		t.Error("Expected a session token")
	}

	second, err := f.svc.Auth.SignInSSO(f.ctx, &models.SSOInput{Email: "new.hire@example.com", Name: "New Hire"})
	if err != nil {
		t.Fatalf("Second SignInSSO failed: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("Expected the same user on second sign-in, got %s and %s", first.User.ID, second.User.ID)
	}
	if len(f.store.Users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(f.store.Users))
	}

	created := 0
	for _, a := range f.store.Actions() {
		if a == "user.created" {
			created++
		}
	}
	if created != 1 {
		t.Errorf("Expected one user.created audit record, got %d", created)
	}
}

func TestAuthService_AuthenticateRoundTrip(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(models.RoleEntityEditor, "editor@example.com")
	e := f.addEntity("Berlin")
	f.addMember(u, e, true)

	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	u.PasswordHash = hash

	session, err := f.svc.Auth.Login(f.ctx, &models.LoginInput{Email: "Editor@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	got, err := f.svc.Auth.Authenticate(f.ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Expected user %s, got %s", u.ID, got.ID)
	}
	if len(got.Memberships) != 1 || !got.Memberships[0].CanEdit {
		t.Errorf("Expected memberships to be loaded, got %+v", got.Memberships)
	}

	if _, err := f.svc.Auth.Login(f.ctx, &models.LoginInput{Email: u.Email, Password: "wrong password"}); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for a wrong password, got %v", err)
	}
	if _, err := f.svc.Auth.Authenticate(f.ctx, "not-a-token"); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for a bad token, got %v", err)
	}
}

func TestUserService_Rules(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	viewer := f.addUser(models.RoleGlobalViewer, "viewer@example.com")

	if _, err := f.svc.Users.List(f.ctx, viewer); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a non-admin, got %v", err)
	}

	created, err := f.svc.Users.Create(f.ctx, admin, &models.UserInput{
		Email: "Someone@Example.com", Name: "Someone", Role: models.RoleEntityViewer, Password: "a long enough password",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.PasswordHash == "" || created.PasswordHash == "a long enough password" {
		t.Error("Expected the password to be hashed")
	}

	_, err = f.svc.Users.Create(f.ctx, admin, &models.UserInput{Email: "someone@example.com", Name: "Again"})
	if !errors.Is(err, service.ErrConflict) {
		t.Errorf("Expected ErrConflict for a duplicate email, got %v", err)
	}

	_, err = f.svc.Users.UpdateRole(f.ctx, admin, created.ID, models.Role("owner"))
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Errorf("Expected validation errors for an unknown role, got %v", err)
	}

	updated, err := f.svc.Users.UpdateRole(f.ctx, admin, created.ID, models.RoleEntityEditor)
	if err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if updated.Role != models.RoleEntityEditor {
		t.Errorf("Expected entity-editor, got %s", updated.Role)
	}

	if err := f.svc.Users.Delete(f.ctx, admin, admin.ID); !errors.Is(err, service.ErrConflict) {
		t.Errorf("Expected ErrConflict when deleting yourself, got %v", err)
	}
	if err := f.svc.Users.Delete(f.ctx, admin, created.ID); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := f.svc.Users.Delete(f.ctx, admin, created.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if !hasAction(f.store, "user.role_changed") || !hasAction(f.store, "user.deleted") {
		t.Errorf("Expected audit records, got %v", f.store.Actions())
	}
}

func TestEntityService_VisibilityAndDeleteBlocking(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	member := f.addUser(models.RoleEntityViewer, "member@example.com")
	berlin := f.addEntity("Berlin")
	paris := f.addEntity("Paris")
	f.addMember(member, berlin, false)

	visible, err := f.svc.Entities.List(f.ctx, member)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != berlin.ID {
		t.Errorf("Expected only Berlin, got %+v", visible)
	}
	if _, err := f.svc.Entities.Get(f.ctx, member, paris.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a foreign entity, got %v", err)
	}

	err = f.svc.Entities.Delete(f.ctx, admin, berlin.ID)
	var blocked *service.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("Expected BlockedError, got %v", err)
	}
	if blocked.Blocking != 1 {
		t.Errorf("Expected 1 blocking reference, got %d", blocked.Blocking)
	}

	if err := f.svc.Entities.Delete(f.ctx, admin, paris.ID); err != nil {
		t.Errorf("Delete of an unreferenced entity failed: %v", err)
	}
	if _, ok := f.store.Entities[paris.ID]; ok {
		t.Error("Expected Paris to be deleted")
	}
}

func TestEntityService_CreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")

	e, err := f.svc.Entities.Create(f.ctx, admin, &models.EntityInput{Name: "  Lyon  "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if e.Name != "Lyon" {
		t.Errorf("Expected trimmed name, got %q", e.Name)
	}
	if e.Color != "#6b7280" {
		t.Errorf("Expected default color, got %q", e.Color)
	}

	_, err = f.svc.Entities.Create(f.ctx, admin, &models.EntityInput{Name: "Lyon"})
	if !errors.Is(err, service.ErrConflict) {
		t.Errorf("Expected ErrConflict for a duplicate name, got %v", err)
	}
}

func TestEntityService_SetMemberCreatesDefaultPreferences(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	user := f.addUser(models.RoleNone, "user@example.com")
	berlin := f.addEntity("Berlin")

	if _, err := f.svc.Entities.SetMember(f.ctx, admin, berlin.ID, user.ID, true); err != nil {
		t.Fatalf("SetMember failed: %v", err)
	}

	prefs, err := f.svc.Preferences.List(f.ctx, user)
	if err != nil {
		t.Fatalf("List preferences failed: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("Expected 1 preference, got %d", len(prefs))
	}
	p := prefs[0]
	if p.EntityID != berlin.ID || !p.Weekly || !p.Monthly || !p.Quarterly || !p.Yearly {
		t.Errorf("Expected an all-enabled preference for Berlin, got %+v", p)
	}

	members, err := f.svc.Entities.Members(f.ctx, admin, berlin.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members[0].Email != user.Email || !members[0].CanEdit {
		t.Errorf("Unexpected members: %+v", members)
	}
}

func TestPreferenceService_SetRequiresMembershipUnlessAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	user := f.addUser(models.RoleEntityViewer, "user@example.com")
	berlin := f.addEntity("Berlin")

	off := false
	_, err := f.svc.Preferences.Set(f.ctx, user, berlin.ID, &models.PreferenceInput{Weekly: &off})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden without membership, got %v", err)
	}

	p, err := f.svc.Preferences.Set(f.ctx, admin, berlin.ID, &models.PreferenceInput{Weekly: &off})
	if err != nil {
		t.Fatalf("Admin Set failed: %v", err)
	}
	if p.Weekly || !p.Monthly {
		t.Errorf("Expected only weekly to be disabled, got %+v", p)
	}

	f.addMember(user, berlin, false)
	p, err = f.svc.Preferences.Set(f.ctx, user, berlin.ID, &models.PreferenceInput{Yearly: &off})
	if err != nil {
		t.Fatalf("Member Set failed: %v", err)
	}
	if p.Yearly || !p.Weekly {
		t.Errorf("Expected only yearly to be disabled, got %+v", p)
	}
}

func TestSettingsService_SnapshotAndSet(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	editor := f.addUser(models.RoleEntityEditor, "editor@example.com")

	snap, err := f.svc.Settings.Snapshot(f.ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != 0 {
		t.Errorf("Expected version 0 with nothing stored, got %d", snap.Version)
	}
	if !snap.Bool(service.SettingDigestEnabled) || snap.Int(service.SettingBookingMaxHrs) != 8 {
		t.Errorf("Unexpected defaults: %+v", snap.Values)
	}

	if _, err := f.svc.Settings.Set(f.ctx, editor, service.SettingBookingMaxHrs, "4"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a non-admin, got %v", err)
	}

	tests := []struct {
		key   string
		value string
	}{
		{service.SettingBookingMaxHrs, "0"},
		{service.SettingBookingMaxHrs, "many"},
		{service.SettingDigestEnabled, "sometimes"},
		{"unknown.key", "1"},
	}
	for _, tt := range tests {
		_, err := f.svc.Settings.Set(f.ctx, admin, tt.key, tt.value)
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			t.Errorf("Set(%q, %q): expected validation errors, got %v", tt.key, tt.value, err)
		}
	}

	if _, err := f.svc.Settings.Set(f.ctx, admin, service.SettingBookingMaxHrs, "4"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	snap, err = f.svc.Settings.Snapshot(f.ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != 1 || snap.Int(service.SettingBookingMaxHrs) != 4 {
		t.Errorf("Expected version 1 with max hours 4, got %+v", snap)
	}
	if !hasAction(f.store, "setting.set") {
		t.Error("Expected a setting.set audit record")
	}
}

func TestAuditService_AdminOnly(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(models.RoleAdmin, "admin@example.com")
	viewer := f.addUser(models.RoleGlobalViewer, "viewer@example.com")

	if _, err := f.svc.Entities.Create(f.ctx, admin, &models.EntityInput{Name: "Berlin"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.Audit.List(f.ctx, viewer, models.AuditFilter{}); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	logs, err := f.svc.Audit.List(f.ctx, admin, models.AuditFilter{TargetType: "entity"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "entity.created" {
		t.Errorf("Unexpected audit records: %+v", logs)
	}
	if logs[0].ActorID == nil || *logs[0].ActorID != admin.ID {
		t.Error("Expected the admin as actor")
	}
}

func TestStatsService_Counts(t *testing.T) {
	f := newFixture(t)
	f.addUser(models.RoleAdmin, "admin@example.com")
	f.addEntity("Berlin")

	counts, err := f.svc.Stats.Counts(f.ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts["users"] != 1 || counts["entities"] != 1 || counts["bookings"] != 0 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
