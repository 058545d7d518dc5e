package service

import (
	"context"
	"time"

	"github.com/onboarding-booking-api/internal/auth"
	"github.com/onboarding-booking-api/internal/calendar"
	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/mailer"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/onboarding-booking-api/internal/service")

// Session is a signed-in user and their token
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService defines the interface for sign-in and session checks
type AuthService interface {
	Login(ctx context.Context, in *models.LoginInput) (*Session, error)
	SignInSSO(ctx context.Context, in *models.SSOInput) (*Session, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// UserService defines the interface for user administration
type UserService interface {
	List(ctx context.Context, actor *models.User) ([]*models.User, error)
	Create(ctx context.Context, actor *models.User, in *models.UserInput) (*models.User, error)
	UpdateRole(ctx context.Context, actor *models.User, id string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// EntityService defines the interface for entities and their memberships
type EntityService interface {
	List(ctx context.Context, actor *models.User) ([]*models.Entity, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Entity, error)
	Create(ctx context.Context, actor *models.User, in *models.EntityInput) (*models.Entity, error)
	Update(ctx context.Context, actor *models.User, id string, in *models.EntityInput) (*models.Entity, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Members(ctx context.Context, actor *models.User, entityID string) ([]*models.MemberView, error)
	SetMember(ctx context.Context, actor *models.User, entityID, userID string, canEdit bool) (*models.Membership, error)
	RemoveMember(ctx context.Context, actor *models.User, entityID, userID string) error
}

// PreferenceService defines the interface for digest opt-ins
type PreferenceService interface {
	List(ctx context.Context, actor *models.User) ([]models.NotificationPreference, error)
	Set(ctx context.Context, actor *models.User, entityID string, in *models.PreferenceInput) (*models.NotificationPreference, error)
}

// StarterService defines the interface for the starter lifecycle
type StarterService interface {
	List(ctx context.Context, actor *models.User, filter models.StarterFilter) ([]*models.Starter, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Starter, error)
	Create(ctx context.Context, actor *models.User, in *models.StarterInput) (*models.Starter, []*models.Task, error)
	Update(ctx context.Context, actor *models.User, id string, in *models.StarterInput) (*models.Starter, error)
	Cancel(ctx context.Context, actor *models.User, id string, reason string) (*models.Starter, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// TaskService defines the interface for onboarding tasks
type TaskService interface {
	List(ctx context.Context, actor *models.User, filter models.TaskFilter) ([]*models.Task, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Task, error)
	Create(ctx context.Context, actor *models.User, in *models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, actor *models.User, id string, in *models.TaskInput) (*models.Task, error)
	Complete(ctx context.Context, actor *models.User, id string, notes string) (*models.Task, error)
	Reopen(ctx context.Context, actor *models.User, id string) (*models.Task, error)
}

// TaskTemplateService defines the interface for task template administration
type TaskTemplateService interface {
	List(ctx context.Context, actor *models.User) ([]*models.TaskTemplate, error)
	Create(ctx context.Context, actor *models.User, in *models.TaskTemplateInput) (*models.TaskTemplate, error)
	Update(ctx context.Context, actor *models.User, id string, in *models.TaskTemplateInput) (*models.TaskTemplate, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// Responsibility is the resolved assignee for (entity, task type) from a user's point of view
type Responsibility struct {
	Assignment    *models.TaskAssignment `json:"assignment"`
	IsResponsible bool                   `json:"is_responsible"`
}

// AssignmentService defines the interface for task responsibility
type AssignmentService interface {
	List(ctx context.Context, actor *models.User) ([]*models.TaskAssignment, error)
	Set(ctx context.Context, actor *models.User, in *models.AssignmentInput) (*models.TaskAssignment, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Resolve(ctx context.Context, entityID *string, taskType string) (*models.TaskAssignment, error)
	IsResponsible(ctx context.Context, userID string, entityID *string, taskType string) (bool, error)
	Responsible(ctx context.Context, actor *models.User, entityID *string, taskType string) (*Responsibility, error)
}

// RoomService defines the interface for rooms
type RoomService interface {
	List(ctx context.Context) ([]*models.Room, error)
	Get(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, actor *models.User, in *models.RoomInput) (*models.Room, error)
	Update(ctx context.Context, actor *models.User, id string, in *models.RoomInput) (*models.Room, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Availability(ctx context.Context, id string, from, to time.Time) ([]*models.Booking, error)
}

// BookingService defines the interface for room bookings
type BookingService interface {
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	Create(ctx context.Context, actor *models.User, in *models.BookingInput) (*models.Booking, error)
	Cancel(ctx context.Context, actor *models.User, id string) (*models.Booking, error)
}

// DigestService defines the interface for digest preview and dispatch
type DigestService interface {
	Preview(ctx context.Context, dt models.DigestType, today time.Time) (*digest.Plan, error)
	Send(ctx context.Context, dt models.DigestType, today time.Time) (*DigestResult, error)
}

// SettingsService defines the interface for runtime system settings
type SettingsService interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, actor *models.User, key, value string) (*models.SystemSetting, error)
}

// AuditService defines the interface for reading the audit log
type AuditService interface {
	List(ctx context.Context, actor *models.User, filter models.AuditFilter) ([]*models.AuditLog, error)
}

// StatsService defines the interface for row-count metrics
type StatsService interface {
	Counts(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
}

// Dependencies are the external collaborators of the services
type Dependencies struct {
	Calendar calendar.Client
	Mailer   mailer.Sender
	Tokens   *auth.Tokens
	// Now defaults to time.Now
	Now func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Auth        AuthService
	Users       UserService
	Entities    EntityService
	Preferences PreferenceService
	Starters    StarterService
	Tasks       TaskService
	Templates   TaskTemplateService
	Assignments AssignmentService
	Rooms       RoomService
	Bookings    BookingService
	Digests     DigestService
	Settings    SettingsService
	Audit       AuditService
	Stats       StatsService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config, log zerolog.Logger) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Calendar == nil {
		deps.Calendar = calendar.NewNoop()
	}

	audit := newAuditor(repos.Audit, repos.Tx, deps.Now)
	settings := newSettingsService(repos.Settings, deps.Now)
	renderer := mailer.NewRenderer(cfg.Digest.Locale, cfg.Digest.Location(), cfg.Digest.AppURL)
	notify := newNotifier(deps.Mailer, renderer, settings, repos.User, log)
	assignments := newAssignmentService(repos, audit, log)

	return &Services{
		Auth:        newAuthService(repos.User, deps.Tokens, audit, log),
		Users:       newUserService(repos.User, audit, log),
		Entities:    newEntityService(repos, audit, log),
		Preferences: newPreferenceService(repos, audit),
		Starters:    newStarterService(repos, assignments, notify, audit, cfg.Digest.Location(), deps.Now, log),
		Tasks:       newTaskService(repos, assignments, audit, cfg.Digest.Location(), deps.Now, log),
		Templates:   newTaskTemplateService(repos.TaskTemplate, audit),
		Assignments: assignments,
		Rooms:       newRoomService(repos, audit, deps.Now),
		Bookings:    newBookingService(repos, deps.Calendar, settings, audit, cfg.Calendar.Timeout, deps.Now, log),
		Digests:     newDigestService(repos, notify, settings, audit, cfg.Digest, log),
		Settings:    settings,
		Audit:       &auditService{repo: repos.Audit},
		Stats:       &statsService{repos: repos},
	}
}
