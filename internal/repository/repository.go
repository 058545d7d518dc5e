package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
)

var (
	// ErrOverlap is returned when a booking would overlap a confirmed booking of the same room
	ErrOverlap = errors.New("booking overlaps a confirmed booking")
	// ErrRoomNotFound is returned when a booking references a missing room
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotPending is returned when confirming a booking that is no longer pending
	ErrNotPending = errors.New("booking is not pending")
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	UpsertByEmail(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// EntityRepository defines the interface for entity data operations
type EntityRepository interface {
	Create(ctx context.Context, entity *models.Entity) error
	Update(ctx context.Context, entity *models.Entity) error
	GetByID(ctx context.Context, id string) (*models.Entity, error)
	List(ctx context.Context) ([]*models.Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountReferences(ctx context.Context, id string) (int, error)
	Count(ctx context.Context) (int, error)
}

// MembershipRepository defines the interface for membership data operations
type MembershipRepository interface {
	Set(ctx context.Context, m *models.Membership) error
	Delete(ctx context.Context, userID, entityID string) (bool, error)
	ListByEntity(ctx context.Context, entityID string) ([]*models.MemberView, error)
	ListByUser(ctx context.Context, userID string) ([]models.Membership, error)
}

// PreferenceRepository defines the interface for notification preference operations
type PreferenceRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.NotificationPreference, error)
	Set(ctx context.Context, p *models.NotificationPreference) error
	EnsureDefaults(ctx context.Context, userID string) error
	ListCandidates(ctx context.Context, dt models.DigestType) ([]digest.Candidate, error)
}

// StarterRepository defines the interface for starter data operations
type StarterRepository interface {
	Create(ctx context.Context, starter *models.Starter, tasks []*models.Task) error
	Update(ctx context.Context, starter *models.Starter) error
	GetByID(ctx context.Context, id string) (*models.Starter, error)
	List(ctx context.Context, scope access.Scope, filter models.StarterFilter) ([]*models.Starter, error)
	ListInWindow(ctx context.Context, start, end time.Time) ([]*models.Starter, error)
	Cancel(ctx context.Context, starter *models.Starter) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, scope access.Scope, filter models.TaskFilter) ([]*models.Task, error)
	ListOpenByStarter(ctx context.Context, starterID string) ([]*models.Task, error)
	Count(ctx context.Context) (int, error)
}

// TaskTemplateRepository defines the interface for task template data operations
type TaskTemplateRepository interface {
	Create(ctx context.Context, tpl *models.TaskTemplate) error
	Update(ctx context.Context, tpl *models.TaskTemplate) error
	GetByID(ctx context.Context, id string) (*models.TaskTemplate, error)
	List(ctx context.Context) ([]*models.TaskTemplate, error)
	ListActiveFor(ctx context.Context, entityID *string) ([]*models.TaskTemplate, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// TaskAssignmentRepository defines the interface for task assignment data operations
type TaskAssignmentRepository interface {
	Set(ctx context.Context, a *models.TaskAssignment) error
	GetByID(ctx context.Context, id string) (*models.TaskAssignment, error)
	// Candidates returns the specific and global rows that could resolve (entityID, taskType)
	Candidates(ctx context.Context, entityID *string, taskType string) ([]*models.TaskAssignment, error)
	List(ctx context.Context) ([]*models.TaskAssignment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RoomRepository defines the interface for room data operations
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context) ([]*models.Room, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// BookingRepository defines the interface for booking data operations.
// Writes that can change the set of confirmed bookings of a room lock the room row first.
type BookingRepository interface {
	CreatePending(ctx context.Context, b *models.Booking) error
	Confirm(ctx context.Context, id, externalEventID string) error
	DeletePending(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	ListConfirmed(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error)
	CountActive(ctx context.Context, roomID string, now time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// AuditRepository defines the interface for the append-only audit log
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error)
}

// SettingsRepository defines the interface for system settings
type SettingsRepository interface {
	List(ctx context.Context) ([]models.SystemSetting, error)
	// Set upserts a setting with a fresh revision and appends entry in the same transaction
	Set(ctx context.Context, setting *models.SystemSetting, entry *models.AuditLog) error
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Transactor runs fn in one transaction shared by every repository call made with
// the context fn receives
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Health         HealthChecker
	Tx             Transactor
	User           UserRepository
	Entity         EntityRepository
	Membership     MembershipRepository
	Preference     PreferenceRepository
	Starter        StarterRepository
	Task           TaskRepository
	TaskTemplate   TaskTemplateRepository
	TaskAssignment TaskAssignmentRepository
	Room           RoomRepository
	Booking        BookingRepository
	Audit          AuditRepository
	Settings       SettingsRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Health:         db,
		Tx:             db,
		User:           NewUserRepo(db),
		Entity:         NewEntityRepo(db),
		Membership:     NewMembershipRepo(db),
		Preference:     NewPreferenceRepo(db),
		Starter:        NewStarterRepo(db),
		Task:           NewTaskRepo(db),
		TaskTemplate:   NewTaskTemplateRepo(db),
		TaskAssignment: NewTaskAssignmentRepo(db),
		Room:           NewRoomRepo(db),
		Booking:        NewBookingRepo(db),
		Audit:          NewAuditRepo(db),
		Settings:       NewSettingsRepo(db),
	}
}

// rowsAffected reports whether an exec touched at least one row
func rowsAffected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
