package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/repository"
)

// auditor appends audit records for mutating operations
type auditor struct {
	repo repository.AuditRepository
	tx   repository.Transactor
	now  func() time.Time
}

func newAuditor(repo repository.AuditRepository, tx repository.Transactor, now func() time.Time) *auditor {
	return &auditor{repo: repo, tx: tx, now: now}
}

// newAuditEntry builds an audit record; a nil actor marks a system job
func newAuditEntry(at time.Time, actor *models.User, action, targetType, targetID string, metadata interface{}) (*models.AuditLog, error) {
	var raw []byte
	if metadata != nil {
		var err error
		if raw, err = json.Marshal(metadata); err != nil {
			return nil, fmt.Errorf("failed to encode audit metadata: %w", err)
		}
	}

	e := &models.AuditLog{
		ID:         uuid.New().String(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   raw,
		CreatedAt:  at,
	}
	if actor != nil {
		id := actor.ID
		e.ActorID = &id
	}
	return e, nil
}

// apply runs change and appends its audit record in one transaction; when either
// fails neither is kept. change must only touch the store through the ctx it receives.
func (a *auditor) apply(ctx context.Context, actor *models.User, action, targetType, targetID string, metadata interface{}, change func(ctx context.Context) error) error {
	return a.atomic(ctx, func(ctx context.Context) error {
		if err := change(ctx); err != nil {
			return err
		}
		return a.record(ctx, actor, action, targetType, targetID, metadata)
	})
}

// atomic runs fn in one transaction so audit rows commit or roll back with it
func (a *auditor) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.tx == nil {
		return fn(ctx)
	}
	return a.tx.InTx(ctx, fn)
}

func (a *auditor) record(ctx context.Context, actor *models.User, action, targetType, targetID string, metadata interface{}) error {
	e, err := newAuditEntry(a.now(), actor, action, targetType, targetID, metadata)
	if err != nil {
		return err
	}
	if err := a.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

// auditService is the concrete implementation of AuditService
type auditService struct {
	repo repository.AuditRepository
}

// List returns audit records; admin only
func (s *auditService) List(ctx context.Context, actor *models.User, filter models.AuditFilter) ([]*models.AuditLog, error) {
	if !access.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, filter)
}

// statsService is the concrete implementation of StatsService
type statsService struct {
	repos *repository.Repositories
}

// Ping checks that the store answers
func (s *statsService) Ping(ctx context.Context) error {
	if s.repos.Health == nil {
		return nil
	}
	return s.repos.Health.HealthCheck(ctx)
}

// Counts returns row counts of the main tables
func (s *statsService) Counts(ctx context.Context) (map[string]int, error) {
	counters := []struct {
		name  string
		count func(context.Context) (int, error)
	}{
		{"users", s.repos.User.Count},
		{"entities", s.repos.Entity.Count},
		{"starters", s.repos.Starter.Count},
		{"tasks", s.repos.Task.Count},
		{"rooms", s.repos.Room.Count},
		{"bookings", s.repos.Booking.Count},
	}

	counts := make(map[string]int, len(counters))
	for _, c := range counters {
		n, err := c.count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
		counts[c.name] = n
	}
	return counts, nil
}
