package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// auditRepo is the concrete implementation of AuditRepository.
// It only ever inserts; the table trigger rejects updates and deletes.
type auditRepo struct {
	db *database.DB
}

// NewAuditRepo creates a new audit log repository
func NewAuditRepo(db *database.DB) AuditRepository {
	return &auditRepo{db: db}
}

func insertAudit(ctx context.Context, q database.Querier, entry *models.AuditLog) error {
	if len(entry.Metadata) == 0 {
		entry.Metadata = []byte("{}")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID,
		[]byte(entry.Metadata), entry.CreatedAt,
	)
	return err
}

// Append writes an audit record
func (r *auditRepo) Append(ctx context.Context, entry *models.AuditLog) error {
	return insertAudit(ctx, r.db, entry)
}

// List retrieves the newest audit records matching filter
func (r *auditRepo) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error) {
	var w where
	if filter.TargetType != "" {
		w.add("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		w.add("target_id = ?", filter.TargetID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	w.args = append(w.args, limit)

	query := `
		SELECT id, actor_id, action, target_type, target_id, metadata, created_at
		FROM audit_logs` + w.String() + `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(len(w.args))

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditLog{}
	for rows.Next() {
		var e models.AuditLog
		var metadata []byte
		err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &metadata, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Metadata = metadata
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
