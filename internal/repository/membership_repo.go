package repository

import (
	"context"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

// membershipRepo is the concrete implementation of MembershipRepository
type membershipRepo struct {
	db *database.DB
}

// NewMembershipRepo creates a new membership repository
func NewMembershipRepo(db *database.DB) MembershipRepository {
	return &membershipRepo{db: db}
}

// Set creates the membership or updates its edit flag
func (r *membershipRepo) Set(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, entity_id, can_edit, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, entity_id) DO UPDATE SET can_edit = EXCLUDED.can_edit
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, m.UserID, m.EntityID, m.CanEdit).Scan(&m.CreatedAt)
}

// Delete removes a membership
func (r *membershipRepo) Delete(ctx context.Context, userID, entityID string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND entity_id = $2`, userID, entityID,
	))
}

// ListByEntity lists the members of an entity ordered by email
func (r *membershipRepo) ListByEntity(ctx context.Context, entityID string) ([]*models.MemberView, error) {
	query := `
		SELECT m.user_id, m.entity_id, m.can_edit, m.created_at, u.email, u.name, u.role
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.entity_id = $1
		ORDER BY u.email
	`
	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*models.MemberView{}
	for rows.Next() {
		var mv models.MemberView
		err := rows.Scan(
			&mv.UserID, &mv.EntityID, &mv.CanEdit, &mv.CreatedAt,
			&mv.Email, &mv.Name, &mv.Role,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, &mv)
	}
	return members, rows.Err()
}

// ListByUser lists a user's memberships
func (r *membershipRepo) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	query := `
		SELECT user_id, entity_id, can_edit, created_at
		FROM memberships WHERE user_id = $1
		ORDER BY created_at, entity_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.EntityID, &m.CanEdit, &m.CreatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
