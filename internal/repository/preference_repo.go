package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/digest"
	"github.com/onboarding-booking-api/internal/models"
)

// digestColumns whitelists the preference column for each digest type
var digestColumns = map[models.DigestType]string{
	models.DigestWeekly:    "weekly",
	models.DigestMonthly:   "monthly",
	models.DigestQuarterly: "quarterly",
	models.DigestYearly:    "yearly",
}

// preferenceRepo is the concrete implementation of PreferenceRepository
type preferenceRepo struct {
	db    *database.DB
	users *userRepo
}

// NewPreferenceRepo creates a new notification preference repository
func NewPreferenceRepo(db *database.DB) PreferenceRepository {
	return &preferenceRepo{db: db, users: &userRepo{db: db}}
}

const preferenceColumns = `user_id, entity_id, weekly, monthly, quarterly, yearly, updated_at`

// ListByUser lists a user's preferences
func (r *preferenceRepo) ListByUser(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1 ORDER BY entity_id`
	return r.query(ctx, query, userID)
}

// Set writes all four flags for (user, entity)
func (r *preferenceRepo) Set(ctx context.Context, p *models.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, entity_id, weekly, monthly, quarterly, yearly, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, entity_id) DO UPDATE SET
			weekly = EXCLUDED.weekly,
			monthly = EXCLUDED.monthly,
			quarterly = EXCLUDED.quarterly,
			yearly = EXCLUDED.yearly,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		p.UserID, p.EntityID, p.Weekly, p.Monthly, p.Quarterly, p.Yearly,
	).Scan(&p.UpdatedAt)
}

// EnsureDefaults creates an all-enabled preference for every membership of the user lacking one
func (r *preferenceRepo) EnsureDefaults(ctx context.Context, userID string) error {
	query := `
		INSERT INTO notification_preferences (user_id, entity_id)
		SELECT user_id, entity_id FROM memberships WHERE user_id = $1
		ON CONFLICT (user_id, entity_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ListCandidates loads every user with dt enabled on at least one preference,
// with their memberships and all of their preferences
func (r *preferenceRepo) ListCandidates(ctx context.Context, dt models.DigestType) ([]digest.Candidate, error) {
	column, ok := digestColumns[dt]
	if !ok {
		return nil, fmt.Errorf("unknown digest type %q", dt)
	}

	query := `
		SELECT ` + userColumns + ` FROM users u
		WHERE EXISTS (
			SELECT 1 FROM notification_preferences p WHERE p.user_id = u.id AND p.` + column + `
		)
		ORDER BY email
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []digest.Candidate{}, nil
	}

	if err := r.users.loadMemberships(ctx, users); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	prefs, err := r.query(ctx,
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string][]models.NotificationPreference, len(users))
	for _, p := range prefs {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	candidates := make([]digest.Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, digest.Candidate{User: u, Preferences: byUser[u.ID]})
	}
	return candidates, nil
}

func (r *preferenceRepo) query(ctx context.Context, query string, args ...interface{}) ([]models.NotificationPreference, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := []models.NotificationPreference{}
	for rows.Next() {
		var p models.NotificationPreference
		err := rows.Scan(&p.UserID, &p.EntityID, &p.Weekly, &p.Monthly, &p.Quarterly, &p.Yearly, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
