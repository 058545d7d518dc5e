package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

const userColumns = `id, email, name, role, COALESCE(password_hash, ''), created_at, updated_at`

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $6)
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Role, user.PasswordHash, now,
	)
	if err != nil {
		return err
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

// UpsertByEmail inserts a user or refreshes the name of the existing user with the same email.
// The stored id and role are written back into user.
func (r *userRepo) UpsertByEmail(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, role, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.Role).Scan(
		&user.ID, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
}

// GetByID retrieves a user by ID, including memberships
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadMemberships(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email, including memberships
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadMemberships(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves all users ordered by email, including memberships
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
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

	if err := r.loadMemberships(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole changes a user's role
func (r *userRepo) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, id,
	))
}

// Delete removes a user; memberships and preferences cascade
func (r *userRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// loadMemberships fills Memberships for every user in one query
func (r *userRepo) loadMemberships(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[string]*models.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		u.Memberships = []models.Membership{}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	query := `
		SELECT user_id, entity_id, can_edit, created_at
		FROM memberships WHERE user_id = ANY($1::uuid[])
		ORDER BY created_at, entity_id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.EntityID, &m.CanEdit, &m.CreatedAt); err != nil {
			return err
		}
		if u, ok := byID[m.UserID]; ok {
			u.Memberships = append(u.Memberships, m)
		}
	}
	return rows.Err()
}
