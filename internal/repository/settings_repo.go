package repository

import (
	"context"
	"database/sql"

	"github.com/onboarding-booking-api/internal/database"
	"github.com/onboarding-booking-api/internal/models"
)

// settingsRepo is the concrete implementation of SettingsRepository
type settingsRepo struct {
	db *database.DB
}

// NewSettingsRepo creates a new system settings repository
func NewSettingsRepo(db *database.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

// List retrieves every stored setting
func (r *settingsRepo) List(ctx context.Context) ([]models.SystemSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, revision, updated_by, updated_at FROM system_settings ORDER BY key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []models.SystemSetting{}
	for rows.Next() {
		var s models.SystemSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.Revision, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Set upserts setting with the next revision and appends entry in the same transaction
func (r *settingsRepo) Set(ctx context.Context, setting *models.SystemSetting, entry *models.AuditLog) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO system_settings (key, value, revision, updated_by, updated_at)
			VALUES ($1, $2, nextval('system_settings_revision'), $3, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				revision = EXCLUDED.revision,
				updated_by = EXCLUDED.updated_by,
				updated_at = EXCLUDED.updated_at
			RETURNING revision, updated_at
		`
		err := tx.QueryRowContext(ctx, query, setting.Key, setting.Value, setting.UpdatedBy).Scan(
			&setting.Revision, &setting.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}
