package storage

import (
	"context"
	"errors"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ClinicRepository struct {
	pool *db.Pool
}

func NewClinicRepository(pool *db.Pool) *ClinicRepository {
	return &ClinicRepository{pool: pool}
}

func (r *ClinicRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *ClinicRepository) GetSettings(ctx context.Context, clinicID string) (model.ClinicSettings, error) {
	var s model.ClinicSettings
	err := r.pool.QueryRow(ctx, `
		SELECT clinic_id::text, name, open_minute, close_minute, slot_step_minutes, timezone, updated_at
		FROM clinics
		WHERE clinic_id = $1
	`, clinicID).Scan(&s.ClinicID, &s.Name, &s.OpenMinute, &s.CloseMinute, &s.SlotStepMins, &s.Timezone, &s.UpdatedAt)
	if err != nil {
		return model.ClinicSettings{}, err
	}
	return s, nil
}

func (r *ClinicRepository) UpsertSettings(ctx context.Context, tx pgx.Tx, s model.ClinicSettings) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO clinics (clinic_id, name, open_minute, close_minute, slot_step_minutes, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (clinic_id) DO UPDATE SET
			name = EXCLUDED.name,
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, s.ClinicID, s.Name, s.OpenMinute, s.CloseMinute, s.SlotStepMins, s.Timezone)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
