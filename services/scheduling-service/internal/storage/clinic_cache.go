package storage

import (
	"context"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/jackc/pgx/v5"
)

// ClinicSettings is the scheduling view of a clinic's configuration, kept in
// a local cache table fed by clinic.settings.updated.v1 events.
type ClinicSettings struct {
	ClinicID     string
	OpenMinute   int
	CloseMinute  int
	SlotStepMins int
	Timezone     string
}

// ClinicService mirrors the clinic catalog entries scheduling needs to price
// a booking: the duration and a display name.
type ClinicService struct {
	ServiceID    string
	ClinicID     string
	Name         string
	DurationMins int
	Active       bool
}

type ClinicStaff struct {
	StaffID  string
	ClinicID string
	Name     string
	Active   bool
}

type ClinicCacheRepository struct {
	pool *db.Pool
}

func NewClinicCacheRepository(pool *db.Pool) *ClinicCacheRepository {
	return &ClinicCacheRepository{pool: pool}
}

func (r *ClinicCacheRepository) GetSettings(ctx context.Context, clinicID string) (ClinicSettings, bool, error) {
	var s ClinicSettings
	err := r.pool.QueryRow(ctx, `
		SELECT clinic_id::text, open_minute, close_minute, slot_step_minutes, timezone
		FROM clinic_settings_cache
		WHERE clinic_id = $1
	`, clinicID).Scan(&s.ClinicID, &s.OpenMinute, &s.CloseMinute, &s.SlotStepMins, &s.Timezone)
	if err == pgx.ErrNoRows {
		return ClinicSettings{}, false, nil
	}
	if err != nil {
		return ClinicSettings{}, false, err
	}
	return s, true, nil
}

func (r *ClinicCacheRepository) UpsertSettings(ctx context.Context, s ClinicSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_settings_cache (clinic_id, open_minute, close_minute, slot_step_minutes, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (clinic_id) DO UPDATE SET
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, s.ClinicID, s.OpenMinute, s.CloseMinute, s.SlotStepMins, s.Timezone)
	return err
}

func (r *ClinicCacheRepository) GetService(ctx context.Context, clinicID, serviceID string) (ClinicService, bool, error) {
	var s ClinicService
	err := r.pool.QueryRow(ctx, `
		SELECT service_id::text, clinic_id::text, name, duration_minutes, active
		FROM clinic_services_cache
		WHERE clinic_id = $1 AND service_id = $2
	`, clinicID, serviceID).Scan(&s.ServiceID, &s.ClinicID, &s.Name, &s.DurationMins, &s.Active)
	if err == pgx.ErrNoRows {
		return ClinicService{}, false, nil
	}
	if err != nil {
		return ClinicService{}, false, err
	}
	return s, true, nil
}

func (r *ClinicCacheRepository) UpsertService(ctx context.Context, s ClinicService) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_services_cache (service_id, clinic_id, name, duration_minutes, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (service_id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			active = EXCLUDED.active,
			updated_at = now()
	`, s.ServiceID, s.ClinicID, s.Name, s.DurationMins, s.Active)
	return err
}

func (r *ClinicCacheRepository) GetStaff(ctx context.Context, clinicID, staffID string) (ClinicStaff, bool, error) {
	var s ClinicStaff
	err := r.pool.QueryRow(ctx, `
		SELECT staff_id::text, clinic_id::text, name, active
		FROM clinic_staff_cache
		WHERE clinic_id = $1 AND staff_id = $2
	`, clinicID, staffID).Scan(&s.StaffID, &s.ClinicID, &s.Name, &s.Active)
	if err == pgx.ErrNoRows {
		return ClinicStaff{}, false, nil
	}
	if err != nil {
		return ClinicStaff{}, false, err
	}
	return s, true, nil
}

func (r *ClinicCacheRepository) UpsertStaff(ctx context.Context, s ClinicStaff) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_staff_cache (staff_id, clinic_id, name, active, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (staff_id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			updated_at = now()
	`, s.StaffID, s.ClinicID, s.Name, s.Active)
	return err
}
