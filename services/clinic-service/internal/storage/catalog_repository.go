package storage

import (
	"context"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository holds the treatment menu and the staff roster.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *CatalogRepository) UpsertService(ctx context.Context, tx pgx.Tx, svc *model.Service) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO services (id, clinic_id, name, duration_minutes, price_cents, active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			active = EXCLUDED.active
		RETURNING id::text
	`, svc.ID, svc.ClinicID, svc.Name, svc.DurationMins, svc.PriceCents, svc.Active).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, clinicID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, duration_minutes, price_cents, active, created_at
		FROM services
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.ClinicID, &s.Name, &s.DurationMins, &s.PriceCents, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *CatalogRepository) UpsertStaff(ctx context.Context, tx pgx.Tx, st *model.Staff) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO staff (id, clinic_id, name, role, active)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			active = EXCLUDED.active
		RETURNING id::text
	`, st.ID, st.ClinicID, st.Name, st.Role, st.Active).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) ListStaff(ctx context.Context, clinicID string) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, role, active, created_at
		FROM staff
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.ClinicID, &s.Name, &s.Role, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, s)
	}
	return members, rows.Err()
}
