package storage

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
)

const declarationColumns = `
	id::text, clinic_id::text, patient_id::text, COALESCE(appointment_id::text, ''),
	token, status, COALESCE(answers, '{}'::jsonb), expires_at, submitted_at, created_at`

type DeclarationRepository struct {
	pool *db.Pool
}

func NewDeclarationRepository(pool *db.Pool) *DeclarationRepository {
	return &DeclarationRepository{pool: pool}
}

func (r *DeclarationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *DeclarationRepository) Create(ctx context.Context, d *model.Declaration) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO declarations (clinic_id, patient_id, appointment_id, token, status, expires_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, 'pending', $5)
		RETURNING id::text
	`, d.ClinicID, d.PatientID, d.AppointmentID, d.Token, d.ExpiresAt).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *DeclarationRepository) GetByToken(ctx context.Context, token string) (model.Declaration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+declarationColumns+`
		FROM declarations
		WHERE token = $1
	`, token)
	return scanDeclaration(row)
}

func (r *DeclarationRepository) GetByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (model.Declaration, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+declarationColumns+`
		FROM declarations
		WHERE token = $1
		FOR UPDATE
	`, token)
	return scanDeclaration(row)
}

func (r *DeclarationRepository) Submit(ctx context.Context, tx pgx.Tx, declarationID string, answers []byte, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE declarations
		SET status = 'submitted', answers = $2, submitted_at = $3
		WHERE id = $1 AND status = 'pending'
	`, declarationID, answers, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *DeclarationRepository) ListByClinic(ctx context.Context, clinicID string) ([]model.Declaration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+declarationColumns+`
		FROM declarations
		WHERE clinic_id = $1
		ORDER BY created_at DESC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decls []model.Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

func scanDeclaration(row pgx.Row) (model.Declaration, error) {
	var d model.Declaration
	err := row.Scan(&d.ID, &d.ClinicID, &d.PatientID, &d.AppointmentID, &d.Token, &d.Status, &d.Answers, &d.ExpiresAt, &d.SubmittedAt, &d.CreatedAt)
	if err != nil {
		return model.Declaration{}, err
	}
	return d, nil
}
