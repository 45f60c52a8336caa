package storage

import (
	"context"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *PatientRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Patient) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO patients (clinic_id, full_name, phone, email, birth_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, p.ClinicID, p.FullName, p.Phone, p.Email, p.BirthDate, p.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *model.Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET full_name = $3, phone = $4, email = $5, birth_date = $6, notes = $7
		WHERE id = $1 AND clinic_id = $2
	`, p.ID, p.ClinicID, p.FullName, p.Phone, p.Email, p.BirthDate, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PatientRepository) Get(ctx context.Context, clinicID, patientID string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, clinic_id::text, full_name, COALESCE(phone, ''), COALESCE(email, ''), birth_date, COALESCE(notes, ''), created_at
		FROM patients
		WHERE id = $1 AND clinic_id = $2
	`, patientID, clinicID).Scan(&p.ID, &p.ClinicID, &p.FullName, &p.Phone, &p.Email, &p.BirthDate, &p.Notes, &p.CreatedAt)
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

// Search matches on a case-insensitive name prefix or an exact phone number.
func (r *PatientRepository) Search(ctx context.Context, clinicID, query string, limit int) ([]model.Patient, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, full_name, COALESCE(phone, ''), COALESCE(email, ''), birth_date, COALESCE(notes, ''), created_at
		FROM patients
		WHERE clinic_id = $1
			AND ($2 = '' OR full_name ILIKE $2 || '%' OR phone = $2)
		ORDER BY full_name
		LIMIT $3
	`, clinicID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.FullName, &p.Phone, &p.Email, &p.BirthDate, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

type LeadRepository struct {
	pool *db.Pool
}

func NewLeadRepository(pool *db.Pool) *LeadRepository {
	return &LeadRepository{pool: pool}
}

func (r *LeadRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (clinic_id, name, phone, email, source, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, l.ClinicID, l.Name, l.Phone, l.Email, l.Source, l.Status, l.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *LeadRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, clinicID, leadID string) (model.Lead, error) {
	var l model.Lead
	err := tx.QueryRow(ctx, `
		SELECT id::text, clinic_id::text, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(source, ''), status, COALESCE(notes, ''), COALESCE(patient_id::text, ''), created_at
		FROM leads
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, leadID, clinicID).Scan(&l.ID, &l.ClinicID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Status, &l.Notes, &l.PatientID, &l.CreatedAt)
	if err != nil {
		return model.Lead{}, err
	}
	return l, nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, clinicID, leadID string, status model.LeadStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3 WHERE id = $1 AND clinic_id = $2
	`, leadID, clinicID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkConverted links the lead to the patient record created from it.
func (r *LeadRepository) MarkConverted(ctx context.Context, tx pgx.Tx, clinicID, leadID, patientID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE leads SET status = 'converted', patient_id = $3 WHERE id = $1 AND clinic_id = $2
	`, leadID, clinicID, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *LeadRepository) List(ctx context.Context, clinicID string, status model.LeadStatus) ([]model.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(source, ''), status, COALESCE(notes, ''), COALESCE(patient_id::text, ''), created_at
		FROM leads
		WHERE clinic_id = $1
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, clinicID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.ClinicID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Status, &l.Notes, &l.PatientID, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
