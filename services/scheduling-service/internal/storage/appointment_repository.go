package storage

import (
	"context"
	"errors"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const apptColumns = `
	id::text, clinic_id::text, patient_id::text, patient_name,
	COALESCE(patient_email, ''), COALESCE(patient_phone, ''),
	service_id::text, service_name, COALESCE(staff_id::text, ''),
	duration_minutes, appt_date, start_minute, status,
	COALESCE(notes, ''), COALESCE(declaration_status, ''), COALESCE(cancel_reason, ''), created_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(clinic_id, patient_id, patient_name, patient_email, patient_phone,
			 service_id, service_name, staff_id,
			 duration_minutes, appt_date, start_minute, status, notes, declaration_status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13, NULLIF($14, ''))
		RETURNING id::text
	`, appt.ClinicID, appt.PatientID, appt.PatientName, appt.PatientEmail, appt.PatientPhone,
		appt.ServiceID, appt.ServiceName, appt.StaffID,
		appt.DurationMins, appt.Date, appt.StartMinute, appt.Status, appt.Notes, appt.DeclarationStatus).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, appointmentID, clinicID)
	return scanAppointment(row)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListRange returns the clinic's appointments with appt_date in [from, to],
// ordered by day and start minute. Cancelled rows are included; callers that
// compute availability filter on status themselves.
func (r *AppointmentRepository) ListRange(ctx context.Context, clinicID string, from, to time.Time) ([]model.Appointment, error) {
	return listRange(ctx, r.pool, clinicID, from, to)
}

func (r *AppointmentRepository) ListOn(ctx context.Context, clinicID string, date time.Time) ([]model.Appointment, error) {
	return listRange(ctx, r.pool, clinicID, date, date)
}

// ListOnTx reads one day through the caller's transaction. Conflict checks
// that gate an insert must use this together with LockDay, otherwise two
// concurrent writers can both pass the check against the pool's snapshot.
func (r *AppointmentRepository) ListOnTx(ctx context.Context, tx pgx.Tx, clinicID string, date time.Time) ([]model.Appointment, error) {
	return listRange(ctx, tx, clinicID, date, date)
}

func listRange(ctx context.Context, q querier, clinicID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE clinic_id = $1
			AND appt_date >= $2
			AND appt_date <= $3
		ORDER BY appt_date, start_minute, created_at
	`, clinicID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// LockDay serialises writers on one clinic day with a transaction-scoped
// advisory lock, released automatically on commit or rollback.
func (r *AppointmentRepository) LockDay(ctx context.Context, tx pgx.Tx, clinicID string, date time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, dayLockKey(clinicID, date))
	return err
}

func dayLockKey(clinicID string, date time.Time) string {
	return clinicID + ":" + date.Format("2006-01-02")
}

// UpdateSlot moves an appointment to a new day and start minute; everything
// else is untouched.
func (r *AppointmentRepository) UpdateSlot(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string, slot model.Reschedule) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET appt_date = $3,
			start_minute = $4,
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, slot.Date, slot.StartMinute)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string, status model.Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Cancel flips the status and keeps the row for audit; the scheduling core
// never deletes appointments.
func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, clinicID, appointmentID, reason string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancel_reason = NULLIF($3, ''),
			cancelled_at = now(),
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetDeclarationStatus marks the pre-treatment form state on the booking.
// Fed by clinic.declaration.submitted.v1 events.
func (r *AppointmentRepository) SetDeclarationStatus(ctx context.Context, clinicID, appointmentID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET declaration_status = $3,
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.ServiceID,
		&a.ServiceName,
		&a.StaffID,
		&a.DurationMins,
		&a.Date,
		&a.StartMinute,
		&a.Status,
		&a.Notes,
		&a.DeclarationStatus,
		&a.CancelReason,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// IsConflict reports the 23P01 exclusion violation raised by the appointments
// table's overlap constraint (EXCLUDE USING gist on clinic_id, staff_id and
// the occupied minute range of appt_date). Writers check availability inside
// a LockDay transaction first; the constraint catches anything that slips
// past, such as series inserts spanning days the lock does not cover.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
