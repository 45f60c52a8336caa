package jobs

import (
	"context"
	"time"

	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/jackc/pgx/v5"
)

// Job is one pending reminder delivery. IdempotencyKey is the originating
// event id, so replayed Kafka messages never double-insert.
type Job struct {
	ID             int64
	IdempotencyKey string
	AppointmentID  string
	ClinicID       string
	Channel        string
	Recipient      string
	PatientName    string
	ServiceName    string
	StartsAt       time.Time
	RemindAt       time.Time
	Traceparent    string
	Tracestate     string
	Attempts       int
	MaxAttempts    int
	NextRunAt      time.Time
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, job Job) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO reminder_jobs
			(idempotency_key, appointment_id, clinic_id, channel, recipient, patient_name, service_name, starts_at, remind_at, next_run_at, max_attempts, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, job.IdempotencyKey, job.AppointmentID, job.ClinicID, job.Channel, job.Recipient, job.PatientName, job.ServiceName, job.StartsAt, job.RemindAt, job.MaxAttempts, traceparent, tracestate)
	return err
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, idempotency_key, appointment_id::text, clinic_id::text, channel, recipient, patient_name, service_name, starts_at, remind_at, traceparent, tracestate, attempts, max_attempts, next_run_at
		FROM reminder_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY next_run_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.IdempotencyKey, &j.AppointmentID, &j.ClinicID, &j.Channel, &j.Recipient, &j.PatientName, &j.ServiceName, &j.StartsAt, &j.RemindAt, &j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts, &j.NextRunAt); err != nil {
			return nil, err
		}
		due = append(due, j)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return due, nil
}

func (r *Repository) MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'sent', updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}

// CancelPending drops the reminders of an appointment that no longer needs
// them. Sent and failed rows are left alone for audit.
func (r *Repository) CancelPending(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND clinic_id = $2 AND status = 'pending'
	`, appointmentID, clinicID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CancelPendingExcept drops an appointment's pending reminders whose start
// instant differs from keepStartsAt. Used on reschedule, where the jobs
// enqueued for the new slot must survive even when they arrive before the
// rescheduled event is consumed.
func (r *Repository) CancelPendingExcept(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string, keepStartsAt time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND clinic_id = $2 AND status = 'pending' AND starts_at <> $3
	`, appointmentID, clinicID, keepStartsAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertDLQ archives a job that exhausted its attempts.
func (r *Repository) InsertDLQ(ctx context.Context, tx pgx.Tx, job Job, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reminder_jobs_dlq (job_id, idempotency_key, appointment_id, clinic_id, channel, recipient, remind_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, job.ID, job.IdempotencyKey, job.AppointmentID, job.ClinicID, job.Channel, job.Recipient, job.RemindAt, reason)
	return err
}

// RecordDelivery appends to the notifications log read by the clinic staff.
func (r *Repository) RecordDelivery(ctx context.Context, tx pgx.Tx, job Job, provider string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications_log (appointment_id, clinic_id, channel, recipient, provider, sent_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, job.AppointmentID, job.ClinicID, job.Channel, job.Recipient, provider)
	return err
}
