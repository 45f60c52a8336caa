package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/jobs"
	"github.com/segmentio/kafka-go"
)

type reminderRequested struct {
	AppointmentID string    `json:"appointment_id"`
	ClinicID      string    `json:"clinic_id"`
	PatientName   string    `json:"patient_name"`
	ServiceName   string    `json:"service_name"`
	Channel       string    `json:"channel"`
	Recipient     string    `json:"recipient"`
	RemindAt      time.Time `json:"remind_at"`
	StartsAt      time.Time `json:"starts_at"`
}

type appointmentChanged struct {
	AppointmentID string    `json:"appointment_id"`
	ClinicID      string    `json:"clinic_id"`
	Status        string    `json:"status"`
	StartsAt      time.Time `json:"starts_at"`
}

// RequestHandler turns scheduling.reminder.requested.v1 into a pending job.
// The event id doubles as the job's idempotency key.
func RequestHandler(pool *db.Pool, repo *jobs.Repository, maxAttempts int) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt reminderRequested
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode reminder request: %w", err)
		}
		if evt.AppointmentID == "" || evt.Recipient == "" || evt.RemindAt.IsZero() {
			return fmt.Errorf("reminder request missing required fields")
		}

		meta := kafkax.ExtractEventMeta(msg)
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := repo.Insert(ctx, tx, jobs.Job{
			IdempotencyKey: meta.EventID,
			AppointmentID:  evt.AppointmentID,
			ClinicID:       evt.ClinicID,
			Channel:        evt.Channel,
			Recipient:      evt.Recipient,
			PatientName:    evt.PatientName,
			ServiceName:    evt.ServiceName,
			StartsAt:       evt.StartsAt,
			RemindAt:       evt.RemindAt,
			MaxAttempts:    maxAttempts,
		}); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
}

// ChangeHandler reconciles pending reminders when an appointment is cancelled
// or moved. Cancellation drops every pending job. A rescheduled event carries
// the appointment's new start instant: jobs for any other instant are stale
// and get cancelled, while the fresh requests scheduling emits alongside the
// move survive no matter which of the two topics is consumed first.
func ChangeHandler(pool *db.Pool, repo *jobs.Repository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentChanged
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode appointment event: %w", err)
		}
		if evt.AppointmentID == "" {
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		var n int64
		if cancelAllPending(evt) {
			n, err = repo.CancelPending(ctx, tx, evt.ClinicID, evt.AppointmentID)
		} else {
			n, err = repo.CancelPendingExcept(ctx, tx, evt.ClinicID, evt.AppointmentID, evt.StartsAt)
		}
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("pending reminders cancelled", "appointment_id", evt.AppointmentID, "count", n, "topic", msg.Topic)
		}
		return tx.Commit(ctx)
	}
}

// cancelAllPending decides whether the event invalidates every pending job.
// Older producers omitted starts_at; without it a reschedule degrades to a
// full cancel, matching the pre-upgrade behaviour.
func cancelAllPending(evt appointmentChanged) bool {
	return evt.Status == "cancelled" || evt.StartsAt.IsZero()
}
