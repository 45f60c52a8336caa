package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/email"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/sms"
)

// Worker drains due reminder jobs and delivers them through the channel
// senders. Failures retry with a fixed backoff until max attempts, then the
// job lands in the DLQ table.
type Worker struct {
	pool      *db.Pool
	repo      *Repository
	emails    email.Sender
	texts     sms.Sender
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, emails email.Sender, texts sms.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	return &Worker{
		pool:      pool,
		repo:      repo,
		emails:    emails,
		texts:     texts,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	var sent []int64
	for _, job := range due {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)

		provider, sendErr := w.deliver(jobCtx, job)
		if sendErr != nil {
			attempts := job.Attempts + 1
			nextRunAt := time.Now().UTC().Add(w.backoff)
			w.logger.Warn("reminder delivery failed",
				"job_id", job.ID, "channel", job.Channel, "attempt", attempts, "err", sendErr)
			if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, nextRunAt, sendErr.Error()); err != nil {
				return err
			}
			if attempts >= job.MaxAttempts {
				if err := w.repo.InsertDLQ(ctx, tx, job, "max attempts reached"); err != nil {
					return err
				}
			}
			continue
		}

		if err := w.repo.RecordDelivery(ctx, tx, job, provider); err != nil {
			return err
		}
		sent = append(sent, job.ID)
	}

	if err := w.repo.MarkSent(ctx, tx, sent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (w *Worker) deliver(ctx context.Context, job Job) (string, error) {
	subject, body := renderReminder(job)
	switch job.Channel {
	case "email":
		if w.emails == nil {
			return "", fmt.Errorf("email sender not configured")
		}
		return "smtp", w.emails.Send(job.Recipient, subject, body)
	case "sms":
		if w.texts == nil {
			return "", fmt.Errorf("sms sender not configured")
		}
		return w.texts.ProviderID(), w.texts.Send(ctx, job.Recipient, body)
	}
	return "", fmt.Errorf("unknown channel %q", job.Channel)
}

func renderReminder(job Job) (subject string, body string) {
	when := job.StartsAt.Format("Monday, 2 January at 15:04")
	subject = "Appointment reminder"
	if job.ServiceName != "" {
		subject = fmt.Sprintf("Reminder: %s", job.ServiceName)
	}
	name := job.PatientName
	if name == "" {
		name = "there"
	}
	body = fmt.Sprintf("Hi %s, this is a reminder for your upcoming appointment on %s.", name, when)
	if job.ServiceName != "" {
		body = fmt.Sprintf("Hi %s, this is a reminder for your %s on %s.", name, job.ServiceName, when)
	}
	return subject, body
}
