package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/config"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/libs/runtime"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/consumer"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/email"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/handlers"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/inbox"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/jobs"
	"github.com/glowdesk/glowdesk/services/reminder-service/internal/sms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "reminder-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
	)
	var smsSender sms.Sender
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		smsSender = sms.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	} else {
		logger.Warn("SMS_WEBHOOK_URL not set; sms reminders are dropped silently")
		smsSender = sms.NewNoopSender()
	}

	maxAttempts := config.Int("REMINDER_MAX_ATTEMPTS", 5)
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	jobRepo := jobs.NewRepository()
	worker := jobs.NewWorker(pool, jobRepo, emailSender, smsSender, logger, jobs.WorkerConfig{
		Interval:  5 * time.Second,
		BatchSize: 50,
		Backoff:   1 * time.Minute,
	})
	go worker.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" || strings.TrimSpace(config.String("KAFKA_BROKERS", "")) == "" {
			logger.Warn("consumer disabled", "topic", topic)
			return
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "reminder-service"),
			Topic:   topic,
		}, handler)
		go eventConsumer.Run(ctx)
	}
	startConsumer(config.String("KAFKA_TOPIC_REMINDER_REQUESTED", "scheduling.reminder.requested.v1"),
		consumer.RequestHandler(pool, jobRepo, maxAttempts))
	startConsumer(config.String("KAFKA_TOPIC_APPOINTMENT_CANCELLED", "scheduling.appointment.cancelled.v1"),
		consumer.ChangeHandler(pool, jobRepo, logger))
	startConsumer(config.String("KAFKA_TOPIC_APPOINTMENT_RESCHEDULED", "scheduling.appointment.rescheduled.v1"),
		consumer.ChangeHandler(pool, jobRepo, logger))

	notificationsHandler := handlers.NewNotificationsHandler(jobs.NewNotificationsRepository(pool), logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/reminders/log", notificationsHandler.Log)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reminder")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
