package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/config"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/libs/runtime"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/cache"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/consumer"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/handlers"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/inbox"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseReminderOffsets(raw string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour}
	}
	return offsets
}

func defaultSettings(logger *slog.Logger) storage.ClinicSettings {
	open, err := schedule.ParseClock(config.String("DEFAULT_OPEN_TIME", "09:00"))
	if err != nil {
		logger.Warn("invalid DEFAULT_OPEN_TIME; using 09:00")
		open = 9 * 60
	}
	closeAt, err := schedule.ParseClock(config.String("DEFAULT_CLOSE_TIME", "18:00"))
	if err != nil {
		logger.Warn("invalid DEFAULT_CLOSE_TIME; using 18:00")
		closeAt = 18 * 60
	}
	step := config.Int("DEFAULT_SLOT_STEP_MINUTES", 15)
	if step <= 0 {
		step = 15
	}
	return storage.ClinicSettings{OpenMinute: open, CloseMinute: closeAt, SlotStepMins: step}
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8081")
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

	loc := time.UTC
	if tz := config.String("CLINIC_TIMEZONE", ""); tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		} else {
			logger.Warn("invalid CLINIC_TIMEZONE; using UTC", "value", tz)
		}
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
	}
	cacheTTL := config.Int("CALENDAR_CACHE_TTL_SECONDS", 60)
	if cacheTTL <= 0 {
		cacheTTL = 60
	}
	dayCounts := cache.NewDayCounts(rdb, logger, time.Duration(cacheTTL)*time.Second)

	repo := storage.NewAppointmentRepository(pool)
	clinicCache := storage.NewClinicCacheRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	offsets := parseReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,120"), logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" || strings.TrimSpace(config.String("KAFKA_BROKERS", "")) == "" {
			logger.Warn("consumer disabled", "topic", topic)
			return
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
			Topic:   topic,
		}, handler)
		go eventConsumer.Run(ctx)
	}
	startConsumer(config.String("KAFKA_TOPIC_CLINIC_SETTINGS", "clinic.settings.updated.v1"), consumer.SettingsHandler(clinicCache))
	startConsumer(config.String("KAFKA_TOPIC_CLINIC_SERVICES", "clinic.service.updated.v1"), consumer.ServiceHandler(clinicCache))
	startConsumer(config.String("KAFKA_TOPIC_CLINIC_STAFF", "clinic.staff.updated.v1"), consumer.StaffHandler(clinicCache))
	startConsumer(config.String("KAFKA_TOPIC_DECLARATIONS", "clinic.declaration.submitted.v1"), consumer.DeclarationHandler(repo, logger))

	apptHandler := handlers.NewAppointmentHandler(repo, clinicCache, outboxRepo, dayCounts, logger, loc, offsets, defaultSettings(logger))

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/slots", apptHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", apptHandler.Book)
	mux.HandleFunc("/api/v1/appointments", apptHandler.List)
	mux.HandleFunc("/api/v1/appointments/reschedule", apptHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/recur", apptHandler.Recur)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)
	mux.HandleFunc("/api/v1/calendar", apptHandler.CalendarMonth)
	mux.HandleFunc("/api/v1/calendar/day", apptHandler.CalendarDay)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
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
