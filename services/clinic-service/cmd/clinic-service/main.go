package main

import (
	"context"
	"net/http"
	"time"

	"github.com/glowdesk/glowdesk/libs/config"
	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/libs/kafkax"
	otelx "github.com/glowdesk/glowdesk/libs/otel"
	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/libs/runtime"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/handlers"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8082")
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

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	declarationTTLHours := config.Int("DECLARATION_TOKEN_TTL_HOURS", 72)
	if declarationTTLHours <= 0 {
		declarationTTLHours = 72
	}

	settingsHandler := handlers.NewSettingsHandler(storage.NewClinicRepository(pool), outboxRepo, logger)
	catalogHandler := handlers.NewCatalogHandler(storage.NewCatalogRepository(pool), outboxRepo, logger)
	patientHandler := handlers.NewPatientHandler(storage.NewPatientRepository(pool), storage.NewLeadRepository(pool), outboxRepo, logger)
	invoiceHandler := handlers.NewInvoiceHandler(storage.NewInvoiceRepository(pool), logger)
	inventoryHandler := handlers.NewInventoryHandler(storage.NewInventoryRepository(pool), logger)
	declarationHandler := handlers.NewDeclarationHandler(storage.NewDeclarationRepository(pool), outboxRepo, logger, time.Duration(declarationTTLHours)*time.Hour)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/clinic/settings", settingsHandler.Handle)
	mux.HandleFunc("/api/v1/clinic/services", catalogHandler.Services)
	mux.HandleFunc("/api/v1/clinic/staff", catalogHandler.Staff)
	mux.HandleFunc("/api/v1/clinic/patients", patientHandler.Patients)
	mux.HandleFunc("/api/v1/clinic/leads", patientHandler.Leads)
	mux.HandleFunc("/api/v1/clinic/leads/status", patientHandler.LeadStatus)
	mux.HandleFunc("/api/v1/clinic/leads/convert", patientHandler.ConvertLead)
	mux.HandleFunc("/api/v1/clinic/invoices", invoiceHandler.Invoices)
	mux.HandleFunc("/api/v1/clinic/invoices/status", invoiceHandler.Status)
	mux.HandleFunc("/api/v1/clinic/inventory", inventoryHandler.Items)
	mux.HandleFunc("/api/v1/clinic/inventory/adjust", inventoryHandler.Adjust)
	mux.HandleFunc("/api/v1/clinic/declarations", declarationHandler.Declarations)
	mux.HandleFunc("/api/v1/declarations/public", declarationHandler.PublicForm)
	mux.HandleFunc("/api/v1/declarations/public/submit", declarationHandler.PublicSubmit)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")
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
