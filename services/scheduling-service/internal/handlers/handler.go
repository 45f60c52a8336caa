package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/cache"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
)

type AppointmentHandler struct {
	repo            *storage.AppointmentRepository
	clinics         *storage.ClinicCacheRepository
	outboxRepo      *outbox.Repository
	dayCounts       *cache.DayCounts
	logger          *slog.Logger
	loc             *time.Location
	reminderOffsets []time.Duration
	defaults        storage.ClinicSettings
}

func NewAppointmentHandler(
	repo *storage.AppointmentRepository,
	clinics *storage.ClinicCacheRepository,
	outboxRepo *outbox.Repository,
	dayCounts *cache.DayCounts,
	logger *slog.Logger,
	loc *time.Location,
	reminderOffsets []time.Duration,
	defaults storage.ClinicSettings,
) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{
		repo:            repo,
		clinics:         clinics,
		outboxRepo:      outboxRepo,
		dayCounts:       dayCounts,
		logger:          logger,
		loc:             loc,
		reminderOffsets: reminderOffsets,
		defaults:        defaults,
	}
}

// settingsFor resolves the clinic's operating window and slot grid from the
// kafka-fed cache, falling back to the configured defaults for clinics whose
// settings event has not arrived yet.
func (h *AppointmentHandler) settingsFor(ctx context.Context, clinicID string) storage.ClinicSettings {
	s, ok, err := h.clinics.GetSettings(ctx, clinicID)
	if err != nil {
		h.logger.Warn("clinic settings lookup failed; using defaults", "clinic_id", clinicID, "err", err)
	}
	if err != nil || !ok {
		s = h.defaults
		s.ClinicID = clinicID
	}
	if s.SlotStepMins <= 0 {
		s.SlotStepMins = h.defaults.SlotStepMins
	}
	return s
}

func (h *AppointmentHandler) window(s storage.ClinicSettings) schedule.Window {
	return schedule.Window{OpenMinute: s.OpenMinute, CloseMinute: s.CloseMinute}
}

// startsAt composes the clinic-local instant an appointment begins.
func (h *AppointmentHandler) startsAt(date time.Time, startMinute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, h.loc).
		Add(time.Duration(startMinute) * time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func monthOf(date time.Time) string {
	return date.Format("2006-01")
}
