package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/events"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/storage"
)

type SettingsHandler struct {
	repo       *storage.ClinicRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewSettingsHandler(repo *storage.ClinicRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type settingsPayload struct {
	ClinicID     string `json:"clinic_id"`
	Name         string `json:"name"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	SlotStepMins int    `json:"slot_step_minutes"`
	Timezone     string `json:"timezone"`
}

func (h *SettingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	s, err := h.repo.GetSettings(r.Context(), clinicID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		ClinicID:     s.ClinicID,
		Name:         s.Name,
		OpenTime:     formatClock(s.OpenMinute),
		CloseTime:    formatClock(s.CloseMinute),
		SlotStepMins: s.SlotStepMins,
		Timezone:     s.Timezone,
	})
}

// put stores the settings and publishes clinic.settings.updated.v1 in the
// same transaction so downstream caches converge on what was committed.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ClinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	open, ok := parseClock(req.OpenTime)
	if !ok {
		http.Error(w, "invalid open_time", http.StatusBadRequest)
		return
	}
	closeAt, ok := parseClock(req.CloseTime)
	if !ok {
		http.Error(w, "invalid close_time", http.StatusBadRequest)
		return
	}
	if closeAt <= open {
		http.Error(w, "close_time must be after open_time", http.StatusBadRequest)
		return
	}
	if req.SlotStepMins <= 0 || req.SlotStepMins > 120 {
		http.Error(w, "slot_step_minutes must be between 1 and 120", http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.UpsertSettings(ctx, tx, model.ClinicSettings{
		ClinicID:     req.ClinicID,
		Name:         req.Name,
		OpenMinute:   open,
		CloseMinute:  closeAt,
		SlotStepMins: req.SlotStepMins,
		Timezone:     req.Timezone,
	}); err != nil {
		http.Error(w, "failed to store settings", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewEvent("clinic", req.ClinicID, events.TopicSettingsUpdated, events.SettingsUpdated{
		ClinicID:     req.ClinicID,
		OpenTime:     formatClock(open),
		CloseTime:    formatClock(closeAt),
		SlotStepMins: req.SlotStepMins,
		Timezone:     req.Timezone,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
