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

type CatalogHandler struct {
	repo       *storage.CatalogRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewCatalogHandler(repo *storage.CatalogRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type servicePayload struct {
	ServiceID    string `json:"service_id,omitempty"`
	ClinicID     string `json:"clinic_id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	PriceCents   int64  `json:"price_cents"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listServices(w, r)
	case http.MethodPost, http.MethodPut:
		h.upsertService(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) listServices(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	services, err := h.repo.ListServices(r.Context(), clinicID)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]servicePayload, 0, len(services))
	for _, s := range services {
		items = append(items, servicePayload{
			ServiceID:    s.ID,
			ClinicID:     s.ClinicID,
			Name:         s.Name,
			DurationMins: s.DurationMins,
			PriceCents:   s.PriceCents,
			Active:       s.Active,
			CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) upsertService(w http.ResponseWriter, r *http.Request) {
	var req servicePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ClinicID == "" || req.Name == "" {
		http.Error(w, "clinic_id and name required", http.StatusBadRequest)
		return
	}
	if req.DurationMins <= 0 || req.DurationMins > 8*60 {
		http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
		return
	}
	if req.PriceCents < 0 {
		http.Error(w, "price_cents must not be negative", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	svc := &model.Service{
		ID:           strings.TrimSpace(req.ServiceID),
		ClinicID:     req.ClinicID,
		Name:         req.Name,
		DurationMins: req.DurationMins,
		PriceCents:   req.PriceCents,
		Active:       req.Active,
	}
	id, err := h.repo.UpsertService(ctx, tx, svc)
	if err != nil {
		http.Error(w, "failed to store service", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewEvent("service", id, events.TopicServiceUpdated, events.ServiceUpdated{
		ServiceID:    id,
		ClinicID:     req.ClinicID,
		Name:         req.Name,
		DurationMins: req.DurationMins,
		Active:       req.Active,
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
	req.ServiceID = id
	writeJSON(w, http.StatusOK, req)
}

type staffPayload struct {
	StaffID   string `json:"staff_id,omitempty"`
	ClinicID  string `json:"clinic_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h *CatalogHandler) Staff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listStaff(w, r)
	case http.MethodPost, http.MethodPut:
		h.upsertStaff(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) listStaff(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	members, err := h.repo.ListStaff(r.Context(), clinicID)
	if err != nil {
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}
	items := make([]staffPayload, 0, len(members))
	for _, s := range members {
		items = append(items, staffPayload{
			StaffID:   s.ID,
			ClinicID:  s.ClinicID,
			Name:      s.Name,
			Role:      s.Role,
			Active:    s.Active,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) upsertStaff(w http.ResponseWriter, r *http.Request) {
	var req staffPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ClinicID == "" || req.Name == "" {
		http.Error(w, "clinic_id and name required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.UpsertStaff(ctx, tx, &model.Staff{
		ID:       strings.TrimSpace(req.StaffID),
		ClinicID: req.ClinicID,
		Name:     req.Name,
		Role:     strings.TrimSpace(req.Role),
		Active:   req.Active,
	})
	if err != nil {
		http.Error(w, "failed to store staff member", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewEvent("staff", id, events.TopicStaffUpdated, events.StaffUpdated{
		StaffID:  id,
		ClinicID: req.ClinicID,
		Name:     req.Name,
		Active:   req.Active,
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
	req.StaffID = id
	writeJSON(w, http.StatusOK, req)
}
