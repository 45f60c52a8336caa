package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/storage"
)

type InvoiceHandler struct {
	repo   *storage.InvoiceRepository
	logger *slog.Logger
}

func NewInvoiceHandler(repo *storage.InvoiceRepository, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{repo: repo, logger: logger}
}

type invoiceLinePayload struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
}

type invoicePayload struct {
	InvoiceID  string               `json:"invoice_id,omitempty"`
	ClinicID   string               `json:"clinic_id"`
	PatientID  string               `json:"patient_id"`
	Status     string               `json:"status,omitempty"`
	Lines      []invoiceLinePayload `json:"lines,omitempty"`
	TotalCents int64                `json:"total_cents,omitempty"`
	IssuedAt   string               `json:"issued_at,omitempty"`
	PaidAt     string               `json:"paid_at,omitempty"`
	CreatedAt  string               `json:"created_at,omitempty"`
}

func toInvoicePayload(inv model.Invoice) invoicePayload {
	out := invoicePayload{
		InvoiceID:  inv.ID,
		ClinicID:   inv.ClinicID,
		PatientID:  inv.PatientID,
		Status:     string(inv.Status),
		TotalCents: inv.TotalCents,
		CreatedAt:  inv.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, l := range inv.Lines {
		out.Lines = append(out.Lines, invoiceLinePayload{Description: l.Description, Quantity: l.Quantity, UnitCents: l.UnitCents})
	}
	if inv.IssuedAt != nil {
		out.IssuedAt = inv.IssuedAt.UTC().Format(time.RFC3339)
	}
	if inv.PaidAt != nil {
		out.PaidAt = inv.PaidAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *InvoiceHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InvoiceHandler) list(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	if invoiceID := queryParam(r, "invoice_id"); invoiceID != "" {
		inv, err := h.repo.Get(r.Context(), clinicID, invoiceID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "invoice not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load invoice", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toInvoicePayload(inv))
		return
	}

	status := model.InvoiceStatus(queryParam(r, "status"))
	invoices, err := h.repo.List(r.Context(), clinicID, status)
	if err != nil {
		http.Error(w, "failed to list invoices", http.StatusInternalServerError)
		return
	}
	items := make([]invoicePayload, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, toInvoicePayload(inv))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *InvoiceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req invoicePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.ClinicID == "" || req.PatientID == "" {
		http.Error(w, "clinic_id and patient_id required", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		http.Error(w, "at least one line required", http.StatusBadRequest)
		return
	}

	inv := &model.Invoice{ClinicID: req.ClinicID, PatientID: req.PatientID, Status: model.InvoiceDraft}
	for _, l := range req.Lines {
		desc := strings.TrimSpace(l.Description)
		if desc == "" || l.Quantity <= 0 || l.UnitCents < 0 {
			http.Error(w, "invalid line item", http.StatusBadRequest)
			return
		}
		inv.Lines = append(inv.Lines, model.InvoiceLine{Description: desc, Quantity: l.Quantity, UnitCents: l.UnitCents})
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, inv)
	if err != nil {
		http.Error(w, "failed to create invoice", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	inv.ID = id
	inv.TotalCents = inv.Total()
	writeJSON(w, http.StatusCreated, toInvoicePayload(*inv))
}

type invoiceStatusRequest struct {
	ClinicID  string `json:"clinic_id"`
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
}

// allowed transitions: draft -> issued -> paid, and draft/issued -> void.
func statusTransitionAllowed(from, to model.InvoiceStatus) bool {
	switch to {
	case model.InvoiceIssued:
		return from == model.InvoiceDraft
	case model.InvoicePaid:
		return from == model.InvoiceIssued
	case model.InvoiceVoid:
		return from == model.InvoiceDraft || from == model.InvoiceIssued
	}
	return false
}

func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req invoiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	target := model.InvoiceStatus(strings.TrimSpace(req.Status))
	if req.ClinicID == "" || req.InvoiceID == "" {
		http.Error(w, "clinic_id and invoice_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := h.repo.GetForUpdate(ctx, tx, req.ClinicID, req.InvoiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load invoice", http.StatusInternalServerError)
		return
	}
	if inv.Status == target {
		writeJSON(w, http.StatusOK, toInvoicePayload(inv))
		return
	}
	if !statusTransitionAllowed(inv.Status, target) {
		http.Error(w, "status transition not allowed", http.StatusConflict)
		return
	}

	now := time.Now().UTC()
	if err := h.repo.SetStatus(ctx, tx, req.ClinicID, req.InvoiceID, target, now); err != nil {
		http.Error(w, "failed to update invoice", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	inv.Status = target
	switch target {
	case model.InvoiceIssued:
		inv.IssuedAt = &now
	case model.InvoicePaid:
		inv.PaidAt = &now
	}
	writeJSON(w, http.StatusOK, toInvoicePayload(inv))
}
