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
	"github.com/google/uuid"
)

type DeclarationHandler struct {
	repo       *storage.DeclarationRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	tokenTTL   time.Duration
}

func NewDeclarationHandler(repo *storage.DeclarationRepository, outboxRepo *outbox.Repository, logger *slog.Logger, tokenTTL time.Duration) *DeclarationHandler {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &DeclarationHandler{repo: repo, outboxRepo: outboxRepo, logger: logger, tokenTTL: tokenTTL}
}

type createDeclarationRequest struct {
	ClinicID      string `json:"clinic_id"`
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id"`
}

type declarationPayload struct {
	DeclarationID string          `json:"declaration_id"`
	ClinicID      string          `json:"clinic_id"`
	PatientID     string          `json:"patient_id"`
	AppointmentID string          `json:"appointment_id,omitempty"`
	Token         string          `json:"token,omitempty"`
	Status        string          `json:"status"`
	Answers       json.RawMessage `json:"answers,omitempty"`
	ExpiresAt     string          `json:"expires_at"`
	SubmittedAt   string          `json:"submitted_at,omitempty"`
}

func toDeclarationPayload(d model.Declaration, includeToken bool) declarationPayload {
	out := declarationPayload{
		DeclarationID: d.ID,
		ClinicID:      d.ClinicID,
		PatientID:     d.PatientID,
		AppointmentID: d.AppointmentID,
		Status:        string(d.Status),
		ExpiresAt:     d.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if includeToken {
		out.Token = d.Token
	}
	if len(d.Answers) > 0 {
		out.Answers = json.RawMessage(d.Answers)
	}
	if d.SubmittedAt != nil {
		out.SubmittedAt = d.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// Declarations issues a tokenized form link (POST) or lists the clinic's
// declarations (GET).
func (h *DeclarationHandler) Declarations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DeclarationHandler) list(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	decls, err := h.repo.ListByClinic(r.Context(), clinicID)
	if err != nil {
		http.Error(w, "failed to list declarations", http.StatusInternalServerError)
		return
	}
	items := make([]declarationPayload, 0, len(decls))
	for _, d := range decls {
		items = append(items, toDeclarationPayload(d, false))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DeclarationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDeclarationRequest
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

	d := &model.Declaration{
		ClinicID:      req.ClinicID,
		PatientID:     req.PatientID,
		AppointmentID: strings.TrimSpace(req.AppointmentID),
		Token:         uuid.NewString(),
		Status:        model.DeclarationPending,
		ExpiresAt:     time.Now().Add(h.tokenTTL).UTC(),
	}
	id, err := h.repo.Create(r.Context(), d)
	if err != nil {
		http.Error(w, "failed to create declaration", http.StatusInternalServerError)
		return
	}
	d.ID = id
	writeJSON(w, http.StatusCreated, toDeclarationPayload(*d, true))
}

// PublicForm serves the form metadata behind the tokenized link. Expired and
// already submitted tokens are rejected so the link is single use.
func (h *DeclarationHandler) PublicForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := queryParam(r, "token")
	if token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}
	d, err := h.repo.GetByToken(r.Context(), token)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "declaration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load declaration", http.StatusInternalServerError)
		return
	}
	if d.Status == model.DeclarationSubmitted {
		http.Error(w, "declaration already submitted", http.StatusConflict)
		return
	}
	if d.Expired(time.Now()) {
		http.Error(w, "declaration link expired", http.StatusGone)
		return
	}
	writeJSON(w, http.StatusOK, toDeclarationPayload(d, false))
}

type submitDeclarationRequest struct {
	Token   string          `json:"token"`
	Answers json.RawMessage `json:"answers"`
}

func (h *DeclarationHandler) PublicSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitDeclarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || len(req.Answers) == 0 {
		http.Error(w, "token and answers required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d, err := h.repo.GetByTokenForUpdate(ctx, tx, req.Token)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "declaration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load declaration", http.StatusInternalServerError)
		return
	}
	if d.Status == model.DeclarationSubmitted {
		http.Error(w, "declaration already submitted", http.StatusConflict)
		return
	}
	if d.Expired(time.Now()) {
		http.Error(w, "declaration link expired", http.StatusGone)
		return
	}

	now := time.Now().UTC()
	if err := h.repo.Submit(ctx, tx, d.ID, req.Answers, now); err != nil {
		http.Error(w, "failed to submit declaration", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewEvent("declaration", d.ID, events.TopicDeclarationSubmitted, events.DeclarationSubmitted{
		DeclarationID: d.ID,
		ClinicID:      d.ClinicID,
		PatientID:     d.PatientID,
		AppointmentID: d.AppointmentID,
		SubmittedAt:   now.Format(time.RFC3339),
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

	d.Status = model.DeclarationSubmitted
	d.SubmittedAt = &now
	d.Answers = req.Answers
	writeJSON(w, http.StatusOK, toDeclarationPayload(d, false))
}
