package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/events"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/storage"
)

type PatientHandler struct {
	patients   *storage.PatientRepository
	leads      *storage.LeadRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewPatientHandler(patients *storage.PatientRepository, leads *storage.LeadRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, leads: leads, outboxRepo: outboxRepo, logger: logger}
}

type patientPayload struct {
	PatientID string `json:"patient_id,omitempty"`
	ClinicID  string `json:"clinic_id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toPatientPayload(p model.Patient) patientPayload {
	out := patientPayload{
		PatientID: p.ID,
		ClinicID:  p.ClinicID,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Email:     p.Email,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.BirthDate != nil {
		out.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	return out
}

func (h *PatientHandler) Patients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.search(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PatientHandler) search(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	if patientID := queryParam(r, "patient_id"); patientID != "" {
		p, err := h.patients.Get(r.Context(), clinicID, patientID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "patient not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load patient", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toPatientPayload(p))
		return
	}

	limit := 50
	if raw := queryParam(r, "limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	patients, err := h.patients.Search(r.Context(), clinicID, queryParam(r, "q"), limit)
	if err != nil {
		http.Error(w, "failed to search patients", http.StatusInternalServerError)
		return
	}
	items := make([]patientPayload, 0, len(patients))
	for _, p := range patients {
		items = append(items, toPatientPayload(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PatientHandler) create(w http.ResponseWriter, r *http.Request) {
	var req patientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.ClinicID == "" || req.FullName == "" {
		http.Error(w, "clinic_id and full_name required", http.StatusBadRequest)
		return
	}

	p := &model.Patient{
		ClinicID: req.ClinicID,
		FullName: req.FullName,
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Notes:    strings.TrimSpace(req.Notes),
	}
	if raw := strings.TrimSpace(req.BirthDate); raw != "" {
		birth, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid birth_date", http.StatusBadRequest)
			return
		}
		p.BirthDate = &birth
	}

	ctx := r.Context()
	tx, err := h.patients.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.patients.Create(ctx, tx, p)
	if err != nil {
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	req.PatientID = id
	writeJSON(w, http.StatusCreated, req)
}

func (h *PatientHandler) update(w http.ResponseWriter, r *http.Request) {
	var req patientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.ClinicID == "" || req.PatientID == "" || req.FullName == "" {
		http.Error(w, "clinic_id, patient_id and full_name required", http.StatusBadRequest)
		return
	}

	p := &model.Patient{
		ID:       req.PatientID,
		ClinicID: req.ClinicID,
		FullName: req.FullName,
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Notes:    strings.TrimSpace(req.Notes),
	}
	if raw := strings.TrimSpace(req.BirthDate); raw != "" {
		birth, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid birth_date", http.StatusBadRequest)
			return
		}
		p.BirthDate = &birth
	}

	if err := h.patients.Update(r.Context(), p); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type leadPayload struct {
	LeadID    string `json:"lead_id,omitempty"`
	ClinicID  string `json:"clinic_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h *PatientHandler) Leads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listLeads(w, r)
	case http.MethodPost:
		h.createLead(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PatientHandler) listLeads(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	status := model.LeadStatus(queryParam(r, "status"))
	if status != "" && !status.Valid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	leads, err := h.leads.List(r.Context(), clinicID, status)
	if err != nil {
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	items := make([]leadPayload, 0, len(leads))
	for _, l := range leads {
		items = append(items, leadPayload{
			LeadID:    l.ID,
			ClinicID:  l.ClinicID,
			Name:      l.Name,
			Phone:     l.Phone,
			Email:     l.Email,
			Source:    l.Source,
			Status:    string(l.Status),
			Notes:     l.Notes,
			PatientID: l.PatientID,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PatientHandler) createLead(w http.ResponseWriter, r *http.Request) {
	var req leadPayload
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

	id, err := h.leads.Create(r.Context(), &model.Lead{
		ClinicID: req.ClinicID,
		Name:     req.Name,
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Source:   strings.TrimSpace(req.Source),
		Status:   model.LeadNew,
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}
	req.LeadID = id
	req.Status = string(model.LeadNew)
	writeJSON(w, http.StatusCreated, req)
}

type leadStatusRequest struct {
	ClinicID string `json:"clinic_id"`
	LeadID   string `json:"lead_id"`
	Status   string `json:"status"`
}

func (h *PatientHandler) LeadStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req leadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	status := model.LeadStatus(strings.TrimSpace(req.Status))
	if !status.Valid() || status == model.LeadConverted {
		// Conversion goes through the convert endpoint so a patient record exists.
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if err := h.leads.UpdateStatus(r.Context(), strings.TrimSpace(req.ClinicID), strings.TrimSpace(req.LeadID), status); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lead_id": req.LeadID, "status": string(status)})
}

type convertLeadRequest struct {
	ClinicID string `json:"clinic_id"`
	LeadID   string `json:"lead_id"`
}

// ConvertLead creates a patient from the lead's contact details and marks the
// lead converted, atomically. Converting twice returns the existing patient.
func (h *PatientHandler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req convertLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.LeadID = strings.TrimSpace(req.LeadID)
	if req.ClinicID == "" || req.LeadID == "" {
		http.Error(w, "clinic_id and lead_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.leads.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := h.leads.GetForUpdate(ctx, tx, req.ClinicID, req.LeadID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}
	if lead.Status == model.LeadConverted {
		writeJSON(w, http.StatusOK, map[string]string{"lead_id": lead.ID, "patient_id": lead.PatientID, "status": string(lead.Status)})
		return
	}

	patientID, err := h.patients.Create(ctx, tx, &model.Patient{
		ClinicID: lead.ClinicID,
		FullName: lead.Name,
		Phone:    lead.Phone,
		Email:    lead.Email,
		Notes:    lead.Notes,
	})
	if err != nil {
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	if err := h.leads.MarkConverted(ctx, tx, req.ClinicID, lead.ID, patientID); err != nil {
		http.Error(w, "failed to convert lead", http.StatusInternalServerError)
		return
	}

	evt, err := outbox.NewEvent("lead", lead.ID, events.TopicLeadConverted, events.LeadConverted{
		LeadID:    lead.ID,
		ClinicID:  lead.ClinicID,
		PatientID: patientID,
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
	writeJSON(w, http.StatusOK, map[string]string{"lead_id": lead.ID, "patient_id": patientID, "status": string(model.LeadConverted)})
}
