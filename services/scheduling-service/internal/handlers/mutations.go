package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/events"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
)

type rescheduleRequest struct {
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Hour          int    `json:"hour"`
}

type rescheduleResponse struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Reschedule moves an appointment to the hour cell it was dropped on. The
// minute offset within the hour is preserved, so a 10:15 appointment dragged
// to the 13:00 cell lands at 13:15.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.ClinicID == "" || req.AppointmentID == "" || req.Date == "" {
		http.Error(w, "clinic_id, appointment_id and date required", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.ClinicID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !appt.Status.OccupiesSlot() {
		http.Error(w, "cancelled appointment cannot be moved", http.StatusConflict)
		return
	}

	settings := h.settingsFor(ctx, req.ClinicID)
	if err := h.repo.LockDay(ctx, tx, req.ClinicID, date); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	destDay, err := h.repo.ListOnTx(ctx, tx, req.ClinicID, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	placement, err := schedule.ResolveDrop(appt, schedule.DropTarget{Date: date, Hour: req.Hour}, h.window(settings), destDay)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrOutOfOperatingHours):
			http.Error(w, "destination is outside operating hours", http.StatusUnprocessableEntity)
		case errors.Is(err, schedule.ErrSlotConflict):
			http.Error(w, "destination slot already booked", http.StatusConflict)
		default:
			http.Error(w, "failed to resolve destination", http.StatusInternalServerError)
		}
		return
	}

	prevMonth := monthOf(appt.Date)
	if err := h.repo.UpdateSlot(ctx, tx, req.ClinicID, appt.ID, model.Reschedule{Date: placement.Date, StartMinute: placement.StartMinute}); err != nil {
		http.Error(w, "failed to move appointment", http.StatusInternalServerError)
		return
	}
	appt.Date = placement.Date
	appt.StartMinute = placement.StartMinute

	if err := h.insertAppointmentEvent(ctx, tx, events.TopicAppointmentRescheduled, &appt, ""); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	// The move invalidates the reminders queued for the old slot; enqueue
	// replacements for the new one in the same transaction.
	h.enqueueReminders(ctx, tx, &appt)
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.dayCounts.Invalidate(ctx, req.ClinicID, prevMonth, monthOf(placement.Date))
	writeJSON(w, http.StatusOK, rescheduleResponse{
		AppointmentID: appt.ID,
		Date:          schedule.FormatDate(placement.Date),
		Time:          placement.Time(),
	})
}

type recurRequest struct {
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
	Recurrence    struct {
		Type    string `json:"type"`
		Count   int    `json:"count"`
		EndDate string `json:"end_date"`
	} `json:"recurrence"`
}

type recurResponse struct {
	SeedAppointmentID string   `json:"seed_appointment_id"`
	CreatedIDs        []string `json:"created_ids"`
	Skipped           []string `json:"skipped,omitempty"`
}

// Recur expands an existing appointment into a series. Occurrences whose slot
// is already taken are skipped and reported rather than failing the series.
func (h *AppointmentHandler) Recur(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recurRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.ClinicID == "" || req.AppointmentID == "" {
		http.Error(w, "clinic_id and appointment_id required", http.StatusBadRequest)
		return
	}

	rule := schedule.RecurrenceRule{
		Type:  schedule.RecurrenceType(strings.TrimSpace(req.Recurrence.Type)),
		Count: req.Recurrence.Count,
	}
	if raw := strings.TrimSpace(req.Recurrence.EndDate); raw != "" {
		endDate, err := schedule.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}
		rule.EndDate = endDate
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	seed, err := h.repo.GetForUpdate(ctx, tx, req.ClinicID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	occurrences, err := schedule.Expand(seed, rule)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(occurrences) == 0 {
		writeJSON(w, http.StatusOK, recurResponse{SeedAppointmentID: seed.ID, CreatedIDs: []string{}})
		return
	}

	last := occurrences[len(occurrences)-1]
	existing, err := h.repo.ListRange(ctx, req.ClinicID, seed.Date, last.Date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	settings := h.settingsFor(ctx, req.ClinicID)
	window := h.window(settings)
	months := map[string]struct{}{}

	resp := recurResponse{SeedAppointmentID: seed.ID, CreatedIDs: []string{}}
	for _, occ := range occurrences {
		iv := schedule.NewInterval(occ.StartMinute, occ.DurationMins)
		_, conflict := schedule.FindConflict(occ.Date, iv, occ.StaffID, "", existing)
		if conflict || !window.Contains(iv) {
			resp.Skipped = append(resp.Skipped, schedule.FormatDate(occ.Date))
			continue
		}

		created := occ
		id, err := h.repo.Create(ctx, tx, &created)
		if err != nil {
			if storage.IsConflict(err) {
				resp.Skipped = append(resp.Skipped, schedule.FormatDate(occ.Date))
				continue
			}
			http.Error(w, "failed to create occurrence", http.StatusInternalServerError)
			return
		}
		created.ID = id
		resp.CreatedIDs = append(resp.CreatedIDs, id)
		existing = append(existing, created)
		months[monthOf(created.Date)] = struct{}{}
	}

	evt, err := outbox.NewEvent("appointment", seed.ID, events.TopicSeriesCreated, events.SeriesCreatedEvent{
		SeedAppointmentID: seed.ID,
		ClinicID:          req.ClinicID,
		Recurrence:        string(rule.Type),
		CreatedIDs:        resp.CreatedIDs,
		Skipped:           resp.Skipped,
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

	for m := range months {
		h.dayCounts.Invalidate(ctx, req.ClinicID, m)
	}
	writeJSON(w, http.StatusCreated, resp)
}

type cancelRequest struct {
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// Cancel flips the appointment to cancelled and keeps the row. Cancelling an
// already cancelled appointment is a no-op that returns the current state.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.ClinicID == "" || req.AppointmentID == "" {
		http.Error(w, "clinic_id and appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.ClinicID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	if appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, cancelResponse{AppointmentID: appt.ID, Status: string(appt.Status)})
		return
	}

	if err := h.repo.Cancel(ctx, tx, req.ClinicID, appt.ID, req.Reason); err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	appt.Status = model.StatusCancelled

	if err := h.insertAppointmentEvent(ctx, tx, events.TopicAppointmentCancelled, &appt, req.Reason); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.dayCounts.Invalidate(ctx, req.ClinicID, monthOf(appt.Date))
	writeJSON(w, http.StatusOK, cancelResponse{AppointmentID: appt.ID, Status: string(appt.Status)})
}
