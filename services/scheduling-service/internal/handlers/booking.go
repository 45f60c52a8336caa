package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/libs/outbox"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/events"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

type bookRequest struct {
	ClinicID     string `json:"clinic_id"`
	PatientID    string `json:"patient_id"`
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Notes        string `json:"notes"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}

// Slots lists the bookable grid for one clinic day. The grid step comes from
// the clinic settings; the requested service sets how long each slot must be.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := queryParam(r, "clinic_id")
	dateStr := queryParam(r, "date")
	serviceID := queryParam(r, "service_id")
	staffID := queryParam(r, "staff_id")
	if clinicID == "" || dateStr == "" {
		http.Error(w, "clinic_id and date are required", http.StatusBadRequest)
		return
	}

	date, err := schedule.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	settings := h.settingsFor(r.Context(), clinicID)
	durationMins, _, ok := h.resolveDuration(r.Context(), clinicID, serviceID, r)
	if !ok {
		http.Error(w, "unknown service", http.StatusUnprocessableEntity)
		return
	}

	existing, err := h.repo.ListOn(r.Context(), clinicID, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	slots := schedule.SlotsForDay(h.window(settings), durationMins, settings.SlotStepMins, existing, staffID)
	if slots == nil {
		slots = []schedule.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.ClinicID == "" || req.PatientName == "" || req.ServiceID == "" || req.Date == "" || req.Time == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	startMinute, err := schedule.ParseClock(req.Time)
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	settings := h.settingsFor(ctx, req.ClinicID)
	durationMins, serviceName, ok := h.resolveDuration(ctx, req.ClinicID, req.ServiceID, r)
	if !ok {
		http.Error(w, "unknown service", http.StatusUnprocessableEntity)
		return
	}

	iv := schedule.NewInterval(startMinute, durationMins)
	if !h.window(settings).Contains(iv) {
		http.Error(w, "requested time is outside operating hours", http.StatusUnprocessableEntity)
		return
	}

	appt := &model.Appointment{
		ClinicID:     req.ClinicID,
		PatientID:    req.PatientID,
		PatientName:  req.PatientName,
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		ServiceID:    req.ServiceID,
		ServiceName:  serviceName,
		StaffID:      req.StaffID,
		DurationMins: durationMins,
		Date:         date,
		StartMinute:  startMinute,
		Status:       model.StatusPending,
		Notes:        strings.TrimSpace(req.Notes),
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.LockDay(ctx, tx, req.ClinicID, date); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	sameDay, err := h.repo.ListOnTx(ctx, tx, req.ClinicID, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	if blocker, conflict := schedule.FindConflict(date, iv, req.StaffID, "", sameDay); conflict {
		h.logger.Info("booking rejected", "clinic_id", req.ClinicID, "blocker_id", blocker.ID)
		http.Error(w, "time slot already booked", http.StatusConflict)
		return
	}

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	if err := h.insertAppointmentEvent(ctx, tx, events.TopicAppointmentBooked, appt, ""); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	h.enqueueReminders(ctx, tx, appt)

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.dayCounts.Invalidate(ctx, req.ClinicID, monthOf(date))
	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: id,
		Date:          schedule.FormatDate(date),
		Time:          schedule.FormatClock(startMinute),
		Status:        string(appt.Status),
	})
}

// resolveDuration looks the service up in the clinic catalog cache. When the
// catalog has no row yet, an explicit duration_minutes query parameter keeps
// bookings working during a cold start.
func (h *AppointmentHandler) resolveDuration(ctx context.Context, clinicID, serviceID string, r *http.Request) (int, string, bool) {
	if serviceID != "" {
		svc, ok, err := h.clinics.GetService(ctx, clinicID, serviceID)
		if err != nil {
			h.logger.Warn("service lookup failed", "service_id", serviceID, "err", err)
		}
		if ok {
			if !svc.Active || svc.DurationMins <= 0 {
				return 0, "", false
			}
			return svc.DurationMins, svc.Name, true
		}
	}
	if v := queryParam(r, "duration_minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 8*60 {
			return n, queryParam(r, "service_name"), true
		}
	}
	return 0, "", false
}

func (h *AppointmentHandler) insertAppointmentEvent(ctx context.Context, tx pgx.Tx, eventType string, appt *model.Appointment, cancelReason string) error {
	evt, err := outbox.NewEvent("appointment", appt.ID, eventType, events.AppointmentEvent{
		AppointmentID: appt.ID,
		ClinicID:      appt.ClinicID,
		PatientID:     appt.PatientID,
		PatientName:   appt.PatientName,
		ServiceID:     appt.ServiceID,
		ServiceName:   appt.ServiceName,
		StaffID:       appt.StaffID,
		Date:          schedule.FormatDate(appt.Date),
		Time:          schedule.FormatClock(appt.StartMinute),
		StartsAt:      h.startsAt(appt.Date, appt.StartMinute).UTC(),
		DurationMins:  appt.DurationMins,
		Status:        string(appt.Status),
		CancelReason:  cancelReason,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, evt)
}

// enqueueReminders writes reminder.requested events for the appointment's
// current slot. Book and Reschedule both call it, so a moved appointment gets
// fresh reminders for the new time.
func (h *AppointmentHandler) enqueueReminders(ctx context.Context, tx pgx.Tx, appt *model.Appointment) {
	evts, err := reminderRequests(appt, h.reminderOffsets, h.startsAt(appt.Date, appt.StartMinute), time.Now())
	if err != nil {
		h.logger.Error("failed to build reminder payload", "err", err)
		return
	}
	for _, evt := range evts {
		if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
			h.logger.Error("failed to enqueue reminder", "err", err)
		}
	}
}

// reminderRequests builds one event per configured offset and populated
// contact channel. Offsets whose remind time has already passed produce
// nothing.
func reminderRequests(appt *model.Appointment, offsets []time.Duration, startsAt, now time.Time) ([]outbox.Event, error) {
	channels := []struct {
		name      string
		recipient string
	}{
		{"email", strings.TrimSpace(appt.PatientEmail)},
		{"sms", strings.TrimSpace(appt.PatientPhone)},
	}

	var evts []outbox.Event
	for _, offset := range offsets {
		remindAt := startsAt.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		for _, ch := range channels {
			if ch.recipient == "" {
				continue
			}
			evt, err := outbox.NewEvent("appointment", appt.ID, events.TopicReminderRequested, events.ReminderRequest{
				AppointmentID: appt.ID,
				ClinicID:      appt.ClinicID,
				PatientID:     appt.PatientID,
				PatientName:   appt.PatientName,
				ServiceName:   appt.ServiceName,
				Channel:       ch.name,
				Recipient:     ch.recipient,
				RemindAt:      remindAt.UTC(),
				StartsAt:      startsAt.UTC(),
			})
			if err != nil {
				return nil, err
			}
			evts = append(evts, evt)
		}
	}
	return evts, nil
}
