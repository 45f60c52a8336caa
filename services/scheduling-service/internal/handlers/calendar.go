package handlers

import (
	"net/http"
	"time"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
)

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	StaffID       string `json:"staff_id,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	EndTime       string `json:"end_time"`
	DurationMins  int    `json:"duration_minutes"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type calendarDayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type calendarMonthResponse struct {
	Month string             `json:"month"`
	Days  []calendarDayCount `json:"days"`
}

type calendarHourCell struct {
	Hour         int               `json:"hour"`
	Appointments []appointmentItem `json:"appointments"`
}

type calendarDayResponse struct {
	Date  string             `json:"date"`
	Count int                `json:"count"`
	Hours []calendarHourCell `json:"hours"`
}

func toItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		ServiceID:     a.ServiceID,
		ServiceName:   a.ServiceName,
		StaffID:       a.StaffID,
		Date:          schedule.FormatDate(a.Date),
		Time:          schedule.FormatClock(a.StartMinute),
		EndTime:       schedule.FormatClock(a.EndMinute()),
		DurationMins:  a.DurationMins,
		Status:        string(a.Status),
		Notes:         a.Notes,
		CancelReason:  a.CancelReason,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	from, err := schedule.ParseDate(queryParam(r, "from"))
	if err != nil {
		http.Error(w, "invalid from date", http.StatusBadRequest)
		return
	}
	to, err := schedule.ParseDate(queryParam(r, "to"))
	if err != nil {
		http.Error(w, "invalid to date", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, "to must not precede from", http.StatusBadRequest)
		return
	}

	appts, err := h.repo.ListRange(r.Context(), clinicID, from, to)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// CalendarMonth returns per-day appointment counts for the month view.
// Counts exclude cancelled appointments and are served from Redis when warm.
func (h *AppointmentHandler) CalendarMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := queryParam(r, "clinic_id")
	monthStr := queryParam(r, "month")
	if clinicID == "" || monthStr == "" {
		http.Error(w, "clinic_id and month are required", http.StatusBadRequest)
		return
	}
	monthStart, err := time.ParseInLocation("2006-01", monthStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	counts, hit := h.dayCounts.Get(r.Context(), clinicID, monthStr)
	if !hit {
		monthEnd := monthStart.AddDate(0, 1, -1)
		appts, err := h.repo.ListRange(r.Context(), clinicID, monthStart, monthEnd)
		if err != nil {
			http.Error(w, "failed to load appointments", http.StatusInternalServerError)
			return
		}
		ix := schedule.BuildIndex(appts)
		counts = make(map[string]int, len(ix.DayCounts()))
		for key, n := range ix.DayCounts() {
			counts[schedule.FormatDate(time.Date(key.Year, key.Month, key.Day, 0, 0, 0, 0, time.UTC))] = n
		}
		h.dayCounts.Set(r.Context(), clinicID, monthStr, counts)
	}

	resp := calendarMonthResponse{Month: monthStr, Days: []calendarDayCount{}}
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	for d := 1; d <= daysInMonth; d++ {
		date := schedule.FormatDate(monthStart.AddDate(0, 0, d-1))
		if n := counts[date]; n > 0 {
			resp.Days = append(resp.Days, calendarDayCount{Date: date, Count: n})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalendarDay returns the day view grouped into hour cells, each cell ordered
// by start minute. Cancelled appointments stay visible with their status.
func (h *AppointmentHandler) CalendarDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(queryParam(r, "date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	appts, err := h.repo.ListOn(r.Context(), clinicID, date)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	ix := schedule.BuildIndex(appts)
	resp := calendarDayResponse{
		Date:  schedule.FormatDate(date),
		Count: ix.CountOn(schedule.DayKeyFor(date)),
		Hours: []calendarHourCell{},
	}
	for hour := 0; hour < 24; hour++ {
		cell := ix.At(schedule.SlotKey{Year: date.Year(), Month: date.Month(), Day: date.Day(), Hour: hour})
		if len(cell) == 0 {
			continue
		}
		items := make([]appointmentItem, 0, len(cell))
		for _, a := range cell {
			items = append(items, toItem(a))
		}
		resp.Hours = append(resp.Hours, calendarHourCell{Hour: hour, Appointments: items})
	}
	writeJSON(w, http.StatusOK, resp)
}
