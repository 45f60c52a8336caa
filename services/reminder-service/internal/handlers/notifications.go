package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/services/reminder-service/internal/jobs"
)

type NotificationsHandler struct {
	repo   *jobs.NotificationsRepository
	logger *slog.Logger
}

func NewNotificationsHandler(repo *jobs.NotificationsRepository, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{repo: repo, logger: logger}
}

type deliveryItem struct {
	AppointmentID string `json:"appointment_id"`
	Channel       string `json:"channel"`
	Recipient     string `json:"recipient"`
	Provider      string `json:"provider"`
	SentAt        string `json:"sent_at"`
}

// Log lists what was actually delivered for a clinic, newest first.
func (h *NotificationsHandler) Log(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clinicID := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	deliveries, err := h.repo.ListByClinic(r.Context(), clinicID, limit)
	if err != nil {
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	items := make([]deliveryItem, 0, len(deliveries))
	for _, d := range deliveries {
		items = append(items, deliveryItem{
			AppointmentID: d.AppointmentID,
			Channel:       d.Channel,
			Recipient:     d.Recipient,
			Provider:      d.Provider,
			SentAt:        d.SentAt.UTC().Format(time.RFC3339),
		})
	}
	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
