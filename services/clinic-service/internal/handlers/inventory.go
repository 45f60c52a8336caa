package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/storage"
)

type InventoryHandler struct {
	repo   *storage.InventoryRepository
	logger *slog.Logger
}

func NewInventoryHandler(repo *storage.InventoryRepository, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{repo: repo, logger: logger}
}

type inventoryPayload struct {
	ItemID       string `json:"item_id,omitempty"`
	ClinicID     string `json:"clinic_id"`
	Name         string `json:"name"`
	SKU          string `json:"sku,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitCents    int64  `json:"unit_cents"`
	ReorderLevel int    `json:"reorder_level"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func (h *InventoryHandler) Items(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost, http.MethodPut:
		h.upsert(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	clinicID := queryParam(r, "clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	lowStock := queryParam(r, "low_stock") == "true"
	items, err := h.repo.List(r.Context(), clinicID, lowStock)
	if err != nil {
		http.Error(w, "failed to list inventory", http.StatusInternalServerError)
		return
	}
	out := make([]inventoryPayload, 0, len(items))
	for _, item := range items {
		out = append(out, inventoryPayload{
			ItemID:       item.ID,
			ClinicID:     item.ClinicID,
			Name:         item.Name,
			SKU:          item.SKU,
			Quantity:     item.Quantity,
			UnitCents:    item.UnitCents,
			ReorderLevel: item.ReorderLevel,
			UpdatedAt:    item.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req inventoryPayload
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
	if req.Quantity < 0 || req.UnitCents < 0 || req.ReorderLevel < 0 {
		http.Error(w, "quantity, unit_cents and reorder_level must not be negative", http.StatusBadRequest)
		return
	}

	id, err := h.repo.Upsert(r.Context(), &model.InventoryItem{
		ID:           strings.TrimSpace(req.ItemID),
		ClinicID:     req.ClinicID,
		Name:         req.Name,
		SKU:          strings.TrimSpace(req.SKU),
		Quantity:     req.Quantity,
		UnitCents:    req.UnitCents,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		http.Error(w, "failed to store item", http.StatusInternalServerError)
		return
	}
	req.ItemID = id
	writeJSON(w, http.StatusOK, req)
}

type adjustRequest struct {
	ClinicID string `json:"clinic_id"`
	ItemID   string `json:"item_id"`
	Delta    int    `json:"delta"`
}

func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ClinicID == "" || req.ItemID == "" || req.Delta == 0 {
		http.Error(w, "clinic_id, item_id and a non-zero delta required", http.StatusBadRequest)
		return
	}

	quantity, err := h.repo.Adjust(r.Context(), req.ClinicID, req.ItemID, req.Delta)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientStock) {
			http.Error(w, "insufficient stock", http.StatusConflict)
			return
		}
		if storage.IsNotFound(err) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to adjust stock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": req.ItemID, "quantity": quantity})
}
