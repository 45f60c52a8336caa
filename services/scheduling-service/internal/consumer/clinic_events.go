package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/schedule"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// Wire shapes of the clinic events this service mirrors locally. Operating
// hours travel as "HH:MM" wall-clock strings and are stored as minutes.
type settingsUpdated struct {
	ClinicID     string `json:"clinic_id"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	SlotStepMins int    `json:"slot_step_minutes"`
	Timezone     string `json:"timezone"`
}

type serviceUpdated struct {
	ServiceID    string `json:"service_id"`
	ClinicID     string `json:"clinic_id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	Active       bool   `json:"active"`
}

type staffUpdated struct {
	StaffID  string `json:"staff_id"`
	ClinicID string `json:"clinic_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

type declarationSubmitted struct {
	DeclarationID string `json:"declaration_id"`
	ClinicID      string `json:"clinic_id"`
	AppointmentID string `json:"appointment_id"`
}

// SettingsHandler mirrors clinic.settings.updated.v1 into the local cache.
func SettingsHandler(cache *storage.ClinicCacheRepository) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt settingsUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode settings event: %w", err)
		}
		open, err := schedule.ParseClock(evt.OpenTime)
		if err != nil {
			return fmt.Errorf("settings event open_time: %w", err)
		}
		closeAt, err := schedule.ParseClock(evt.CloseTime)
		if err != nil {
			return fmt.Errorf("settings event close_time: %w", err)
		}
		return cache.UpsertSettings(ctx, storage.ClinicSettings{
			ClinicID:     evt.ClinicID,
			OpenMinute:   open,
			CloseMinute:  closeAt,
			SlotStepMins: evt.SlotStepMins,
			Timezone:     evt.Timezone,
		})
	}
}

func ServiceHandler(cache *storage.ClinicCacheRepository) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt serviceUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode service event: %w", err)
		}
		return cache.UpsertService(ctx, storage.ClinicService{
			ServiceID:    evt.ServiceID,
			ClinicID:     evt.ClinicID,
			Name:         evt.Name,
			DurationMins: evt.DurationMins,
			Active:       evt.Active,
		})
	}
}

// DeclarationHandler flips the appointment's declaration_status to submitted
// when the patient completes the tokenized health form. Declarations without
// an appointment reference are ignored.
func DeclarationHandler(repo *storage.AppointmentRepository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt declarationSubmitted
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode declaration event: %w", err)
		}
		if evt.AppointmentID == "" {
			return nil
		}
		err := repo.SetDeclarationStatus(ctx, evt.ClinicID, evt.AppointmentID, "submitted")
		if storage.IsNotFound(err) {
			logger.Warn("declaration for unknown appointment", "appointment_id", evt.AppointmentID, "declaration_id", evt.DeclarationID)
			return nil
		}
		return err
	}
}

func StaffHandler(cache *storage.ClinicCacheRepository) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt staffUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode staff event: %w", err)
		}
		return cache.UpsertStaff(ctx, storage.ClinicStaff{
			StaffID:  evt.StaffID,
			ClinicID: evt.ClinicID,
			Name:     evt.Name,
			Active:   evt.Active,
		})
	}
}
