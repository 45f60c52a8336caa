package jobs

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
)

type Delivery struct {
	ID            int64
	AppointmentID string
	ClinicID      string
	Channel       string
	Recipient     string
	Provider      string
	SentAt        time.Time
}

// NotificationsRepository reads the delivery log.
type NotificationsRepository struct {
	pool *db.Pool
}

func NewNotificationsRepository(pool *db.Pool) *NotificationsRepository {
	return &NotificationsRepository{pool: pool}
}

func (r *NotificationsRepository) ListByClinic(ctx context.Context, clinicID string, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id::text, clinic_id::text, channel, recipient, provider, sent_at
		FROM notifications_log
		WHERE clinic_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, clinicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.AppointmentID, &d.ClinicID, &d.Channel, &d.Recipient, &d.Provider, &d.SentAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
