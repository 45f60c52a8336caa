package storage

import (
	"context"
	"errors"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryRepository struct {
	pool *db.Pool
}

func NewInventoryRepository(pool *db.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) Upsert(ctx context.Context, item *model.InventoryItem) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (id, clinic_id, name, sku, quantity, unit_cents, reorder_level, updated_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sku = EXCLUDED.sku,
			unit_cents = EXCLUDED.unit_cents,
			reorder_level = EXCLUDED.reorder_level,
			updated_at = now()
		RETURNING id::text
	`, item.ID, item.ClinicID, item.Name, item.SKU, item.Quantity, item.UnitCents, item.ReorderLevel).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Adjust applies a signed quantity delta. Stock never goes negative; the
// guard lives in the WHERE clause so concurrent adjustments stay correct.
func (r *InventoryRepository) Adjust(ctx context.Context, clinicID, itemID string, delta int) (int, error) {
	var quantity int
	err := r.pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + $3, updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND quantity + $3 >= 0
		RETURNING quantity
	`, itemID, clinicID, delta).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the item does not exist or the delta would drive stock negative.
		var exists bool
		if checkErr := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM inventory_items WHERE id = $1 AND clinic_id = $2)
		`, itemID, clinicID).Scan(&exists); checkErr != nil {
			return 0, checkErr
		}
		if exists {
			return 0, ErrInsufficientStock
		}
		return 0, pgx.ErrNoRows
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (r *InventoryRepository) List(ctx context.Context, clinicID string, lowStockOnly bool) ([]model.InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, name, COALESCE(sku, ''), quantity, unit_cents, reorder_level, updated_at
		FROM inventory_items
		WHERE clinic_id = $1
			AND ($2 = false OR quantity <= reorder_level)
		ORDER BY name
	`, clinicID, lowStockOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.ID, &item.ClinicID, &item.Name, &item.SKU, &item.Quantity, &item.UnitCents, &item.ReorderLevel, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
