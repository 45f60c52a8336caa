package storage

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/db"
	"github.com/glowdesk/glowdesk/services/clinic-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type InvoiceRepository struct {
	pool *db.Pool
}

func NewInvoiceRepository(pool *db.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a draft invoice with its lines in one transaction. The
// stored total is computed from the lines.
func (r *InvoiceRepository) Create(ctx context.Context, tx pgx.Tx, inv *model.Invoice) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices (clinic_id, patient_id, status, total_cents)
		VALUES ($1, $2, 'draft', $3)
		RETURNING id::text
	`, inv.ClinicID, inv.PatientID, inv.Total()).Scan(&id)
	if err != nil {
		return "", err
	}
	for _, line := range inv.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, description, quantity, unit_cents)
			VALUES ($1, $2, $3, $4)
		`, id, line.Description, line.Quantity, line.UnitCents); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *InvoiceRepository) Get(ctx context.Context, clinicID, invoiceID string) (model.Invoice, error) {
	var inv model.Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, clinic_id::text, patient_id::text, status, total_cents, issued_at, paid_at, created_at
		FROM invoices
		WHERE id = $1 AND clinic_id = $2
	`, invoiceID, clinicID).Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Status, &inv.TotalCents, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt)
	if err != nil {
		return model.Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, description, quantity, unit_cents
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line model.InvoiceLine
		if err := rows.Scan(&line.ID, &line.Description, &line.Quantity, &line.UnitCents); err != nil {
			return model.Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, clinicID, invoiceID string) (model.Invoice, error) {
	var inv model.Invoice
	err := tx.QueryRow(ctx, `
		SELECT id::text, clinic_id::text, patient_id::text, status, total_cents, issued_at, paid_at, created_at
		FROM invoices
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, invoiceID, clinicID).Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Status, &inv.TotalCents, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt)
	if err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepository) SetStatus(ctx context.Context, tx pgx.Tx, clinicID, invoiceID string, status model.InvoiceStatus, at time.Time) error {
	var column string
	switch status {
	case model.InvoiceIssued:
		column = "issued_at"
	case model.InvoicePaid:
		column = "paid_at"
	}
	query := `UPDATE invoices SET status = $3 WHERE id = $1 AND clinic_id = $2`
	if column != "" {
		query = `UPDATE invoices SET status = $3, ` + column + ` = $4 WHERE id = $1 AND clinic_id = $2`
	}

	var tag pgconn.CommandTag
	var err error
	if column != "" {
		tag, err = tx.Exec(ctx, query, invoiceID, clinicID, status, at)
	} else {
		tag, err = tx.Exec(ctx, query, invoiceID, clinicID, status)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *InvoiceRepository) List(ctx context.Context, clinicID string, status model.InvoiceStatus) ([]model.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, clinic_id::text, patient_id::text, status, total_cents, issued_at, paid_at, created_at
		FROM invoices
		WHERE clinic_id = $1
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, clinicID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Status, &inv.TotalCents, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
