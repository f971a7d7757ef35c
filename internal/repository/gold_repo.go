package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"go.uber.org/zap"
)

// GoldRepository owns the authoritative gold tables. All writes are full
// per-invoice replacements and must run inside the caller's transaction so a
// failed insert rolls the delete back instead of leaving a partial record.
type GoldRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGoldRepository creates a new gold repository
func NewGoldRepository(db *sql.DB, logger *zap.Logger) *GoldRepository {
	return &GoldRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceItems deletes all gold items for the invoice and inserts the
// accepted rows, stamped with the reviewer identity and commit time.
func (r *GoldRepository) ReplaceItems(tx *sql.Tx, invoiceID string, items []models.LineItem, stamp models.GoldStamp) error {
	if _, err := tx.Exec("DELETE FROM gold_invoice_items WHERE invoice_id = ?", invoiceID); err != nil {
		return fmt.Errorf("failed to delete gold items: %w", err)
	}

	query := `
		INSERT INTO gold_invoice_items (
			invoice_id, product_name, quantity, unit_price, total_price,
			reviewed_by, reviewed_timestamp, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		_, err := tx.Exec(query,
			invoiceID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
			stamp.ReviewedBy,
			stamp.ReviewedAt,
			stamp.Notes,
		)
		if err != nil {
			r.logger.Error("Gold item insert failed mid-replace",
				zap.String("invoice_id", invoiceID),
				zap.String("partial_commit_averted", "rollback pending"),
				zap.Error(err))
			return fmt.Errorf("failed to insert gold item: %w", err)
		}
	}

	return nil
}

// ReplaceTotals deletes the gold totals row for the invoice and inserts the
// accepted one, stamped like the items.
func (r *GoldRepository) ReplaceTotals(tx *sql.Tx, invoiceID string, total models.InvoiceTotal, stamp models.GoldStamp) error {
	if _, err := tx.Exec("DELETE FROM gold_invoice_totals WHERE invoice_id = ?", invoiceID); err != nil {
		return fmt.Errorf("failed to delete gold totals: %w", err)
	}

	_, err := tx.Exec(`
		INSERT INTO gold_invoice_totals (
			invoice_id, invoice_date, subtotal, tax, total,
			reviewed_by, reviewed_timestamp, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		invoiceID,
		total.InvoiceDate,
		total.Subtotal,
		total.Tax,
		total.Total,
		stamp.ReviewedBy,
		stamp.ReviewedAt,
		stamp.Notes,
	)
	if err != nil {
		r.logger.Error("Gold totals insert failed mid-replace",
			zap.String("invoice_id", invoiceID),
			zap.String("partial_commit_averted", "rollback pending"),
			zap.Error(err))
		return fmt.Errorf("failed to insert gold totals: %w", err)
	}

	return nil
}

// GetItems returns the gold line items for one invoice, insert order.
func (r *GoldRepository) GetItems(ctx context.Context, invoiceID string) ([]models.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT invoice_id, product_name, quantity, unit_price, total_price
		FROM gold_invoice_items
		WHERE invoice_id = ?
		ORDER BY id
	`, invoiceID)
	if err != nil {
		r.logger.Error("Failed to get gold items",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get gold items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.InvoiceID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan gold item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetTotal returns the gold totals row for one invoice, nil when absent.
func (r *GoldRepository) GetTotal(ctx context.Context, invoiceID string) (*models.InvoiceTotal, error) {
	var total models.InvoiceTotal
	var invoiceDate sql.NullTime
	var reviewedAt sql.NullTime
	var notes sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT invoice_id, invoice_date, subtotal, tax, total,
			reviewed_by, reviewed_timestamp, notes
		FROM gold_invoice_totals
		WHERE invoice_id = ?
	`, invoiceID).Scan(
		&total.InvoiceID,
		&invoiceDate,
		&total.Subtotal,
		&total.Tax,
		&total.Total,
		&total.ReviewedBy,
		&reviewedAt,
		&notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get gold totals",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get gold totals: %w", err)
	}

	if invoiceDate.Valid {
		total.InvoiceDate = invoiceDate.Time
	}
	if reviewedAt.Valid {
		total.ReviewedTimestamp = &reviewedAt.Time
	}
	if notes.Valid {
		total.Notes = notes.String
	}

	return &total, nil
}

// ListTotals returns every gold totals row, ordered by invoice id. Used by
// the report exporter.
func (r *GoldRepository) ListTotals(ctx context.Context) ([]models.InvoiceTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT invoice_id, invoice_date, subtotal, tax, total,
			reviewed_by, reviewed_timestamp, notes
		FROM gold_invoice_totals
		ORDER BY invoice_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gold totals: %w", err)
	}
	defer rows.Close()

	var totals []models.InvoiceTotal
	for rows.Next() {
		var total models.InvoiceTotal
		var invoiceDate, reviewedAt sql.NullTime
		var notes sql.NullString
		if err := rows.Scan(
			&total.InvoiceID, &invoiceDate, &total.Subtotal, &total.Tax, &total.Total,
			&total.ReviewedBy, &reviewedAt, &notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan gold totals: %w", err)
		}
		if invoiceDate.Valid {
			total.InvoiceDate = invoiceDate.Time
		}
		if reviewedAt.Valid {
			total.ReviewedTimestamp = &reviewedAt.Time
		}
		if notes.Valid {
			total.Notes = notes.String
		}
		totals = append(totals, total)
	}

	return totals, rows.Err()
}

// ListItems returns every gold line item, ordered by invoice id then insert
// order. Used by the report exporter.
func (r *GoldRepository) ListItems(ctx context.Context) ([]models.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT invoice_id, product_name, quantity, unit_price, total_price
		FROM gold_invoice_items
		ORDER BY invoice_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gold items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.InvoiceID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan gold item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
