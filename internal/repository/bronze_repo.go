package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"go.uber.org/zap"
)

// BronzeRepository reads the raw extraction tables for both upstream sources.
// Reads never fail the caller: an unknown invoice id yields empty datasets and
// a store error degrades the affected dataset to empty with a warning.
type BronzeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBronzeRepository creates a new bronze repository
func NewBronzeRepository(db *sql.DB, logger *zap.Logger) *BronzeRepository {
	return &BronzeRepository{
		db:     db,
		logger: logger,
	}
}

// GetSnapshot returns the four bronze datasets for one invoice.
func (r *BronzeRepository) GetSnapshot(ctx context.Context, invoiceID string) *models.BronzeSnapshot {
	snapshot := &models.BronzeSnapshot{InvoiceID: invoiceID}
	if invoiceID == "" {
		return snapshot
	}

	snapshot.TransactItems = r.queryItems(ctx, "transact_items", invoiceID)
	snapshot.TransactTotals = r.queryTotals(ctx, "transact_totals", invoiceID)
	snapshot.DocumentAIItems = r.queryItems(ctx, "docai_invoice_items", invoiceID)
	snapshot.DocumentAITotals = r.queryTotals(ctx, "docai_invoice_totals", invoiceID)

	return snapshot
}

// ListInvoiceIDs returns the distinct transactional invoice ids, ordered.
func (r *BronzeRepository) ListInvoiceIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT invoice_id FROM transact_totals ORDER BY invoice_id")
	if err != nil {
		r.logger.Error("Failed to list invoice ids", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invoice id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BronzeRepository) queryItems(ctx context.Context, table, invoiceID string) []models.LineItem {
	// Table names come from the fixed set above, never from callers.
	query := fmt.Sprintf(`
		SELECT invoice_id, product_name, quantity, unit_price, total_price
		FROM %s
		WHERE invoice_id = ?
		ORDER BY id
	`, table)

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Warn("Bronze item read failed, returning empty set",
			zap.String("table", table),
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return nil
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.InvoiceID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			r.logger.Warn("Bronze item scan failed, returning empty set",
				zap.String("table", table), zap.Error(err))
			return nil
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn("Bronze item iteration failed, returning empty set",
			zap.String("table", table), zap.Error(err))
		return nil
	}
	return items
}

func (r *BronzeRepository) queryTotals(ctx context.Context, table, invoiceID string) []models.InvoiceTotal {
	query := fmt.Sprintf(`
		SELECT invoice_id, invoice_date, subtotal, tax, total
		FROM %s
		WHERE invoice_id = ?
	`, table)

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Warn("Bronze total read failed, returning empty set",
			zap.String("table", table),
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return nil
	}
	defer rows.Close()

	var totals []models.InvoiceTotal
	for rows.Next() {
		var total models.InvoiceTotal
		var invoiceDate sql.NullTime
		if err := rows.Scan(&total.InvoiceID, &invoiceDate, &total.Subtotal, &total.Tax, &total.Total); err != nil {
			r.logger.Warn("Bronze total scan failed, returning empty set",
				zap.String("table", table), zap.Error(err))
			return nil
		}
		if invoiceDate.Valid {
			total.InvoiceDate = invoiceDate.Time
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn("Bronze total iteration failed, returning empty set",
			zap.String("table", table), zap.Error(err))
		return nil
	}
	return totals
}
