package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"go.uber.org/zap"
)

// MetricsRepository computes the raw aggregates behind the dashboard counters
// and the statistical context used in fraud prompts. Ratios are derived by
// the metrics service, not here.
type MetricsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db *sql.DB, logger *zap.Logger) *MetricsRepository {
	return &MetricsRepository{
		db:     db,
		logger: logger,
	}
}

// GetAggregates returns the reconciliation counters and amounts. An invoice
// counts as reconciled only when it has rows in both gold tables.
func (r *MetricsRepository) GetAggregates(ctx context.Context, automationIdentity string) (*models.ReconciliationMetrics, error) {
	query := `
		SELECT
			(SELECT COUNT(DISTINCT invoice_id) FROM transact_totals),
			(SELECT COUNT(*) FROM gold_invoice_totals g
				WHERE EXISTS (SELECT 1 FROM gold_invoice_items gi WHERE gi.invoice_id = g.invoice_id)),
			(SELECT COUNT(*) FROM gold_invoice_totals g
				WHERE g.reviewed_by = ?
				AND EXISTS (SELECT 1 FROM gold_invoice_items gi WHERE gi.invoice_id = g.invoice_id)),
			(SELECT COUNT(*) FROM gold_invoice_totals WHERE notes IS NOT NULL AND notes <> ''),
			(SELECT COALESCE(SUM(total), 0) FROM transact_totals),
			(SELECT COALESCE(SUM(g.total), 0) FROM gold_invoice_totals g
				WHERE EXISTS (SELECT 1 FROM gold_invoice_items gi WHERE gi.invoice_id = g.invoice_id))
	`

	var m models.ReconciliationMetrics
	err := r.db.QueryRowContext(ctx, query, automationIdentity).Scan(
		&m.TotalInvoiceCount,
		&m.ReconciledInvoiceCount,
		&m.AutoReconciledInvoiceCount,
		&m.CorrectionsMade,
		&m.GrandTotalAmount,
		&m.TotalReconciledAmount,
	)
	if err != nil {
		r.logger.Error("Failed to compute reconciliation aggregates", zap.Error(err))
		return nil, fmt.Errorf("failed to compute aggregates: %w", err)
	}

	return &m, nil
}

// GetInvoiceStats returns the statistical context for one invoice: its total
// and date, item count, the system-wide mean and standard deviation, the
// resulting z-score, and how many invoices fall within 10% of its amount.
// Returns nil when the invoice has no transactional totals row.
func (r *MetricsRepository) GetInvoiceStats(ctx context.Context, invoiceID string) (*models.InvoiceStats, error) {
	stats := &models.InvoiceStats{InvoiceID: invoiceID}

	var invoiceDate sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT t.total, t.invoice_date,
			(SELECT COUNT(*) FROM transact_items i WHERE i.invoice_id = t.invoice_id)
		FROM transact_totals t
		WHERE t.invoice_id = ?
	`, invoiceID).Scan(&stats.Total, &invoiceDate, &stats.ItemCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to read invoice stats",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to read invoice stats: %w", err)
	}
	if invoiceDate.Valid {
		stats.InvoiceDate = invoiceDate.Time.Format("2006-01-02")
	}

	// sqlite has no STDDEV; derive it from sum and sum of squares.
	var count int64
	var sum, sumSquares float64
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(total * total), 0)
		FROM transact_totals
	`).Scan(&count, &sum, &sumSquares)
	if err != nil {
		return nil, fmt.Errorf("failed to read system stats: %w", err)
	}

	if count > 0 {
		stats.SystemAverage = sum / float64(count)
		variance := sumSquares/float64(count) - stats.SystemAverage*stats.SystemAverage
		if variance > 0 {
			stats.SystemStddev = math.Sqrt(variance)
		}
	}
	if stats.SystemStddev > 0 {
		stats.ZScore = (stats.Total - stats.SystemAverage) / stats.SystemStddev
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transact_totals WHERE ABS(total - ?) <= ? * 0.1
	`, stats.Total, stats.Total).Scan(&stats.SimilarCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count similar invoices: %w", err)
	}

	return stats, nil
}

// GetProductSummary returns the product names and amount sum for one invoice,
// feeding the categorization prompt. Empty product list when unknown.
func (r *MetricsRepository) GetProductSummary(ctx context.Context, invoiceID string) ([]string, float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_name, total_price
		FROM transact_items
		WHERE invoice_id = ?
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}
	defer rows.Close()

	var products []string
	var amount float64
	for rows.Next() {
		var name string
		var price float64
		if err := rows.Scan(&name, &price); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, name)
		amount += price
	}

	return products, amount, rows.Err()
}

// GetMonthlySpend returns per-month invoice counts and spend, oldest first.
func (r *MetricsRepository) GetMonthlySpend(ctx context.Context) ([]models.MonthlySpend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', invoice_date), COUNT(*), COALESCE(SUM(total), 0)
		FROM transact_totals
		WHERE invoice_date IS NOT NULL
		GROUP BY strftime('%Y-%m', invoice_date)
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly spend: %w", err)
	}
	defer rows.Close()

	var months []models.MonthlySpend
	for rows.Next() {
		var m models.MonthlySpend
		if err := rows.Scan(&m.Month, &m.InvoiceCount, &m.TotalSpend); err != nil {
			return nil, fmt.Errorf("failed to scan monthly spend: %w", err)
		}
		months = append(months, m)
	}

	return months, rows.Err()
}

// StatusCounts returns how many invoices sit in each totals-side status.
func (r *MetricsRepository) StatusCounts(ctx context.Context) (map[models.ReviewStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT review_status, COUNT(*)
		FROM reconcile_results_totals
		GROUP BY review_status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ReviewStatus]int64)
	for rows.Next() {
		var status models.ReviewStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}
