package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"go.uber.org/zap"
)

// ReconcileRepository reads the comparator-published review queue and flips
// per-invoice statuses on behalf of the gold record writer. The comparator
// itself is an external job; this repository never writes mismatch text.
type ReconcileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReconcileRepository creates a new reconcile repository
func NewReconcileRepository(db *sql.DB, logger *zap.Logger) *ReconcileRepository {
	return &ReconcileRepository{
		db:     db,
		logger: logger,
	}
}

// Queue returns the review queue filtered by status. Pending Review invoices
// sort first, then most recently touched.
func (r *ReconcileRepository) Queue(ctx context.Context, statusFilter string) ([]models.ReviewQueueEntry, error) {
	if !models.ValidStatusFilter(statusFilter) {
		return nil, fmt.Errorf("invalid status filter: %q", statusFilter)
	}

	query := `
		SELECT
			t.invoice_id,
			COALESCE(i.review_status, 'Pending Review'),
			t.review_status,
			COALESCE(t.mismatch_text, COALESCE(i.mismatch_text, '')),
			COALESCE(t.file_name, ''),
			COALESCE(t.reviewed_by, ''),
			t.last_modified
		FROM reconcile_results_totals t
		LEFT JOIN reconcile_results_items i ON i.invoice_id = t.invoice_id
		WHERE ? = 'All' OR t.review_status = ?
		ORDER BY
			CASE WHEN t.review_status = 'Pending Review' THEN 1 ELSE 2 END,
			t.last_modified DESC
	`

	rows, err := r.db.QueryContext(ctx, query, statusFilter, statusFilter)
	if err != nil {
		r.logger.Error("Failed to query review queue",
			zap.String("filter", statusFilter), zap.Error(err))
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	var entries []models.ReviewQueueEntry
	for rows.Next() {
		var entry models.ReviewQueueEntry
		if err := rows.Scan(
			&entry.InvoiceID,
			&entry.ItemsStatus,
			&entry.TotalsStatus,
			&entry.MismatchText,
			&entry.FileName,
			&entry.ReviewedBy,
			&entry.LastModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetEntry returns the queue entry for one invoice, or nil when the
// comparator has not touched it yet.
func (r *ReconcileRepository) GetEntry(ctx context.Context, invoiceID string) (*models.ReviewQueueEntry, error) {
	query := `
		SELECT
			t.invoice_id,
			COALESCE(i.review_status, 'Pending Review'),
			t.review_status,
			COALESCE(t.mismatch_text, COALESCE(i.mismatch_text, '')),
			COALESCE(t.file_name, ''),
			COALESCE(t.reviewed_by, ''),
			t.last_modified
		FROM reconcile_results_totals t
		LEFT JOIN reconcile_results_items i ON i.invoice_id = t.invoice_id
		WHERE t.invoice_id = ?
	`

	var entry models.ReviewQueueEntry
	err := r.db.QueryRowContext(ctx, query, invoiceID).Scan(
		&entry.InvoiceID,
		&entry.ItemsStatus,
		&entry.TotalsStatus,
		&entry.MismatchText,
		&entry.FileName,
		&entry.ReviewedBy,
		&entry.LastModified,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get queue entry",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return &entry, nil
}

// LastModified reads the totals-side status stamp inside a transaction. Used
// as the optimistic concurrency token during a gold commit; zero time when
// the comparator has not touched the invoice.
func (r *ReconcileRepository) LastModified(tx *sql.Tx, invoiceID string) (time.Time, error) {
	var stamp time.Time
	err := tx.QueryRow(
		"SELECT last_modified FROM reconcile_results_totals WHERE invoice_id = ?",
		invoiceID,
	).Scan(&stamp)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read status stamp: %w", err)
	}
	return stamp, nil
}

// UpdateStatus flips the review status of both reconcile tables for one
// invoice inside the caller's transaction, creating the rows when the
// comparator never produced them. last_modified is bumped so subsequent
// optimistic checks observe the commit.
func (r *ReconcileRepository) UpdateStatus(tx *sql.Tx, invoiceID string, status models.ReviewStatus, reviewedBy string, at time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid review status: %q", status)
	}

	for _, table := range []string{"reconcile_results_items", "reconcile_results_totals"} {
		insert := fmt.Sprintf(
			"INSERT OR IGNORE INTO %s (invoice_id, review_status) VALUES (?, 'Pending Review')", table)
		if _, err := tx.Exec(insert, invoiceID); err != nil {
			return fmt.Errorf("failed to seed %s: %w", table, err)
		}

		update := fmt.Sprintf(
			"UPDATE %s SET review_status = ?, reviewed_by = ?, last_modified = ? WHERE invoice_id = ?", table)
		if _, err := tx.Exec(update, status.String(), reviewedBy, at, invoiceID); err != nil {
			return fmt.Errorf("failed to update %s: %w", table, err)
		}
	}

	return nil
}

// SeedComparatorResult inserts or replaces a comparator row pair. This exists
// for the bulk loader and tests; the production comparator writes directly.
func (r *ReconcileRepository) SeedComparatorResult(ctx context.Context, invoiceID, fileName, mismatch string, status models.ReviewStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid review status: %q", status)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconcile_results_items (invoice_id, review_status, mismatch_text)
		VALUES (?, ?, ?)
		ON CONFLICT(invoice_id) DO UPDATE SET review_status = excluded.review_status, mismatch_text = excluded.mismatch_text
	`, invoiceID, status.String(), mismatch)
	if err != nil {
		return fmt.Errorf("failed to seed items result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reconcile_results_totals (invoice_id, review_status, mismatch_text, file_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(invoice_id) DO UPDATE SET review_status = excluded.review_status, mismatch_text = excluded.mismatch_text, file_name = excluded.file_name
	`, invoiceID, status.String(), mismatch, fileName)
	if err != nil {
		return fmt.Errorf("failed to seed totals result: %w", err)
	}

	return nil
}
