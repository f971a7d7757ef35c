// Package report builds the downloadable reconciliation workbook.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/repository"
	"github.com/docai-tools/invoice-reconciler/internal/service"
)

// Sheet names in the exported workbook.
const (
	sheetSummary = "Summary"
	sheetTotals  = "Gold Totals"
	sheetItems   = "Gold Items"
)

// Exporter writes the reconciliation state as an Excel workbook: a summary
// sheet plus the reviewed gold totals and items.
type Exporter struct {
	metrics *service.MetricsService
	gold    *repository.GoldRepository
	logger  *zap.Logger
}

// NewExporter creates a new exporter
func NewExporter(metrics *service.MetricsService, gold *repository.GoldRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		metrics: metrics,
		gold:    gold,
		logger:  logger,
	}
}

// Write renders the workbook to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.fillSummary(ctx, f); err != nil {
		return err
	}
	if err := e.fillTotals(ctx, f); err != nil {
		return err
	}
	if err := e.fillItems(ctx, f); err != nil {
		return err
	}

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Reconciliation workbook exported")
	return nil
}

func (e *Exporter) fillSummary(ctx context.Context, f *excelize.File) error {
	m, err := e.metrics.GetMetrics(ctx)
	if err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total invoices", m.TotalInvoiceCount},
		{"Reconciled invoices", m.ReconciledInvoiceCount},
		{"Auto-reconciled invoices", m.AutoReconciledInvoiceCount},
		{"Corrections made", m.CorrectionsMade},
		{"Grand total amount", m.GrandTotalAmount},
		{"Reconciled amount", m.TotalReconciledAmount},
		{"Reconciled invoice ratio", m.ReconciledInvoiceRatio},
		{"Reconciled amount ratio", m.ReconciledAmountRatio},
	}

	for i, row := range rows {
		e.setRow(f, "Sheet1", i+1, row)
	}
	return nil
}

func (e *Exporter) fillTotals(ctx context.Context, f *excelize.File) error {
	totals, err := e.gold.ListTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gold totals: %w", err)
	}

	if _, err := f.NewSheet(sheetTotals); err != nil {
		return fmt.Errorf("failed to create totals sheet: %w", err)
	}

	e.setRow(f, sheetTotals, 1, []interface{}{
		"Invoice ID", "Invoice Date", "Subtotal", "Tax", "Total",
		"Reviewed By", "Reviewed At", "Notes",
	})
	for i, t := range totals {
		reviewedAt := ""
		if t.ReviewedTimestamp != nil {
			reviewedAt = t.ReviewedTimestamp.Format("2006-01-02 15:04:05")
		}
		e.setRow(f, sheetTotals, i+2, []interface{}{
			t.InvoiceID,
			t.InvoiceDate.Format("2006-01-02"),
			t.Subtotal,
			t.Tax,
			t.Total,
			t.ReviewedBy,
			reviewedAt,
			t.Notes,
		})
	}
	return nil
}

func (e *Exporter) fillItems(ctx context.Context, f *excelize.File) error {
	items, err := e.gold.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gold items: %w", err)
	}

	if _, err := f.NewSheet(sheetItems); err != nil {
		return fmt.Errorf("failed to create items sheet: %w", err)
	}

	e.setRow(f, sheetItems, 1, []interface{}{
		"Invoice ID", "Product", "Quantity", "Unit Price", "Total Price",
	})
	for i, item := range items {
		e.setRow(f, sheetItems, i+2, []interface{}{
			item.InvoiceID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
		})
	}
	return nil
}

// setRow writes one row starting at column A.
func (e *Exporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		e.logger.Warn("Failed to resolve cell", zap.Int("row", row), zap.Error(err))
		return
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		e.logger.Warn("Failed to set sheet row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
	}
}
