package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
	"github.com/docai-tools/invoice-reconciler/internal/service"
	"github.com/docai-tools/invoice-reconciler/pkg/database"
)

func newTestExporter(t *testing.T) (*Exporter, *database.DB) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	metrics := service.NewMetricsService(
		repository.NewMetricsRepository(db.DB, logger),
		models.AutomationReviewer,
		logger,
	)
	gold := repository.NewGoldRepository(db.DB, logger)

	return NewExporter(metrics, gold, logger), db
}

func seedReviewedInvoice(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO transact_totals (invoice_id, invoice_date, subtotal, tax, total)
		VALUES ('INV-001', '2026-01-15', 23.50, 2.35, 25.85)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO gold_invoice_items (invoice_id, product_name, quantity, unit_price, total_price, reviewed_by, reviewed_timestamp, notes)
		VALUES
			('INV-001', 'Coffee Beans', 2, 10.00, 20.00, 'alice', '2026-02-01 09:00:00', ''),
			('INV-001', 'Milk', 1, 3.50, 3.50, 'alice', '2026-02-01 09:00:00', '')
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO gold_invoice_totals (invoice_id, invoice_date, subtotal, tax, total, reviewed_by, reviewed_timestamp, notes)
		VALUES ('INV-001', '2026-01-15', 23.50, 2.35, 25.85, 'alice', '2026-02-01 09:00:00', 'verified against receipt')
	`)
	require.NoError(t, err)
}

func TestExporter_Write(t *testing.T) {
	exporter, db := newTestExporter(t)
	ctx := context.Background()

	seedReviewedInvoice(t, db)

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	t.Run("workbook carries all three sheets", func(t *testing.T) {
		assert.ElementsMatch(t,
			[]string{"Summary", "Gold Totals", "Gold Items"},
			f.GetSheetList())
	})

	t.Run("summary reflects warehouse counters", func(t *testing.T) {
		rows, err := f.GetRows("Summary")
		require.NoError(t, err)
		require.NotEmpty(t, rows)

		assert.Equal(t, []string{"Metric", "Value"}, rows[0][:2])

		values := make(map[string]string)
		for _, row := range rows[1:] {
			if len(row) >= 2 {
				values[row[0]] = row[1]
			}
		}
		assert.Equal(t, "1", values["Total invoices"])
		assert.Equal(t, "1", values["Reconciled invoices"])
	})

	t.Run("gold totals carry the reviewer stamp", func(t *testing.T) {
		rows, err := f.GetRows("Gold Totals")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "Invoice ID", rows[0][0])
		assert.Equal(t, "INV-001", rows[1][0])
		assert.Equal(t, "2026-01-15", rows[1][1])
		assert.Equal(t, "alice", rows[1][5])
		assert.Equal(t, "verified against receipt", rows[1][7])
	})

	t.Run("gold items list every line", func(t *testing.T) {
		rows, err := f.GetRows("Gold Items")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, "Coffee Beans", rows[1][1])
		assert.Equal(t, "Milk", rows[2][1])
	})
}

func TestExporter_WriteEmptyWarehouse(t *testing.T) {
	exporter, _ := newTestExporter(t)

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Gold Totals")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
