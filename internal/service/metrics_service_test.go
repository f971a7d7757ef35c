package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/models"
)

func TestMetricsService_GetMetrics(t *testing.T) {
	env := newReviewEnv(t)
	ctx := context.Background()
	svc := NewMetricsService(env.metrics, models.AutomationReviewer, zap.NewNop())

	t.Run("empty warehouse yields zero ratios, not a division error", func(t *testing.T) {
		m, err := svc.GetMetrics(ctx)
		require.NoError(t, err)

		assert.Zero(t, m.TotalInvoiceCount)
		assert.Zero(t, m.ReconciledInvoiceRatio)
		assert.Zero(t, m.ReconciledAmountRatio)
	})

	env.seedBronze(t, "INV-001")
	env.seedBronze(t, "INV-002")

	accepted, err := env.service.Accept(ctx, AcceptRequest{
		InvoiceID:  "INV-001",
		Source:     models.SourceTransactional,
		ReviewedBy: "alice",
	})
	require.NoError(t, err)
	_, err = env.service.Commit(ctx, accepted)
	require.NoError(t, err)

	t.Run("ratios derive from counts and amounts", func(t *testing.T) {
		m, err := svc.GetMetrics(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(2), m.TotalInvoiceCount)
		assert.Equal(t, int64(1), m.ReconciledInvoiceCount)
		assert.InDelta(t, 0.5, m.ReconciledInvoiceRatio, 0.0001)
		// 25.85 reconciled out of 51.70 across both invoices.
		assert.InDelta(t, 0.5, m.ReconciledAmountRatio, 0.0001)
	})
}
