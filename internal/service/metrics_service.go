package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
)

// MetricsService derives the reconciliation completeness ratios from the raw
// aggregates. Ratios are always well defined: zero when nothing exists yet.
type MetricsService struct {
	repo               *repository.MetricsRepository
	automationIdentity string
	logger             *zap.Logger
}

// NewMetricsService creates a new metrics service
func NewMetricsService(repo *repository.MetricsRepository, automationIdentity string, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		repo:               repo,
		automationIdentity: automationIdentity,
		logger:             logger,
	}
}

// GetMetrics returns the dashboard counters with derived ratios.
func (s *MetricsService) GetMetrics(ctx context.Context) (*models.ReconciliationMetrics, error) {
	m, err := s.repo.GetAggregates(ctx, s.automationIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}

	m.ReconciledInvoiceRatio = ratio(
		decimal.NewFromInt(m.ReconciledInvoiceCount),
		decimal.NewFromInt(m.TotalInvoiceCount))
	m.ReconciledAmountRatio = ratio(
		decimal.NewFromFloat(m.TotalReconciledAmount),
		decimal.NewFromFloat(m.GrandTotalAmount))

	return m, nil
}

// ratio returns numerator/denominator rounded to four places, zero when the
// denominator is zero.
func ratio(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	f, _ := numerator.Div(denominator).Round(4).Float64()
	return f
}
