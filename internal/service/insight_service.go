package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/ai"
	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
)

// InsightService feeds warehouse context into the AI adapter. It owns the
// data gathering; the adapter owns prompting and degraded parsing.
type InsightService struct {
	insighter *ai.Insighter
	metrics   *repository.MetricsRepository
	service   *MetricsService
	logger    *zap.Logger
}

// NewInsightService creates a new insight service
func NewInsightService(insighter *ai.Insighter, metrics *repository.MetricsRepository, metricsService *MetricsService, logger *zap.Logger) *InsightService {
	return &InsightService{
		insighter: insighter,
		metrics:   metrics,
		service:   metricsService,
		logger:    logger,
	}
}

// FraudRisk scores one invoice against the population profile.
func (s *InsightService) FraudRisk(ctx context.Context, invoiceID string) (*models.FraudAssessment, error) {
	stats, err := s.metrics.GetInvoiceStats(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice statistics: %w", err)
	}

	assessment := s.insighter.AssessFraudRisk(ctx, stats)
	return &assessment, nil
}

// Categorize classifies one invoice from its product names and total.
func (s *InsightService) Categorize(ctx context.Context, invoiceID string) (*models.CategoryResult, error) {
	products, total, err := s.metrics.GetProductSummary(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product summary: %w", err)
	}

	result := s.insighter.Categorize(ctx, invoiceID, products, total)
	return &result, nil
}

// Ask answers a free-form question grounded in current reconciliation state.
func (s *InsightService) Ask(ctx context.Context, question string) (*models.InsightResult, error) {
	metrics, err := s.service.GetMetrics(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.metrics.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load status counts: %w", err)
	}
	counts := make(map[string]int64, len(statusCounts))
	for status, count := range statusCounts {
		counts[status.String()] = count
	}

	result := s.insighter.Answer(ctx, question, metrics, counts)
	return &result, nil
}

// SpendInsights summarizes the monthly spend trend.
func (s *InsightService) SpendInsights(ctx context.Context) (*models.InsightResult, error) {
	months, err := s.metrics.GetMonthlySpend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly spend: %w", err)
	}

	result := s.insighter.SpendInsights(ctx, months)
	return &result, nil
}
