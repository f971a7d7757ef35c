package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/cache"
	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
)

// BronzeAccessor serves bronze snapshots through the cache. Reads never fail:
// an unknown invoice id or a degraded store read yields empty datasets.
type BronzeAccessor struct {
	repo   *repository.BronzeRepository
	cache  cache.SnapshotCache
	logger *zap.Logger
}

// NewBronzeAccessor creates a new bronze accessor
func NewBronzeAccessor(repo *repository.BronzeRepository, snapshots cache.SnapshotCache, logger *zap.Logger) *BronzeAccessor {
	return &BronzeAccessor{
		repo:   repo,
		cache:  snapshots,
		logger: logger,
	}
}

// GetSnapshot returns the four bronze datasets for one invoice, cached.
func (a *BronzeAccessor) GetSnapshot(ctx context.Context, invoiceID string) *models.BronzeSnapshot {
	if invoiceID == "" {
		return &models.BronzeSnapshot{}
	}

	if snapshot, ok := a.cache.Get(ctx, invoiceID); ok {
		return snapshot
	}

	snapshot := a.repo.GetSnapshot(ctx, invoiceID)
	if !snapshot.IsEmpty() {
		a.cache.Set(ctx, snapshot)
	}

	return snapshot
}

// Invalidate drops the cached snapshot after a gold commit.
func (a *BronzeAccessor) Invalidate(ctx context.Context, invoiceID string) {
	a.cache.Invalidate(ctx, invoiceID)
}
