// Package cache holds the bronze snapshot cache. Correctness never depends
// on it: every miss or cache failure falls through to the store, and gold
// commits invalidate the committed invoice.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/models"
)

// SnapshotCache is the read-through cache used by the bronze accessor.
type SnapshotCache interface {
	// Get returns a cached snapshot and whether it was present
	Get(ctx context.Context, invoiceID string) (*models.BronzeSnapshot, bool)

	// Set stores a snapshot under its invoice id
	Set(ctx context.Context, snapshot *models.BronzeSnapshot)

	// Invalidate drops the snapshot for one invoice
	Invalidate(ctx context.Context, invoiceID string)
}

// RedisSnapshotCache keeps bronze snapshots in Redis with a TTL matching the
// dashboard's five minute read window.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSnapshotCache builds a Redis-backed snapshot cache.
func NewRedisSnapshotCache(addr string, db int, ttl time.Duration, logger *zap.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ttl:    ttl,
		logger: logger,
	}
}

// NewRedisSnapshotCacheWithClient wraps an existing client. Tests inject a
// miniredis-backed client here.
func NewRedisSnapshotCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func snapshotKey(invoiceID string) string {
	return "bronze:" + invoiceID
}

// Get returns the cached snapshot for the invoice, if any. Failures count as
// misses.
func (c *RedisSnapshotCache) Get(ctx context.Context, invoiceID string) (*models.BronzeSnapshot, bool) {
	val, err := c.client.Get(ctx, snapshotKey(invoiceID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Snapshot cache read failed",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, false
	}

	var snapshot models.BronzeSnapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		c.logger.Warn("Snapshot cache entry corrupt, dropping",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		c.Invalidate(ctx, invoiceID)
		return nil, false
	}

	return &snapshot, true
}

// Set stores the snapshot with the configured TTL. Failures are logged only.
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *models.BronzeSnapshot) {
	if snapshot == nil || snapshot.InvoiceID == "" {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("Snapshot cache marshal failed",
			zap.String("invoice_id", snapshot.InvoiceID), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, snapshotKey(snapshot.InvoiceID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Snapshot cache write failed",
			zap.String("invoice_id", snapshot.InvoiceID), zap.Error(err))
	}
}

// Invalidate drops the cached snapshot for the invoice.
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, invoiceID string) {
	if err := c.client.Del(ctx, snapshotKey(invoiceID)).Err(); err != nil && err != redis.Nil {
		c.logger.Warn("Snapshot cache invalidation failed",
			zap.String("invoice_id", invoiceID), zap.Error(err))
	}
}

// Close releases the underlying client.
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

// NoopCache satisfies SnapshotCache when caching is disabled.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(ctx context.Context, invoiceID string) (*models.BronzeSnapshot, bool) {
	return nil, false
}

// Set does nothing.
func (NoopCache) Set(ctx context.Context, snapshot *models.BronzeSnapshot) {}

// Invalidate does nothing.
func (NoopCache) Invalidate(ctx context.Context, invoiceID string) {}
