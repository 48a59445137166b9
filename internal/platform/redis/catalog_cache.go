package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

const (
	catalogKeyPrefix       = "catalog:"
	defaultCatalogCacheTTL = 5 * time.Minute
)

// CatalogCache is a read-through cache in front of a catalog.Source.
// Collection metadata is cached as JSON; units always come from the source.
// Redis failures are logged and fall back to the source.
type CatalogCache struct {
	source catalog.Source
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ catalog.Source = (*CatalogCache)(nil)

// NewCatalogCache wraps source. A non-positive ttl selects five minutes.
func NewCatalogCache(source catalog.Source, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	if source == nil {
		panic("source cannot be nil")
	}
	if client == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogCache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "catalog_cache")),
	}
}

func collectionKey(family domain.ContentFamily, id string) string {
	return catalogKeyPrefix + "collection:" + string(family) + ":" + id
}

func collectionsKey(family domain.ContentFamily) string {
	return catalogKeyPrefix + "collections:" + string(family)
}

// GetCollection implements catalog.Source.
func (c *CatalogCache) GetCollection(ctx context.Context, family domain.ContentFamily, id string) (*domain.Collection, error) {
	key := collectionKey(family, id)

	var cached domain.Collection
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	coll, err := c.source.GetCollection(ctx, family, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, coll)
	return coll, nil
}

// GetUnits implements catalog.Source.
func (c *CatalogCache) GetUnits(ctx context.Context, family domain.ContentFamily, id string, start, end int) ([]domain.Unit, error) {
	return c.source.GetUnits(ctx, family, id, start, end)
}

// ListCollections implements catalog.Source.
func (c *CatalogCache) ListCollections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error) {
	key := collectionsKey(family)

	var cached []domain.Collection
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	list, err := c.source.ListCollections(ctx, family)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, list)
	return list, nil
}

// Invalidate drops every cached entry for family. The seed command calls
// it after rewriting a family's collections.
func (c *CatalogCache) Invalidate(ctx context.Context, family domain.ContentFamily) error {
	pattern := collectionKey(family, "*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	keys := []string{collectionsKey(family)}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *CatalogCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContextOrDefault(ctx, c.logger).Warn("catalog cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("discarding corrupt catalog cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		_ = c.client.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *CatalogCache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("catalog cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
