package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/postgres"
	"github.com/phrazzld/tahfidz-api/internal/platform/redis"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// familyInvalidator drops cached catalog entries for one family.
type familyInvalidator interface {
	Invalidate(ctx context.Context, family domain.ContentFamily) error
}

func seedFromConfig(ctx context.Context, cfg *config.Config, sf *catalog.SeedFile, log *slog.Logger) (*catalog.SeedSummary, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %s", redact.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", redact.Error(err)))
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %s", redact.Error(err))
	}

	var cache familyInvalidator
	if cfg.Redis.URL != "" {
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// Stale entries still expire on their TTL.
			log.Warn("redis unavailable, cached catalog entries will not be invalidated",
				slog.String("error", redact.Error(err)))
		} else {
			defer func() { _ = client.Close() }()
			cache = newCatalogCache(db, client, cfg, log)
		}
	}

	return seedDatabase(ctx, db, sf, cache, log)
}

func newCatalogCache(db *sql.DB, client goredis.Cmdable, cfg *config.Config, log *slog.Logger) *redis.CatalogCache {
	ttl := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
	return redis.NewCatalogCache(postgres.NewPostgresCatalogStore(db, log), client, ttl, log)
}

// seedDatabase writes sf in a single transaction, then invalidates the
// cache for every seeded family. cache may be nil.
func seedDatabase(
	ctx context.Context,
	db store.TxBeginner,
	sf *catalog.SeedFile,
	cache familyInvalidator,
	log *slog.Logger,
) (*catalog.SeedSummary, error) {
	var summary *catalog.SeedSummary
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		summary, err = catalog.Seed(ctx, postgres.NewPostgresCatalogStore(tx, log), sf, log)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	if cache != nil {
		for _, family := range summary.Families {
			if err := cache.Invalidate(ctx, family); err != nil {
				log.Warn("failed to invalidate catalog cache",
					slog.String("family", string(family)),
					slog.String("error", redact.Error(err)))
			}
		}
	}
	return summary, nil
}

func dryRunSeed(ctx context.Context, sf *catalog.SeedFile, log *slog.Logger) (*catalog.SeedSummary, error) {
	src := catalog.NewMemorySource()
	summary, err := catalog.Seed(ctx, src, sf, log)
	if err != nil {
		return nil, err
	}

	// Resolve each collection end to end so gaps show up in the log.
	resolver := catalog.NewResolver(src, log)
	for _, c := range sf.Collections {
		if len(c.Units) == 0 {
			continue
		}
		ref, err := domain.NewRef(domain.ContentFamily(c.Family), c.ID, 1, c.UnitCount)
		if err != nil {
			return nil, err
		}
		if _, err := resolver.Resolve(ctx, ref); err != nil {
			// Partial collections are allowed; the resolver logs what is missing.
			if errors.Is(err, catalog.ErrRangeNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve %s/%s: %w", c.Family, c.ID, err)
		}
	}
	return summary, nil
}
