package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/api/middleware"
	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/domain/srs"
	"github.com/phrazzld/tahfidz-api/internal/platform/gemini"
	"github.com/phrazzld/tahfidz-api/internal/platform/postgres"
	"github.com/phrazzld/tahfidz-api/internal/platform/redis"
	"github.com/phrazzld/tahfidz-api/internal/ratelimit"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
	"github.com/phrazzld/tahfidz-api/internal/service/review"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

// application holds the shared dependencies of the server and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	catalog           *catalog.Resolver
	recitationService recitation.Service
	reviewService     review.Service
	auth              *middleware.AuthMiddleware
}

// newApplication builds every component from cfg. db must already be
// connected.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{config: cfg, logger: logger, db: db}

	analyzer, err := gemini.NewAnalyzer(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recitation analyzer: %w", err)
	}
	logger.Info("recitation analyzer initialized", slog.String("model", cfg.LLM.ModelName))

	auth, err := middleware.NewAuthMiddleware(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authentication: %w", err)
	}
	app.auth = auth

	if err := app.build(ctx, analyzer); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// build wires storage, the limiter, the catalog and the services around
// analyzer.
func (app *application) build(ctx context.Context, analyzer analysis.Analyzer) error {
	cfg, logger := app.config, app.logger

	states := postgres.NewPostgresReviewStateStore(app.db, logger)
	submissions := postgres.NewPostgresSubmissionStore(app.db, logger)
	catalogStore := postgres.NewPostgresCatalogStore(app.db, logger)
	txRunner := store.NewTxRunner(app.db)

	limiterCfg := ratelimit.Config{
		Limit:  cfg.RateLimit.Requests,
		Window: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}

	var (
		limiter ratelimit.Limiter
		source  catalog.Source = catalogStore
	)
	if cfg.Redis.URL != "" {
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %s", redact.Error(err))
		}
		app.redis = client

		rl, err := redis.NewSlidingWindowLimiter(client, redis.DefaultLimiterPrefix, limiterCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		limiter = rl
		source = redis.NewCatalogCache(catalogStore, client,
			time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second, logger)
		logger.Info("using redis rate limiter and catalog cache")
	} else {
		ml, err := ratelimit.NewMemoryLimiter(limiterCfg)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		limiter = ml
		logger.Warn("redis not configured, using in-process rate limiter")
	}

	scheduler := srs.NewDefaultService()
	app.catalog = catalog.NewResolver(source, logger)

	app.recitationService = recitation.NewService(recitation.Dependencies{
		Resolver:       app.catalog,
		Limiter:        limiter,
		Analyzer:       analyzer,
		Scheduler:      scheduler,
		TxRunner:       txRunner,
		States:         states,
		Submissions:    submissions,
		Logger:         logger,
		PersistTimeout: time.Duration(cfg.Review.PersistTimeoutSeconds) * time.Second,
	})

	app.reviewService = review.NewService(states, source, scheduler, txRunner, review.Config{
		DueLimitDefault: cfg.Review.DueLimitDefault,
		DueLimitMax:     cfg.Review.DueLimitMax,
	}, logger)

	return nil
}

// Run serves HTTP until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup closes the redis client and the database pool.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", redact.Error(err))
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", redact.Error(err))
		}
		app.db = nil
	}
	app.logger.Info("application shutdown completed")
}
