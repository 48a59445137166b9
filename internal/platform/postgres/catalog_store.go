package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

// PostgresCatalogStore implements the store.CatalogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCatalogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCatalogStore creates a new PostgreSQL implementation of the CatalogStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCatalogStore(db store.DBTX, logger *slog.Logger) *PostgresCatalogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCatalogStore{
		db:     db,
		logger: logger.With(slog.String("component", "catalog_store")),
	}
}

// Ensure PostgresCatalogStore implements store.CatalogStore interface
var _ store.CatalogStore = (*PostgresCatalogStore)(nil)

// GetCollection implements store.CatalogStore.GetCollection
func (s *PostgresCatalogStore) GetCollection(
	ctx context.Context,
	family domain.ContentFamily,
	id string,
) (*domain.Collection, error) {
	query := `
		SELECT family, id, title, title_arabic, unit_count
		FROM collections
		WHERE family = $1 AND id = $2
	`
	c, err := scanCollection(s.db.QueryRowContext(ctx, query, family, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCollectionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get collection",
			slog.String("error", redact.Error(err)),
			slog.String("family", string(family)),
			slog.String("collection_id", id))
		return nil, store.NewStoreError("collection", "get", "failed to get collection", MapError(err))
	}
	return c, nil
}

// GetUnits implements store.CatalogStore.GetUnits
func (s *PostgresCatalogStore) GetUnits(
	ctx context.Context,
	family domain.ContentFamily,
	id string,
	start, end int,
) ([]domain.Unit, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT number, text, translation
		FROM units
		WHERE family = $1 AND collection_id = $2 AND number BETWEEN $3 AND $4
		ORDER BY number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, family, id, start, end)
	if err != nil {
		log.Error("failed to query units",
			slog.String("error", redact.Error(err)),
			slog.String("family", string(family)),
			slog.String("collection_id", id))
		return nil, store.NewStoreError("unit", "list", "failed to query units", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", redact.Error(err)))
		}
	}()

	units := []domain.Unit{}
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.Number, &u.Text, &u.Translation); err != nil {
			return nil, store.NewStoreError("unit", "list", "failed to scan unit", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("unit", "list", "failed to iterate units", err)
	}
	return units, nil
}

// ListCollections implements store.CatalogStore.ListCollections
func (s *PostgresCatalogStore) ListCollections(
	ctx context.Context,
	family domain.ContentFamily,
) ([]domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Surah ids are numeric, so order them numerically when they parse.
	query := `
		SELECT family, id, title, title_arabic, unit_count
		FROM collections
		WHERE family = $1
		ORDER BY CASE WHEN id ~ '^[0-9]+$' THEN id::int END ASC NULLS LAST, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, family)
	if err != nil {
		log.Error("failed to query collections",
			slog.String("error", redact.Error(err)),
			slog.String("family", string(family)))
		return nil, store.NewStoreError("collection", "list", "failed to query collections", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", redact.Error(err)))
		}
	}()

	collections := []domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, store.NewStoreError("collection", "list", "failed to scan collection", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("collection", "list", "failed to iterate collections", err)
	}
	return collections, nil
}

// UpsertCollection implements store.CatalogStore.UpsertCollection
func (s *PostgresCatalogStore) UpsertCollection(ctx context.Context, c *domain.Collection) error {
	if !c.Family.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrUnsupportedFamily)
	}
	if c.ID == "" || c.UnitCount < 0 {
		return fmt.Errorf("%w: collection id and unit count are required", store.ErrInvalidEntity)
	}

	query := `
		INSERT INTO collections (family, id, title, title_arabic, unit_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (family, id) DO UPDATE
		SET title = EXCLUDED.title,
			title_arabic = EXCLUDED.title_arabic,
			unit_count = EXCLUDED.unit_count
	`
	if _, err := s.db.ExecContext(ctx, query, c.Family, c.ID, c.Title, c.TitleArabic, c.UnitCount); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert collection",
			slog.String("error", redact.Error(err)),
			slog.String("family", string(c.Family)),
			slog.String("collection_id", c.ID))
		return store.NewStoreError("collection", "upsert", "failed to upsert collection", MapError(err))
	}
	return nil
}

// UpsertUnits implements store.CatalogStore.UpsertUnits
func (s *PostgresCatalogStore) UpsertUnits(
	ctx context.Context,
	family domain.ContentFamily,
	collectionID string,
	units []domain.Unit,
) error {
	if len(units) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO units (family, collection_id, number, text, translation)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (family, collection_id, number) DO UPDATE
		SET text = EXCLUDED.text,
			translation = EXCLUDED.translation
	`)
	if err != nil {
		return store.NewStoreError("unit", "upsert", "failed to prepare statement", MapError(err))
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close statement", slog.String("error", redact.Error(err)))
		}
	}()

	for _, u := range units {
		if u.Number < 1 {
			return fmt.Errorf("%w: unit number must be positive, got %d", store.ErrInvalidEntity, u.Number)
		}
		if _, err := stmt.ExecContext(ctx, family, collectionID, u.Number, u.Text, u.Translation); err != nil {
			log.Error("failed to upsert unit",
				slog.String("error", redact.Error(err)),
				slog.String("collection_id", collectionID),
				slog.Int("number", u.Number))
			return store.NewStoreError("unit", "upsert", "failed to upsert unit", MapError(err))
		}
	}

	log.Debug("units upserted",
		slog.String("family", string(family)),
		slog.String("collection_id", collectionID),
		slog.Int("count", len(units)))
	return nil
}

func scanCollection(row rowScanner) (*domain.Collection, error) {
	var (
		c      domain.Collection
		family string
	)
	if err := row.Scan(&family, &c.ID, &c.Title, &c.TitleArabic, &c.UnitCount); err != nil {
		return nil, err
	}
	c.Family = domain.ContentFamily(family)
	return &c, nil
}
