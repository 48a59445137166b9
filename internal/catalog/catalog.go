// Package catalog resolves requested text ranges into canonical content.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

// Resolution failures. All of them wrap domain.ErrInvalidRange.
var (
	ErrRangeNotFound    = fmt.Errorf("%w: range not found", domain.ErrInvalidRange)
	ErrRangeOutOfBounds = fmt.Errorf("%w: range out of bounds", domain.ErrInvalidRange)
	ErrRangeInverted    = fmt.Errorf("%w: range start is after end", domain.ErrInvalidRange)
)

// Source is the read side of the content catalog.
type Source interface {
	GetCollection(ctx context.Context, family domain.ContentFamily, id string) (*domain.Collection, error)
	GetUnits(ctx context.Context, family domain.ContentFamily, id string, start, end int) ([]domain.Unit, error)
	ListCollections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error)
}

// Resolver validates ranges against the catalog and assembles their text.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver creates a Resolver reading from source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	if source == nil {
		panic("source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source: source,
		logger: logger.With(slog.String("component", "catalog_resolver")),
	}
}

// Resolve validates ref and fetches the canonical units it covers. An end
// of zero means a single unit. Units are joined with the family separator.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ContentRef) (*domain.ContentRange, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if ref == nil || !ref.Family().Valid() {
		return nil, domain.ErrUnsupportedFamily
	}

	key := ref.Key()
	if key.Start > key.End {
		return nil, fmt.Errorf("%w: %d > %d", ErrRangeInverted, key.Start, key.End)
	}

	coll, err := r.Collection(ctx, key.Family, key.CollectionID)
	if err != nil {
		return nil, err
	}

	if key.Start < 1 || key.End > coll.UnitCount {
		return nil, fmt.Errorf("%w: %d-%d outside 1-%d", ErrRangeOutOfBounds, key.Start, key.End, coll.UnitCount)
	}

	units, err := r.source.GetUnits(ctx, key.Family, key.CollectionID, key.Start, key.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load units for %s: %w", key, err)
	}

	// Collection metadata claims more units than the catalog actually holds.
	if len(units) != key.Len() {
		log.Warn("catalog is missing units",
			slog.String("range", key.String()),
			slog.Int("expected", key.Len()),
			slog.Int("found", len(units)))
		return nil, fmt.Errorf("%w: %s has %d of %d units", ErrRangeNotFound, key, len(units), key.Len())
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	return &domain.ContentRange{
		Ref:        ref,
		Collection: *coll,
		Units:      units,
		Text:       strings.Join(texts, key.Family.Separator()),
	}, nil
}

// Collections lists the collections of one family.
func (r *Resolver) Collections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error) {
	if !family.Valid() {
		return nil, domain.ErrUnsupportedFamily
	}
	return r.source.ListCollections(ctx, family)
}

// Collection fetches the metadata of one collection.
func (r *Resolver) Collection(ctx context.Context, family domain.ContentFamily, id string) (*domain.Collection, error) {
	if !family.Valid() {
		return nil, domain.ErrUnsupportedFamily
	}

	coll, err := r.source.GetCollection(ctx, family, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %q", ErrRangeNotFound, family, id)
		}
		return nil, fmt.Errorf("failed to load collection %s/%s: %w", family, id, err)
	}
	return coll, nil
}
