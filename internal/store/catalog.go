package store

import (
	"context"

	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// CatalogStore reads and seeds canonical texts.
type CatalogStore interface {
	// GetCollection returns ErrCollectionNotFound for unknown ids.
	GetCollection(ctx context.Context, family domain.ContentFamily, id string) (*domain.Collection, error)

	// GetUnits returns the units numbered start..end inclusive, ascending.
	// Missing units are simply absent from the result.
	GetUnits(ctx context.Context, family domain.ContentFamily, id string, start, end int) ([]domain.Unit, error)

	ListCollections(ctx context.Context, family domain.ContentFamily) ([]domain.Collection, error)

	// UpsertCollection inserts or replaces collection metadata.
	UpsertCollection(ctx context.Context, c *domain.Collection) error

	// UpsertUnits inserts or replaces the given units of a collection.
	UpsertUnits(ctx context.Context, family domain.ContentFamily, collectionID string, units []domain.Unit) error
}
