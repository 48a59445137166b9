package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/store"
)

type collectionKey struct {
	family domain.ContentFamily
	id     string
}

// MemorySource is an in-process Source, used by tests and by the seed
// command's dry-run mode.
type MemorySource struct {
	mu          sync.RWMutex
	collections map[collectionKey]domain.Collection
	units       map[collectionKey][]domain.Unit
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		collections: make(map[collectionKey]domain.Collection),
		units:       make(map[collectionKey][]domain.Unit),
	}
}

// Add stores a collection and its units, replacing earlier data.
func (m *MemorySource) Add(c domain.Collection, units []domain.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := collectionKey{c.Family, c.ID}
	sorted := append([]domain.Unit(nil), units...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	m.collections[k] = c
	m.units[k] = sorted
}

// GetCollection implements Source.
func (m *MemorySource) GetCollection(_ context.Context, family domain.ContentFamily, id string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collectionKey{family, id}]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}
	return &c, nil
}

// GetUnits implements Source.
func (m *MemorySource) GetUnits(_ context.Context, family domain.ContentFamily, id string, start, end int) ([]domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Unit
	for _, u := range m.units[collectionKey{family, id}] {
		if u.Number >= start && u.Number <= end {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListCollections implements Source.
func (m *MemorySource) ListCollections(_ context.Context, family domain.ContentFamily) ([]domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Collection
	for k, c := range m.collections {
		if k.family == family {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Writer = (*MemorySource)(nil)

// UpsertCollection implements Writer. Existing units are kept.
func (m *MemorySource) UpsertCollection(_ context.Context, c *domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collectionKey{c.Family, c.ID}] = *c
	return nil
}

// UpsertUnits implements Writer. Units with the same number are replaced.
func (m *MemorySource) UpsertUnits(_ context.Context, family domain.ContentFamily, collectionID string, units []domain.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := collectionKey{family, collectionID}
	byNumber := make(map[int]domain.Unit, len(m.units[k])+len(units))
	for _, u := range m.units[k] {
		byNumber[u.Number] = u
	}
	for _, u := range units {
		byNumber[u.Number] = u
	}

	merged := make([]domain.Unit, 0, len(byNumber))
	for _, u := range byNumber {
		merged = append(merged, u)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Number < merged[j].Number })
	m.units[k] = merged
	return nil
}
