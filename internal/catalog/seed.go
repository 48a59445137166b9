package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/tahfidz-api/internal/domain"
	"gopkg.in/yaml.v3"
)

// Writer is the write side of the catalog, used for seeding.
type Writer interface {
	UpsertCollection(ctx context.Context, c *domain.Collection) error
	UpsertUnits(ctx context.Context, family domain.ContentFamily, collectionID string, units []domain.Unit) error
}

// SeedFile is the YAML layout of a catalog seed file.
type SeedFile struct {
	Collections []SeedCollection `yaml:"collections"`
}

// SeedCollection is one collection with its units.
type SeedCollection struct {
	Family      string     `yaml:"family"`
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	TitleArabic string     `yaml:"title_arabic"`
	UnitCount   int        `yaml:"unit_count"`
	Units       []SeedUnit `yaml:"units"`
}

// SeedUnit is one unit of text.
type SeedUnit struct {
	Number      int    `yaml:"number"`
	Text        string `yaml:"text"`
	Translation string `yaml:"translation"`
}

// SeedSummary counts what Seed wrote.
type SeedSummary struct {
	Collections int
	Units       int
	Families    []domain.ContentFamily
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSeed(f)
}

// ParseSeed decodes and validates seed YAML. Unknown keys are rejected.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sf SeedFile
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// Validate checks every collection. A zero unit_count is derived from the
// highest unit number.
func (sf *SeedFile) Validate() error {
	if len(sf.Collections) == 0 {
		return domain.NewValidationError("collections", "seed file has no collections", nil)
	}

	seen := make(map[string]bool, len(sf.Collections))
	for i := range sf.Collections {
		c := &sf.Collections[i]
		where := fmt.Sprintf("collections[%d]", i)

		family, err := domain.ParseContentFamily(c.Family)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		c.Family = string(family)
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return domain.NewValidationError(where+".id", "cannot be empty", nil)
		}
		if strings.TrimSpace(c.Title) == "" {
			return domain.NewValidationError(where+".title", "cannot be empty", nil)
		}
		key := c.Family + "/" + c.ID
		if seen[key] {
			return domain.NewValidationError(where+".id", "duplicate collection "+key, nil)
		}
		seen[key] = true

		numbers := make(map[int]bool, len(c.Units))
		highest := 0
		for j, u := range c.Units {
			if u.Number < 1 {
				return domain.NewValidationError(fmt.Sprintf("%s.units[%d].number", where, j), "must be at least 1", nil)
			}
			if numbers[u.Number] {
				return domain.NewValidationError(fmt.Sprintf("%s.units[%d].number", where, j), "duplicate unit number", nil)
			}
			if strings.TrimSpace(u.Text) == "" {
				return domain.NewValidationError(fmt.Sprintf("%s.units[%d].text", where, j), "cannot be empty", nil)
			}
			numbers[u.Number] = true
			highest = max(highest, u.Number)
		}

		if c.UnitCount == 0 {
			c.UnitCount = highest
		}
		if c.UnitCount < highest {
			return domain.NewValidationError(where+".unit_count", "is smaller than the highest unit number", nil)
		}
		if c.UnitCount < 1 {
			return domain.NewValidationError(where+".unit_count", "must be at least 1", nil)
		}
	}
	return nil
}

// Seed writes every collection of sf through w. Collections are written
// one at a time; a failure leaves earlier collections in place.
func Seed(ctx context.Context, w Writer, sf *SeedFile, logger *slog.Logger) (*SeedSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "catalog_seed"))

	summary := &SeedSummary{}
	familySeen := make(map[domain.ContentFamily]bool)

	for _, c := range sf.Collections {
		family := domain.ContentFamily(c.Family)
		coll := &domain.Collection{
			Family:      family,
			ID:          c.ID,
			Title:       c.Title,
			TitleArabic: c.TitleArabic,
			UnitCount:   c.UnitCount,
		}
		if err := w.UpsertCollection(ctx, coll); err != nil {
			return summary, fmt.Errorf("upsert collection %s/%s: %w", family, c.ID, err)
		}

		units := make([]domain.Unit, len(c.Units))
		for i, u := range c.Units {
			units[i] = domain.Unit{Number: u.Number, Text: u.Text, Translation: u.Translation}
		}
		if len(units) > 0 {
			if err := w.UpsertUnits(ctx, family, c.ID, units); err != nil {
				return summary, fmt.Errorf("upsert units of %s/%s: %w", family, c.ID, err)
			}
		}

		summary.Collections++
		summary.Units += len(units)
		if !familySeen[family] {
			familySeen[family] = true
			summary.Families = append(summary.Families, family)
		}
		log.Debug("collection seeded",
			slog.String("family", string(family)),
			slog.String("collection_id", c.ID),
			slog.Int("units", len(units)))
	}

	log.Info("catalog seeded",
		slog.Int("collections", summary.Collections),
		slog.Int("units", summary.Units))
	return summary, nil
}
