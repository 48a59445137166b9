package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units(n int, prefix string) []domain.Unit {
	out := make([]domain.Unit, n)
	for i := range out {
		out[i] = domain.Unit{Number: i + 1, Text: fmt.Sprintf("%s%d", prefix, i+1)}
	}
	return out
}

func newSource() *catalog.MemorySource {
	src := catalog.NewMemorySource()
	src.Add(domain.Collection{Family: domain.FamilyQuran, ID: "67", Title: "Al-Mulk", UnitCount: 30}, units(30, "a"))
	src.Add(domain.Collection{Family: domain.FamilyHadith, ID: "arbain", Title: "Arbain Nawawi", UnitCount: 42}, units(42, "h"))
	src.Add(domain.Collection{Family: domain.FamilyVerseCollection, ID: "jazariyah", Title: "Al-Jazariyah", UnitCount: 10}, units(10, "b"))
	// Metadata says 5 units but only 3 are loaded.
	src.Add(domain.Collection{Family: domain.FamilyHadith, ID: "partial", Title: "Partial", UnitCount: 5}, units(3, "p"))
	return src
}

func TestResolve(t *testing.T) {
	t.Parallel()
	r := catalog.NewResolver(newSource(), nil)

	tests := []struct {
		name     string
		ref      domain.ContentRef
		wantText string
		wantLen  int
	}{
		{"quran range joined by space", domain.QuranRef{SurahNumber: 67, AyahStart: 1, AyahEnd: 3}, "a1 a2 a3", 3},
		{"quran single ayah", domain.QuranRef{SurahNumber: 67, AyahStart: 30}, "a30", 1},
		{"hadith joined by blank line", domain.HadithRef{KitabID: "arbain", HadithStart: 1, HadithEnd: 2}, "h1\n\nh2", 2},
		{"verse joined by newline", domain.VerseRef{KitabID: "jazariyah", BaitStart: 9, BaitEnd: 10}, "b9\nb10", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(context.Background(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Len(t, got.Units, tt.wantLen)
			assert.Equal(t, tt.ref.Key(), got.Key())
			for i := 1; i < len(got.Units); i++ {
				assert.Less(t, got.Units[i-1].Number, got.Units[i].Number)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()
	r := catalog.NewResolver(newSource(), nil)

	tests := []struct {
		name string
		ref  domain.ContentRef
		want error
	}{
		{"inverted", domain.QuranRef{SurahNumber: 67, AyahStart: 5, AyahEnd: 3}, catalog.ErrRangeInverted},
		{"inverted in unknown collection", domain.HadithRef{KitabID: "nope", HadithStart: 5, HadithEnd: 3}, catalog.ErrRangeInverted},
		{"unknown collection", domain.QuranRef{SurahNumber: 115, AyahStart: 1}, catalog.ErrRangeNotFound},
		{"start below one", domain.QuranRef{SurahNumber: 67, AyahStart: 0, AyahEnd: 2}, catalog.ErrRangeOutOfBounds},
		{"end past collection", domain.VerseRef{KitabID: "jazariyah", BaitStart: 8, BaitEnd: 11}, catalog.ErrRangeOutOfBounds},
		{"incomplete catalog", domain.HadithRef{KitabID: "partial", HadithStart: 2, HadithEnd: 5}, catalog.ErrRangeNotFound},
		{"nil ref", nil, domain.ErrUnsupportedFamily},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := r.Resolve(context.Background(), tt.ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			if !errors.Is(tt.want, domain.ErrUnsupportedFamily) {
				assert.ErrorIs(t, err, domain.ErrInvalidRange)
			}
		})
	}
}

// errSource fails every call.
type errSource struct{ err error }

func (s errSource) GetCollection(context.Context, domain.ContentFamily, string) (*domain.Collection, error) {
	return nil, s.err
}

func (s errSource) GetUnits(context.Context, domain.ContentFamily, string, int, int) ([]domain.Unit, error) {
	return nil, s.err
}

func (s errSource) ListCollections(context.Context, domain.ContentFamily) ([]domain.Collection, error) {
	return nil, s.err
}

func TestResolveSourceFailure(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	r := catalog.NewResolver(errSource{err: cause}, nil)

	_, err := r.Resolve(context.Background(), domain.QuranRef{SurahNumber: 1, AyahStart: 1})
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrInvalidRange)
}

func TestCollections(t *testing.T) {
	t.Parallel()
	r := catalog.NewResolver(newSource(), nil)

	got, err := r.Collections(context.Background(), domain.FamilyHadith)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "arbain", got[0].ID)
	assert.Equal(t, "partial", got[1].ID)

	_, err = r.Collections(context.Background(), "tafsir")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFamily)

	c, err := r.Collection(context.Background(), domain.FamilyQuran, "67")
	require.NoError(t, err)
	assert.Equal(t, "Al-Mulk", c.Title)
}

func TestNewResolverNilSource(t *testing.T) {
	assert.Panics(t, func() { catalog.NewResolver(nil, nil) })
}
