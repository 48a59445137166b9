package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentRef addresses a span of units inside one collection. The set of
// implementations is closed: QuranRef, HadithRef and VerseRef.
type ContentRef interface {
	Family() ContentFamily
	// Key returns the normalized range identity used for storage.
	Key() RangeKey
	isContentRef()
}

// RangeKey is the family-independent identity of a range. End is always
// filled in; a single-unit range has Start == End.
type RangeKey struct {
	Family       ContentFamily `json:"family"`
	CollectionID string        `json:"collection_id"`
	Start        int           `json:"start"`
	End          int           `json:"end"`
}

// String renders the key as family:collection:start-end.
func (k RangeKey) String() string {
	return fmt.Sprintf("%s:%s:%d-%d", k.Family, k.CollectionID, k.Start, k.End)
}

// Len is the number of units covered by the key.
func (k RangeKey) Len() int {
	return k.End - k.Start + 1
}

// QuranRef addresses ayahs of one surah.
type QuranRef struct {
	SurahNumber int `json:"surah_number"`
	AyahStart   int `json:"ayah_start"`
	AyahEnd     int `json:"ayah_end,omitempty"`
}

func (QuranRef) isContentRef() {}

// Family implements ContentRef.
func (QuranRef) Family() ContentFamily { return FamilyQuran }

// Key implements ContentRef.
func (r QuranRef) Key() RangeKey {
	return RangeKey{
		Family:       FamilyQuran,
		CollectionID: strconv.Itoa(r.SurahNumber),
		Start:        r.AyahStart,
		End:          defaultEnd(r.AyahStart, r.AyahEnd),
	}
}

// HadithRef addresses hadith units of one kitab.
type HadithRef struct {
	KitabID     string `json:"kitab_id"`
	HadithStart int    `json:"hadith_start"`
	HadithEnd   int    `json:"hadith_end,omitempty"`
}

func (HadithRef) isContentRef() {}

// Family implements ContentRef.
func (HadithRef) Family() ContentFamily { return FamilyHadith }

// Key implements ContentRef.
func (r HadithRef) Key() RangeKey {
	return RangeKey{
		Family:       FamilyHadith,
		CollectionID: r.KitabID,
		Start:        r.HadithStart,
		End:          defaultEnd(r.HadithStart, r.HadithEnd),
	}
}

// VerseRef addresses bait (verses) of one matan.
type VerseRef struct {
	KitabID   string `json:"kitab_id"`
	BaitStart int    `json:"bait_start"`
	BaitEnd   int    `json:"bait_end,omitempty"`
}

func (VerseRef) isContentRef() {}

// Family implements ContentRef.
func (VerseRef) Family() ContentFamily { return FamilyVerseCollection }

// Key implements ContentRef.
func (r VerseRef) Key() RangeKey {
	return RangeKey{
		Family:       FamilyVerseCollection,
		CollectionID: r.KitabID,
		Start:        r.BaitStart,
		End:          defaultEnd(r.BaitStart, r.BaitEnd),
	}
}

func defaultEnd(start, end int) int {
	if end == 0 {
		return start
	}
	return end
}

// NewRef builds the family-specific ref from generic request fields.
// end may be zero, meaning a single unit.
func NewRef(family ContentFamily, collectionID string, start, end int) (ContentRef, error) {
	collectionID = strings.TrimSpace(collectionID)
	if collectionID == "" {
		return nil, NewValidationError("collection_id", "cannot be empty", nil)
	}

	switch family {
	case FamilyQuran:
		surah, err := strconv.Atoi(collectionID)
		if err != nil || surah < 1 {
			return nil, NewValidationError("collection_id", "surah number must be a positive integer", nil)
		}
		return QuranRef{SurahNumber: surah, AyahStart: start, AyahEnd: end}, nil
	case FamilyHadith:
		return HadithRef{KitabID: collectionID, HadithStart: start, HadithEnd: end}, nil
	case FamilyVerseCollection:
		return VerseRef{KitabID: collectionID, BaitStart: start, BaitEnd: end}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFamily, family)
	}
}

// RefFromKey reconstructs the family-specific ref from a stored key.
func RefFromKey(k RangeKey) (ContentRef, error) {
	return NewRef(k.Family, k.CollectionID, k.Start, k.End)
}

// NextRef returns the single-unit ref that follows the end of ref.
func NextRef(ref ContentRef) ContentRef {
	switch r := ref.(type) {
	case QuranRef:
		next := r.Key().End + 1
		return QuranRef{SurahNumber: r.SurahNumber, AyahStart: next, AyahEnd: next}
	case HadithRef:
		next := r.Key().End + 1
		return HadithRef{KitabID: r.KitabID, HadithStart: next, HadithEnd: next}
	case VerseRef:
		next := r.Key().End + 1
		return VerseRef{KitabID: r.KitabID, BaitStart: next, BaitEnd: next}
	}
	// ALLOW-PANIC: ContentRef is sealed to the three variants above
	panic(fmt.Sprintf("unknown ContentRef %T", ref))
}
