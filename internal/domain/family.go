package domain

import (
	"fmt"
	"strings"
)

// ContentFamily selects the addressing scheme and the catalog a range belongs to.
type ContentFamily string

const (
	FamilyQuran           ContentFamily = "quran"
	FamilyHadith          ContentFamily = "hadith"
	FamilyVerseCollection ContentFamily = "verse_collection"
)

// Families lists every supported family in display order.
var Families = []ContentFamily{FamilyQuran, FamilyHadith, FamilyVerseCollection}

// ParseContentFamily accepts the canonical names plus the legacy labels
// "hadits" and "matan" that older clients still send.
func ParseContentFamily(s string) (ContentFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quran":
		return FamilyQuran, nil
	case "hadith", "hadits":
		return FamilyHadith, nil
	case "verse_collection", "versecollection", "matan":
		return FamilyVerseCollection, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFamily, s)
	}
}

// Valid reports whether f is one of the supported families.
func (f ContentFamily) Valid() bool {
	switch f {
	case FamilyQuran, FamilyHadith, FamilyVerseCollection:
		return true
	}
	return false
}

// Label is the human-readable family name used in analyzer prompts.
func (f ContentFamily) Label() string {
	switch f {
	case FamilyQuran:
		return "Al-Quran"
	case FamilyHadith:
		return "Hadits"
	case FamilyVerseCollection:
		return "Matan"
	}
	return string(f)
}

// UnitName names one addressable unit of the family.
func (f ContentFamily) UnitName() string {
	switch f {
	case FamilyQuran:
		return "ayah"
	case FamilyHadith:
		return "hadith"
	case FamilyVerseCollection:
		return "bait"
	}
	return "unit"
}

// Separator joins unit texts into the canonical text of a range.
func (f ContentFamily) Separator() string {
	switch f {
	case FamilyHadith:
		return "\n\n"
	case FamilyVerseCollection:
		return "\n"
	}
	return " "
}
