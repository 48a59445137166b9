package domain

// Collection is a parent container of addressable units: a surah, a
// hadith kitab or a matan.
type Collection struct {
	Family      ContentFamily `json:"family"`
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	TitleArabic string        `json:"title_arabic,omitempty"`
	UnitCount   int           `json:"unit_count"`
}

// Unit is one addressable piece of canonical text.
type Unit struct {
	Number      int    `json:"number"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// ContentRange is a validated span of one collection together with its
// canonical text. It is built per request and never stored.
type ContentRange struct {
	Ref        ContentRef `json:"-"`
	Collection Collection `json:"collection"`
	Units      []Unit     `json:"units"`
	Text       string     `json:"text"`
}

// Key returns the range identity.
func (r *ContentRange) Key() RangeKey {
	return r.Ref.Key()
}

// AtCollectionEnd reports whether the range ends on the last unit.
func (r *ContentRange) AtCollectionEnd() bool {
	return r.Key().End >= r.Collection.UnitCount
}
