package domain

// ItemComment is the analyzer's feedback for a single unit of the range.
type ItemComment struct {
	Number       int             `json:"number"`
	Status       string          `json:"status"` // correct, minor_error, major_error, skipped
	TextExpected string          `json:"text_expected,omitempty"`
	TextRead     string          `json:"text_read,omitempty"`
	Comment      string          `json:"comment,omitempty"`
	TajweedNotes []string        `json:"tajweed_notes,omitempty"`
	Errors       []WordDeviation `json:"errors,omitempty"`
}

// WordDeviation is one misread word inside an item.
type WordDeviation struct {
	Word        string `json:"word"`
	ReadAs      string `json:"read_as"`
	Type        string `json:"type"`
	Explanation string `json:"explanation,omitempty"`
}

// RecitationError is one deviation from the expected text across the whole range.
type RecitationError struct {
	Position    int    `json:"position"`
	Word        string `json:"word"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation,omitempty"`
}

// Analysis is the analyzer result for one recitation.
type Analysis struct {
	Score          float64           `json:"score"`
	Transcription  string            `json:"transcription"`
	Summary        string            `json:"summary"`
	OverallComment string            `json:"overall_comment"`
	ItemComments   []ItemComment     `json:"item_comments"`
	Errors         []RecitationError `json:"errors"`
	Suggestions    []string          `json:"suggestions"`
}
