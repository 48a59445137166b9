package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// responseSchema is the JSON object the prompt asks the model for.
type responseSchema struct {
	// Score is a pointer so a missing score is distinguishable from zero.
	Score          *float64            `json:"score"`
	Transcription  string              `json:"transcription"`
	Summary        string              `json:"summary"`
	OverallComment string              `json:"overallComment"`
	ItemComments   []itemCommentSchema `json:"itemComments"`
	Errors         []errorSchema       `json:"errors"`
	Suggestions    []string            `json:"suggestions"`
}

type itemCommentSchema struct {
	Number       int               `json:"number"`
	Status       string            `json:"status"`
	TextExpected string            `json:"textExpected"`
	TextRead     string            `json:"textRead"`
	Comment      string            `json:"comment"`
	TajweedNotes []string          `json:"tajweedNotes"`
	Errors       []deviationSchema `json:"errors"`
}

type deviationSchema struct {
	Word        string `json:"word"`
	ReadAs      string `json:"readAs"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

type errorSchema struct {
	Position    int    `json:"position"`
	Word        string `json:"word"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
}

// parseResponse decodes the model's answer. Models occasionally wrap JSON
// in a markdown fence, so only the outermost object is decoded.
func parseResponse(text string) (*responseSchema, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", analysis.ErrInvalidResponse)
	}

	var resp responseSchema
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", analysis.ErrInvalidResponse, err)
	}

	if resp.Score == nil {
		return nil, fmt.Errorf("%w: response has no score", analysis.ErrInvalidResponse)
	}
	if math.IsNaN(*resp.Score) || math.IsInf(*resp.Score, 0) {
		return nil, fmt.Errorf("%w: score is not a number", analysis.ErrInvalidResponse)
	}

	return &resp, nil
}

// toAnalysis maps the schema onto the domain type. The learner's own
// transcript wins over the model's when one was supplied.
func (r *responseSchema) toAnalysis(transcript string) *domain.Analysis {
	a := &domain.Analysis{
		Score:          *r.Score,
		Transcription:  r.Transcription,
		Summary:        r.Summary,
		OverallComment: r.OverallComment,
		ItemComments:   make([]domain.ItemComment, 0, len(r.ItemComments)),
		Errors:         make([]domain.RecitationError, 0, len(r.Errors)),
		Suggestions:    append([]string{}, r.Suggestions...),
	}
	if strings.TrimSpace(transcript) != "" {
		a.Transcription = transcript
	}

	for _, ic := range r.ItemComments {
		item := domain.ItemComment{
			Number:       ic.Number,
			Status:       ic.Status,
			TextExpected: ic.TextExpected,
			TextRead:     ic.TextRead,
			Comment:      ic.Comment,
			TajweedNotes: ic.TajweedNotes,
		}
		for _, d := range ic.Errors {
			item.Errors = append(item.Errors, domain.WordDeviation(d))
		}
		a.ItemComments = append(a.ItemComments, item)
	}

	for _, e := range r.Errors {
		a.Errors = append(a.Errors, domain.RecitationError(e))
	}

	return a
}
