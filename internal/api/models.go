package api

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/phrazzld/tahfidz-api/internal/service/recitation"
	"github.com/phrazzld/tahfidz-api/internal/service/review"
)

// SubmitRecitationRequest is the body of POST /api/submissions.
type SubmitRecitationRequest struct {
	Family       string `json:"family"        validate:"required"`
	CollectionID string `json:"collection_id" validate:"required,max=64"`
	Start        int    `json:"start"         validate:"gte=1"`
	// End defaults to Start.
	End         int    `json:"end,omitempty"          validate:"gte=0"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"    validate:"max=100"`
	Transcript  string `json:"transcript,omitempty"   validate:"max=20000"`
	HalaqahID   string `json:"halaqah_id,omitempty"   validate:"omitempty,uuid"`
}

// PostponeReviewRequest is the body of POST /api/reviews/postpone.
type PostponeReviewRequest struct {
	Family       string `json:"family"        validate:"required"`
	CollectionID string `json:"collection_id" validate:"required,max=64"`
	Start        int    `json:"start"         validate:"gte=1"`
	End          int    `json:"end,omitempty" validate:"gte=0"`
	Days         int    `json:"days"          validate:"gte=1,lte=365"`
}

// RangeResponse identifies a range in every family the same way.
type RangeResponse struct {
	Family       domain.ContentFamily `json:"family"`
	CollectionID string               `json:"collection_id"`
	Start        int                  `json:"start"`
	End          int                  `json:"end"`
}

// SubmissionResponse is a graded recitation.
type SubmissionResponse struct {
	ID         string                  `json:"id"`
	Range      RangeResponse           `json:"range"`
	HalaqahID  *string                 `json:"halaqah_id,omitempty"`
	Analysis   domain.Analysis         `json:"analysis"`
	Grade      domain.Grade            `json:"grade"`
	GradeLabel string                  `json:"grade_label"`
	CanAdvance bool                    `json:"can_advance"`
	Status     domain.SubmissionStatus `json:"status"`
	CreatedAt  time.Time               `json:"created_at"`
}

// ReviewStateResponse is the schedule of one range.
type ReviewStateResponse struct {
	ID             string              `json:"id"`
	Range          RangeResponse       `json:"range"`
	Status         domain.ReviewStatus `json:"status"`
	LastScore      float64             `json:"last_score"`
	LastReviewedAt time.Time           `json:"last_reviewed_at"`
	NextReviewAt   time.Time           `json:"next_review_at"`
	EaseFactor     float64             `json:"ease_factor"`
	IntervalDays   int                 `json:"interval_days"`
	Repetitions    int                 `json:"repetitions"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NextRangeHintResponse points at the next unit to memorize.
type NextRangeHintResponse struct {
	Range           *RangeResponse `json:"range,omitempty"`
	EndOfCollection bool           `json:"end_of_collection"`
}

// SubmitRecitationResponse is the 201 body of POST /api/submissions.
type SubmitRecitationResponse struct {
	Submission    SubmissionResponse     `json:"submission"`
	ReviewState   ReviewStateResponse    `json:"review_state"`
	Grade         domain.Grade           `json:"grade"`
	CanAdvance    bool                   `json:"can_advance"`
	NextRangeHint *NextRangeHintResponse `json:"next_range_hint"`
}

// SubmissionPageResponse is one page of history.
type SubmissionPageResponse struct {
	Items   []SubmissionResponse `json:"items"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

// DueItemResponse is one entry of the review queue.
type DueItemResponse struct {
	ReviewStateResponse
	Title string `json:"title"`
}

// DueItemsResponse is the body of GET /api/reviews/due.
type DueItemsResponse struct {
	Items []DueItemResponse `json:"items"`
	Total int               `json:"total"`
}

// ProgressResponse is the body of GET /api/progress.
type ProgressResponse struct {
	Progress []ReviewStateResponse                       `json:"progress"`
	Stats    map[domain.ContentFamily]review.FamilyStats `json:"stats"`
	Total    int                                         `json:"total"`
}

// CollectionsResponse lists the collections of one family.
type CollectionsResponse struct {
	Family      domain.ContentFamily `json:"family"`
	Collections []domain.Collection  `json:"collections"`
}

// ContentRangeResponse is a resolved range with its canonical text.
type ContentRangeResponse struct {
	Range      RangeResponse     `json:"range"`
	Collection domain.Collection `json:"collection"`
	Units      []domain.Unit     `json:"units"`
	Text       string            `json:"text"`
}

func rangeToResponse(ref domain.ContentRef) RangeResponse {
	if ref == nil {
		return RangeResponse{}
	}
	k := ref.Key()
	return RangeResponse{Family: k.Family, CollectionID: k.CollectionID, Start: k.Start, End: k.End}
}

func submissionToResponse(s *domain.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:         s.ID.String(),
		Range:      rangeToResponse(s.Ref),
		Analysis:   s.Analysis,
		Grade:      s.Grade,
		GradeLabel: s.Grade.Label(),
		CanAdvance: s.CanAdvance,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
	}
	if s.HalaqahID != nil {
		id := s.HalaqahID.String()
		resp.HalaqahID = &id
	}
	return resp
}

func reviewStateToResponse(s *domain.ReviewState) ReviewStateResponse {
	return ReviewStateResponse{
		ID:             s.ID.String(),
		Range:          rangeToResponse(s.Ref),
		Status:         s.Status,
		LastScore:      s.LastScore,
		LastReviewedAt: s.LastReviewedAt,
		NextReviewAt:   s.NextReviewAt,
		EaseFactor:     s.EaseFactor,
		IntervalDays:   s.IntervalDays,
		Repetitions:    s.Repetitions,
		UpdatedAt:      s.UpdatedAt,
	}
}

func submitResultToResponse(res *recitation.SubmitResult) SubmitRecitationResponse {
	resp := SubmitRecitationResponse{
		Submission:  submissionToResponse(res.Submission),
		ReviewState: reviewStateToResponse(res.ReviewState),
		Grade:       res.Grade,
		CanAdvance:  res.CanAdvance,
	}
	if hint := res.NextRangeHint; hint != nil {
		resp.NextRangeHint = &NextRangeHintResponse{EndOfCollection: hint.EndOfCollection}
		if hint.Ref != nil {
			r := rangeToResponse(hint.Ref)
			resp.NextRangeHint.Range = &r
		}
	}
	return resp
}

// toSubmitRequest converts a validated DTO into a service request.
func (req *SubmitRecitationRequest) toSubmitRequest(learnerID uuid.UUID) (recitation.SubmitRequest, error) {
	ref, err := parseRef(req.Family, req.CollectionID, req.Start, req.End)
	if err != nil {
		return recitation.SubmitRequest{}, err
	}

	out := recitation.SubmitRequest{
		LearnerID: learnerID,
		Ref:       ref,
		Input: recitation.RecitationInput{
			AudioBase64: strings.TrimSpace(req.AudioBase64),
			MimeType:    strings.TrimSpace(req.MimeType),
			Transcript:  strings.TrimSpace(req.Transcript),
		},
	}
	if req.HalaqahID != "" {
		id, err := uuid.Parse(req.HalaqahID)
		if err != nil {
			return recitation.SubmitRequest{}, domain.NewValidationError("halaqah_id", "has invalid format", domain.ErrInvalidID)
		}
		out.Session.HalaqahID = &id
	}
	return out, nil
}

func parseRef(family, collectionID string, start, end int) (domain.ContentRef, error) {
	f, err := domain.ParseContentFamily(family)
	if err != nil {
		return nil, err
	}
	return domain.NewRef(f, collectionID, start, end)
}
