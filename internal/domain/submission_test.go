package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewSubmission(t *testing.T) {
	learner := uuid.New()
	ref := HadithRef{KitabID: "arbain", HadithStart: 1}
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	s, err := NewSubmission(learner, ref, nil, Analysis{Score: 85}, GradeVeryGood, true, now)
	if err != nil {
		t.Fatalf("NewSubmission() error: %v", err)
	}
	if s.ID == uuid.Nil {
		t.Error("expected generated ID")
	}
	if s.Status != SubmissionCompleted {
		t.Errorf("status = %q, want completed", s.Status)
	}
	if s.CreatedAt.Location() != time.UTC {
		t.Error("expected CreatedAt in UTC")
	}

	halaqah := uuid.New()
	s, err = NewSubmission(learner, ref, &halaqah, Analysis{Score: 40}, GradeFailing, false, now)
	if err != nil {
		t.Fatalf("NewSubmission() with halaqah error: %v", err)
	}
	if s.Status != SubmissionNeedsReview {
		t.Errorf("status = %q, want needs_review", s.Status)
	}
}

func TestNewSubmissionValidation(t *testing.T) {
	now := time.Now()
	ref := QuranRef{SurahNumber: 1, AyahStart: 1}

	if _, err := NewSubmission(uuid.Nil, ref, nil, Analysis{Score: 50}, GradeFailing, false, now); !errors.Is(err, ErrInvalidID) {
		t.Errorf("nil learner: error = %v, want ErrInvalidID", err)
	}
	if _, err := NewSubmission(uuid.New(), nil, nil, Analysis{Score: 50}, GradeFailing, false, now); !errors.Is(err, ErrValidation) {
		t.Errorf("nil ref: error = %v, want ErrValidation", err)
	}
	if _, err := NewSubmission(uuid.New(), ref, nil, Analysis{Score: 150}, GradeExcellent, true, now); !errors.Is(err, ErrValidation) {
		t.Errorf("score out of range: error = %v, want ErrValidation", err)
	}
	if _, err := NewSubmission(uuid.New(), ref, nil, Analysis{Score: 50}, "great", false, now); !errors.Is(err, ErrValidation) {
		t.Errorf("bad grade: error = %v, want ErrValidation", err)
	}
}

func TestGradeLabel(t *testing.T) {
	want := map[Grade]string{
		GradeExcellent:  "mumtaz",
		GradeVeryGood:   "jayyid_jiddan",
		GradeGood:       "jayyid",
		GradeAcceptable: "maqbul",
		GradeFailing:    "rasib",
	}
	for g, label := range want {
		if g.Label() != label {
			t.Errorf("%s.Label() = %q, want %q", g, g.Label(), label)
		}
	}
}
