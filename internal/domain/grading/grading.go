// Package grading maps analysis scores to grades and advance decisions.
package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// ErrInvalidScore is returned for scores outside [0, 100] or NaN.
var ErrInvalidScore = errors.New("score must be between 0 and 100")

// Result is the outcome of classifying a score.
type Result struct {
	Grade      domain.Grade `json:"grade"`
	CanAdvance bool         `json:"can_advance"`
}

// threshold pairs a minimum score with its grade. Ordered high to low.
type threshold struct {
	min   float64
	grade domain.Grade
}

var thresholds = []threshold{
	{90, domain.GradeExcellent},
	{80, domain.GradeVeryGood},
	{70, domain.GradeGood},
	{60, domain.GradeAcceptable},
	{0, domain.GradeFailing},
}

// Classify converts a score into a grade. The first threshold whose minimum
// the score reaches wins. Callers clamp scores first; Classify rejects any
// value outside [0, 100].
func Classify(score float64) (Result, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return Result{}, fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}

	for _, th := range thresholds {
		if score >= th.min {
			return Result{Grade: th.grade, CanAdvance: CanAdvance(th.grade)}, nil
		}
	}

	// Unreachable: the last threshold is 0.
	return Result{Grade: domain.GradeFailing}, nil
}

// CanAdvance reports whether a learner with grade g may move on to the next range.
func CanAdvance(g domain.Grade) bool {
	switch g {
	case domain.GradeExcellent, domain.GradeVeryGood, domain.GradeGood:
		return true
	}
	return false
}

// Clamp limits score to [0, 100]. NaN becomes 0.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
