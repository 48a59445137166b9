package srs

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// calculateQuality maps a 0-100 score onto the SM-2 quality scale.
//
// The result is round(score / 100 * MaxQuality), an integer in [0, MaxQuality].
func calculateQuality(score float64, params *Params) int {
	q := int(math.Round(score / 100 * float64(params.MaxQuality)))
	if q < 0 {
		return 0
	}
	if q > params.MaxQuality {
		return params.MaxQuality
	}
	return q
}

// calculateNewEaseFactor determines the new ease factor after a review.
//
// Parameters:
//   - hasPrior: whether a previous review state exists
//   - currentEF: the ease factor of the previous state (ignored without one)
//   - quality: the SM-2 quality of this review
//   - params: configuration parameters for the SRS algorithm
//
// Algorithm behavior:
//   - The first review seeds params.InitialEaseFactor with no adjustment
//   - Later reviews apply the SM-2 delta 0.1 - d*(0.08 + d*0.02) where d is
//     the distance from a perfect quality
//   - The result never drops below params.MinEaseFactor. There is no ceiling.
func calculateNewEaseFactor(hasPrior bool, currentEF float64, quality int, params *Params) float64 {
	if !hasPrior {
		return params.InitialEaseFactor
	}

	d := float64(params.MaxQuality - quality)
	newEF := currentEF + (0.1 - d*(0.08+d*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the number of days until the next review.
//
// Parameters:
//   - score: the clamped score of this review
//   - priorRepetitions: repetitions recorded before this review
//   - priorInterval: interval of the previous state in days
//   - easeFactor: the ease factor computed for this review
//   - params: configuration parameters for the SRS algorithm
//
// Algorithm behavior:
//   - A score below params.PassScore resets to params.FailInterval regardless of history
//   - The first graded pass (no prior repetitions) uses params.FirstInterval
//   - The second uses params.SecondInterval
//   - Afterwards the prior interval is multiplied by the new ease factor and rounded
func calculateNewInterval(
	score float64,
	priorRepetitions int,
	priorInterval int,
	easeFactor float64,
	params *Params,
) int {
	if score < params.PassScore {
		return params.FailInterval
	}

	switch priorRepetitions {
	case 0:
		return params.FirstInterval
	case 1:
		return params.SecondInterval
	}

	interval := int(math.Round(float64(priorInterval) * easeFactor))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// calculateStatus picks the lifecycle status for a score.
// Status follows its own tiers and does not use PassScore: a score of 65
// resets the interval yet leaves the range in memorizing.
func calculateStatus(score float64, params *Params) domain.ReviewStatus {
	switch {
	case score >= params.MasteredScore:
		return domain.StatusMastered
	case score >= params.ReviewingScore:
		return domain.StatusReviewing
	default:
		return domain.StatusMemorizing
	}
}

// calculateNextState builds the review state that results from grading a
// recitation. The prior state is never modified; a new value is returned.
//
// Algorithm behavior:
//   - Without a prior state a new identity is assigned and CreatedAt is now
//   - Repetitions always increase by one, even on failure; only the interval resets
//   - NextReviewAt is now plus the new interval in days
func calculateNextState(prior *domain.ReviewState, in ReviewInput, now time.Time, params *Params) *domain.ReviewState {
	now = now.UTC()

	next := &domain.ReviewState{
		ID:        uuid.New(),
		LearnerID: in.LearnerID,
		Ref:       in.Ref,
		CreatedAt: now,
	}

	var priorReps, priorInterval int
	var priorEF float64
	if prior != nil {
		next.ID = prior.ID
		next.CreatedAt = prior.CreatedAt
		priorReps = prior.Repetitions
		priorInterval = prior.IntervalDays
		priorEF = prior.EaseFactor
	}

	quality := calculateQuality(in.Score, params)
	next.EaseFactor = calculateNewEaseFactor(prior != nil, priorEF, quality, params)
	next.IntervalDays = calculateNewInterval(in.Score, priorReps, priorInterval, next.EaseFactor, params)
	next.Repetitions = priorReps + 1
	next.Status = calculateStatus(in.Score, params)
	next.LastScore = in.Score
	next.LastReviewedAt = now
	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	next.UpdatedAt = now

	return next
}
