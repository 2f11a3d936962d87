// Package srs implements the SM-2 variant used to schedule topic reviews.
//
// Every rule is evaluated against the state as it was before the review:
// interval growth uses the old ease factor and mastery is classified from
// the old review count.
package srs

import (
	"math"
	"time"

	"github.com/yungbote/reviewgate-backend/internal/domain/review"
)

// State is the scheduling slice of a topic.
type State struct {
	EaseFactor     float64
	IntervalDays   int
	ReviewCount    int
	Mastery        review.MasteryLevel
	NextReviewAt   time.Time
	LastReviewedAt *time.Time
}

// FromTopic copies the scheduling fields out of a topic row.
func FromTopic(t *review.Topic) State {
	return State{
		EaseFactor:     t.EaseFactor,
		IntervalDays:   t.ReviewIntervalDays,
		ReviewCount:    t.ReviewCount,
		Mastery:        t.MasteryLevel,
		NextReviewAt:   t.NextReviewDate,
		LastReviewedAt: t.LastReviewedAt,
	}
}

// ApplyTo writes the scheduling fields back onto a topic row.
func (s State) ApplyTo(t *review.Topic) {
	t.EaseFactor = s.EaseFactor
	t.ReviewIntervalDays = s.IntervalDays
	t.ReviewCount = s.ReviewCount
	t.MasteryLevel = s.Mastery
	t.NextReviewDate = s.NextReviewAt
	t.LastReviewedAt = s.LastReviewedAt
}

func ValidQuality(q int) bool { return q >= MinQuality && q <= MaxQuality }

// Apply returns the state after one review rated quality at now.
func Apply(p Policy, prev State, quality int, now time.Time) (State, error) {
	if !ValidQuality(quality) {
		return prev, ErrInvalidQuality
	}
	prev = repair(p, prev)
	next := prev

	if quality >= PassingQuality {
		switch prev.ReviewCount {
		case 0:
			next.IntervalDays = p.FirstIntervalDays
		case 1:
			next.IntervalDays = p.SecondIntervalDays
		default:
			next.IntervalDays = int(math.Round(float64(prev.IntervalDays) * prev.EaseFactor))
		}
		next.EaseFactor = prev.EaseFactor + EaseDelta(p, quality)
	} else {
		next.IntervalDays = p.FirstIntervalDays
	}
	if next.EaseFactor < p.MinEaseFactor {
		next.EaseFactor = p.MinEaseFactor
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}

	reviewedAt := now
	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	next.LastReviewedAt = &reviewedAt
	next.ReviewCount = prev.ReviewCount + 1
	next.Mastery = ClassifyMastery(prev.ReviewCount, quality, prev.Mastery)
	return next, nil
}

// EaseDelta is the SM-2 ease adjustment for a successful review.
func EaseDelta(p Policy, quality int) float64 {
	miss := float64(MaxQuality - quality)
	return p.EaseBase - miss*(p.EaseLinear+miss*p.EaseQuadratic)
}

// ClassifyMastery picks the most permissive level the pre-review count allows.
// With no prior reviews the current level is kept.
func ClassifyMastery(priorReviews, quality int, current review.MasteryLevel) review.MasteryLevel {
	switch {
	case priorReviews >= 5 && quality >= 4:
		return review.MasteryMastered
	case priorReviews >= 3 && quality >= 3:
		return review.MasteryFamiliar
	case priorReviews >= 1:
		return review.MasteryDeveloping
	}
	if current == "" {
		return review.MasteryNew
	}
	return current
}

// repair restores the ease floor and minimum interval on rows written before
// those invariants were enforced.
func repair(p Policy, s State) State {
	if s.EaseFactor == 0 {
		s.EaseFactor = p.InitialEaseFactor
	}
	if s.EaseFactor < p.MinEaseFactor {
		s.EaseFactor = p.MinEaseFactor
	}
	if s.IntervalDays < 1 {
		s.IntervalDays = 1
	}
	if s.ReviewCount < 0 {
		s.ReviewCount = 0
	}
	return s
}
