package srs

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultEaseFactor is the ease factor of a card that was never reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor applied after every review.
	MinEaseFactor = 1.3
	// DefaultInterval is the interval in days of a new card.
	DefaultInterval = 1
)

// ReviewState is the scheduling record of one flashcard.
type ReviewState struct {
	EaseFactor     float64   `json:"ease_factor" db:"ease_factor"`
	Interval       int       `json:"interval" db:"interval"`
	Repetitions    int       `json:"repetitions" db:"repetitions"`
	NextReviewDate time.Time `json:"next_review_date" db:"next_review_date"`
}

// NewReviewState returns the state a card starts with. The card is due at now.
func NewReviewState(now time.Time) ReviewState {
	return ReviewState{
		EaseFactor:     DefaultEaseFactor,
		Interval:       DefaultInterval,
		Repetitions:    0,
		NextReviewDate: now,
	}
}

// Validate checks the invariants a persisted state must satisfy.
func (s ReviewState) Validate() error {
	switch {
	case math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor:
		return fmt.Errorf("%w: ease factor %v below %v", ErrInvalidState, s.EaseFactor, MinEaseFactor)
	case s.Interval < 1:
		return fmt.Errorf("%w: interval %d below 1", ErrInvalidState, s.Interval)
	case s.Repetitions < 0:
		return fmt.Errorf("%w: negative repetitions %d", ErrInvalidState, s.Repetitions)
	}
	return nil
}

// normalize clamps a malformed state back into its valid domain.
func (s ReviewState) normalize() ReviewState {
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	if s.Interval < 1 {
		s.Interval = 1
	}
	if s.Repetitions < 0 {
		s.Repetitions = 0
	}
	return s
}

// DueAt reports whether the card should be shown at now.
func (s ReviewState) DueAt(now time.Time) bool {
	return !s.NextReviewDate.After(now)
}
