// Package srs implements the SuperMemo-2 review scheduler and its
// performance-adaptive variant.
package srs

import (
	"math"
	"time"
)

// SM2 schedules flashcard reviews with the SuperMemo-2 algorithm.
// It holds no state between calls and is safe for concurrent use.
type SM2 struct {
	now    func() time.Time
	strict bool
}

// Option configures an SM2 engine.
type Option func(*SM2)

// WithClock replaces the wall clock used to derive next review dates.
func WithClock(now func() time.Time) Option {
	return func(sm *SM2) {
		if now != nil {
			sm.now = now
		}
	}
}

// WithStrictValidation makes the engine reject malformed prior state with
// ErrInvalidState instead of clamping it. Quality is still clamped.
func WithStrictValidation() Option {
	return func(sm *SM2) {
		sm.strict = true
	}
}

// NewSM2 creates an engine reading time.Now unless a clock is given.
func NewSM2(opts ...Option) *SM2 {
	sm := &SM2{now: time.Now}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Strict reports whether the engine validates prior state.
func (sm *SM2) Strict() bool {
	return sm.strict
}

// Baseline runs the classic SM-2 step. The error is only ever non-nil in
// strict mode.
func (sm *SM2) Baseline(prior ReviewState, quality Quality) (ReviewState, error) {
	if err := sm.check(prior); err != nil {
		return ReviewState{}, err
	}
	return ComputeBaseline(prior, quality, sm.now()), nil
}

// Adaptive runs the SM-2 step and rescales the interval by the learner's
// profile. A nil profile means no statistics are tracked and the result
// equals Baseline.
func (sm *SM2) Adaptive(prior ReviewState, quality Quality, profile *PerformanceProfile) (ReviewState, error) {
	if err := sm.check(prior); err != nil {
		return ReviewState{}, err
	}
	now := sm.now()
	if profile == nil {
		return ComputeBaseline(prior, quality, now), nil
	}
	return ComputeAdaptive(prior, quality, *profile, now), nil
}

func (sm *SM2) check(prior ReviewState) error {
	if !sm.strict {
		return nil
	}
	return prior.Validate()
}

// ComputeBaseline applies one SM-2 review to prior at the instant now.
// It is total: quality is clamped into [0, 5] and a malformed prior is
// clamped into its valid domain before use.
func ComputeBaseline(prior ReviewState, quality Quality, now time.Time) ReviewState {
	prior = prior.normalize()
	q := float64(quality.Clamp())

	// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), floored at 1.3.
	// Explicit conversions keep the products from being fused into FMA.
	delta := float64(0.1 - float64((5-q)*float64(0.08+float64((5-q)*0.02))))
	ef := math.Max(MinEaseFactor, prior.EaseFactor+delta)

	next := ReviewState{EaseFactor: ef}
	if q < float64(PassThreshold) {
		next.Repetitions = 0
		next.Interval = 1
	} else {
		next.Repetitions = prior.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			// old interval times the new ease factor
			next.Interval = roundDays(float64(prior.Interval) * ef)
		}
	}
	next.NextReviewDate = now.AddDate(0, 0, next.Interval)
	return next
}

// roundDays rounds half away from zero and never returns less than one day.
func roundDays(days float64) int {
	r := math.Round(days)
	if math.IsNaN(r) || r < 1 {
		return 1
	}
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(r)
}
