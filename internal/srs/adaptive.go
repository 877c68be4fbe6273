package srs

import (
	"math"
	"time"

	"github.com/samber/lo"
)

// DefaultProfileWindow is the number of most recent reviews recent accuracy
// is measured over.
const DefaultProfileWindow = 20

// PerformanceProfile summarizes a learner's review history.
type PerformanceProfile struct {
	// AverageQuality is the mean of all historical ratings, nominally in [0, 5].
	AverageQuality float64 `json:"average_quality"`
	// RecentAccuracy is the share of passing ratings in the recent window, in [0, 1].
	RecentAccuracy float64 `json:"recent_accuracy"`
}

// Multiplier returns the interval scale for the profile. The bands are
// checked in order and the first match wins.
func (p PerformanceProfile) Multiplier() float64 {
	avg, acc := p.AverageQuality, p.RecentAccuracy
	if math.IsNaN(avg) || math.IsNaN(acc) {
		return 1.0
	}

	switch {
	case avg >= 4.0 && acc >= 0.9:
		return 1.3
	case avg >= 3.5 && acc >= 0.8:
		return 1.15
	case avg <= 2.5 || acc <= 0.6:
		return 0.7
	case avg <= 3.0 || acc <= 0.75:
		return 0.85
	default:
		return 1.0
	}
}

// ComputeAdaptive applies ComputeBaseline and rescales only the interval and
// the derived review date. Ease factor and repetitions pass through.
func ComputeAdaptive(prior ReviewState, quality Quality, profile PerformanceProfile, now time.Time) ReviewState {
	next := ComputeBaseline(prior, quality, now)
	next.Interval = roundDays(float64(next.Interval) * profile.Multiplier())
	next.NextReviewDate = now.AddDate(0, 0, next.Interval)
	return next
}

// BuildProfile aggregates a review history ordered newest first. The average
// covers the whole history, the accuracy only the newest window entries.
// It returns false when there is nothing to aggregate.
func BuildProfile(history []Quality, window int) (PerformanceProfile, bool) {
	if len(history) == 0 {
		return PerformanceProfile{}, false
	}
	if window <= 0 {
		window = DefaultProfileWindow
	}

	sum := lo.SumBy(history, func(q Quality) int { return int(q.Clamp()) })
	recent := history[:min(window, len(history))]
	passed := lo.CountBy(recent, func(q Quality) bool { return q.Passed() })

	return PerformanceProfile{
		AverageQuality: float64(sum) / float64(len(history)),
		RecentAccuracy: float64(passed) / float64(len(recent)),
	}, true
}
