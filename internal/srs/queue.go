package srs

import (
	"sort"
	"time"
)

// IsMastered determines if a card is considered learned:
// at least 5 consecutive successes, the latest rated 4 or 5, and an
// interval of at least 30 days.
func IsMastered(state ReviewState, lastQuality Quality) bool {
	return state.Repetitions >= 5 &&
		lastQuality.Clamp() >= QualityCorrectHesitation &&
		state.Interval >= 30
}

// DueBefore orders two due states for presentation:
// never reviewed first, then harder cards (lower ease factor), then the
// more overdue card.
func DueBefore(a, b ReviewState) bool {
	if (a.Repetitions == 0) != (b.Repetitions == 0) {
		return a.Repetitions == 0
	}
	if a.EaseFactor != b.EaseFactor {
		return a.EaseFactor < b.EaseFactor
	}
	return a.NextReviewDate.Before(b.NextReviewDate)
}

// NextDue filters the items due at now, orders them with DueBefore and
// returns at most limit of them. A non-positive limit means no limit.
func NextDue[T any](items []T, state func(T) ReviewState, now time.Time, limit int) []T {
	due := make([]T, 0, len(items))
	for _, it := range items {
		if state(it).DueAt(now) {
			due = append(due, it)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return DueBefore(state(due[i]), state(due[j]))
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
