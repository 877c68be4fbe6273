package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type card struct {
	id    int
	state ReviewState
}

func cardState(c card) ReviewState { return c.state }

func TestIsMastered(t *testing.T) {
	assert.True(t, IsMastered(ReviewState{EaseFactor: 2.5, Interval: 30, Repetitions: 5}, QualityCorrectHesitation))
	assert.False(t, IsMastered(ReviewState{EaseFactor: 2.5, Interval: 30, Repetitions: 5}, QualityCorrectDifficult))
	assert.False(t, IsMastered(ReviewState{EaseFactor: 2.5, Interval: 29, Repetitions: 8}, QualityPerfect))
	assert.False(t, IsMastered(ReviewState{EaseFactor: 2.5, Interval: 60, Repetitions: 4}, QualityPerfect))
}

func TestNextDue(t *testing.T) {
	day := 24 * time.Hour
	cards := []card{
		{1, ReviewState{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewDate: fixedNow.Add(-2 * day)}},
		{2, ReviewState{EaseFactor: 1.8, Interval: 1, Repetitions: 1, NextReviewDate: fixedNow.Add(-day)}},
		{3, ReviewState{EaseFactor: 2.5, Interval: 1, Repetitions: 0, NextReviewDate: fixedNow}},
		{4, ReviewState{EaseFactor: 1.3, Interval: 9, Repetitions: 3, NextReviewDate: fixedNow.Add(day)}},
		{5, ReviewState{EaseFactor: 2.5, Interval: 15, Repetitions: 3, NextReviewDate: fixedNow.Add(-5 * day)}},
	}

	got := NextDue(cards, cardState, fixedNow, 0)
	ids := make([]int, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.id)
	}
	assert.Equal(t, []int{3, 2, 5, 1}, ids)

	assert.Len(t, NextDue(cards, cardState, fixedNow, 2), 2)
	assert.Empty(t, NextDue(cards, cardState, fixedNow.Add(-10*day), 10))
}
