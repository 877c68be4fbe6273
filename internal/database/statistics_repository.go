package database

import (
	"context"
	"time"

	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// StatisticsRepository computes per-user counters
type StatisticsRepository struct {
	db sqlx.ExtContext
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db sqlx.ExtContext) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetUserStats runs the counters concurrently. Reviews today are counted
// from midnight UTC of now.
func (r *StatisticsRepository) GetUserStats(ctx context.Context, userID int64, now time.Time) (*models.UserStats, error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var stats models.UserStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.count(ctx, &stats.TotalFlashcards,
			"SELECT COUNT(*) FROM flashcards WHERE user_id = ?", userID)
	})
	g.Go(func() error {
		return r.count(ctx, &stats.DueFlashcards,
			"SELECT COUNT(*) FROM flashcards WHERE user_id = ? AND next_review_date <= ?", userID, now)
	})
	g.Go(func() error {
		return r.count(ctx, &stats.ReviewsToday,
			"SELECT COUNT(*) FROM reviews WHERE user_id = ? AND reviewed_at >= ?", userID, midnight)
	})
	g.Go(func() error {
		// same rule as srs.IsMastered
		return r.count(ctx, &stats.Mastered, `
			SELECT COUNT(*) FROM flashcards
			WHERE user_id = ? AND repetitions >= 5 AND last_quality >= 4 AND interval >= 30
		`, userID)
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to get user statistics")
	}
	return &stats, nil
}

func (r *StatisticsRepository) count(ctx context.Context, dest *int, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, r.db, dest, r.db.Rebind(query), args...)
}
