package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/cardbot/internal/srs"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ReviewRepository stores the review history log
type ReviewRepository struct {
	db sqlx.ExtContext
}

// NewReviewRepository creates a new repository instance
func NewReviewRepository(db sqlx.ExtContext) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *ReviewRepository) WithTx(tx *sqlx.Tx) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

// Create appends a review to the log
func (r *ReviewRepository) Create(ctx context.Context, rev *models.Review) error {
	if rev.ReviewedAt.IsZero() {
		rev.ReviewedAt = time.Now()
	}
	rev.ReviewedAt = rev.ReviewedAt.UTC()

	query := r.db.Rebind(`
		INSERT INTO reviews (user_id, flashcard_id, quality, time_spent, reviewed_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := sqlx.GetContext(ctx, r.db, &rev.ID, query,
		rev.UserID,
		rev.FlashcardID,
		rev.Quality,
		rev.TimeSpent,
		rev.ReviewedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create review")
	}
	return nil
}

// History returns the newest reviews of a user
func (r *ReviewRepository) History(ctx context.Context, userID int64, limit int) ([]models.Review, error) {
	var reviews []models.Review
	query := r.db.Rebind(`
		SELECT id, user_id, flashcard_id, quality, time_spent, reviewed_at
		FROM reviews
		WHERE user_id = ?
		ORDER BY reviewed_at DESC, id DESC
		LIMIT ?
	`)
	if err := sqlx.SelectContext(ctx, r.db, &reviews, query, userID, limit); err != nil {
		return nil, errors.Wrap(err, "failed to get review history")
	}
	return reviews, nil
}

// CountSince returns how many reviews the user made at or after since
func (r *ReviewRepository) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM reviews WHERE user_id = ? AND reviewed_at >= ?")
	if err := sqlx.GetContext(ctx, r.db, &count, query, userID, since.UTC()); err != nil {
		return 0, errors.Wrap(err, "failed to count reviews")
	}
	return count, nil
}

// Profile aggregates the user's history into a performance profile: the
// average over every review and the accuracy over the newest window.
// The second result is false when the user has no reviews yet.
func (r *ReviewRepository) Profile(ctx context.Context, userID int64, window int) (srs.PerformanceProfile, bool, error) {
	var avg sql.NullFloat64
	query := r.db.Rebind("SELECT AVG(quality) FROM reviews WHERE user_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &avg, query, userID); err != nil {
		return srs.PerformanceProfile{}, false, errors.Wrap(err, "failed to average review quality")
	}
	if !avg.Valid {
		return srs.PerformanceProfile{}, false, nil
	}

	if window <= 0 {
		window = srs.DefaultProfileWindow
	}
	recent, err := r.History(ctx, userID, window)
	if err != nil {
		return srs.PerformanceProfile{}, false, err
	}
	profile, ok := srs.BuildProfile(lo.Map(recent, func(rev models.Review, _ int) srs.Quality {
		return srs.Quality(rev.Quality)
	}), window)
	if !ok {
		return srs.PerformanceProfile{}, false, nil
	}
	profile.AverageQuality = avg.Float64
	return profile, true, nil
}
