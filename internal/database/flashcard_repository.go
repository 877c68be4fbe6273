package database

import (
	"context"
	"time"

	"github.com/example/cardbot/internal/srs"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const flashcardColumns = `id, user_id, front, back, tags, source, ease_factor, interval,
	repetitions, last_quality, next_review_date, created_at, updated_at`

// FlashcardRepository handles database operations for flashcards
type FlashcardRepository struct {
	db sqlx.ExtContext
}

// NewFlashcardRepository creates a new repository instance
func NewFlashcardRepository(db sqlx.ExtContext) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *FlashcardRepository) WithTx(tx *sqlx.Tx) *FlashcardRepository {
	return &FlashcardRepository{db: tx}
}

// Create inserts a new card. A card without scheduling state starts with
// the default state and is due immediately.
func (r *FlashcardRepository) Create(ctx context.Context, card *models.Flashcard) error {
	now := time.Now().UTC()
	if card.EaseFactor == 0 {
		card.ReviewState = srs.NewReviewState(now)
		card.LastQuality = -1
	}
	if card.Source == "" {
		card.Source = "manual"
	}

	query := r.db.Rebind(`
		INSERT INTO flashcards (
			user_id, front, back, tags, source, ease_factor, interval,
			repetitions, last_quality, next_review_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := sqlx.GetContext(ctx, r.db, &card.ID, query,
		card.UserID,
		card.Front,
		card.Back,
		card.Tags,
		card.Source,
		card.EaseFactor,
		card.Interval,
		card.Repetitions,
		card.LastQuality,
		card.NextReviewDate.UTC(),
		now,
		now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create flashcard")
	}
	card.CreatedAt, card.UpdatedAt = now, now
	return nil
}

// GetByID returns a card by ID
func (r *FlashcardRepository) GetByID(ctx context.Context, id int64) (*models.Flashcard, error) {
	var card models.Flashcard
	err := sqlx.GetContext(ctx, r.db, &card, r.db.Rebind("SELECT "+flashcardColumns+" FROM flashcards WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "flashcard")
	}
	return &card, nil
}

// GetByFront finds a user's card by its front side, used to deduplicate imports.
func (r *FlashcardRepository) GetByFront(ctx context.Context, userID int64, front string) (*models.Flashcard, error) {
	var card models.Flashcard
	query := r.db.Rebind("SELECT " + flashcardColumns + " FROM flashcards WHERE user_id = ? AND front = ?")
	if err := sqlx.GetContext(ctx, r.db, &card, query, userID, front); err != nil {
		return nil, notFound(err, "flashcard")
	}
	return &card, nil
}

// ListByUser returns all cards of a user, newest first
func (r *FlashcardRepository) ListByUser(ctx context.Context, userID int64) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	query := r.db.Rebind("SELECT " + flashcardColumns + " FROM flashcards WHERE user_id = ? ORDER BY created_at DESC, id DESC")
	if err := sqlx.SelectContext(ctx, r.db, &cards, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to list flashcards")
	}
	return cards, nil
}

// GetDue returns cards due for review at now, earliest first
func (r *FlashcardRepository) GetDue(ctx context.Context, userID int64, now time.Time) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	query := r.db.Rebind(`
		SELECT ` + flashcardColumns + `
		FROM flashcards
		WHERE user_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC, id ASC
	`)
	if err := sqlx.SelectContext(ctx, r.db, &cards, query, userID, now.UTC()); err != nil {
		return nil, errors.Wrap(err, "failed to get due flashcards")
	}
	return cards, nil
}

// CountDue returns the number of cards due at now
func (r *FlashcardRepository) CountDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM flashcards WHERE user_id = ? AND next_review_date <= ?")
	if err := sqlx.GetContext(ctx, r.db, &count, query, userID, now.UTC()); err != nil {
		return 0, errors.Wrap(err, "failed to count due flashcards")
	}
	return count, nil
}

// UpdateState stores the outcome of a review
func (r *FlashcardRepository) UpdateState(ctx context.Context, id int64, state srs.ReviewState, lastQuality srs.Quality) error {
	query := r.db.Rebind(`
		UPDATE flashcards SET
			ease_factor = ?,
			interval = ?,
			repetitions = ?,
			next_review_date = ?,
			last_quality = ?,
			updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		state.EaseFactor,
		state.Interval,
		state.Repetitions,
		state.NextReviewDate.UTC(),
		int(lastQuality.Clamp()),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update flashcard state")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "flashcard %d", id)
	}
	return nil
}

// UpdateContent replaces the back side and tags, keeping the schedule
func (r *FlashcardRepository) UpdateContent(ctx context.Context, id int64, back, tags string) error {
	query := r.db.Rebind("UPDATE flashcards SET back = ?, tags = ?, updated_at = ? WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, back, tags, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to update flashcard")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "flashcard %d", id)
	}
	return nil
}

// Delete removes a card owned by the user
func (r *FlashcardRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM flashcards WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete flashcard")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "flashcard %d", id)
	}
	return nil
}
