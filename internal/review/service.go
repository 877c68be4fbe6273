// Package review is the submission entry point of the scheduler: it loads
// a card's state, runs the engine the user is enrolled in and stores the
// result together with the review log entry.
package review

import (
	"context"
	"time"

	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/srs"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrCardNotOwned is returned when a user rates a card that belongs to
// someone else.
var ErrCardNotOwned = errors.New("review: flashcard does not belong to user")

// ErrNotDue is returned when a card is rated before its next review date,
// e.g. a repeated press of the same rating button.
var ErrNotDue = errors.New("review: flashcard is not due yet")

// Result is the outcome of one submitted review.
type Result struct {
	Card     models.Flashcard
	Previous srs.ReviewState
	Adaptive bool
	Profile  *srs.PerformanceProfile
	Mastered bool
}

// Service wires the SM-2 engine to persistence.
type Service struct {
	db            *sqlx.DB
	engine        *srs.SM2
	users         *database.UserRepository
	cards         *database.FlashcardRepository
	reviews       *database.ReviewRepository
	stats         *database.StatisticsRepository
	profileWindow int
	now           func() time.Time
	logger        *logrus.Logger
}

// Config holds the knobs of the service.
type Config struct {
	ProfileWindow    int
	StrictValidation bool
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// NewService creates a review service on top of db.
func NewService(db *sqlx.DB, cfg Config, logger *logrus.Logger) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	window := cfg.ProfileWindow
	if window <= 0 {
		window = srs.DefaultProfileWindow
	}

	opts := []srs.Option{srs.WithClock(now)}
	if cfg.StrictValidation {
		opts = append(opts, srs.WithStrictValidation())
	}

	return &Service{
		db:            db,
		engine:        srs.NewSM2(opts...),
		users:         database.NewUserRepository(db),
		cards:         database.NewFlashcardRepository(db),
		reviews:       database.NewReviewRepository(db),
		stats:         database.NewStatisticsRepository(db),
		profileWindow: window,
		now:           now,
		logger:        logger,
	}
}

// Submit records a review of cardID by userID and reschedules the card.
// Reading the prior state, writing the new one and appending to the log
// happen in one transaction.
func (s *Service) Submit(ctx context.Context, userID, cardID int64, quality srs.Quality, timeSpent time.Duration) (*Result, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	users := s.users.WithTx(tx)
	cards := s.cards.WithTx(tx)
	reviews := s.reviews.WithTx(tx)

	card, err := cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, errors.Wrapf(ErrCardNotOwned, "card %d, user %d", cardID, userID)
	}
	if !card.DueAt(s.now()) {
		return nil, errors.Wrapf(ErrNotDue, "card %d due %s", cardID, card.NextReviewDate.Format(time.RFC3339))
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &Result{Previous: card.ReviewState, Adaptive: user.AdaptiveEnabled}
	var next srs.ReviewState
	if user.AdaptiveEnabled {
		profile, ok, err := reviews.Profile(ctx, userID, s.profileWindow)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Profile = &profile
		}
		next, err = s.engine.Adaptive(card.ReviewState, quality, res.Profile)
		if err != nil {
			return nil, errors.Wrapf(err, "card %d", cardID)
		}
	} else {
		next, err = s.engine.Baseline(card.ReviewState, quality)
		if err != nil {
			return nil, errors.Wrapf(err, "card %d", cardID)
		}
	}

	q := quality.Clamp()
	if err := cards.UpdateState(ctx, cardID, next, q); err != nil {
		return nil, err
	}
	err = reviews.Create(ctx, &models.Review{
		UserID:      userID,
		FlashcardID: cardID,
		Quality:     int(q),
		TimeSpent:   int(timeSpent / time.Second),
		ReviewedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit review")
	}

	card.ReviewState = next
	card.LastQuality = int(q)
	res.Card = *card
	res.Mastered = srs.IsMastered(next, q)

	fields := logrus.Fields{
		"user_id":  userID,
		"card_id":  cardID,
		"quality":  int(q),
		"interval": next.Interval,
		"ease":     next.EaseFactor,
		"adaptive": res.Adaptive,
	}
	if res.Profile != nil {
		fields["multiplier"] = res.Profile.Multiplier()
	}
	s.logger.WithFields(fields).Debug("card rescheduled")

	return res, nil
}

// Due returns up to limit cards to review now, never-reviewed cards first,
// then the hardest, then the most overdue.
func (s *Service) Due(ctx context.Context, userID int64, limit int) ([]models.Flashcard, error) {
	now := s.now()
	cards, err := s.cards.GetDue(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return srs.NextDue(cards, models.Flashcard.State, now, limit), nil
}

// Stats returns the user's counters.
func (s *Service) Stats(ctx context.Context, userID int64) (*models.UserStats, error) {
	return s.stats.GetUserStats(ctx, userID, s.now())
}

// AddCard stores a new card with the initial schedule, due immediately.
func (s *Service) AddCard(ctx context.Context, userID int64, front, back, tags, source string) (*models.Flashcard, error) {
	card := &models.Flashcard{
		UserID:      userID,
		Front:       front,
		Back:        back,
		Tags:        tags,
		Source:      source,
		ReviewState: srs.NewReviewState(s.now()),
		LastQuality: -1,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Card returns one of the user's cards.
func (s *Service) Card(ctx context.Context, userID, cardID int64) (*models.Flashcard, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, errors.Wrapf(ErrCardNotOwned, "card %d, user %d", cardID, userID)
	}
	return card, nil
}

// DeleteCard removes one of the user's cards together with its review log.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID int64) error {
	return s.cards.Delete(ctx, userID, cardID)
}
