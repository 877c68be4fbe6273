package review

import (
	"context"
	"testing"
	"time"

	"github.com/example/cardbot/internal/config"
	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/logging"
	"github.com/example/cardbot/internal/srs"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db  *sqlx.DB
	svc *Service
	now time.Time
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, now: testNow}
	f.svc = NewService(db, Config{
		ProfileWindow:    20,
		StrictValidation: strict,
		Now:              func() time.Time { return f.now },
	}, logging.Discard())
	return f
}

func (f *fixture) user(t *testing.T, telegramID int64, adaptive bool) *models.User {
	t.Helper()
	ctx := context.Background()
	repo := database.NewUserRepository(f.db)
	u := &models.User{TelegramID: telegramID}
	require.NoError(t, repo.Upsert(ctx, u))
	if adaptive {
		require.NoError(t, repo.SetAdaptive(ctx, u.ID, true))
	}
	return u
}

func (f *fixture) card(t *testing.T, userID int64, state srs.ReviewState) *models.Flashcard {
	t.Helper()
	c := &models.Flashcard{UserID: userID, Front: "front", Back: "back", ReviewState: state, LastQuality: -1}
	require.NoError(t, database.NewFlashcardRepository(f.db).Create(context.Background(), c))
	return c
}

func (f *fixture) reviewCount(t *testing.T, userID int64) int {
	t.Helper()
	n, err := database.NewReviewRepository(f.db).CountSince(context.Background(), userID, time.Time{})
	require.NoError(t, err)
	return n
}

func TestService_SubmitBaseline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, false)

	card, err := f.svc.AddCard(ctx, u.ID, "hola", "hello", "es", "manual")
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 4*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Adaptive)
	assert.Nil(t, res.Profile)
	assert.Equal(t, 1, res.Card.Interval)
	assert.Equal(t, 1, res.Card.Repetitions)
	assert.InDelta(t, 2.6, res.Card.EaseFactor, 1e-9)
	assert.Equal(t, testNow.AddDate(0, 0, 1), res.Card.NextReviewDate)
	assert.Equal(t, srs.DefaultEaseFactor, res.Previous.EaseFactor)

	f.now = res.Card.NextReviewDate
	res, err = f.svc.Submit(ctx, u.ID, card.ID, srs.QualityCorrectHesitation, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Card.Interval)

	f.now = res.Card.NextReviewDate
	res, err = f.svc.Submit(ctx, u.ID, card.ID, srs.QualityCorrectHesitation, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Card.Repetitions)
	assert.Equal(t, 16, res.Card.Interval)

	stored, err := database.NewFlashcardRepository(f.db).GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, stored.Interval)
	assert.Equal(t, 4, stored.LastQuality)
	assert.WithinDuration(t, f.now.AddDate(0, 0, 16), stored.NextReviewDate, time.Millisecond)

	assert.Equal(t, 3, f.reviewCount(t, u.ID))
}

func TestService_SubmitClampsQuality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, false)
	card := f.card(t, u.ID, srs.NewReviewState(testNow))

	res, err := f.svc.Submit(ctx, u.ID, card.ID, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Card.LastQuality)

	history, err := database.NewReviewRepository(f.db).History(ctx, u.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 5, history[0].Quality)
}

func TestService_SubmitAdaptive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, true)
	card := f.card(t, u.ID, srs.ReviewState{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewDate: testNow})

	reviews := database.NewReviewRepository(f.db)
	for i := 0; i < 10; i++ {
		require.NoError(t, reviews.Create(ctx, &models.Review{
			UserID: u.ID, FlashcardID: card.ID, Quality: 5, ReviewedAt: testNow.Add(-time.Duration(i+1) * time.Hour),
		}))
	}

	res, err := f.svc.Submit(ctx, u.ID, card.ID, srs.QualityCorrectHesitation, 0)
	require.NoError(t, err)
	assert.True(t, res.Adaptive)
	require.NotNil(t, res.Profile)
	assert.Equal(t, 1.3, res.Profile.Multiplier())
	assert.Equal(t, 20, res.Card.Interval)
	assert.Equal(t, 3, res.Card.Repetitions)
	assert.InDelta(t, 2.5, res.Card.EaseFactor, 1e-9)
	assert.Equal(t, testNow.AddDate(0, 0, 20), res.Card.NextReviewDate)
}

func TestService_SubmitAdaptiveWithoutHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, true)
	card := f.card(t, u.ID, srs.ReviewState{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewDate: testNow})

	res, err := f.svc.Submit(ctx, u.ID, card.ID, srs.QualityCorrectHesitation, 0)
	require.NoError(t, err)
	assert.True(t, res.Adaptive)
	assert.Nil(t, res.Profile)
	assert.Equal(t, 15, res.Card.Interval)
}

func TestService_SubmitErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	owner := f.user(t, 1, false)
	other := f.user(t, 2, false)
	card := f.card(t, owner.ID, srs.NewReviewState(testNow))

	_, err := f.svc.Submit(ctx, other.ID, card.ID, srs.QualityPerfect, 0)
	assert.ErrorIs(t, err, ErrCardNotOwned)

	_, err = f.svc.Submit(ctx, owner.ID, card.ID+100, srs.QualityPerfect, 0)
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Zero(t, f.reviewCount(t, owner.ID))
	assert.Zero(t, f.reviewCount(t, other.ID))
}

func TestService_StrictValidation(t *testing.T) {
	ctx := context.Background()
	bad := srs.ReviewState{EaseFactor: 1.1, Interval: 3, Repetitions: 4, NextReviewDate: testNow}

	strict := newFixture(t, true)
	u := strict.user(t, 1, false)
	card := strict.card(t, u.ID, bad)

	_, err := strict.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 0)
	assert.ErrorIs(t, err, srs.ErrInvalidState)
	assert.Zero(t, strict.reviewCount(t, u.ID))

	lenient := newFixture(t, false)
	u = lenient.user(t, 1, false)
	card = lenient.card(t, u.ID, bad)

	res, err := lenient.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.4, res.Card.EaseFactor, 1e-9)
}

func TestService_DueAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, false)

	reviewed := f.card(t, u.ID, srs.ReviewState{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewDate: testNow.Add(-48 * time.Hour)})
	hard := f.card(t, u.ID, srs.ReviewState{EaseFactor: 1.5, Interval: 1, Repetitions: 1, NextReviewDate: testNow.Add(-time.Hour)})
	fresh := f.card(t, u.ID, srs.NewReviewState(testNow))
	f.card(t, u.ID, srs.ReviewState{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewDate: testNow.Add(72 * time.Hour)})

	due, err := f.svc.Due(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, fresh.ID, due[0].ID)
	assert.Equal(t, hard.ID, due[1].ID)
	assert.Equal(t, reviewed.ID, due[2].ID)

	due, err = f.svc.Due(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	_, err = f.svc.Submit(ctx, u.ID, fresh.ID, srs.QualityPerfect, 0)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalFlashcards)
	assert.Equal(t, 2, stats.DueFlashcards)
	assert.Equal(t, 1, stats.ReviewsToday)
	assert.Equal(t, 0, stats.Mastered)
}

func TestService_Card(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	owner := f.user(t, 1, false)
	other := f.user(t, 2, false)
	card := f.card(t, owner.ID, srs.NewReviewState(testNow))

	got, err := f.svc.Card(ctx, owner.ID, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "back", got.Back)

	_, err = f.svc.Card(ctx, other.ID, card.ID)
	assert.ErrorIs(t, err, ErrCardNotOwned)
}

func TestService_SubmitRejectsCardNotDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	u := f.user(t, 1, false)
	card := f.card(t, u.ID, srs.NewReviewState(testNow))

	res, err := f.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 0)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 0)
	assert.ErrorIs(t, err, ErrNotDue)

	stored, err := database.NewFlashcardRepository(f.db).GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Repetitions)
	assert.Equal(t, 1, f.reviewCount(t, u.ID))

	f.now = res.Card.NextReviewDate
	_, err = f.svc.Submit(ctx, u.ID, card.ID, srs.QualityPerfect, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reviewCount(t, u.ID))
}
