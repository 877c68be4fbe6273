package scheduler

import (
	"context"
	"errors"
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

type recordingNotifier struct {
	sent map[int64]int
	fail map[int64]bool
}

func (n *recordingNotifier) SendReminders(telegramID int64, count int) error {
	if n.fail[telegramID] {
		return errors.New("blocked by user")
	}
	n.sent[telegramID] = count
	return nil
}

func setup(t *testing.T, now time.Time) (*sqlx.DB, *Scheduler, *recordingNotifier) {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := &recordingNotifier{sent: map[int64]int{}, fail: map[int64]bool{}}
	s := New(db, config.SchedulerConfig{Enabled: true, StartHour: 8, EndHour: 22}, n, logging.Discard())
	s.now = func() time.Time { return now }
	return db, s, n
}

func addUser(t *testing.T, db *sqlx.DB, telegramID int64, hour, perSession, dueCards int, now time.Time) *models.User {
	t.Helper()
	ctx := context.Background()
	users := database.NewUserRepository(db)
	u := &models.User{TelegramID: telegramID, NotificationEnabled: true, NotificationHour: hour, CardsPerSession: perSession}
	require.NoError(t, users.Upsert(ctx, u))

	cards := database.NewFlashcardRepository(db)
	for i := 0; i < dueCards; i++ {
		c := &models.Flashcard{UserID: u.ID, Front: "f", Back: "b", ReviewState: srs.NewReviewState(now.Add(-time.Hour)), LastQuality: -1}
		require.NoError(t, cards.Create(ctx, c))
	}
	return u
}

func TestCheckAndSendReminders(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
	db, s, n := setup(t, now)

	addUser(t, db, 100, 9, 10, 3, now)  // reminded with all due cards
	addUser(t, db, 200, 9, 2, 5, now)   // capped at session size
	addUser(t, db, 300, 9, 10, 0, now)  // nothing due
	addUser(t, db, 400, 18, 10, 4, now) // other hour
	addUser(t, db, 500, 9, 10, 1, now)  // delivery fails
	n.fail[500] = true

	sent, err := s.CheckAndSendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, map[int64]int{100: 3, 200: 2}, n.sent)
}

func TestCheckAndSendReminders_OutsideHours(t *testing.T) {
	now := time.Date(2024, time.March, 10, 3, 0, 0, 0, time.UTC)
	db, s, n := setup(t, now)
	addUser(t, db, 100, 3, 10, 3, now)

	sent, err := s.CheckAndSendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, n.sent)
}

func TestRunManualCheck(t *testing.T) {
	now := time.Date(2024, time.March, 10, 3, 0, 0, 0, time.UTC)
	db, s, n := setup(t, now)
	u := addUser(t, db, 100, 18, 2, 4, now)

	require.NoError(t, s.RunManualCheck(context.Background(), u.ID))
	assert.Equal(t, 4, n.sent[100])
}

func TestStartStop(t *testing.T) {
	_, s, _ := setup(t, time.Now())
	require.NoError(t, s.Start())
	s.Stop()
}
