package scheduler

import (
	"context"
	"time"

	"github.com/example/cardbot/internal/config"
	"github.com/example/cardbot/internal/database"
	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(telegramID int64, count int) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	users     *database.UserRepository
	cards     *database.FlashcardRepository
	startHour int
	endHour   int
	now       func() time.Time
	logger    *logrus.Logger
}

// New creates a new scheduler instance
func New(db *sqlx.DB, cfg config.SchedulerConfig, notifier Notifier, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		users:     database.NewUserRepository(db),
		cards:     database.NewFlashcardRepository(db),
		startHour: cfg.StartHour,
		endHour:   cfg.EndHour,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// Hourly check for users who need notifications, first run on the next full hour
	next := s.now().UTC().Truncate(time.Hour).Add(time.Hour)
	_, err := s.scheduler.Every(1).Hour().StartAt(next).Do(func() {
		if _, err := s.CheckAndSendReminders(context.Background()); err != nil {
			s.logger.WithError(err).Error("reminder check failed")
		}
	})
	if err != nil {
		return err
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckAndSendReminders notifies users whose reminder hour is now and who
// have cards due. It returns the number of reminders sent.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	currentHour := now.Hour()

	if currentHour < s.startHour || currentHour > s.endHour {
		s.logger.Debugf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, s.startHour, s.endHour)
		return 0, nil
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		due, err := s.cards.CountDue(ctx, user.ID, now)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to count due cards")
			continue
		}
		if due == 0 {
			continue
		}

		// Don't announce more than the user reviews in one session
		count := min(due, user.CardsPerSession)
		if err := s.notifier.SendReminders(user.TelegramID, count); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// RunManualCheck reminds a single user regardless of the hour
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	due, err := s.cards.CountDue(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if due > 0 {
		return s.notifier.SendReminders(user.TelegramID, due)
	}
	return nil
}
