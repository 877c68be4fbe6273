package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/example/cardbot/internal/excel"
	"github.com/example/cardbot/internal/review"
	"github.com/example/cardbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// userStore is what the bot needs from the user repository.
type userStore interface {
	Upsert(ctx context.Context, u *models.User) error
	SetAdaptive(ctx context.Context, id int64, enabled bool) error
	SetNotification(ctx context.Context, id int64, enabled bool, hour int) error
	SetCardsPerSession(ctx context.Context, id int64, count int) error
}

// reminderChecker triggers an immediate reminder for one user.
type reminderChecker interface {
	RunManualCheck(ctx context.Context, userID int64) error
}

// reviewSession is a user's queue of cards for the current /review run
type reviewSession struct {
	Queue   []int64
	ShownAt time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api          sender
	reviews      *review.Service
	users        userStore
	importer     *excel.Importer
	reminders    reminderChecker
	httpClient   *http.Client
	config       *BotConfig
	adminUserIDs map[int64]bool
	logger       *logrus.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[int64]*reviewSession
}

// New connects to Telegram with token and builds the bot.
func New(token string, cfg *BotConfig, reviews *review.Service, users userStore, importer *excel.Importer, adminIDs []int64, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram API client")
	}
	logger.WithField("username", api.Self.UserName).Info("authorized on Telegram")
	return newBot(api, cfg, reviews, users, importer, adminIDs, logger), nil
}

func newBot(api sender, cfg *BotConfig, reviews *review.Service, users userStore, importer *excel.Importer, adminIDs []int64, logger *logrus.Logger) *Bot {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Bot{
		api:          api,
		reviews:      reviews,
		users:        users,
		importer:     importer,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		config:       cfg,
		adminUserIDs: admins,
		logger:       logger,
		now:          time.Now,
		sessions:     make(map[int64]*reviewSession),
	}
}

// SetReminderChecker enables the /remind command.
func (b *Bot) SetReminderChecker(r reminderChecker) {
	b.reminders = r
}

// Start processes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Document != nil:
		err = b.handleDocument(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand():
		err = b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		err = b.sendText(update.Message.Chat.ID, "Send /help to see what I can do.")
	}
	if err != nil {
		b.logger.WithError(err).WithField("update_id", update.UpdateID).Error("failed to handle update")
	}
}

// SendReminders tells a user how many cards are waiting. It satisfies
// scheduler.Notifier.
func (b *Bot) SendReminders(telegramID int64, count int) error {
	if count <= 0 {
		return nil
	}
	text := fmt.Sprintf("⏰ You have %d card(s) due for review.", count)
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "📚 Start review", CallbackData: actionReview}}})
	return b.sendMessage(msg)
}

// registerUser upserts the Telegram user and returns the stored row.
func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	if from == nil {
		return nil, errors.New("update has no sender")
	}
	u := models.NewUser(from.ID, b.config.CardsPerSession)
	u.Username = from.UserName
	u.FirstName = from.FirstName
	if err := b.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *Bot) isAdmin(telegramID int64) bool {
	return b.adminUserIDs[telegramID]
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// editMessage uses Request because Telegram answers edits of inline
// messages with a bare boolean.
func (b *Bot) editMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Request(msg); err != nil {
		return errors.Wrap(err, "failed to edit message")
	}
	return nil
}

func (b *Bot) session(userID int64) (*reviewSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	return s, ok
}

func (b *Bot) setSession(userID int64, s *reviewSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, userID)
		return
	}
	b.sessions[userID] = s
}

// pruneSessions drops sessions whose last card was sent more than
// SessionTTL ago.
func (b *Bot) pruneSessions() int {
	if b.config.SessionTTL <= 0 {
		return 0
	}
	cutoff := b.now().Add(-b.config.SessionTTL)
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for userID, s := range b.sessions {
		if s.ShownAt.Before(cutoff) {
			delete(b.sessions, userID)
			dropped++
		}
	}
	return dropped
}
