package bot

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/excel"
	"github.com/example/cardbot/internal/review"
	"github.com/example/cardbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const helpText = `🤖 Flashcard reviewer

/review - review the cards that are due
/add front | back - add a card
/delete <id> - delete a card
/session <n> - cards per review session
/remind - check for due cards now
/stats - your progress
/adaptive on|off - adjust intervals to your recent performance
/notify <hour>|off - daily reminder hour (UTC, 0-23)
/help - this message

Send an .xlsx or .csv file with front, back and tags columns to import cards.`

const alreadyRatedText = "✅ This card is already rated."

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.registerUser(ctx, message.From)
	if err != nil {
		return err
	}

	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(chatID, user)
	case "help":
		return b.sendText(chatID, helpText)
	case "review":
		return b.startReview(ctx, chatID, user)
	case "stats":
		return b.handleStats(ctx, chatID, user)
	case "adaptive":
		return b.handleAdaptive(ctx, chatID, user, args)
	case "notify":
		return b.handleNotify(ctx, chatID, user, args)
	case "add":
		return b.handleAdd(ctx, chatID, user, args)
	case "delete":
		return b.handleDelete(ctx, chatID, user, args)
	case "session":
		return b.handleSessionSize(ctx, chatID, user, args)
	case "remind":
		return b.handleRemind(ctx, chatID, user)
	default:
		return b.sendText(chatID, "Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleStart(chatID int64, user *models.User) error {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	text := fmt.Sprintf("👋 Hi %s!\n\n%s", name, helpText)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, user *models.User) error {
	stats, err := b.reviews.Stats(ctx, user.ID)
	if err != nil {
		return err
	}
	mode := "standard"
	if user.AdaptiveEnabled {
		mode = "adaptive"
	}
	var text strings.Builder
	text.WriteString("📊 Statistics\n\n")
	fmt.Fprintf(&text, "Cards: %d\n", stats.TotalFlashcards)
	fmt.Fprintf(&text, "Due now: %d\n", stats.DueFlashcards)
	fmt.Fprintf(&text, "Reviewed today: %d\n", stats.ReviewsToday)
	fmt.Fprintf(&text, "Mastered: %d\n", stats.Mastered)
	fmt.Fprintf(&text, "Scheduling: %s", mode)
	return b.sendText(chatID, text.String())
}

func (b *Bot) handleAdaptive(ctx context.Context, chatID int64, user *models.User, args string) error {
	var enabled bool
	switch strings.ToLower(args) {
	case "on":
		enabled = true
	case "off":
	default:
		return b.sendText(chatID, "Usage: /adaptive on|off")
	}
	if err := b.users.SetAdaptive(ctx, user.ID, enabled); err != nil {
		return err
	}
	if enabled {
		return b.sendText(chatID, "✅ Adaptive scheduling enabled. Intervals now follow your recent results.")
	}
	return b.sendText(chatID, "✅ Adaptive scheduling disabled. Standard SM-2 intervals are used.")
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, user *models.User, args string) error {
	if strings.EqualFold(args, "off") {
		if err := b.users.SetNotification(ctx, user.ID, false, user.NotificationHour); err != nil {
			return err
		}
		return b.sendText(chatID, "🔕 Reminders disabled.")
	}

	hour, err := strconv.Atoi(args)
	if err != nil || hour < 0 || hour > 23 {
		return b.sendText(chatID, "Usage: /notify <hour 0-23>|off")
	}
	if err := b.users.SetNotification(ctx, user.ID, true, hour); err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("🔔 Reminders at %02d:00 UTC.", hour))
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, user *models.User, args string) error {
	front, back, ok := strings.Cut(args, "|")
	front, back = strings.TrimSpace(front), strings.TrimSpace(back)
	if !ok || front == "" || back == "" {
		return b.sendText(chatID, "Usage: /add front | back")
	}
	card, err := b.reviews.AddCard(ctx, user.ID, front, back, "", "bot")
	if err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Added card #%d: %s", card.ID, card.Front))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, user *models.User, args string) error {
	cardID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return b.sendText(chatID, "Usage: /delete <card id>")
	}
	err = b.reviews.DeleteCard(ctx, user.ID, cardID)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, fmt.Sprintf("Card #%d not found.", cardID))
	}
	if err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Card #%d deleted.", cardID))
}

func (b *Bot) handleSessionSize(ctx context.Context, chatID int64, user *models.User, args string) error {
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > 100 {
		return b.sendText(chatID, "Usage: /session <1-100>")
	}
	if err := b.users.SetCardsPerSession(ctx, user.ID, n); err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Review sessions now have up to %d cards.", n))
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, user *models.User) error {
	if b.reminders == nil {
		return b.sendText(chatID, "Reminders are disabled.")
	}
	stats, err := b.reviews.Stats(ctx, user.ID)
	if err != nil {
		return err
	}
	if stats.DueFlashcards == 0 {
		return b.sendText(chatID, "🎉 Nothing is due. Come back later!")
	}
	return b.reminders.RunManualCheck(ctx, user.ID)
}

// startReview loads the due queue and shows its first card.
func (b *Bot) startReview(ctx context.Context, chatID int64, user *models.User) error {
	if n := b.pruneSessions(); n > 0 {
		b.logger.WithField("sessions", n).Debug("dropped idle review sessions")
	}

	cards, err := b.reviews.Due(ctx, user.ID, user.CardsPerSession)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		b.setSession(user.ID, nil)
		return b.sendText(chatID, "🎉 Nothing is due. Come back later!")
	}

	queue := make([]int64, len(cards))
	for i, c := range cards {
		queue[i] = c.ID
	}
	b.setSession(user.ID, &reviewSession{Queue: queue, ShownAt: b.now()})
	return b.sendFront(chatID, &cards[0], len(cards))
}

func (b *Bot) sendFront(chatID int64, card *models.Flashcard, remaining int) error {
	text := fmt.Sprintf("❓ %s\n\n(%d left)", card.Front, remaining)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(showAnswerButtons(card.ID))
	return b.sendMessage(msg)
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return errors.New("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.WithError(err).Warn("failed to answer callback")
	}

	chatID := callback.Message.Chat.ID
	cb, err := parseCallback(callback.Data)
	if err != nil {
		b.logger.WithError(err).Warn("ignoring callback")
		return b.sendText(chatID, "⚠️ Unknown action")
	}

	user, err := b.registerUser(ctx, callback.From)
	if err != nil {
		return err
	}

	switch cb.action {
	case actionReview:
		err = b.startReview(ctx, chatID, user)
	case actionStats:
		err = b.handleStats(ctx, chatID, user)
	case actionShow:
		err = b.handleShow(ctx, callback.Message, user, cb.cardID)
	case actionRate:
		err = b.handleRate(ctx, callback.Message, user, cb)
	}

	if errors.Is(err, review.ErrNotDue) {
		return b.sendText(chatID, alreadyRatedText)
	}
	if errors.Is(err, review.ErrCardNotOwned) || errors.Is(err, database.ErrNotFound) {
		b.logger.WithError(err).WithField("user_id", user.ID).Warn("card unavailable")
		return b.sendText(chatID, "⚠️ This card is no longer available.")
	}
	if err != nil {
		b.logger.WithError(err).WithField("user_id", user.ID).Error("callback failed")
		return b.sendText(chatID, "❌ Something went wrong. Please try again later.")
	}
	return nil
}

func (b *Bot) handleShow(ctx context.Context, message *tgbotapi.Message, user *models.User, cardID int64) error {
	card, err := b.reviews.Card(ctx, user.ID, cardID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("❓ %s\n\n💡 %s\n\nHow well did you remember it?", card.Front, card.Back)
	return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(
		message.Chat.ID,
		message.MessageID,
		text,
		createKeyboard(qualityButtons(card.ID)),
	))
}

func (b *Bot) handleRate(ctx context.Context, message *tgbotapi.Message, user *models.User, cb callback) error {
	if !b.awaitingRating(user.ID, cb.cardID) {
		return b.sendText(message.Chat.ID, alreadyRatedText)
	}
	res, err := b.reviews.Submit(ctx, user.ID, cb.cardID, cb.quality, b.answerTime(user.ID))
	if err != nil {
		return err
	}

	card := res.Card
	var text strings.Builder
	fmt.Fprintf(&text, "❓ %s\n\n💡 %s\n\n", card.Front, card.Back)
	fmt.Fprintf(&text, "Rated %d (%s). Next review %s, %s.",
		int(cb.quality), cb.quality, formatDays(card.Interval), card.NextReviewDate.Format("Jan 2"))
	if res.Profile != nil && res.Profile.Multiplier() != 1.0 {
		fmt.Fprintf(&text, "\nAdaptive multiplier: ×%.2f", res.Profile.Multiplier())
	}
	if res.Mastered {
		text.WriteString("\n🏆 Mastered!")
	}
	if err := b.editMessage(tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, text.String())); err != nil {
		return err
	}

	return b.nextCard(ctx, message.Chat.ID, user, cb.cardID)
}

// awaitingRating reports whether cardID may be rated by the user now. With
// a running session only cards still queued qualify; without one (e.g.
// after a restart) the service decides by the due date.
func (b *Bot) awaitingRating(userID, cardID int64) bool {
	s, ok := b.session(userID)
	if !ok {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Contains(s.Queue, cardID)
}

// answerTime is the time since the front of the current card was sent,
// or zero when there is no session or the user walked away.
func (b *Bot) answerTime(userID int64) time.Duration {
	s, ok := b.session(userID)
	if !ok || s.ShownAt.IsZero() {
		return 0
	}
	d := b.now().Sub(s.ShownAt)
	if d < 0 || d > b.config.MaxAnswerTime {
		return 0
	}
	return d
}

// nextCard drops the rated card from the session and shows the next one.
func (b *Bot) nextCard(ctx context.Context, chatID int64, user *models.User, ratedID int64) error {
	b.mu.Lock()
	s, ok := b.sessions[user.ID]
	var next int64
	var remaining int
	if ok {
		queue := s.Queue[:0]
		for _, id := range s.Queue {
			if id != ratedID {
				queue = append(queue, id)
			}
		}
		s.Queue = queue
		s.ShownAt = b.now()
		remaining = len(queue)
		if remaining > 0 {
			next = queue[0]
		} else {
			delete(b.sessions, user.ID)
		}
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}
	if remaining == 0 {
		msg := tgbotapi.NewMessage(chatID, "✅ Session complete!")
		msg.ReplyMarkup = createKeyboard(mainMenuButtons())
		return b.sendMessage(msg)
	}

	card, err := b.reviews.Card(ctx, user.ID, next)
	if err != nil {
		return err
	}
	return b.sendFront(chatID, card, remaining)
}

// handleDocument imports flashcards from an uploaded spreadsheet.
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.registerUser(ctx, message.From)
	if err != nil {
		return err
	}
	chatID := message.Chat.ID
	doc := message.Document

	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".csv" && ext != ".xlsx" && ext != ".xlsm" {
		return b.sendText(chatID, "⚠️ Please send an .xlsx or .csv file.")
	}
	if int64(doc.FileSize) > int64(b.config.MaxImportSize) && !b.isAdmin(message.From.ID) {
		return b.sendText(chatID, "⚠️ The file is too large.")
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return errors.Wrap(err, "failed to get file URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build download request")
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to download file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	result, err := b.importer.Import(ctx, user.ID, resp.Body, ext, excel.DefaultImportConfig())
	if err != nil {
		b.logger.WithError(err).WithField("file", doc.FileName).Warn("import failed")
		return b.sendText(chatID, fmt.Sprintf("❌ Import failed: %v", err))
	}

	b.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"file":    doc.FileName,
		"created": result.Created,
		"updated": result.Updated,
	}).Info("cards imported")

	return b.sendText(chatID, formatImportResult(result))
}

func formatImportResult(result *excel.ImportResult) string {
	var text strings.Builder
	text.WriteString("📥 Import finished\n\n")
	fmt.Fprintf(&text, "Rows: %d\n", result.TotalProcessed)
	fmt.Fprintf(&text, "Created: %d\n", result.Created)
	fmt.Fprintf(&text, "Updated: %d\n", result.Updated)
	fmt.Fprintf(&text, "Skipped: %d", result.Skipped)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&text, "\n\n⚠️ %d error(s):\n", len(result.Errors))
		for i, e := range result.Errors {
			if i == 5 {
				fmt.Fprintf(&text, "…and %d more", len(result.Errors)-5)
				break
			}
			text.WriteString(e + "\n")
		}
	}
	return text.String()
}
