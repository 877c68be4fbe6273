package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/cardbot/internal/srs"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions
const (
	actionReview = "review"
	actionShow   = "show"
	actionRate   = "rate"
	actionStats  = "stats"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📚 Review", CallbackData: actionReview}},
		{{Text: "📊 Statistics", CallbackData: actionStats}},
	}
}

func showAnswerButtons(cardID int64) [][]MenuButton {
	return [][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: fmt.Sprintf("%s:%d", actionShow, cardID)}},
	}
}

var qualityLabels = [...]string{
	srs.QualityBlackout:          "0 😶",
	srs.QualityIncorrect:         "1 ❌",
	srs.QualityIncorrectFamiliar: "2 🤔",
	srs.QualityCorrectDifficult:  "3 😓",
	srs.QualityCorrectHesitation: "4 🙂",
	srs.QualityPerfect:           "5 🚀",
}

// qualityButtons lays the six grades out as failing and passing rows.
func qualityButtons(cardID int64) [][]MenuButton {
	rows := make([][]MenuButton, 2)
	for q := srs.QualityBlackout; q <= srs.QualityPerfect; q++ {
		row := 0
		if q.Passed() {
			row = 1
		}
		rows[row] = append(rows[row], MenuButton{
			Text:         qualityLabels[q],
			CallbackData: fmt.Sprintf("%s:%d:%d", actionRate, cardID, int(q)),
		})
	}
	return rows
}

type callback struct {
	action  string
	cardID  int64
	quality srs.Quality
}

// parseCallback decodes "action", "show:<card>" and "rate:<card>:<quality>".
func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	cb := callback{action: parts[0]}

	switch cb.action {
	case actionReview, actionStats:
		if len(parts) != 1 {
			return cb, fmt.Errorf("unexpected arguments in %q", data)
		}
		return cb, nil
	case actionShow, actionRate:
	default:
		return cb, fmt.Errorf("unknown callback %q", data)
	}

	want := 2
	if cb.action == actionRate {
		want = 3
	}
	if len(parts) != want {
		return cb, fmt.Errorf("malformed callback %q", data)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return cb, fmt.Errorf("bad card id in %q: %w", data, err)
	}
	cb.cardID = id

	if cb.action == actionRate {
		q, err := strconv.Atoi(parts[2])
		if err != nil {
			return cb, fmt.Errorf("bad quality in %q: %w", data, err)
		}
		cb.quality = srs.Quality(q).Clamp()
	}
	return cb, nil
}

// formatDays renders an interval for humans.
func formatDays(days int) string {
	switch {
	case days == 1:
		return "tomorrow"
	case days < 30:
		return fmt.Sprintf("in %d days", days)
	case days < 365:
		return fmt.Sprintf("in about %d months", (days+15)/30)
	default:
		return fmt.Sprintf("in about %.1f years", float64(days)/365)
	}
}
