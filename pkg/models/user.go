package models

import "time"

// User represents a Telegram user reviewing flashcards.
// AdaptiveEnabled switches the user from plain SM-2 to the
// performance-adaptive scheduler. NotificationHour is 0-23.
type User struct {
	ID                  int64     `json:"id" db:"id"`
	TelegramID          int64     `json:"telegram_id" db:"telegram_id"`
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	AdaptiveEnabled     bool      `json:"adaptive_enabled" db:"adaptive_enabled"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"`
	CardsPerSession     int       `json:"cards_per_session" db:"cards_per_session"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultNotificationHour is the reminder hour (UTC) given to new users.
const DefaultNotificationHour = 9

// NewUser returns a user with the settings every new account starts with:
// reminders on at DefaultNotificationHour and sessions of cardsPerSession.
func NewUser(telegramID int64, cardsPerSession int) *User {
	return &User{
		TelegramID:          telegramID,
		NotificationEnabled: true,
		NotificationHour:    DefaultNotificationHour,
		CardsPerSession:     cardsPerSession,
	}
}
