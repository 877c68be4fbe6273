package models

import "time"

// Review is one entry of the review history log
type Review struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	FlashcardID int64     `json:"flashcard_id" db:"flashcard_id"`
	Quality     int       `json:"quality" db:"quality"`       // 0-5 rating given by the user
	TimeSpent   int       `json:"time_spent" db:"time_spent"` // Seconds, 0 when unknown
	ReviewedAt  time.Time `json:"reviewed_at" db:"reviewed_at"`
}
