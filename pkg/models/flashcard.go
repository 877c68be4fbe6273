package models

import (
	"time"

	"github.com/example/cardbot/internal/srs"
)

// Flashcard is a single front/back card together with its review schedule
type Flashcard struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Front  string `json:"front" db:"front"`
	Back   string `json:"back" db:"back"`
	Tags   string `json:"tags" db:"tags"`     // Comma separated
	Source string `json:"source" db:"source"` // manual, import, bot
	srs.ReviewState
	LastQuality int       `json:"last_quality" db:"last_quality"` // -1 until the first review
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// State returns the scheduling part of the card.
func (f Flashcard) State() srs.ReviewState {
	return f.ReviewState
}
