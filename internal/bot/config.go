package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Long polling timeout in seconds
	UpdateTimeout int
	// Upper bound for imported documents
	MaxImportSize int
	// Session size given to new users
	CardsPerSession int
	// How long a reviewer may look at a card before time spent is no longer recorded
	MaxAnswerTime time.Duration
	// Review sessions idle for longer are dropped
	SessionTTL time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		UpdateTimeout:   60,
		MaxImportSize:   5 << 20,
		CardsPerSession: 10,
		MaxAnswerTime:   10 * time.Minute,
		SessionTTL:      24 * time.Hour,
	}
}
