package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Default notification window, inclusive hours in UTC.
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Config holds all configuration for the bot and the CLI
type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Review    ReviewConfig
}

// TelegramConfig holds bot settings
type TelegramConfig struct {
	Token        string
	AdminUserIDs []int64
}

// DatabaseConfig selects the driver and where the data lives
type DatabaseConfig struct {
	Driver  string // sqlite3 or postgres
	DSN     string // empty means DataDir/cardbot.db for sqlite3
	DataDir string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // json or text
}

// SchedulerConfig controls reminder delivery
type SchedulerConfig struct {
	Enabled   bool
	StartHour int
	EndHour   int
}

// ReviewConfig controls the review engine and sessions
type ReviewConfig struct {
	BatchSize        int
	ProfileWindow    int
	StrictValidation bool
}

// Load reads .env (if present) into the environment and then the
// environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, errors.Wrap(err, "error loading env file")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Telegram: TelegramConfig{
			Token: v.GetString("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			Driver:  v.GetString("DB_DRIVER"),
			DSN:     v.GetString("DB_DSN"),
			DataDir: v.GetString("DATA_DIR"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Scheduler: SchedulerConfig{
			Enabled:   v.GetBool("ENABLE_SCHEDULER"),
			StartHour: v.GetInt("NOTIFICATION_START_HOUR"),
			EndHour:   v.GetInt("NOTIFICATION_END_HOUR"),
		},
		Review: ReviewConfig{
			BatchSize:        v.GetInt("REVIEW_BATCH_SIZE"),
			ProfileWindow:    v.GetInt("PROFILE_WINDOW"),
			StrictValidation: v.GetBool("STRICT_VALIDATION"),
		},
	}

	ids, err := parseIDs(v.GetString("ADMIN_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.Telegram.AdminUserIDs = ids

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "sqlite3")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("NOTIFICATION_START_HOUR", DefaultNotificationStartHour)
	v.SetDefault("NOTIFICATION_END_HOUR", DefaultNotificationEndHour)
	v.SetDefault("REVIEW_BATCH_SIZE", 10)
	v.SetDefault("PROFILE_WINDOW", 20)
	v.SetDefault("STRICT_VALIDATION", false)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("DB_DSN is required for postgres")
	}
	if !validHour(c.Scheduler.StartHour) || !validHour(c.Scheduler.EndHour) {
		return errors.Errorf("notification hours must be within 0-23, got %d-%d",
			c.Scheduler.StartHour, c.Scheduler.EndHour)
	}
	if c.Scheduler.StartHour > c.Scheduler.EndHour {
		return errors.Errorf("NOTIFICATION_START_HOUR %d is after NOTIFICATION_END_HOUR %d",
			c.Scheduler.StartHour, c.Scheduler.EndHour)
	}
	if c.Review.BatchSize <= 0 {
		return errors.Errorf("REVIEW_BATCH_SIZE must be positive, got %d", c.Review.BatchSize)
	}
	if c.Review.ProfileWindow <= 0 {
		return errors.Errorf("PROFILE_WINDOW must be positive, got %d", c.Review.ProfileWindow)
	}
	return nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid admin user ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
