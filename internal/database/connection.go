package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/cardbot/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("database: not found")

// Connect opens the configured database and makes sure the schema exists.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == "sqlite3" && dsn == "" {
		// Create data directory if it doesn't exist
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create data directory")
		}
		dsn = filepath.Join(cfg.DataDir, "cardbot.db")
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", cfg.Driver)
	}

	if db.DriverName() == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
		// SQLite doesn't support multiple writers; a single connection also
		// keeps :memory: databases alive across queries.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitializeSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitializeSchema creates the tables if they don't exist.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := sqliteSchema
	if db.DriverName() == "postgres" {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to apply schema statement %q", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "failed to get %s", what)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER UNIQUE NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		adaptive_enabled BOOLEAN NOT NULL DEFAULT false,
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		cards_per_session INTEGER NOT NULL DEFAULT 10,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flashcards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		front TEXT NOT NULL,
		back TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'manual',
		ease_factor REAL NOT NULL DEFAULT 2.5,
		interval INTEGER NOT NULL DEFAULT 1,
		repetitions INTEGER NOT NULL DEFAULT 0,
		last_quality INTEGER NOT NULL DEFAULT -1,
		next_review_date TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flashcards_due ON flashcards(user_id, next_review_date)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		flashcard_id INTEGER NOT NULL,
		quality INTEGER NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0,
		reviewed_at TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (flashcard_id) REFERENCES flashcards(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, reviewed_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		telegram_id BIGINT UNIQUE NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		adaptive_enabled BOOLEAN NOT NULL DEFAULT false,
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		cards_per_session INTEGER NOT NULL DEFAULT 10,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flashcards (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		front TEXT NOT NULL,
		back TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'manual',
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		interval INTEGER NOT NULL DEFAULT 1,
		repetitions INTEGER NOT NULL DEFAULT 0,
		last_quality INTEGER NOT NULL DEFAULT -1,
		next_review_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flashcards_due ON flashcards(user_id, next_review_date)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		flashcard_id BIGINT NOT NULL REFERENCES flashcards(id) ON DELETE CASCADE,
		quality INTEGER NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0,
		reviewed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id, reviewed_at)`,
}
