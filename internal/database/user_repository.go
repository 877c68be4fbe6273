package database

import (
	"context"
	"time"

	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const userColumns = `id, telegram_id, username, first_name, adaptive_enabled,
	notification_enabled, notification_hour, cards_per_session, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *UserRepository) WithTx(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Upsert registers a Telegram user or refreshes its profile fields.
// Settings of an existing user are left untouched and loaded into u.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CardsPerSession <= 0 {
		u.CardsPerSession = 10
	}
	query := r.db.Rebind(`
		INSERT INTO users (
			telegram_id, username, first_name, adaptive_enabled,
			notification_enabled, notification_hour, cards_per_session,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at
		RETURNING ` + userColumns)

	err := sqlx.GetContext(ctx, r.db, u, query,
		u.TelegramID,
		u.Username,
		u.FirstName,
		u.AdaptiveEnabled,
		u.NotificationEnabled,
		u.NotificationHour,
		u.CardsPerSession,
		now,
		now,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert user %d", u.TelegramID)
	}
	return nil
}

// GetByID returns a user by its internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, r.db, &u, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// GetByTelegramID returns a user by Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	err := sqlx.GetContext(ctx, r.db, &u, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE telegram_id = ?"), telegramID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// SetAdaptive switches the user between the baseline and adaptive scheduler.
func (r *UserRepository) SetAdaptive(ctx context.Context, id int64, enabled bool) error {
	return r.update(ctx, "adaptive_enabled = ?", id, enabled)
}

// SetNotification updates reminder settings.
func (r *UserRepository) SetNotification(ctx context.Context, id int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return errors.Errorf("notification hour %d out of range", hour)
	}
	return r.update(ctx, "notification_enabled = ?, notification_hour = ?", id, enabled, hour)
}

// SetCardsPerSession updates how many cards a review session shows.
func (r *UserRepository) SetCardsPerSession(ctx context.Context, id int64, count int) error {
	if count <= 0 {
		return errors.Errorf("cards per session must be positive, got %d", count)
	}
	return r.update(ctx, "cards_per_session = ?", id, count)
}

func (r *UserRepository) update(ctx context.Context, set string, id int64, args ...interface{}) error {
	args = append(args, time.Now().UTC(), id)
	result, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE users SET "+set+", updated_at = ? WHERE id = ?"), args...)
	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "user %d", id)
	}
	return nil
}

// GetUsersForNotification returns users who want reminders at the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind(`
		SELECT ` + userColumns + `
		FROM users
		WHERE notification_enabled = ? AND notification_hour = ?
		ORDER BY id
	`)
	if err := sqlx.SelectContext(ctx, r.db, &users, query, true, hour); err != nil {
		return nil, errors.Wrap(err, "failed to get users for notification")
	}
	return users, nil
}
