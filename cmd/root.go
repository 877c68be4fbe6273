package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/example/cardbot/internal/config"
	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/logging"
	"github.com/example/cardbot/internal/review"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFiles []string

	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "cardbot",
	Short:         "Spaced repetition flashcards over Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFiles...)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return errors.Wrap(err, "init logger")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load instead of .env")
}

// openDB connects to the configured database; Connect bootstraps the schema.
func openDB() (*sqlx.DB, error) {
	return database.Connect(cfg.Database)
}

func newReviewService(db *sqlx.DB) *review.Service {
	return review.NewService(db, review.Config{
		ProfileWindow:    cfg.Review.ProfileWindow,
		StrictValidation: cfg.Review.StrictValidation,
	}, logger)
}

// lookupUser resolves a Telegram ID argument to a stored user.
func lookupUser(ctx context.Context, db *sqlx.DB, arg string) (*models.User, error) {
	telegramID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, errors.Errorf("invalid telegram id %q", arg)
	}
	user, err := database.NewUserRepository(db).GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, errors.Wrapf(err, "user %d", telegramID)
	}
	return user, nil
}
