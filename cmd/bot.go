package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/cardbot/internal/bot"
	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/excel"
	"github.com/example/cardbot/internal/scheduler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// botCmd runs the Telegram bot together with the reminder scheduler
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot and the reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Telegram.Token == "" {
			return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		botCfg := bot.DefaultConfig()
		botCfg.CardsPerSession = cfg.Review.BatchSize

		b, err := bot.New(
			cfg.Telegram.Token,
			botCfg,
			newReviewService(db),
			database.NewUserRepository(db),
			excel.NewImporter(db),
			cfg.Telegram.AdminUserIDs,
			logger,
		)
		if err != nil {
			return err
		}

		s := scheduler.New(db, cfg.Scheduler, b, logger)
		b.SetReminderChecker(s)
		if cfg.Scheduler.Enabled {
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()
		} else {
			logger.Info("reminder scheduler disabled")
		}

		err = b.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("bot stopped successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
