package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/example/cardbot/internal/srs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var dueLimit int

var reviewCmd = &cobra.Command{
	Use:   "review <telegramID> <cardID> <quality>",
	Short: "Record a review and print the new schedule",
	Long: `Record a review of one card. Quality is 0-5 or one of
blackout, incorrect, familiar, difficult, hesitation, perfect.
Values outside 0-5 are clamped.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cardID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Errorf("invalid card id %q", args[1])
		}
		quality, err := srs.ParseQuality(args[2])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := lookupUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		res, err := newReviewService(db).Submit(ctx, user.ID, cardID, quality, 0)
		if err != nil {
			return err
		}

		prev, next := res.Previous, res.Card.ReviewState
		cmd.Printf("%s: %s\n", res.Card.Front, quality)
		cmd.Printf("ease factor  %.2f -> %.2f\n", prev.EaseFactor, next.EaseFactor)
		cmd.Printf("interval     %d -> %d days\n", prev.Interval, next.Interval)
		cmd.Printf("repetitions  %d -> %d\n", prev.Repetitions, next.Repetitions)
		cmd.Printf("next review  %s\n", next.NextReviewDate.Format(time.RFC3339))
		if res.Profile != nil {
			cmd.Printf("adaptive     avg %.2f, accuracy %.0f%%, x%.2f\n",
				res.Profile.AverageQuality, res.Profile.RecentAccuracy*100, res.Profile.Multiplier())
		}
		if res.Mastered {
			cmd.Println("mastered")
		}
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due <telegramID>",
	Short: "List the cards due for review now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := lookupUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		limit := dueLimit
		if limit <= 0 {
			limit = cfg.Review.BatchSize
		}
		cards, err := newReviewService(db).Due(ctx, user.ID, limit)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			cmd.Println("Nothing is due.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFRONT\tEF\tINTERVAL\tREPS\tDUE")
		for _, c := range cards {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%s\n",
				c.ID, c.Front, c.EaseFactor, c.Interval, c.Repetitions, c.NextReviewDate.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <telegramID>",
	Short: "Show a user's review statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := lookupUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		stats, err := newReviewService(db).Stats(ctx, user.ID)
		if err != nil {
			return err
		}
		cmd.Printf("cards     %d\n", stats.TotalFlashcards)
		cmd.Printf("due       %d\n", stats.DueFlashcards)
		cmd.Printf("today     %d\n", stats.ReviewsToday)
		cmd.Printf("mastered  %d\n", stats.Mastered)
		cmd.Printf("adaptive  %t\n", user.AdaptiveEnabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd, dueCmd, statsCmd)

	dueCmd.Flags().IntVarP(&dueLimit, "limit", "n", 0, "maximum cards to list (default REVIEW_BATCH_SIZE)")
}
