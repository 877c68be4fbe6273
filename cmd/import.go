package cmd

import (
	"strings"

	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/internal/excel"
	"github.com/example/cardbot/pkg/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var importOpts = excel.DefaultImportConfig()

var importUser int64

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import flashcards from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importUser == 0 {
			return errors.New("--user is required")
		}
		ctx := cmd.Context()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		user := models.NewUser(importUser, cfg.Review.BatchSize)
		if err := database.NewUserRepository(db).Upsert(ctx, user); err != nil {
			return err
		}

		result, err := excel.NewImporter(db).ImportFile(ctx, user.ID, args[0], importOpts)
		if err != nil {
			return errors.Wrapf(err, "import %s", args[0])
		}

		cmd.Printf("Processed: %d, created: %d, updated: %d, skipped: %d\n",
			result.TotalProcessed, result.Created, result.Updated, result.Skipped)
		if len(result.Errors) > 0 {
			cmd.Printf("Errors:\n  %s\n", strings.Join(result.Errors, "\n  "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int64VarP(&importUser, "user", "u", 0, "Telegram ID of the card owner")
	importCmd.Flags().StringVar(&importOpts.FrontColumn, "front", importOpts.FrontColumn, "column with the question side")
	importCmd.Flags().StringVar(&importOpts.BackColumn, "back", importOpts.BackColumn, "column with the answer side")
	importCmd.Flags().StringVar(&importOpts.TagsColumn, "tags", importOpts.TagsColumn, "column with tags, empty to ignore")
	importCmd.Flags().StringVar(&importOpts.SheetName, "sheet", "", "sheet name, defaults to the first sheet")
	importCmd.Flags().IntVar(&importOpts.StartRow, "start-row", importOpts.StartRow, "first data row (1-based)")
}
