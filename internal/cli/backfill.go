package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"index-early-alerts/internal/app"
	"index-early-alerts/internal/model"
)

var backfillDate string

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Save missing snapshots for yesterday (or --date) using today's spot",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.BackfillOptions{}
		if backfillDate != "" {
			loc, err := getApp().Config.Scheduler.Location()
			if err != nil {
				return err
			}
			day, err := time.ParseInLocation(model.DateLayout, backfillDate, loc)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			opts.Date = &day
		}
		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillDate, "date", "", "Day to fill (YYYY-MM-DD, defaults to yesterday)")
}
