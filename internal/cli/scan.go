package cli

import (
	"github.com/spf13/cobra"

	"index-early-alerts/internal/app"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one morning momentum scan against the prior snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), app.ScanOptions{DryRun: scanDryRun})
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Print the alert table instead of sending it")
}
