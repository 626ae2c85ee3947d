package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backfill, run the startup momentum scan, then wait for the daily jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the live option universe once and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Fetch(cmd.Context())
	},
}
