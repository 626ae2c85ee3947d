package cli

import (
	"github.com/spf13/cobra"

	"index-early-alerts/internal/app"
)

var (
	exportExchange string
	exportFrom     string
	exportTo       string
	exportPNGPath  string
	exportCSVPath  string
	exportMaxRows  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the contract moves between two stored days as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Exchange: exportExchange,
			From:     exportFrom,
			To:       exportTo,
			PNGPath:  exportPNGPath,
			CSVPath:  exportCSVPath,
			MaxRows:  exportMaxRows,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportExchange, "exchange", "NSE", "Exchange to export (NSE or BSE)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Prior snapshot date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Current snapshot date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum contracts to export (defaults to config)")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
}
