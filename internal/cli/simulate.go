package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateExchange string
	simulateLabel    string
	simulatePrior    float64
	simulateCurrent  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次早盘动量告警并发送到已配置的通道",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrior <= 0 || simulateCurrent <= 0 {
			return errors.New("--prior 与 --current 必须大于 0")
		}

		prior := decimal.NewFromFloat(simulatePrior)
		current := decimal.NewFromFloat(simulateCurrent)
		return getApp().SimulateAlert(cmd.Context(), simulateExchange, simulateLabel, prior, current)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateExchange, "exchange", "NSE", "交易所")
	simulateCmd.Flags().StringVar(&simulateLabel, "label", "25000 CE", "合约标签")
	simulateCmd.Flags().Float64Var(&simulatePrior, "prior", 0, "昨日收盘价")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "当前价格")
}
