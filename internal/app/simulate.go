package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"index-early-alerts/internal/alerting"
)

// SimulateAlert 通过给定的昨日/今日价格模拟一次动量告警，用于验证告警通道。
func (a *App) SimulateAlert(ctx context.Context, exchange, label string, prior, current decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}
	if prior.Sign() <= 0 || current.Sign() <= 0 {
		return errors.New("prior 与 current 必须大于 0")
	}

	notifier, closeNotifier := a.newNotifier()
	defer closeNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	now := time.Now()
	change := current.Sub(prior)
	note := alerting.Notification{
		Exchange:    strings.ToUpper(exchange),
		Date:        now.Format("2006-01-02"),
		PriorDate:   now.AddDate(0, 0, -1).Format("2006-01-02"),
		GeneratedAt: now.UTC(),
		Channels:    a.Config.Alerting.Channels,
		Rows: []alerting.Row{{
			Symbol:    label,
			Label:     label,
			Prior:     prior,
			Current:   current,
			Change:    change.Round(2),
			ChangePct: change.Div(prior).Mul(decimal.NewFromInt(100)).Round(2),
		}},
	}
	return notifier.Notify(ctx, note)
}
