package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Row 是一条上涨合约记录。
type Row struct {
	Symbol    string          `json:"symbol"`
	Label     string          `json:"label"`
	Prior     decimal.Decimal `json:"prior"`
	Current   decimal.Decimal `json:"current"`
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"change_pct"`
}

// Notification 封装一次早盘动量告警。
type Notification struct {
	Exchange    string    `json:"exchange"`
	Date        string    `json:"date"`
	PriorDate   string    `json:"prior_date"`
	Rows        []Row     `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
	Channels    []string  `json:"channels,omitempty"`
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Multi fans a notification out to every configured notifier.
type Multi struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewMulti drops nil entries and returns a fan-out notifier.
func NewMulti(logger zerolog.Logger, notifiers ...Notifier) *Multi {
	kept := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept, logger: logger.With().Str("component", "alert_multi").Logger()}
}

// Len reports how many notifiers are attached.
func (m *Multi) Len() int { return len(m.notifiers) }

// Notify delivers to every notifier; one failing channel does not stop the others.
func (m *Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for i, n := range m.notifiers {
		if err := n.Notify(ctx, note); err != nil {
			m.logger.Error().Err(err).Int("notifier", i).Str("exchange", note.Exchange).Msg("告警发送失败")
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = (*Multi)(nil)
