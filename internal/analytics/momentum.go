package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"index-early-alerts/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Comparison is the price move of one contract between two snapshots.
type Comparison struct {
	Symbol       string
	PriorPrice   decimal.Decimal
	CurrentPrice decimal.Decimal
	Change       decimal.Decimal
	ChangePct    decimal.Decimal
}

// Compare ranks contracts present in both prior and current by percent change, descending.
// A nil prior yields no comparisons. Contracts with a zero price on either side are skipped.
func Compare(prior *model.Snapshot, current map[string]model.PriceInfo) []Comparison {
	if prior == nil || len(current) == 0 {
		return nil
	}

	priorLTP := make(map[string]float64, len(prior.Contracts))
	for _, rec := range prior.Contracts {
		priorLTP[rec.Symbol] = rec.LTP
	}

	symbols := make([]string, 0, len(current))
	for symbol := range current {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]Comparison, 0, len(symbols))
	for _, symbol := range symbols {
		before, ok := priorLTP[symbol]
		if !ok || before == 0 {
			continue
		}
		now := current[symbol].LTP
		if now == 0 {
			continue
		}

		prev := decimal.NewFromFloat(before)
		curr := decimal.NewFromFloat(now)
		delta := curr.Sub(prev)

		out = append(out, Comparison{
			Symbol:       symbol,
			PriorPrice:   prev,
			CurrentPrice: curr,
			Change:       delta.Round(2),
			ChangePct:    delta.Div(prev).Mul(hundred).Round(2),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangePct.GreaterThan(out[j].ChangePct)
	})
	return out
}

// Risers keeps comparisons with a positive change.
func Risers(cmp []Comparison) []Comparison {
	out := make([]Comparison, 0, len(cmp))
	for _, c := range cmp {
		if c.Change.IsPositive() {
			out = append(out, c)
		}
	}
	return out
}

// Top truncates to the first n entries; n <= 0 keeps everything.
func Top(cmp []Comparison, n int) []Comparison {
	if n <= 0 || len(cmp) <= n {
		return cmp
	}
	return cmp[:n]
}
