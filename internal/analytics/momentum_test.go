package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"index-early-alerts/internal/model"
)

func snapshotOf(prices map[string]float64) *model.Snapshot {
	infos := make(map[string]model.PriceInfo, len(prices))
	for symbol, ltp := range prices {
		infos[symbol] = model.PriceInfo{LTP: ltp}
	}
	snap := model.NewSnapshot("2026-10-14", "NSE", infos, time.Date(2026, time.October, 14, 11, 30, 0, 0, time.UTC))
	return &snap
}

func TestCompareBasic(t *testing.T) {
	prior := snapshotOf(map[string]float64{"A": 100})
	current := map[string]model.PriceInfo{
		"A": {LTP: 110},
		"B": {LTP: 50},
	}

	got := Compare(prior, current)
	if len(got) != 1 {
		t.Fatalf("只应包含 A, 实际 %d 条", len(got))
	}
	c := got[0]
	if c.Symbol != "A" {
		t.Fatalf("unexpected symbol %s", c.Symbol)
	}
	if !c.PriorPrice.Equal(decimal.NewFromInt(100)) || !c.CurrentPrice.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("unexpected prices %s -> %s", c.PriorPrice, c.CurrentPrice)
	}
	if !c.Change.Equal(decimal.NewFromInt(10)) || !c.ChangePct.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected change 10 / 10%%, got %s / %s", c.Change, c.ChangePct)
	}
}

func TestCompareSkipsZeroPrices(t *testing.T) {
	prior := snapshotOf(map[string]float64{"A": 0, "B": 20})
	current := map[string]model.PriceInfo{
		"A": {LTP: 15},
		"B": {LTP: 0},
	}
	if got := Compare(prior, current); len(got) != 0 {
		t.Fatalf("zero prices must be skipped, got %+v", got)
	}
}

func TestCompareNilPrior(t *testing.T) {
	if got := Compare(nil, map[string]model.PriceInfo{"A": {LTP: 1}}); len(got) != 0 {
		t.Fatal("nil prior should produce empty result")
	}
}

func TestCompareRanksAndRounds(t *testing.T) {
	prior := snapshotOf(map[string]float64{"A": 3, "B": 100, "C": 40, "D": 10})
	current := map[string]model.PriceInfo{
		"A": {LTP: 4},
		"B": {LTP: 150},
		"C": {LTP: 30},
		"D": {LTP: 15},
	}
	got := Compare(prior, current)
	if len(got) != 4 {
		t.Fatalf("expected 4 comparisons, got %d", len(got))
	}
	order := []string{"B", "D", "A", "C"}
	for i, symbol := range order {
		if got[i].Symbol != symbol {
			t.Fatalf("position %d: want %s got %s", i, symbol, got[i].Symbol)
		}
	}
	// B and D tie at 50%; B sorts first by symbol.
	if !got[2].ChangePct.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("expected 33.33, got %s", got[2].ChangePct)
	}
	if !got[3].Change.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("expected -10, got %s", got[3].Change)
	}
}

func TestRisersAndTop(t *testing.T) {
	cmp := []Comparison{
		{Symbol: "A", Change: decimal.NewFromInt(5)},
		{Symbol: "B", Change: decimal.Zero},
		{Symbol: "C", Change: decimal.NewFromInt(-1)},
		{Symbol: "D", Change: decimal.NewFromFloat(0.01)},
	}
	risers := Risers(cmp)
	if len(risers) != 2 || risers[0].Symbol != "A" || risers[1].Symbol != "D" {
		t.Fatalf("unexpected risers %+v", risers)
	}
	if len(Top(risers, 1)) != 1 {
		t.Fatal("Top should truncate")
	}
	if len(Top(risers, 0)) != 2 {
		t.Fatal("Top(0) keeps everything")
	}
}
