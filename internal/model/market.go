package model

import (
	"sort"
	"time"
)

// PriceInfo is the live quote of one contract as returned by the price endpoint.
type PriceInfo struct {
	LTP            float64 `json:"ltp"`
	Volume         float64 `json:"volume"`
	OpenInterest   float64 `json:"openInterest"`
	OIDayChange    float64 `json:"oiDayChange"`
	OIDayChangePct float64 `json:"oiDayChangePerc"`
	LastTradeTime  int64   `json:"lastTradeTime"`
}

// ContractRecord is the stored shape of a PriceInfo.
type ContractRecord struct {
	Symbol      string  `json:"symbol"`
	LTP         float64 `json:"ltp"`
	Volume      float64 `json:"volume"`
	OI          float64 `json:"oi"`
	OIChange    float64 `json:"oi_change"`
	OIChangePct float64 `json:"oi_change_perc"`
	Timestamp   int64   `json:"timestamp"`
}

// Snapshot is the immutable daily document for one exchange.
type Snapshot struct {
	Date           string           `json:"date"`
	Exchange       string           `json:"exchange"`
	TotalContracts int              `json:"total_contracts"`
	Contracts      []ContractRecord `json:"contracts"`
	CreatedAt      time.Time        `json:"created_at"`
}

// SnapshotSummary is a Snapshot without its contracts.
type SnapshotSummary struct {
	Date           string
	Exchange       string
	TotalContracts int
	CreatedAt      time.Time
}

// DateLayout is the on-disk date key format.
const DateLayout = "2006-01-02"

// NewSnapshot converts fetched prices into a Snapshot. Records are ordered by symbol.
func NewSnapshot(date, exchange string, prices map[string]PriceInfo, createdAt time.Time) Snapshot {
	symbols := make([]string, 0, len(prices))
	for symbol := range prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	records := make([]ContractRecord, 0, len(symbols))
	for _, symbol := range symbols {
		info := prices[symbol]
		records = append(records, ContractRecord{
			Symbol:      symbol,
			LTP:         info.LTP,
			Volume:      info.Volume,
			OI:          info.OpenInterest,
			OIChange:    info.OIDayChange,
			OIChangePct: info.OIDayChangePct,
			Timestamp:   info.LastTradeTime,
		})
	}

	return Snapshot{
		Date:           date,
		Exchange:       exchange,
		TotalContracts: len(records),
		Contracts:      records,
		CreatedAt:      createdAt.UTC(),
	}
}

// Summary drops the contract list.
func (s Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		Date:           s.Date,
		Exchange:       s.Exchange,
		TotalContracts: s.TotalContracts,
		CreatedAt:      s.CreatedAt,
	}
}

// Prices rebuilds a symbol keyed price map from the stored records.
func (s Snapshot) Prices() map[string]PriceInfo {
	out := make(map[string]PriceInfo, len(s.Contracts))
	for _, rec := range s.Contracts {
		out[rec.Symbol] = PriceInfo{
			LTP:            rec.LTP,
			Volume:         rec.Volume,
			OpenInterest:   rec.OI,
			OIDayChange:    rec.OIChange,
			OIDayChangePct: rec.OIChangePct,
			LastTradeTime:  rec.Timestamp,
		}
	}
	return out
}
