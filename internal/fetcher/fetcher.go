package fetcher

import (
	"context"
	"errors"
	"sync"

	"index-early-alerts/internal/model"
)

var (
	// ErrUnknownExchange indicates an exchange without a configured endpoint.
	ErrUnknownExchange = errors.New("fetcher: unknown exchange")
	// ErrSpotUnavailable indicates the spot source returned nothing usable.
	ErrSpotUnavailable = errors.New("fetcher: spot price unavailable")
)

// PriceFetcher retrieves live quotes for option contracts on one exchange.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, exchange string, symbols []string) (map[string]model.PriceInfo, error)
}

// SpotPriceProvider retrieves index spot prices keyed by the provider's index symbol.
type SpotPriceProvider interface {
	SpotPrices(ctx context.Context) (map[string]float64, error)
}

// Request is one exchange worth of symbols.
type Request struct {
	Exchange string
	Symbols  []string
}

// Result carries the merged prices of a Request.
type Result struct {
	Exchange string
	Prices   map[string]model.PriceInfo
	Err      error
}

// FetchMany runs every request concurrently. Results keep request order and a failing
// exchange only affects its own Result.
func FetchMany(ctx context.Context, f PriceFetcher, requests []Request) []Result {
	results := make([]Result, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			prices, err := f.FetchPrices(ctx, req.Exchange, req.Symbols)
			results[i] = Result{Exchange: req.Exchange, Prices: prices, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}
