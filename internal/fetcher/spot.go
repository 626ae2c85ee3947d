package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultSpotURL = "https://groww.in/v1/api/stocks_data/v1/aggregated_stocks_market_today"

// SpotOptions parameterise the aggregated market spot source.
type SpotOptions struct {
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string
}

// Spot reads index spot levels from the aggregated market overview endpoint.
type Spot struct {
	opts   SpotOptions
	logger zerolog.Logger
	client *http.Client
}

// NewSpot constructs a spot provider.
func NewSpot(opts SpotOptions, logger zerolog.Logger) *Spot {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = defaultSpotURL
	}
	return &Spot{
		opts:   opts,
		logger: logger.With().Str("component", "spot_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// SpotPrices returns every index level found across exchanges, keyed by provider symbol
// (e.g. "NIFTY", "BANKNIFTY", and "1" for SENSEX).
func (s *Spot) SpotPrices(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.URL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	for key, value := range s.opts.Headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpotUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSpotUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSpotUnavailable, resp.StatusCode)
	}

	var overview marketOverview
	if err := json.Unmarshal(payload, &overview); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSpotUnavailable, err)
	}

	levels := make(map[string]float64)
	for _, exchange := range mergeOrder(overview.IndexData.ExchangeAggRespMap) {
		agg := overview.IndexData.ExchangeAggRespMap[exchange]
		for symbol, point := range agg.IndexLivePointsMap {
			if point.Value <= 0 {
				continue
			}
			if _, dup := levels[symbol]; dup {
				s.logger.Debug().Str("symbol", symbol).Str("exchange", exchange).Msg("duplicate index symbol across exchanges")
			}
			levels[symbol] = point.Value
		}
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no index levels in response", ErrSpotUnavailable)
	}

	s.logger.Debug().Int("indices", len(levels)).Msg("spot levels fetched")
	return levels, nil
}

// mergeOrder lists exchanges NSE first and BSE last, others alphabetically between,
// so a symbol quoted on both takes the BSE level.
func mergeOrder[V any](byExchange map[string]V) []string {
	rank := func(exchange string) int {
		switch exchange {
		case "NSE":
			return 0
		case "BSE":
			return 2
		}
		return 1
	}
	out := make([]string, 0, len(byExchange))
	for exchange := range byExchange {
		out = append(out, exchange)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := rank(out[i]), rank(out[j]); ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

type marketOverview struct {
	IndexData struct {
		ExchangeAggRespMap map[string]struct {
			IndexLivePointsMap map[string]struct {
				Value float64 `json:"value"`
			} `json:"indexLivePointsMap"`
		} `json:"exchangeAggRespMap"`
	} `json:"indexData"`
}

var _ SpotPriceProvider = (*Spot)(nil)
