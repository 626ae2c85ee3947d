package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"index-early-alerts/internal/model"
)

// StatusRejectedBatch is returned by the price endpoint when a batch contains contracts it
// does not recognise. Such batches are dropped without retry.
const StatusRejectedBatch = http.StatusUnprocessableEntity

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
	defaultTimeout     = 10 * time.Second
)

// BatchOptions parameterise the batched price fetcher.
type BatchOptions struct {
	Endpoints   map[string]string
	Headers     map[string]string
	BatchSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	UserAgent   string
}

// Batch fetches live option prices in fixed-size concurrent batches.
type Batch struct {
	opts   BatchOptions
	logger zerolog.Logger
	client *http.Client
}

// NewBatch constructs a batched price fetcher.
func NewBatch(opts BatchOptions, logger zerolog.Logger) *Batch {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	endpoints := make(map[string]string, len(opts.Endpoints))
	for exchange, url := range opts.Endpoints {
		endpoints[strings.ToUpper(exchange)] = url
	}
	opts.Endpoints = endpoints

	return &Batch{
		opts:   opts,
		logger: logger.With().Str("component", "price_fetcher").Logger(),
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// FetchPrices splits symbols into batches, fetches them concurrently and merges the
// successful responses. Failed batches are dropped; only an unknown exchange is an error.
func (b *Batch) FetchPrices(ctx context.Context, exchange string, symbols []string) (map[string]model.PriceInfo, error) {
	endpoint, ok := b.opts.Endpoints[strings.ToUpper(exchange)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, exchange)
	}

	batches := chunk(symbols, b.opts.BatchSize)
	merged := make(map[string]model.PriceInfo, len(symbols))
	var mu sync.Mutex

	var g errgroup.Group
	for i, batch := range batches {
		g.Go(func() error {
			data, ok := b.fetchBatch(ctx, endpoint, i, batch)
			if !ok {
				return nil
			}
			mu.Lock()
			for symbol, info := range data {
				merged[symbol] = info
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info().
		Str("exchange", exchange).
		Int("symbols", len(symbols)).
		Int("batches", len(batches)).
		Int("received", len(merged)).
		Msg("price fetch completed")

	return merged, nil
}

func (b *Batch) fetchBatch(ctx context.Context, endpoint string, index int, symbols []string) (map[string]model.PriceInfo, bool) {
	body, err := json.Marshal(symbols)
	if err != nil {
		b.logger.Error().Err(err).Int("batch", index).Msg("marshal batch payload")
		return nil, false
	}

	logger := b.logger.With().Int("batch", index).Int("size", len(symbols)).Logger()

	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		data, status, err := b.post(ctx, endpoint, body)
		switch {
		case err == nil:
			return data, true
		case status == StatusRejectedBatch:
			logger.Warn().Int("status", status).Msg("batch rejected, skipping")
			return nil, false
		default:
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", b.opts.MaxAttempts).Msg("batch request failed")
		}

		if attempt == b.opts.MaxAttempts {
			break
		}
		if !sleepCtx(ctx, b.opts.RetryDelay) {
			logger.Warn().Err(ctx.Err()).Msg("batch retry aborted")
			return nil, false
		}
	}

	logger.Error().Msg("batch dropped after exhausting retries")
	return nil, false
}

func (b *Batch) post(ctx context.Context, endpoint string, body []byte) (map[string]model.PriceInfo, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	for key, value := range b.opts.Headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("price api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var data map[string]model.PriceInfo
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode price response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var _ PriceFetcher = (*Batch)(nil)
