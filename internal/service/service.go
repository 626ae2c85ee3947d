package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"index-early-alerts/internal/alerting"
	"index-early-alerts/internal/analytics"
	"index-early-alerts/internal/config"
	"index-early-alerts/internal/contract"
	"index-early-alerts/internal/expiry"
	"index-early-alerts/internal/fetcher"
	"index-early-alerts/internal/model"
	"index-early-alerts/internal/scheduler"
	"index-early-alerts/internal/storage"
	"index-early-alerts/internal/strikes"
)

// Job names registered with the scheduler.
const (
	JobDailySnapshot   = "daily_snapshot"
	JobMorningMomentum = "morning_momentum"
)

// Index is one tracked index and how its strike window is built.
type Index struct {
	Name     string
	Exchange string
	SpotKey  string
	Step     int
	Range    int
	Weekday  time.Weekday
}

// Options tune the orchestrator.
type Options struct {
	Indices         []Index
	Location        *time.Location
	CutoverHour     int
	LookbackDays    int
	TopN            int
	Channels        []string
	AlertsEnabled   bool
	SnapshotCron    string
	MomentumCron    string
	BackfillOnStart bool
	MomentumOnStart bool
	JobTimeout      time.Duration
	LockKey         int64
}

// OptionsFromConfig translates runtime configuration into service options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return Options{}, err
	}

	indices := make([]Index, 0, len(cfg.Indices))
	for _, idx := range cfg.Indices {
		wd, err := idx.Weekday()
		if err != nil {
			return Options{}, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		indices = append(indices, Index{
			Name:     idx.Name,
			Exchange: idx.Exchange,
			SpotKey:  idx.SpotKey,
			Step:     idx.Step,
			Range:    idx.StrikeRange,
			Weekday:  wd,
		})
	}

	return Options{
		Indices:         indices,
		Location:        loc,
		CutoverHour:     cfg.Expiry.CutoverHour,
		LookbackDays:    cfg.Momentum.LookbackDays,
		TopN:            cfg.Momentum.TopN,
		Channels:        cfg.Alerting.Channels,
		AlertsEnabled:   cfg.Alerting.Enabled,
		SnapshotCron:    cfg.Scheduler.SnapshotCron,
		MomentumCron:    cfg.Scheduler.MomentumCron,
		BackfillOnStart: cfg.Scheduler.BackfillOnStart,
		MomentumOnStart: cfg.Scheduler.MomentumOnStart,
		JobTimeout:      cfg.Scheduler.JobTimeout,
		LockKey:         cfg.Scheduler.AdvisoryLockKey,
	}, nil
}

// Service orchestrates fetching, persistence, and alerting.
type Service struct {
	prices   fetcher.PriceFetcher
	spot     fetcher.SpotPriceProvider
	store    storage.SnapshotStore
	notifier alerting.Notifier
	resolver expiry.Resolver
	opts     Options
	locker   storage.AdvisoryLocker
	logger   zerolog.Logger

	now func() time.Time
}

// New constructs the orchestrator. store and notifier may be nil.
func New(opts Options, prices fetcher.PriceFetcher, spot fetcher.SpotPriceProvider, store storage.SnapshotStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LookbackDays < 1 {
		opts.LookbackDays = 1
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		prices:   prices,
		spot:     spot,
		store:    store,
		notifier: notifier,
		resolver: expiry.NewResolver(opts.Location, opts.CutoverHour),
		opts:     opts,
		locker:   locker,
		logger:   logger.With().Str("component", "service").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the wall clock; intended for tests and replays.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Exchanges lists the distinct exchanges of the tracked indices, in configuration order.
func (s *Service) Exchanges() []string {
	seen := make(map[string]bool, len(s.opts.Indices))
	out := make([]string, 0, len(s.opts.Indices))
	for _, idx := range s.opts.Indices {
		if !seen[idx.Exchange] {
			seen[idx.Exchange] = true
			out = append(out, idx.Exchange)
		}
	}
	return out
}

// Universe is the set of contracts to fetch per exchange, derived from live spot levels.
type Universe struct {
	Spot      map[string]float64
	Exchanges map[string]contract.Universe
}

// BuildUniverse fetches spot once and expands every index into its contracts.
// Any index without a positive spot level aborts with fetcher.ErrSpotUnavailable.
func (s *Service) BuildUniverse(ctx context.Context) (Universe, error) {
	if s.spot == nil {
		return Universe{}, fmt.Errorf("%w: no spot provider", fetcher.ErrSpotUnavailable)
	}
	levels, err := s.spot.SpotPrices(ctx)
	if err != nil {
		return Universe{}, err
	}

	now := s.now()
	out := Universe{
		Spot:      make(map[string]float64, len(s.opts.Indices)),
		Exchanges: make(map[string]contract.Universe, len(s.opts.Indices)),
	}
	for _, idx := range s.opts.Indices {
		level, ok := levels[idx.SpotKey]
		if !ok || level <= 0 {
			return Universe{}, fmt.Errorf("%w: %s (key %q)", fetcher.ErrSpotUnavailable, idx.Name, idx.SpotKey)
		}
		out.Spot[idx.Name] = level

		atm := strikes.RoundToStep(level, idx.Step)
		window := strikes.Validate(strikes.Window(float64(atm), idx.Step, idx.Range))
		code := s.resolver.Code(now, idx.Weekday)
		u := contract.Build(idx.Name, code, window)

		out.Exchanges[idx.Exchange] = out.Exchanges[idx.Exchange].Merge(u)

		s.logger.Debug().
			Str("index", idx.Name).
			Float64("spot", level).
			Int("atm", atm).
			Str("expiry", code).
			Int("contracts", u.Len()).
			Msg("universe built")
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, u Universe, exchanges []string) []fetcher.Result {
	requests := make([]fetcher.Request, 0, len(exchanges))
	for _, exchange := range exchanges {
		requests = append(requests, fetcher.Request{
			Exchange: exchange,
			Symbols:  u.Exchanges[exchange].Symbols(),
		})
	}
	return fetcher.FetchMany(ctx, s.prices, requests)
}

// CaptureReport describes what a capture run did per exchange.
type CaptureReport struct {
	Date    string
	Present []string
	Saved   map[string]int
	Failed  map[string]error
}

// CaptureMissing saves a snapshot for day on every exchange that does not have one yet.
// Each missing exchange is fetched and saved exactly once; present ones are left alone.
func (s *Service) CaptureMissing(ctx context.Context, day time.Time) (CaptureReport, error) {
	date := day.In(s.opts.Location).Format(model.DateLayout)
	report := CaptureReport{Date: date, Saved: map[string]int{}, Failed: map[string]error{}}
	if s.store == nil {
		return report, storage.ErrNotConfigured
	}

	logger := s.jobLogger(ctx).With().Str("date", date).Logger()

	var missing []string
	for _, exchange := range s.Exchanges() {
		_, err := s.store.GetSnapshot(ctx, date, exchange)
		switch {
		case err == nil:
			logger.Info().Str("exchange", exchange).Msg("snapshot already saved")
			report.Present = append(report.Present, exchange)
		case errors.Is(err, storage.ErrSnapshotNotFound):
			logger.Info().Str("exchange", exchange).Msg("snapshot missing")
			missing = append(missing, exchange)
		default:
			logger.Error().Err(err).Str("exchange", exchange).Msg("snapshot lookup failed")
			report.Failed[exchange] = err
		}
	}
	if len(missing) == 0 {
		return report, nil
	}

	universe, err := s.BuildUniverse(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("capture aborted")
		return report, err
	}

	for _, res := range s.fetch(ctx, universe, missing) {
		exLogger := logger.With().Str("exchange", res.Exchange).Logger()
		if res.Err != nil {
			exLogger.Error().Err(res.Err).Msg("fetch failed")
			report.Failed[res.Exchange] = res.Err
			continue
		}
		if len(res.Prices) == 0 {
			exLogger.Warn().Msg("no contracts received, snapshot not saved")
			continue
		}
		saved, err := s.store.SaveSnapshot(ctx, date, res.Exchange, res.Prices)
		if err != nil {
			exLogger.Error().Err(err).Msg("save snapshot failed")
			report.Failed[res.Exchange] = err
			continue
		}
		if !saved {
			exLogger.Info().Msg("snapshot saved concurrently elsewhere, kept existing")
			report.Present = append(report.Present, res.Exchange)
			continue
		}
		report.Saved[res.Exchange] = len(res.Prices)
		exLogger.Info().Int("contracts", len(res.Prices)).Msg("snapshot saved")
	}
	return report, nil
}

// Backfill captures yesterday's missing snapshots. Today's spot stands in for yesterday's.
func (s *Service) Backfill(ctx context.Context) (CaptureReport, error) {
	return s.CaptureMissing(ctx, s.today().AddDate(0, 0, -1))
}

// SaveDaily captures today's snapshots unless already saved.
func (s *Service) SaveDaily(ctx context.Context) (CaptureReport, error) {
	return s.CaptureMissing(ctx, s.today())
}

// MomentumReport is the comparison of one exchange against its prior snapshot.
type MomentumReport struct {
	Exchange    string
	Date        string
	PriorDate   string
	Received    int
	Comparisons []analytics.Comparison
	Risers      []analytics.Comparison

	universe contract.Universe
}

// Notification renders the risers as an alert, keeping at most topN rows when topN > 0.
func (r MomentumReport) Notification(topN int, channels []string, at time.Time) alerting.Notification {
	risers := analytics.Top(r.Risers, topN)
	rows := make([]alerting.Row, 0, len(risers))
	for _, c := range risers {
		label := c.Symbol
		if ct, ok := r.universe.Lookup(c.Symbol); ok {
			label = ct.Label()
		}
		rows = append(rows, alerting.Row{
			Symbol:    c.Symbol,
			Label:     label,
			Prior:     c.PriorPrice,
			Current:   c.CurrentPrice,
			Change:    c.Change,
			ChangePct: c.ChangePct,
		})
	}
	return alerting.Notification{
		Exchange:    r.Exchange,
		Date:        r.Date,
		PriorDate:   r.PriorDate,
		Rows:        rows,
		GeneratedAt: at.UTC(),
		Channels:    channels,
	}
}

// Scan fetches the live universe and compares each exchange with its prior snapshot.
// A failing exchange is logged and left out; spot unavailability aborts the scan.
func (s *Service) Scan(ctx context.Context) ([]MomentumReport, error) {
	logger := s.jobLogger(ctx)

	universe, err := s.BuildUniverse(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("momentum scan aborted")
		return nil, err
	}

	today := s.today()
	date := today.Format(model.DateLayout)
	results := s.fetch(ctx, universe, s.Exchanges())

	reports := make([]MomentumReport, 0, len(results))
	for _, res := range results {
		exLogger := logger.With().Str("exchange", res.Exchange).Logger()
		if res.Err != nil {
			exLogger.Error().Err(res.Err).Msg("fetch failed")
			continue
		}

		report := MomentumReport{
			Exchange: res.Exchange,
			Date:     date,
			Received: len(res.Prices),
			universe: universe.Exchanges[res.Exchange],
		}

		prior, err := s.priorSnapshot(ctx, today, res.Exchange)
		switch {
		case err != nil:
			exLogger.Error().Err(err).Msg("prior snapshot lookup failed")
		case prior == nil:
			exLogger.Warn().Int("lookback_days", s.opts.LookbackDays).Msg("no prior snapshot to compare")
		default:
			report.PriorDate = prior.Date
			report.Comparisons = analytics.Compare(prior, res.Prices)
			report.Risers = analytics.Risers(report.Comparisons)
		}

		exLogger.Info().
			Str("prior_date", report.PriorDate).
			Int("received", report.Received).
			Int("compared", len(report.Comparisons)).
			Int("risers", len(report.Risers)).
			Msg("momentum computed")
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *Service) priorSnapshot(ctx context.Context, today time.Time, exchange string) (*model.Snapshot, error) {
	if s.store == nil {
		return nil, nil
	}
	for back := 1; back <= s.opts.LookbackDays; back++ {
		date := today.AddDate(0, 0, -back).Format(model.DateLayout)
		snap, err := s.store.GetSnapshot(ctx, date, exchange)
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &snap, nil
	}
	return nil, nil
}

// MorningMomentum scans and notifies every exchange that has rising contracts.
// Notification failures are logged and never returned.
func (s *Service) MorningMomentum(ctx context.Context) error {
	reports, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	logger := s.jobLogger(ctx)
	for _, report := range reports {
		if len(report.Risers) == 0 {
			continue
		}
		if !s.opts.AlertsEnabled || s.notifier == nil {
			logger.Info().Str("exchange", report.Exchange).Int("risers", len(report.Risers)).Msg("alerting disabled, notification skipped")
			continue
		}
		note := report.Notification(s.opts.TopN, s.opts.Channels, s.now())
		if err := s.notifier.Notify(ctx, note); err != nil {
			logger.Error().Err(err).Str("exchange", report.Exchange).Msg("failed to dispatch alert")
			continue
		}
		logger.Info().Str("exchange", report.Exchange).Int("rows", len(note.Rows)).Msg("momentum alert sent")
	}
	return nil
}

// ExchangeSummary is the outcome of a one-shot fetch for one exchange.
type ExchangeSummary struct {
	Exchange  string
	Requested int
	Received  int
	Err       error
}

// FetchSummary is the manual fetch report.
type FetchSummary struct {
	Spot      map[string]float64
	Exchanges []ExchangeSummary
}

// FetchSummary fetches the live universe once without persisting anything.
func (s *Service) FetchSummary(ctx context.Context) (FetchSummary, error) {
	universe, err := s.BuildUniverse(ctx)
	if err != nil {
		return FetchSummary{}, err
	}

	out := FetchSummary{Spot: universe.Spot}
	for _, res := range s.fetch(ctx, universe, s.Exchanges()) {
		out.Exchanges = append(out.Exchanges, ExchangeSummary{
			Exchange:  res.Exchange,
			Requested: universe.Exchanges[res.Exchange].Len(),
			Received:  len(res.Prices),
			Err:       res.Err,
		})
	}
	return out, nil
}

// Schedule builds the daily scheduler with both jobs registered in the trading timezone.
// Scheduled runs go through the advisory lock when one is configured.
func (s *Service) Schedule() (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.Options{
		Location:   s.opts.Location,
		JobTimeout: s.opts.JobTimeout,
	}, s.logger)

	if err := sched.Add(JobDailySnapshot, s.opts.SnapshotCron, s.locked(func(ctx context.Context) error {
		_, err := s.SaveDaily(ctx)
		return err
	})); err != nil {
		return nil, err
	}
	if err := sched.Add(JobMorningMomentum, s.opts.MomentumCron, s.locked(s.MorningMomentum)); err != nil {
		return nil, err
	}
	return sched, nil
}

// Run performs the startup backfill and momentum scan, then blocks on the daily schedule.
// Startup failures are logged and never stop the loop. The startup scan ignores the
// advisory lock; the backfill honours it.
func (s *Service) Run(ctx context.Context) error {
	sched, err := s.Schedule()
	if err != nil {
		return err
	}

	if s.opts.BackfillOnStart {
		s.logger.Info().Msg("startup backfill")
		if err := sched.Do(ctx, "startup_backfill", s.locked(func(ctx context.Context) error {
			_, err := s.Backfill(ctx)
			return err
		})); err != nil {
			s.logger.Error().Err(err).Msg("startup backfill failed")
		}
	}
	if s.opts.MomentumOnStart {
		s.logger.Info().Msg("startup momentum scan")
		if err := sched.Do(ctx, "startup_momentum", s.MorningMomentum); err != nil {
			s.logger.Error().Err(err).Msg("startup momentum scan failed")
		}
	}

	return sched.Run(ctx)
}

// locked runs fn only when this process holds the advisory lock, if one is configured.
func (s *Service) locked(fn scheduler.JobFunc) scheduler.JobFunc {
	return func(ctx context.Context) error {
		unlock, proceed, err := s.acquireLock(ctx)
		if err != nil {
			return err
		}
		if !proceed {
			logger := s.jobLogger(ctx)
			logger.Info().Msg("skip job because advisory lock held elsewhere")
			return nil
		}
		if unlock != nil {
			defer unlock()
		}
		return fn(ctx)
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func (s *Service) today() time.Time {
	local := s.now().In(s.opts.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.opts.Location)
}

func (s *Service) jobLogger(ctx context.Context) zerolog.Logger {
	if id := scheduler.RunID(ctx); id != "" {
		return s.logger.With().Str("run_id", id).Logger()
	}
	return s.logger
}
