package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"index-early-alerts/internal/alerting"
	"index-early-alerts/internal/config"
	"index-early-alerts/internal/fetcher"
	"index-early-alerts/internal/service"
	"index-early-alerts/internal/storage"
	"index-early-alerts/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newFetchers() (fetcher.PriceFetcher, fetcher.SpotPriceProvider) {
	p := a.Config.Provider
	if p.UserAgent == "" {
		p.UserAgent = version.UserAgent()
	}
	prices := fetcher.NewBatch(fetcher.BatchOptions{
		Endpoints:   p.Endpoints,
		Headers:     p.Headers,
		BatchSize:   p.BatchSize,
		MaxAttempts: p.MaxAttempts,
		RetryDelay:  p.RetryDelay,
		Timeout:     p.RequestTimeout,
		UserAgent:   p.UserAgent,
	}, a.Logger)

	spot := fetcher.NewSpot(fetcher.SpotOptions{
		URL:       a.Config.Spot.URL,
		Headers:   p.Headers,
		Timeout:   a.Config.Spot.RequestTimeout,
		UserAgent: p.UserAgent,
	}, a.Logger)

	return prices, spot
}

// newNotifier builds the configured channels. The returned closer releases any connections.
func (a *App) newNotifier() (alerting.Notifier, func()) {
	cfg := a.Config.Alerting
	var (
		notifiers []alerting.Notifier
		closers   []func() error
	)
	if cfg.Telegram.Enabled {
		t := cfg.Telegram
		notifiers = append(notifiers, alerting.NewTelegramNotifier(t.BotToken, t.ChatID, t.APIBase, t.ParseMode, t.Timeout, a.Logger))
	}
	if cfg.Redis.Enabled {
		r := cfg.Redis
		rn := alerting.NewRedisNotifier(r.Addr, r.Password, r.DB, r.Channel, a.Logger)
		notifiers = append(notifiers, rn)
		closers = append(closers, rn.Close)
	}

	closer := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	if len(notifiers) == 0 {
		return nil, closer
	}
	return alerting.NewMulti(a.Logger, notifiers...), closer
}

// openStore returns a nil store when persistence is not configured.
func (a *App) openStore(ctx context.Context) (storage.SnapshotStore, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if errors.Is(err, storage.ErrNotConfigured) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close store")
		}
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context) (storage.SnapshotStore, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; set database.dsn or database.driver=sqlite")
	}
	return store, closeStore, nil
}

func (a *App) newService(store storage.SnapshotStore, notifier alerting.Notifier) (*service.Service, error) {
	opts, err := service.OptionsFromConfig(a.Config)
	if err != nil {
		return nil, err
	}
	prices, spot := a.newFetchers()
	return service.New(opts, prices, spot, store, notifier, a.Logger), nil
}

// Run executes the long-running scheduler service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database not configured; snapshots disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	notifier, closeNotifier := a.newNotifier()
	defer closeNotifier()
	if notifier == nil && a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}

	svc, err := a.newService(store, notifier)
	if err != nil {
		return err
	}

	a.Logger.Info().Strs("exchanges", svc.Exchanges()).Msg("starting index alert service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("index alert service stopped")
	return nil
}

// ExportOptions hold parameters for exporting a comparison between two stored days.
type ExportOptions struct {
	Exchange string
	From     string
	To       string
	PNGPath  string
	CSVPath  string
	MaxRows  int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill command.
type BackfillOptions struct {
	Date *time.Time
}

// ScanOptions configure the scan command.
type ScanOptions struct {
	DryRun bool
}
