package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"index-early-alerts/internal/expiry"
	"index-early-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Spot      SpotConfig      `mapstructure:"spot"`
	Indices   []IndexConfig   `mapstructure:"indices"`
	Expiry    ExpiryConfig    `mapstructure:"expiry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Momentum  MomentumConfig  `mapstructure:"momentum"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the snapshot store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ProviderConfig covers the batched live price endpoint.
type ProviderConfig struct {
	Endpoints      map[string]string `mapstructure:"endpoints"`
	Headers        map[string]string `mapstructure:"headers"`
	BatchSize      int               `mapstructure:"batch_size"`
	MaxAttempts    int               `mapstructure:"max_attempts"`
	RetryDelay     time.Duration     `mapstructure:"retry_delay"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
}

// SpotConfig covers the index spot source.
type SpotConfig struct {
	Provider       string        `mapstructure:"provider"`
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// IndexConfig describes one tracked index and its strike window.
type IndexConfig struct {
	Name          string `mapstructure:"name"`
	Exchange      string `mapstructure:"exchange"`
	SpotKey       string `mapstructure:"spot_key"`
	Step          int    `mapstructure:"step"`
	StrikeRange   int    `mapstructure:"strike_range"`
	ExpiryWeekday string `mapstructure:"expiry_weekday"`
}

// ExpiryConfig holds the weekly expiry rollover rule.
type ExpiryConfig struct {
	CutoverHour int `mapstructure:"cutover_hour"`
}

// SchedulerConfig governs the daily triggers.
type SchedulerConfig struct {
	Timezone        string        `mapstructure:"timezone"`
	SnapshotCron    string        `mapstructure:"snapshot_cron"`
	MomentumCron    string        `mapstructure:"momentum_cron"`
	BackfillOnStart bool          `mapstructure:"backfill_on_start"`
	MomentumOnStart bool          `mapstructure:"momentum_on_start"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// MomentumConfig tunes the morning comparison.
type MomentumConfig struct {
	LookbackDays int `mapstructure:"lookback_days"`
	TopN         int `mapstructure:"top_n"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BotToken  string        `mapstructure:"bot_token"`
	ChatID    string        `mapstructure:"chat_id"`
	APIBase   string        `mapstructure:"api_base"`
	ParseMode string        `mapstructure:"parse_mode"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RedisConfig publishes alerts to a pub/sub channel.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INDEXALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "indexalerts")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", "")
	v.SetDefault("logging.caller", false)
	v.SetDefault("logging.pretty", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "data/snapshots.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("provider.endpoints", map[string]string{
		"NSE": "https://groww.in/v1/api/stocks_fo_data/v1/tr_live_prices/exchange/NSE/segment/FNO/latest_prices_batch",
		"BSE": "https://groww.in/v1/api/stocks_fo_data/v1/tr_live_prices/exchange/BSE/segment/FNO/latest_prices_batch",
	})
	v.SetDefault("provider.headers", map[string]string{
		"x-app-id":      "growwWeb",
		"x-device-id":   "",
		"x-device-type": "desktop",
		"x-platform":    "web",
	})
	v.SetDefault("provider.batch_size", 50)
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("provider.retry_delay", "1s")
	v.SetDefault("provider.request_timeout", "10s")
	v.SetDefault("provider.user_agent", "")

	v.SetDefault("spot.provider", "groww")
	v.SetDefault("spot.url", "https://groww.in/v1/api/stocks_data/v1/aggregated_stocks_market_today")
	v.SetDefault("spot.request_timeout", "10s")

	v.SetDefault("indices", []map[string]any{
		{"name": "NIFTY", "exchange": "NSE", "spot_key": "NIFTY", "step": 50, "strike_range": 1000, "expiry_weekday": "tuesday"},
		{"name": "SENSEX", "exchange": "BSE", "spot_key": "1", "step": 100, "strike_range": 1000, "expiry_weekday": "thursday"},
	})

	v.SetDefault("expiry.cutover_hour", 19)

	v.SetDefault("scheduler.timezone", "Asia/Kolkata")
	v.SetDefault("scheduler.snapshot_cron", "0 17 * * *")
	v.SetDefault("scheduler.momentum_cron", "17 9 * * *")
	v.SetDefault("scheduler.backfill_on_start", true)
	v.SetDefault("scheduler.momentum_on_start", true)
	v.SetDefault("scheduler.job_timeout", "5m")
	v.SetDefault("scheduler.advisory_lock_key", 0)

	v.SetDefault("momentum.lookback_days", 1)
	v.SetDefault("momentum.top_n", 0)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.parse_mode", "HTML")
	v.SetDefault("alerting.telegram.timeout", "10s")
	v.SetDefault("alerting.redis.enabled", false)
	v.SetDefault("alerting.redis.addr", "localhost:6379")
	v.SetDefault("alerting.redis.password", "")
	v.SetDefault("alerting.redis.db", 0)
	v.SetDefault("alerting.redis.channel", "indexalerts:momentum")

	v.SetDefault("export.max_rows", 500)
}

// bindLegacyEnv keeps the plain variable names used by existing .env files working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("alerting.telegram.bot_token", "INDEXALERTS_ALERTING_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("alerting.telegram.chat_id", "INDEXALERTS_ALERTING_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("database.dsn", "INDEXALERTS_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("provider.headers.x-app-id", "APP_ID")
	_ = v.BindEnv("provider.headers.x-device-id", "DEVICE_ID")
	_ = v.BindEnv("provider.headers.x-device-type", "DEVICE_TYPE")
	_ = v.BindEnv("provider.headers.x-platform", "PLATFORM")
	_ = v.BindEnv("provider.max_attempts", "INDEXALERTS_PROVIDER_MAX_ATTEMPTS", "MAX_RETRIES")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// normalize upper-cases exchange and index identifiers; viper lower-cases map keys.
func (c *Config) normalize() {
	endpoints := make(map[string]string, len(c.Provider.Endpoints))
	for exchange, url := range c.Provider.Endpoints {
		endpoints[strings.ToUpper(exchange)] = url
	}
	c.Provider.Endpoints = endpoints

	for i := range c.Indices {
		c.Indices[i].Name = strings.ToUpper(strings.TrimSpace(c.Indices[i].Name))
		c.Indices[i].Exchange = strings.ToUpper(strings.TrimSpace(c.Indices[i].Exchange))
		if c.Indices[i].SpotKey == "" {
			c.Indices[i].SpotKey = c.Indices[i].Name
		}
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Provider.BatchSize <= 0 {
		return fmt.Errorf("provider.batch_size must be greater than zero")
	}
	if c.Provider.MaxAttempts <= 0 {
		return fmt.Errorf("provider.max_attempts must be greater than zero")
	}
	if c.Provider.RetryDelay < 0 {
		return fmt.Errorf("provider.retry_delay cannot be negative")
	}
	if !strings.EqualFold(c.Spot.Provider, "groww") {
		return fmt.Errorf("spot.provider %q is not supported", c.Spot.Provider)
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("at least one index must be configured")
	}
	for _, idx := range c.Indices {
		if idx.Name == "" {
			return fmt.Errorf("indices: name is required")
		}
		if _, ok := c.Provider.Endpoints[idx.Exchange]; !ok {
			return fmt.Errorf("index %s: no provider endpoint for exchange %q", idx.Name, idx.Exchange)
		}
		if idx.Step <= 0 {
			return fmt.Errorf("index %s: step must be greater than zero", idx.Name)
		}
		if idx.StrikeRange < 0 || idx.StrikeRange%idx.Step != 0 {
			return fmt.Errorf("index %s: strike_range must be a non-negative multiple of step", idx.Name)
		}
		if _, err := idx.Weekday(); err != nil {
			return fmt.Errorf("index %s: %w", idx.Name, err)
		}
	}
	if c.Expiry.CutoverHour < 1 || c.Expiry.CutoverHour > 23 {
		return fmt.Errorf("expiry.cutover_hour must be within 1-23")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}
	for name, spec := range map[string]string{
		"scheduler.snapshot_cron": c.Scheduler.SnapshotCron,
		"scheduler.momentum_cron": c.Scheduler.MomentumCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Momentum.LookbackDays < 1 {
		return fmt.Errorf("momentum.lookback_days must be at least 1")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Alerting.Redis.Enabled && c.Alerting.Redis.Channel == "" {
		return fmt.Errorf("alerting.redis.channel 必须配置")
	}
	return nil
}

// Location resolves the trading timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

// Weekday parses the configured expiry weekday, falling back to the index's usual day.
func (i IndexConfig) Weekday() (time.Weekday, error) {
	if strings.TrimSpace(i.ExpiryWeekday) == "" {
		return expiry.WeekdayFor(i.Name, time.Tuesday), nil
	}
	return expiry.ParseWeekday(i.ExpiryWeekday)
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
