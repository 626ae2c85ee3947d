package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置加载失败: %v", err)
	}

	if len(cfg.Indices) != 2 {
		t.Fatalf("expected 2 default indices, got %d", len(cfg.Indices))
	}
	nifty := cfg.Indices[0]
	if nifty.Name != "NIFTY" || nifty.Exchange != "NSE" || nifty.Step != 50 || nifty.StrikeRange != 1000 {
		t.Fatalf("unexpected NIFTY defaults: %+v", nifty)
	}
	if wd, _ := nifty.Weekday(); wd != time.Tuesday {
		t.Fatalf("NIFTY expiry should be Tuesday, got %v", wd)
	}
	sensex := cfg.Indices[1]
	if sensex.SpotKey != "1" || sensex.Step != 100 {
		t.Fatalf("unexpected SENSEX defaults: %+v", sensex)
	}
	if wd, _ := sensex.Weekday(); wd != time.Thursday {
		t.Fatalf("SENSEX expiry should be Thursday, got %v", wd)
	}

	if _, ok := cfg.Provider.Endpoints["NSE"]; !ok {
		t.Fatalf("endpoint keys should be upper-cased: %v", cfg.Provider.Endpoints)
	}
	if cfg.Provider.BatchSize != 50 || cfg.Provider.MaxAttempts != 3 {
		t.Fatalf("unexpected provider defaults: %+v", cfg.Provider)
	}
	if cfg.Provider.RetryDelay != time.Second || cfg.Provider.RequestTimeout != 10*time.Second {
		t.Fatalf("unexpected provider timings: %+v", cfg.Provider)
	}
	if cfg.Expiry.CutoverHour != 19 {
		t.Fatalf("cutover hour should default to 19, got %d", cfg.Expiry.CutoverHour)
	}
	if cfg.Scheduler.SnapshotCron != "0 17 * * *" || cfg.Scheduler.MomentumCron != "17 9 * * *" {
		t.Fatalf("unexpected cron defaults: %+v", cfg.Scheduler)
	}
	loc, err := cfg.Scheduler.Location()
	if err != nil || loc.String() != "Asia/Kolkata" {
		t.Fatalf("timezone should resolve to Asia/Kolkata: %v %v", loc, err)
	}
}

func TestIndexWeekdayFallback(t *testing.T) {
	cases := []struct {
		idx  IndexConfig
		want time.Weekday
	}{
		{IndexConfig{Name: "NIFTY"}, time.Tuesday},
		{IndexConfig{Name: "SENSEX"}, time.Thursday},
		{IndexConfig{Name: "BANKNIFTY"}, time.Tuesday},
		{IndexConfig{Name: "BANKNIFTY", ExpiryWeekday: "wed"}, time.Wednesday},
	}
	for _, tc := range cases {
		got, err := tc.idx.Weekday()
		if err != nil {
			t.Fatalf("%+v: %v", tc.idx, err)
		}
		if got != tc.want {
			t.Fatalf("%+v: weekday = %v, want %v", tc.idx, got, tc.want)
		}
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  sqlite_path: snapshots.db
indices:
  - name: banknifty
    exchange: nse
    spot_key: BANKNIFTY
    step: 100
    strike_range: 2000
    expiry_weekday: wed
momentum:
  top_n: 5
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")
	t.Setenv("INDEXALERTS_ALERTING_TELEGRAM_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "snapshots.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if len(cfg.Indices) != 1 || cfg.Indices[0].Name != "BANKNIFTY" || cfg.Indices[0].Exchange != "NSE" {
		t.Fatalf("indices not normalised: %+v", cfg.Indices)
	}
	if wd, _ := cfg.Indices[0].Weekday(); wd != time.Wednesday {
		t.Fatalf("short weekday should parse, got %v", wd)
	}
	if cfg.Momentum.TopN != 5 {
		t.Fatalf("top_n = %d", cfg.Momentum.TopN)
	}
	if !cfg.Alerting.Telegram.Enabled || cfg.Alerting.Telegram.BotToken != "token" || cfg.Alerting.Telegram.ChatID != "chat" {
		t.Fatalf("telegram env binding failed: %+v", cfg.Alerting.Telegram)
	}
}

func TestValidateRejectsBadIndex(t *testing.T) {
	base := func() Config {
		return Config{
			Provider:  ProviderConfig{Endpoints: map[string]string{"NSE": "http://x"}, BatchSize: 50, MaxAttempts: 3},
			Spot:      SpotConfig{Provider: "groww"},
			Indices:   []IndexConfig{{Name: "NIFTY", Exchange: "NSE", Step: 50, StrikeRange: 1000, ExpiryWeekday: "tuesday"}},
			Expiry:    ExpiryConfig{CutoverHour: 19},
			Scheduler: SchedulerConfig{Timezone: "Asia/Kolkata", SnapshotCron: "0 17 * * *", MomentumCron: "17 9 * * *"},
			Momentum:  MomentumConfig{LookbackDays: 1},
		}
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	mutations := map[string]func(*Config){
		"zero step":       func(c *Config) { c.Indices[0].Step = 0 },
		"range not step":  func(c *Config) { c.Indices[0].StrikeRange = 1025 },
		"bad weekday":     func(c *Config) { c.Indices[0].ExpiryWeekday = "someday" },
		"no endpoint":     func(c *Config) { c.Indices[0].Exchange = "MCX" },
		"bad timezone":    func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
		"bad cron":        func(c *Config) { c.Scheduler.MomentumCron = "every morning" },
		"bad cutover":     func(c *Config) { c.Expiry.CutoverHour = 24 },
		"telegram no key": func(c *Config) { c.Alerting.Telegram.Enabled = true },
		"zero lookback":   func(c *Config) { c.Momentum.LookbackDays = 0 },
	}
	for name, mutate := range mutations {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
