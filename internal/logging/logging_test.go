package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":       zerolog.InfoLevel,
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"bogus":  zerolog.InfoLevel,
		"error":  zerolog.ErrorLevel,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	logger := NewLogger(Config{Level: "warn", Output: "stderr"}, "indexalerts")
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("日志级别应为 warn, 实际 %v", logger.GetLevel())
	}
}
