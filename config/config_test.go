package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
environment: production
clocks:
  number_color_size: [30, 60]
  triple_dice_sum: [180]
crash:
  enabled: true
  betting_window: 8s
  growth_rate: 0.05
engine:
  lock_ahead: 3s
  archive_size: 50
redis:
  addr: localhost:6379
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  results_topic: rounds
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "production" || !cfg.IsProduction() {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if got := cfg.Clocks.NumberColorSize; len(got) != 2 || got[0] != 30 || got[1] != 60 {
		t.Errorf("number_color_size clocks = %v", got)
	}
	if got := cfg.Clocks.TripleDiceSum; len(got) != 1 || got[0] != 180 {
		t.Errorf("triple_dice_sum clocks = %v", got)
	}
	if !cfg.Crash.Enabled {
		t.Error("crash not enabled")
	}
	if cfg.Crash.BettingWindow != 8*time.Second {
		t.Errorf("betting window = %s, want 8s", cfg.Crash.BettingWindow)
	}
	if cfg.Crash.GrowthRate != 0.05 {
		t.Errorf("growth rate = %v, want 0.05", cfg.Crash.GrowthRate)
	}
	if cfg.Engine.LockAhead != 3*time.Second {
		t.Errorf("lock ahead = %s, want 3s", cfg.Engine.LockAhead)
	}
	if cfg.Engine.ArchiveSize != 50 {
		t.Errorf("archive size = %d, want 50", cfg.Engine.ArchiveSize)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.ResultsTopic != "rounds" {
		t.Errorf("kafka config = %+v", cfg.Kafka)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: development\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.IsDevelopment() {
		t.Error("expected development environment")
	}
	if !cfg.Crash.Enabled {
		t.Error("continuous game disabled by a config that never mentions it")
	}
	if len(cfg.Clocks.NumberColorSize) != 5 {
		t.Errorf("default number_color_size clocks = %v", cfg.Clocks.NumberColorSize)
	}
	if len(cfg.Clocks.TripleDiceSum) != 4 || len(cfg.Clocks.FiveDigit) != 4 {
		t.Errorf("default clocks = %+v", cfg.Clocks)
	}
	if cfg.Crash.BettingWindow != 5*time.Second {
		t.Errorf("default betting window = %s", cfg.Crash.BettingWindow)
	}
	if cfg.Crash.GrowthRate != 0.06 {
		t.Errorf("default growth rate = %v", cfg.Crash.GrowthRate)
	}
	if cfg.Engine.ArchiveSize != 100 {
		t.Errorf("default archive size = %d", cfg.Engine.ArchiveSize)
	}
	if cfg.Engine.IdentityCheckThreshold != 10000 {
		t.Errorf("default identity threshold = %v", cfg.Engine.IdentityCheckThreshold)
	}
	if cfg.Kafka.ResultsTopic != "round-results" {
		t.Errorf("default results topic = %q", cfg.Kafka.ResultsTopic)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %+v", cfg.Logging)
	}
	if cfg.ExternalServices.WalletService.Timeout != 10*time.Second {
		t.Errorf("default wallet timeout = %s", cfg.ExternalServices.WalletService.Timeout)
	}
}

func TestLoadCrashExplicitlyDisabled(t *testing.T) {
	path := writeConfig(t, "crash:\n  enabled: false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Crash.Enabled {
		t.Error("explicit enabled: false was overridden")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "clocks: [not: a map\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
