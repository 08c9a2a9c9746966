package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"REIDENTIFY_PORT", "REIDENTIFY_METRICS_PORT", "REIDENTIFY_ADMIN_TOKEN",
	"REIDENTIFY_HERMES_URL", "REIDENTIFY_STORE_CAPACITY", "REIDENTIFY_TICK_INTERVAL_MS",
	"REIDENTIFY_DEFAULT_TIMEOUT_MS", "REIDENTIFY_MAX_CONCURRENT", "REIDENTIFY_METHOD", "REIDENTIFY_DISTANCE",
	"REIDENTIFY_OPTIMIZER", "REIDENTIFY_EPOCHS", "REIDENTIFY_POP_SIZE", "REIDENTIFY_WORKERS",
	"REIDENTIFY_SEED", "REIDENTIFY_LOG_LEVEL", "REIDENTIFY_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Store.Capacity != 1024 {
		t.Errorf("expected store capacity 1024, got %d", cfg.Store.Capacity)
	}
	if cfg.Runner.MaxAlternatives != 10000 {
		t.Errorf("expected max alternatives 10000, got %d", cfg.Runner.MaxAlternatives)
	}
	if cfg.Runner.MaxConcurrent != 2 {
		t.Errorf("expected 2 concurrent runs, got %d", cfg.Runner.MaxConcurrent)
	}
	if cfg.Fitting.Method != "topsis" || cfg.Fitting.Distance != "spearman" {
		t.Errorf("unexpected fitting defaults: %+v", cfg.Fitting)
	}
	if cfg.Fitting.Penalty != 1e12 {
		t.Errorf("expected penalty 1e12, got %g", cfg.Fitting.Penalty)
	}
	if cfg.Optimizer.Name != "pso" {
		t.Errorf("expected optimizer 'pso', got '%s'", cfg.Optimizer.Name)
	}
	if cfg.Optimizer.Epochs != 100 || cfg.Optimizer.PopSize != 50 {
		t.Errorf("expected 100 epochs of 50 particles, got %d x %d", cfg.Optimizer.Epochs, cfg.Optimizer.PopSize)
	}
	if cfg.Optimizer.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Optimizer.Workers)
	}
	if cfg.Optimizer.MaxEvaluations != 5000 {
		t.Errorf("expected 5000 evaluations, got %d", cfg.Optimizer.MaxEvaluations)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	if cfg.TickInterval() != 500*time.Millisecond {
		t.Errorf("expected TickInterval 500ms, got %v", cfg.TickInterval())
	}
	if cfg.DefaultTimeout() != time.Minute {
		t.Errorf("expected DefaultTimeout 1m, got %v", cfg.DefaultTimeout())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REIDENTIFY_PORT", "9000")
	t.Setenv("REIDENTIFY_METRICS_PORT", "9001")
	t.Setenv("REIDENTIFY_ADMIN_TOKEN", "secret-token")
	t.Setenv("REIDENTIFY_HERMES_URL", "nats://nats:4222")
	t.Setenv("REIDENTIFY_STORE_CAPACITY", "16")
	t.Setenv("REIDENTIFY_TICK_INTERVAL_MS", "2000")
	t.Setenv("REIDENTIFY_METHOD", "wsm")
	t.Setenv("REIDENTIFY_DISTANCE", "rw")
	t.Setenv("REIDENTIFY_OPTIMIZER", "nelder-mead")
	t.Setenv("REIDENTIFY_EPOCHS", "10")
	t.Setenv("REIDENTIFY_POP_SIZE", "5")
	t.Setenv("REIDENTIFY_WORKERS", "4")
	t.Setenv("REIDENTIFY_SEED", "42")
	t.Setenv("REIDENTIFY_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Store.Capacity != 16 {
		t.Errorf("expected capacity 16, got %d", cfg.Store.Capacity)
	}
	if cfg.Runner.TickIntervalMs != 2000 {
		t.Errorf("expected tick 2000, got %d", cfg.Runner.TickIntervalMs)
	}
	if cfg.Fitting.Method != "wsm" || cfg.Fitting.Distance != "rw" {
		t.Errorf("unexpected fitting overrides: %+v", cfg.Fitting)
	}
	if cfg.Optimizer.Name != "nelder-mead" {
		t.Errorf("expected optimizer override, got '%s'", cfg.Optimizer.Name)
	}
	if cfg.Optimizer.Epochs != 10 || cfg.Optimizer.PopSize != 5 || cfg.Optimizer.Workers != 4 {
		t.Errorf("unexpected optimizer overrides: %+v", cfg.Optimizer)
	}
	if cfg.Optimizer.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Optimizer.Seed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REIDENTIFY_EPOCHS", "7")

	path := filepath.Join(t.TempDir(), "reidentify.yaml")
	data := []byte(`
server:
  port: 8800
optimizer:
  name: cmaes
  epochs: 20
  max_evaluations: 300
fitting:
  distance: ws
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8800 {
		t.Errorf("expected port 8800, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("unset keys keep defaults, got metrics port %d", cfg.Server.MetricsPort)
	}
	if cfg.Optimizer.Name != "cmaes" || cfg.Optimizer.MaxEvaluations != 300 {
		t.Errorf("unexpected optimizer config: %+v", cfg.Optimizer)
	}
	if cfg.Optimizer.Epochs != 7 {
		t.Errorf("env must override the file, got epochs %d", cfg.Optimizer.Epochs)
	}
	if cfg.Fitting.Distance != "ws" || cfg.Fitting.Method != "topsis" {
		t.Errorf("unexpected fitting config: %+v", cfg.Fitting)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
