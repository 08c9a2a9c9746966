package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Store     StoreConfig     `yaml:"store"`
	Runner    RunnerConfig    `yaml:"runner"`
	Fitting   FittingConfig   `yaml:"fitting"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

type RunnerConfig struct {
	TickIntervalMs   int `yaml:"tick_interval_ms"`
	DefaultTimeoutMs int `yaml:"default_timeout_ms"`
	MaxAlternatives  int `yaml:"max_alternatives"`
	MaxConcurrent    int `yaml:"max_concurrent"`
}

// FittingConfig holds the defaults applied to fit requests that leave them unset.
type FittingConfig struct {
	Method   string  `yaml:"method"`
	Distance string  `yaml:"distance"`
	Penalty  float64 `yaml:"penalty"`
}

type OptimizerConfig struct {
	Name           string `yaml:"name"`
	Epochs         int    `yaml:"epochs"`
	PopSize        int    `yaml:"pop_size"`
	Seed           uint64 `yaml:"seed"`
	Workers        int    `yaml:"workers"`
	MaxEvaluations int    `yaml:"max_evaluations"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Runner.TickIntervalMs) * time.Millisecond
}

func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Runner.DefaultTimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Store: StoreConfig{
			Capacity: 1024,
		},
		Runner: RunnerConfig{
			TickIntervalMs:   500,
			DefaultTimeoutMs: 60000,
			MaxAlternatives:  10000,
			MaxConcurrent:    2,
		},
		Fitting: FittingConfig{
			Method:   "topsis",
			Distance: "spearman",
			Penalty:  1e12,
		},
		Optimizer: OptimizerConfig{
			Name:           "pso",
			Epochs:         100,
			PopSize:        50,
			Workers:        1,
			MaxEvaluations: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envInt("REIDENTIFY_PORT", &cfg.Server.Port)
	envInt("REIDENTIFY_METRICS_PORT", &cfg.Server.MetricsPort)
	if v := os.Getenv("REIDENTIFY_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("REIDENTIFY_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	envInt("REIDENTIFY_STORE_CAPACITY", &cfg.Store.Capacity)
	envInt("REIDENTIFY_TICK_INTERVAL_MS", &cfg.Runner.TickIntervalMs)
	envInt("REIDENTIFY_DEFAULT_TIMEOUT_MS", &cfg.Runner.DefaultTimeoutMs)
	envInt("REIDENTIFY_MAX_CONCURRENT", &cfg.Runner.MaxConcurrent)
	if v := os.Getenv("REIDENTIFY_METHOD"); v != "" {
		cfg.Fitting.Method = v
	}
	if v := os.Getenv("REIDENTIFY_DISTANCE"); v != "" {
		cfg.Fitting.Distance = v
	}
	if v := os.Getenv("REIDENTIFY_OPTIMIZER"); v != "" {
		cfg.Optimizer.Name = v
	}
	envInt("REIDENTIFY_EPOCHS", &cfg.Optimizer.Epochs)
	envInt("REIDENTIFY_POP_SIZE", &cfg.Optimizer.PopSize)
	envInt("REIDENTIFY_WORKERS", &cfg.Optimizer.Workers)
	if v := os.Getenv("REIDENTIFY_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Optimizer.Seed = n
		}
	}
	if v := os.Getenv("REIDENTIFY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REIDENTIFY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
