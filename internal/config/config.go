// Package config loads configuration from an optional config.yml plus
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// API holds everything the API server and worker need.
type API struct {
	Addr             string        `mapstructure:"addr"`
	DatabaseURL      string        `mapstructure:"database_url"`
	SupabaseURL      string        `mapstructure:"supabase_url"`
	SupabaseAnonKey  string        `mapstructure:"supabase_anon_key"`
	MarketTickEvery  time.Duration `mapstructure:"market_tick_every"`
	MarketSeed       int64         `mapstructure:"market_seed"`
	MentorURL        string        `mapstructure:"mentor_url"`
	MentorRatePerMin float64       `mapstructure:"mentor_rate_per_minute"`
	// DevMode swaps Postgres for the in-memory store and skips Supabase
	// verification; local hacking only.
	DevMode bool `mapstructure:"dev_mode"`
}

// CLI holds the client-side settings.
type CLI struct {
	APIBaseURL string `mapstructure:"api_base_url"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stocksim")
	v.AutomaticEnv()
	return v
}

// LoadAPI reads config.yml if present, then applies env overrides.
func LoadAPI() (API, error) {
	v := newViper()
	v.SetDefault("addr", ":8080")
	v.SetDefault("market_tick_every", 5*time.Second)
	v.SetDefault("market_seed", 0)
	v.SetDefault("mentor_rate_per_minute", 6.0)
	v.SetDefault("dev_mode", false)

	// Env names kept stable for existing deployments.
	_ = v.BindEnv("addr", "STOCKSIM_API_ADDR", "PORT")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("supabase_url", "SUPABASE_URL")
	_ = v.BindEnv("supabase_anon_key", "SUPABASE_ANON_KEY")
	_ = v.BindEnv("market_tick_every", "STOCKSIM_MARKET_TICK_EVERY")
	_ = v.BindEnv("market_seed", "STOCKSIM_MARKET_SEED")
	_ = v.BindEnv("mentor_url", "STOCKSIM_MENTOR_URL")
	_ = v.BindEnv("mentor_rate_per_minute", "STOCKSIM_MENTOR_RATE_PER_MINUTE")
	_ = v.BindEnv("dev_mode", "STOCKSIM_DEV_MODE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return API{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg API
	if err := v.Unmarshal(&cfg); err != nil {
		return API{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Addr = normalizeAddr(cfg.Addr)
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.MentorURL = strings.TrimRight(strings.TrimSpace(cfg.MentorURL), "/")

	if cfg.DevMode {
		return cfg, nil
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("database_url is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("supabase_url is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("supabase_anon_key is required")
	}
	return cfg, nil
}

// Worker holds the settings of the standalone market worker. It runs a
// simulator of its own and needs no database.
type Worker struct {
	MarketTickEvery time.Duration `mapstructure:"market_tick_every"`
	MarketSeed      int64         `mapstructure:"market_seed"`
	RunOnce         bool          `mapstructure:"worker_run_once"`
}

// LoadWorker reads the worker settings; every field has a default.
func LoadWorker() (Worker, error) {
	v := newViper()
	v.SetDefault("market_tick_every", 5*time.Second)
	v.SetDefault("market_seed", 0)
	v.SetDefault("worker_run_once", false)
	_ = v.BindEnv("market_tick_every", "STOCKSIM_MARKET_TICK_EVERY")
	_ = v.BindEnv("market_seed", "STOCKSIM_MARKET_SEED")
	_ = v.BindEnv("worker_run_once", "STOCKSIM_WORKER_RUN_ONCE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Worker{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Worker
	if err := v.Unmarshal(&cfg); err != nil {
		return Worker{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadCLI never fails; the CLI falls back to localhost.
func LoadCLI() CLI {
	v := newViper()
	v.SetDefault("api_base_url", "http://localhost:8080")
	_ = v.BindEnv("api_base_url", "STOCKSIM_API_BASE_URL")
	_ = v.ReadInConfig()

	var cfg CLI
	if err := v.Unmarshal(&cfg); err != nil {
		return CLI{APIBaseURL: "http://localhost:8080"}
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg
}

func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ":8080"
	}
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}
