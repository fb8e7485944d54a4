// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"fleetopt/internal/opt"
)

type Config struct {
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"databaseUrl"`
	DBMigrate   bool          `yaml:"dbMigrate"`
	RedisURL    string        `yaml:"redisUrl"`
	AllowOrigin []string      `yaml:"allowOrigins"`
	Rate        RateConfig    `yaml:"rate"`
	Log         LogConfig     `yaml:"log"`
	Optimizer   opt.Config    `yaml:"optimizer"`
	Webhooks    WebhookConfig `yaml:"webhooks"`
}

// RateConfig is a global token bucket; RPS 0 disables limiting.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// WebhookConfig lists endpoints that receive every route event. Deliveries
// are signed with HMAC-SHA256 when Secret is set.
type WebhookConfig struct {
	URLs        []string `yaml:"urls"`
	Secret      string   `yaml:"secret"`
	MaxAttempts int      `yaml:"maxAttempts"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File enables rotation through lumberjack; empty logs to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	JSON       bool   `yaml:"json"`
}

func Default() Config {
	return Config{
		Port:      "8080",
		DBMigrate: true,
		Rate:      RateConfig{RPS: 20, Burst: 40},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 7,
			MaxAgeDays: 7,
		},
		Optimizer: opt.DefaultConfig(),
		Webhooks:  WebhookConfig{MaxAttempts: 5},
	}
}

// Load applies the YAML file at path (skipped when it does not exist) and
// then the environment on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FromEnv is Load with the path taken from CONFIG_FILE (default config.yaml).
func FromEnv() (Config, error) {
	return Load(envOr("CONFIG_FILE", "config.yaml"))
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(k string, dst *string) {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("WEBHOOK_SECRET", &c.Webhooks.Secret)
	list := func(k string, dst *[]string) {
		v, ok := lookup(k)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		*dst = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				*dst = append(*dst, o)
			}
		}
	}
	list("ALLOW_ORIGINS", &c.AllowOrigin)
	list("WEBHOOK_URLS", &c.Webhooks.URLs)
	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_MIGRATE: %w", err)
		}
		c.DBMigrate = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_BURST", &c.Rate.Burst},
		{"OPT_POPULATION", &c.Optimizer.Genetic.PopulationSize},
		{"OPT_GENERATIONS", &c.Optimizer.Genetic.Generations},
		{"WEBHOOK_MAX_ATTEMPTS", &c.Webhooks.MaxAttempts},
	}
	for _, e := range ints {
		if v, ok := lookup(e.key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.Rate.RPS = f
	}
	if v, ok := lookup("OPT_SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("OPT_SEED: %w", err)
		}
		c.Optimizer.Seed = n
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("port %q is not numeric", c.Port))
	}
	if c.Rate.RPS < 0 || c.Rate.Burst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.Rate.RPS > 0 && c.Rate.Burst < 1 {
		errs = append(errs, errors.New("rate burst must be at least 1 when rps is set"))
	}
	g := c.Optimizer.Genetic
	if g.PopulationSize < 1 {
		errs = append(errs, fmt.Errorf("optimizer population %d must be at least 1", g.PopulationSize))
	}
	if g.Generations < 0 {
		errs = append(errs, fmt.Errorf("optimizer generations %d must not be negative", g.Generations))
	}
	if g.MutationRate < 0 || g.MutationRate > 1 {
		errs = append(errs, fmt.Errorf("optimizer mutation rate %v outside [0, 1]", g.MutationRate))
	}
	if c.Optimizer.AverageSpeedKph <= 0 {
		errs = append(errs, errors.New("optimizer average speed must be positive"))
	}
	if c.Optimizer.DwellHours < 0 {
		errs = append(errs, errors.New("optimizer dwell hours must not be negative"))
	}
	if len(c.Webhooks.URLs) > 0 && c.Webhooks.MaxAttempts < 1 {
		errs = append(errs, errors.New("webhook max attempts must be at least 1"))
	}
	for _, u := range c.Webhooks.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Errorf("webhook url %q must be http or https", u))
		}
	}
	return errors.Join(errs...)
}

// Redacted returns the settings safe to expose on debug endpoints.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"port":             c.Port,
		"allowOrigins":     c.AllowOrigin,
		"rateRps":          c.Rate.RPS,
		"rateBurst":        c.Rate.Burst,
		"logLevel":         c.Log.Level,
		"hasDatabaseUrl":   c.DatabaseURL != "",
		"hasRedisUrl":      c.RedisURL != "",
		"optimizer":        c.Optimizer,
		"dbMigrateEnabled": c.DBMigrate,
		"webhookUrls":      len(c.Webhooks.URLs),
		"hasWebhookSecret": c.Webhooks.Secret != "",
	}
}
