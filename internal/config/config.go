// Package config assembles runtime settings from two layers: process
// environment for deployment concerns (addresses, paths, tokens) and an
// optional YAML policy file for feed behavior (lookback, correlation window,
// source priority). Bad policy is fatal at startup; a feed built from a
// half-read config is worse than no feed.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig reports a configuration that must stop the run.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	SecretsDir  string        `env:"SECRETS_DIR" envDefault:"secrets"`
	DataDir     string        `env:"DATA_DIR" envDefault:"data"`
	OutputDir   string        `env:"OUTPUT_DIR" envDefault:"data"`
	PolicyFile  string        `env:"FEED_POLICY_FILE" envDefault:"config/feed.yml"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	APIRate     float64       `env:"API_RATE_LIMIT" envDefault:"4"`

	// RefreshCron schedules background feed rebuilds; empty disables them.
	RefreshCron string `env:"FEED_REFRESH_SCHEDULE"`

	SlackToken   string `env:"SLACK_TOKEN"`
	SlackChannel string `env:"SLACK_CHANNEL" envDefault:"#marketing-ops"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: HTTP_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if cfg.APIRate <= 0 {
		return Config{}, fmt.Errorf("%w: API_RATE_LIMIT must be positive", ErrInvalidConfig)
	}
	return cfg, nil
}

// SlogLevel maps the configured level string onto slog's levels, defaulting
// to info for anything unrecognized.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Policy is the feed behavior contract: how far back to look, how wide the
// correlation window is, and which sources feed each event category in
// dedup-priority order (earlier wins ties).
type Policy struct {
	LookbackDays    int      `yaml:"lookback_days"`
	WindowDays      int      `yaml:"correlation_window_days"`
	PostSources     []string `yaml:"post_sources"`
	CampaignSources []string `yaml:"campaign_sources"`
}

// DefaultPolicy returns the policy used when no file overrides it.
func DefaultPolicy() Policy {
	return Policy{
		LookbackDays:    365,
		WindowDays:      7,
		PostSources:     []string{"instagram", "tiktok", "pinterest", "manual"},
		CampaignSources: []string{"meta_ads", "google_ads", "manual"},
	}
}

// LoadPolicy reads the YAML policy file at path, filling omitted fields from
// the defaults. A missing file is the default policy; an unreadable or
// invalid one is fatal.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("%w: read policy: %v", ErrInvalidConfig, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("%w: parse policy: %v", ErrInvalidConfig, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects non-positive spans and unknown or duplicated source
// names. The source lists must name only adapters the feed actually has;
// a typo here silently reordering dedup priority would be untraceable.
func (p Policy) Validate() error {
	if p.LookbackDays < 1 {
		return fmt.Errorf("%w: lookback_days must be >= 1, got %d", ErrInvalidConfig, p.LookbackDays)
	}
	if p.WindowDays < 1 {
		return fmt.Errorf("%w: correlation_window_days must be >= 1, got %d", ErrInvalidConfig, p.WindowDays)
	}
	if err := validSources("post_sources", p.PostSources, knownPostSources); err != nil {
		return err
	}
	return validSources("campaign_sources", p.CampaignSources, knownCampaignSources)
}

var (
	knownPostSources     = map[string]struct{}{"instagram": {}, "tiktok": {}, "pinterest": {}, "manual": {}}
	knownCampaignSources = map[string]struct{}{"meta_ads": {}, "google_ads": {}, "manual": {}}
)

func validSources(field string, names []string, known map[string]struct{}) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: %s must name at least one source", ErrInvalidConfig, field)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := known[n]; !ok {
			return fmt.Errorf("%w: %s: unknown source %q", ErrInvalidConfig, field, n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %s: duplicate source %q", ErrInvalidConfig, field, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
