// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package config defines Tagarr's configuration model and loading.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables > YAML config file > built-in
// defaults. See koanf.go for the loader.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Sonarr    ServiceConfig   `koanf:"sonarr"`
	Radarr    ServiceConfig   `koanf:"radarr"`
	Client    ClientConfig    `koanf:"client"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	History   HistoryConfig   `koanf:"history"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServiceConfig holds the connection settings for one remote *arr service.
// A service with an empty URL or API key is simply not configured; the
// reconciliation surface returns 503 for it rather than failing startup.
type ServiceConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// Configured reports whether both URL and API key are set.
func (s ServiceConfig) Configured() bool {
	return s.URL != "" && s.APIKey != ""
}

// ClientConfig tunes the remote API client transport.
type ClientConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	RetryAttempts  int           `koanf:"retry_attempts"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`
	RateLimit      float64       `koanf:"rate_limit"`
	RateBurst      int           `koanf:"rate_burst"`
	CircuitBreaker bool          `koanf:"circuit_breaker"`
}

// ReconcileConfig tunes the reconciliation core.
type ReconcileConfig struct {
	// Policy is "additive" (never removes tags) or "authoritative"
	// (removes mapped-but-undetected tags; opt-in).
	Policy string `koanf:"policy"`

	// Concurrency caps simultaneous item reconciliations per pass.
	Concurrency int `koanf:"concurrency"`

	// PassTimeout bounds a whole pass; zero disables the deadline.
	PassTimeout time.Duration `koanf:"pass_timeout"`

	// Mapping overrides the attribute-to-label table. Keys are attribute
	// names (hdr10, hdr10plus, dolby_vision, imax_enhanced,
	// extended_edition); values are tag labels. Empty means defaults.
	Mapping map[string]string `koanf:"mapping"`
}

// SchedulerConfig controls periodic full-library passes.
type SchedulerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// HistoryConfig controls the run-history store.
type HistoryConfig struct {
	// Path is the BadgerDB directory. Empty disables persistence; runs
	// are then only returned inline from the trigger endpoint.
	Path string `koanf:"path"`

	// Retention is how long run summaries are kept.
	Retention time.Duration `koanf:"retention"`
}

// APIConfig tunes the HTTP API surface.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    9898,
			Timeout: 30 * time.Second,
		},
		Sonarr: ServiceConfig{},
		Radarr: ServiceConfig{},
		Client: ClientConfig{
			Timeout:        10 * time.Second,
			RetryAttempts:  3,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  5 * time.Second,
			RateLimit:      5,
			RateBurst:      10,
			CircuitBreaker: true,
		},
		Reconcile: ReconcileConfig{
			Policy:      "additive",
			Concurrency: 4,
			PassTimeout: 0,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: 6 * time.Hour,
		},
		History: HistoryConfig{
			Path:      "/data/tagarr/history",
			Retention: 30 * 24 * time.Hour,
		},
		API: APIConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors that should fail startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	for name, svc := range map[string]ServiceConfig{"sonarr": c.Sonarr, "radarr": c.Radarr} {
		if svc.URL == "" {
			continue
		}
		u, err := url.Parse(svc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s.url %q is not a valid URL", name, svc.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s.url must use http or https, got %q", name, u.Scheme)
		}
	}
	switch c.Reconcile.Policy {
	case "additive", "authoritative":
	default:
		return fmt.Errorf("reconcile.policy must be additive or authoritative, got %q", c.Reconcile.Policy)
	}
	if c.Reconcile.Concurrency < 1 {
		return fmt.Errorf("reconcile.concurrency must be at least 1, got %d", c.Reconcile.Concurrency)
	}
	if c.Client.RetryAttempts < 1 {
		return fmt.Errorf("client.retry_attempts must be at least 1, got %d", c.Client.RetryAttempts)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	return nil
}
