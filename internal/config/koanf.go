// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tagarr/config.yaml",
	"/etc/tagarr/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// SONARR_URL -> sonarr.url, RECONCILE_POLICY -> reconcile.policy, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so random environment
// variables never pollute the config.
//
// Examples:
//   - SONARR_URL -> sonarr.url
//   - SONARR_API_KEY -> sonarr.api_key
//   - RECONCILE_POLICY -> reconcile.policy
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Remote service mappings (same variable names the original
		// deployment docs use)
		"sonarr_url":     "sonarr.url",
		"sonarr_api_key": "sonarr.api_key",
		"radarr_url":     "radarr.url",
		"radarr_api_key": "radarr.api_key",

		// Client transport mappings
		"client_timeout":          "client.timeout",
		"client_retry_attempts":   "client.retry_attempts",
		"client_retry_base_delay": "client.retry_base_delay",
		"client_retry_max_delay":  "client.retry_max_delay",
		"client_rate_limit":       "client.rate_limit",
		"client_rate_burst":       "client.rate_burst",
		"client_circuit_breaker":  "client.circuit_breaker",

		// Reconciliation mappings
		"reconcile_policy":       "reconcile.policy",
		"reconcile_concurrency":  "reconcile.concurrency",
		"reconcile_pass_timeout": "reconcile.pass_timeout",

		// Scheduler mappings
		"scheduler_enabled":  "scheduler.enabled",
		"scheduler_interval": "scheduler.interval",

		// History mappings
		"history_path":      "history.path",
		"history_retention": "history.retention",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API mappings
		"rate_limit_requests": "api.rate_limit_requests",
		"rate_limit_window":   "api.rate_limit_window",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
