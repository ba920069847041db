// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

// Package main is the entry point for the Tagarr server.
//
// Tagarr keeps Sonarr and Radarr tags converged with detected content
// attributes (HDR10, HDR10+, Dolby Vision, IMAX Enhanced, extended
// editions). It reads each item fresh from the remote, computes the
// desired tag set under the configured policy, and writes only when the
// remote state diverges.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Remote clients: Sonarr/Radarr API clients with retry, rate
//     limiting, and optional circuit breakers
//  3. Reconciliation engines and orchestrators per configured service
//  4. Run history store (BadgerDB)
//  5. Scheduler: periodic full-library passes (optional)
//  6. HTTP server: REST API plus Prometheus metrics
//
// Components 5 and 6 run under a suture supervision tree.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SONARR_URL, SONARR_API_KEY, RADARR_URL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// At least one of Sonarr or Radarr should be configured; with neither,
// the server starts but reports not-ready.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests and passes to
// finish (10s timeout), then closes the history store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tagarr/internal/api"
	"github.com/tomtom215/tagarr/internal/arr"
	"github.com/tomtom215/tagarr/internal/config"
	"github.com/tomtom215/tagarr/internal/detect"
	"github.com/tomtom215/tagarr/internal/logging"
	"github.com/tomtom215/tagarr/internal/models"
	"github.com/tomtom215/tagarr/internal/reconcile"
	"github.com/tomtom215/tagarr/internal/scheduler"
	"github.com/tomtom215/tagarr/internal/store"
	"github.com/tomtom215/tagarr/internal/supervisor"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Bool("sonarr", cfg.Sonarr.Configured()).
		Bool("radarr", cfg.Radarr.Configured()).
		Str("policy", cfg.Reconcile.Policy).
		Msg("Starting Tagarr")

	mapping, err := detect.MappingFromConfig(cfg.Reconcile.Mapping)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid attribute mapping")
	}

	policy, err := reconcile.ParsePolicy(cfg.Reconcile.Policy)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid reconcile policy")
	}

	handles, err := buildServiceHandles(cfg, mapping, policy)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build service clients")
	}
	if len(handles) == 0 {
		logging.Warn().Msg("Neither Sonarr nor Radarr is configured; nothing to reconcile")
	}

	history, err := openHistory(cfg.History)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open run history store")
	}
	if history != nil {
		defer func() {
			if err := history.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing run history store")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	slogLogger := logging.NewSlogLogger()
	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())

	if cfg.Scheduler.Enabled && len(handles) > 0 {
		runners := make([]scheduler.PassRunner, 0, len(handles))
		for _, h := range handles {
			runners = append(runners, &serviceRunner{name: h.Name, orch: h.Orchestrator})
		}
		tree.AddReconcileService(scheduler.New(runners, history, cfg.Scheduler.Interval))
	}

	handler := api.NewHandler(handles, history, version)
	router := api.NewRouter(handler, cfg.API.RateLimitRequests, cfg.API.RateLimitWindow)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
	}
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	logging.Info().
		Str("addr", server.Addr).
		Msg("HTTP server configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Tagarr stopped gracefully")
}

// openHistory opens the run history store. An empty path disables
// persistence: the API and scheduler both accept a nil store and the
// reconcile endpoints still return summaries inline.
func openHistory(cfg config.HistoryConfig) (store.HistoryStore, error) {
	if cfg.Path == "" {
		logging.Info().Msg("Run history persistence disabled")
		return nil, nil
	}
	s, err := store.Open(store.Options{
		Path:      cfg.Path,
		Retention: cfg.Retention,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// buildServiceHandles constructs a client, engine, and orchestrator for
// each configured remote service.
func buildServiceHandles(cfg *config.Config, mapping detect.Mapping, policy reconcile.Policy) ([]*api.ServiceHandle, error) {
	type serviceSpec struct {
		name string
		svc  config.ServiceConfig
		ctor func(arr.Options) (arr.Client, error)
	}

	specs := []serviceSpec{
		{arr.ServiceSonarr, cfg.Sonarr, func(o arr.Options) (arr.Client, error) { return arr.NewSonarrClient(o) }},
		{arr.ServiceRadarr, cfg.Radarr, func(o arr.Options) (arr.Client, error) { return arr.NewRadarrClient(o) }},
	}

	detector := detect.NewSignalDetector()
	var handles []*api.ServiceHandle

	for _, spec := range specs {
		if !spec.svc.Configured() {
			continue
		}

		client, err := spec.ctor(arr.Options{
			URL:            spec.svc.URL,
			APIKey:         spec.svc.APIKey,
			Timeout:        cfg.Client.Timeout,
			RetryAttempts:  cfg.Client.RetryAttempts,
			RetryBaseDelay: cfg.Client.RetryBaseDelay,
			RetryMaxDelay:  cfg.Client.RetryMaxDelay,
			RateLimit:      cfg.Client.RateLimit,
			RateBurst:      cfg.Client.RateBurst,
		})
		if err != nil {
			return nil, fmt.Errorf("%s client: %w", spec.name, err)
		}
		if cfg.Client.CircuitBreaker {
			client = arr.NewCircuitBreakerClient(client)
		}

		engine := reconcile.NewEngine(client, detector, mapping, policy)
		orch := reconcile.NewOrchestrator(engine, reconcile.OrchestratorConfig{
			Concurrency: cfg.Reconcile.Concurrency,
			PassTimeout: cfg.Reconcile.PassTimeout,
		})

		handles = append(handles, &api.ServiceHandle{
			Name:         spec.name,
			URL:          spec.svc.URL,
			Client:       client,
			Orchestrator: orch,
		})

		logging.Info().
			Str("service", spec.name).
			Str("url", spec.svc.URL).
			Bool("circuit_breaker", cfg.Client.CircuitBreaker).
			Msg("Remote service configured")
	}

	return handles, nil
}

// serviceRunner adapts an orchestrator to the scheduler's PassRunner.
type serviceRunner struct {
	name string
	orch *reconcile.Orchestrator
}

func (r *serviceRunner) Service() string { return r.name }

func (r *serviceRunner) RunPassAll(ctx context.Context) (*models.RunSummary, error) {
	return r.orch.RunPassAll(ctx)
}
