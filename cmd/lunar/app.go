package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lunarmonkeys/internal/config"
	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/mission"
)

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and applies --backend-url.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app bundles the wired client and mission state.
type app struct {
	cfg      *config.Config
	client   *manifest.Client
	state    *mission.State
	registry *prometheus.Registry
}

// newApp wires a Manifest client with its metrics and token store into a
// fresh mission state.
func newApp(cfg *config.Config, tokens manifest.TokenStore) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []manifest.Option{
		manifest.WithTokenStore(tokens),
		manifest.WithMetrics(manifest.NewMetrics(reg)),
		manifest.WithUserAgent("lunarmonkeys-cli"),
	}
	if d := cfg.GetRequestTimeout(); d > 0 {
		opts = append(opts, manifest.WithTimeout(d))
	}

	client, err := manifest.New(cfg.BackendURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	cols := mission.Collections{
		AuthEntity:  cfg.Backend.AuthEntity,
		Primates:    cfg.Backend.PrimateCollection,
		Discoveries: cfg.Backend.DiscoveryCollection,
	}
	return &app{
		cfg:      cfg,
		client:   client,
		state:    mission.NewState(mission.NewManifestRemote(client, cols)),
		registry: reg,
	}, nil
}

// metricsRouter exposes the app registry.
func (a *app) metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return r
}

// serveMetrics runs the /metrics endpoint until ctx is done. It is a no-op
// when metrics.listen_addr is empty.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.ListenAddr
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logging.Boot("Metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.BootWarn("Metrics server stopped: %v", err)
		}
	}()
}
