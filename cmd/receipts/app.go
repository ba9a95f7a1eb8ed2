package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/the-receipts-must-flow/internal/assign"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/extraction"
	"github.com/Veraticus/the-receipts-must-flow/internal/history"
	"github.com/Veraticus/the-receipts-must-flow/internal/metrics"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/review"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
	"github.com/Veraticus/the-receipts-must-flow/internal/suggest"
)

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// app wires storage and the pipeline packages for one command invocation.
type app struct {
	cfg        *config.Config
	store      *storage.SQLiteStorage
	registry   *prometheus.Registry
	recorder   *metrics.Recorder
	server     *http.Server
	categories []model.Category
}

// openApp opens and migrates the database, loads the category snapshot and,
// when metrics.listen is set, serves /metrics until close.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	a := &app{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		recorder:   metrics.NewRecorder(registry),
		categories: categories,
	}
	a.serveMetrics()
	return a, nil
}

func (a *app) serveMetrics() {
	if a.cfg.Metrics.Listen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.server = &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics endpoint stopped", "listen", a.cfg.Metrics.Listen, "error", err)
		}
	}()
	slog.Info("Serving metrics", "listen", a.cfg.Metrics.Listen)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func (a *app) userID() string {
	return a.cfg.User.ID
}

func (a *app) aggregator() *suggest.Aggregator {
	return suggest.NewAggregator(
		history.NewEngine(a.store, a.cfg.Policy),
		a.store,
		a.categories,
		a.recorder,
		suggest.Config{Thresholds: a.cfg.Policy, Workers: a.cfg.Suggest.Workers},
	)
}

func (a *app) assigner() *assign.Service {
	return assign.NewService(a.store,
		assign.WithMetrics(a.recorder),
		assign.WithThresholds(a.cfg.Policy),
		assign.WithBulkConfig(a.cfg.Bulk),
	)
}

func (a *app) reviewer() *review.Engine {
	return review.NewEngine(a.store, a.cfg.Policy, a.recorder)
}

func (a *app) importer() *extraction.Importer {
	return extraction.NewImporter(a.store, a.aggregator(), a.assigner(), a.categories, a.cfg.Policy, a.recorder)
}

func (a *app) enabledRules(ctx context.Context) ([]model.CategoryRule, error) {
	rules, err := a.store.ListEnabledRules(ctx, a.userID())
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}

// category resolves a slug or name from the command line.
func (a *app) category(ref string) (model.Category, error) {
	category, ok := extraction.ResolveCategory(a.categories, ref)
	if !ok {
		return model.Category{}, fmt.Errorf("unknown category %q (see 'receipts categories')", ref)
	}
	return category, nil
}
