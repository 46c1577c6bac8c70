package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "attest/internal/certificate/handler"
	certmetrics "attest/internal/certificate/metrics"
	"attest/internal/certificate/render"
	"attest/internal/certificate/service"
	"attest/internal/certificate/store"
	"attest/internal/ledger/guard"
	ledgerhandler "attest/internal/ledger/handler"
	ledgermetrics "attest/internal/ledger/metrics"
	"attest/internal/ledger/provider"
	"attest/internal/ledger/tracer"
	"attest/internal/ledger/watch"
	"attest/internal/platform/config"
	"attest/internal/platform/database"
	"attest/internal/platform/health"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/logger"
	"attest/internal/platform/metrics"
	"attest/internal/platform/middleware"
	"attest/migrations"
)

// agentWatchInterval is how often the signing agent is re-checked for account
// or network changes.
const agentWatchInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing attest",
		"addr", cfg.Addr,
		"ledger_endpoints", len(cfg.Ledger.Endpoints),
		"signing_agent_configured", cfg.Ledger.SigningAgentURL != "",
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var certStore store.Store
	if pool != nil {
		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Migrate(migrateCtx, pool.DB(), migrations.FS); err != nil {
			cancelMigrate()
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		cancelMigrate()
		certStore = store.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		certStore = store.NewInMemoryStore()
	}

	ledgerMetrics := ledgermetrics.New()
	manager := provider.New(
		provider.Config{
			Endpoints:       cfg.Ledger.Endpoints,
			SigningAgentURL: cfg.Ledger.SigningAgentURL,
			ChainID:         cfg.Ledger.ChainID,
			ContractAddress: cfg.Ledger.ContractAddress,
			ProbeTimeout:    cfg.Ledger.ProbeTimeout,
			ConfirmInterval: cfg.Ledger.ConfirmInterval,
		},
		guard.New(cfg.Ledger.ChainID, guard.SepoliaDescriptor(), guard.WithLogger(log)),
		provider.WithLogger(log),
		provider.WithTracer(tracer.NewOTel()),
		provider.WithMetrics(ledgerMetrics),
	)

	svc := service.New(
		certStore,
		manager,
		service.WithLogger(log),
		service.WithMetrics(certmetrics.New()),
		service.WithRenderer(render.Text{}),
	)

	procMetrics := metrics.New()

	healthHandler := health.New(os.Getenv("ATTEST_ENV"))
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}
	healthHandler.RegisterCheck("ledger", func(context.Context) error {
		if len(cfg.Ledger.Endpoints) == 0 && cfg.Ledger.SigningAgentURL == "" {
			return errors.New("no ledger endpoints or signing agent configured")
		}
		return nil
	})
	healthHandler.RegisterDetail("ledger", func() map[string]string {
		handle, ok := manager.Active()
		if !ok {
			return map[string]string{"connection": "none"}
		}
		detail := map[string]string{
			"connection": string(handle.Mode),
			"endpoint":   handle.Endpoint,
		}
		if handle.Account != "" {
			detail["account"] = handle.Account
		}
		return detail
	})

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(procMetrics))
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.ContentTypeJSON)

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	certhandler.New(svc, log).Register(r)
	ledgerhandler.New(manager, cfg.Ledger.ChainID, log).Register(r)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.Ledger.SigningAgentURL != "" {
		go watch.New(manager, agentWatchInterval, watch.WithLogger(log)).Run(watchCtx)
	}

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if err := pool.Close(); err != nil {
		log.Error("database close failed", "error", err)
	}

	log.Info("server stopped")
}
