package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zest-protocol/dashboard"
	"github.com/zest-protocol/dashboard/api"
	"github.com/zest-protocol/dashboard/config"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("dashboardd: load config: %v", err)
	}

	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("dashboardd: init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		recorder       metrics.Recorder = metrics.NoopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.Metrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := metrics.NewPrometheusRecorder(registry)
		if err != nil {
			log.Fatalf("dashboardd: init metrics: %v", err)
		}
		recorder = prom
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	d, err := dashboard.New(ctx, &cfg, dashboard.WithLogger(zl), dashboard.WithMetrics(recorder))
	if err != nil {
		log.Fatalf("dashboardd: %v", err)
	}
	defer d.Close()
	d.Start(ctx)

	router := api.NewRouter(api.Services{
		Payments:  d.Payments,
		Naming:    d.Naming,
		Ledger:    d.Ledger,
		CDP:       d.CDP,
		Stability: d.Stability,
		Swap:      d.Swap,
		Prices:    d.Prices,
		KYC:       d.KYC,
		Jobs:      d.Jobs(),
		Ping:      d.Ping,
	}, api.Config{
		Logger:         zl,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("dashboard listening", map[string]any{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			zl.Error("server failed", map[string]any{"error": err})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown failed", map[string]any{"error": err})
	}
	zl.Info("dashboard stopped", nil)
}
