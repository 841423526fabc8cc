package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoralesc/faq-assistant/internal/bootstrap"
	"github.com/amoralesc/faq-assistant/internal/config"
	"github.com/amoralesc/faq-assistant/internal/core/domain"
	"github.com/amoralesc/faq-assistant/internal/observability/logging"
	"github.com/amoralesc/faq-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeQueryEvents(ctx, func(handlerCtx context.Context, event domain.AnalyticsEvent) error {
		start := time.Now()
		workerMetrics.StartEvent()
		workerMetrics.ObserveQueueLag("worker", start.Sub(event.CreatedAt))

		insertCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		insertErr := app.AnalyticsRepo.InsertEvent(insertCtx, event)
		workerMetrics.FinishEvent("worker", time.Since(start), insertErr)
		return insertErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
