package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwihelp/visa-assistant/internal/bootstrap"
	"github.com/kiwihelp/visa-assistant/internal/config"
	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/observability/logging"
	"github.com/kiwihelp/visa-assistant/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", workerMetrics.Handler())
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSFeedbackSubject)
	err = app.Feedback.SubscribeFeedback(ctx, func(handlerCtx context.Context, fb domain.Feedback) error {
		persistCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		workerMetrics.StartFeedback()
		workerMetrics.ObserveQueueLag("worker", time.Since(fb.CreatedAt))
		start := time.Now()
		saveErr := app.Dialogs.SaveFeedback(persistCtx, fb)
		workerMetrics.FinishFeedback("worker", time.Since(start), saveErr)
		return saveErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
