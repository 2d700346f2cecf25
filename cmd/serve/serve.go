// Package serve implements the HTTP API server command.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roomlens/roomlens-go/internal/api"
	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/hotspot"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/observability/metrics"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// Command returns the serve command: load the model and expose the hotspot
// API over HTTP until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the hotspot detection HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), settings)
		},
	}
}

func runServer(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("serve")

	registry := prometheus.NewRegistry()
	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return fmt.Errorf("metrics setup: %w", err)
	}

	pipeline := detector.New(settings.Detector,
		detector.WithMetrics(pipelineMetrics),
		detector.WithProgress(func(percent int) {
			log.Info("model load progress", "percent", percent)
		}))
	defer pipeline.Close()

	if err := pipeline.Load(ctx); err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}

	ttl := time.Duration(settings.Detector.CacheTTLMin) * time.Minute
	analyzer := detector.NewAnalyzer(pipeline, nil, ttl, pipelineMetrics)
	resolver := hotspot.NewResolver(settings.Hotspot, hotspot.WithMetrics(pipelineMetrics))

	var taxonomyClient *taxonomy.Client
	if settings.Taxonomy.Endpoint != "" {
		taxonomyClient = taxonomy.NewClient(settings.Taxonomy)
	}

	controller := api.New(settings, analyzer, resolver, taxonomyClient, registry)

	errCh := make(chan error, 1)
	go func() {
		if err := controller.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		log.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}
