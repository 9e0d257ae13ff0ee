package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blendex/internal/metrics"
	chiTransport "github.com/kailas-cloud/blendex/internal/transport/chi"
	"github.com/kailas-cloud/blendex/internal/usecase/blend"
	healthuc "github.com/kailas-cloud/blendex/internal/usecase/health"
	"github.com/kailas-cloud/blendex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the blendex HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, env, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting blendex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("primary_driver", cfg.Backends.Primary.Driver),
		zap.String("secondary_driver", cfg.Backends.Secondary.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterBackendMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := newWiring(cfg, logger)
	defer w.Close()

	primary, err := w.backend(ctx, rolePrimary, cfg.Backends.Primary)
	if err != nil {
		return fmt.Errorf("primary backend: %w", err)
	}
	secondary, err := w.backend(ctx, roleSecondary, cfg.Backends.Secondary)
	if err != nil {
		return fmt.Errorf("secondary backend: %w", err)
	}

	table, err := facetTable(cfg.Facets)
	if err != nil {
		return err
	}
	engine := blend.New(primary.search, secondary.search, blend.Config{
		BlendLimit:    cfg.Blending.BlendLimit,
		BlockSize:     cfg.Blending.BlockSize,
		BoostPosition: cfg.Blending.BoostPosition,
		BoostCount:    cfg.Blending.BoostCount,
	},
		blend.WithFacetMapping(table),
		blend.WithTranslator(blend.NewMappingTranslator(table, cfg.Translation.Fields)),
		blend.WithRecorder(metrics.WindowRecorder{}),
	)
	logger.Info("Blending engine ready",
		zap.Int("blend_limit", blend.ClampBlendLimit(cfg.Blending.BlendLimit)),
		zap.Int("facet_rules", len(table)),
	)

	healthSvc := healthuc.New(primary.pinger, secondary.pinger, w.embeddingChecker())

	server := chiTransport.NewServer(engine, healthSvc, chiTransport.Limits{
		DefaultPageSize: cfg.HTTP.DefaultPageSize,
		MaxPageSize:     cfg.HTTP.MaxPageSize,
		MaxBatchSize:    cfg.HTTP.MaxBatchSize,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
