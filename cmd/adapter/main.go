package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/adapterinfo"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/config"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/engine"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/intentapi"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/server"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting adapter",
		"adapter", adapterinfo.Info.Slug,
		"version", adapterinfo.Version(),
		"listen_addr", cfg.ListenAddr,
		"asset_dir", cfg.AssetDir,
		"context_path", cfg.ContextPath,
	)

	meterProvider, shutdownMetrics, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
		ServiceName:    adapterinfo.Info.Slug,
		ServiceVersion: adapterinfo.Version(),
	})
	if err != nil {
		logger.Error("failed to initialise metrics provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("failed to shut down metrics provider", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(meterProvider)
	if err != nil {
		logger.Error("failed to create metric instruments", "error", err)
		os.Exit(1)
	}
	recorder := telemetry.NewRecorder(logger, metrics)

	if cfg.MetricsAddr != "" {
		metricsServer := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	factory, engineErr := engine.New(cfg, logger)
	if engineErr != nil {
		logger.Warn("engine initialised with warnings", "error", engineErr)
	}
	if factory.Native() {
		// Open one session up front so bad credentials or assets surface at
		// startup instead of on the first stream.
		probe, err := factory.NewSession(ctx)
		if err != nil {
			logger.Error("failed to open engine session", "error", err)
			os.Exit(1)
		}
		logger.Info("engine session verified",
			"version", probe.Version(),
			"frame_length", probe.FrameLength(),
			"sample_rate", probe.SampleRate(),
		)
		_ = probe.Close()
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to bind listener", "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthgrpc.RegisterHealthServer(grpcServer, healthServer)

	serviceName := intentapi.IntentService_ServiceDesc.ServiceName
	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(serviceName, healthgrpc.HealthCheckResponse_NOT_SERVING)

	intentapi.RegisterIntentServiceServer(grpcServer, server.New(logger, factory, recorder))

	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthgrpc.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, stopping gRPC server")
		healthServer.SetServingStatus(serviceName, healthgrpc.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop timed out, forcing stop")
			grpcServer.Stop()
		}
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("gRPC server terminated with error", "error", err)
		os.Exit(1)
	}

	if snapshot := recorder.Snapshot(); snapshot.TotalStreams > 0 {
		logger.Info("telemetry totals",
			"total_streams", snapshot.TotalStreams,
			"total_frames", snapshot.TotalFrames,
			"total_samples", snapshot.TotalSamples,
			"total_inferences", snapshot.TotalInferences,
			"total_understood", snapshot.TotalUnderstood,
			"total_resets", snapshot.TotalResets,
			"total_errors", snapshot.TotalErrors,
		)
	}

	logger.Info("adapter stopped")
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
