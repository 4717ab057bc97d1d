package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/touristsafety/internal/bootstrap"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/monitoring"
	"github.com/turtacn/touristsafety/internal/infrastructure/ratelimit"
	grpcserver "github.com/turtacn/touristsafety/internal/interfaces/grpc"
	"github.com/turtacn/touristsafety/internal/interfaces/http/handlers"
	"github.com/turtacn/touristsafety/internal/interfaces/http/middleware"
	"github.com/turtacn/touristsafety/internal/interfaces/http/router"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:           "touristsafety-server",
		Short:         "Tourist safety scoring API and trip registrar",
		Version:       constants.ServiceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to the config file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(ctx context.Context, configFile string) error {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		return err
	}

	loader := config.NewLoader(configFile, startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	loader.Watch(func(next *config.Config) {
		if err := appLogger.(logger.LevelSetter).SetLevel(next.Log.Level); err != nil {
			appLogger.Warn(ctx, "ignoring invalid log level", logger.Fields{"level": next.Log.Level})
		}
	})

	tracing, err := monitoring.NewTracingManager(&cfg.Observability, appLogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	comps, err := bootstrap.Build(ctx, cfg, appLogger, bootstrap.Options{Registerer: reg})
	if err != nil {
		return err
	}
	defer comps.Close()

	if cfg.Model.TrainOnStartup && !comps.ModelAvailable() {
		appLogger.Info(ctx, "no model artifacts found, training on synthetic data", logger.Fields{"samples": cfg.Model.SyntheticSamples})
		trained, err := comps.Training.TrainSynthetic(ctx, cfg.Model.SyntheticSamples, cfg.Model.Seed)
		if err != nil {
			return fmt.Errorf("startup training: %w", err)
		}
		appLogger.Info(ctx, "startup training finished", logger.Fields{"accuracy": trained.Accuracy})
	}

	deps := map[string]handlers.Pinger{"database": comps.DB}
	if comps.Redis != nil {
		deps["redis"] = comps.Redis
	}
	var recorder middleware.HTTPRecorder
	if cfg.Observability.MetricsEnabled {
		recorder = comps.Metrics
	}
	httpRouter := router.NewRouter(cfg.Server, router.Deps{
		Health:   handlers.NewHealthHandler(deps, comps.ModelAvailable, appLogger),
		Safety:   handlers.NewSafetyHandler(comps.Safety),
		Model:    handlers.NewModelHandler(comps.Training, cfg.Model.Seed),
		Trips:    handlers.NewTripHandler(comps.Trips),
		Tokens:   comps.Tokens,
		Limiter:  comps.Limiter,
		Recorder: recorder,
		Tracer:   tracing.Tracer(),
		Gatherer: reg,
		Logger:   appLogger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpRouter.Start)

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcSrv = grpcserver.NewServer(comps.ModelAvailable, grpcserver.DefaultProbeInterval, appLogger)
		g.Go(func() error { return grpcSrv.Serve(gctx, lis) })
	}

	g.Go(func() error {
		cleanupLoop(gctx, comps, cfg.Trips.CleanupInterval, appLogger)
		return nil
	})

	if sweeper, ok := comps.Limiter.(ratelimit.IdleSweeper); ok {
		g.Go(func() error {
			ratelimit.RunJanitor(gctx, sweeper, cfg.RateLimit.CleanupInterval, cfg.RateLimit.IdleTimeout, appLogger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.Stop()
		}
		return httpRouter.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appLogger.Info(context.Background(), "server stopped")
	return nil
}

// cleanupLoop removes expired trips every interval until ctx is done.
func cleanupLoop(ctx context.Context, comps *bootstrap.Components, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := comps.Trips.CleanupExpired(ctx)
			if err != nil {
				log.Error(ctx, "trip cleanup failed", err)
				continue
			}
			if len(res.Removed) > 0 || len(res.Failed) > 0 {
				log.Info(ctx, "expired trips cleaned up", logger.Fields{"removed": len(res.Removed), "failed": len(res.Failed)})
			}
		}
	}
}
