package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/config"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/enrichment"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/healthcheck"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/httpapi"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/jetstream"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/observer"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/usecase"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.SetMetricsEnabled(cfg.Metrics.Enabled)

	logger.Log.Info("Starting Outreach Call Service",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.String("nats_url", cfg.NATS.URL),
	)

	repo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Enrichment dispatch is optional: without a broker the service still
	// serves calls, it just skips the log-created events.
	var jsClient *jetstream.Client
	var dispatcher enrichment.IDispatcher
	if cfg.NATS.URL != "" {
		jsClient, err = jetstream.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}

		setupCtx, setupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := enrichment.SetupStream(setupCtx, jsClient, cfg.NATS.EnrichmentStream, cfg.NATS.EnrichmentSubject, cfg.NATS.MaxAgeDays); err != nil {
			setupCancel()
			logger.Log.Fatal("Failed to set up enrichment stream", zap.Error(err))
		}
		setupCancel()

		d, err := enrichment.NewDispatcher(cfg.WorkerPools.Enrichment, jsClient, cfg.NATS.EnrichmentSubject, logger.Log)
		if err != nil {
			logger.Log.Fatal("Failed to initialize enrichment dispatch pool", zap.Error(err))
		}
		dispatcher = d
	} else {
		logger.Log.Warn("NATS URL not configured; enrichment dispatch disabled")
	}

	service := usecase.NewCallService(
		repo,
		emptyDirectory{logger: logger.Log},
		trustingGroupCatalog{},
		rolePolicy{},
		dispatcher,
		logger.Log,
	)

	// Health/metrics side server
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Health.Port), logger.Log)
	healthServer.RegisterReadinessCheck("postgres", func(ctx context.Context) error {
		return repo.Ping(ctx)
	})
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
	}
	healthServer.Start()

	// API server
	router := httpapi.NewRouter(service)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		logger.Log.Info("Starting API server", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("API server error", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(3)

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping API server")
		start := time.Now()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] API server stopped", zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped", zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()

		if dispatcher != nil {
			logger.Log.Info("[shutdown] Stopping enrichment dispatch pool")
			start := time.Now()
			dispatcher.Stop()
			logger.Log.Info("[shutdown] Enrichment dispatch pool stopped", zap.Duration("duration", time.Since(start)))
		}

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := repo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed", zap.Duration("duration", time.Since(pgStart)))
		}

		if jsClient != nil {
			logger.Log.Info("[shutdown] Closing JetStream connection")
			jsStart := time.Now()
			jsClient.Close()
			logger.Log.Info("[shutdown] JetStream connection closed", zap.Duration("duration", time.Since(jsStart)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Outreach Call Service shutdown complete")
}

func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
