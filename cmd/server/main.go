package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ankurclub/clever-video-summarizer/internal"
	"github.com/ankurclub/clever-video-summarizer/internal/engine"
	"github.com/ankurclub/clever-video-summarizer/internal/engine/mock"
	"github.com/ankurclub/clever-video-summarizer/internal/engine/remote"
	"github.com/ankurclub/clever-video-summarizer/internal/handler"
	"github.com/ankurclub/clever-video-summarizer/internal/language"
	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
	"github.com/ankurclub/clever-video-summarizer/internal/middleware"
	"github.com/ankurclub/clever-video-summarizer/internal/ratewindow"
	"github.com/ankurclub/clever-video-summarizer/internal/scheduler"
	"github.com/ankurclub/clever-video-summarizer/internal/service"
	"github.com/ankurclub/clever-video-summarizer/internal/storage"
	"github.com/ankurclub/clever-video-summarizer/internal/store"
	"github.com/ankurclub/clever-video-summarizer/internal/summary"
	"github.com/ankurclub/clever-video-summarizer/internal/translate"
)

// minDetectDistance is lingua's minimum relative distance; low-confidence
// detections fall back to English.
const minDetectDistance = 0.1

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	var healthChecks []handler.HealthCheck

	// ==========================================================================
	// Persistence
	// ==========================================================================

	var (
		usageStore    store.UsageStore
		artifactStore store.ArtifactStore
	)
	if cfg.DatabaseUrl != "" {
		db, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		pg := store.NewPostgresStore(db)
		usageStore, artifactStore = pg, pg
		healthChecks = append(healthChecks, handler.HealthCheck{Name: "database", Check: db.PingContext})
		logger.Info("Database ready")
	} else {
		mem := store.NewMemoryStore()
		usageStore, artifactStore = mem, mem
		logger.Warn("DATABASE_URL not set, usage and history are kept in memory")
	}

	var rateStore ratewindow.Store
	switch cfg.RateStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		rateStore = ratewindow.NewRedisStore(client, cfg.RateKeyPrefix, cfg.Rate.Retention())
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		logger.Info("Rate windows stored in Redis", "prefix", cfg.RateKeyPrefix)
	default:
		rateStore = ratewindow.NewMemoryStore()
	}

	// ==========================================================================
	// Export storage
	// ==========================================================================

	var objects storage.Storage
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		objects, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		objects, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// ==========================================================================
	// Processing engine
	// ==========================================================================

	var eng engine.Engine
	if cfg.EngineProvider == "mock" {
		eng = mock.New(logger)
		logger.Warn("Using mock processing engine")
	} else {
		eng, err = remote.New(remote.Config{
			BaseURL:           cfg.EngineBaseURL,
			TranscribeTimeout: cfg.EngineTranscribeTimeout,
			TranslateTimeout:  cfg.EngineTranslateTimeout,
			SummaryTimeout:    cfg.EngineSummaryTimeout,
			SubtitleTimeout:   cfg.EngineTranscribeTimeout,
			CapacityTimeout:   cfg.EngineCapacityTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("engine client initialization failed: %w", err)
		}
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	monitor, err := ratewindow.NewMonitor(rateStore, cfg.Rate, logger)
	if err != nil {
		return fmt.Errorf("rate monitor initialization failed: %w", err)
	}

	classifier := language.NewClassifier(language.NewLinguaDetector(minDetectDistance), logger)
	quotaService := service.NewQuotaService(usageStore, cfg.QuotaTimezone, logger)
	policyService := service.NewPolicyService(quotaService, logger)
	resultService := service.NewResultService(artifactStore, objects, logger)

	processor := service.NewProcessor(service.ProcessorDeps{
		Policy:     policyService,
		Quota:      quotaService,
		Results:    resultService,
		Rate:       monitor,
		Engine:     eng,
		Translator: translate.NewTranslator(eng, translate.DefaultOptions(), logger),
		Summarizer: summary.New(eng, logger),
		Classifier: classifier,
	}, service.ProcessingConfig{
		BlockUnusual:  cfg.RateBlockUnusual,
		CheckCapacity: cfg.CapacityCheckEnabled,
	}, logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.Env != "development"
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	identityMw := middleware.NewIdentityMiddleware(cfg.GatewaySecret, cfg.AnonymousSalt, logger)
	adminAuth := middleware.NewBasicAuthMiddleware("admin", cfg.MetricsUsername, cfg.MetricsPassword, logger)
	metricsAuth := middleware.NewBasicAuthMiddleware("metrics", cfg.MetricsUsername, cfg.MetricsPassword, logger)

	throttle := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow)
	throttleMw := middleware.NewRateLimitMiddleware(throttle, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	api := http.NewServeMux()
	handler.NewCatalogHandler(classifier, logger).RegisterRoutes(api)
	handler.NewUsageHandler(quotaService, policyService, logger).RegisterRoutes(api, adminAuth.Handler)
	handler.NewProcessingHandler(processor, logger).RegisterRoutes(api, middleware.MaxBody(cfg.MaxUploadBytes))
	handler.NewArtifactHandler(resultService, logger).RegisterRoutes(api)

	mux := http.NewServeMux()
	handler.NewHealthHandler(logger, healthChecks...).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))
	mux.Handle("/api/", middleware.Stack(identityMw.Handler, loggingMw.Handler, throttleMw.Limit)(api))

	// Exports written to local storage are served from here
	if local, ok := objects.(*storage.LocalStorage); ok {
		files := http.FileServer(http.Dir(local.BasePath()))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	root := middleware.Stack(metrics.Middleware, securityMw.Handler)(mux)

	// ==========================================================================
	// Scheduler
	// ==========================================================================

	sched := scheduler.New(scheduler.NewJobs(monitor, throttle, logger), logger, scheduler.Config{
		RateSweepSchedule:     cfg.RateSweepSchedule,
		ThrottleSweepSchedule: cfg.ThrottleSweepSchedule,
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("scheduler initialization failed: %w", err)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "engine", cfg.EngineProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	// Uploads can take minutes; give in-flight requests time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	<-sched.Stop().Done()

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
