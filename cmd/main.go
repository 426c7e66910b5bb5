package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadscore/internal/adapters/clickhouse"
	"leadscore/internal/adapters/config"
	"leadscore/internal/adapters/errors/noop"
	"leadscore/internal/adapters/errors/sentry"
	"leadscore/internal/adapters/postgres"
	"leadscore/internal/domain/batch"
	"leadscore/internal/domain/lead"
	"leadscore/internal/export"
	"leadscore/internal/metrics"
	"leadscore/internal/ml/scoring"
	"leadscore/internal/normalize"
	"leadscore/internal/pipeline"
	chrepo "leadscore/internal/repository/clickhouse"
	pgrepo "leadscore/internal/repository/postgres"
	scoringsvc "leadscore/internal/services/scoring"
	"leadscore/internal/workers"
	"leadscore/internal/workers/inbox"
	"leadscore/pkg/errors"
	"leadscore/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Load artifacts and normalization tables
	normCfg, err := normalize.Load(cfg.Pipeline.Path)
	if err != nil {
		log.Fatalf("Failed to load normalization config: %v", err)
	}
	log.Infow("Normalization config loaded", "version", normCfg.Version)

	manifest, err := pipeline.LoadEncoderManifest(cfg.Artifacts.EncoderPath)
	if err != nil {
		log.Fatalf("Failed to load encoder manifest: %v", err)
	}

	scorer, err := scoring.NewScorer(cfg.Artifacts.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load enrollment model: %v", err)
	}
	defer scorer.Close()

	proc := pipeline.NewPipeline(
		pipeline.NewDetector(normCfg),
		pipeline.NewNormalizer(normCfg),
		pipeline.NewResolutionClassifier(normCfg),
		pipeline.NewFeatureEngine(normCfg),
		pipeline.NewCategoricalEncoder(manifest, log),
		scorer,
	)

	writer, err := export.NewWriter(cfg.Batch.OutputDir)
	if err != nil {
		log.Fatalf("Failed to prepare output dir: %v", err)
	}

	// Optional audit sinks
	batchRepo, scoreRepo, closeSinks := initSinks(cfg, log)
	defer closeSinks()

	svc := scoringsvc.NewService(proc, writer, batchRepo, scoreRepo, errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot mode: score a single file and exit
	if cfg.Batch.InputFile != "" {
		summary, err := svc.ScoreFile(ctx, cfg.Batch.InputFile)
		if err != nil {
			log.Fatalf("Failed to score %s: %v", cfg.Batch.InputFile, err)
		}
		log.Infow("Batch complete",
			"batch_id", summary.ID,
			"institution", summary.Institution.String(),
			"records_scored", summary.RecordsScored,
			"mean_score", summary.MeanScore,
		)
		return
	}

	// Serve mode: watch the inbox and expose metrics
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(inbox.NewScanner(
		svc,
		cfg.Batch.InboxDir,
		cfg.Workers.InboxScanInterval,
		cfg.Workers.InboxScanEnabled,
	))

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	startMetricsServer(cfg, log)

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, errorTracker, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initSinks connects the optional audit sinks. Either may be disabled by
// leaving its host unset; a connection failure downgrades the sink to
// disabled rather than aborting startup.
func initSinks(cfg *config.Config, log *logger.Logger) (batch.Repository, lead.ScoreRepository, func()) {
	var (
		batchRepo batch.Repository
		scoreRepo lead.ScoreRepository
		closers   []func()
	)

	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.NewClient(cfg.Postgres)
		if err != nil {
			log.Warnf("Postgres sink unavailable: %v", err)
		} else {
			batchRepo = pgrepo.NewBatchRepository(pgClient.DB())
			closers = append(closers, func() { _ = pgClient.Close() })
			log.Info("Postgres batch audit sink connected")
		}
	}

	if cfg.ClickHouse.Enabled() {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Warnf("ClickHouse sink unavailable: %v", err)
		} else {
			scoreRepo = chrepo.NewScoreRepository(chClient.Conn())
			closers = append(closers, func() { _ = chClient.Close() })
			log.Info("ClickHouse score history sink connected")
		}
	}

	return batchRepo, scoreRepo, func() {
		for _, c := range closers {
			c()
		}
	}
}

// startMetricsServer exposes Prometheus metrics when enabled
func startMetricsServer(cfg *config.Config, log *logger.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Metrics server listening on %s", cfg.Metrics.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	// Flush error tracker
	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
