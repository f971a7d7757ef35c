package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/ai"
	"github.com/docai-tools/invoice-reconciler/internal/cache"
	"github.com/docai-tools/invoice-reconciler/internal/config"
	httpiface "github.com/docai-tools/invoice-reconciler/internal/interfaces/http"
	"github.com/docai-tools/invoice-reconciler/internal/report"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
	"github.com/docai-tools/invoice-reconciler/internal/service"
	"github.com/docai-tools/invoice-reconciler/internal/stage"
	"github.com/docai-tools/invoice-reconciler/pkg/database"
	"github.com/docai-tools/invoice-reconciler/pkg/utils"
)

func main() {
	// Optional .env for local development
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice reconciliation service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	bronzeRepo := repository.NewBronzeRepository(db.DB, logger)
	goldRepo := repository.NewGoldRepository(db.DB, logger)
	reconcileRepo := repository.NewReconcileRepository(db.DB, logger)
	metricsRepo := repository.NewMetricsRepository(db.DB, logger)

	// Bronze snapshot cache
	var snapshots cache.SnapshotCache = cache.NoopCache{}
	if cfg.Cache.Enabled {
		redisCache := cache.NewRedisSnapshotCache(cfg.Cache.Addr, cfg.Cache.DB, cfg.Cache.TTL, logger)
		defer redisCache.Close()
		snapshots = redisCache
		logger.Info("Bronze snapshot cache enabled",
			zap.String("addr", cfg.Cache.Addr),
			zap.Duration("ttl", cfg.Cache.TTL))
	}

	// Services
	bronzeAccessor := service.NewBronzeAccessor(bronzeRepo, snapshots, logger)
	reviewService := service.NewReviewService(db, bronzeAccessor, goldRepo, reconcileRepo,
		cfg.Review.AutomationIdentity, logger)
	metricsService := service.NewMetricsService(metricsRepo, cfg.Review.AutomationIdentity, logger)

	// AI insights
	completionClient := ai.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model,
		cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens)
	insighter := ai.NewInsighter(completionClient, logger)
	insightService := service.NewInsightService(insighter, metricsRepo, metricsService, logger)

	// Document stage
	documentStage, err := stage.NewDocumentStage(cfg.Stage.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document stage", zap.Error(err))
	}
	documentStage.OnUpload(func(ctx context.Context, fileName string) {
		// Extraction runs in the warehouse pipeline; staging only announces
		// the arrival.
		logger.Info("Document ready for extraction", zap.String("file_name", fileName))
	})
	pager := stage.NewPager(logger)

	// Report exporter
	exporter := report.NewExporter(metricsService, goldRepo, logger)

	// HTTP server
	kvLogger := utils.NewKVLogger(logger)
	handlers := httpiface.NewHandlers(
		reviewService,
		metricsService,
		reconcileRepo,
		bronzeAccessor,
		goldRepo,
		insightService,
		documentStage,
		pager,
		exporter,
		kvLogger,
	)
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, kvLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
