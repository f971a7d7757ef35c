// Command bulk-upload stages a directory of invoice PDFs and seeds their
// review queue rows, so a batch of documents can enter the pipeline without
// going through the HTTP API one file at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/config"
	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
	"github.com/docai-tools/invoice-reconciler/internal/stage"
	"github.com/docai-tools/invoice-reconciler/pkg/database"
	"github.com/docai-tools/invoice-reconciler/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config file")
		sourceDir  = flag.String("dir", "", "directory of invoice PDFs to upload")
	)
	flag.Parse()

	if *sourceDir == "" {
		fmt.Fprintln(os.Stderr, "usage: bulk-upload -dir <directory> [-config <path>]")
		os.Exit(2)
	}

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
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

	documentStage, err := stage.NewDocumentStage(cfg.Stage.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document stage", zap.Error(err))
	}
	documentStage.OnUpload(func(_ context.Context, fileName string) {
		logger.Info("Document ready for extraction", zap.String("file_name", fileName))
	})
	reconcileRepo := repository.NewReconcileRepository(db.DB, logger)

	ctx := context.Background()
	uploaded, skipped := 0, 0

	entries, err := os.ReadDir(*sourceDir)
	if err != nil {
		logger.Fatal("Failed to read source directory", zap.Error(err))
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			skipped++
			continue
		}

		content, err := os.ReadFile(filepath.Join(*sourceDir, entry.Name()))
		if err != nil {
			logger.Warn("Failed to read file, skipping",
				zap.String("file_name", entry.Name()), zap.Error(err))
			skipped++
			continue
		}

		if err := documentStage.Save(ctx, entry.Name(), content); err != nil {
			logger.Warn("Failed to stage file, skipping",
				zap.String("file_name", entry.Name()), zap.Error(err))
			skipped++
			continue
		}

		// The invoice id convention is the file name without extension.
		invoiceID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := reconcileRepo.SeedComparatorResult(ctx, invoiceID, entry.Name(), "", models.StatusPendingReview); err != nil {
			logger.Warn("Failed to seed review queue row",
				zap.String("invoice_id", invoiceID), zap.Error(err))
		}

		uploaded++
	}

	logger.Info("Bulk upload finished",
		zap.Int("uploaded", uploaded),
		zap.Int("skipped", skipped),
		zap.String("stage_dir", cfg.Stage.Dir))
}
