package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/seed"
	"github.com/reviewlens/reviewlens/internal/store"
	s3store "github.com/reviewlens/reviewlens/internal/storage/s3"
)

func main() {
	upload := flag.Bool("upload", false, "upload CSV files from the data directory to the object store before seeding")
	flag.Parse()

	cfg, err := config.LoadFromEnv("reviewlens-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := store.Open(context.Background(), store.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// An S3 endpoint takes precedence; otherwise datasets come from the
	// local data directory.
	var source seed.Source
	if cfg.Seed.Endpoint != "" {
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Seed.Endpoint,
			Region:           cfg.Seed.Region,
			Bucket:           cfg.Seed.Bucket,
			AccessKeyID:      cfg.Seed.AccessKeyID,
			SecretAccessKey:  cfg.Seed.SecretAccessKey,
			UseSSL:           cfg.Seed.UseSSL,
			Prefix:           cfg.Seed.Prefix,
			AutoCreateBucket: cfg.Seed.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		if *upload {
			uploaded, err := seed.UploadDir(ctx, objectStore, cfg.Seed.DataDir)
			if err != nil {
				logger.Error("dataset upload failed", slog.Any("error", err))
				os.Exit(1)
			}
			for _, info := range uploaded {
				logger.Info("dataset uploaded", slog.String("key", info.Key), slog.Int64("bytes", info.Size))
			}
		}
		source = seed.StoreSource{Store: objectStore}
		logger.Info("seeding from object store", slog.String("bucket", cfg.Seed.Bucket))
	} else {
		if *upload {
			logger.Error("-upload requires an S3 endpoint (REVIEWLENS_SEED_S3_ENDPOINT)")
			os.Exit(1)
		}
		source = seed.DirSource{Dir: cfg.Seed.DataDir}
		logger.Info("seeding from local directory", slog.String("dir", cfg.Seed.DataDir))
	}

	summary, err := seed.NewLoader(db, source, logger).Run(ctx)
	if err != nil {
		logger.Error("seed run failed", slog.Any("error", err))
		os.Exit(1)
	}
	for table, rows := range summary.Loaded {
		logger.Info("table seeded", slog.String("table", table), slog.Int("rows", rows))
	}
	if len(summary.Skipped) > 0 {
		logger.Info("datasets skipped", slog.Any("files", summary.Skipped))
	}
}
