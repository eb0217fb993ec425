package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"dimos-fixit/internal/adapters/events"
	"dimos-fixit/internal/adapters/http/middleware"
	"dimos-fixit/internal/adapters/http/routes"
	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/adapters/quota"
	"dimos-fixit/internal/adapters/storage"
	"dimos-fixit/internal/adapters/vision"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "seed",
			Usage: "Run the seeders before serving",
			Value: true,
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, db, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("database migration completed")

	if cCtx.Bool("seed") {
		if err := config.NewSeeder(db, cfg.Admin, log).Run(ctx); err != nil {
			log.Warnw("seeding failed", "error", err)
		}
	}

	store, err := storage.New(ctx, storage.Options{
		Driver:   cfg.Upload.Driver,
		Dir:      cfg.Upload.Dir,
		S3Bucket: cfg.Upload.S3Bucket,
	})
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	log.Infow("blob store ready", "driver", cfg.Upload.Driver)

	publisher, err := events.New(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer publisher.Close()

	limiter, closeQuota, err := newQuota(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeQuota()

	var analyzer vision.Analyzer
	if cfg.Vision.URL != "" {
		analyzer = vision.NewHTTPAnalyzer(cfg.Vision.URL, time.Duration(cfg.Vision.TimeoutSec)*time.Second)
		log.Infow("photo analysis enabled", "url", cfg.Vision.URL)
	}

	// Housekeeping jobs (token purge, overdue digest)
	maintenance := services.NewMaintenanceService(
		repositories.NewRefreshTokenRepository(db),
		repositories.NewIssueRepository(db),
		log,
	)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer maintenance.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dimos FixIt API v1.0",
		BodyLimit:    cfg.Upload.MaxUploadSize*cfg.Upload.MaxFilesPerUpload + 1<<20,
		ErrorHandler: middleware.ErrorHandler(log),
	})

	middleware.Setup(app, cfg)

	routes.Setup(app, routes.Deps{
		DB:        db,
		Config:    cfg,
		Log:       log,
		Store:     store,
		Publisher: publisher,
		Quota:     limiter,
		Analyzer:  analyzer,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Port, "mode", cfg.AppMode)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
	log.Info("server stopped gracefully")
	return nil
}

// newQuota connects the issue quota store; without REDIS_URL nobody is limited
func newQuota(ctx context.Context, cfg config.RedisConfig, log *zap.SugaredLogger) (quota.Limiter, func(), error) {
	if cfg.URL == "" {
		log.Infow("issue quota disabled", "reason", "REDIS_URL not set")
		return quota.Unlimited{}, func() {}, nil
	}

	limiter, client, err := quota.NewRedisLimiter(ctx, cfg.URL, cfg.IssueCreateLimitDay)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Infow("issue quota enabled", "perDay", cfg.IssueCreateLimitDay)
	return limiter, func() {
		if err := client.Close(); err != nil {
			log.Warnw("close redis", "error", err)
		}
	}, nil
}
