package main

import (
	"fmt"
	"os"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/config"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "dimos-fixit/docs" // Swagger docs
)

// @title Dimos FixIt API
// @version 1.0
// @description Σύστημα αναφοράς και διαχείρισης προβλημάτων δήμου
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@dimos.gr

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	app := &cli.App{
		Name:  "dimos-fixit",
		Usage: "Municipal issue tracking API",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dimos-fixit: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: console output in dev, JSON in prod
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// bootstrap loads configuration, the logger and the database
func bootstrap() (*config.Config, *zap.SugaredLogger, *gorm.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	log := logger.Sugar()

	db, err := config.ConnectDatabase(cfg, log)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := config.CloseDatabase(db); err != nil {
			log.Warnw("close database", "error", err)
		}
		_ = logger.Sync()
	}
	return cfg, log, db, cleanup, nil
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the database schema",
	Action: func(cCtx *cli.Context) error {
		_, log, db, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("database migration completed")
		return nil
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the administrator, categories and settings",
	Action: func(cCtx *cli.Context) error {
		cfg, log, db, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return config.NewSeeder(db, cfg.Admin, log).Run(cCtx.Context)
	},
}
