package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/glebarez/sqlite"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StagingDir is the uploads subdirectory holding per-user staged files.
const StagingDir = "temp"

func InitContext(cfg *Config) (*appcontext.Context, error) {
	logger, err := InitLogger(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.DotenvLoaded {
		logger.Warn("No .env file found, using environment variables")
	}

	db, err := InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	store, err := InitStorage(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	staging, err := storage.NewStaging(filepath.Join(cfg.UploadsDir, StagingDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize staging area: %w", err)
	}

	ctx := appcontext.New(db, logger, store, staging, cfg.BaseURL())
	ctx.Environment = cfg.Environment
	ctx.JWTSecret = []byte(cfg.JWT.Secret)
	ctx.AllowedOrigins = cfg.CORS.Origins()

	if cfg.Meilisearch.Host != "" {
		client, err := InitMeilisearch(cfg.Meilisearch)
		if err != nil {
			return nil, err
		}
		ctx.UseIndexer(services.NewMeiliIndexer(client))
	} else {
		logger.Info("Meilisearch host not set, quick search disabled")
	}

	if cfg.Sendgrid.APIKey != "" {
		ctx.UseMailer(services.NewSendgridMailer(cfg.Sendgrid.APIKey, cfg.Mail.From))
	}

	logger.Info("Application context initialized",
		zap.String("environment", cfg.Environment),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("storage_backend", cfg.Storage.Backend),
	)
	return ctx, nil
}

func InitDB(cfg DatabaseConfig) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.URL)
	default:
		dialector = postgres.Open(cfg.URL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entity.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func InitLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// InitStorage opens the permanent file store of the configured backend.
func InitStorage(ctx context.Context, cfg *Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := InitGCSClient(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewGCSStore(client, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Prefix), nil
	case "s3":
		store, err := storage.NewS3Store(cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewFilesystemStore(cfg.UploadsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		return store, nil
	}
}

func InitGCSClient(ctx context.Context) (*gcs.Client, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
	}
	return client, nil
}

func InitMeilisearch(cfg MeilisearchConfig) (*meilisearch.Client, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   cfg.Host,
		APIKey: cfg.APIKey,
	})

	_, err := client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        services.SearchIndex,
		PrimaryKey: "id",
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	task, err := client.Index(services.SearchIndex).UpdateFilterableAttributes(&[]string{
		"type",
		"dataset_id",
		"publication_type",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update filterable attributes: %w", err)
	}
	if _, err := client.WaitForTask(task.TaskUID); err != nil {
		return nil, fmt.Errorf("failed to wait for filterable attributes update: %w", err)
	}

	task, err = client.Index(services.SearchIndex).UpdateSearchableAttributes(&[]string{
		"name",
		"description",
		"tags",
		"authors",
		"uvl_filename",
		"dataset_doi",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update searchable attributes: %w", err)
	}
	if _, err := client.WaitForTask(task.TaskUID); err != nil {
		return nil, fmt.Errorf("failed to wait for searchable attributes update: %w", err)
	}

	return client, nil
}
