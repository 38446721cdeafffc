// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/janseva-labs/schemeharvest/internal/database"
	"github.com/janseva-labs/schemeharvest/internal/logging"
	"github.com/janseva-labs/schemeharvest/internal/publisher"
	pubmemory "github.com/janseva-labs/schemeharvest/internal/publisher/memory"
	pubsubpub "github.com/janseva-labs/schemeharvest/internal/publisher/pubsub"
	"github.com/janseva-labs/schemeharvest/internal/storage"
	"github.com/janseva-labs/schemeharvest/internal/storage/local"
	"github.com/janseva-labs/schemeharvest/internal/storage/memory"
)

// App holds the shared services for the application: logger, database,
// snapshot blob storage, and the run-event publisher. It is built once at
// startup and injected into commands.
type App struct {
	logger    *zap.Logger
	storage   storage.Provider
	database  database.Provider
	publisher publisher.Provider
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetStorage exposes the configured blob storage provider.
func (a *App) GetStorage() storage.Provider {
	return a.storage
}

// GetDatabase provides access to the scheme record database provider.
func (a *App) GetDatabase() database.Provider {
	return a.database
}

// GetPublisher returns the provider used to announce completed runs.
func (a *App) GetPublisher() publisher.Provider {
	return a.publisher
}

// NewApp instantiates providers from the viper configuration. It fails fast
// when a configured provider cannot be initialized; the noop variants allow
// running with nothing but the local filesystem.
func NewApp(ctx context.Context) (*App, error) {
	l := logging.L
	l.Info("Initializing application services...")

	storageProviderType := viper.GetString("storage.provider")
	var store storage.Provider
	var err error
	switch storageProviderType {
	case "gcs":
		bucketName := viper.GetString("storage.gcs.bucket_name")
		if bucketName == "" {
			return nil, fmt.Errorf("storage provider is 'gcs' but storage.gcs.bucket_name is not set")
		}
		l.Info("Using GCS storage provider", zap.String("bucket", bucketName))
		store, err = storage.NewGCSProvider(ctx, bucketName)
	case "local":
		baseDir := viper.GetString("storage.local.base_dir")
		if baseDir == "" {
			return nil, fmt.Errorf("storage provider is 'local' but storage.local.base_dir is not set")
		}
		l.Info("Using local storage provider", zap.String("base_dir", baseDir))
		store, err = local.New(baseDir)
	case "memory":
		l.Info("Using in-memory storage provider. Snapshot copies live for this process only.")
		store = memory.NewBlobStore()
	case "noop":
		l.Info("Using No-Op storage provider. No remote snapshot copy will be kept.")
		store = &storage.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", storageProviderType)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	dbProviderType := viper.GetString("database.provider")
	var db database.Provider
	switch dbProviderType {
	case "postgres":
		dsn := viper.GetString("database.postgres.dsn")
		if dsn == "" {
			return nil, fmt.Errorf("database provider is 'postgres' but database.postgres.dsn is not set")
		}
		l.Info("Connecting to PostgreSQL...")
		db, err = database.NewPostgresProvider(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
	case "noop":
		l.Info("Using No-Op database provider. Records will live only in the snapshot.")
		db = &database.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown database provider: %s", dbProviderType)
	}

	publisherProviderType := viper.GetString("publisher.provider")
	var pub publisher.Provider
	switch publisherProviderType {
	case "pubsub":
		projectID := viper.GetString("publisher.gcp.project_id")
		topicID := viper.GetString("publisher.gcp.topic_id")
		if projectID == "" || topicID == "" {
			return nil, fmt.Errorf("publisher provider is 'pubsub' but project_id or topic_id is not set")
		}
		l.Info("Connecting to GCP Pub/Sub", zap.String("topic", topicID))
		pub, err = pubsubpub.New(ctx, projectID, topicID)
		if err != nil {
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
	case "memory":
		l.Info("Using in-memory publisher. Run events stay in this process.")
		pub = pubmemory.New()
	case "noop":
		l.Info("Using No-Op publisher. Run events will not be announced.")
		pub = &publisher.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", publisherProviderType)
	}

	l.Info("Application services initialized successfully.")

	return &App{
		logger:    l,
		storage:   store,
		database:  db,
		publisher: pub,
	}, nil
}

// Close gracefully shuts down all services in the container. Called by a
// Cobra hook after the command finishes.
func (a *App) Close() {
	a.GetLogger().Info("Shutting down application services...")
	if err := a.GetDatabase().Close(); err != nil {
		a.GetLogger().Warn("Error closing database connection", zap.Error(err))
	}
	if err := a.GetPublisher().Close(); err != nil {
		a.GetLogger().Warn("Error closing publisher", zap.Error(err))
	}
	if err := a.GetLogger().Sync(); err != nil {
		// Best effort; stderr sync failures are expected on some platforms.
		a.GetLogger().Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
