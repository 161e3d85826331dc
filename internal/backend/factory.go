package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensemanager/internal/amqp"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
	"expensemanager/internal/services"
	"expensemanager/internal/storage"
	"expensemanager/internal/storage/memory"
	mongostore "expensemanager/internal/storage/mongo"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Backend: repo, Cleanup: repo.Close, Ping: repo.Ping}, nil
}

func (f *DefaultFactory) createPostgresBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{Backend: repo, Cleanup: repo.Close, Ping: repo.Ping}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := mongostore.Connect(ctx, config.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Mongo backend: %w", err)
	}

	store := mongostore.NewStore(mongostore.NewClientProvider(client, config.MongoDatabase))

	f.logger.Info("Initialized Mongo backend", "database", config.MongoDatabase)

	return &BackendResult{
		Backend: store,
		Cleanup: func() error { return client.Disconnect(context.Background()) },
		Ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{Backend: memory.New()}, nil
}

// CreateNotifier implements Factory.CreateNotifier
func (f *DefaultFactory) CreateNotifier(config NotifierConfig) (ports.Notifier, CleanupFunc) {
	fallback := services.NewLogNotifier(log.New(log.Config{
		Component: log.ComponentNotifier,
		Handler:   f.logger.Handler(),
	}))

	if config.AMQPURL == "" {
		f.logger.Info("AMQP disabled, expense notifications go to the log")
		return fallback, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, expense notifications go to the log", "error", err)
		return fallback, nil
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	return client, client.Close
}
