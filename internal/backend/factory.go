package backend

import (
	"context"
	"errors"
	"fmt"

	"budgy/internal/amqp"
	"budgy/internal/log"
	"budgy/internal/services"
	"budgy/internal/storage"
	"budgy/internal/storage/postgres"
	"budgy/internal/store"
	"budgy/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	return f.withEvents(result, config), nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   sqliteRepo,
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	db, err := postgres.Open(ctx, f.logger.Logger, config.PostgresURL, postgres.PoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres pool: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Store:   postgres.NewRepository(f.logger.Logger, db),
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   memory.New(),
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// withEvents wraps the store so writes publish ledger events. A broker that
// cannot be reached at startup is logged and the store runs without events.
func (f *DefaultFactory) withEvents(result *BackendResult, config Config) *BackendResult {
	if config.AMQPURL == "" {
		return result
	}

	amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return result
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	svc := services.NewLedgerService(result.Store, amqpClient, f.logger, config.Location)
	storeCleanup := result.Cleanup
	return &BackendResult{
		Store:  svc,
		Events: true,
		Cleanup: func() error {
			var errs []error
			if err := amqpClient.Close(); err != nil {
				errs = append(errs, err)
			}
			if storeCleanup != nil {
				if err := storeCleanup(); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

// Pinger returns the readiness probe of a store, or nil when it has none.
func Pinger(st store.Store) store.Pinger {
	if p, ok := st.(store.Pinger); ok {
		return p
	}
	return nil
}
