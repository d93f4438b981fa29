package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"garage/internal/amqp"
	"garage/internal/storage"
	"garage/internal/store"
	"garage/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store and, when a URL is configured, the AMQP
// client. A broker that cannot be reached is logged and skipped; the store
// is required.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config (want one of %s): %w",
			strings.Join(GetBackendTypeStrings(), ", "), err)
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		st, err = f.createMemoryStore(ctx, config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	client := f.createAMQPClient(ctx, config)

	return &BackendResult{
		Store:   st,
		AMQP:    client,
		Cleanup: cleanup(st, client),
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (store.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	version, dirty, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		f.logger.WarnContext(ctx, "Could not read schema version", "error", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", version,
		"dirty", dirty)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) (store.Store, error) {
	st := memory.New()
	if config.SeedDemo {
		if err := st.Seed(ctx, config.DefaultUserID); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seeded", config.SeedDemo)
	return st, nil
}

func (f *DefaultFactory) createAMQPClient(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP not configured, expense sync disabled")
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func cleanup(st store.Store, client *amqp.Client) CleanupFunc {
	return func() error {
		var errs []error
		if client != nil {
			if err := client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close amqp client: %w", err))
			}
		}
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}
}
