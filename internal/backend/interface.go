package backend

import (
	"context"

	"expensemanager/internal/ports"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	ports.ExpenseRepository
	ports.UserStore
	ports.SessionStore
	ports.ErrorLog
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the backing store is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Ping is nil for backends that are always ready.
	Ping PingFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateNotifier returns the broker notifier, or a log notifier when no
	// broker is configured or reachable.
	CreateNotifier(config NotifierConfig) (ports.Notifier, CleanupFunc)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL string

	// Mongo specific
	MongoURI      string
	MongoDatabase string
}

// NotifierConfig holds the AMQP settings for after-insert notifications.
type NotifierConfig struct {
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}
