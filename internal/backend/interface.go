// Package backend wires the configured data store and the optional message
// bus into one result the commands can share.
package backend

import (
	"context"

	"garage/internal/amqp"
	"garage/internal/services"
	"garage/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult contains the store, the optional AMQP client and the
// cleanup function releasing both.
type BackendResult struct {
	Store   store.Store
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// SyncPublisher returns the AMQP client as a publisher, or a nil interface
// when messaging is off.
func (r *BackendResult) SyncPublisher() services.SyncPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

func (r *BackendResult) AlertPublisher() services.AlertPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Ping checks the store when it supports it. The memory store is always
// ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs Cleanup once it is set.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Memory backend only.
	SeedDemo      bool
	DefaultUserID string

	// Messaging is optional for every backend type.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
