// Package storage provides the nonce stores behind the replay-guard
// service.
//
// # Interface Design
//
// [NonceStore] is a nonce.Cache with the lifecycle the service needs:
// readiness checks and context-aware shutdown. [Local] adapts the
// process-local caches from pkg/nonce (in-memory and Badger).
//
// # Implementations
//
// The mongodb sub-package provides a shared MongoDB implementation for
// deployments where several service instances must see the same nonces.
//
// # Concurrency
//
// All store implementations must be safe for concurrent use from multiple
// goroutines.
package storage

import (
	"context"
	"io"

	"github.com/sirosfoundation/go-wssec/pkg/nonce"
)

// NonceStore is a nonce cache owned by the service
type NonceStore interface {
	nonce.Cache

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend
	Close(ctx context.Context) error
}

// Local wraps a process-local nonce cache as a NonceStore
func Local(c nonce.Cache) NonceStore {
	return &local{Cache: c}
}

type local struct {
	nonce.Cache
}

func (l *local) Ping(context.Context) error { return nil }

func (l *local) Close(context.Context) error {
	if c, ok := l.Cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
