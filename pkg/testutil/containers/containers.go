//go:build integration

// Package containers provides testcontainers-based fixtures for integration
// tests. A container starts on first request and is shared by every suite in
// the package; the testcontainers reaper handles teardown.
package containers

import (
	"sync"
	"testing"
)

var (
	mu     sync.Mutex
	shared *PostgresContainer
)

// Postgres returns the shared Postgres container, starting it on first use
// with the embedded schema applied.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()

	mu.Lock()
	defer mu.Unlock()
	if shared == nil {
		shared = NewPostgresContainer(t)
	}
	return shared
}
