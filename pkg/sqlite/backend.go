// Package sqlite provides the public API for the SQLite QA Desk store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/qadesk/internal/sqlite"
)

// Backend is the SQLite implementation of types.Store, with Export and
// Import for JSONL snapshots.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".qadesk-db",
//	})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlite.NewBackend()
}
