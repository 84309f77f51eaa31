// Package sqlite implements the SQLite entity store for QA Desk.
//
// Every record type lives in its own table keyed by id, carrying the owning
// project id, an optional secondary index key, an optimistic version and the
// JSON document. All writes go through Update transactions; the backend keeps
// a single connection and opens IMMEDIATE transactions so concurrent
// mutations are serialized.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// dbFileName is the database file created inside DataDir.
const dbFileName = "qadesk.db"

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database in DataDir and applies the schema.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, dbFileName) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection: transactions queue on the pool instead of racing for
	// the SQLite write lock.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return fmt.Errorf("applying schema: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
// After Detach, transactions return ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// DataDir returns the directory the backend is attached to.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// Update runs fn in a write transaction.
func (b *Backend) Update(ctx context.Context, fn func(tx types.Tx) error) error {
	return b.run(ctx, true, fn)
}

// View runs fn in a transaction that is always rolled back.
func (b *Backend) View(ctx context.Context, fn func(tx types.Tx) error) error {
	return b.run(ctx, false, fn)
}

func (b *Backend) handle() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.db, nil
}

// run opens a transaction, hands it to fn and commits only when fn succeeds
// and ctx is still live. Any other outcome leaves the database untouched.
func (b *Backend) run(ctx context.Context, write bool, fn func(tx types.Tx) error) error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &types.PersistenceError{Op: "begin transaction", Err: err}
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &types.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(newTxn(ctx, sqlTx)); err != nil {
		return err
	}
	if !write {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &types.PersistenceError{Op: "commit", Err: err}
	}
	if err := sqlTx.Commit(); err != nil {
		return &types.PersistenceError{Op: "commit", Err: err}
	}
	return nil
}
