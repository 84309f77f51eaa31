package types

import (
	"context"
	"errors"
	"time"
)

// Meta is the store-owned identity block embedded in every record. The store
// assigns ID and CreatedAt on first Put and bumps Version and UpdatedAt on
// every write.
type Meta struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the record's identity block.
func (m *Meta) Key() *Meta { return m }

// Record is implemented by every persisted entity.
type Record interface {
	// Key returns the embedded Meta so the store can assign identity.
	Key() *Meta
	// Scope returns the owning project ID, used as the listing key.
	Scope() string
}

// Indexed is implemented by records that expose a secondary lookup key
// (comment subject, notification recipient, task parent).
type Indexed interface {
	IndexKey() string
}

// Filter narrows Table.Fetch. Empty fields match everything.
type Filter struct {
	ProjectID string
	IndexKey  string
}

// Table provides uniform CRUD operations for a single record type inside a
// transaction.
type Table[R Record] interface {
	// Get returns the record with the given ID, or a *NotFoundError.
	Get(id string) (R, error)

	// Put creates the record when its ID is empty, otherwise updates it.
	// Updates are version-checked: a record read at version N can only be
	// written while the stored row is still at version N.
	Put(rec R) error

	// Delete removes the record, or returns a *NotFoundError.
	Delete(id string) error

	// Fetch returns all records matching the filter in arrival order.
	Fetch(filter Filter) ([]R, error)
}

// Tx is a unit of work against the store. Every write made through a Tx is
// committed together or not at all.
type Tx interface {
	Projects() Table[*Project]
	TestCases() Table[*TestCase]
	Bugs() Table[*Bug]
	Tasks() Table[*Task]
	Notes() Table[*Note]
	Comments() Table[*Comment]
	Notifications() Table[*Notification]

	// NextSequence allocates the next friendly-id number for kind within
	// projectID. Numbers start at 1 and are never reused.
	NextSequence(projectID, kind string) (int64, error)

	// Context returns the context the transaction was opened with.
	Context() context.Context
}

// Store is the entity store. Callers attach to a backend, run transactions,
// and detach when done.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Update runs fn in a read-write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise, including when ctx
	// expires before commit.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidData     = errors.New("invalid record data")
)

// Record kinds, used in error messages and friendly-id sequences.
const (
	KindProject      = "project"
	KindTestCase     = "testCase"
	KindBug          = "bug"
	KindTask         = "task"
	KindNote         = "note"
	KindComment      = "comment"
	KindNotification = "notification"
)

// Standard table names.
const (
	TableProjects      = "projects"
	TableTestCases     = "test_cases"
	TableBugs          = "bugs"
	TableTasks         = "tasks"
	TableNotes         = "notes"
	TableComments      = "comments"
	TableNotifications = "notifications"
)

// StandardTableNames lists all record tables in dependency order.
var StandardTableNames = []string{
	TableProjects,
	TableTestCases,
	TableBugs,
	TableTasks,
	TableNotes,
	TableComments,
	TableNotifications,
}
