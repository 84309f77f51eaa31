package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// recordPtr constrains a table's element to a pointer to a record struct.
type recordPtr[T any] interface {
	*T
	types.Record
}

// txn implements types.Tx over one *sql.Tx.
type txn struct {
	ctx   context.Context
	sqlTx *sql.Tx
}

var _ types.Tx = (*txn)(nil)

func newTxn(ctx context.Context, sqlTx *sql.Tx) *txn {
	return &txn{ctx: ctx, sqlTx: sqlTx}
}

func (tx *txn) Context() context.Context { return tx.ctx }

func (tx *txn) Projects() types.Table[*types.Project] {
	return &docTable[types.Project, *types.Project]{tx: tx, name: types.TableProjects, kind: types.KindProject}
}

func (tx *txn) TestCases() types.Table[*types.TestCase] {
	return &docTable[types.TestCase, *types.TestCase]{tx: tx, name: types.TableTestCases, kind: types.KindTestCase}
}

func (tx *txn) Bugs() types.Table[*types.Bug] {
	return &docTable[types.Bug, *types.Bug]{tx: tx, name: types.TableBugs, kind: types.KindBug}
}

func (tx *txn) Tasks() types.Table[*types.Task] {
	return &docTable[types.Task, *types.Task]{tx: tx, name: types.TableTasks, kind: types.KindTask}
}

func (tx *txn) Notes() types.Table[*types.Note] {
	return &docTable[types.Note, *types.Note]{tx: tx, name: types.TableNotes, kind: types.KindNote}
}

func (tx *txn) Comments() types.Table[*types.Comment] {
	return &docTable[types.Comment, *types.Comment]{tx: tx, name: types.TableComments, kind: types.KindComment}
}

func (tx *txn) Notifications() types.Table[*types.Notification] {
	return &docTable[types.Notification, *types.Notification]{tx: tx, name: types.TableNotifications, kind: types.KindNotification}
}

// NextSequence increments and returns the (projectID, kind) counter.
func (tx *txn) NextSequence(projectID, kind string) (int64, error) {
	var next int64
	err := tx.sqlTx.QueryRowContext(tx.ctx, `
		INSERT INTO sequences (project_id, kind, next) VALUES (?, ?, 1)
		ON CONFLICT(project_id, kind) DO UPDATE SET next = next + 1
		RETURNING next`, projectID, kind).Scan(&next)
	if err != nil {
		return 0, &types.PersistenceError{Op: "allocating " + kind + " sequence", Err: err}
	}
	return next, nil
}

// docTable implements types.Table for one record type. Each operation
// hydrates/dehydrates between the doc column and the record struct.
type docTable[T any, P recordPtr[T]] struct {
	tx   *txn
	name string // SQLite table name.
	kind string // Record kind for errors.
}

// Get retrieves a record by ID.
func (t *docTable[T, P]) Get(id string) (P, error) {
	var zero P
	if id == "" {
		return zero, types.NotFound(t.kind, id)
	}
	var doc string
	err := t.tx.sqlTx.QueryRowContext(t.tx.ctx,
		"SELECT doc FROM "+t.name+" WHERE id = ?", id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, types.NotFound(t.kind, id)
	}
	if err != nil {
		return zero, &types.PersistenceError{Op: "getting " + t.kind + " " + id, Err: err}
	}
	return t.hydrate(doc)
}

// Put creates the record when its ID is empty, otherwise performs a
// version-checked update. On success the record's Meta reflects the stored
// row.
func (t *docTable[T, P]) Put(rec P) error {
	if rec == nil {
		return types.ErrInvalidData
	}
	meta := rec.Key()
	now := time.Now().UTC()

	if meta.ID == "" {
		return t.insert(rec, meta, now)
	}
	return t.update(rec, meta, now)
}

func (t *docTable[T, P]) insert(rec P, meta *types.Meta, now time.Time) error {
	newID, err := uuid.NewV7()
	if err != nil {
		return &types.PersistenceError{Op: "generating UUID v7", Err: err}
	}
	meta.ID = newID.String()
	meta.Version = 1
	meta.CreatedAt = now
	meta.UpdatedAt = now

	doc, err := json.Marshal(rec)
	if err != nil {
		*meta = types.Meta{}
		return fmt.Errorf("marshaling %s: %w", t.kind, err)
	}
	_, err = t.tx.sqlTx.ExecContext(t.tx.ctx,
		"INSERT INTO "+t.name+" (id, project_id, index_key, version, created_at, updated_at, doc) VALUES (?, ?, ?, ?, ?, ?, ?)",
		meta.ID, rec.Scope(), indexKey(rec), meta.Version,
		meta.CreatedAt.Format(timeLayout), meta.UpdatedAt.Format(timeLayout), string(doc),
	)
	if err != nil {
		*meta = types.Meta{}
		return &types.PersistenceError{Op: "inserting " + t.kind, Err: err}
	}
	return nil
}

func (t *docTable[T, P]) update(rec P, meta *types.Meta, now time.Time) error {
	prev := *meta
	meta.Version = prev.Version + 1
	meta.UpdatedAt = now

	doc, err := json.Marshal(rec)
	if err != nil {
		*meta = prev
		return fmt.Errorf("marshaling %s: %w", t.kind, err)
	}
	res, err := t.tx.sqlTx.ExecContext(t.tx.ctx,
		"UPDATE "+t.name+" SET project_id = ?, index_key = ?, version = ?, updated_at = ?, doc = ? WHERE id = ? AND version = ?",
		rec.Scope(), indexKey(rec), meta.Version, meta.UpdatedAt.Format(timeLayout), string(doc),
		meta.ID, prev.Version,
	)
	if err != nil {
		*meta = prev
		return &types.PersistenceError{Op: "updating " + t.kind + " " + meta.ID, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		*meta = prev
		return &types.PersistenceError{Op: "updating " + t.kind + " " + meta.ID, Err: err}
	}
	if n == 1 {
		return nil
	}

	*meta = prev
	var stored int64
	err = t.tx.sqlTx.QueryRowContext(t.tx.ctx,
		"SELECT version FROM "+t.name+" WHERE id = ?", meta.ID,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NotFound(t.kind, meta.ID)
	}
	if err != nil {
		return &types.PersistenceError{Op: "checking " + t.kind + " version", Err: err}
	}
	return types.Conflict("update "+t.kind,
		fmt.Sprintf("%s %s was modified concurrently (have version %d, stored %d)", t.kind, meta.ID, prev.Version, stored))
}

// Delete removes a record by ID.
func (t *docTable[T, P]) Delete(id string) error {
	if id == "" {
		return types.NotFound(t.kind, id)
	}
	res, err := t.tx.sqlTx.ExecContext(t.tx.ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return &types.PersistenceError{Op: "deleting " + t.kind + " " + id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &types.PersistenceError{Op: "deleting " + t.kind + " " + id, Err: err}
	}
	if n == 0 {
		return types.NotFound(t.kind, id)
	}
	return nil
}

// Fetch returns records matching the filter in arrival order.
func (t *docTable[T, P]) Fetch(filter types.Filter) ([]P, error) {
	query := "SELECT doc FROM " + t.name
	var conditions []string
	var args []any

	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.IndexKey != "" {
		conditions = append(conditions, "index_key = ?")
		args = append(args, filter.IndexKey)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := t.tx.sqlTx.QueryContext(t.tx.ctx, query, args...)
	if err != nil {
		return nil, &types.PersistenceError{Op: "fetching " + t.name, Err: err}
	}
	defer rows.Close()

	results := []P{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, &types.PersistenceError{Op: "scanning " + t.kind, Err: err}
		}
		rec, err := t.hydrate(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.PersistenceError{Op: "iterating " + t.name, Err: err}
	}
	return results, nil
}

// hydrate converts a doc column into a record.
func (t *docTable[T, P]) hydrate(doc string) (P, error) {
	rec := P(new(T))
	if err := json.Unmarshal([]byte(doc), rec); err != nil {
		var zero P
		return zero, &types.PersistenceError{Op: "decoding " + t.kind, Err: err}
	}
	return rec, nil
}

// indexKey returns the record's secondary key, or "" when it has none.
func indexKey(rec types.Record) string {
	if ix, ok := rec.(types.Indexed); ok {
		return ix.IndexKey()
	}
	return ""
}
