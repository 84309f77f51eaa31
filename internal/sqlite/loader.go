package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// sequenceRow is one line of sequences.jsonl.
type sequenceRow struct {
	ProjectID string `json:"projectId"`
	Kind      string `json:"kind"`
	Next      int64  `json:"next"`
}

// decoders maps each record table to a function that parses one exported
// document. Order follows types.StandardTableNames.
var decoders = map[string]func(json.RawMessage) (types.Record, error){
	types.TableProjects:      decodeAs[types.Project],
	types.TableTestCases:     decodeAs[types.TestCase],
	types.TableBugs:          decodeAs[types.Bug],
	types.TableTasks:         decodeAs[types.Task],
	types.TableNotes:         decodeAs[types.Note],
	types.TableComments:      decodeAs[types.Comment],
	types.TableNotifications: decodeAs[types.Notification],
}

func decodeAs[T any, P recordPtr[T]](raw json.RawMessage) (types.Record, error) {
	rec := P(new(T))
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Export writes every table and the sequence counters to dir, one JSONL file
// per table. The snapshot is taken inside a single read transaction.
func (b *Backend) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	return b.View(ctx, func(tx types.Tx) error {
		t := tx.(*txn)
		for _, table := range types.StandardTableNames {
			docs, err := t.rawDocs(table)
			if err != nil {
				return err
			}
			if err := writeJSONL(filepath.Join(dir, jsonlFile(table)), docs); err != nil {
				return fmt.Errorf("exporting %s: %w", table, err)
			}
		}
		seqs, err := t.rawSequences()
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(dir, sequencesJSONL), seqs); err != nil {
			return fmt.Errorf("exporting sequences: %w", err)
		}
		return nil
	})
}

// Import loads a directory written by Export into an empty store. Loading is
// transactional: every file loads or the store remains empty. Malformed lines
// are skipped; unknown fields are ignored.
func (b *Backend) Import(ctx context.Context, dir string) error {
	return b.Update(ctx, func(tx types.Tx) error {
		t := tx.(*txn)
		empty, err := t.isEmpty()
		if err != nil {
			return err
		}
		if !empty {
			return types.Conflict("import", "store already contains records")
		}

		for _, table := range types.StandardTableNames {
			records, err := readJSONL(filepath.Join(dir, jsonlFile(table)))
			if err != nil {
				return err
			}
			decode := decoders[table]
			for _, raw := range records {
				rec, err := decode(raw)
				if err != nil {
					continue
				}
				if err := t.insertRaw(table, rec); err != nil {
					return fmt.Errorf("loading %s: %w", table, err)
				}
			}
		}

		seqs, err := readJSONL(filepath.Join(dir, sequencesJSONL))
		if err != nil {
			return err
		}
		for _, raw := range seqs {
			var row sequenceRow
			if err := json.Unmarshal(raw, &row); err != nil {
				continue
			}
			if _, err := t.sqlTx.ExecContext(t.ctx,
				"INSERT INTO sequences (project_id, kind, next) VALUES (?, ?, ?)",
				row.ProjectID, row.Kind, row.Next,
			); err != nil {
				return &types.PersistenceError{Op: "loading sequences", Err: err}
			}
		}
		return nil
	})
}

// rawDocs returns the doc column of every row in table in arrival order.
func (tx *txn) rawDocs(table string) ([]json.RawMessage, error) {
	rows, err := tx.sqlTx.QueryContext(tx.ctx, "SELECT doc FROM "+table+" ORDER BY created_at, rowid")
	if err != nil {
		return nil, &types.PersistenceError{Op: "reading " + table, Err: err}
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, &types.PersistenceError{Op: "reading " + table, Err: err}
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, &types.PersistenceError{Op: "reading " + table, Err: err}
	}
	return docs, nil
}

func (tx *txn) rawSequences() ([]json.RawMessage, error) {
	rows, err := tx.sqlTx.QueryContext(tx.ctx, "SELECT project_id, kind, next FROM sequences ORDER BY project_id, kind")
	if err != nil {
		return nil, &types.PersistenceError{Op: "reading sequences", Err: err}
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var row sequenceRow
		if err := rows.Scan(&row.ProjectID, &row.Kind, &row.Next); err != nil {
			return nil, &types.PersistenceError{Op: "reading sequences", Err: err}
		}
		line, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.PersistenceError{Op: "reading sequences", Err: err}
	}
	return out, nil
}

// isEmpty reports whether no record table holds a row.
func (tx *txn) isEmpty() (bool, error) {
	for _, table := range types.StandardTableNames {
		var n int
		if err := tx.sqlTx.QueryRowContext(tx.ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return false, &types.PersistenceError{Op: "counting " + table, Err: err}
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// insertRaw stores rec with its exported Meta unchanged.
func (tx *txn) insertRaw(table string, rec types.Record) error {
	meta := rec.Key()
	if meta.ID == "" || meta.Version < 1 {
		return fmt.Errorf("%w: record without id or version", types.ErrInvalidData)
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = tx.sqlTx.ExecContext(tx.ctx,
		"INSERT INTO "+table+" (id, project_id, index_key, version, created_at, updated_at, doc) VALUES (?, ?, ?, ?, ?, ?, ?)",
		meta.ID, rec.Scope(), indexKey(rec), meta.Version,
		meta.CreatedAt.UTC().Format(timeLayout), meta.UpdatedAt.UTC().Format(timeLayout), string(doc),
	)
	if err != nil {
		return &types.PersistenceError{Op: "inserting " + table + " " + meta.ID, Err: err}
	}
	return nil
}
