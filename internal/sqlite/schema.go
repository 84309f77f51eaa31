package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// recordTableDDL is the shape shared by every record table. doc holds the
// JSON record; the other columns are denormalized for lookup and ordering.
const recordTableDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    index_key TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    doc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_project ON %[1]s(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_%[1]s_index_key ON %[1]s(index_key);`

// createSequences holds the per-project friendly-id counters.
const createSequences = `CREATE TABLE IF NOT EXISTS sequences (
    project_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    next INTEGER NOT NULL,
    PRIMARY KEY (project_id, kind)
);`

// schemaDDL lists every statement applied on Attach, in dependency order.
func schemaDDL() []string {
	stmts := make([]string, 0, len(types.StandardTableNames)+1)
	for _, name := range types.StandardTableNames {
		stmts = append(stmts, fmt.Sprintf(recordTableDDL, name))
	}
	return append(stmts, createSequences)
}

// applySchema creates missing tables and indexes. Existing data is kept.
func applySchema(db *sql.DB) error {
	for _, stmt := range schemaDDL() {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
