package rsdb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// DefaultIndexTable is the name of the lookup relation written at the end of a run
const DefaultIndexTable = "table_index"

// Index relation columns
const (
	indexColumnTable    = "table_name"
	indexColumnView     = "view_name"
	indexColumnFilename = "original_filename"
	indexColumnRows     = "row_count"
)

// IndexEntry relates one created table/view pair to the archive it came from.
type IndexEntry struct {
	// TableName is the physical table
	TableName string `json:"table_name" yaml:"table_name"`
	// ViewName is the human-readable view over TableName
	ViewName string `json:"view_name" yaml:"view_name"`
	// OriginalFilename is the archive file name without directory
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`
	// RowCount is the number of rows stored in TableName
	RowCount int64 `json:"row_count" yaml:"row_count"`
}

// sortEntries orders entries by table name for stable enumeration.
func sortEntries(entries []IndexEntry) []IndexEntry {
	sorted := make([]IndexEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TableName < sorted[j].TableName
	})
	return sorted
}

// writeIndex materialises entries as the index relation, sorted by table name.
func writeIndex(ctx context.Context, db *sql.DB, name TableName, entries []IndexEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name.Quoted()); err != nil {
		return fmt.Errorf("failed to drop index %s: %w", name, err)
	}
	create := fmt.Sprintf(
		"CREATE TABLE %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s TEXT NOT NULL, %s INTEGER NOT NULL)",
		name.Quoted(),
		quoteIdent(indexColumnTable),
		quoteIdent(indexColumnView),
		quoteIdent(indexColumnFilename),
		quoteIdent(indexColumnRows),
	)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?)", name.Quoted()))
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range sortEntries(entries) {
		if _, err := stmt.ExecContext(ctx, e.TableName, e.ViewName, e.OriginalFilename, e.RowCount); err != nil {
			return fmt.Errorf("failed to insert index entry for %s: %w", e.TableName, err)
		}
	}
	return tx.Commit()
}

// ReadIndex returns all entries of the index relation ordered by table name.
// ErrNoIndex is returned when the relation does not exist.
func ReadIndex(ctx context.Context, db *sql.DB, indexTable string) ([]IndexEntry, error) {
	name, err := NewTableName(indexTable)
	if err != nil {
		return nil, err
	}
	exists, err := relationExists(ctx, db, name.String())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, name)
	}

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s ORDER BY %s",
		quoteIdent(indexColumnTable),
		quoteIdent(indexColumnView),
		quoteIdent(indexColumnFilename),
		quoteIdent(indexColumnRows),
		name.Quoted(),
		quoteIdent(indexColumnTable),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", name, err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		if err := rows.Scan(&e.TableName, &e.ViewName, &e.OriginalFilename, &e.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan index entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
