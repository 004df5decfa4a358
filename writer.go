package rsdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// tableWriter materialises decoded payloads as tables with a view on top.
type tableWriter struct {
	db *sql.DB
}

func newTableWriter(db *sql.DB) *tableWriter {
	return &tableWriter{db: db}
}

// write creates table tn from t and view vn selecting every column of tn.
// Everything happens in one transaction: on any error neither the table nor
// the view is left behind. It returns the stored row count, which is checked
// against the number of decoded rows.
func (w *tableWriter) write(ctx context.Context, tn TableName, vn ViewName, t *table) (int64, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	n, err := createAndFill(ctx, tx, tn, t)
	if err != nil {
		return 0, err
	}
	if err := replaceView(ctx, tx, vn, tn); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit table %s: %w", tn, err)
	}
	return n, nil
}

// createAndFill (re)creates the table, inserts every record and verifies the
// stored row count.
func createAndFill(ctx context.Context, tx *sql.Tx, tn TableName, t *table) (int64, error) {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tn.Quoted()); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", tn, err)
	}
	if _, err := tx.ExecContext(ctx, createTableQuery(tn, t.columnInfo)); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", tn, err)
	}
	if err := insertRecords(ctx, tx, tn, t); err != nil {
		return 0, err
	}

	n, err := countRows(ctx, tx, tn.Quoted())
	if err != nil {
		return 0, err
	}
	if n != int64(t.rowCount()) {
		return 0, fmt.Errorf("%w: table %s has %d rows, payload has %d", ErrRowCountMismatch, tn, n, t.rowCount())
	}
	return n, nil
}

// createTableQuery builds CREATE TABLE with one typed column per header field.
func createTableQuery(tn TableName, columns []columnInfo) string {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, quoteIdent(col.Name)+" "+col.Type.String())
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", tn.Quoted(), strings.Join(defs, ", "))
}

// insertRecords inserts all records with a prepared statement.
func insertRecords(ctx context.Context, tx *sql.Tx, tn TableName, t *table) error {
	if t.rowCount() == 0 {
		return nil
	}

	placeholders := make([]string, len(t.columnInfo))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s VALUES (%s)", tn.Quoted(), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tn, err)
	}
	defer stmt.Close()

	values := make([]any, len(t.columnInfo))
	for rowIdx, record := range t.getRecords() {
		for i, col := range t.columnInfo {
			values[i] = col.Type.convert(record[i])
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to insert record %d into %s: %w", rowIdx+1, tn, err)
		}
	}
	return nil
}

// replaceView drops vn if present and recreates it over tn.
func replaceView(ctx context.Context, tx *sql.Tx, vn ViewName, tn TableName) error {
	if _, err := tx.ExecContext(ctx, "DROP VIEW IF EXISTS "+vn.Quoted()); err != nil {
		return fmt.Errorf("failed to drop view %s: %w", vn, err)
	}
	query := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", vn.Quoted(), tn.Quoted())
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create view %s: %w", vn, err)
	}
	return nil
}
