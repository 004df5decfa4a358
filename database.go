package rsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DriverName is the database/sql driver used for the output database
const DriverName = "sqlite"

// createDatabase removes any existing file at path and opens a fresh
// database there. The returned handle uses a single connection so that all
// statements of a run are serialised on one writer.
func createDatabase(ctx context.Context, path string) (*sql.DB, error) {
	ectx := NewErrorContext("open database", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ectx.WithDetails("remove previous database").Error(errors.Join(ErrOpenDatabase, err))
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}
	return db, nil
}

// OpenReadOnly opens an existing output database without write access.
//
// Example usage:
//
//	db, err := rsdb.OpenReadOnly(ctx, "data/rs.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	entry, err := rsdb.LookupView(ctx, db, rsdb.DefaultIndexTable, "1-1_RS_2024_基本情報_組織情報.zip")
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	ectx := NewErrorContext("open database", path)

	if _, err := os.Stat(path); err != nil {
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String()

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ectx.Error(errors.Join(ErrOpenDatabase, err))
	}
	return db, nil
}

// relationExists reports whether a table or view with the given name exists.
func relationExists(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up relation %s: %w", name, err)
	}
	return n > 0, nil
}

// countRows returns SELECT COUNT(*) of a quoted relation.
func countRows(ctx context.Context, q queryer, quoted string) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&n); err != nil { //nolint:gosec // identifier is validated and quoted
		return 0, fmt.Errorf("failed to count rows of %s: %w", quoted, err)
	}
	return n, nil
}

// queryer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
