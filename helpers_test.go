package rsdb

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

// zipEntry is one file inside a test archive.
type zipEntry struct {
	name string
	data []byte
}

// writeZip creates dir/name containing the given entries in order.
func writeZip(t *testing.T, dir, name string, entries ...zipEntry) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

// csvArchive writes an archive holding a single UTF-8 CSV entry.
func csvArchive(t *testing.T, dir, name, content string) string {
	t.Helper()
	return writeZip(t, dir, name, zipEntry{name: "data.csv", data: []byte(content)})
}

// toShiftJIS encodes s as Shift_JIS.
func toShiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

// numberedCSV returns a CSV with header "id,name" and n rows.
func numberedCSV(n int) string {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,name%d\n", i, i)
	}
	return b.String()
}

// amountCSV returns a CSV with n rows of which the first missing rows have no amount.
func amountCSV(n, missing int) string {
	var b strings.Builder
	b.WriteString("支出先名,金額\n")
	for i := 0; i < n; i++ {
		if i < missing {
			fmt.Fprintf(&b, "payee%d,\n", i)
			continue
		}
		fmt.Fprintf(&b, "payee%d,%d\n", i, (i+1)*1000)
	}
	return b.String()
}

// newTestImporter builds an importer from src into a database inside t.TempDir.
func newTestImporter(t *testing.T, src string, configure ...func(*ImporterBuilder)) (*Importer, string) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "out", "rs.db")
	b := NewBuilder().SourceDir(src).OutputFile(out)
	for _, fn := range configure {
		fn(b)
	}
	im, err := b.Build(context.Background())
	require.NoError(t, err)
	return im, out
}

// openTestDB opens an existing database for assertions.
func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := OpenReadOnly(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// queryInt runs a query returning a single integer.
func queryInt(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
