package rsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// QueryResult holds the columns and rows of one SELECT.
type QueryResult struct {
	Columns []string
	// Rows holds driver values: nil, int64, float64, string, []byte or time.Time
	Rows [][]any
}

// Len returns the number of rows.
func (r *QueryResult) Len() int {
	return len(r.Rows)
}

// StringRows returns every value formatted as text. NULL becomes "".
func (r *QueryResult) StringRows() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j], _ = formatValue(v)
		}
	}
	return out
}

// formatValue renders a driver value as text. The second result is false for NULL.
func formatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case time.Time:
		return val.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(val), true
	}
}

// ResolveQueryPath picks the SQL file to run. An empty arg selects
// defaultFile. A bare file name (no directory) other than defaultFile is
// looked up in queryDir first and used as given when it is not there.
func ResolveQueryPath(arg, queryDir, defaultFile string) string {
	path := arg
	if path == "" {
		path = defaultFile
	}
	if queryDir == "" || filepath.Dir(path) != "." || filepath.Base(path) == filepath.Base(defaultFile) {
		return path
	}

	candidate := filepath.Join(queryDir, path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// ReadQueryFile reads SQL text from path.
func ReadQueryFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return "", NewErrorContext("read query", path).Error(err)
	}
	return string(data), nil
}

// RunQuery executes query and collects the complete result.
func RunQuery(ctx context.Context, db *sql.DB, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return collectRows(ctx, db, query)
}

func collectRows(ctx context.Context, q queryer, query string, args ...any) (*QueryResult, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}
