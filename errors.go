package rsdb

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error values. Fatal errors abort Importer.Run; the rest are
// recorded per archive in ArchiveResult.Err.
var (
	// ErrNoArchives indicates the source folder contains no zip archives
	ErrNoArchives = errors.New("rsdb: no archives found")

	// ErrOpenDatabase indicates the output database file could not be created or opened
	ErrOpenDatabase = errors.New("rsdb: cannot open output database")

	// ErrDuplicateTableName indicates two archives derived the same table name
	ErrDuplicateTableName = errors.New("rsdb: duplicate table name")

	// ErrInvalidIdentifier indicates a derived table or view name contains characters we refuse to interpolate
	ErrInvalidIdentifier = errors.New("rsdb: invalid identifier")

	// ErrDecode indicates the payload could not be decoded with any configured encoding
	ErrDecode = errors.New("rsdb: payload decode failed")

	// ErrEmptyData indicates that the payload contains no header row
	ErrEmptyData = errors.New("rsdb: empty data source")

	// ErrEmptyArchive indicates an archive without any entry
	ErrEmptyArchive = errors.New("rsdb: archive contains no files")

	// ErrUnsupportedFormat indicates an unsupported payload format
	ErrUnsupportedFormat = errors.New("rsdb: unsupported file format")

	// ErrInvalidData indicates malformed or invalid data
	ErrInvalidData = errors.New("rsdb: invalid data format")

	// ErrRowCountMismatch indicates the stored table does not hold every decoded row
	ErrRowCountMismatch = errors.New("rsdb: row count mismatch")

	// ErrColumnNotFound indicates the split amount column is missing from the payload
	ErrColumnNotFound = errors.New("rsdb: column not found")

	// ErrNoIndex indicates the database has no index relation
	ErrNoIndex = errors.New("rsdb: index relation not found")

	// ErrEntryNotFound indicates no index entry matches the requested file name
	ErrEntryNotFound = errors.New("rsdb: index entry not found")

	// ErrEmptyQuery indicates the SQL text is blank
	ErrEmptyQuery = errors.New("rsdb: empty query")
)

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	parts := []string{fmt.Sprintf("rsdb: %s failed", ec.Operation)}

	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}
	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}
	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	msg := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", msg, baseErr)
	}
	return errors.New(msg)
}
