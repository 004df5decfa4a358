package rsdb

import (
	"errors"
	"fmt"
)

// ArchiveResult is the outcome of importing one archive. Err is nil on
// success; otherwise the archive was skipped and nothing it produced remains
// in the database.
type ArchiveResult struct {
	// Archive is the archive file name without directory
	Archive string
	// Entries lists the table/view pairs created for the archive: the
	// primary pair first, then split partitions if any.
	Entries []IndexEntry
	// Encoding is the text encoding that decoded the payload
	Encoding string
	// Err is the reason the archive was skipped
	Err error
	// SplitErr is set when the primary table was written but splitting failed
	SplitErr error
}

// Succeeded reports whether the primary table and view were created.
func (r ArchiveResult) Succeeded() bool {
	return r.Err == nil
}

// RunReport aggregates the results of one import run.
type RunReport struct {
	// Database is the output database file
	Database string
	// Archives holds one result per scanned archive in scan order
	Archives []ArchiveResult
	// Entries is the content of the index relation, sorted by table name
	Entries []IndexEntry
	// IndexCreated is false when no entry was collected
	IndexCreated bool
	// Warnings collects non-fatal conditions such as an empty index
	Warnings []string
}

// Succeeded returns the results of archives that were imported.
func (r *RunReport) Succeeded() []ArchiveResult {
	var out []ArchiveResult
	for _, a := range r.Archives {
		if a.Succeeded() {
			out = append(out, a)
		}
	}
	return out
}

// Failed returns the results of archives that were skipped.
func (r *RunReport) Failed() []ArchiveResult {
	var out []ArchiveResult
	for _, a := range r.Archives {
		if !a.Succeeded() {
			out = append(out, a)
		}
	}
	return out
}

// Err joins the per-archive failures, including split failures.
// It returns nil when every archive was imported completely.
func (r *RunReport) Err() error {
	var errs []error
	for _, a := range r.Archives {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Archive, a.Err))
		}
		if a.SplitErr != nil {
			errs = append(errs, fmt.Errorf("%s: split: %w", a.Archive, a.SplitErr))
		}
	}
	return errors.Join(errs...)
}
