package rsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Verify defaults
const (
	// DefaultSampleViews is the number of views sampled by Verify
	DefaultSampleViews = 3
	// DefaultSampleRows is the number of rows read from each sampled view
	DefaultSampleRows = 5
)

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// IndexTable is the index relation name; empty means DefaultIndexTable
	IndexTable string
	// SampleViews is how many views to sample; negative disables sampling
	SampleViews int
	// SampleRows is how many rows to read per sampled view
	SampleRows int
}

// NewVerifyOptions returns the default options.
func NewVerifyOptions() VerifyOptions {
	return VerifyOptions{
		IndexTable:  DefaultIndexTable,
		SampleViews: DefaultSampleViews,
		SampleRows:  DefaultSampleRows,
	}
}

// RelationCheck compares one index entry with the stored table and view.
type RelationCheck struct {
	Entry     IndexEntry
	TableRows int64
	ViewRows  int64
	Err       error
}

// OK reports whether table and view both hold exactly the indexed row count.
func (c RelationCheck) OK() bool {
	return c.Err == nil && c.TableRows == c.Entry.RowCount && c.ViewRows == c.Entry.RowCount
}

// ViewSample holds the first rows of a view.
type ViewSample struct {
	View   string
	Result *QueryResult
}

// VerifyReport is the result of Verify.
type VerifyReport struct {
	Checks  []RelationCheck
	Samples []ViewSample
}

// OK reports whether every check passed.
func (r *VerifyReport) OK() bool {
	for _, c := range r.Checks {
		if !c.OK() {
			return false
		}
	}
	return true
}

// Verify checks an imported database: every index entry must have a table
// and a view holding the indexed number of rows. ErrNoIndex is returned when
// the index relation is missing; per-relation problems are in the report.
func Verify(ctx context.Context, db *sql.DB, opts VerifyOptions) (*VerifyReport, error) {
	if opts.IndexTable == "" {
		opts.IndexTable = DefaultIndexTable
	}

	entries, err := ReadIndex(ctx, db, opts.IndexTable)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Checks: make([]RelationCheck, 0, len(entries))}
	for _, e := range entries {
		report.Checks = append(report.Checks, checkEntry(ctx, db, e))
	}

	if opts.SampleViews < 0 {
		return report, nil
	}
	for _, c := range report.Checks {
		if len(report.Samples) == opts.SampleViews {
			break
		}
		if !c.OK() {
			continue
		}
		sample, err := sampleView(ctx, db, c.Entry.ViewName, opts.SampleRows)
		if err != nil {
			return report, err
		}
		report.Samples = append(report.Samples, sample)
	}
	return report, nil
}

func checkEntry(ctx context.Context, db *sql.DB, e IndexEntry) RelationCheck {
	c := RelationCheck{Entry: e}

	tn, err := NewTableName(e.TableName)
	if err != nil {
		c.Err = err
		return c
	}
	vn, err := NewViewName(e.ViewName)
	if err != nil {
		c.Err = err
		return c
	}
	if c.TableRows, err = countRows(ctx, db, tn.Quoted()); err != nil {
		c.Err = err
		return c
	}
	if c.ViewRows, err = countRows(ctx, db, vn.Quoted()); err != nil {
		c.Err = err
		return c
	}
	if c.TableRows != e.RowCount || c.ViewRows != e.RowCount {
		c.Err = fmt.Errorf("%w: indexed %d, table %d, view %d", ErrRowCountMismatch, e.RowCount, c.TableRows, c.ViewRows)
	}
	return c
}

func sampleView(ctx context.Context, db *sql.DB, view string, limit int) (ViewSample, error) {
	vn, err := NewViewName(view)
	if err != nil {
		return ViewSample{}, err
	}
	result, err := collectRows(ctx, db, "SELECT * FROM "+vn.Quoted()+" LIMIT ?", limit)
	if err != nil {
		return ViewSample{}, NewErrorContext("sample", "").WithTable(view).Error(err)
	}
	return ViewSample{View: view, Result: result}, nil
}

// LookupViews returns every index entry created from originalFilename,
// ordered by table name. For a split archive the primary entry comes first
// because split tables extend its name.
func LookupViews(ctx context.Context, db *sql.DB, indexTable, originalFilename string) ([]IndexEntry, error) {
	entries, err := ReadIndex(ctx, db, indexTable)
	if err != nil {
		return nil, err
	}

	var matched []IndexEntry
	for _, e := range entries {
		if e.OriginalFilename == originalFilename {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, originalFilename)
	}
	return matched, nil
}

// LookupView returns the primary index entry of an archive, which names the
// view downstream queries should select from.
func LookupView(ctx context.Context, db *sql.DB, indexTable, originalFilename string) (IndexEntry, error) {
	entries, err := LookupViews(ctx, db, indexTable, originalFilename)
	if err != nil {
		return IndexEntry{}, err
	}
	return entries[0], nil
}
