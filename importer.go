package rsdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Importer converts a folder of zip archives into one SQLite database with
// a table and a view per archive and an index relation. Create it with
// NewBuilder.
type Importer struct {
	sourceDir   string
	outputFile  string
	tablePrefix string
	indexTable  TableName
	loader      *payloadLoader
	splitRule   SplitRule
	logger      *zap.Logger
}

// runState is the mutable state of one Run. It is created per run and never
// shared, so an Importer can be run repeatedly.
type runState struct {
	writer *tableWriter
	views  *viewNameRegistry
	// tables maps every derived table name to the archive that produced it
	tables  map[string]string
	entries []IndexEntry
}

// newRunState creates the state of one run. The index relation name is
// reserved so no archive view can take it.
func newRunState(writer *tableWriter, indexTable TableName) *runState {
	s := &runState{
		writer: writer,
		views:  newViewNameRegistry(),
		tables: make(map[string]string),
	}
	s.views.reserve(indexTable.String())
	return s
}

// claimTable records a table name for archive. A name derived twice in one
// run means two archives share their first file name segment.
func (s *runState) claimTable(name TableName, archive string) error {
	if prev, ok := s.tables[name.String()]; ok {
		return fmt.Errorf("%w: %s derived from both %s and %s", ErrDuplicateTableName, name, prev, archive)
	}
	s.tables[name.String()] = archive
	s.views.reserve(name.String())
	return nil
}

// Run imports every archive of the source folder into a freshly created
// database. A non-nil error is fatal: no archives, the database cannot be
// created, a duplicate table name, a failure writing the index relation or
// ctx cancellation. Per-archive failures are reported in the RunReport and
// do not stop the run.
func (im *Importer) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{Database: im.outputFile}

	archives, err := scanArchives(im.sourceDir)
	if err != nil {
		return report, err
	}
	im.logger.Info("archives found", zap.String("folder", im.sourceDir), zap.Int("count", len(archives)))

	db, err := createDatabase(ctx, im.outputFile)
	if err != nil {
		return report, err
	}
	defer db.Close()

	state := newRunState(newTableWriter(db), im.indexTable)
	for _, path := range archives {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := im.importArchive(ctx, state, path)
		report.Archives = append(report.Archives, result)
		if err != nil {
			return report, err
		}
	}

	report.Entries = sortEntries(state.entries)
	if len(report.Entries) == 0 {
		msg := "no tables were created; index relation skipped"
		im.logger.Warn(msg, zap.String("index", im.indexTable.String()))
		report.Warnings = append(report.Warnings, msg)
		return report, nil
	}

	if err := writeIndex(ctx, db, im.indexTable, report.Entries); err != nil {
		return report, NewErrorContext("write index", im.outputFile).WithTable(im.indexTable.String()).Error(err)
	}
	report.IndexCreated = true

	im.logger.Info("import finished",
		zap.String("database", im.outputFile),
		zap.Int("archives", len(report.Archives)),
		zap.Int("failed", len(report.Failed())),
		zap.Int("tables", len(report.Entries)),
	)
	return report, nil
}

// importArchive runs DERIVE, LOAD, WRITE and SPLIT for one archive. The
// returned error is fatal; recoverable failures are stored in the result.
func (im *Importer) importArchive(ctx context.Context, state *runState, path string) (ArchiveResult, error) {
	archive := filepath.Base(path)
	result := ArchiveResult{Archive: archive}
	log := im.logger.With(zap.String("archive", archive))

	names := deriveNames(im.tablePrefix, archive)
	tn, err := NewTableName(names.table)
	if err != nil {
		result.Err = err
		log.Error("skipping archive", zap.Error(err))
		return result, nil
	}
	if err := state.claimTable(tn, archive); err != nil {
		result.Err = err
		log.Error("aborting run", zap.Error(err))
		return result, err
	}
	vn, err := NewViewName(state.views.resolve(names.viewCandidate))
	if err != nil {
		result.Err = err
		log.Error("skipping archive", zap.Error(err))
		return result, nil
	}
	log = log.With(zap.String("table", tn.String()), zap.String("view", vn.String()))

	p, err := im.loader.load(ctx, path)
	if err != nil {
		result.Err = NewErrorContext("load payload", archive).Error(err)
		log.Error("skipping archive", zap.Error(err))
		return result, nil
	}
	result.Encoding = p.encoding

	rows, err := state.writer.write(ctx, tn, vn, p.table)
	if err != nil {
		result.Err = NewErrorContext("write table", archive).WithTable(tn.String()).Error(err)
		log.Error("skipping archive", zap.Error(err))
		return result, nil
	}
	entry := IndexEntry{TableName: tn.String(), ViewName: vn.String(), OriginalFilename: archive, RowCount: rows}
	state.entries = append(state.entries, entry)
	result.Entries = append(result.Entries, entry)
	log.Info("imported", zap.String("entry", p.entryName), zap.String("encoding", p.encoding), zap.Int64("rows", rows))

	if !im.splitRule.matches(path) {
		return result, nil
	}
	splitEntries, err := im.splitArchive(ctx, state, names, vn, p.table, archive)
	result.Entries = append(result.Entries, splitEntries...)
	if err != nil {
		if errors.Is(err, ErrDuplicateTableName) {
			result.SplitErr = err
			return result, err
		}
		result.SplitErr = NewErrorContext("split", archive).WithTable(tn.String()).Error(err)
		log.Error("split failed; primary table kept", zap.Error(err))
	}
	return result, nil
}

// splitArchive writes the summary and details partitions of t. It only adds
// tables and views; the primary table is never touched.
func (im *Importer) splitArchive(ctx context.Context, state *runState, names derivedNames, view ViewName, t *table, archive string) ([]IndexEntry, error) {
	summary, details, err := im.splitRule.split(names, view.String(), t)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	for _, part := range []splitPart{summary, details} {
		tn, err := NewTableName(part.table)
		if err != nil {
			return entries, err
		}
		if err := state.claimTable(tn, archive); err != nil {
			return entries, err
		}
		vn, err := NewViewName(state.views.resolve(part.viewCandidate))
		if err != nil {
			return entries, err
		}

		rows, err := state.writer.write(ctx, tn, vn, part.rows)
		if err != nil {
			return entries, fmt.Errorf("failed to write %s: %w", tn, err)
		}
		entry := IndexEntry{TableName: tn.String(), ViewName: vn.String(), OriginalFilename: archive, RowCount: rows}
		state.entries = append(state.entries, entry)
		entries = append(entries, entry)
		im.logger.Info("split partition imported",
			zap.String("archive", archive),
			zap.String("table", tn.String()),
			zap.String("view", vn.String()),
			zap.Int64("rows", rows),
		)
	}
	return entries, nil
}
