// Package rsdb imports budget-execution dataset archives into a single
// SQLite database and provides the lookup, verification, schema and query
// tools that work on the result.
//
// Every archive in the source folder is a zip file whose first entry holds
// one table (CSV, TSV, XLSX or Parquet, optionally gz/bz2/xz/zst compressed).
// Each archive becomes a physical table plus a human-readable view, and an
// index relation maps the original archive file names to the generated
// names so that downstream queries never re-derive them.
//
// # Features
//
//   - UTF-8 decoding with a single Shift_JIS (or any WHATWG encoding) fallback
//   - Per-column type inference (INTEGER, REAL, TEXT) with common missing-value tokens stored as NULL
//   - Unique view names within a run (_2, _3, ... suffixes in scan order)
//   - Configurable split of one archive into summary and details tables
//   - Per-archive results: a broken archive is skipped, the run continues
//   - Schema export (JSON, YAML, CSV) and query result export (CSV, TSV, LTSV, XLSX, Parquet)
//
// # Basic Usage
//
//	importer, err := rsdb.NewBuilder().
//	    SourceDir("download").
//	    OutputFile("data/rs.db").
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := importer.Run(ctx)
//	if err != nil {
//	    log.Fatal(err) // no archives, database not writable, duplicate table name
//	}
//	for _, failed := range report.Failed() {
//	    log.Printf("skipped %s: %v", failed.Archive, failed.Err)
//	}
//
// # Naming
//
// The archive file name without extension is split on "_":
//
//	1-1_RS_2024_基本情報_組織情報.zip
//	│   │  │    └───────┬───────┘
//	│   │  │            view "基本情報_組織情報"
//	│   │  └ fiscal year (ignored)
//	│   └ system (ignored)
//	└ table "tbl_1_1"
//
// Table names are restricted to ASCII letters, digits and "_"; view names may
// contain letters, punctuation and spaces of any script but no '"' or control
// characters. Names outside these sets make the archive fail instead of being
// interpolated into SQL.
//
// # Lookup
//
//	db, err := rsdb.OpenReadOnly(ctx, "data/rs.db")
//	entry, err := rsdb.LookupView(ctx, db, rsdb.DefaultIndexTable, "1-1_RS_2024_基本情報_組織情報.zip")
//	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+entry.ViewName+`"`)
package rsdb
