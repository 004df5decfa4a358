package rsdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ImporterBuilder configures an Importer. Use NewBuilder to create one,
// chain the setters, then call Build.
//
// The typical usage pattern is:
//
//	importer, err := rsdb.NewBuilder().
//		SourceDir("download").
//		OutputFile("data/rs.db").
//		WithLogger(logger).
//		Build(ctx)
//	if err != nil {
//		return err
//	}
//	report, err := importer.Run(ctx)
type ImporterBuilder struct {
	sourceDir        string
	outputFile       string
	tablePrefix      string
	indexTable       string
	primaryEncoding  string
	fallbackEncoding string
	splitRule        SplitRule
	logger           *zap.Logger
}

// NewBuilder creates a builder with default settings: table prefix "tbl_",
// index relation "table_index", UTF-8 with Shift_JIS fallback and the
// default split rule.
func NewBuilder() *ImporterBuilder {
	return &ImporterBuilder{
		tablePrefix:      DefaultTablePrefix,
		indexTable:       DefaultIndexTable,
		primaryEncoding:  DefaultPrimaryEncoding,
		fallbackEncoding: DefaultFallbackEncoding,
		splitRule:        DefaultSplitRule(),
	}
}

// SourceDir sets the folder scanned for zip archives.
func (b *ImporterBuilder) SourceDir(dir string) *ImporterBuilder {
	b.sourceDir = dir
	return b
}

// OutputFile sets the database file. It is deleted and rebuilt by every run.
func (b *ImporterBuilder) OutputFile(path string) *ImporterBuilder {
	b.outputFile = path
	return b
}

// WithTablePrefix sets the literal prepended to every derived table name.
func (b *ImporterBuilder) WithTablePrefix(prefix string) *ImporterBuilder {
	b.tablePrefix = prefix
	return b
}

// WithIndexTable sets the name of the lookup relation.
func (b *ImporterBuilder) WithIndexTable(name string) *ImporterBuilder {
	b.indexTable = name
	return b
}

// WithEncodings sets the primary and fallback text encodings. Names are
// WHATWG labels such as "utf-8", "shift_jis" or "euc-jp". An empty fallback
// disables the second attempt.
func (b *ImporterBuilder) WithEncodings(primary, fallback string) *ImporterBuilder {
	b.primaryEncoding = primary
	b.fallbackEncoding = fallback
	return b
}

// WithSplitRule replaces the split rule.
func (b *ImporterBuilder) WithSplitRule(rule SplitRule) *ImporterBuilder {
	b.splitRule = rule
	return b
}

// WithoutSplit disables split post-processing.
func (b *ImporterBuilder) WithoutSplit() *ImporterBuilder {
	b.splitRule = SplitRule{}
	return b
}

// WithLogger sets the logger. A nil logger discards all output.
func (b *ImporterBuilder) WithLogger(logger *zap.Logger) *ImporterBuilder {
	b.logger = logger
	return b
}

// Build validates the configuration and returns a ready Importer.
// All problems are reported together.
func (b *ImporterBuilder) Build(ctx context.Context) (*Importer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := newValidator()
	var errs []error
	if err := v.validateSourceDir(b.sourceDir); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateOutputFile(b.outputFile); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateTablePrefix(b.tablePrefix); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateSplitRule(b.splitRule); err != nil {
		errs = append(errs, err)
	}

	indexTable, err := NewTableName(b.indexTable)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid index table: %w", err))
	}
	decoder, err := newTextDecoder(b.primaryEncoding, b.fallbackEncoding)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Importer{
		sourceDir:   b.sourceDir,
		outputFile:  b.outputFile,
		tablePrefix: b.tablePrefix,
		indexTable:  indexTable,
		loader:      newPayloadLoader(decoder),
		splitRule:   b.splitRule,
		logger:      logger,
	}, nil
}
