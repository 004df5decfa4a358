package rsdb

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputFormat represents the query result file format
type OutputFormat int

const (
	// OutputFormatCSV represents CSV output format
	OutputFormatCSV OutputFormat = iota
	// OutputFormatTSV represents TSV output format
	OutputFormatTSV
	// OutputFormatLTSV represents LTSV output format
	OutputFormatLTSV
	// OutputFormatXLSX represents Excel workbook output format
	OutputFormatXLSX
	// OutputFormatParquet represents Parquet output format
	OutputFormatParquet
)

// String returns the string representation of OutputFormat
func (f OutputFormat) String() string {
	switch f {
	case OutputFormatTSV:
		return "tsv"
	case OutputFormatLTSV:
		return "ltsv"
	case OutputFormatXLSX:
		return "xlsx"
	case OutputFormatParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// Extension returns the file extension for the format
func (f OutputFormat) Extension() string {
	return "." + f.String()
}

// ParseOutputFormat converts a format name such as "tsv" or ".xlsx".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "csv":
		return OutputFormatCSV, nil
	case "tsv":
		return OutputFormatTSV, nil
	case "ltsv":
		return OutputFormatLTSV, nil
	case "xlsx":
		return OutputFormatXLSX, nil
	case "parquet":
		return OutputFormatParquet, nil
	default:
		return OutputFormatCSV, fmt.Errorf("%w: output format %q", ErrUnsupportedFormat, s)
	}
}

// CompressionType represents the compression type
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionBZ2:
		return extBZ2
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// ExportOptions configures how a query result is written to a file.
//
// Example:
//
//	options := NewExportOptions().
//		WithFormat(OutputFormatTSV).
//		WithCompression(CompressionGZ)
//
//	err := ExportResult(result, "./results/out", options)
type ExportOptions struct {
	// Format specifies the output file format
	Format OutputFormat
	// Compression specifies the compression type
	Compression CompressionType
	// BOM prefixes CSV/TSV output with a UTF-8 byte order mark so that
	// spreadsheet applications detect the encoding.
	BOM bool
}

// NewExportOptions creates default export options (CSV with BOM, no compression).
func NewExportOptions() ExportOptions {
	return ExportOptions{
		Format:      OutputFormatCSV,
		Compression: CompressionNone,
		BOM:         true,
	}
}

// WithFormat sets the output file format.
func (o ExportOptions) WithFormat(format OutputFormat) ExportOptions {
	o.Format = format
	return o
}

// WithCompression adds compression to output files.
//
// Options:
//   - CompressionNone: No compression (default)
//   - CompressionGZ: Gzip compression (.gz)
//   - CompressionXZ: XZ compression (.xz)
//   - CompressionZSTD: Zstandard compression (.zst)
//
// CompressionBZ2 is accepted here but rejected when writing.
func (o ExportOptions) WithCompression(compression CompressionType) ExportOptions {
	o.Compression = compression
	return o
}

// WithBOM toggles the UTF-8 byte order mark for delimited text output.
func (o ExportOptions) WithBOM(bom bool) ExportOptions {
	o.BOM = bom
	return o
}

// FileExtension returns the complete file extension including compression
func (o ExportOptions) FileExtension() string {
	return o.Format.Extension() + o.Compression.Extension()
}

// ExportOptionsFromPath derives format and compression from a file name such
// as "result.tsv.gz". Unknown extensions fall back to CSV.
func ExportOptionsFromPath(path string) ExportOptions {
	o := NewExportOptions().WithCompression(detectCompressionType(path))
	ext := filepath.Ext(removeCompressionExtension(path))
	if format, err := ParseOutputFormat(ext); err == nil {
		o.Format = format
	}
	return o
}
