package rsdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExportOptions(t *testing.T) {
	t.Parallel()

	options := NewExportOptions()
	assert.Equal(t, OutputFormatCSV, options.Format)
	assert.Equal(t, CompressionNone, options.Compression)
	assert.True(t, options.BOM)
}

func TestExportOptions_Builders(t *testing.T) {
	t.Parallel()

	base := NewExportOptions()
	options := base.WithFormat(OutputFormatTSV).WithCompression(CompressionGZ).WithBOM(false)

	assert.Equal(t, OutputFormatTSV, options.Format)
	assert.Equal(t, CompressionGZ, options.Compression)
	assert.False(t, options.BOM)
	assert.Equal(t, OutputFormatCSV, base.Format, "builders must not modify the receiver")
}

func TestExportOptions_FileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		format      OutputFormat
		compression CompressionType
		expected    string
	}{
		{"CSV no compression", OutputFormatCSV, CompressionNone, ".csv"},
		{"TSV with GZ", OutputFormatTSV, CompressionGZ, ".tsv.gz"},
		{"LTSV with XZ", OutputFormatLTSV, CompressionXZ, ".ltsv.xz"},
		{"XLSX no compression", OutputFormatXLSX, CompressionNone, ".xlsx"},
		{"Parquet with ZSTD", OutputFormatParquet, CompressionZSTD, ".parquet.zst"},
		{"CSV with BZ2", OutputFormatCSV, CompressionBZ2, ".csv.bz2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			options := NewExportOptions().WithFormat(tt.format).WithCompression(tt.compression)
			assert.Equal(t, tt.expected, options.FileExtension())
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]OutputFormat{
		"csv":      OutputFormatCSV,
		".TSV":     OutputFormatTSV,
		"ltsv":     OutputFormatLTSV,
		".xlsx":    OutputFormatXLSX,
		"parquet":  OutputFormatParquet,
		".Parquet": OutputFormatParquet,
	} {
		got, err := ParseOutputFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseOutputFormat(".json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportOptionsFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path        string
		format      OutputFormat
		compression CompressionType
	}{
		{"results/result.csv", OutputFormatCSV, CompressionNone},
		{"results/result.tsv.gz", OutputFormatTSV, CompressionGZ},
		{"results/result.ltsv", OutputFormatLTSV, CompressionNone},
		{"results/集計.xlsx", OutputFormatXLSX, CompressionNone},
		{"results/result.parquet.zst", OutputFormatParquet, CompressionZSTD},
		{"results/result.txt", OutputFormatCSV, CompressionNone},
		{"results/result", OutputFormatCSV, CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			options := ExportOptionsFromPath(tt.path)
			assert.Equal(t, tt.format, options.Format)
			assert.Equal(t, tt.compression, options.Compression)
			assert.True(t, options.BOM)
		})
	}
}
