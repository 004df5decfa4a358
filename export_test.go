package rsdb

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResult() *QueryResult {
	return &QueryResult{
		Columns: []string{"府省庁", "予算", "備考"},
		Rows: [][]any{
			{"内閣府", int64(100), "a\tb"},
			{"総務省", 2.5, nil},
			{[]byte("外務省"), nil, "c,d"},
		},
	}
}

func TestWriteResult(t *testing.T) {
	t.Parallel()

	t.Run("CSV with BOM", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, sampleResult(), NewExportOptions()))
		assert.Equal(t, byteOrderMark+"府省庁,予算,備考\n内閣府,100,a\tb\n総務省,2.5,\n外務省,,\"c,d\"\n", buf.String())
	})

	t.Run("TSV without BOM", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		opts := NewExportOptions().WithFormat(OutputFormatTSV).WithBOM(false)
		require.NoError(t, WriteResult(&buf, sampleResult(), opts))
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "府省庁\t予算\t備考", lines[0])
		assert.Equal(t, "総務省\t2.5\t", lines[2])
	})

	t.Run("LTSV omits NULL values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, sampleResult(), NewExportOptions().WithFormat(OutputFormatLTSV)))
		assert.Equal(t,
			"府省庁:内閣府\t予算:100\t備考:a b\n府省庁:総務省\t予算:2.5\n府省庁:外務省\t備考:c,d\n",
			buf.String())
	})

	t.Run("XLSX", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, sampleResult(), NewExportOptions().WithFormat(OutputFormatXLSX)))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(defaultSheet)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"府省庁", "予算", "備考"}, rows[0])
		assert.Equal(t, "内閣府", rows[1][0])
		assert.Equal(t, "100", rows[1][1])
		assert.Equal(t, "外務省", rows[3][0])
	})

	t.Run("Parquet", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, sampleResult(), NewExportOptions().WithFormat(OutputFormatParquet)))

		tbl, err := parseParquet(context.Background(), buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, header{"府省庁", "予算", "備考"}, tbl.getHeader())
		assert.Equal(t, []Record{
			{"内閣府", "100", "a\tb"},
			{"総務省", "2.5", ""},
			{"外務省", "", "c,d"},
		}, tbl.getRecords())
	})

	t.Run("gzip compressed CSV", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, sampleResult(), NewExportOptions().WithCompression(CompressionGZ)))

		reader, closer, err := NewCompressionHandler(CompressionGZ).CreateReader(&buf)
		require.NoError(t, err)
		defer closer() //nolint:errcheck // test

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), byteOrderMark+"府省庁,予算,備考\n"))
	})

	t.Run("bzip2 is not writable", func(t *testing.T) {
		t.Parallel()

		err := WriteResult(io.Discard, sampleResult(), NewExportOptions().WithCompression(CompressionBZ2))
		assert.Error(t, err)
	})

	t.Run("empty result keeps the header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		empty := &QueryResult{Columns: []string{"a", "b"}}
		require.NoError(t, WriteResult(&buf, empty, NewExportOptions().WithBOM(false)))
		assert.Equal(t, "a,b\n", buf.String())
	})
}

func TestExportResult(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "results", "nested", "result.tsv.zst")
		require.NoError(t, ExportResult(sampleResult(), path, ExportOptionsFromPath(path)))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		reader, closer, err := NewCompressionHandler(CompressionZSTD).CreateReader(f)
		require.NoError(t, err)
		defer closer() //nolint:errcheck // test

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Contains(t, string(data), "府省庁\t予算\t備考\n")
	})

	t.Run("nil result", func(t *testing.T) {
		t.Parallel()

		assert.Error(t, ExportResult(nil, filepath.Join(t.TempDir(), "r.csv"), NewExportOptions()))
	})

	t.Run("unwritable path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		blocker := filepath.Join(dir, "results")
		require.NoError(t, os.WriteFile(blocker, nil, 0o600))

		err := ExportResult(sampleResult(), filepath.Join(blocker, "r.csv"), NewExportOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export result failed")
	})
}
