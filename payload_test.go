package rsdb

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *payloadLoader {
	t.Helper()

	d, err := newTextDecoder(DefaultPrimaryEncoding, DefaultFallbackEncoding)
	require.NoError(t, err)
	return newPayloadLoader(d)
}

func encodeResult(t *testing.T, result *QueryResult, format OutputFormat) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, result, NewExportOptions().WithFormat(format).WithBOM(false)))
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDetectPayloadFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry string
		want  payloadFormat
	}{
		{"csv", "data.csv", payloadFormatCSV},
		{"upper case csv", "DATA.CSV", payloadFormatCSV},
		{"tsv", "data.tsv", payloadFormatTSV},
		{"compressed tsv", "data.tsv.gz", payloadFormatTSV},
		{"xlsx", "data.xlsx", payloadFormatXLSX},
		{"parquet", "nested/data.parquet", payloadFormatParquet},
		{"unknown extension", "data.txt", payloadFormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectPayloadFormat(tt.entry))
		})
	}
}

func TestParseDelimited(t *testing.T) {
	t.Parallel()

	t.Run("header and rows", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("府省庁,金額\n内閣府,100\n総務省,\n", csvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, header{"府省庁", "金額"}, tbl.getHeader())
		assert.Equal(t, []Record{{"内閣府", "100"}, {"総務省", ""}}, tbl.getRecords())
	})

	t.Run("quoted fields keep delimiters and newlines", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("name,note\n\"a,b\",\"line1\nline2\"\n", csvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, []Record{{"a,b", "line1\nline2"}}, tbl.getRecords())
	})

	t.Run("leading blank rows are skipped", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited(",,\nid,name,age\n1,a,2\n", csvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name", "age"}, tbl.getHeader())
		assert.Equal(t, 1, tbl.rowCount())
	})

	t.Run("short rows are padded", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("a\tb\tc\n1\n", tsvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, []Record{{"1", "", ""}}, tbl.getRecords())
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("id,name\n", csvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.rowCount())
	})

	t.Run("row longer than header", func(t *testing.T) {
		t.Parallel()

		_, err := parseDelimited("a,b\n1,2,3\n", csvDelimiter)
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("bare quote in unquoted field is literal", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("a,b\n1,12\"b\n2,x\n", csvDelimiter)
		require.NoError(t, err)
		assert.Equal(t, []Record{{"1", `12"b`}, {"2", "x"}}, tbl.getRecords())
	})

	t.Run("unterminated quote runs to the end of the text", func(t *testing.T) {
		t.Parallel()

		tbl, err := parseDelimited("a,b\n\"x,1\n", csvDelimiter)
		require.NoError(t, err)
		require.Equal(t, 1, tbl.rowCount())
		assert.Contains(t, tbl.getRecords()[0][0], "x,1")
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()

		_, err := parseDelimited("", csvDelimiter)
		assert.ErrorIs(t, err, ErrEmptyData)
	})
}

func TestPayloadLoader_Load(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sample := &QueryResult{
		Columns: []string{"府省庁", "金額"},
		Rows:    [][]any{{"内閣府", int64(100)}, {"総務省", nil}},
	}

	t.Run("UTF-8 CSV", func(t *testing.T) {
		t.Parallel()

		path := csvArchive(t, t.TempDir(), "1-1_RS_2024_a.zip", "府省庁,金額\n内閣府,100\n")
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "data.csv", p.entryName)
		assert.Equal(t, payloadFormatCSV, p.format)
		assert.Equal(t, DefaultPrimaryEncoding, p.encoding)
		assert.Equal(t, 1, p.table.rowCount())
	})

	t.Run("Shift_JIS CSV", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "data.csv", data: toShiftJIS(t, "府省庁,金額\n内閣府,100\n")})
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, DefaultFallbackEncoding, p.encoding)
		assert.Equal(t, header{"府省庁", "金額"}, p.table.getHeader())
		assert.Equal(t, Record{"内閣府", "100"}, p.table.getRecords()[0])
	})

	t.Run("gzip compressed TSV", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "data.tsv.gz", data: gzipBytes(t, []byte("id\tname\n1\ta\n2\tb\n"))})
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, payloadFormatTSV, p.format)
		assert.Equal(t, 2, p.table.rowCount())
	})

	t.Run("XLSX", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "data.xlsx", data: encodeResult(t, sample, OutputFormatXLSX)})
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, payloadFormatXLSX, p.format)
		assert.Empty(t, p.encoding)
		assert.Equal(t, header{"府省庁", "金額"}, p.table.getHeader())
		assert.Equal(t, []Record{{"内閣府", "100"}, {"総務省", ""}}, p.table.getRecords())
	})

	t.Run("Parquet", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "data.parquet", data: encodeResult(t, sample, OutputFormatParquet)})
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, payloadFormatParquet, p.format)
		assert.Equal(t, header{"府省庁", "金額"}, p.table.getHeader())
		assert.Equal(t, []Record{{"内閣府", "100"}, {"総務省", ""}}, p.table.getRecords())
	})

	t.Run("first file entry wins", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "docs/"},
			zipEntry{name: "docs/first.csv", data: []byte("a\n1\n")},
			zipEntry{name: "second.csv", data: []byte("b\n1\n2\n")})
		p, err := newTestLoader(t).load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "docs/first.csv", p.entryName)
		assert.Equal(t, header{"a"}, p.table.getHeader())
	})

	t.Run("archive without files", func(t *testing.T) {
		t.Parallel()

		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip", zipEntry{name: "empty/"})
		_, err := newTestLoader(t).load(ctx, path)
		assert.ErrorIs(t, err, ErrEmptyArchive)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()

		path := csvArchive(t, t.TempDir(), "1-1_RS_2024_a.zip", "")
		_, err := newTestLoader(t).load(ctx, path)
		assert.ErrorIs(t, err, ErrEmptyData)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		t.Parallel()

		d, err := newTextDecoder(DefaultPrimaryEncoding, "")
		require.NoError(t, err)
		path := writeZip(t, t.TempDir(), "1-1_RS_2024_a.zip",
			zipEntry{name: "data.csv", data: toShiftJIS(t, "府省庁\n内閣府\n")})
		_, err = newPayloadLoader(d).load(ctx, path)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("not a zip file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "1-1_RS_2024_a.zip")
		require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))
		_, err := newTestLoader(t).load(ctx, path)
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		path := csvArchive(t, t.TempDir(), "1-1_RS_2024_a.zip", "a\n1\n")
		_, err := newTestLoader(t).load(cctx, path)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
