package rsdb

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet name of a new excelize workbook
const defaultSheet = "Sheet1"

// ExportResult writes a query result to path. Parent directories are created.
//
// Example usage:
//
//	result, err := rsdb.RunQuery(ctx, db, "SELECT * FROM \"基本情報_組織情報\"")
//	if err != nil {
//		return err
//	}
//	err = rsdb.ExportResult(result, "results/org.tsv.gz",
//		rsdb.NewExportOptions().WithFormat(rsdb.OutputFormatTSV).WithCompression(rsdb.CompressionGZ))
func ExportResult(result *QueryResult, path string, opts ExportOptions) (err error) {
	if result == nil {
		return errors.New("query result cannot be nil")
	}
	ectx := NewErrorContext("export result", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ectx.Error(err)
	}
	file, err := os.Create(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return ectx.Error(err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = ectx.Error(cerr)
		}
	}()

	if err := WriteResult(file, result, opts); err != nil {
		return ectx.Error(err)
	}
	return nil
}

// WriteResult encodes a query result into w using the given format and compression.
func WriteResult(w io.Writer, result *QueryResult, opts ExportOptions) error {
	handler := NewCompressionHandler(opts.Compression)
	cw, closer, err := handler.CreateWriter(w)
	if err != nil {
		return err
	}

	switch opts.Format {
	case OutputFormatTSV:
		err = writeDelimited(cw, result, tsvDelimiter, opts.BOM)
	case OutputFormatLTSV:
		err = writeLTSV(cw, result)
	case OutputFormatXLSX:
		err = writeXLSX(cw, result)
	case OutputFormatParquet:
		err = writeParquet(cw, result)
	default:
		err = writeDelimited(cw, result, csvDelimiter, opts.BOM)
	}
	if err != nil {
		_ = closer()
		return err
	}
	return closer()
}

func writeDelimited(w io.Writer, result *QueryResult, delimiter rune, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, byteOrderMark); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.StringRows() {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ltsvEscaper replaces characters that would break an LTSV line
var ltsvEscaper = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// writeLTSV writes label:value pairs separated by tabs. NULL values are omitted.
func writeLTSV(w io.Writer, result *QueryResult) error {
	var b strings.Builder
	for _, row := range result.Rows {
		b.Reset()
		first := true
		for i, v := range row {
			s, ok := formatValue(v)
			if !ok {
				continue
			}
			if !first {
				b.WriteByte('\t')
			}
			first = false
			b.WriteString(result.Columns[i])
			b.WriteByte(':')
			b.WriteString(ltsvEscaper.Replace(s))
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeXLSX(w io.Writer, result *QueryResult) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() // Ignore close error
	}()

	header := make([]any, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(defaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write XLSX header: %w", err)
	}

	for i, row := range result.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			values[j] = v
		}
		if err := f.SetSheetRow(defaultSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write XLSX row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}

// writeParquet writes every column as a nullable UTF-8 string column.
func writeParquet(w io.Writer, result *QueryResult) error {
	fields := make([]arrow.Field, len(result.Columns))
	for i, c := range result.Columns {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for _, row := range result.Rows {
		for i, v := range row {
			sb, ok := builder.Field(i).(*array.StringBuilder)
			if !ok {
				return fmt.Errorf("unexpected builder for column %s", result.Columns[i])
			}
			if s, ok := formatValue(v); ok {
				sb.Append(s)
			} else {
				sb.AppendNull()
			}
		}
	}
	record := builder.NewRecord()
	defer record.Release()

	// The parquet writer closes its sink, so encode into memory first and
	// leave the compression writer to the caller.
	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	_, err = buf.WriteTo(w)
	return err
}
