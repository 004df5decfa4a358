package rsdb

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// payloadFormat is the format of the data file stored inside an archive
type payloadFormat int

const (
	// payloadFormatCSV is comma separated text; also used for unknown extensions
	payloadFormatCSV payloadFormat = iota
	// payloadFormatTSV is tab separated text
	payloadFormatTSV
	// payloadFormatXLSX is an Excel workbook; only the first sheet is read
	payloadFormatXLSX
	// payloadFormatParquet is an Apache Parquet file
	payloadFormatParquet
)

// Payload file extensions
const (
	extCSV     = ".csv"
	extTSV     = ".tsv"
	extXLSX    = ".xlsx"
	extParquet = ".parquet"
)

func (f payloadFormat) String() string {
	switch f {
	case payloadFormatTSV:
		return "tsv"
	case payloadFormatXLSX:
		return "xlsx"
	case payloadFormatParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// isText reports whether the format goes through the encoding fallback.
func (f payloadFormat) isText() bool {
	return f == payloadFormatCSV || f == payloadFormatTSV
}

// detectPayloadFormat detects the payload format from an entry name,
// ignoring a compression extension.
func detectPayloadFormat(name string) payloadFormat {
	ext := strings.ToLower(filepath.Ext(removeCompressionExtension(name)))
	switch ext {
	case extTSV:
		return payloadFormatTSV
	case extXLSX:
		return payloadFormatXLSX
	case extParquet:
		return payloadFormatParquet
	default:
		return payloadFormatCSV
	}
}

// payload is the decoded content of one archive.
type payload struct {
	// entryName is the name of the zip entry that was read
	entryName string
	// format is the detected payload format
	format payloadFormat
	// encoding is the text encoding that decoded the payload; empty for binary formats
	encoding string
	table    *table
}

// payloadLoader reads the first data file of an archive into a table.
type payloadLoader struct {
	decoder *textDecoder
}

func newPayloadLoader(decoder *textDecoder) *payloadLoader {
	return &payloadLoader{decoder: decoder}
}

// load opens the archive, reads its first file entry and parses it.
// Additional entries are ignored.
func (l *payloadLoader) load(ctx context.Context, archivePath string) (*payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	entry := firstFileEntry(zr.File)
	if entry == nil {
		return nil, ErrEmptyArchive
	}

	data, err := readEntry(entry)
	if err != nil {
		return nil, err
	}

	p := &payload{
		entryName: entry.Name,
		format:    detectPayloadFormat(entry.Name),
	}
	switch p.format {
	case payloadFormatXLSX:
		p.table, err = parseXLSX(data)
	case payloadFormatParquet:
		p.table, err = parseParquet(ctx, data)
	default:
		var text string
		text, p.encoding, err = l.decoder.decode(data)
		if err != nil {
			return nil, err
		}
		delimiter := csvDelimiter
		if p.format == payloadFormatTSV {
			delimiter = tsvDelimiter
		}
		p.table, err = parseDelimited(text, delimiter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s payload %s: %w", p.format, entry.Name, err)
	}
	return p, nil
}

// firstFileEntry returns the first entry that is not a directory.
func firstFileEntry(files []*zip.File) *zip.File {
	for _, f := range files {
		if !f.FileInfo().IsDir() {
			return f
		}
	}
	return nil
}

// readEntry reads a zip entry fully, decompressing an inner gz/bz2/xz/zst layer.
func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	handler := NewCompressionHandler(detectCompressionType(entry.Name))
	reader, closer, err := handler.CreateReader(rc)
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // read-only decompressor

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
	}
	return data, nil
}

// parseDelimited parses decoded CSV or TSV text. The first row is the header.
// A bare quote inside an unquoted field is kept as a literal character.
func parseDelimited(text string, delimiter rune) (*table, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return rowsToTable(rows)
}

// rowsToTable turns raw rows into a table. Leading empty rows are skipped,
// the next row is the header. A data row with more cells than the header is
// rejected instead of silently truncated.
func rowsToTable(rows [][]string) (*table, error) {
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}

	h := newHeader(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(h) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrInvalidData, i+2, len(row), len(h))
		}
		records = append(records, newRecord(row))
	}
	return newTable(h, records), nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseXLSX reads the first sheet of a workbook.
func parseXLSX(data []byte) (*table, error) {
	xlsxFile, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer func() {
		_ = xlsxFile.Close() // Ignore close error
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, errors.New("no sheets found in XLSX file")
	}

	sheetName := sheetNames[0]
	rows, err := xlsxFile.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	// excelize trims trailing empty cells, so a row may be shorter than the
	// header but never legitimately longer.
	return rowsToTable(rows)
}

// parseParquet reads all row groups of a Parquet file. Values are kept in
// their string form and re-typed by column inference like the text formats.
func parseParquet(ctx context.Context, data []byte) (*table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader from bytes: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	arrowTable, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer arrowTable.Release()

	schema := arrowTable.Schema()
	names := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		names[i] = field.Name
	}
	h := newHeader(names)

	tableReader := array.NewTableReader(arrowTable, 0)
	defer tableReader.Release()

	records := make([]Record, 0, arrowTable.NumRows())
	for tableReader.Next() {
		batch := tableReader.Record()
		for i := range int(batch.NumRows()) {
			row := make(Record, batch.NumCols())
			for j, col := range batch.Columns() {
				if col.IsNull(i) {
					continue
				}
				row[j] = col.ValueStr(i)
			}
			records = append(records, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("error reading table records: %w", err)
	}

	return newTable(h, records), nil
}
