package rsdb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ColumnSchema describes one column as reported by PRAGMA table_info.
type ColumnSchema struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	NotNull bool   `json:"notnull" yaml:"notnull"`
	PK      bool   `json:"pk" yaml:"pk"`
}

// TableSchema describes one indexed table.
type TableSchema struct {
	ViewName         string         `json:"view_name" yaml:"view_name"`
	OriginalFilename string         `json:"original_filename" yaml:"original_filename"`
	RowCount         int64          `json:"row_count" yaml:"row_count"`
	Columns          []ColumnSchema `json:"columns" yaml:"columns"`
}

// SchemaDocument maps table names to their schema. Encoders emit the keys
// in sorted order.
type SchemaDocument map[string]TableSchema

// ExportSchema reads the schema of every table listed in the index relation.
func ExportSchema(ctx context.Context, db *sql.DB, indexTable string) (SchemaDocument, error) {
	entries, err := ReadIndex(ctx, db, indexTable)
	if err != nil {
		return nil, err
	}

	doc := make(SchemaDocument, len(entries))
	for _, e := range entries {
		columns, err := tableColumns(ctx, db, e.TableName)
		if err != nil {
			return nil, NewErrorContext("export schema", "").WithTable(e.TableName).Error(err)
		}
		doc[e.TableName] = TableSchema{
			ViewName:         e.ViewName,
			OriginalFilename: e.OriginalFilename,
			RowCount:         e.RowCount,
			Columns:          columns,
		}
	}
	return doc, nil
}

// tableColumns runs PRAGMA table_info for a validated table name.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]ColumnSchema, error) {
	tn, err := NewTableName(table)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+tn.Quoted()+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	var columns []ColumnSchema
	for rows.Next() {
		var (
			cid       int
			col       ColumnSchema
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		col.NotNull = notNull != 0
		col.PK = pk != 0
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// tableKeys returns the table names in sorted order.
func (d SchemaDocument) tableKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteJSON writes the document as indented JSON with non-ASCII text kept as is.
func (d SchemaDocument) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode schema as JSON: %w", err)
	}
	return nil
}

// WriteYAML writes the document as YAML.
func (d SchemaDocument) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode schema as YAML: %w", err)
	}
	return enc.Close()
}

// schemaCSVHeader is the header of the flattened schema listing.
var schemaCSVHeader = []string{
	"table_key", "view_name", "original_filename", "column_name", "column_type", "notnull", "pk",
}

// WriteCSV writes one row per column. The output starts with a UTF-8 BOM
// so that spreadsheet applications read the Japanese names correctly.
func (d SchemaDocument) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, byteOrderMark); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(schemaCSVHeader); err != nil {
		return err
	}
	for _, key := range d.tableKeys() {
		t := d[key]
		for _, c := range t.Columns {
			record := []string{
				key, t.ViewName, t.OriginalFilename, c.Name, c.Type,
				strconv.FormatBool(c.NotNull), strconv.FormatBool(c.PK),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSchemaJSON decodes a document written by WriteJSON.
func ReadSchemaJSON(r io.Reader) (SchemaDocument, error) {
	var d SchemaDocument
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: schema JSON: %w", ErrInvalidData, err)
	}
	return d, nil
}
