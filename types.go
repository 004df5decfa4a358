package rsdb

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Character validation constants
const (
	// underscoreChar represents the underscore character
	underscoreChar = '_'
	// doubleQuoteChar is the SQL identifier quote, never allowed in view names
	doubleQuoteChar = '"'
)

// File format delimiters
const (
	// csvDelimiter is the delimiter for CSV files
	csvDelimiter = ','
	// tsvDelimiter is the delimiter for TSV files
	tsvDelimiter = '\t'
)

// naValues are the cell values stored as SQL NULL. The downstream analysis
// queries rely on exactly this set being treated as missing.
var naValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// isMissing reports whether a raw cell value is a missing value.
func isMissing(value string) bool {
	_, ok := naValues[value]
	return ok
}

// header is file header.
type header []string

// newHeader creates a header from raw column names. Blank names become
// "Unnamed: <i>" and repeated names get ".1", ".2", ... suffixes so that every
// column can be created in SQL.
func newHeader(raw []string) header {
	h := make(header, len(raw))
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for n := seen[name]; ; n++ {
			if n > 0 {
				candidate = name + "." + strconv.Itoa(n)
			}
			if _, dup := seen[candidate]; !dup {
				seen[name] = n + 1
				break
			}
		}
		seen[candidate] = 1
		h[i] = candidate
	}
	return h
}

// indexOf returns the position of a column, or -1.
func (h header) indexOf(name string) int {
	for i, v := range h {
		if v == name {
			return i
		}
	}
	return -1
}

// Record represents one payload row as a slice of string fields.
type Record []string

// newRecord create new record.
func newRecord(r []string) Record {
	return Record(r)
}

// columnType represents the SQL column type
type columnType int

const (
	// columnTypeText represents TEXT column type
	columnTypeText columnType = iota
	// columnTypeInteger represents INTEGER column type
	columnTypeInteger
	// columnTypeReal represents REAL column type
	columnTypeReal
	// columnTypeDatetime represents datetime stored as TEXT in ISO8601 format
	columnTypeDatetime
)

const (
	sqlTypeText    = "TEXT"
	sqlTypeInteger = "INTEGER"
	sqlTypeReal    = "REAL"
)

// String returns the SQL column type string
func (ct columnType) String() string {
	switch ct {
	case columnTypeInteger:
		return sqlTypeInteger
	case columnTypeReal:
		return sqlTypeReal
	default:
		// SQLite stores datetime as TEXT
		return sqlTypeText
	}
}

// convert turns a raw cell into the value bound to the INSERT statement.
// Missing values become nil (SQL NULL). A value that does not parse as the
// column type is kept as text rather than dropped.
func (ct columnType) convert(value string) any {
	if isMissing(value) {
		return nil
	}
	switch ct {
	case columnTypeInteger:
		if v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return v
		}
	case columnTypeReal:
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return value
}

// columnInfo represents column information with name and inferred type
type columnInfo struct {
	Name string
	Type columnType
}

// TableName is a validated physical table name. Table names come from
// archive file names, so only ASCII letters, digits and underscores are
// accepted and the first character must not be a digit.
type TableName struct {
	value string
}

// NewTableName validates name and returns it as a TableName.
func NewTableName(name string) (TableName, error) {
	if name == "" {
		return TableName{}, fmt.Errorf("%w: empty table name", ErrInvalidIdentifier)
	}
	for i, r := range name {
		switch {
		case r == underscoreChar:
		case r <= unicode.MaxASCII && unicode.IsLetter(r):
		case r <= unicode.MaxASCII && unicode.IsDigit(r) && i > 0:
		default:
			return TableName{}, fmt.Errorf("%w: table name %q contains %q", ErrInvalidIdentifier, name, r)
		}
	}
	return TableName{value: name}, nil
}

// String returns the string representation of TableName
func (tn TableName) String() string {
	return tn.value
}

// Quoted returns the name as a quoted SQL identifier.
func (tn TableName) Quoted() string {
	return quoteIdent(tn.value)
}

// ViewName is a validated human-readable view name.
type ViewName struct {
	value string
}

// NewViewName validates name and returns it as a ViewName. Letters, digits,
// punctuation, symbols and spaces of any script are allowed, so titles such
// as "政策・施策、法令等" keep their shape. Control characters and '"' are
// rejected.
func NewViewName(name string) (ViewName, error) {
	if name == "" {
		return ViewName{}, fmt.Errorf("%w: empty view name", ErrInvalidIdentifier)
	}
	for _, r := range name {
		if !isViewNameRune(r) {
			return ViewName{}, fmt.Errorf("%w: view name %q contains %q", ErrInvalidIdentifier, name, r)
		}
	}
	return ViewName{value: name}, nil
}

func isViewNameRune(r rune) bool {
	if r == doubleQuoteChar || r == utf8.RuneError {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) ||
		unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.Is(unicode.Zs, r)
}

// String returns the string representation of ViewName
func (vn ViewName) String() string {
	return vn.value
}

// Quoted returns the name as a quoted SQL identifier.
func (vn ViewName) Quoted() string {
	return quoteIdent(vn.value)
}

// quoteIdent quotes an SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
