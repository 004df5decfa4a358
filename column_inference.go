package rsdb

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datetimeLayouts pairs a cheap shape check with the layouts that can parse it.
// Only the shapes that occur in the budget datasets are listed: ISO 8601 and
// the slash-separated Japanese style (2024/04/01).
var datetimeLayouts = []struct {
	pattern *regexp.Regexp
	layouts []string
}{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
		[]string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}( \d{1,2}:\d{2}(:\d{2})?)?$`),
		[]string{"2006/1/2", "2006/01/02", "2006/1/2 15:04", "2006/1/2 15:04:05", "2006/01/02 15:04:05"},
	},
}

// maxInferenceSample bounds how many non-missing values are inspected per column.
const maxInferenceSample = 1000

// isDatetime checks if a string value represents a datetime
func isDatetime(value string) bool {
	for _, dl := range datetimeLayouts {
		if !dl.pattern.MatchString(value) {
			continue
		}
		for _, layout := range dl.layouts {
			if _, err := time.Parse(layout, value); err == nil {
				return true
			}
		}
	}
	return false
}

// inferColumnType infers the SQL column type from a slice of string values.
// Missing values are ignored. Priority: TEXT > DATETIME > REAL > INTEGER.
func inferColumnType(values []string) columnType {
	var hasDatetime, hasReal, hasInteger bool

	sampled := 0
	for _, value := range values {
		if isMissing(value) {
			continue
		}
		if sampled == maxInferenceSample {
			break
		}
		sampled++

		value = strings.TrimSpace(value)
		switch {
		case isDatetime(value):
			hasDatetime = true
		case isInteger(value):
			hasInteger = true
		case isReal(value):
			hasReal = true
		default:
			return columnTypeText
		}
	}

	switch {
	case hasDatetime && (hasReal || hasInteger):
		return columnTypeText
	case hasDatetime:
		return columnTypeDatetime
	case hasReal:
		return columnTypeReal
	case hasInteger:
		return columnTypeInteger
	default:
		return columnTypeText
	}
}

func isInteger(value string) bool {
	_, err := strconv.ParseInt(value, 10, 64)
	return err == nil
}

func isReal(value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return false
	}
	// ParseFloat accepts "Inf", "NaN" and hex floats; treat those as text.
	lower := strings.ToLower(value)
	return !strings.Contains(lower, "inf") && !strings.Contains(lower, "nan") && !strings.Contains(lower, "x")
}

// inferColumnsInfo infers column information from header and data records
func inferColumnsInfo(h header, records []Record) []columnInfo {
	if len(h) == 0 {
		return nil
	}

	columns := make([]columnInfo, len(h))
	values := make([]string, 0, len(records))
	for i, name := range h {
		values = values[:0]
		for _, r := range records {
			if i < len(r) {
				values = append(values, r[i])
			}
		}
		columns[i] = columnInfo{Name: name, Type: inferColumnType(values)}
	}
	return columns
}
