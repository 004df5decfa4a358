package rsdb

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Default split rule values. The expenditure dataset mixes per-payee
// summary rows (no amount) with itemised rows (amount present).
const (
	// DefaultSplitArchive is the archive the default split rule applies to
	DefaultSplitArchive = "5-1_RS_2024_支出先_支出情報.zip"
	// DefaultAmountColumn is the column whose presence decides the partition
	DefaultAmountColumn = "金額"
	// DefaultSummaryViewSuffix is appended to the view name of the summary partition
	DefaultSummaryViewSuffix = "サマリー"
	// DefaultDetailsViewSuffix is appended to the view name of the details partition
	DefaultDetailsViewSuffix = "明細"

	summaryTableSuffix = "_summary"
	detailsTableSuffix = "_details"
)

// SplitRule selects one archive by exact file name and partitions its rows
// on whether AmountColumn holds a number.
type SplitRule struct {
	// Archive is the file name (without directory) the rule applies to.
	// An empty name disables splitting.
	Archive string
	// AmountColumn is the header name of the amount column
	AmountColumn string
	// SummaryViewSuffix names the view of rows without an amount
	SummaryViewSuffix string
	// DetailsViewSuffix names the view of rows with an amount
	DetailsViewSuffix string
}

// DefaultSplitRule returns the split rule for the expenditure dataset.
func DefaultSplitRule() SplitRule {
	return SplitRule{
		Archive:           DefaultSplitArchive,
		AmountColumn:      DefaultAmountColumn,
		SummaryViewSuffix: DefaultSummaryViewSuffix,
		DetailsViewSuffix: DefaultDetailsViewSuffix,
	}
}

// matches reports whether the rule applies to the archive at path.
func (r SplitRule) matches(path string) bool {
	return r.Archive != "" && filepath.Base(path) == r.Archive
}

// splitPart is one partition of a split archive.
type splitPart struct {
	table         string
	viewCandidate string
	rows          *table
}

// split partitions t into summary rows (amount missing) and details rows
// (amount present). Every row lands in exactly one partition and the row
// order of t is kept. Summary rows store the amount as missing and details
// rows store the parsed number; both partitions type the amount column
// INTEGER when every detail amount is integral and REAL otherwise. The other
// columns keep the types of t.
func (r SplitRule) split(names derivedNames, view string, t *table) (summary, details splitPart, err error) {
	idx := t.getHeader().indexOf(r.AmountColumn)
	if idx < 0 {
		return splitPart{}, splitPart{}, fmt.Errorf("%w: %q", ErrColumnNotFound, r.AmountColumn)
	}

	var summaryRows, detailsRows []Record
	amounts := make([]float64, 0, t.rowCount())
	integral := true
	for _, record := range t.getRecords() {
		v, ok := numericAmount(record[idx])
		row := make(Record, len(record))
		copy(row, record)
		if !ok {
			row[idx] = ""
			summaryRows = append(summaryRows, row)
			continue
		}
		if !isInteger(strings.TrimSpace(record[idx])) {
			integral = false
		}
		amounts = append(amounts, v)
		detailsRows = append(detailsRows, row)
	}

	amountType := columnTypeInteger
	if !integral {
		amountType = columnTypeReal
	}
	for i, row := range detailsRows {
		if amountType == columnTypeInteger {
			row[idx] = strings.TrimSpace(row[idx])
		} else {
			row[idx] = strconv.FormatFloat(amounts[i], 'f', -1, 64)
		}
	}

	summary = splitPart{
		table:         names.table + summaryTableSuffix,
		viewCandidate: view + nameDelimiter + r.SummaryViewSuffix,
		rows:          t.withRecords(summaryRows).withColumnType(idx, amountType),
	}
	details = splitPart{
		table:         names.table + detailsTableSuffix,
		viewCandidate: view + nameDelimiter + r.DetailsViewSuffix,
		rows:          t.withRecords(detailsRows).withColumnType(idx, amountType),
	}
	return summary, details, nil
}

// numericAmount coerces a cell to a number. Missing tokens, text that does
// not parse, NaN and infinities all count as missing.
func numericAmount(value string) (float64, bool) {
	if isMissing(value) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
