package rsdb

// table represents a decoded payload as database table structure.
type table struct {
	// header is table header.
	header header
	// records is table records.
	records []Record
	// columnInfo contains inferred type information for each column
	columnInfo []columnInfo
}

// newTable create new table. Rows shorter than the header are padded with
// empty (missing) cells.
func newTable(h header, records []Record) *table {
	for i, r := range records {
		if len(r) < len(h) {
			padded := make(Record, len(h))
			copy(padded, r)
			records[i] = padded
		}
	}
	return &table{
		header:     h,
		records:    records,
		columnInfo: inferColumnsInfo(h, records),
	}
}

// withRecords returns a table sharing header and column types with t but
// holding only the given records.
func (t *table) withRecords(records []Record) *table {
	return &table{
		header:     t.header,
		records:    records,
		columnInfo: t.columnInfo,
	}
}

// withColumnType returns a copy of t whose column i has type ct.
func (t *table) withColumnType(i int, ct columnType) *table {
	info := make([]columnInfo, len(t.columnInfo))
	copy(info, t.columnInfo)
	info[i].Type = ct
	return &table{
		header:     t.header,
		records:    t.records,
		columnInfo: info,
	}
}

// getHeader return table header.
func (t *table) getHeader() header {
	return t.header
}

// getRecords return table records.
func (t *table) getRecords() []Record {
	return t.records
}

// rowCount returns the number of data rows.
func (t *table) rowCount() int {
	return len(t.records)
}
