package tabparser

import (
	"strings"

	"github.com/okvist/tabjson-api/tabparser/entities"
)

// MapRow converts one data row into a record using the resolved header
// spec. Cells are read by the spec's source column index, out-of-range
// columns count as empty, and every value is trimmed. With omitEmpty set,
// keys whose trimmed value is empty are left out of the record entirely.
func MapRow(row []string, spec entities.HeaderSpec, omitEmpty bool) *entities.Record {
	record := entities.NewRecord()
	for i, name := range spec.Names {
		col := spec.Columns[i]
		value := ""
		if col < len(row) {
			value = strings.TrimSpace(row[col])
		}
		if omitEmpty && value == "" {
			continue
		}
		record.Set(name, value)
	}
	return record
}

// collectRecords maps every row after the header row into records,
// dropping fully-empty ones regardless of omitEmpty so blank trailing
// spreadsheet rows never pollute the output. A positive limit caps the
// number of non-empty records and stops mapping early.
func collectRecords(rows [][]string, headerIdx int, spec entities.HeaderSpec, omitEmpty bool, limit int) []*entities.Record {
	records := make([]*entities.Record, 0)
	if headerIdx+1 >= len(rows) {
		return records
	}

	for _, row := range rows[headerIdx+1:] {
		record := MapRow(row, spec, omitEmpty)
		if record.Empty() {
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records
}

// collectPreamble returns the rows strictly before the header row, cells
// trimmed and fully-blank rows dropped. Preamble rows are kept for
// diagnostic display only and are never merged into records.
func collectPreamble(rows [][]string, headerIdx int) [][]string {
	if headerIdx > len(rows) {
		headerIdx = len(rows)
	}

	var preamble [][]string
	for _, row := range rows[:headerIdx] {
		trimmed := make([]string, len(row))
		blank := true
		for i, cell := range row {
			trimmed[i] = strings.TrimSpace(cell)
			if trimmed[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		preamble = append(preamble, trimmed)
	}
	return preamble
}
