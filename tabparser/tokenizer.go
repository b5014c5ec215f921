// Package tabparser converts published-spreadsheet CSV text into structured
// records: a quote-aware tokenizer, header-row resolution, row-to-record
// mapping, and multi-tab merge. The package is pure computation; fetching
// the CSV text lives in fetcher.go and everything else receives it as a
// string.
package tabparser

import "strings"

// ParseCSV tokenizes raw CSV text into rows of string cells in a single
// left-to-right scan.
//
// Outside quotes a comma ends the cell, a newline ends the row, carriage
// returns are skipped (CRLF and LF both work), and a quote at the start of
// a field enters quoted mode without becoming content. Inside quotes a
// doubled "" unescapes to one literal quote and everything else, commas
// and newlines included, is taken verbatim.
//
// Rows are not validated for equal cell counts: spreadsheet exports are
// routinely ragged and callers read cells positionally. A trailing newline
// does not produce a spurious blank row, but empty input still yields one
// row containing one empty cell.
func ParseCSV(text string) [][]string {
	// Strip a UTF-8 byte order mark so it never ends up in the first cell.
	text = strings.TrimPrefix(text, "\ufeff")

	var rows [][]string
	var row []string
	var cell strings.Builder
	inQuotes := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cell.WriteRune('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			cell.WriteRune(c)
			continue
		}

		switch c {
		case ',':
			row = append(row, cell.String())
			cell.Reset()
		case '\n':
			row = append(row, cell.String())
			cell.Reset()
			rows = append(rows, row)
			row = nil
		case '\r':
			// skip, handles CRLF line endings
		case '"':
			if cell.Len() == 0 {
				inQuotes = true
			} else {
				cell.WriteRune(c)
			}
		default:
			cell.WriteRune(c)
		}
	}

	// Flush the pending cell and row, except when the input ended in a
	// newline: that final flush would only add a blank [""] row to an
	// otherwise non-empty table.
	row = append(row, cell.String())
	if len(rows) == 0 || len(row) > 1 || row[0] != "" {
		rows = append(rows, row)
	}

	return rows
}
