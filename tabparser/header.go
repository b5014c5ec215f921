package tabparser

import (
	"strings"

	"github.com/okvist/tabjson-api/tabparser/entities"
)

// headerScanWindow bounds how many leading rows header inference looks at.
// Published sheets put the header near the top; scanning further only
// risks picking a dense data row.
const headerScanWindow = 30

// DefaultMarkers are the column labels used to recognize the header row of
// a published form-response sheet. A row containing both is almost always
// the header. Callers with other layouts pass their own pair in Options.
var DefaultMarkers = [2]string{"Timestamp", "Email Address"}

// ResolveHeader determines which row is the header row and derives the
// name/column pairs from it.
//
// A positive override is a 1-based row number and is used directly,
// clamped to at least row 1. The row is not validated to exist: an
// out-of-range override resolves to an empty header spec, and downstream
// mapping then produces only fully-empty records, which are dropped. That
// is deliberate fail-open behavior, not an error.
//
// Without an override the first row within the scan window containing both
// marker values wins. If no row does, the row with the most non-blank
// cells wins, earliest row on ties.
func ResolveHeader(rows [][]string, override int, markers [2]string) (int, entities.HeaderSpec) {
	var idx int
	if override > 0 {
		idx = override - 1
	} else {
		idx = inferHeaderRow(rows, markers)
	}

	if idx >= len(rows) {
		return idx, entities.HeaderSpec{}
	}
	return idx, deriveHeaderSpec(rows[idx])
}

// inferHeaderRow composes the two detection strategies in order:
// exact marker match first, max non-blank cells as the fallback.
func inferHeaderRow(rows [][]string, markers [2]string) int {
	window := rows
	if len(window) > headerScanWindow {
		window = window[:headerScanWindow]
	}

	if idx, ok := findMarkerRow(window, markers); ok {
		return idx
	}
	return bestNonBlankRow(window)
}

// findMarkerRow returns the first row containing both marker values.
func findMarkerRow(rows [][]string, markers [2]string) (int, bool) {
	if markers[0] == "" || markers[1] == "" {
		return 0, false
	}
	for i, row := range rows {
		foundFirst, foundSecond := false, false
		for _, cell := range row {
			switch strings.TrimSpace(cell) {
			case markers[0]:
				foundFirst = true
			case markers[1]:
				foundSecond = true
			}
		}
		if foundFirst && foundSecond {
			return i, true
		}
	}
	return 0, false
}

// bestNonBlankRow returns the row with the greatest count of non-blank
// cells. Ties keep the earliest row, so a table with a single dense header
// followed by equally dense data rows still resolves to the header.
func bestNonBlankRow(rows [][]string) int {
	best, bestCount := 0, -1
	for i, row := range rows {
		count := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

// deriveHeaderSpec turns the chosen row into name/column pairs. Cells that
// trim to empty are skipped entirely, which is why the spec records the
// source column of every name instead of relying on positions.
func deriveHeaderSpec(row []string) entities.HeaderSpec {
	var spec entities.HeaderSpec
	for col, cell := range row {
		if col == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		spec.Names = append(spec.Names, name)
		spec.Columns = append(spec.Columns, col)
	}
	return spec
}
