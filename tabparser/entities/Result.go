package entities

// HeaderSpec is the resolved header row: Names holds the trimmed non-blank
// header cells, Columns the source column index each name came from. Blank
// header cells are skipped, so Columns is not necessarily contiguous and
// Names[i] must always be read from row[Columns[i]], never from row[i].
type HeaderSpec struct {
	Names   []string
	Columns []int
}

// TabResult is the output of parsing a single tab.
type TabResult struct {
	Preamble  [][]string `json:"preamble,omitempty"`
	Headers   []string   `json:"headers"`
	Items     []*Record  `json:"items"`
	HeaderRow int        `json:"headerRow"` // 1-based
}

// TabMeta summarizes one source's contribution to a merged result.
type TabMeta struct {
	Source    Source `json:"source"`
	HeaderRow int    `json:"headerRow"` // 1-based
	ItemCount int    `json:"itemCount"`
}

// MergedResult is the output of merging several tabs: the union of all
// header names in first-seen order, the concatenated records in source
// order, and per-source metadata.
type MergedResult struct {
	Headers []string  `json:"headers"`
	Items   []*Record `json:"items"`
	Tabs    []TabMeta `json:"tabs"`
}
