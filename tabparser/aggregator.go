package tabparser

import (
	"fmt"
	"sync"

	"github.com/okvist/tabjson-api/tabparser/entities"
)

// Synthetic keys injected into merged records when origin tagging is on.
const (
	OriginTabKey = "_tab"
	OriginGidKey = "_gid"
)

// Options controls the single-tab parsing pipeline.
type Options struct {
	// OmitEmpty drops empty-valued fields from records. Defaults to true
	// via DefaultOptions.
	OmitEmpty bool
	// Limit caps the number of non-empty records. Zero means unlimited.
	Limit int
	// HeaderRow is a 1-based header row override. Zero means infer.
	HeaderRow int
	// Markers overrides the header detection labels. The zero value uses
	// DefaultMarkers.
	Markers [2]string
}

// MergeOptions controls the multi-tab merge pipeline.
type MergeOptions struct {
	Options
	// TagOrigin injects the owning tab's display name and locator id into
	// every merged record, after the natural keys.
	TagOrigin bool
}

// DefaultOptions returns the options used when a caller specifies nothing.
func DefaultOptions() Options {
	return Options{OmitEmpty: true}
}

func (o Options) markers() [2]string {
	if o.Markers[0] == "" && o.Markers[1] == "" {
		return DefaultMarkers
	}
	return o.Markers
}

// ParseTab runs the full single-tab pipeline on raw CSV text: tokenize,
// resolve the header row, map data rows to records. Ragged or blank rows
// are tolerated, never errors; only genuinely unexpected failures during
// mapping surface, recovered into an error so the boundary layer can
// report them instead of crashing.
func ParseTab(text string, opts Options) (result *entities.TabResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row mapping failed: %v", r)
		}
	}()

	rows := ParseCSV(text)
	headerIdx, spec := ResolveHeader(rows, opts.HeaderRow, opts.markers())

	headers := spec.Names
	if headers == nil {
		headers = []string{}
	}

	return &entities.TabResult{
		Preamble:  collectPreamble(rows, headerIdx),
		Headers:   headers,
		Items:     collectRecords(rows, headerIdx, spec, opts.OmitEmpty, opts.Limit),
		HeaderRow: headerIdx + 1,
	}, nil
}

// MergeTabs runs the single-tab pipeline per source and merges the
// results: header names unioned in first-seen order across sources,
// records concatenated in source order, and the limit applied as a global
// prefix cap after concatenation.
//
// The per-source pipelines share no state and run concurrently; the merge
// step waits for all of them and then reduces strictly sequentially in
// source list order, so the output is deterministic regardless of
// completion order. Any single tab failure aborts the whole merge with a
// TabError naming the tab.
func MergeTabs(tabs []entities.TabInput, opts MergeOptions) (*entities.MergedResult, error) {
	perTab := opts.Options
	perTab.Limit = 0 // the cap is global, applied after concatenation

	results := make([]*entities.TabResult, len(tabs))
	errs := make([]error, len(tabs))

	var wg sync.WaitGroup
	for i := range tabs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ParseTab(tabs[i].Text, perTab)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &entities.TabError{Source: tabs[i].Source, Err: err}
		}
	}

	merged := &entities.MergedResult{
		Headers: []string{},
		Items:   make([]*entities.Record, 0),
		Tabs:    make([]entities.TabMeta, 0, len(tabs)),
	}

	seen := make(map[string]bool)
	for i, res := range results {
		for _, name := range res.Headers {
			if !seen[name] {
				seen[name] = true
				merged.Headers = append(merged.Headers, name)
			}
		}

		for _, record := range res.Items {
			if opts.TagOrigin {
				record.Set(OriginTabKey, tabs[i].Source.DisplayName)
				record.Set(OriginGidKey, tabs[i].Source.LocatorID)
			}
			merged.Items = append(merged.Items, record)
		}

		merged.Tabs = append(merged.Tabs, entities.TabMeta{
			Source:    tabs[i].Source,
			HeaderRow: res.HeaderRow,
			ItemCount: len(res.Items),
		})
	}

	if opts.TagOrigin {
		for _, key := range []string{OriginTabKey, OriginGidKey} {
			if !seen[key] {
				seen[key] = true
				merged.Headers = append(merged.Headers, key)
			}
		}
	}

	if opts.Limit > 0 && len(merged.Items) > opts.Limit {
		merged.Items = merged.Items[:opts.Limit]
	}

	return merged, nil
}
