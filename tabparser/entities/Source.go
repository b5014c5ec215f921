package entities

import "fmt"

// Source identifies one tab of a published spreadsheet. The parsing core
// threads the identity through without interpreting it; the fetch layer
// uses LocatorID (numeric gid) or DisplayName (tab title) to build the
// export URL.
type Source struct {
	Key         string `json:"key"`
	DisplayName string `json:"name"`
	LocatorID   string `json:"gid"`
}

// TabInput pairs a source identity with its already-fetched CSV text.
type TabInput struct {
	Source Source
	Text   string
}

// TabError reports a failure while converting one tab's rows into records.
// It carries the source identity so the caller can report which tab
// misbehaved. In merge mode a single TabError aborts the whole merge.
type TabError struct {
	Source Source
	Err    error
}

func (e *TabError) Error() string {
	name := e.Source.Key
	if name == "" {
		name = e.Source.DisplayName
	}
	return fmt.Sprintf("tab %q: %v", name, e.Err)
}

func (e *TabError) Unwrap() error {
	return e.Err
}
