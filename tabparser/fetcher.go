package tabparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/tabparser/entities"
	"golang.org/x/text/encoding/charmap"
)

// DefaultBaseURL is the published-spreadsheet host the export URLs are
// built against. Tests point this at a local server via NewSheetFetcher.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d"

// SheetFetcher downloads the published CSV export of spreadsheet tabs.
// It is the upstream collaborator of the parsing core: the core itself
// never performs network I/O.
type SheetFetcher struct {
	client   *http.Client
	baseURL  string
	maxBytes int64
}

// NewSheetFetcher creates a fetcher. An empty baseURL uses DefaultBaseURL,
// a non-positive maxBytes disables the response size cap.
func NewSheetFetcher(baseURL string, timeout time.Duration, maxBytes int64) *SheetFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &SheetFetcher{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		maxBytes: maxBytes,
	}
}

// exportURL builds the CSV export URL for one tab. A numeric locator id
// selects the tab by gid; otherwise the tab is addressed by name through
// the gviz endpoint.
func (f *SheetFetcher) exportURL(sheetID string, src entities.Source) string {
	if src.LocatorID != "" {
		return fmt.Sprintf("%s/%s/export?format=csv&gid=%s",
			f.baseURL, url.PathEscape(sheetID), url.QueryEscape(src.LocatorID))
	}
	return fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv&sheet=%s",
		f.baseURL, url.PathEscape(sheetID), url.QueryEscape(src.DisplayName))
}

// FetchTab downloads one tab's CSV text.
func (f *SheetFetcher) FetchTab(ctx context.Context, sheetID string, src entities.Source) (string, error) {
	fetchURL := f.exportURL(sheetID, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", fetchURL, err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", fetchURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("upstream returned %d for tab %q", response.StatusCode, src.Key)
	}

	var reader io.Reader = response.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(response.Body, f.maxBytes+1)
	}

	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(bodyBytes)) > f.maxBytes {
		return "", fmt.Errorf("tab %q exceeds the %d byte limit", src.Key, f.maxBytes)
	}

	// Some exports arrive in ISO-8859-1 rather than UTF-8, so check first
	// and decode only when needed.
	if !utf8.Valid(bodyBytes) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(bodyBytes)
		if err != nil {
			return "", fmt.Errorf("failed to decode tab %q: %w", src.Key, err)
		}
		bodyBytes = decoded
	}

	return string(bodyBytes), nil
}

// FetchAll downloads every tab concurrently and returns the texts in the
// order the sources were given. The first failure, in source order, wins;
// in-flight sibling downloads are left to finish on their own.
func (f *SheetFetcher) FetchAll(ctx context.Context, sheetID string, sources []entities.Source) ([]entities.TabInput, error) {
	inputs := make([]entities.TabInput, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src entities.Source) {
			defer wg.Done()
			text, err := f.FetchTab(ctx, sheetID, src)
			if err != nil {
				errs[i] = err
				return
			}
			inputs[i] = entities.TabInput{Source: src, Text: text}
		}(i, src)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &entities.TabError{Source: sources[i], Err: err}
		}
	}
	return inputs, nil
}
