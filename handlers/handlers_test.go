package handlers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okvist/tabjson-api/data"
	"github.com/okvist/tabjson-api/health"
	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/tabparser/entities"
	"github.com/okvist/tabjson-api/validation"
)

// stubFetcher serves canned CSV text per tab key and records calls.
type stubFetcher struct {
	texts map[string]string
	calls int
}

func (s *stubFetcher) FetchTab(_ context.Context, _ string, src entities.Source) (string, error) {
	s.calls++
	text, ok := s.texts[src.Key]
	if !ok {
		return "", fmt.Errorf("upstream returned 404 for tab %q", src.Key)
	}
	return text, nil
}

func (s *stubFetcher) FetchAll(ctx context.Context, sheetID string, sources []entities.Source) ([]entities.TabInput, error) {
	inputs := make([]entities.TabInput, len(sources))
	for i, src := range sources {
		text, err := s.FetchTab(ctx, sheetID, src)
		if err != nil {
			return nil, &entities.TabError{Source: src, Err: err}
		}
		inputs[i] = entities.TabInput{Source: src, Text: text}
	}
	return inputs, nil
}

func newTestHandler(fetcher *stubFetcher, ttl time.Duration) *HTTPHandlerImpl {
	logging.InitLogger("")
	cache := data.NewCache(ttl)
	return NewHTTPHandler(fetcher, cache, validation.NewQueryValidator(), health.NewHealthChecker(cache), ttl)
}

// serve routes the request through a chi router so URL params resolve.
func serve(h *HTTPHandlerImpl, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/api/{sheetID}", h.ServeTab)
	router.Get("/api/{sheetID}/tabs", h.ServeMergedTabs)
	router.Get("/health", h.HealthCheck)
	router.Get("/", h.ServeRoot)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestServeTabDefaultsToFirstTab(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"gid:0": "Name,Age\nAlice,30\nBob,25\n",
	}}
	h := newTestHandler(fetcher, time.Minute)

	recorder := serve(h, "/api/abc123")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var result entities.TabResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Headers) != 2 || result.Headers[0] != "Name" {
		t.Errorf("Expected headers [Name Age], got %v", result.Headers)
	}
	if len(result.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result.Items))
	}
	if result.HeaderRow != 1 {
		t.Errorf("Expected header row 1, got %d", result.HeaderRow)
	}
}

func TestServeTabByName(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"People": "Name\nAlice\n",
	}}
	h := newTestHandler(fetcher, time.Minute)

	recorder := serve(h, "/api/abc123?tab=People")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestServeTabRejectsInvalidSheetID(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	recorder := serve(h, "/api/abc$123")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestServeTabRejectsGidAndTabTogether(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	recorder := serve(h, "/api/abc123?gid=0&tab=People")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestServeTabRejectsBadLimit(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	for _, target := range []string{
		"/api/abc123?limit=0",
		"/api/abc123?limit=-3",
		"/api/abc123?limit=notanumber",
		"/api/abc123?limit=999999",
	} {
		recorder := serve(h, target)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", target, recorder.Code)
		}
	}
}

func TestServeTabUpstreamFailure(t *testing.T) {
	h := newTestHandler(&stubFetcher{texts: map[string]string{}}, time.Minute)

	recorder := serve(h, "/api/abc123?gid=42")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "gid:42") {
		t.Errorf("Expected the failing tab in the error, got %s", recorder.Body.String())
	}
}

func TestServeTabCachesResponses(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"gid:0": "Name\nAlice\n",
	}}
	h := newTestHandler(fetcher, time.Minute)

	first := serve(h, "/api/abc123")
	second := serve(h, "/api/abc123")

	if fetcher.calls != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", fetcher.calls)
	}
	if first.Header().Get("X-Cache") != "MISS" {
		t.Errorf("Expected first response to be a MISS, got %s", first.Header().Get("X-Cache"))
	}
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("Expected second response to be a HIT, got %s", second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Error("Expected identical cached body")
	}
}

func TestServeTabOmitEmptyParameter(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"gid:0": "Name,Age\nAlice,\n",
	}}
	h := newTestHandler(fetcher, 0)

	recorder := serve(h, "/api/abc123?omitEmpty=false")

	var result entities.TabResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result.Items))
	}
	if !strings.Contains(recorder.Body.String(), `"Age":""`) {
		t.Errorf("Expected empty Age field kept, got %s", recorder.Body.String())
	}
}

func TestServeMergedTabs(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"People":  "Name,Age\nAlice,30\n",
		"gid:7":   "Name,City\nBob,Oslo\n",
		"gid:0":   "unused\n",
		"Another": "unused\n",
	}}
	h := newTestHandler(fetcher, 0)

	recorder := serve(h, "/api/abc123/tabs?tabs=People,gid:7&tagOrigin=true")

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var merged entities.MergedResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &merged); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(merged.Items) != 2 {
		t.Errorf("Expected 2 merged items, got %d", len(merged.Items))
	}
	if len(merged.Tabs) != 2 || merged.Tabs[0].Source.Key != "People" {
		t.Errorf("Expected tab metadata in source order, got %+v", merged.Tabs)
	}
	expectedHeaders := []string{"Name", "Age", "City", "_tab", "_gid"}
	if len(merged.Headers) != len(expectedHeaders) {
		t.Fatalf("Expected headers %v, got %v", expectedHeaders, merged.Headers)
	}
	for i, name := range expectedHeaders {
		if merged.Headers[i] != name {
			t.Errorf("Expected header %q at %d, got %q", name, i, merged.Headers[i])
		}
	}
}

func TestServeMergedTabsRequiresTabs(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	recorder := serve(h, "/api/abc123/tabs")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestServeMergedTabsRejectsTooMany(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	locators := make([]string, maxMergeTabs+1)
	for i := range locators {
		locators[i] = fmt.Sprintf("gid:%d", i)
	}
	recorder := serve(h, "/api/abc123/tabs?tabs="+strings.Join(locators, ","))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestServeMergedTabsFailingTabNamed(t *testing.T) {
	fetcher := &stubFetcher{texts: map[string]string{
		"People": "Name\nAlice\n",
	}}
	h := newTestHandler(fetcher, 0)

	recorder := serve(h, "/api/abc123/tabs?tabs=People,Missing")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Missing") {
		t.Errorf("Expected the failing tab name in the error, got %s", recorder.Body.String())
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	recorder := serve(h, "/health")

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"status":"healthy"`) {
		t.Errorf("Expected healthy status, got %s", recorder.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	h := newTestHandler(&stubFetcher{}, time.Minute)

	recorder := serve(h, "/")

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "tabjson-api") {
		t.Errorf("Expected service name in body, got %s", recorder.Body.String())
	}
}

func TestGzipCompression(t *testing.T) {
	// Enough rows to cross the compression threshold.
	var sb strings.Builder
	sb.WriteString("Name,Description\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "person%d,some description text that pads the response\n", i)
	}
	fetcher := &stubFetcher{texts: map[string]string{"gid:0": sb.String()}}
	h := newTestHandler(fetcher, 0)

	router := chi.NewRouter()
	router.Get("/api/{sheetID}", h.ServeTab)

	req := httptest.NewRequest(http.MethodGet, "/api/abc123", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Expected gzip encoding, got %q", recorder.Header().Get("Content-Encoding"))
	}

	gz, err := gzip.NewReader(recorder.Body)
	if err != nil {
		t.Fatalf("Failed to open gzip reader: %v", err)
	}
	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress body: %v", err)
	}
	if !strings.Contains(string(body), "person99") {
		t.Error("Expected decompressed body to contain the last record")
	}
}

func TestParseMarkers(t *testing.T) {
	testCases := []struct {
		raw     string
		wantErr bool
	}{
		{"", false},
		{"Timestamp,Email Address", false},
		{"OnlyOne", true},
		{" ,Second", true},
	}

	for _, tc := range testCases {
		_, err := parseMarkers(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseMarkers(%q): unexpected error state %v", tc.raw, err)
		}
	}
}

func TestSourceFromLocator(t *testing.T) {
	src, err := sourceFromLocator("gid:42")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src.LocatorID != "42" || src.Key != "gid:42" {
		t.Errorf("Expected gid source, got %+v", src)
	}

	src, err = sourceFromLocator(" People ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src.DisplayName != "People" || src.LocatorID != "" {
		t.Errorf("Expected name source, got %+v", src)
	}

	for _, bad := range []string{"", "gid:", "gid:-1", "gid:abc"} {
		if _, err := sourceFromLocator(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
