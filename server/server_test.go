package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okvist/tabjson-api/config"
	"github.com/okvist/tabjson-api/data"
	"github.com/okvist/tabjson-api/handlers"
	"github.com/okvist/tabjson-api/health"
	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/tabparser/entities"
	"github.com/okvist/tabjson-api/validation"
)

type stubFetcher struct {
	text string
}

func (s *stubFetcher) FetchTab(context.Context, string, entities.Source) (string, error) {
	return s.text, nil
}

func (s *stubFetcher) FetchAll(_ context.Context, _ string, sources []entities.Source) ([]entities.TabInput, error) {
	inputs := make([]entities.TabInput, len(sources))
	for i, src := range sources {
		inputs[i] = entities.TabInput{Source: src, Text: s.text}
	}
	return inputs, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8000",
		Address:        "127.0.0.1",
		Env:            "test",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
	}
}

func newTestServer() *Server {
	logging.InitLogger("")

	cache := data.NewCache(time.Minute)
	handler := handlers.NewHTTPHandler(
		&stubFetcher{text: "Name,Age\nAlice,30\n"},
		cache,
		validation.NewQueryValidator(),
		health.NewHealthChecker(cache),
		time.Minute,
	)
	return NewServer(testConfig(), handler)
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer()

	testCases := []struct {
		target   string
		expected int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/abc123", http.StatusOK},
		{"/api/abc123/tabs?tabs=gid:0", http.StatusOK},
		{"/nonexistent", http.StatusNotFound},
	}

	for _, tc := range testCases {
		recorder := httptest.NewRecorder()
		s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if recorder.Code != tc.expected {
			t.Errorf("Expected %d for %s, got %d", tc.expected, tc.target, recorder.Code)
		}
	}
}

func TestServerRateLimitHeaders(t *testing.T) {
	s := newTestServer()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/abc123", nil)
	req.RemoteAddr = "10.1.2.3:1234"
	s.Router().ServeHTTP(recorder, req)

	if recorder.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected rate limit header, got %q", recorder.Header().Get("X-RateLimit-Limit"))
	}
	if recorder.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected remaining tokens header")
	}
}

func TestServerCORSHeaders(t *testing.T) {
	s := newTestServer()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	s.Router().ServeHTTP(recorder, req)

	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard CORS origin, got %q", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestServerShutdown(t *testing.T) {
	s := newTestServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Shutdown on a never-started server must still return cleanly.
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	s := newTestServer()

	// Generate one request so counters exist.
	warm := httptest.NewRecorder()
	s.Router().ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/health", nil))

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(recorder.Body.String(), "http_request_total") {
		t.Error("Expected http_request_total in metrics output")
	}
}
