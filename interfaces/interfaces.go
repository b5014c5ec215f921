// Package interfaces defines core abstractions for the tabjson API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/okvist/tabjson-api/tabparser/entities"
)

// TabFetcher defines the contract for downloading published CSV exports.
// The parsing core never fetches; everything network-facing sits behind
// this interface so handlers can be tested against a stub.
type TabFetcher interface {
	// FetchTab downloads one tab's CSV text.
	FetchTab(ctx context.Context, sheetID string, src entities.Source) (string, error)

	// FetchAll downloads every tab concurrently, preserving source order.
	FetchAll(ctx context.Context, sheetID string, sources []entities.Source) ([]entities.TabInput, error)
}

// CacheStats is a snapshot of response cache counters.
type CacheStats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	LastSweep time.Time
}

// ResponseCache defines the contract for the rendered-response cache.
type ResponseCache interface {
	// Get returns the cached payload for key if present and fresh.
	Get(key string) ([]byte, bool)

	// Set stores a rendered payload under key.
	Set(key string, payload []byte)

	// Sweep evicts expired entries and returns how many were removed.
	Sweep() int

	// Stats returns current cache counters.
	Stats() CacheStats

	// RecordFetchResult tracks upstream health for the health endpoint.
	RecordFetchResult(ok bool)

	// ConsecutiveFetchFailures returns the current upstream failure streak.
	ConsecutiveFetchFailures() int
}

// Scheduler defines the contract for background job scheduling.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status, response data,
	// and the HTTP status code to serve it with.
	HealthCheck() (status string, data map[string]any, httpStatus int)
}

// QueryValidator defines the contract for validating request input.
type QueryValidator interface {
	// ValidateSheetID checks a spreadsheet identifier.
	ValidateSheetID(id string) error

	// ValidateTabName checks a tab name or locator.
	ValidateTabName(name string) error

	// ParsePositiveInt parses a query parameter that must be a positive
	// integer no greater than max. Empty input returns zero.
	ParsePositiveInt(name, raw string, max int) (int, error)
}
