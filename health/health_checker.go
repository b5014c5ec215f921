// Package health provides health checking functionality for the tabjson API.
package health

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/okvist/tabjson-api/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// degradedFailureStreak is how many consecutive upstream fetch failures
// flip the service to degraded.
const degradedFailureStreak = 5

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	cache     interfaces.ResponseCache
	startTime time.Time
}

// NewHealthChecker creates a health checker with injected dependencies.
func NewHealthChecker(cache interfaces.ResponseCache) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		cache:     cache,
		startTime: time.Now(),
	}
}

// HealthCheck derives the service status from the upstream failure streak
// and reports cache and runtime statistics. The service itself is
// stateless, so "unhealthy" only means the spreadsheet host has been
// unreachable for a sustained stretch.
func (h *HealthCheckerImpl) HealthCheck() (string, map[string]any, int) {
	stats := h.cache.Stats()
	failures := h.cache.ConsecutiveFetchFailures()

	status := "healthy"
	httpStatus := http.StatusOK
	if failures >= degradedFailureStreak {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	data := map[string]any{
		"uptime":          formatUptimeHuman(time.Since(h.startTime)),
		"memory_usage_mb": int(m.Alloc / 1024 / 1024),
		"cache_entries":   stats.Entries,
		"cache_hits":      stats.Hits,
		"cache_misses":    stats.Misses,
		"fetch_failures":  failures,
	}
	if !stats.LastSweep.IsZero() {
		data["last_sweep"] = stats.LastSweep.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
