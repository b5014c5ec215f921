package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okvist/tabjson-api/interfaces"
	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/metrics"
	"github.com/okvist/tabjson-api/tabparser"
	"github.com/okvist/tabjson-api/tabparser/entities"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandler defines the endpoint surface the router binds to.
type HTTPHandler interface {
	ServeTab(w http.ResponseWriter, r *http.Request)
	ServeMergedTabs(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	ServeRoot(w http.ResponseWriter, r *http.Request)
}

// HTTPHandlerImpl implements the HTTP endpoints with injected dependencies.
type HTTPHandlerImpl struct {
	fetcher   interfaces.TabFetcher
	cache     interfaces.ResponseCache
	validator interfaces.QueryValidator
	health    interfaces.HealthChecker
	cacheTTL  time.Duration
}

// NewHTTPHandler creates an HTTP handler with injected dependencies.
func NewHTTPHandler(
	fetcher interfaces.TabFetcher,
	cache interfaces.ResponseCache,
	validator interfaces.QueryValidator,
	health interfaces.HealthChecker,
	cacheTTL time.Duration,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		fetcher:   fetcher,
		cache:     cache,
		validator: validator,
		health:    health,
		cacheTTL:  cacheTTL,
	}
}

// serveCached writes a rendered payload with cache headers.
func (h *HTTPHandlerImpl) serveCached(w http.ResponseWriter, r *http.Request, data []byte, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if h.cacheTTL > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.cacheTTL.Seconds())))
	}
	writeJSON(w, r, http.StatusOK, data)
}

// fetchTimed wraps an upstream download with latency metrics and the
// failure streak bookkeeping the health endpoint reads.
func (h *HTTPHandlerImpl) fetchTimed(r *http.Request, sheetID string, sources []entities.Source) ([]entities.TabInput, error) {
	start := time.Now()
	inputs, err := h.fetcher.FetchAll(r.Context(), sheetID, sources)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamFetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	h.cache.RecordFetchResult(err == nil)
	return inputs, err
}

// ServeTab handles GET /api/{sheetID}: fetch one tab's published CSV and
// serve it as structured records. The tab is selected with ?gid=N or
// ?tab=Name; with neither the spreadsheet's first tab (gid 0) is used.
func (h *HTTPHandlerImpl) ServeTab(w http.ResponseWriter, r *http.Request) {
	sheetID := chi.URLParam(r, "sheetID")
	if err := h.validator.ValidateSheetID(sheetID); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	if query.Get("gid") != "" && query.Get("tab") != "" {
		RespondWithError(w, http.StatusBadRequest, "gid and tab are mutually exclusive")
		return
	}

	var src entities.Source
	switch {
	case query.Get("gid") != "":
		parsed, err := sourceFromLocator("gid:" + query.Get("gid"))
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		src = parsed
	case query.Get("tab") != "":
		name := query.Get("tab")
		if err := h.validator.ValidateTabName(name); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		src = entities.Source{Key: name, DisplayName: name}
	default:
		src = entities.Source{Key: "gid:0", DisplayName: "gid:0", LocatorID: "0"}
	}

	opts, err := h.parseOptions(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cacheKey(r)
	if data, ok := h.cache.Get(key); ok {
		h.serveCached(w, r, data, true)
		return
	}

	inputs, err := h.fetchTimed(r, sheetID, []entities.Source{src})
	if err != nil {
		logging.Error("Upstream fetch failed", "sheet", sheetID, "tab", src.Key, "error", err)
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	result, err := tabparser.ParseTab(inputs[0].Text, opts)
	if err != nil {
		logging.Error("Tab parsing failed", "sheet", sheetID, "tab", src.Key, "error", err)
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	data, err := marshalAndCache(h.cache, key, result)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	h.serveCached(w, r, data, false)
}

// ServeMergedTabs handles GET /api/{sheetID}/tabs: fetch several tabs and
// merge them into one record stream. Tabs come from ?tabs=, a
// comma-separated list of tab names or gid:N locators.
func (h *HTTPHandlerImpl) ServeMergedTabs(w http.ResponseWriter, r *http.Request) {
	sheetID := chi.URLParam(r, "sheetID")
	if err := h.validator.ValidateSheetID(sheetID); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	rawTabs := query.Get("tabs")
	if rawTabs == "" {
		RespondWithError(w, http.StatusBadRequest, "tabs parameter is required")
		return
	}

	locators := strings.Split(rawTabs, ",")
	if len(locators) > maxMergeTabs {
		RespondWithError(w, http.StatusBadRequest, "too many tabs requested")
		return
	}

	sources := make([]entities.Source, 0, len(locators))
	for _, locator := range locators {
		src, err := sourceFromLocator(locator)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if src.LocatorID == "" {
			if err := h.validator.ValidateTabName(src.DisplayName); err != nil {
				RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		sources = append(sources, src)
	}

	opts, err := h.parseOptions(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	mergeOpts := tabparser.MergeOptions{
		Options:   opts,
		TagOrigin: parseBool(query.Get("tagOrigin"), false),
	}

	key := cacheKey(r)
	if data, ok := h.cache.Get(key); ok {
		h.serveCached(w, r, data, true)
		return
	}

	inputs, err := h.fetchTimed(r, sheetID, sources)
	if err != nil {
		logging.Error("Upstream fetch failed", "sheet", sheetID, "error", err)
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	merged, err := tabparser.MergeTabs(inputs, mergeOpts)
	if err != nil {
		logging.Error("Tab merge failed", "sheet", sheetID, "error", err)
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	data, err := marshalAndCache(h.cache, key, merged)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	h.serveCached(w, r, data, false)
}

// HealthCheck handles GET /health.
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck()

	response := map[string]any{
		"status": status,
		"data":   data,
	}
	RespondWithJSON(w, r, httpStatus, response)
}

// ServeRoot handles GET /: a short service description for humans poking
// at the base URL.
func (h *HTTPHandlerImpl) ServeRoot(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"service": "tabjson-api",
		"usage": map[string]string{
			"single tab": "/api/{sheetID}?gid=0 or /api/{sheetID}?tab=Name",
			"merge tabs": "/api/{sheetID}/tabs?tabs=Name,gid:123456",
			"health":     "/health",
		},
	})
}
