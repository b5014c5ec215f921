// Package handlers provides HTTP request handlers for the tabjson API
// endpoints: single-tab parsing, multi-tab merge, and health checks, with
// response formatting, caching, and input validation.
package handlers

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okvist/tabjson-api/interfaces"
	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/tabparser"
	"github.com/okvist/tabjson-api/tabparser/entities"
)

// Minimum response size to consider compression (1KB)
const compressionThreshold = 1024

// Upper bounds for numeric query parameters.
const (
	maxLimit     = 10000
	maxHeaderRow = 1000
	maxMergeTabs = 20
)

// writeJSON writes payload as JSON, gzip-compressed when the client
// accepts it and the body is large enough to be worth it.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))

	acceptsGzip := strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip")
	if len(data) >= compressionThreshold && acceptsGzip {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(code)
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := gz.Write(data); err != nil {
			logging.Warn("Failed to write compressed response", "error", err)
		}
		return
	}

	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithJSON marshals payload and writes it as a JSON response.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, code, data)
}

// RespondWithError writes a JSON error envelope.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	jsonResponse, err := json.Marshal(errorResponse)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(jsonResponse); err != nil {
		logging.Warn("Failed to write error response", "error", err)
	}
}

// parseBool reads a boolean query parameter with a default for absence.
func parseBool(raw string, defaultValue bool) bool {
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

// parseMarkers reads a "markers" parameter of the form "First,Second".
// Empty input keeps the package defaults.
func parseMarkers(raw string) ([2]string, error) {
	if raw == "" {
		return [2]string{}, nil
	}
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return [2]string{}, fmt.Errorf("markers must be two comma-separated labels")
	}
	return [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}, nil
}

// sourceFromLocator turns one tab locator into a source identity. A
// locator is either a tab name or "gid:N".
func sourceFromLocator(locator string) (entities.Source, error) {
	locator = strings.TrimSpace(locator)
	if gid, ok := strings.CutPrefix(locator, "gid:"); ok {
		if _, err := strconv.Atoi(gid); err != nil || strings.HasPrefix(gid, "-") {
			return entities.Source{}, fmt.Errorf("invalid gid %q", gid)
		}
		return entities.Source{Key: locator, DisplayName: locator, LocatorID: gid}, nil
	}
	if locator == "" {
		return entities.Source{}, fmt.Errorf("empty tab locator")
	}
	return entities.Source{Key: locator, DisplayName: locator}, nil
}

// marshalAndCache renders payload to JSON and stores it in the response
// cache before serving.
func marshalAndCache(cache interfaces.ResponseCache, key string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal response payload", "error", err)
		return nil, err
	}
	cache.Set(key, data)
	return data, nil
}

// cacheKey canonicalizes the request into a cache key. Query encoding
// sorts parameters, so equivalent requests share an entry.
func cacheKey(r *http.Request) string {
	return r.URL.Path + "?" + r.URL.Query().Encode()
}

// parseOptions reads the shared parsing options from the query string.
func (h *HTTPHandlerImpl) parseOptions(r *http.Request) (tabparser.Options, error) {
	opts := tabparser.DefaultOptions()
	query := r.URL.Query()

	opts.OmitEmpty = parseBool(query.Get("omitEmpty"), true)

	limit, err := h.validator.ParsePositiveInt("limit", query.Get("limit"), maxLimit)
	if err != nil {
		return opts, err
	}
	opts.Limit = limit

	headerRow, err := h.validator.ParsePositiveInt("headerRow", query.Get("headerRow"), maxHeaderRow)
	if err != nil {
		return opts, err
	}
	opts.HeaderRow = headerRow

	markers, err := parseMarkers(query.Get("markers"))
	if err != nil {
		return opts, err
	}
	opts.Markers = markers

	return opts, nil
}
