package handlers

import (
	"net/http"

	"github.com/marmos91/picseq/pkg/prefetch"
)

// CacheStats reports the state of the image cache.
type CacheStats interface {
	Stats() prefetch.Stats
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is a navigation session open?
type HealthHandler struct {
	nav   Navigator
	cache CacheStats
}

// NewHealthHandler creates a new health handler.
//
// nav may be nil, in which case readiness checks report unhealthy.
func NewHealthHandler(nav Navigator, cache CacheStats) *HealthHandler {
	return &HealthHandler{nav: nav, cache: cache}
}

// Liveness handles GET /health - simple liveness probe.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "picseq",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK once the navigator has an open session, 503 Service
// Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.nav == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("navigator not initialized"))
		return
	}

	current := h.nav.Current()
	if current == "" {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no navigation session open"))
		return
	}

	data := map[string]interface{}{
		"current":  current,
		"strategy": h.nav.Strategy().String(),
	}
	if h.cache != nil {
		stats := h.cache.Stats()
		data["cached_images"] = stats.Entries
		data["queued"] = stats.Queued
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}
