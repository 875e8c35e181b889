package handlers

import "net/http"

// StatsHandler reports image cache statistics.
type StatsHandler struct {
	cache CacheStats
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(cache CacheStats) *StatsHandler {
	return &StatsHandler{cache: cache}
}

// StatsResponse mirrors prefetch.Stats.
type StatsResponse struct {
	Entries   int `json:"entries"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Groups    int `json:"groups"`
	Recent    int `json:"recent"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		ServiceUnavailable(w, "cache not initialized")
		return
	}
	s := h.cache.Stats()
	writeOK(w, StatsResponse{
		Entries:   s.Entries,
		Queued:    s.Queued,
		Running:   s.Running,
		Groups:    s.Groups,
		Recent:    s.Recent,
		Completed: s.Completed,
		Failed:    s.Failed,
	})
}
