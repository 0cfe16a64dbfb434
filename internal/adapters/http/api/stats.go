package api

import (
	"net/http"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, "api.stats", http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats(r.Context()))
}
