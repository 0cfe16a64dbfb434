package api

import (
	"net/http"

	"github.com/okian/skanlab/internal/catalog"
)

// CampaignHandler serves per-network SKAN campaign limits.
type CampaignHandler struct {
	deps ContentProvider
}

// NewCampaignHandler creates a new campaign limits handler.
func NewCampaignHandler(deps ContentProvider) *CampaignHandler {
	return &CampaignHandler{deps: deps}
}

type campaignResponse struct {
	Success bool           `json:"success"`
	Network string         `json:"network"`
	Limits  catalog.Limits `json:"limits"`
}

// HandleCampaignLimits handles GET /api/campaign-limits/{network} requests.
// The network name is matched exactly first, then case-insensitively; the
// response always carries the canonical name.
func (h *CampaignHandler) HandleCampaignLimits(w http.ResponseWriter, r *http.Request) {
	const op = "api.campaign_limits"
	if !allowMethods(w, r, op, http.MethodGet) {
		return
	}
	name, limits, ok := h.deps.CampaignLimits(r.Context(), r.PathValue("network"))
	if !ok {
		writeJSON(w, http.StatusNotFound, failureResponse{Success: false, Error: "Network not found"})
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse{Success: true, Network: name, Limits: limits})
}
