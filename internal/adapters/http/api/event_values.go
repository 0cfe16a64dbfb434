package api

import (
	"net/http"

	"github.com/okian/skanlab/internal/domain/scoring"
)

// EventValuesHandler publishes the scoring tables so clients need not copy
// them.
type EventValuesHandler struct {
	body eventValuesResponse
}

type eventValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type revenueTier struct {
	Name      string   `json:"name"`
	Min       float64  `json:"min"`
	Max       *float64 `json:"max"` // null for the open-ended tier
	Increment int      `json:"increment"`
}

type eventValuesResponse struct {
	MaxConversionValue int           `json:"max_conversion_value"`
	Events             []eventValue  `json:"events"`
	RevenueTiers       []revenueTier `json:"revenue_tiers"`
}

// NewEventValuesHandler creates a handler over the process-wide tables.
func NewEventValuesHandler() *EventValuesHandler {
	body := eventValuesResponse{MaxConversionValue: scoring.MaxConversionValue}
	for _, name := range scoring.EventNames() {
		v, _ := scoring.EventValue(name)
		body.Events = append(body.Events, eventValue{Name: name, Value: v})
	}
	for _, t := range scoring.Tiers() {
		rt := revenueTier{Name: t.Name, Min: t.Min, Increment: t.Increment}
		if !t.Open() {
			upper := t.Max
			rt.Max = &upper
		}
		body.RevenueTiers = append(body.RevenueTiers, rt)
	}
	return &EventValuesHandler{body: body}
}

// HandleEventValues handles GET /api/event-values requests.
func (h *EventValuesHandler) HandleEventValues(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, "api.event_values", http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.body)
}
