package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// SimulateHandler handles conversion value simulations.
type SimulateHandler struct {
	deps Simulator
}

// NewSimulateHandler creates a new simulate handler.
func NewSimulateHandler(deps Simulator) *SimulateHandler {
	return &SimulateHandler{deps: deps}
}

// simulateRequest keeps the raw JSON values so the response can echo them
// exactly as sent.
type simulateRequest struct {
	Events  any `json:"events"`
	Revenue any `json:"revenue"`
}

type simulateResponse struct {
	ConversionValue int    `json:"conversion_value"`
	Events          any    `json:"events"`
	Revenue         any    `json:"revenue"`
	Timestamp       string `json:"timestamp"`
}

// HandleSimulate handles POST /api/simulate-conversion requests.
func (h *SimulateHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate_conversion"
	if !allowMethods(w, r, op, http.MethodPost) {
		return
	}

	req, err := decodeSimulateRequest(r.Body)
	if err != nil {
		writeError(r.Context(), w, WrapKind(op, kindOf(err), err))
		return
	}

	events := eventNames(req.Events)
	out := h.deps.Simulate(r.Context(), events, revenueValue(req.Revenue))

	resp := simulateResponse{
		ConversionValue: out.ConversionValue,
		Events:          req.Events,
		Revenue:         req.Revenue,
		Timestamp:       out.At.Format(time.RFC3339Nano),
	}
	if resp.Events == nil {
		resp.Events = []any{}
	}
	if resp.Revenue == nil {
		resp.Revenue = 0
	}
	writeJSON(w, http.StatusOK, resp)
}

var errNotObject = errors.New("body must be a JSON object")

// decodeSimulateRequest reads a JSON object. An empty body is an empty
// request; anything else that is not an object is rejected.
func decodeSimulateRequest(body io.Reader) (simulateRequest, error) {
	var req simulateRequest
	if body == nil {
		return req, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return req, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return req, nil
	}
	if raw[0] != '{' {
		return req, errNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

func kindOf(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrTooLarge
	}
	return ErrBadRequest
}

// eventNames keeps the string entries of v; anything else scores nothing.
func eventNames(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

// revenueValue returns the numeric revenue in v, or 0 when v is not a
// finite number. Out of range magnitudes saturate to an infinity.
func revenueValue(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}
