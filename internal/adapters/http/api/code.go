package api

import "net/http"

// CodeHandler serves Flutter code samples.
type CodeHandler struct {
	deps ContentProvider
}

// NewCodeHandler creates a new code sample handler.
func NewCodeHandler(deps ContentProvider) *CodeHandler {
	return &CodeHandler{deps: deps}
}

type codeResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// HandleGetCode handles GET /api/get-flutter-code/{type} requests.
func (h *CodeHandler) HandleGetCode(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_flutter_code"
	if !allowMethods(w, r, op, http.MethodGet) {
		return
	}
	typ := r.PathValue("type")
	sample, ok := h.deps.Sample(r.Context(), typ)
	if !ok {
		writeJSON(w, http.StatusNotFound, failureResponse{Success: false, Error: "Code sample not found"})
		return
	}
	writeJSON(w, http.StatusOK, codeResponse{Success: true, Code: sample.Code, Type: typ})
}
