package api

import (
	"net/http"
	"strings"

	"github.com/okian/skanlab/internal/domain/session"
)

// ProtectedHandler serves the obfuscated browser script to session holders.
type ProtectedHandler struct {
	content ContentProvider
	auth    Authorizer
}

// NewProtectedHandler creates a new protected script handler.
func NewProtectedHandler(content ContentProvider, auth Authorizer) *ProtectedHandler {
	return &ProtectedHandler{content: content, auth: auth}
}

type protectedResponse struct {
	Code string `json:"code"`
	Key  string `json:"key"`
}

// HandleProtectedJS handles GET /api/protected-js requests.
func (h *ProtectedHandler) HandleProtectedJS(w http.ResponseWriter, r *http.Request) {
	const op = "api.protected_js"
	if !allowMethods(w, r, op, http.MethodGet) {
		return
	}

	claims, err := h.auth.Authorize(r.Context(), sessionToken(r))
	if err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrUnauthorized, err))
		return
	}

	code, err := h.content.ProtectedScript(r.Context())
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, protectedResponse{Code: code, Key: claims.Key})
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}
