package api

import (
	"net/http"

	"github.com/okian/skanlab/internal/domain/session"
)

// SessionHandler ends browser sessions.
type SessionHandler struct {
	auth    Authorizer
	revoker SessionRevoker
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(auth Authorizer, revoker SessionRevoker) *SessionHandler {
	return &SessionHandler{auth: auth, revoker: revoker}
}

type successResponse struct {
	Success bool `json:"success"`
}

// HandleRevoke handles DELETE /api/session. The presented session key is
// revoked and the session cookie cleared.
func (h *SessionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	const op = "api.revoke_session"
	if !allowMethods(w, r, op, http.MethodDelete) {
		return
	}

	claims, err := h.auth.Authorize(r.Context(), sessionToken(r))
	if err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrUnauthorized, err))
		return
	}
	h.revoker.RevokeSession(r.Context(), claims.Key)

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
