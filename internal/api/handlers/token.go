package handlers

import (
	"net/http"

	"github.com/pysugar/quickmeeting/internal/auth/token"
)

// TokenHandler handles GET /api/token and returns a usable access token.
func TokenHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, err := tokenMgr.GetActiveAccessToken(r.Context())
		if err != nil {
			writeManagerError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"email":        tokenMgr.GetActiveUserEmail(),
			"expires_at":   tokenMgr.ActiveExpiration(),
		})
	}
}

// RefreshHandler handles POST /api/token/refresh
func RefreshHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tokenMgr.Refresh(r.Context()); err != nil {
			writeManagerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"expires_at": tokenMgr.ActiveExpiration(),
		})
	}
}
