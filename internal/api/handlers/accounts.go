package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/quickmeeting/internal/auth/token"
)

// AccountView is one entry of the accounts list.
type AccountView struct {
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// AccountsAPIHandler handles GET /api/accounts
func AccountsAPIHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emails, err := tokenMgr.ListAllAccountEmails(r.Context())
		if err != nil {
			writeManagerError(w, r, err)
			return
		}

		active := tokenMgr.GetActiveUserEmail()
		views := make([]AccountView, 0, len(emails))
		for _, email := range emails {
			views = append(views, AccountView{Email: email, IsActive: email == active})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"accounts": views,
			"active":   active,
			"count":    len(views),
		})
	}
}

// SwitchAccountHandler handles POST /api/accounts/active
func SwitchAccountHandler(tokenMgr *token.Manager) http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "email is required")
			return
		}

		if err := tokenMgr.SwitchActiveAccount(r.Context(), req.Email); err != nil {
			writeManagerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"active": tokenMgr.GetActiveUserEmail(),
		})
	}
}

// DeleteAccountHandler handles DELETE /api/accounts/{email}
func DeleteAccountHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil || email == "" {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "Account email required")
			return
		}

		if err := tokenMgr.RemoveInactiveAccount(r.Context(), email); err != nil {
			writeManagerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// MeHandler handles GET /api/me
func MeHandler(tokenMgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tokenMgr.HasActiveAccessToken() {
			writeManagerError(w, r, token.ErrNoActiveAccount)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":         tokenMgr.GetActiveUserID(r.Context()),
			"email":      tokenMgr.GetActiveUserEmail(),
			"expires_at": tokenMgr.ActiveExpiration(),
		})
	}
}
