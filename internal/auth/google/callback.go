package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"

	"github.com/pysugar/quickmeeting/internal/auth/token"
)

// AccountAdder receives the authorization code of a completed consent.
type AccountAdder interface {
	AddActiveAccount(ctx context.Context, authorizationCode string) error
	GetActiveUserEmail() string
}

// HandleCallback processes the OAuth callback and activates the account.
func HandleCallback(accounts AccountAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if !validState(r) {
			http.Error(w, "Invalid state token", http.StatusBadRequest)
			return
		}
		clearStateCookie(w)

		if oauthErr := query.Get("error"); oauthErr != "" {
			http.Error(w, "Authorization denied: "+oauthErr, http.StatusBadRequest)
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}

		if err := accounts.AddActiveAccount(r.Context(), code); err != nil {
			log.Printf("[OAuth] Failed to add account: %v", err)
			status := http.StatusInternalServerError
			if errors.Is(err, token.ErrTokenExchangeFailed) || errors.Is(err, token.ErrProfileLookupFailed) {
				status = http.StatusBadGateway
			}
			http.Error(w, fmt.Sprintf("Login failed: %v", err), status)
			return
		}

		email := accounts.GetActiveUserEmail()
		log.Printf("[OAuth] Account %s is now active", email)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Login Successful</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; text-align: center; }
		.success { color: #16a34a; font-size: 24px; margin-bottom: 10px; }
	</style>
</head>
<body>
	<div class="success">✅ Login Successful</div>
	<p>Account <strong>%s</strong> is now the active account.</p>
	<p>You can close this window.</p>
</body>
</html>`, html.EscapeString(email))
	}
}
