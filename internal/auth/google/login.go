package google

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// StateCookieName holds the CSRF state of an in-flight consent.
const StateCookieName = "quickmeeting_oauth_state"

const stateCookieTTL = 10 * time.Minute

func newStateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HandleLogin redirects to the consent page. Offline access with forced
// approval makes the provider return a refresh token every time.
func HandleLogin(config *oauth2.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := newStateToken()
		if err != nil {
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     StateCookieName,
			Value:    state,
			Path:     "/auth/google",
			MaxAge:   int(stateCookieTTL / time.Second),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		url := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}

// validState reports whether the callback state matches the login cookie.
func validState(r *http.Request) bool {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	state := r.URL.Query().Get("state")
	return subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) == 1
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
