package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pysugar/quickmeeting/internal/auth/token"
	"github.com/pysugar/quickmeeting/internal/logging"
)

// Error types returned in the JSON error body.
const (
	ErrorTypeNotSignedIn    = "not_signed_in"
	ErrorTypeReauthRequired = "reauth_required"
	ErrorTypeInvalidRequest = "invalid_request"
	ErrorTypeConflict       = "conflict"
	ErrorTypeUpstream       = "upstream_error"
	ErrorTypeInternal       = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"type":    errType,
		},
	})
}

// writeManagerError maps token manager failures to HTTP responses so that
// clients can tell "sign in" apart from "sign in again".
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := http.StatusInternalServerError, ErrorTypeInternal
	switch {
	case errors.Is(err, token.ErrNoActiveAccount):
		status, errType = http.StatusUnauthorized, ErrorTypeNotSignedIn
	case errors.Is(err, token.ErrTokenRefreshFailed):
		status, errType = http.StatusBadGateway, ErrorTypeReauthRequired
	case errors.Is(err, token.ErrTokenExchangeFailed), errors.Is(err, token.ErrProfileLookupFailed):
		status, errType = http.StatusBadGateway, ErrorTypeUpstream
	case errors.Is(err, token.ErrInvalidOperation):
		status, errType = http.StatusConflict, ErrorTypeConflict
	case errors.Is(err, token.ErrStoreWriteConflict):
		status, errType = http.StatusNotFound, ErrorTypeConflict
	}
	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s: %v", logging.GetRequestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeError(w, status, errType, err.Error())
}
