package token

import "errors"

var (
	// ErrNoActiveAccount means no access token was ever established.
	ErrNoActiveAccount = errors.New("no active account")
	// ErrTokenRefreshFailed means a refresh was attempted and failed; the
	// user may need to re-authorize.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
	// ErrTokenExchangeFailed means the authorization code could not be exchanged.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	// ErrProfileLookupFailed means the account email could not be fetched.
	ErrProfileLookupFailed = errors.New("profile lookup failed")
	// ErrStoreWriteConflict means a write affected an unexpected number of rows.
	ErrStoreWriteConflict = errors.New("store write conflict")
	// ErrInvalidOperation rejects requests such as removing the active account.
	ErrInvalidOperation = errors.New("invalid operation")
)
