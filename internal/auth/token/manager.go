package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pysugar/quickmeeting/internal/db"
	"github.com/pysugar/quickmeeting/internal/db/models"
)

// AccountStore is the persistent account table the manager mediates.
// Query methods return nil without error when no row matches.
type AccountStore interface {
	QueryByActive(ctx context.Context) (*models.Account, error)
	QueryByEmail(ctx context.Context, email string) (*models.Account, error)
	Insert(ctx context.Context, account *models.Account) error
	UpdateByEmail(ctx context.Context, email string, fields db.Fields) (int64, error)
	UpdateByActiveNot(ctx context.Context, email string, fields db.Fields) (int64, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	ListEmailsAscending(ctx context.Context) ([]string, error)
}

// IdentityProvider performs the OAuth exchanges and the profile lookup.
type IdentityProvider interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (Grant, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (Grant, error)
	FetchProfileEmail(ctx context.Context, accessToken string) (string, error)
}

// Grant is the parsed result of a token exchange.
// RefreshToken is empty when a refresh response does not rotate it.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// state mirrors the active account row.
type state struct {
	userID         string // empty until reloaded from the store
	userEmail      string
	accessToken    string
	refreshToken   string
	expirationDate time.Time
}

// Manager owns the active account and keeps its access token fresh.
type Manager struct {
	store         AccountStore
	provider      IdentityProvider
	now           func() time.Time
	refreshMargin time.Duration

	mu    sync.Mutex
	state state
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRefreshMargin refreshes tokens this long before they expire.
func WithRefreshMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshMargin = d
	}
}

// NewManager creates a manager and loads the active account, if any.
// A missing active account or a failed initial refresh is not an error;
// a store failure is.
func NewManager(ctx context.Context, store AccountStore, provider IdentityProvider, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing account store")
	}
	if provider == nil {
		return nil, fmt.Errorf("missing identity provider")
	}

	m := &Manager{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.loadLocked(ctx)
	switch {
	case err == nil, errors.Is(err, ErrNoActiveAccount):
	case errors.Is(err, ErrTokenRefreshFailed):
		log.Printf("⚠️ Initial refresh for %s failed: %v", m.state.userEmail, err)
	default:
		return nil, err
	}
	return m, nil
}

// loadLocked reloads the cache from the active row (caller must hold lock).
func (m *Manager) loadLocked(ctx context.Context) error {
	account, err := m.store.QueryByActive(ctx)
	if err != nil {
		return fmt.Errorf("query active account: %w", err)
	}
	if account == nil {
		m.state = state{}
		return ErrNoActiveAccount
	}

	m.state = state{
		userID:       account.ID,
		userEmail:    account.Email,
		accessToken:  account.AccessToken,
		refreshToken: account.RefreshToken,
	}

	expiration, err := db.ParseExpiration(account.ExpirationDate)
	if err != nil {
		log.Printf("⚠️ Unreadable expiration %q for %s, refreshing", account.ExpirationDate, account.Email)
		m.state.expirationDate = m.now()
		return m.refreshLocked(ctx)
	}
	m.state.expirationDate = expiration

	log.Printf("📦 Loaded active account %s (expires: %s)", account.Email, expiration.Format(time.RFC3339))
	return nil
}

// Refresh renews the access token if it has expired.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// refreshLocked exchanges the refresh token when the cached access token
// has expired (caller must hold lock). The cache changes only after the
// store confirms the write.
func (m *Manager) refreshLocked(ctx context.Context) error {
	if m.state.refreshToken == "" {
		return ErrNoActiveAccount
	}

	now := m.now()
	if now.Before(m.state.expirationDate.Add(-m.refreshMargin)) {
		return nil
	}

	email := m.state.userEmail
	log.Printf("🔄 Access token for %s expired, refreshing...", email)

	grant, err := m.provider.ExchangeRefreshToken(ctx, m.state.refreshToken)
	if err != nil {
		log.Printf("❌ Refresh token failed for %s: %v", email, err)
		return fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}
	if grant.AccessToken == "" {
		return fmt.Errorf("%w: response has no access token", ErrTokenRefreshFailed)
	}

	expiration := now.Add(grant.ExpiresIn)
	fields := db.Fields{
		db.ColumnAccessToken:    grant.AccessToken,
		db.ColumnExpirationDate: db.FormatExpiration(expiration),
	}
	rotated := grant.RefreshToken != "" && grant.RefreshToken != m.state.refreshToken
	if rotated {
		fields[db.ColumnRefreshToken] = grant.RefreshToken
	}

	n, err := m.store.UpdateByEmail(ctx, email, fields)
	if err != nil {
		log.Printf("⚠️ Failed to save refreshed token for %s: %v", email, err)
		return fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %w: %d rows updated for %s", ErrTokenRefreshFailed, ErrStoreWriteConflict, n, email)
	}

	m.state.accessToken = grant.AccessToken
	m.state.expirationDate = expiration
	if rotated {
		log.Printf("🔄 Rotated refresh token for: %s", email)
		m.state.refreshToken = grant.RefreshToken
	}

	log.Printf("✅ Refreshed token for: %s (token: %s, expires: %s)", email, maskToken(grant.AccessToken), expiration.Format(time.RFC3339))
	return nil
}

// AddActiveAccount exchanges an authorization code, stores the account and
// makes it the active one. Nothing is written unless both the exchange and
// the profile lookup succeed.
func (m *Manager) AddActiveAccount(ctx context.Context, authorizationCode string) error {
	if authorizationCode == "" {
		return fmt.Errorf("%w: empty authorization code", ErrTokenExchangeFailed)
	}

	now := m.now()
	grant, err := m.provider.ExchangeAuthorizationCode(ctx, authorizationCode)
	if err != nil {
		log.Printf("❌ Authorization code exchange failed: %v", err)
		return fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" {
		return fmt.Errorf("%w: response is missing tokens", ErrTokenExchangeFailed)
	}
	expiration := now.Add(grant.ExpiresIn)

	email, err := m.provider.FetchProfileEmail(ctx, grant.AccessToken)
	if err != nil {
		log.Printf("❌ Profile lookup failed: %v", err)
		return fmt.Errorf("%w: %w", ErrProfileLookupFailed, err)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: empty email", ErrProfileLookupFailed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.saveActiveLocked(ctx, email, grant, expiration); err != nil {
		log.Printf("❌ Failed to save account %s: %v", email, err)
		return err
	}

	m.state = state{
		userEmail:      email,
		accessToken:    grant.AccessToken,
		refreshToken:   grant.RefreshToken,
		expirationDate: expiration,
	}

	// Other accounts become inactive; a failure here leaves stale flags
	// that the next switch or add clears.
	n, err := m.store.UpdateByActiveNot(ctx, email, db.Fields{db.ColumnIsActive: false})
	if err != nil {
		log.Printf("⚠️ Failed to deactivate other accounts: %v", err)
	} else {
		log.Printf("📦 %d other accounts marked inactive", n)
	}

	return nil
}

// saveActiveLocked upserts the account row as active (caller must hold lock).
func (m *Manager) saveActiveLocked(ctx context.Context, email string, grant Grant, expiration time.Time) error {
	existing, err := m.store.QueryByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("query account %s: %w", email, err)
	}

	if existing != nil {
		log.Printf("📦 User %s already exists, updating data", email)
		n, err := m.store.UpdateByEmail(ctx, email, db.Fields{
			db.ColumnAccessToken:    grant.AccessToken,
			db.ColumnRefreshToken:   grant.RefreshToken,
			db.ColumnIsActive:       true,
			db.ColumnExpirationDate: db.FormatExpiration(expiration),
		})
		if err != nil {
			return fmt.Errorf("update account %s: %w", email, err)
		}
		if n != 1 {
			return fmt.Errorf("%w: %d rows updated for %s", ErrStoreWriteConflict, n, email)
		}
		log.Printf("✅ User %s updated and defined as active", email)
		return nil
	}

	err = m.store.Insert(ctx, &models.Account{
		Email:          email,
		AccessToken:    grant.AccessToken,
		RefreshToken:   grant.RefreshToken,
		ExpirationDate: db.FormatExpiration(expiration),
		IsActive:       true,
	})
	if err != nil {
		return fmt.Errorf("insert account %s: %w", email, err)
	}
	log.Printf("✅ User %s inserted and defined as active", email)
	return nil
}

// GetActiveAccessToken returns a non-expired access token for the active
// account, refreshing it first if needed.
func (m *Manager) GetActiveAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.accessToken == "" {
		return "", ErrNoActiveAccount
	}
	if err := m.refreshLocked(ctx); err != nil {
		if errors.Is(err, ErrTokenRefreshFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}
	return m.state.accessToken, nil
}

// HasActiveAccessToken reports whether an access token is cached. It never
// touches the network.
func (m *Manager) HasActiveAccessToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.accessToken != ""
}

// GetActiveUserID returns the store identifier of the active account,
// reloading it from the store when it is not yet known.
func (m *Manager) GetActiveUserID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.userID == "" {
		if err := m.loadLocked(ctx); err != nil {
			log.Printf("⚠️ Failed to reload active account: %v", err)
		}
	}
	return m.state.userID
}

// GetActiveUserEmail returns the email of the active account, or "".
func (m *Manager) GetActiveUserEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.userEmail
}

// ActiveExpiration returns when the cached access token expires.
func (m *Manager) ActiveExpiration() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.expirationDate
}

// SwitchActiveAccount makes email the active account. Switching to the
// account that is already active is a no-op.
func (m *Manager) SwitchActiveAccount(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: empty email", ErrInvalidOperation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.userEmail != "" && strings.EqualFold(m.state.userEmail, email) {
		log.Printf("📦 %s is already the active account", email)
		return nil
	}

	n, err := m.store.UpdateByEmail(ctx, email, db.Fields{db.ColumnIsActive: true})
	if err != nil {
		return fmt.Errorf("activate %s: %w", email, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no account %s", ErrStoreWriteConflict, email)
	}
	log.Printf("📦 %d row passed to active", n)

	n, err = m.store.UpdateByActiveNot(ctx, email, db.Fields{db.ColumnIsActive: false})
	if err != nil {
		return fmt.Errorf("deactivate accounts other than %s: %w", email, err)
	}
	log.Printf("📦 %d rows passed to inactive", n)

	if err := m.loadLocked(ctx); err != nil {
		log.Printf("⚠️ Reload after switching to %s failed: %v", email, err)
	}
	return nil
}

// RemoveInactiveAccount deletes a non-active account.
func (m *Manager) RemoveInactiveAccount(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: empty email", ErrInvalidOperation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if email == m.state.userEmail {
		return fmt.Errorf("%w: %s is the active account", ErrInvalidOperation, email)
	}

	n, err := m.store.DeleteByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("delete %s: %w", email, err)
	}
	log.Printf("🗑️ Result delete %s: %d", email, n)
	if n != 1 {
		return fmt.Errorf("%w: %d rows removed for %s", ErrStoreWriteConflict, n, email)
	}
	return nil
}

// ListAllAccountEmails returns every known account email in ascending order.
func (m *Manager) ListAllAccountEmails(ctx context.Context) ([]string, error) {
	return m.store.ListEmailsAscending(ctx)
}

func maskToken(t string) string {
	if len(t) < 20 {
		return "..."
	}
	return "..." + t[len(t)-8:]
}
