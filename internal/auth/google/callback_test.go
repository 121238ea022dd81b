package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pysugar/quickmeeting/internal/auth/token"
	"github.com/pysugar/quickmeeting/internal/config"
)

type fakeAdder struct {
	codes []string
	err   error
	email string
}

func (f *fakeAdder) AddActiveAccount(ctx context.Context, code string) error {
	f.codes = append(f.codes, code)
	if f.err == nil {
		f.email = "a@x.com"
	}
	return f.err
}

func (f *fakeAdder) GetActiveUserEmail() string { return f.email }

const testState = "0123456789abcdef"

func callbackRequest(query url.Values, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: StateCookieName, Value: cookieState})
	}
	return req
}

func TestHandleLogin_RedirectsToConsent(t *testing.T) {
	cfg := GetOAuthConfig(config.OAuthConfig{
		ClientID:    "client-123",
		RedirectURL: "http://localhost:8080/auth/google/callback",
		AuthURL:     "https://accounts.example.com/o/oauth2/auth",
		TokenURL:    "https://accounts.example.com/token",
		Scopes:      []string{"email"},
	})

	rec := httptest.NewRecorder()
	HandleLogin(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	q := loc.Query()
	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == StateCookieName {
			state = c.Value
			if !c.HttpOnly {
				t.Fatal("state cookie must be HttpOnly")
			}
		}
	}
	if state == "" || q.Get("state") != state || q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Fatalf("unexpected consent query %v", q)
	}
	if q.Get("client_id") != "client-123" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected consent query %v", q)
	}
}

func TestHandleCallback(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		noCookie  bool
		addErr    error
		wantCode  int
		wantCalls int
	}{
		{
			name:      "success",
			query:     url.Values{"state": {testState}, "code": {"code123"}},
			wantCode:  http.StatusOK,
			wantCalls: 1,
		},
		{
			name:     "bad state",
			query:    url.Values{"state": {"forged"}, "code": {"code123"}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no state cookie",
			query:    url.Values{"state": {testState}, "code": {"code123"}},
			noCookie: true,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "denied",
			query:    url.Values{"state": {testState}, "error": {"access_denied"}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing code",
			query:    url.Values{"state": {testState}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "exchange failed",
			query:     url.Values{"state": {testState}, "code": {"expired"}},
			addErr:    fmt.Errorf("%w: invalid_grant", token.ErrTokenExchangeFailed),
			wantCode:  http.StatusBadGateway,
			wantCalls: 1,
		},
		{
			name:      "store failed",
			query:     url.Values{"state": {testState}, "code": {"code123"}},
			addErr:    fmt.Errorf("%w: 0 rows updated", token.ErrStoreWriteConflict),
			wantCode:  http.StatusInternalServerError,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adder := &fakeAdder{err: tt.addErr}
			rec := httptest.NewRecorder()
			cookie := testState
			if tt.noCookie {
				cookie = ""
			}
			HandleCallback(adder).ServeHTTP(rec, callbackRequest(tt.query, cookie))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d body=%s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if len(adder.codes) != tt.wantCalls {
				t.Fatalf("expected %d AddActiveAccount calls, got %d", tt.wantCalls, len(adder.codes))
			}
			if tt.wantCode == http.StatusOK && !strings.Contains(rec.Body.String(), "a@x.com") {
				t.Fatalf("success page should name the account, got %s", rec.Body.String())
			}
		})
	}
}
