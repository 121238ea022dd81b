package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pysugar/quickmeeting/internal/auth/token"
	"github.com/pysugar/quickmeeting/internal/config"
	"github.com/pysugar/quickmeeting/internal/util"
	"golang.org/x/oauth2"
)

// Client talks to the Google token and userinfo endpoints.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Compile-time check to ensure Client implements token.IdentityProvider
var _ token.IdentityProvider = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. Requests are bounded by cfg's timeout since
// the token manager holds its lock across them.
func NewClient(cfg config.OAuthConfig, opts ...ClientOption) *Client {
	c := &Client{
		oauth:       GetOAuthConfig(cfg),
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OAuthConfig exposes the underlying config for building consent URLs.
func (c *Client) OAuthConfig() *oauth2.Config {
	return c.oauth
}

// oauthContext injects the client's HTTP client per oauth2's documented API.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// ExchangeAuthorizationCode trades a one-time code for a token pair.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (token.Grant, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return token.Grant{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return token.Grant{}, fmt.Errorf("exchange authorization code: response missing refresh_token")
	}
	return grantFromToken(tok)
}

// ExchangeRefreshToken mints a new access token.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (token.Grant, error) {
	if refreshToken == "" {
		return token.Grant{}, fmt.Errorf("refresh: empty refresh token")
	}
	// An empty access token forces the source to refresh.
	ts := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return token.Grant{}, fmt.Errorf("refresh: %w", err)
	}
	grant, err := grantFromToken(tok)
	if err != nil {
		return token.Grant{}, err
	}
	// oauth2 carries the old refresh token forward when none is returned.
	if grant.RefreshToken == refreshToken {
		grant.RefreshToken = ""
	}
	return grant, nil
}

// FetchProfileEmail returns the email of the account that owns accessToken.
func (c *Client) FetchProfileEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}

	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user info failed (%d): %s", resp.StatusCode, util.TruncateBytes(body))
	}

	var userInfo struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return "", fmt.Errorf("decode user info: %w", err)
	}
	email := strings.TrimSpace(userInfo.Email)
	if email == "" {
		return "", fmt.Errorf("user info has no email")
	}
	return email, nil
}

func grantFromToken(tok *oauth2.Token) (token.Grant, error) {
	if tok.AccessToken == "" {
		return token.Grant{}, fmt.Errorf("response missing access_token")
	}
	expiresIn, err := expiresIn(tok)
	if err != nil {
		return token.Grant{}, err
	}
	return token.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// expiresIn reads the raw expires_in field, which providers send either as
// a JSON number or as a numeric string.
func expiresIn(tok *oauth2.Token) (time.Duration, error) {
	var seconds int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case int64:
		seconds = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid expires_in %q: %w", v, err)
		}
		seconds = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expires_in %q: %w", v, err)
		}
		seconds = n
	case nil:
		return 0, fmt.Errorf("response missing expires_in")
	default:
		return 0, fmt.Errorf("invalid expires_in type %T", v)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid expires_in %d", seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}
