package google

import (
	"github.com/pysugar/quickmeeting/internal/config"
	"golang.org/x/oauth2"
)

// GetOAuthConfig returns the OAuth2 config for the identity provider.
// Credentials travel in the form body, so every token request carries
// client_id (and redirect_uri for code exchange).
func GetOAuthConfig(cfg config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
