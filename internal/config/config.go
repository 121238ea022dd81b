package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = "8080"
	DefaultDBPath      = "quickmeeting.db"
	DefaultRedirectURL = "http://localhost:8080/auth/google/callback"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	DefaultHTTPTimeout = 30 * time.Second
)

// DefaultScopes let the account read its calendar and email address.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Config is the application configuration.
type Config struct {
	Host    string      `yaml:"host"`
	Port    string      `yaml:"port"`
	DBPath  string      `yaml:"db_path"`
	Verbose bool        `yaml:"verbose"`
	OAuth   OAuthConfig `yaml:"oauth"`
}

// OAuthConfig describes the identity provider.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
	Timeout      string   `yaml:"timeout"`
	// RefreshMargin renews tokens this long before they expire.
	RefreshMargin string `yaml:"refresh_margin"`
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// HTTPTimeout bounds every identity provider round trip.
func (o OAuthConfig) HTTPTimeout() time.Duration {
	return parseDuration(o.Timeout, DefaultHTTPTimeout)
}

// RefreshMarginDuration returns the parsed refresh margin, 0 when unset.
func (o OAuthConfig) RefreshMarginDuration() time.Duration {
	return parseDuration(o.RefreshMargin, 0)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:   DefaultHost,
		Port:   DefaultPort,
		DBPath: DefaultDBPath,
		OAuth: OAuthConfig{
			RedirectURL: DefaultRedirectURL,
			AuthURL:     google.Endpoint.AuthURL,
			TokenURL:    google.Endpoint.TokenURL,
			UserInfoURL: DefaultUserInfoURL,
			Scopes:      append([]string(nil), DefaultScopes...),
		},
	}
}

// Load reads the YAML file at path (or the first candidate found when path
// is empty), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := resolveConfigPath(path)
	if resolved != "" {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", resolved, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", resolved, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the OAuth client is usable.
func (c *Config) Validate() error {
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("oauth client_id is required (set GOOGLE_CLIENT_ID)")
	}
	if c.OAuth.TokenURL == "" || c.OAuth.AuthURL == "" {
		return fmt.Errorf("oauth auth_url and token_url are required")
	}
	if c.OAuth.UserInfoURL == "" {
		return fmt.Errorf("oauth userinfo_url is required")
	}
	if raw := strings.TrimSpace(c.OAuth.Timeout); raw != "" {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return fmt.Errorf("invalid oauth timeout %q", raw)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.OAuth.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&cfg.OAuth.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setFromEnv(&cfg.OAuth.RedirectURL, "QUICKMEETING_REDIRECT_URL")
	setFromEnv(&cfg.DBPath, "QUICKMEETING_DB")
	setFromEnv(&cfg.Host, "HOST")
	setFromEnv(&cfg.Port, "PORT")
	if v := strings.TrimSpace(os.Getenv("QUICKMEETING_VERBOSE")); v == "1" || strings.EqualFold(v, "true") {
		cfg.Verbose = true
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func normalize(cfg *Config) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = DefaultDBPath
	}

	scopes := make([]string, 0, len(cfg.OAuth.Scopes))
	seen := make(map[string]struct{}, len(cfg.OAuth.Scopes))
	for _, s := range cfg.OAuth.Scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	if len(scopes) == 0 {
		scopes = append(scopes, DefaultScopes...)
	}
	cfg.OAuth.Scopes = scopes
}

func resolveConfigPath(explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if env := strings.TrimSpace(os.Getenv("QUICKMEETING_CONFIG")); env != "" {
		return env
	}

	candidates := []string{
		"quickmeeting.yaml",
		"config/quickmeeting.yaml",
		"/etc/quickmeeting/quickmeeting.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "quickmeeting", "quickmeeting.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return fallback
}
