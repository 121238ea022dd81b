package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points every config source at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("QUICKMEETING_CONFIG", "")
	for _, key := range []string{
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "QUICKMEETING_REDIRECT_URL",
		"QUICKMEETING_DB", "HOST", "PORT", "QUICKMEETING_VERBOSE",
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "quickmeeting.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithEnvClientID(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != DefaultHost+":"+DefaultPort {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
	if cfg.DBPath != DefaultDBPath {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.OAuth.ClientID != "client-123" {
		t.Fatalf("client id not taken from env: %q", cfg.OAuth.ClientID)
	}
	if !strings.HasPrefix(cfg.OAuth.TokenURL, "https://") || cfg.OAuth.UserInfoURL != DefaultUserInfoURL {
		t.Fatalf("unexpected default endpoints %+v", cfg.OAuth)
	}
	if len(cfg.OAuth.Scopes) != len(DefaultScopes) {
		t.Fatalf("expected default scopes, got %v", cfg.OAuth.Scopes)
	}
	if cfg.OAuth.HTTPTimeout() != DefaultHTTPTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.OAuth.HTTPTimeout())
	}
	if cfg.OAuth.RefreshMarginDuration() != 0 {
		t.Fatalf("expected zero refresh margin, got %v", cfg.OAuth.RefreshMarginDuration())
	}
}

func TestLoad_MissingClientID(t *testing.T) {
	isolate(t)

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Fatalf("expected client_id error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
host: 0.0.0.0
port: "9090"
db_path: /tmp/qm.db
oauth:
  client_id: file-client
  client_secret: file-secret
  scopes:
    - email
    - " email "
    - calendar
  timeout: 5s
  refresh_margin: 1m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9090" || cfg.DBPath != "/tmp/qm.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.OAuth.ClientID != "file-client" || cfg.OAuth.ClientSecret != "file-secret" {
		t.Fatalf("oauth credentials not applied: %+v", cfg.OAuth)
	}
	if got := strings.Join(cfg.OAuth.Scopes, ","); got != "email,calendar" {
		t.Fatalf("expected deduplicated scopes, got %q", got)
	}
	if cfg.OAuth.HTTPTimeout() != 5*time.Second || cfg.OAuth.RefreshMarginDuration() != time.Minute {
		t.Fatalf("durations not parsed: %v %v", cfg.OAuth.HTTPTimeout(), cfg.OAuth.RefreshMarginDuration())
	}
	// Unset file keys keep their defaults.
	if cfg.OAuth.RedirectURL != DefaultRedirectURL {
		t.Fatalf("expected default redirect, got %q", cfg.OAuth.RedirectURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
port: "9090"
oauth:
  client_id: file-client
`)
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("PORT", "7070")
	t.Setenv("QUICKMEETING_DB", "env.db")
	t.Setenv("QUICKMEETING_VERBOSE", "true")

	// Found through the working directory candidate.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OAuth.ClientID != "env-client" || cfg.Port != "7070" || cfg.DBPath != "env.db" || !cfg.Verbose {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("oauth:\n  client_id: from-env-path\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("QUICKMEETING_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OAuth.ClientID != "from-env-path" {
		t.Fatalf("QUICKMEETING_CONFIG not honored: %q", cfg.OAuth.ClientID)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "oauth: [", "parse config"},
		{"bad timeout", "oauth:\n  client_id: c\n  timeout: soon\n", "invalid oauth timeout"},
		{"negative timeout", "oauth:\n  client_id: c\n  timeout: -1s\n", "invalid oauth timeout"},
		{"no token url", "oauth:\n  client_id: c\n  token_url: \"\"\n", "token_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeConfig(t, dir, tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		dir := isolate(t)
		if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Fatal("expected read error")
		}
	})
}
