package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pysugar/quickmeeting/internal/db"
	"github.com/pysugar/quickmeeting/internal/db/models"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("QUICKMEETING_DB", "")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	path := filepath.Join(dir, "quickmeeting.yaml")
	body := "db_path: " + dbPath + "\noauth:\n  client_id: client-123\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dbPath
}

func TestAccountsCommand(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	database, err := db.InitDB(dbPath, false)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	store := db.NewAccountStore(database)
	ctx := context.Background()
	for _, a := range []models.Account{
		{Email: "b@x.com", RefreshToken: "rb"},
		{Email: "a@x.com", RefreshToken: "ra", IsActive: true},
	} {
		if err := store.Insert(ctx, &a); err != nil {
			t.Fatalf("insert %s: %v", a.Email, err)
		}
	}
	_ = store.Close()

	var out bytes.Buffer
	if err := execute(ctx, []string{"quickmeeting", "--config", configPath, "accounts"}, &out); err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if got := out.String(); got != "* a@x.com\n  b@x.com\n" {
		t.Fatalf("unexpected accounts output %q", got)
	}
}

func TestAPIKeyCommands(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	ctx := context.Background()

	var shown bytes.Buffer
	if err := execute(ctx, []string{"quickmeeting", "--config", configPath, "api-key"}, &shown); err != nil {
		t.Fatalf("api-key: %v", err)
	}
	first := strings.TrimSpace(shown.String())
	if !strings.HasPrefix(first, "sk-") {
		t.Fatalf("expected an sk- key, got %q", first)
	}

	var rotated bytes.Buffer
	if err := execute(ctx, []string{"quickmeeting", "--config", configPath, "api-key", "rotate"}, &rotated); err != nil {
		t.Fatalf("api-key rotate: %v", err)
	}
	second := strings.TrimSpace(rotated.String())
	if second == first || !strings.HasPrefix(second, "sk-") {
		t.Fatalf("expected a new key, got %q after %q", second, first)
	}
}

func TestMissingClientIDFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quickmeeting.yaml")
	if err := os.WriteFile(path, []byte("db_path: "+filepath.Join(dir, "x.db")+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOOGLE_CLIENT_ID", "")

	err := execute(context.Background(), []string{"quickmeeting", "--config", path, "accounts"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Fatalf("expected client_id error, got %v", err)
	}
}
