package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets-app.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, ``)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Store.Backend != "fs" {
		t.Errorf("Expected default backend fs, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Dir != "./data" {
		t.Errorf("Expected default dir ./data, got %q", cfg.Store.Dir)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
[store]
backend = "postgres"
dsn = "host=localhost password=${TEST_DB_PASSWORD} dbname=secrets"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !strings.Contains(cfg.Store.DSN, "password=s3cret") {
		t.Errorf("Expected expanded password in DSN, got %q", cfg.Store.DSN)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "postgres without dsn",
			content: `
[store]
backend = "postgres"
`,
			wantErr: "store.dsn is required",
		},
		{
			name: "unknown backend",
			content: `
[store]
backend = "mongodb"
`,
			wantErr: "unknown store.backend",
		},
		{
			name: "google id without secret",
			content: `
[google]
client_id = "abc"
`,
			wantErr: "must be set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
