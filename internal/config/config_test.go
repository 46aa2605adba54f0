package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if !cfg.UsingDevSecret() {
		t.Fatal("default config must flag the dev secret")
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backoffice.yaml")
	body := []byte("server:\n  addr: \":8088\"\nauth:\n  jwt_secret: filesecret\n  access_token_ttl: 1h\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8088" {
		t.Fatalf("addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "filesecret" {
		t.Fatalf("secret = %q, want file value", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Fatalf("ttl = %s, want 1h", cfg.Auth.AccessTokenTTL)
	}
	// defaults still fill the sections the file omitted
	if cfg.Upload.MaxBytes != 5<<20 {
		t.Fatalf("upload max = %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backoffice.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":8088\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BACKOFFICE_ADDR", ":7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("addr = %q, env must win", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateRejectsIdleOverOpen(t *testing.T) {
	cfg := Default()
	cfg.Database.MaxOpenConns = 2
	cfg.Database.MaxIdleConns = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected idle > open to be rejected")
	}
}
