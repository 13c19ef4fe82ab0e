package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
port: "8080"
databaseURL: "postgres://localhost/bytehub"
redisAddr: "localhost:6379"
jwtSecret: "secret"
minioEndpoint: "localhost:9000"
minioBucket: "bytehub-media"
sessionTTL: "12h"
allowedExtensions:
  - .pdf
  - .txt
`

func TestLoadReadsYAML(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("redisAddr = %q", cfg.RedisAddr)
	}
	if len(cfg.AllowedExtensions) != 2 {
		t.Fatalf("allowedExtensions = %v", cfg.AllowedExtensions)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, validConfig)
	t.Setenv("DATABASE_URL", "postgres://db.internal/bytehub")
	t.Setenv("BYTEHUB_ALLOWED_EXTENSIONS", ".pdf, .md")
	t.Setenv("BYTEHUB_SIGNUP_RATE_LIMIT_PER_MINUTE", "7")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db.internal/bytehub" {
		t.Fatalf("databaseURL = %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".md" {
		t.Fatalf("allowedExtensions = %v", cfg.AllowedExtensions)
	}
	if cfg.SignupRateLimitPerMinute != 7 {
		t.Fatalf("signupRateLimitPerMinute = %d", cfg.SignupRateLimitPerMinute)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `port: "8080"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing fields")
	}
}

func TestParseSessionTTL(t *testing.T) {
	ttl, err := ParseSessionTTL("")
	if err != nil || ttl != 24*time.Hour {
		t.Fatalf("default TTL = %v, err = %v", ttl, err)
	}
	if _, err := ParseSessionTTL("-1h"); err == nil {
		t.Fatalf("negative TTL must be rejected")
	}
	if _, err := ParseSessionTTL("bogus"); err == nil {
		t.Fatalf("unparseable TTL must be rejected")
	}
}
