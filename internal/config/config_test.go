package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WARD27_PG_DSN", "postgres://localhost/ward27_test")
	t.Setenv("WARD27_AUTH_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access TTL %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 14*24*time.Hour {
		t.Fatalf("unexpected refresh TTL %s", cfg.RefreshTokenTTL)
	}
	if cfg.RememberMeTTL != 60*24*time.Hour {
		t.Fatalf("unexpected remember-me TTL %s", cfg.RememberMeTTL)
	}
	if cfg.RoleCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected role cache TTL %s", cfg.RoleCacheTTL)
	}
	if cfg.Issuer != "ward27.org" {
		t.Fatalf("unexpected issuer %q", cfg.Issuer)
	}
	if len(cfg.Audiences) != 1 || cfg.Audiences[0] != "ward27.org" {
		t.Fatalf("unexpected audiences %v", cfg.Audiences)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("WARD27_AUTH_SECRET", strings.Repeat("s", 32))
	t.Setenv("WARD27_PG_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("WARD27_PG_DSN", "postgres://localhost/x")
	t.Setenv("WARD27_AUTH_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestLoadParsesAudienceList(t *testing.T) {
	setRequired(t)
	t.Setenv("WARD27_AUTH_AUDIENCES", "ward27.org, mobile.ward27.org , ")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Audiences) != 2 || cfg.Audiences[1] != "mobile.ward27.org" {
		t.Fatalf("unexpected audiences %v", cfg.Audiences)
	}
}

func TestLoadRejectsShortRememberMe(t *testing.T) {
	setRequired(t)
	t.Setenv("WARD27_REMEMBER_ME_TTL", "24h")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when remember-me TTL undercuts the refresh TTL")
	}
}
