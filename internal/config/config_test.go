package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load() without JWT_SECRET = nil, want error")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.DBHost != "localhost" || cfg.DBPort != 5432 {
		t.Errorf("DB defaults = %s:%d, want localhost:5432", cfg.DBHost, cfg.DBPort)
	}
	if cfg.JWTIssuer != "procurio" {
		t.Errorf("JWTIssuer = %q, want procurio", cfg.JWTIssuer)
	}
	if cfg.InviteTTL != 7*24*time.Hour {
		t.Errorf("InviteTTL = %v, want 168h", cfg.InviteTTL)
	}
	if cfg.SequenceMaxAttempts != 5 || cfg.SequenceBaseBackoff != 25*time.Millisecond {
		t.Errorf("sequence tuning = %d/%v, want 5/25ms", cfg.SequenceMaxAttempts, cfg.SequenceBaseBackoff)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = false, want true")
	}
	if cfg.HasSMTP() {
		t.Error("HasSMTP() = true with no SMTP env, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BASE_DOMAIN", "example.com")
	t.Setenv("SEQUENCE_BASE_BACKOFF", "100ms")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "no-reply@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.BaseDomain != "example.com" {
		t.Errorf("BaseDomain = %q, want example.com", cfg.BaseDomain)
	}
	if cfg.SequenceBaseBackoff != 100*time.Millisecond {
		t.Errorf("SequenceBaseBackoff = %v, want 100ms", cfg.SequenceBaseBackoff)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
	if !cfg.HasSMTP() {
		t.Error("HasSMTP() = false, want true")
	}
}
