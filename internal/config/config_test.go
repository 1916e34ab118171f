package config

import (
	"testing"
	"time"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "tok")
	t.Setenv("USER_ID", "me")

	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.UserRole != "PATIENT" {
		t.Fatalf("expected default role PATIENT, got %q", cfg.UserRole)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.HTTPTimeout)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected local location, got %v err=%v", loc, err)
	}
}

func TestLoadClientConfig_RequiresToken(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("USER_ID", "me")
	if _, err := LoadClientConfig(); err == nil {
		t.Fatalf("expected error when AUTH_TOKEN is missing")
	}
}

func TestLoadClientConfig_InvalidTimezone(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "tok")
	t.Setenv("USER_ID", "me")
	t.Setenv("CHAT_TIMEZONE", "Mars/Olympus")
	if _, err := LoadClientConfig(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestLoadConfig_ParsesDurations(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CHAT_SEND_WINDOW", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SendWindow != 30*time.Second {
		t.Fatalf("expected 30s window, got %v", cfg.SendWindow)
	}
	if cfg.SendMax != 20 || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
