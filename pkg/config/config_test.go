package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECORDSTORE_API_BASE_URL", "https://api.recordstore.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.recordstore.test" {
		t.Fatalf("expected trimmed base URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.API.Timeout)
	}
	if cfg.Alert.DisplayDuration != 5*time.Second {
		t.Fatalf("unexpected alert duration %s", cfg.Alert.DisplayDuration)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("unexpected log level %q", cfg.App.LogLevel)
	}
	if !cfg.App.IsDev() {
		t.Fatalf("default env should be dev")
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("RECORDSTORE_API_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when base URL is missing")
	}
}

func TestLoadRejectsRelativeBaseURL(t *testing.T) {
	t.Setenv("RECORDSTORE_API_BASE_URL", "api.recordstore.test/v1")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for relative base URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECORDSTORE_API_BASE_URL", "https://api.recordstore.test")
	t.Setenv("RECORDSTORE_API_TIMEOUT", "3s")
	t.Setenv("RECORDSTORE_ALERT_DISPLAY_DURATION", "1s")
	t.Setenv("RECORDSTORE_APP_ENV", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.API.Timeout)
	}
	if cfg.Alert.DisplayDuration != time.Second {
		t.Fatalf("unexpected alert duration %s", cfg.Alert.DisplayDuration)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected prod env")
	}
}
