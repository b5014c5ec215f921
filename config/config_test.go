package config

import (
	"os"
	"testing"
)

func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}

func TestLoadValidConfig(t *testing.T) {
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "127.0.0.1")
	_ = os.Setenv("ENV", "dev")
	_ = os.Setenv("LOG_LEVEL", "info")
	_ = os.Setenv("CACHE_TTL_SECONDS", "60")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.CacheTTLSeconds != 60 {
		t.Errorf("Expected cache TTL 60, got %d", cfg.CacheTTLSeconds)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.SheetsBaseURL != "https://docs.google.com/spreadsheets/d" {
		t.Errorf("Unexpected default base URL: %s", cfg.SheetsBaseURL)
	}
	if cfg.CacheTTLSeconds != 30 {
		t.Errorf("Expected default cache TTL 30, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.FetchTimeoutSeconds != 30 {
		t.Errorf("Expected default fetch timeout 30, got %d", cfg.FetchTimeoutSeconds)
	}
	if cfg.MaxSourceBytes != 10485760 {
		t.Errorf("Expected default source cap 10MB, got %d", cfg.MaxSourceBytes)
	}
}

func TestInvalidPort(t *testing.T) {
	testCases := []string{"abc", "0", "65536", "80"}

	for _, port := range testCases {
		cleanupEnv()
		_ = os.Setenv("PORT", port)

		if _, err := Load(); err == nil {
			t.Errorf("Expected error for port %s, got nil", port)
		}
	}
	cleanupEnv()
}

func TestInvalidAddress(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("ADDRESS", "invalid")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid address, got nil")
	}
}

func TestInvalidEnv(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("ENV", "production-ish")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid env, got nil")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid log level, got nil")
	}
}

func TestInvalidBaseURL(t *testing.T) {
	testCases := []string{"ftp://example.com", "docs.google.com"}

	for _, baseURL := range testCases {
		cleanupEnv()
		_ = os.Setenv("SHEETS_BASE_URL", baseURL)

		if _, err := Load(); err == nil {
			t.Errorf("Expected error for base URL %s, got nil", baseURL)
		}
	}
	cleanupEnv()
}

func TestInvalidFetchTimeout(t *testing.T) {
	testCases := []string{"0", "-5", "301"}

	for _, timeout := range testCases {
		cleanupEnv()
		_ = os.Setenv("FETCH_TIMEOUT_SECONDS", timeout)

		if _, err := Load(); err == nil {
			t.Errorf("Expected error for fetch timeout %s, got nil", timeout)
		}
	}
	cleanupEnv()
}

func TestInvalidMaxSourceBytes(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("MAX_SOURCE_BYTES", "-1")

	if _, err := Load(); err == nil {
		t.Error("Expected error for negative source cap, got nil")
	}
}
