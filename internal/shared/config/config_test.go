package config

import (
	"errors"
	"os"
	"slices"
	"testing"
)

var requiredKeys = []string{
	"PLUGGY_CLIENT_ID",
	"PLUGGY_CLIENT_SECRET",
	"DB_HOST",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
}

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("PLUGGY_CLIENT_ID", "test-client-id")
	t.Setenv("PLUGGY_CLIENT_SECRET", "test-client-secret")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "financefly")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "financefly")
}

func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		// t.Setenv registers the restore, Unsetenv clears the value.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Pluggy.ClientID != "test-client-id" {
		t.Errorf("Pluggy.ClientID = %q, want %q", cfg.Pluggy.ClientID, "test-client-id")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, "require")
	}
	if cfg.Pluggy.BaseURL != "https://api.pluggy.ai" {
		t.Errorf("Pluggy.BaseURL = %q, want %q", cfg.Pluggy.BaseURL, "https://api.pluggy.ai")
	}
}

func TestLoad_AllRequiredMissing(t *testing.T) {
	unsetAll(t, requiredKeys...)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error with no required env vars set, got nil")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %T, want *ConfigurationError", err)
	}

	// Every required key must appear in the single error, not just the first.
	for _, key := range requiredKeys {
		if !slices.Contains(cfgErr.Missing, key) {
			t.Errorf("ConfigurationError.Missing is missing %q (got %v)", key, cfgErr.Missing)
		}
	}
}

func TestLoad_EmptyRequiredValue(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLUGGY_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for empty PLUGGY_CLIENT_SECRET, got nil")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %T, want *ConfigurationError", err)
	}
	if !slices.Contains(cfgErr.Missing, "PLUGGY_CLIENT_SECRET") {
		t.Errorf("Missing = %v, want PLUGGY_CLIENT_SECRET listed", cfgErr.Missing)
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for TLS enabled without cert/key paths, got nil")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %T, want *ConfigurationError", err)
	}
	if !slices.Contains(cfgErr.Missing, "TLS_CERT_PATH") || !slices.Contains(cfgErr.Missing, "TLS_KEY_PATH") {
		t.Errorf("Missing = %v, want both TLS_CERT_PATH and TLS_KEY_PATH", cfgErr.Missing)
	}
}

func TestLoad_SessionTTL(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SESSION_TTL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := cfg.Session.TTL.Minutes(); got != 15 {
		t.Errorf("Session.TTL = %v minutes, want 15", got)
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "require",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}

func TestConfigurationError_Error(t *testing.T) {
	err := &ConfigurationError{Missing: []string{"DB_HOST", "DB_USER"}}
	msg := err.Error()
	if msg != "configuration error (missing: DB_HOST, DB_USER)" {
		t.Errorf("Error() = %q", msg)
	}
}
