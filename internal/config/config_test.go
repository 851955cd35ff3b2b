package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, kv ...string) {
	t.Helper()
	os.Clearenv()
	for i := 0; i+1 < len(kv); i += 2 {
		os.Setenv(kv[i], kv[i+1])
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/sessions")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.SessionStore != StorePostgres {
		t.Errorf("SessionStore = %q, want %q", cfg.SessionStore, StorePostgres)
	}
	if cfg.SessionDurationMinutes != 480 {
		t.Errorf("SessionDurationMinutes = %d, want 480", cfg.SessionDurationMinutes)
	}
	if cfg.ExtendedDurationDays != 30 {
		t.Errorf("ExtendedDurationDays = %d, want 30", cfg.ExtendedDurationDays)
	}
	if cfg.InactivityTimeout() != 30*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 30m", cfg.InactivityTimeout())
	}
	if cfg.SweepInterval() != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval())
	}
	if cfg.RememberStaleAfter() != 30*24*time.Hour {
		t.Errorf("RememberStaleAfter = %v, want 720h", cfg.RememberStaleAfter())
	}
	if cfg.ActivityWriteInterval() != time.Second {
		t.Errorf("ActivityWriteInterval = %v, want 1s", cfg.ActivityWriteInterval())
	}
	if cfg.ServiceName != "session-lifecycle-manager" {
		t.Errorf("ServiceName = %q, want default", cfg.ServiceName)
	}
	if cfg.TelemetryEnabled() {
		t.Error("TelemetryEnabled should be false without OTEL_EXPORTER_OTLP_ENDPOINT")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t,
		"GRPC_ADDR", ":9090",
		"SESSION_STORE", "SQLite",
		"SQLITE_PATH", "/tmp/s.db",
		"SESSION_DURATION_MINUTES", "600",
		"EXTENDED_DURATION_DAYS", "14",
		"JWT_ISSUER", "custom-issuer",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317",
	)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.SessionStore != StoreSQLite {
		t.Errorf("SessionStore = %q, want %q", cfg.SessionStore, StoreSQLite)
	}
	if cfg.SessionDurationMinutes != 600 {
		t.Errorf("SessionDurationMinutes = %d, want 600", cfg.SessionDurationMinutes)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if !cfg.TelemetryEnabled() {
		t.Error("TelemetryEnabled should be true")
	}
}

func TestLoad_StoreValidation(t *testing.T) {
	testCases := []struct {
		name string
		env  []string
		err  bool
	}{
		{"postgres without url", []string{"SESSION_STORE", "postgres"}, true},
		{"postgres with url", []string{"SESSION_STORE", "postgres", "DATABASE_URL", "postgres://x"}, false},
		{"sqlite without path", []string{"SESSION_STORE", "sqlite", "SQLITE_PATH", ""}, true},
		{"memory in development", []string{"SESSION_STORE", "memory", "APP_ENV", "development"}, false},
		{"memory in production", []string{"SESSION_STORE", "memory", "APP_ENV", "production"}, true},
		{"unknown", []string{"SESSION_STORE", "mongo"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env...)
			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_NonPositiveDurations(t *testing.T) {
	setEnv(t, "SESSION_STORE", "memory", "SESSION_DURATION_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject SESSION_DURATION_MINUTES=0")
	}

	setEnv(t, "SESSION_STORE", "memory", "EXTENDED_DURATION_DAYS", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject EXTENDED_DURATION_DAYS=-1")
	}
}

func TestDurationHelpers_Fallbacks(t *testing.T) {
	cfg := &Config{
		JWTAccessTTL:             "invalid",
		JWTRefreshTTL:            "0",
		InactivityTimeoutRaw:     "-5m",
		SweepIntervalRaw:         "",
		RememberStaleAfterRaw:    "nope",
		ActivityWriteIntervalRaw: "-1s",
	}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", got)
	}
	if got := cfg.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL = %v, want 720h", got)
	}
	if got := cfg.InactivityTimeout(); got != 30*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 30m", got)
	}
	if got := cfg.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", got)
	}
	if got := cfg.RememberStaleAfter(); got != 720*time.Hour {
		t.Errorf("RememberStaleAfter = %v, want 720h", got)
	}
	if got := cfg.ActivityWriteInterval(); got != time.Second {
		t.Errorf("ActivityWriteInterval = %v, want 1s", got)
	}
}

func TestActivityWriteInterval_ZeroAllowed(t *testing.T) {
	cfg := &Config{ActivityWriteIntervalRaw: "0s"}
	if got := cfg.ActivityWriteInterval(); got != 0 {
		t.Errorf("ActivityWriteInterval = %v, want 0", got)
	}
}

func TestServiceConfig(t *testing.T) {
	setEnv(t,
		"SESSION_STORE", "memory",
		"SESSION_DURATION_MINUTES", "60",
		"EXTENDED_DURATION_DAYS", "7",
		"INACTIVITY_TIMEOUT", "10m",
		"SWEEP_INTERVAL", "1m",
		"ACTIVITY_WRITE_INTERVAL", "0s",
	)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := cfg.ServiceConfig()
	if sc.SessionDuration != time.Hour {
		t.Errorf("SessionDuration = %v, want 1h", sc.SessionDuration)
	}
	if sc.ExtendedDuration != 7*24*time.Hour {
		t.Errorf("ExtendedDuration = %v, want 168h", sc.ExtendedDuration)
	}
	if sc.InactivityTimeout != 10*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 10m", sc.InactivityTimeout)
	}
	if sc.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", sc.SweepInterval)
	}
	if sc.ActivityWriteInterval != 0 {
		t.Errorf("ActivityWriteInterval = %v, want 0", sc.ActivityWriteInterval)
	}
	if sc.CallbackTimeout <= 0 {
		t.Errorf("CallbackTimeout = %v, want default", sc.CallbackTimeout)
	}
}
