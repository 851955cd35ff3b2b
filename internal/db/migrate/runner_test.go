package migrate

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, "up")
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error = %q, should mention DATABASE_URL", err.Error())
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "UP", "Up", "both"} {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil {
				t.Fatalf("Run with direction %q should return error", direction)
			}
			if !strings.Contains(err.Error(), "direction") {
				t.Errorf("error = %q, should mention direction", err.Error())
			}
		})
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
	}{
		{"invalid format", "invalid-dsn"},
		{"missing driver", "://localhost/test"},
		{"spaces", "postgres://localhost with spaces/test"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.dsn, "up")
			if err == nil {
				t.Errorf("Run with invalid DSN %q should return error", tc.dsn)
			}
			if errors.Is(err, ErrNoChange) {
				t.Error("Run should never surface ErrNoChange")
			}
		})
	}
}

func TestVersion_EmptyDSN(t *testing.T) {
	if _, _, err := Version(""); err == nil {
		t.Fatal("Version with empty DSN should return error")
	}
}

func TestRun_UpThenVersion(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, "up"); err != nil {
		t.Skipf("migrate up failed (expected in test environment): %v", err)
	}
	// A second up is a no-op.
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("second Run up: %v", err)
	}
	v, dirty, err := Version(dsn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if dirty {
		t.Error("schema should not be dirty after up")
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}
