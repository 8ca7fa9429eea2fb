package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVICE_NAME", "HTTP_PORT", "STORE_DRIVER", "SQLITE_DSN", "ADMIN_TOKENS", "BROADCAST_BUFFER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "quorum" {
		t.Fatalf("unexpected service name %s", cfg.ServiceName)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected port %s", cfg.HTTPPort)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("unexpected default driver %s", cfg.StoreDriver)
	}
	if cfg.SQLiteDSN != ":memory:" {
		t.Fatalf("unexpected sqlite dsn %s", cfg.SQLiteDSN)
	}
	if cfg.BroadcastBuffer != 16 {
		t.Fatalf("unexpected broadcast buffer %d", cfg.BroadcastBuffer)
	}
}

func TestLoadNormalizesDriverAndTokens(t *testing.T) {
	t.Setenv("STORE_DRIVER", " Memory ")
	t.Setenv("ADMIN_TOKENS", "root-1, ,root-2,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Fatalf("driver must be normalized, got %s", cfg.StoreDriver)
	}
	if len(cfg.AdminTokens) != 2 || cfg.AdminTokens[0] != "root-1" || cfg.AdminTokens[1] != "root-2" {
		t.Fatalf("tokens must be trimmed and filtered, got %v", cfg.AdminTokens)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	if _, err := Load(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
