package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Redis.PoolMinSize != 5 || cfg.Redis.PoolMaxSize != 20 {
		t.Errorf("redis pool = %d/%d, want 5/20", cfg.Redis.PoolMinSize, cfg.Redis.PoolMaxSize)
	}
	if cfg.Auth.ExpirationDelta != 720*time.Hour {
		t.Errorf("expiration = %v, want 720h", cfg.Auth.ExpirationDelta)
	}
	if cfg.Cache.Addr == "" || cfg.Database.DSN == "" {
		t.Error("backend addresses must default to something usable")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LYANNA_PORT", "9001")
	t.Setenv("LYANNA_CDN_DOMAIN", "https://cdn.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.CDNDomain != "https://cdn.example.com" {
		t.Errorf("cdn = %q", cfg.CDNDomain)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyanna.yaml")
	body := "server:\n  port: 9100\nredis:\n  pool_min_size: 2\n  pool_max_size: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("LYANNA_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from yaml", cfg.Server.Port)
	}
	if cfg.Redis.PoolMinSize != 2 || cfg.Redis.PoolMaxSize != 8 {
		t.Errorf("redis pool = %d/%d, want 2/8", cfg.Redis.PoolMinSize, cfg.Redis.PoolMaxSize)
	}
}

func TestValidateRejectsBadPool(t *testing.T) {
	t.Setenv("LYANNA_REDIS_POOL_MIN", "10")
	t.Setenv("LYANNA_REDIS_POOL_MAX", "2")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for min > max")
	}
}
