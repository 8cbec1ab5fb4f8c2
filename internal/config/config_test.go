package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.StatsCacheTTL != 5*time.Second {
		t.Errorf("StatsCacheTTL = %v", cfg.StatsCacheTTL)
	}
	if cfg.ViolationThreshold != 5 {
		t.Errorf("ViolationThreshold = %d", cfg.ViolationThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("STATS_CACHE_TTL", "30s")
	t.Setenv("VIOLATION_THRESHOLD", "12")
	t.Setenv("RATE_LIMIT_PER_MIN", "bogus")

	cfg := Load()

	if cfg.HTTPPort != "9999" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.StatsCacheTTL != 30*time.Second {
		t.Errorf("StatsCacheTTL = %v", cfg.StatsCacheTTL)
	}
	if cfg.ViolationThreshold != 12 {
		t.Errorf("ViolationThreshold = %d", cfg.ViolationThreshold)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("invalid int should fall back, got %d", cfg.RateLimitPerMin)
	}
}
