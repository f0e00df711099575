package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == "" {
		t.Fatalf("expected default port")
	}
	if cfg.EligibilityTTLSeconds < 1 {
		t.Fatalf("expected positive eligibility TTL")
	}
	if cfg.Address() != ":"+cfg.Port {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}
