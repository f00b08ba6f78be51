package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TAX_ENABLED", "")
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("OFFLINE_DB_PATH", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if !cfg.TaxEnabled {
		t.Fatalf("expected tax enabled by default")
	}
	if cfg.TaxRatePercent != 11 {
		t.Fatalf("expected default tax rate 11, got %v", cfg.TaxRatePercent)
	}
	if cfg.OfflineDBPath != "offline-queue.db" {
		t.Fatalf("unexpected offline db path %q", cfg.OfflineDBPath)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadInvalidTaxRateFallsBack(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "not-a-number")

	cfg := Load()
	if cfg.TaxRatePercent != 11 {
		t.Fatalf("expected fallback tax rate 11, got %v", cfg.TaxRatePercent)
	}
}

func TestLoadTaxDisabled(t *testing.T) {
	t.Setenv("TAX_ENABLED", "false")

	cfg := Load()
	if cfg.TaxEnabled {
		t.Fatalf("expected tax disabled")
	}
}
