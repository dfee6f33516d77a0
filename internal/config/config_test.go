package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DocNoPrefix != "tic" || cfg.FiscalPeriod != "25-26" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.AutosaveSeconds != 30 {
		t.Fatalf("unexpected autosave default: %d", cfg.AutosaveSeconds)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9090\"\ndoc_no_prefix: acme\nautosave_seconds: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOC_NO_PREFIX", "corp")
	t.Setenv("FISCAL_PERIOD", "26-27")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("file value not applied: %s", cfg.Addr)
	}
	if cfg.DocNoPrefix != "corp" || cfg.FiscalPeriod != "26-27" {
		t.Fatalf("env override not applied: %+v", cfg)
	}
	if cfg.AutosaveSeconds != 10 {
		t.Fatalf("autosave from file not applied: %d", cfg.AutosaveSeconds)
	}
}

func TestLoadRateLimitEnvOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("RATE_LIMIT_BURST", "9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 9 {
		t.Fatalf("rate limit env override not applied: %+v", cfg)
	}

	t.Setenv("RATE_LIMIT_RPS", "not a number")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimitRPS != 50 {
		t.Fatalf("malformed override should keep the default, got %d", cfg.RateLimitRPS)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
