// Package config loads the server configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Addr            string `yaml:"addr"`
	DatabaseURL     string `yaml:"database_url"`
	JWTSecret       string `yaml:"jwt_secret"`
	SuperAdminEmail string `yaml:"super_admin_email"`
	DocNoPrefix     string `yaml:"doc_no_prefix"`
	FiscalPeriod    string `yaml:"fiscal_period"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
	RateLimitRPS    int    `yaml:"rate_limit_rps"`
	RateLimitBurst  int    `yaml:"rate_limit_burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DocNoPrefix:     "tic",
		FiscalPeriod:    "25-26",
		AutosaveSeconds: 30,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
}

// Load reads the configuration file at path when it exists, then applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env overrides
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.AutosaveSeconds <= 0 {
		cfg.AutosaveSeconds = 30
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OPSCORE_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPER_ADMIN_EMAIL")); v != "" {
		cfg.SuperAdminEmail = v
	}
	if v := strings.TrimSpace(os.Getenv("DOC_NO_PREFIX")); v != "" {
		cfg.DocNoPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("FISCAL_PERIOD")); v != "" {
		cfg.FiscalPeriod = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTOSAVE_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AutosaveSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitRPS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		}
	}
}
