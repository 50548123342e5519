// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DatabaseURL string `yaml:"database_url"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	// TokenTTLRaw holds the YAML duration ("8h", "30m") before parsing.
	TokenTTLRaw string `yaml:"token_ttl"`

	TrackingPrefix string          `yaml:"tracking_prefix"`
	RateMin        decimal.Decimal `yaml:"-"`
	RateMax        decimal.Decimal `yaml:"-"`

	// RateMinRaw and RateMaxRaw hold the YAML band values before parsing.
	RateMinRaw string `yaml:"rate_min"`
	RateMaxRaw string `yaml:"rate_max"`

	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		TokenTTL:           8 * time.Hour,
		TrackingPrefix:     "EXP",
		RateMin:            decimal.NewFromFloat(2.5),
		RateMax:            decimal.NewFromFloat(5.0),
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		CORSOrigins:        []string{"*"},
	}
}

// Load reads the YAML file at path (when non-empty), then applies
// environment overrides. Missing files are an error; an empty path skips
// straight to defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if cfg.TokenTTLRaw != "" {
			d, err := time.ParseDuration(cfg.TokenTTLRaw)
			if err != nil {
				return Config{}, fmt.Errorf("parse token_ttl: %w", err)
			}
			cfg.TokenTTL = d
		}
		if cfg.RateMinRaw != "" {
			d, err := decimal.NewFromString(cfg.RateMinRaw)
			if err != nil {
				return Config{}, fmt.Errorf("parse rate_min: %w", err)
			}
			cfg.RateMin = d
		}
		if cfg.RateMaxRaw != "" {
			d, err := decimal.NewFromString(cfg.RateMaxRaw)
			if err != nil {
				return Config{}, fmt.Errorf("parse rate_max: %w", err)
			}
			cfg.RateMax = d
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRADINGDESK_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TokenTTL = d
		}
	}
	if v := os.Getenv("TRACKING_PREFIX"); v != "" {
		c.TrackingPrefix = v
	}
	if v := os.Getenv("RATE_MIN"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			c.RateMin = d
		}
	}
	if v := os.Getenv("RATE_MAX"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			c.RateMax = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitPerSecond = n
		}
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (set JWT_SECRET)")
	}
	if c.RateMin.LessThanOrEqual(decimal.Zero) || c.RateMax.LessThan(c.RateMin) {
		return fmt.Errorf("invalid exchange rate band %s - %s", c.RateMin, c.RateMax)
	}
	return nil
}
