// Package config holds the runtime configuration for flockcore: demo-mode
// switches, pricing constants, feature flags and storage selection. A Config
// is loaded once at startup and treated as read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Remote document store drivers.
const (
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
	RemoteS3       = "s3"
)

// Local cache drivers.
const (
	CacheSQLite = "sqlite"
	CacheBadger = "badger"
)

// PaymentMode selects which payment path is active.
type PaymentMode string

// Payment modes.
const (
	PaymentSimulated PaymentMode = "simulated"
	PaymentGateway   PaymentMode = "gateway"
)

// Config holds all flockcore configuration.
type Config struct {
	Demo     DemoConfig    `yaml:"demo"`
	Pricing  PricingConfig `yaml:"pricing"`
	Features FeatureFlags  `yaml:"features"`
	Storage  StorageConfig `yaml:"storage"`
	Server   ServerConfig  `yaml:"server"`
	Logging  LoggingConfig `yaml:"logging"`
}

// DemoConfig toggles simulated flows for showcase builds.
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`
	// MockPayments forces the simulated payment provider even outside demo mode.
	MockPayments bool `yaml:"mock_payments"`
	// SimulatedPaymentDelay is how long a simulated charge takes, e.g. "1500ms".
	SimulatedPaymentDelay string `yaml:"simulated_payment_delay"`
	// SimulatedFailureRate is the fraction of simulated charges that decline.
	SimulatedFailureRate float64 `yaml:"simulated_failure_rate"`
	// Seed makes simulated declines reproducible.
	Seed int64 `yaml:"seed"`
}

// PricingConfig carries marketplace and subscription prices in minor units.
type PricingConfig struct {
	Currency              string  `yaml:"currency" json:"currency"`
	PremiumMonthly        int64   `yaml:"premium_monthly" json:"premium_monthly"`
	PremiumYearly         int64   `yaml:"premium_yearly" json:"premium_yearly"`
	ListingFee            int64   `yaml:"listing_fee" json:"listing_fee"`
	TransactionFeePercent float64 `yaml:"transaction_fee_percent" json:"transaction_fee_percent"`
}

// FeatureFlags gates optional product areas.
type FeatureFlags struct {
	Marketplace bool `yaml:"marketplace" json:"marketplace"`
	Analytics   bool `yaml:"analytics" json:"analytics"`
	OfflineMode bool `yaml:"offline_mode" json:"offline_mode"`
}

// StorageConfig selects the remote document store and the local cache.
type StorageConfig struct {
	RemoteDriver string   `yaml:"remote_driver"`
	PostgresDSN  string   `yaml:"postgres_dsn"`
	S3           S3Config `yaml:"s3"`
	CacheDriver  string   `yaml:"cache_driver"`
	SQLitePath   string   `yaml:"sqlite_path"`
	BadgerPath   string   `yaml:"badger_path"`
}

// S3Config configures the S3 remote driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Demo: DemoConfig{
			Enabled:               true,
			MockPayments:          true,
			SimulatedPaymentDelay: "1500ms",
			SimulatedFailureRate:  0,
			Seed:                  1,
		},
		Pricing: PricingConfig{
			Currency:              "USD",
			PremiumMonthly:        499,
			PremiumYearly:         4999,
			ListingFee:            99,
			TransactionFeePercent: 2.5,
		},
		Features: FeatureFlags{
			Marketplace: true,
			Analytics:   true,
			OfflineMode: true,
		},
		Storage: StorageConfig{
			RemoteDriver: RemoteMemory,
			PostgresDSN:  "postgres://localhost/flockcore?sslmode=disable",
			S3:           S3Config{Region: "us-east-1", Prefix: "flockcore"},
			CacheDriver:  CacheSQLite,
			SQLitePath:   "flockcore-cache.db",
			BadgerPath:   "flockcore-cache",
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, layering it over defaults and
// applying FLOCKCORE_* environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Environment variables:
//
//	FLOCKCORE_DEMO_MODE=true|false
//	FLOCKCORE_MOCK_PAYMENTS=true|false
//	FLOCKCORE_REMOTE_DRIVER=memory|postgres|s3
//	FLOCKCORE_POSTGRES_DSN=<dsn>
//	FLOCKCORE_S3_BUCKET / FLOCKCORE_S3_REGION / FLOCKCORE_S3_ENDPOINT / FLOCKCORE_S3_PREFIX
//	FLOCKCORE_S3_PATH_STYLE=true|false
//	FLOCKCORE_CACHE_DRIVER=sqlite|badger
//	FLOCKCORE_SQLITE_PATH / FLOCKCORE_BADGER_PATH
//	FLOCKCORE_ADDR / FLOCKCORE_LOG_LEVEL
func (c *Config) applyEnvOverrides() error {
	boolVars := map[string]*bool{
		"FLOCKCORE_DEMO_MODE":     &c.Demo.Enabled,
		"FLOCKCORE_MOCK_PAYMENTS": &c.Demo.MockPayments,
		"FLOCKCORE_S3_PATH_STYLE": &c.Storage.S3.PathStyle,
	}
	for name, target := range boolVars {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*target = v
	}
	stringVars := map[string]*string{
		"FLOCKCORE_REMOTE_DRIVER": &c.Storage.RemoteDriver,
		"FLOCKCORE_POSTGRES_DSN":  &c.Storage.PostgresDSN,
		"FLOCKCORE_S3_BUCKET":     &c.Storage.S3.Bucket,
		"FLOCKCORE_S3_REGION":     &c.Storage.S3.Region,
		"FLOCKCORE_S3_ENDPOINT":   &c.Storage.S3.Endpoint,
		"FLOCKCORE_S3_PREFIX":     &c.Storage.S3.Prefix,
		"FLOCKCORE_CACHE_DRIVER":  &c.Storage.CacheDriver,
		"FLOCKCORE_SQLITE_PATH":   &c.Storage.SQLitePath,
		"FLOCKCORE_BADGER_PATH":   &c.Storage.BadgerPath,
		"FLOCKCORE_ADDR":          &c.Server.Addr,
		"FLOCKCORE_LOG_LEVEL":     &c.Logging.Level,
	}
	for name, target := range stringVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*target = v
		}
	}
	return nil
}

// Validate checks ranges and driver names.
func (c *Config) Validate() error {
	if c.Demo.SimulatedFailureRate < 0 || c.Demo.SimulatedFailureRate > 1 {
		return fmt.Errorf("demo.simulated_failure_rate must be within [0,1], got %v", c.Demo.SimulatedFailureRate)
	}
	if _, err := c.PaymentDelay(); err != nil {
		return err
	}
	if c.Pricing.TransactionFeePercent < 0 || c.Pricing.TransactionFeePercent > 100 {
		return fmt.Errorf("pricing.transaction_fee_percent must be within [0,100], got %v", c.Pricing.TransactionFeePercent)
	}
	for name, v := range map[string]int64{
		"premium_monthly": c.Pricing.PremiumMonthly,
		"premium_yearly":  c.Pricing.PremiumYearly,
		"listing_fee":     c.Pricing.ListingFee,
	} {
		if v < 0 {
			return fmt.Errorf("pricing.%s must not be negative", name)
		}
	}
	switch c.Storage.RemoteDriver {
	case RemoteMemory, RemotePostgres:
	case RemoteS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %q", c.Storage.RemoteDriver)
	}
	switch c.Storage.CacheDriver {
	case CacheSQLite, CacheBadger:
	default:
		return fmt.Errorf("unknown cache driver %q", c.Storage.CacheDriver)
	}
	return nil
}

// PaymentMode reports which payment path is active.
func (c *Config) PaymentMode() PaymentMode {
	if c.Demo.Enabled || c.Demo.MockPayments {
		return PaymentSimulated
	}
	return PaymentGateway
}

// PaymentDelay parses the simulated payment delay.
func (c *Config) PaymentDelay() (time.Duration, error) {
	if c.Demo.SimulatedPaymentDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Demo.SimulatedPaymentDelay)
	if err != nil {
		return 0, fmt.Errorf("demo.simulated_payment_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("demo.simulated_payment_delay must not be negative")
	}
	return d, nil
}
