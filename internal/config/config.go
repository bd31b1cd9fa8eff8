// Package config reads and writes ledgerline.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledgerline.yaml configuration.
type Config struct {
	Company  CompanyConfig     `yaml:"company"`
	Fiscal   FiscalConfig      `yaml:"fiscal"`
	Posting  PostingConfig     `yaml:"posting"`
	Database DatabaseConfig    `yaml:"database"`
	Cache    CacheConfig       `yaml:"cache"`
	Rates    map[string]string `yaml:"exchange_rates,omitempty"` // "FROM/TO" -> rate
}

// CompanyConfig identifies the company and its base currency.
type CompanyConfig struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// FiscalConfig defines the fiscal year boundary.
type FiscalConfig struct {
	YearStartMonth int `yaml:"year_start_month"` // 1..12
}

// StartMonth returns the fiscal year start as a time.Month, defaulting
// to January when unset.
func (f FiscalConfig) StartMonth() time.Month {
	if f.YearStartMonth < 1 || f.YearStartMonth > 12 {
		return time.January
	}
	return time.Month(f.YearStartMonth)
}

// PostingConfig controls journal posting behavior.
type PostingConfig struct {
	ApprovalThreshold string            `yaml:"approval_threshold"` // decimal string, "" disables
	ApproverRoles     []string          `yaml:"approver_roles,omitempty"`
	ReceivableAccount int               `yaml:"receivable_account"`
	TaxAccount        int               `yaml:"tax_account"`
	TaxRates          map[string]string `yaml:"tax_rates,omitempty"` // tax code -> percent
}

// ThresholdAmount parses the approval threshold. An empty threshold
// returns zero with ok=false, meaning approval routing is disabled.
func (p PostingConfig) ThresholdAmount() (decimal.Decimal, bool, error) {
	if p.ApprovalThreshold == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(p.ApprovalThreshold)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parsing approval_threshold %q: %w", p.ApprovalThreshold, err)
	}
	return d, true, nil
}

// DatabaseConfig points at the ledger database. An empty URL selects the
// in-memory repository, which is for local evaluation only.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig controls report caching. An empty redis address disables
// caching entirely.
type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache TTL, defaulting to five minutes.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// Load reads a ledgerline.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new company.
func Default(companyName, currency string) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:       1,
			Name:     companyName,
			Currency: currency,
		},
		Fiscal: FiscalConfig{
			YearStartMonth: 1,
		},
		Posting: PostingConfig{
			ApprovalThreshold: "10000.00",
			ApproverRoles:     []string{"finance-manager"},
			ReceivableAccount: 1020,
			TaxAccount:        2020,
			TaxRates:          map[string]string{"STANDARD": "20", "REDUCED": "5", "EXEMPT": "0"},
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
	}
}
