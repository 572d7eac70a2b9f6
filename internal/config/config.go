package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PricingConfig is the shop pricing snapshot consumed by the pricing
// package. It is loaded once and passed by value into calculations.
type PricingConfig struct {
	// TaxRate is a fraction, e.g. 0.0825 for 8.25%.
	TaxRate float64 `yaml:"tax_rate" json:"tax_rate"`
	// AddonPrices maps addon keys (e.g. "spare_tire") to unit prices.
	AddonPrices map[string]float64 `yaml:"addon_prices" json:"addon_prices"`
}

// HousekeepingConfig controls the background maintenance sweeps.
type HousekeepingConfig struct {
	// RetentionCron schedules the soft-delete purge. Empty disables it.
	RetentionCron string `yaml:"retention_cron" json:"retention_cron"`
	// RetentionDays is how long soft-deleted rows are kept before purge.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`
	// ReminderCron schedules the due-reminder webhook ping. Empty disables it.
	ReminderCron string `yaml:"reminder_cron" json:"reminder_cron"`
	// ReminderWebhookURL receives a POST with the day's due reminders.
	ReminderWebhookURL string `yaml:"reminder_webhook_url" json:"reminder_webhook_url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone all schedule math is evaluated in
	// (e.g. "America/Chicago"). The database always stores UTC.
	Timezone string `yaml:"timezone" json:"timezone"`

	// MinValidYear / MaxValidYear bound acceptable job dates.
	MinValidYear int `yaml:"min_valid_year" json:"min_valid_year"`
	MaxValidYear int `yaml:"max_valid_year" json:"max_valid_year"`

	// MaxJobSpanDays caps end-start for a single job.
	MaxJobSpanDays int `yaml:"max_job_span_days" json:"max_job_span_days"`

	// MaxExpandDays caps per-day segments emitted for one multi-day job.
	MaxExpandDays int `yaml:"max_expand_days" json:"max_expand_days"`

	// SafetyCap caps occurrences generated for a forever series per request.
	SafetyCap int `yaml:"safety_cap" json:"safety_cap"`

	// MaxRecurrenceCount caps the count terminator on a bounded rule.
	MaxRecurrenceCount int `yaml:"max_recurrence_count" json:"max_recurrence_count"`

	// PreviewMaxCount caps occurrence-preview requests.
	PreviewMaxCount int `yaml:"preview_max_count" json:"preview_max_count"`

	Housekeeping HousekeepingConfig `yaml:"housekeeping" json:"housekeeping"`

	Pricing PricingConfig `yaml:"pricing" json:"pricing"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:           "America/Chicago",
		MinValidYear:       2000,
		MaxValidYear:       2100,
		MaxJobSpanDays:     60,
		MaxExpandDays:      31,
		SafetyCap:          500,
		MaxRecurrenceCount: 500,
		PreviewMaxCount:    200,
		Housekeeping: HousekeepingConfig{
			RetentionCron: "0 3 * * *",
			RetentionDays: 90,
		},
		Pricing: PricingConfig{
			TaxRate:     0.0825,
			AddonPrices: map[string]float64{},
		},
	}
}

// Normalize fills missing/zero values with defaults so partially-filled
// configs from older versions still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.MinValidYear <= 0 {
		c.MinValidYear = def.MinValidYear
	}
	if c.MaxValidYear <= 0 {
		c.MaxValidYear = def.MaxValidYear
	}
	if c.MaxJobSpanDays <= 0 {
		c.MaxJobSpanDays = def.MaxJobSpanDays
	}
	if c.MaxExpandDays <= 0 {
		c.MaxExpandDays = def.MaxExpandDays
	}
	if c.SafetyCap <= 0 {
		c.SafetyCap = def.SafetyCap
	}
	if c.MaxRecurrenceCount <= 0 || c.MaxRecurrenceCount > def.MaxRecurrenceCount {
		c.MaxRecurrenceCount = def.MaxRecurrenceCount
	}
	if c.PreviewMaxCount <= 0 || c.PreviewMaxCount > def.PreviewMaxCount {
		c.PreviewMaxCount = def.PreviewMaxCount
	}
	if c.Housekeeping.RetentionDays <= 0 {
		c.Housekeeping.RetentionDays = def.Housekeeping.RetentionDays
	}
	if c.Pricing.AddonPrices == nil {
		c.Pricing.AddonPrices = map[string]float64{}
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path. On first run the
// file does not exist yet; a default config is written and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically via a temp file + rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".trailsched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
