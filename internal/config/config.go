// Package config loads and validates breakup-report run configuration.
// Values layer defaults, an optional YAML file, and OPENICE_-prefixed
// environment variables; partial configs are safe, omitted fields keep
// their defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openice-data/breakup.report/internal/ice"
)

// Supported analysis years: the upstream sensor trio (L7, L8, S2) only
// overlaps in this range.
const (
	MinYear = 2013
	MaxYear = 2021
)

// Config holds every recognized option for a detection run.
type Config struct {
	// Year of spring breakup to analyze.
	Year int `koanf:"year"`

	// CloudThresholdPercent filters scenes by cloud cover during
	// upstream acquisition. Recorded here for provenance; the core
	// never re-filters.
	CloudThresholdPercent int `koanf:"cloud_threshold_percent"`

	// ApplyGlobalWaterMask limits analysis to persistent-water pixels
	// upstream. Should be off for tiles above 70N, where the global
	// water layer is unreliable.
	ApplyGlobalWaterMask bool `koanf:"apply_global_water_mask"`

	// ApplyRobustFilter enables the logistic temporal filter. When
	// off, R2 is reported missing for every pixel.
	ApplyRobustFilter bool `koanf:"apply_robust_filter"`

	// AugmentDummyWater injects synthetic late-season water anchors
	// before the filter.
	AugmentDummyWater bool `koanf:"augment_dummy_water"`

	// ResidualCutoff for the temporal filter.
	ResidualCutoff float64 `koanf:"residual_cutoff"`

	// Workers for the tile pipeline; zero means GOMAXPROCS.
	Workers int `koanf:"workers"`

	// MetricsAddr exposes prometheus counters while a run is active,
	// e.g. ":9090". Empty disables the endpoint.
	MetricsAddr string `koanf:"metrics_addr"`
}

// Default returns the production defaults for the given year.
func Default(year int) *Config {
	return &Config{
		Year:                  year,
		CloudThresholdPercent: 90,
		ApplyGlobalWaterMask:  true,
		ApplyRobustFilter:     true,
		AugmentDummyWater:     true,
		ResidualCutoff:        ice.DefaultResidualCutoff,
	}
}

// Load builds a Config by layering defaults, an optional YAML file,
// and environment variables (OPENICE_YEAR, OPENICE_WORKERS, ...).
func Load(path string, year int) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Map OPENICE_RESIDUAL_CUTOFF -> residual_cutoff, preserving
	// underscores to match the koanf tags.
	envProvider := env.Provider("OPENICE_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "openice_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := *Default(year)
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	if c.Year < MinYear || c.Year > MaxYear {
		return fmt.Errorf("year %d outside supported range [%d, %d]", c.Year, MinYear, MaxYear)
	}
	if c.CloudThresholdPercent < 0 || c.CloudThresholdPercent > 100 {
		return fmt.Errorf("cloud threshold %d%% outside [0, 100]", c.CloudThresholdPercent)
	}
	if c.ResidualCutoff <= 0 || c.ResidualCutoff > 1 {
		return fmt.Errorf("residual cutoff %v outside (0, 1]", c.ResidualCutoff)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// PixelParams converts the config into per-pixel pipeline parameters.
func (c *Config) PixelParams() ice.PixelParams {
	return ice.PixelParams{
		Year:              c.Year,
		ApplyRobustFilter: c.ApplyRobustFilter,
		AugmentDummyWater: c.AugmentDummyWater,
		ResidualCutoff:    c.ResidualCutoff,
	}
}
