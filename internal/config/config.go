// Package config loads the engine configuration. Everything tunable
// (decision thresholds, the empirical success-rate table, structural
// heuristics, check enablement) lives here and is injected into the
// engines at construction, never read from package globals.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	// Workers bounds the classification/repair worker pool. Zero means
	// one worker per artifact up to GOMAXPROCS.
	Workers int `yaml:"workers"`

	Thresholds Thresholds `yaml:"thresholds"`
	Heuristics Heuristics `yaml:"heuristics"`
	Checks     Checks     `yaml:"checks"`

	// SuccessRates is the empirical repair success percentage per
	// corruption type, keyed by the taxonomy name.
	SuccessRates map[string]float64 `yaml:"success_rates"`
}

// Thresholds holds the decision engine's rule boundaries.
type Thresholds struct {
	// LowYield: below this many valid artifacts, repair is always
	// justified (every additional photo has outsized value).
	LowYield int `yaml:"low_yield"`
	// Repair: minimum weighted success estimate (percent) for repair
	// to be worth attempting.
	Repair float64 `yaml:"repair"`
	// HighConfidence: estimate at or above this reports high rather
	// than medium confidence.
	HighConfidence float64 `yaml:"high_confidence"`
}

// Heuristics holds structural classification tunables.
type Heuristics struct {
	// MinScanBytes is the minimum entropy-coded scan length for a
	// footerless stream to count as missing_footer rather than
	// truncated. The source material leaves this boundary open; 64
	// bytes is enough to rule out a scan that never really started.
	MinScanBytes int `yaml:"min_scan_bytes"`
	// HeaderScanWindow bounds how far into the stream header repair
	// searches for a buried start marker before synthesizing one.
	HeaderScanWindow int `yaml:"header_scan_window"`
}

// Checks controls the optional validation oracle capabilities.
type Checks struct {
	// Decode enables the full pixel decode check.
	Decode bool `yaml:"decode"`
	// Auditor enables the format-specific segment/chunk auditor.
	Auditor bool `yaml:"auditor"`
	// Timeout bounds any single check; an expired check degrades to
	// unavailable instead of failing the artifact.
	Timeout Duration `yaml:"timeout"`
}

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given. The
// numbers mirror the empirical rates observed across past recovery
// casework.
func Default() *Config {
	return &Config{
		Workers: 4,
		Thresholds: Thresholds{
			LowYield:       50,
			Repair:         50.0,
			HighConfidence: 70.0,
		},
		Heuristics: Heuristics{
			MinScanBytes:     64,
			HeaderScanWindow: 4096,
		},
		Checks: Checks{
			Decode:  true,
			Auditor: true,
			Timeout: Duration(30 * time.Second),
		},
		SuccessRates: map[string]float64{
			"missing_footer":   85,
			"invalid_header":   70,
			"corrupt_segments": 60,
			"corrupt_data":     40,
			"truncated":        50,
			"fragmented":       15,
			"false_positive":   0,
			"unknown":          50,
		},
	}
}

// Load reads a YAML configuration file over the defaults, so a partial
// file only overrides what it names.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Thresholds.Repair < 0 || c.Thresholds.Repair > 100 {
		return fmt.Errorf("repair threshold out of range: %v", c.Thresholds.Repair)
	}
	if c.Thresholds.HighConfidence < c.Thresholds.Repair {
		return fmt.Errorf("high_confidence (%v) below repair threshold (%v)",
			c.Thresholds.HighConfidence, c.Thresholds.Repair)
	}
	for name, rate := range c.SuccessRates {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("success rate for %s out of range: %v", name, rate)
		}
	}
	return nil
}
