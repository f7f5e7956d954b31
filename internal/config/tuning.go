package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Signal buffer params
	MinBufferSize *int `json:"min_buffer_size,omitempty"`
	MaxBufferSize *int `json:"max_buffer_size,omitempty"`

	// Filter params
	BandLowHz   *float64 `json:"band_low_hz,omitempty"`
	BandHighHz  *float64 `json:"band_high_hz,omitempty"`
	FilterOrder *int     `json:"filter_order,omitempty"`

	// Spectral search params
	SearchLowBPM  *float64 `json:"search_low_bpm,omitempty"`
	SearchHighBPM *float64 `json:"search_high_bpm,omitempty"`

	// Sampling rate guards
	FallbackRateHz  *float64 `json:"fallback_rate_hz,omitempty"`
	MinDesignRateHz *float64 `json:"min_design_rate_hz,omitempty"`

	// Persistence params
	PersistInterval *string `json:"persist_interval,omitempty"` // duration string like "1s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/rppg/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinBufferSize != nil && *c.MinBufferSize < 2 {
		return fmt.Errorf("min_buffer_size must be at least 2, got %d", *c.MinBufferSize)
	}
	if c.MaxBufferSize != nil && *c.MaxBufferSize < 1 {
		return fmt.Errorf("max_buffer_size must be positive, got %d", *c.MaxBufferSize)
	}
	if c.MinBufferSize != nil && c.MaxBufferSize != nil && *c.MinBufferSize > *c.MaxBufferSize {
		return fmt.Errorf("min_buffer_size %d exceeds max_buffer_size %d", *c.MinBufferSize, *c.MaxBufferSize)
	}

	if c.BandLowHz != nil && *c.BandLowHz <= 0 {
		return fmt.Errorf("band_low_hz must be positive, got %f", *c.BandLowHz)
	}
	if c.BandLowHz != nil && c.BandHighHz != nil && *c.BandLowHz >= *c.BandHighHz {
		return fmt.Errorf("band_low_hz %f must be below band_high_hz %f", *c.BandLowHz, *c.BandHighHz)
	}
	if c.FilterOrder != nil && *c.FilterOrder < 1 {
		return fmt.Errorf("filter_order must be at least 1, got %d", *c.FilterOrder)
	}

	if c.SearchLowBPM != nil && c.SearchHighBPM != nil && *c.SearchLowBPM >= *c.SearchHighBPM {
		return fmt.Errorf("search_low_bpm %f must be below search_high_bpm %f", *c.SearchLowBPM, *c.SearchHighBPM)
	}

	if c.FallbackRateHz != nil && *c.FallbackRateHz <= 0 {
		return fmt.Errorf("fallback_rate_hz must be positive, got %f", *c.FallbackRateHz)
	}
	if c.MinDesignRateHz != nil && *c.MinDesignRateHz <= 0 {
		return fmt.Errorf("min_design_rate_hz must be positive, got %f", *c.MinDesignRateHz)
	}

	// Validate PersistInterval can be parsed if set
	if c.PersistInterval != nil && *c.PersistInterval != "" {
		if _, err := time.ParseDuration(*c.PersistInterval); err != nil {
			return fmt.Errorf("invalid persist_interval '%s': %w", *c.PersistInterval, err)
		}
	}

	return nil
}

// GetMinBufferSize returns the min_buffer_size value or the default.
// Estimation is only attempted once a subject's buffer holds this many samples.
func (c *TuningConfig) GetMinBufferSize() int {
	if c.MinBufferSize == nil {
		return 60
	}
	return *c.MinBufferSize
}

// GetMaxBufferSize returns the max_buffer_size value or the default.
func (c *TuningConfig) GetMaxBufferSize() int {
	if c.MaxBufferSize == nil {
		return 300
	}
	return *c.MaxBufferSize
}

// GetBandLowHz returns the band_low_hz value or the default.
func (c *TuningConfig) GetBandLowHz() float64 {
	if c.BandLowHz == nil {
		return 0.8 // 48 BPM
	}
	return *c.BandLowHz
}

// GetBandHighHz returns the band_high_hz value or the default.
func (c *TuningConfig) GetBandHighHz() float64 {
	if c.BandHighHz == nil {
		return 4.0 // 240 BPM
	}
	return *c.BandHighHz
}

// GetFilterOrder returns the filter_order value or the default.
func (c *TuningConfig) GetFilterOrder() int {
	if c.FilterOrder == nil {
		return 3
	}
	return *c.FilterOrder
}

// GetSearchLowBPM returns the search_low_bpm value or the default.
func (c *TuningConfig) GetSearchLowBPM() float64 {
	if c.SearchLowBPM == nil {
		return 65
	}
	return *c.SearchLowBPM
}

// GetSearchHighBPM returns the search_high_bpm value or the default.
func (c *TuningConfig) GetSearchHighBPM() float64 {
	if c.SearchHighBPM == nil {
		return 93
	}
	return *c.SearchHighBPM
}

// GetFallbackRateHz returns the fallback_rate_hz value or the default.
func (c *TuningConfig) GetFallbackRateHz() float64 {
	if c.FallbackRateHz == nil {
		return 30
	}
	return *c.FallbackRateHz
}

// GetMinDesignRateHz returns the min_design_rate_hz value or the default.
// Measured rates below this are considered degenerate and replaced by the
// fallback rate before filter design.
func (c *TuningConfig) GetMinDesignRateHz() float64 {
	if c.MinDesignRateHz == nil {
		return 8
	}
	return *c.MinDesignRateHz
}

// GetPersistInterval parses and returns the PersistInterval as a time.Duration.
func (c *TuningConfig) GetPersistInterval() time.Duration {
	if c.PersistInterval == nil || *c.PersistInterval == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.PersistInterval)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}
