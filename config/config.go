// Package config loads the YAML-file and flag-driven runtime
// configuration for the merge run, mirroring the load/validate style of
// the teacher's config loader.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the external interface: the target
// tile count, the rook-adjacency buffer, the infill neighbor count, the
// OLS sales-count gate, the output directory, and whether stale-edge
// recomputation may run in parallel.
type Config struct {
	DesiredEndingTileCount int     `yaml:"desired_ending_tile_count"`
	AdjacencyBufferFeet    float64 `yaml:"adjacency_buffer_feet"`
	InfillK                int     `yaml:"infill_k"`
	MinSalesForOLS         int     `yaml:"min_sales_for_ols"`
	OutputDirectory        string  `yaml:"output_directory"`
	ParallelRecompute      bool    `yaml:"parallel_recompute"`
}

// Default returns the configuration in effect when no file is supplied.
func Default() Config {
	return Config{
		DesiredEndingTileCount: 1,
		AdjacencyBufferFeet:    30,
		InfillK:                3,
		MinSalesForOLS:         3,
		OutputDirectory:        ".",
		ParallelRecompute:      true,
	}
}

// Load reads and validates path, starting from Default() so a partial
// file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required-field invariants a run cannot proceed
// without.
func (c Config) Validate() error {
	if c.DesiredEndingTileCount < 1 {
		return fmt.Errorf("desired_ending_tile_count must be at least 1")
	}
	if c.AdjacencyBufferFeet < 0 {
		return fmt.Errorf("adjacency_buffer_feet must not be negative")
	}
	if c.InfillK < 1 {
		return fmt.Errorf("infill_k must be at least 1")
	}
	if c.MinSalesForOLS < 1 {
		return fmt.Errorf("min_sales_for_ols must be at least 1")
	}
	if c.OutputDirectory == "" {
		return fmt.Errorf("output_directory is required")
	}
	return nil
}

// Save writes the configuration to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
