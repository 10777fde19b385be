package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("desired_ending_tile_count: 5\n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DesiredEndingTileCount != 5 {
		t.Fatalf("expected override to apply, got %d", cfg.DesiredEndingTileCount)
	}
	if cfg.AdjacencyBufferFeet != 30 {
		t.Fatalf("expected default buffer to survive, got %v", cfg.AdjacencyBufferFeet)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.InfillK = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for infill_k=0")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.MinSalesForOLS = 7
	if err := Save(path, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.MinSalesForOLS != 7 {
		t.Fatalf("expected round-tripped value 7, got %d", loaded.MinSalesForOLS)
	}
}
