package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	scanmesh "github.com/flywave/go-scanmesh"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test processing defaults
	if cfg.Processing.SmoothingIterations != 3 {
		t.Errorf("expected 3 smoothing iterations, got %d", cfg.Processing.SmoothingIterations)
	}
	if cfg.Processing.SmoothingFactor != 0.5 {
		t.Errorf("expected smoothing factor 0.5, got %f", cfg.Processing.SmoothingFactor)
	}
	if cfg.Processing.DecimationRatio != 0.5 {
		t.Errorf("expected decimation ratio 0.5, got %f", cfg.Processing.DecimationRatio)
	}
	if cfg.Processing.NoiseThreshold != 0.002 {
		t.Errorf("expected noise threshold 0.002, got %f", cfg.Processing.NoiseThreshold)
	}
	if !cfg.Processing.FillHoles {
		t.Error("expected fill_holes to be true by default")
	}
	if !cfg.Processing.RemoveNoise {
		t.Error("expected remove_noise to be true by default")
	}
	if !cfg.Processing.BakeTexture {
		t.Error("expected bake_texture to be true by default")
	}

	// Test export defaults
	if !reflect.DeepEqual(cfg.Export.Formats, []string{"stl", "obj", "ply"}) {
		t.Errorf("expected formats stl,obj,ply, got %v", cfg.Export.Formats)
	}
	if cfg.Export.OutputDir != "out" {
		t.Errorf("expected output dir 'out', got %s", cfg.Export.OutputDir)
	}
	if cfg.Export.Scale != 1.0 {
		t.Errorf("expected scale 1.0, got %f", cfg.Export.Scale)
	}
	if !cfg.Export.CenterMesh {
		t.Error("expected center_mesh to be true by default")
	}
	if !cfg.Export.Binary {
		t.Error("expected binary to be true by default")
	}
	if cfg.Export.TextureResolution != 2048 {
		t.Errorf("expected texture resolution 2048, got %d", cfg.Export.TextureResolution)
	}
	if cfg.Export.CreateZipArchive {
		t.Error("expected create_zip_archive to be false by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "scanprep.yaml")

	yamlContent := `
processing:
  smoothing_iterations: 5
  decimation_ratio: 0.25
  fill_holes: false

export:
  formats: [ply]
  output_dir: "exports"
  binary: false
  texture_resolution: 1024

logging:
  level: "debug"
  log_file: "scanprep.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Processing.SmoothingIterations != 5 {
		t.Errorf("expected 5 smoothing iterations, got %d", cfg.Processing.SmoothingIterations)
	}
	if cfg.Processing.DecimationRatio != 0.25 {
		t.Errorf("expected decimation ratio 0.25, got %f", cfg.Processing.DecimationRatio)
	}
	if cfg.Processing.FillHoles {
		t.Error("expected fill_holes to be false")
	}

	if !reflect.DeepEqual(cfg.Export.Formats, []string{"ply"}) {
		t.Errorf("expected formats [ply], got %v", cfg.Export.Formats)
	}
	if cfg.Export.OutputDir != "exports" {
		t.Errorf("expected output dir 'exports', got %s", cfg.Export.OutputDir)
	}
	if cfg.Export.Binary {
		t.Error("expected binary to be false")
	}
	if cfg.Export.TextureResolution != 1024 {
		t.Errorf("expected texture resolution 1024, got %d", cfg.Export.TextureResolution)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "scanprep.log" {
		t.Errorf("expected log file 'scanprep.log', got %s", cfg.Logging.LogFile)
	}

	// Untouched sections keep their defaults
	if cfg.Processing.SmoothingFactor != 0.5 {
		t.Errorf("expected smoothing factor to stay 0.5, got %f", cfg.Processing.SmoothingFactor)
	}
	if cfg.Processing.NoiseThreshold != 0.002 {
		t.Errorf("expected noise threshold to stay 0.002, got %f", cfg.Processing.NoiseThreshold)
	}
	if cfg.Export.Scale != 1.0 {
		t.Errorf("expected scale to stay 1.0, got %f", cfg.Export.Scale)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "scanprep.yaml")

	if err := os.WriteFile(configPath, []byte("processing: [not, a, map]"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestProcessingOptions(t *testing.T) {
	cfg := Default()
	cfg.Processing.SmoothingIterations = 7
	cfg.Processing.BakeTexture = false

	opts := cfg.ProcessingOptions()
	if opts.SmoothingIterations != 7 {
		t.Errorf("expected 7 smoothing iterations, got %d", opts.SmoothingIterations)
	}
	if opts.BakeTexture {
		t.Error("expected bake texture to be false")
	}
	if opts.DecimationRatio != 0.5 {
		t.Errorf("expected decimation ratio 0.5, got %f", opts.DecimationRatio)
	}
}

func TestExportOptions(t *testing.T) {
	cfg := Default()
	cfg.Export.Scale = 2.5
	cfg.Export.CreateZipArchive = true

	opts := cfg.ExportOptions()
	if opts.Scale != 2.5 {
		t.Errorf("expected scale 2.5, got %f", opts.Scale)
	}
	if !opts.CreateZipArchive {
		t.Error("expected zip archive to be true")
	}
	if !opts.Binary {
		t.Error("expected binary to be true")
	}
}

func TestFormats(t *testing.T) {
	cfg := Default()
	cfg.Export.Formats = []string{"stl", "usdz", "glb", "ply"}

	formats, bad := cfg.Formats()
	want := []scanmesh.ExportFormat{scanmesh.FORMAT_STL, scanmesh.FORMAT_USDZ, scanmesh.FORMAT_PLY}
	if !reflect.DeepEqual(formats, want) {
		t.Errorf("expected formats %v, got %v", want, formats)
	}
	if !reflect.DeepEqual(bad, []string{"glb"}) {
		t.Errorf("expected bad formats [glb], got %v", bad)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("stl, obj ,,ply")
	if !reflect.DeepEqual(got, []string{"stl", "obj", "ply"}) {
		t.Errorf("expected [stl obj ply], got %v", got)
	}

	if splitList(" , ") != nil {
		t.Errorf("expected nil for blank list, got %v", splitList(" , "))
	}
}

func TestConfigDir(t *testing.T) {
	if ConfigDir() == "" {
		t.Error("expected a config directory")
	}
}
