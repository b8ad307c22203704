// Package config handles scanprep configuration from defaults,
// YAML config files and command line flags.
package config

import (
	scanmesh "github.com/flywave/go-scanmesh"
)

// Config is the root configuration structure.
type Config struct {
	Processing ProcessingConfig `yaml:"processing"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProcessingConfig mirrors the mesh processing pipeline options.
type ProcessingConfig struct {
	SmoothingIterations int     `yaml:"smoothing_iterations"`
	SmoothingFactor     float64 `yaml:"smoothing_factor"`
	DecimationRatio     float64 `yaml:"decimation_ratio"`
	FillHoles           bool    `yaml:"fill_holes"`
	RemoveNoise         bool    `yaml:"remove_noise"`
	NoiseThreshold      float64 `yaml:"noise_threshold"`
	BakeTexture         bool    `yaml:"bake_texture"`
}

// ExportConfig mirrors the mesh export options plus output selection.
type ExportConfig struct {
	Formats           []string `yaml:"formats"`
	OutputDir         string   `yaml:"output_dir"`
	Scale             float64  `yaml:"scale"`
	CenterMesh        bool     `yaml:"center_mesh"`
	Binary            bool     `yaml:"binary"`
	IncludeNormals    bool     `yaml:"include_normals"`
	IncludeTexCoords  bool     `yaml:"include_texture_coords"`
	IncludeTexture    bool     `yaml:"include_texture"`
	TextureResolution int      `yaml:"texture_resolution"`
	CreateZipArchive  bool     `yaml:"create_zip_archive"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns the configuration used when no file or flag
// overrides anything.
func Default() *Config {
	po := scanmesh.DefaultProcessingOptions()
	eo := scanmesh.DefaultExportOptions()
	return &Config{
		Processing: ProcessingConfig{
			SmoothingIterations: po.SmoothingIterations,
			SmoothingFactor:     po.SmoothingFactor,
			DecimationRatio:     po.DecimationRatio,
			FillHoles:           po.FillHoles,
			RemoveNoise:         po.RemoveNoise,
			NoiseThreshold:      po.NoiseThreshold,
			BakeTexture:         po.BakeTexture,
		},
		Export: ExportConfig{
			Formats:           []string{"stl", "obj", "ply"},
			OutputDir:         "out",
			Scale:             eo.Scale,
			CenterMesh:        eo.CenterMesh,
			Binary:            eo.Binary,
			IncludeNormals:    eo.IncludeNormals,
			IncludeTexCoords:  eo.IncludeTexCoords,
			IncludeTexture:    eo.IncludeTexture,
			TextureResolution: eo.TextureResolution,
			CreateZipArchive:  eo.CreateZipArchive,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ProcessingOptions converts the processing section into pipeline options.
func (c *Config) ProcessingOptions() scanmesh.ProcessingOptions {
	return scanmesh.ProcessingOptions{
		SmoothingIterations: c.Processing.SmoothingIterations,
		SmoothingFactor:     c.Processing.SmoothingFactor,
		DecimationRatio:     c.Processing.DecimationRatio,
		FillHoles:           c.Processing.FillHoles,
		RemoveNoise:         c.Processing.RemoveNoise,
		NoiseThreshold:      c.Processing.NoiseThreshold,
		BakeTexture:         c.Processing.BakeTexture,
	}
}

// ExportOptions converts the export section into exporter options.
func (c *Config) ExportOptions() scanmesh.ExportOptions {
	return scanmesh.ExportOptions{
		Scale:             c.Export.Scale,
		CenterMesh:        c.Export.CenterMesh,
		Binary:            c.Export.Binary,
		IncludeNormals:    c.Export.IncludeNormals,
		IncludeTexCoords:  c.Export.IncludeTexCoords,
		IncludeTexture:    c.Export.IncludeTexture,
		TextureResolution: c.Export.TextureResolution,
		CreateZipArchive:  c.Export.CreateZipArchive,
	}
}

// Formats parses the configured format names. Unknown names are
// returned in bad for the caller to report.
func (c *Config) Formats() (formats []scanmesh.ExportFormat, bad []string) {
	for _, name := range c.Export.Formats {
		f, err := scanmesh.ParseFormat(name)
		if err != nil {
			bad = append(bad, name)
			continue
		}
		formats = append(formats, f)
	}
	return formats, bad
}
