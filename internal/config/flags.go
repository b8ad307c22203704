package config

import (
	"flag"
	"strings"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile    = flag.String("log-file", "", "Write logs to a rotating file")
	flagOut        = flag.String("out", "", "Output directory for exported files")
	flagFormats    = flag.String("formats", "", "Comma separated export formats (stl,obj,ply)")
	flagRatio      = flag.Float64("ratio", 0, "Decimation ratio in (0,1], 1 disables decimation")
	flagIterations = flag.Int("iterations", -1, "Laplacian smoothing iterations, 0 disables smoothing")
	flagNoFill     = flag.Bool("no-fill", false, "Skip hole filling")
	flagNoNoise    = flag.Bool("no-noise", false, "Skip noise filtering")
	flagBake       = flag.Bool("bake", false, "Bake the texture atlas during processing")
	flagASCII      = flag.Bool("ascii", false, "Write text encodings instead of binary")
	flagZip        = flag.Bool("zip", false, "Bundle each export into a zip archive")
	flagScale      = flag.Float64("scale", 0, "Uniform scale applied on export")
	flagCenter     = flag.Bool("center", false, "Translate the mesh centroid to the origin on export")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// InputPath returns the positional input mesh argument, if any.
func InputPath() string {
	return flag.Arg(0)
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagFormats != "" {
		cfg.Export.Formats = splitList(*flagFormats)
	}
	if *flagRatio > 0 {
		cfg.Processing.DecimationRatio = *flagRatio
	}
	if *flagIterations >= 0 {
		cfg.Processing.SmoothingIterations = *flagIterations
	}
	if *flagNoFill {
		cfg.Processing.FillHoles = false
	}
	if *flagNoNoise {
		cfg.Processing.RemoveNoise = false
	}
	if *flagBake {
		cfg.Processing.BakeTexture = true
	}
	if *flagASCII {
		cfg.Export.Binary = false
	}
	if *flagZip {
		cfg.Export.CreateZipArchive = true
	}
	if *flagScale > 0 {
		cfg.Export.Scale = *flagScale
	}
	if *flagCenter {
		cfg.Export.CenterMesh = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
