package scanmesh

import "fmt"

const SCANMESH_EXT string = ".scanmesh"

// ProcessingStep identifies a pipeline phase. Values are ordered; the
// pipeline only ever moves forward through them.
type ProcessingStep uint32

const (
	STEP_REPAIR ProcessingStep = iota
	STEP_NOISE_FILTER
	STEP_SMOOTH
	STEP_DECIMATE
	STEP_TEXTURE_BAKE
	STEP_COMPLETE
)

// Progress reports how far through the pipeline this step is, in [0,1].
// Values are strictly increasing with step order and STEP_COMPLETE is
// exactly 1.
func (s ProcessingStep) Progress() float64 {
	switch s {
	case STEP_REPAIR:
		return 0.15
	case STEP_NOISE_FILTER:
		return 0.30
	case STEP_SMOOTH:
		return 0.50
	case STEP_DECIMATE:
		return 0.80
	case STEP_TEXTURE_BAKE:
		return 0.95
	case STEP_COMPLETE:
		return 1.0
	default:
		return 0
	}
}

func (s ProcessingStep) String() string {
	switch s {
	case STEP_REPAIR:
		return "repair"
	case STEP_NOISE_FILTER:
		return "noiseFilter"
	case STEP_SMOOTH:
		return "smooth"
	case STEP_DECIMATE:
		return "decimate"
	case STEP_TEXTURE_BAKE:
		return "textureBake"
	case STEP_COMPLETE:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", uint32(s))
	}
}

// ExportFormat is the closed set of output formats the engine knows about.
// FORMAT_USDZ is declared for forward compatibility but has no serializer;
// exporting it fails with ErrUnsupportedFormat.
type ExportFormat uint32

const (
	FORMAT_STL ExportFormat = iota
	FORMAT_OBJ
	FORMAT_PLY
	FORMAT_USDZ
)

func (f ExportFormat) Extension() string {
	switch f {
	case FORMAT_STL:
		return ".stl"
	case FORMAT_OBJ:
		return ".obj"
	case FORMAT_PLY:
		return ".ply"
	case FORMAT_USDZ:
		return ".usdz"
	default:
		return ""
	}
}

func (f ExportFormat) DisplayName() string {
	switch f {
	case FORMAT_STL:
		return "STL"
	case FORMAT_OBJ:
		return "Wavefront OBJ"
	case FORMAT_PLY:
		return "Stanford PLY"
	case FORMAT_USDZ:
		return "USDZ"
	default:
		return "unknown"
	}
}

func (f ExportFormat) MimeType() string {
	switch f {
	case FORMAT_STL:
		return "model/stl"
	case FORMAT_OBJ:
		return "model/obj"
	case FORMAT_PLY:
		return "model/ply"
	case FORMAT_USDZ:
		return "model/vnd.usdz+zip"
	default:
		return "application/octet-stream"
	}
}

// SupportsTexture reports whether the format can reference a texture atlas.
func (f ExportFormat) SupportsTexture() bool {
	switch f {
	case FORMAT_OBJ, FORMAT_USDZ:
		return true
	default:
		return false
	}
}

func (f ExportFormat) String() string {
	return f.DisplayName()
}

// SupportedFormats lists the formats with a working serializer. USDZ is
// deliberately absent.
func SupportedFormats() []ExportFormat {
	return []ExportFormat{FORMAT_STL, FORMAT_OBJ, FORMAT_PLY}
}

// Supported reports whether f has a working serializer.
func (f ExportFormat) Supported() bool {
	for _, s := range SupportedFormats() {
		if f == s {
			return true
		}
	}
	return false
}

// ParseFormat resolves a format name or file extension such as "stl" or
// ".obj". Unrecognized names return ErrUnsupportedFormat.
func ParseFormat(name string) (ExportFormat, error) {
	switch name {
	case "stl", ".stl", "STL":
		return FORMAT_STL, nil
	case "obj", ".obj", "OBJ":
		return FORMAT_OBJ, nil
	case "ply", ".ply", "PLY":
		return FORMAT_PLY, nil
	case "usdz", ".usdz", "USDZ":
		return FORMAT_USDZ, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

const (
	DEFAULT_SMOOTHING_ITERATIONS = 3
	DEFAULT_SMOOTHING_FACTOR     = 0.5
	DEFAULT_DECIMATION_RATIO     = 0.5
	DEFAULT_NOISE_THRESHOLD      = 0.002
	DEFAULT_TEXTURE_RESOLUTION   = 2048
)

// ProcessingOptions configures the pipeline stages.
type ProcessingOptions struct {
	SmoothingIterations int     `json:"smoothingIterations"`
	SmoothingFactor     float64 `json:"smoothingFactor"`
	DecimationRatio     float64 `json:"decimationRatio"`
	FillHoles           bool    `json:"fillHoles"`
	RemoveNoise         bool    `json:"removeNoise"`
	NoiseThreshold      float64 `json:"noiseThreshold"`
	BakeTexture         bool    `json:"bakeTexture"`
}

func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		SmoothingIterations: DEFAULT_SMOOTHING_ITERATIONS,
		SmoothingFactor:     DEFAULT_SMOOTHING_FACTOR,
		DecimationRatio:     DEFAULT_DECIMATION_RATIO,
		FillHoles:           true,
		RemoveNoise:         true,
		NoiseThreshold:      DEFAULT_NOISE_THRESHOLD,
		BakeTexture:         true,
	}
}

// Validate clamps out-of-range values back to their defaults and reports
// each field it touched. Bad option values are never fatal.
func (o *ProcessingOptions) Validate() []string {
	var clamped []string
	if o.SmoothingIterations < 0 {
		o.SmoothingIterations = DEFAULT_SMOOTHING_ITERATIONS
		clamped = append(clamped, "smoothingIterations")
	}
	if o.SmoothingFactor < 0 || o.SmoothingFactor > 1 {
		o.SmoothingFactor = DEFAULT_SMOOTHING_FACTOR
		clamped = append(clamped, "smoothingFactor")
	}
	if o.DecimationRatio <= 0 || o.DecimationRatio > 1 {
		o.DecimationRatio = DEFAULT_DECIMATION_RATIO
		clamped = append(clamped, "decimationRatio")
	}
	if o.NoiseThreshold <= 0 {
		o.NoiseThreshold = DEFAULT_NOISE_THRESHOLD
		clamped = append(clamped, "noiseThreshold")
	}
	return clamped
}

// ExportOptions configures serialization and file layout.
// Binary selects the binary body where a format offers one; OBJ is always
// text so the flag is a documented no-op there.
type ExportOptions struct {
	Scale             float64 `json:"scale"`
	CenterMesh        bool    `json:"centerMesh"`
	Binary            bool    `json:"binary"`
	IncludeNormals    bool    `json:"includeNormals"`
	IncludeTexCoords  bool    `json:"includeTextureCoords"`
	IncludeTexture    bool    `json:"includeTexture"`
	TextureResolution int     `json:"textureResolution"`
	CreateZipArchive  bool    `json:"createZipArchive"`
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Scale:             1.0,
		CenterMesh:        true,
		Binary:            true,
		IncludeNormals:    true,
		IncludeTexCoords:  true,
		IncludeTexture:    true,
		TextureResolution: DEFAULT_TEXTURE_RESOLUTION,
		CreateZipArchive:  false,
	}
}

func (o *ExportOptions) Validate() []string {
	var clamped []string
	if o.Scale <= 0 {
		o.Scale = 1.0
		clamped = append(clamped, "scale")
	}
	if o.TextureResolution <= 0 {
		o.TextureResolution = DEFAULT_TEXTURE_RESOLUTION
		clamped = append(clamped, "textureResolution")
	}
	return clamped
}
