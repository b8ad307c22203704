package scanmesh

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportFile is one serialized output: the primary format file or a
// sidecar such as an MTL or texture image.
type ExportFile struct {
	Name string
	Data []byte
}

// ExportedFile records where a file landed and how big it is.
type ExportedFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	ByteSize int64  `json:"byteSize"`
}

// ExportResult is the catalog record for one export: what was written,
// where, and the mesh dimensions it captured. The storage collaborator
// persists it; the engine keeps no catalog of its own.
type ExportResult struct {
	ID          string         `json:"id"`
	Format      ExportFormat   `json:"format"`
	Files       []ExportedFile `json:"files"`
	VertexCount int            `json:"vertexCount"`
	FaceCount   int            `json:"faceCount"`
	TotalBytes  int64          `json:"totalBytes"`
}

// transformForExport applies the shared serializer preamble: translate by
// -centroid when centering (measured before scaling), then scale.
func transformForExport(m *Mesh, opts ExportOptions) *Mesh {
	out := m.Clone()
	if !opts.CenterMesh && opts.Scale == 1 {
		return out
	}
	var cx, cy, cz float64
	if opts.CenterMesh {
		c := m.Centroid()
		cx, cy, cz = c[0], c[1], c[2]
	}
	s := opts.Scale
	if s <= 0 {
		s = 1
	}
	for i := range out.Vertices {
		out.Vertices[i][0] = float32((float64(out.Vertices[i][0]) - cx) * s)
		out.Vertices[i][1] = float32((float64(out.Vertices[i][1]) - cy) * s)
		out.Vertices[i][2] = float32((float64(out.Vertices[i][2]) - cz) * s)
	}
	return out
}

// Serialize encodes the mesh for the given format and names every file
// the format produces. baseName carries no extension; sidecar references
// inside the output use the returned names verbatim.
func Serialize(m *Mesh, format ExportFormat, baseName string, opts ExportOptions) ([]ExportFile, error) {
	switch format {
	case FORMAT_STL:
		data, err := SerializeSTL(m, opts)
		if err != nil {
			return nil, err
		}
		return []ExportFile{{Name: baseName + format.Extension(), Data: data}}, nil
	case FORMAT_OBJ:
		return SerializeOBJ(m, baseName, opts)
	case FORMAT_PLY:
		data, err := SerializePLY(m, opts)
		if err != nil {
			return nil, err
		}
		return []ExportFile{{Name: baseName + format.Extension(), Data: data}}, nil
	case FORMAT_USDZ:
		_, err := SerializeUSDZ(m, opts)
		return nil, err
	default:
		return nil, fmt.Errorf("%w: format %d", ErrUnsupportedFormat, uint32(format))
	}
}

// Exporter writes serialized meshes to disk. A zero Options value is
// usable; Logger may stay nil.
type Exporter struct {
	Options ExportOptions
	Logger  *zap.Logger
}

func NewExporter(opts ExportOptions) *Exporter {
	return &Exporter{Options: opts}
}

// Export serializes m and writes it under destDir as baseName plus the
// format extension. Files are written atomically; with CreateZipArchive
// the primary file and sidecars land in a single <baseName>.zip instead.
func (e *Exporter) Export(m *Mesh, format ExportFormat, destDir, baseName string) (*ExportResult, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !format.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format.DisplayName())
	}
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	opts := e.Options
	opts.Validate()

	files, err := Serialize(m, format, baseName, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &DirectoryCreationError{Dir: destDir, Err: err}
	}

	result := &ExportResult{
		ID:          uuid.New().String(),
		Format:      format,
		VertexCount: m.VertexCount(),
		FaceCount:   m.FaceCount(),
	}

	if opts.CreateZipArchive {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		for _, f := range files {
			w, err := zw.Create(f.Name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
			}
			if _, err := w.Write(f.Data); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
			}
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		name := baseName + ".zip"
		path := filepath.Join(destDir, name)
		if err := atomicWriteFile(path, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
		}
		result.Files = append(result.Files, ExportedFile{Name: name, Path: path, ByteSize: int64(buf.Len())})
	} else {
		for _, f := range files {
			path := filepath.Join(destDir, f.Name)
			if err := atomicWriteFile(path, f.Data); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
			}
			result.Files = append(result.Files, ExportedFile{Name: f.Name, Path: path, ByteSize: int64(len(f.Data))})
		}
	}
	for _, f := range result.Files {
		result.TotalBytes += f.ByteSize
	}

	log.Info("mesh exported",
		zap.String("id", result.ID),
		zap.Stringer("format", format),
		zap.String("dir", destDir),
		zap.Int("files", len(result.Files)),
		zap.Int64("bytes", result.TotalBytes),
		zap.Int("vertices", result.VertexCount),
		zap.Int("faces", result.FaceCount))
	return result, nil
}

// ExportAll writes one export per format. The first failure aborts the
// run and returns the results completed so far alongside the error.
func (e *Exporter) ExportAll(m *Mesh, formats []ExportFormat, destDir, baseName string) ([]*ExportResult, error) {
	var results []*ExportResult
	for _, f := range formats {
		res, err := e.Export(m, f, destDir, baseName)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
