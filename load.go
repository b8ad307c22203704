package scanmesh

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadMeshFile loads a mesh snapshot from an STL, OBJ or PLY file,
// dispatching on the extension.
func ReadMeshFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	defer f.Close()
	return ReadMesh(f, filepath.Ext(path))
}

// ReadMesh parses mesh bytes in the format implied by ext.
func ReadMesh(rd io.Reader, ext string) (*Mesh, error) {
	switch strings.ToLower(ext) {
	case ".stl":
		return ReadSTL(rd)
	case ".obj":
		return ReadOBJ(rd)
	case ".ply":
		return ReadPLY(rd)
	default:
		return nil, fmt.Errorf("%w: input extension %q", ErrUnsupportedFormat, ext)
	}
}
