package scanmesh

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMesh is returned when a mesh with no vertices or no faces
	// reaches a processing stage or a serializer.
	ErrEmptyMesh = errors.New("scanmesh: mesh has no geometry")

	// ErrUnsupportedFormat is returned for formats the engine declares but
	// cannot write, and for unrecognized input extensions.
	ErrUnsupportedFormat = errors.New("scanmesh: unsupported format")

	ErrSerialization = errors.New("scanmesh: serialization failed")
	ErrFileNotFound  = errors.New("scanmesh: file not found")
	ErrSaveFailed    = errors.New("scanmesh: failed to save file")
	ErrLoadFailed    = errors.New("scanmesh: failed to load file")
	ErrInvalidData   = errors.New("scanmesh: invalid data")
)

// DirectoryCreationError reports a failed attempt to create an export
// directory. The directory name is kept so callers can surface it.
type DirectoryCreationError struct {
	Dir string
	Err error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("scanmesh: unable to create directory %q: %v", e.Dir, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error {
	return e.Err
}
