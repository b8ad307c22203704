package scanmesh

import (
	"fmt"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// Mesh is a triangulated scan surface. Vertex index is identity; the
// optional attribute slices are either nil or exactly vertex-count long.
type Mesh struct {
	Vertices  []vec3.T    `json:"vertices"`
	Normals   []vec3.T    `json:"normals,omitempty"`
	Colors    [][3]byte   `json:"colors,omitempty"`
	TexCoords []vec2.T    `json:"texCoords,omitempty"`
	Faces     [][3]uint32 `json:"faces"`
	Texture   *Texture    `json:"texture,omitempty"`
}

func NewMesh() *Mesh {
	return &Mesh{}
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty reports whether the mesh has no usable geometry. Every pipeline
// stage and serializer rejects empty meshes.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Faces) == 0
}

func (m *Mesh) HasNormals() bool {
	return len(m.Normals) == len(m.Vertices) && len(m.Normals) > 0
}

func (m *Mesh) HasTexCoords() bool {
	return len(m.TexCoords) == len(m.Vertices) && len(m.TexCoords) > 0
}

func (m *Mesh) HasColors() bool {
	return len(m.Colors) == len(m.Vertices) && len(m.Colors) > 0
}

// Clone returns a deep copy. Stages clone their input so the previous
// stage's mesh stays valid for cancellation fallback.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{}
	if m.Vertices != nil {
		out.Vertices = make([]vec3.T, len(m.Vertices))
		copy(out.Vertices, m.Vertices)
	}
	if m.Normals != nil {
		out.Normals = make([]vec3.T, len(m.Normals))
		copy(out.Normals, m.Normals)
	}
	if m.Colors != nil {
		out.Colors = make([][3]byte, len(m.Colors))
		copy(out.Colors, m.Colors)
	}
	if m.TexCoords != nil {
		out.TexCoords = make([]vec2.T, len(m.TexCoords))
		copy(out.TexCoords, m.TexCoords)
	}
	if m.Faces != nil {
		out.Faces = make([][3]uint32, len(m.Faces))
		copy(out.Faces, m.Faces)
	}
	if m.Texture != nil {
		out.Texture = m.Texture.Clone()
	}
	return out
}

// Validate checks the structural invariants. Loaders call it before
// handing a mesh to the pipeline.
func (m *Mesh) Validate() error {
	if len(m.Faces) > 0 && len(m.Vertices) == 0 {
		return fmt.Errorf("%w: faces without vertices", ErrInvalidData)
	}
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidData, len(m.Normals), len(m.Vertices))
	}
	if m.TexCoords != nil && len(m.TexCoords) != len(m.Vertices) {
		return fmt.Errorf("%w: %d texcoords for %d vertices", ErrInvalidData, len(m.TexCoords), len(m.Vertices))
	}
	if m.Colors != nil && len(m.Colors) != len(m.Vertices) {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrInvalidData, len(m.Colors), len(m.Vertices))
	}
	nv := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		if f[0] >= nv || f[1] >= nv || f[2] >= nv {
			return fmt.Errorf("%w: face %d references vertex out of range", ErrInvalidData, i)
		}
	}
	return nil
}

// Centroid is the arithmetic mean of the vertex positions.
func (m *Mesh) Centroid() dvec3.T {
	if len(m.Vertices) == 0 {
		return dvec3.T{}
	}
	var cx, cy, cz float64
	for i := range m.Vertices {
		cx += float64(m.Vertices[i][0])
		cy += float64(m.Vertices[i][1])
		cz += float64(m.Vertices[i][2])
	}
	n := float64(len(m.Vertices))
	return dvec3.T{cx / n, cy / n, cz / n}
}

func (m *Mesh) GetBoundbox() *[6]float64 {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := range m.Vertices {
		minX = math.Min(minX, float64(m.Vertices[i][0]))
		minY = math.Min(minY, float64(m.Vertices[i][1]))
		minZ = math.Min(minZ, float64(m.Vertices[i][2]))

		maxX = math.Max(maxX, float64(m.Vertices[i][0]))
		maxY = math.Max(maxY, float64(m.Vertices[i][1]))
		maxZ = math.Max(maxZ, float64(m.Vertices[i][2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

func (m *Mesh) ComputeBBox() dvec3.Box {
	if len(m.Vertices) == 0 {
		return dvec3.Box{}
	}
	bx := m.GetBoundbox()
	return dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}
}

// ReComputeNormal rebuilds per-vertex normals as the normalized sum of
// the unit normals of incident faces. Zero-area faces contribute nothing.
func (m *Mesh) ReComputeNormal() {
	normals := make([]vec3.T, len(m.Vertices))
	for _, f := range m.Faces {
		pt1 := m.Vertices[f[0]]
		pt2 := m.Vertices[f[1]]
		pt3 := m.Vertices[f[2]]

		sub1 := vec3.Sub(&pt3, &pt2)
		sub2 := vec3.Sub(&pt1, &pt2)

		cro := vec3.Cross(&sub1, &sub2)
		l := cro.Length()
		if l == 0 {
			continue
		}
		weightedNormal := cro.Scale(1 / l)

		normals[f[0]].Add(weightedNormal)
		normals[f[1]].Add(weightedNormal)
		normals[f[2]].Add(weightedNormal)
	}

	for i := range normals {
		normals[i].Normalize()
	}

	m.Normals = normals
}

// FaceNormal is the unit normal of face i, or the zero vector for a
// degenerate face.
func (m *Mesh) FaceNormal(i int) vec3.T {
	f := m.Faces[i]
	pt1 := m.Vertices[f[0]]
	pt2 := m.Vertices[f[1]]
	pt3 := m.Vertices[f[2]]

	sub1 := vec3.Sub(&pt2, &pt1)
	sub2 := vec3.Sub(&pt3, &pt1)
	cro := vec3.Cross(&sub1, &sub2)
	l := cro.Length()
	if l == 0 {
		return vec3.T{}
	}
	cro.Scale(1 / l)
	return cro
}
