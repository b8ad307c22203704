package scanmesh

import (
	"math"
	"sort"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"gonum.org/v1/gonum/stat"
)

// MeshStats summarizes mesh quality. The pipeline logs one before and one
// after processing; the edge length distribution is the quickest tell for
// leftover sensor noise.
type MeshStats struct {
	VertexCount      int       `json:"vertexCount"`
	FaceCount        int       `json:"faceCount"`
	BBox             dvec3.Box `json:"bbox"`
	SurfaceArea      float64   `json:"surfaceArea"`
	MeanEdgeLength   float64   `json:"meanEdgeLength"`
	MedianEdgeLength float64   `json:"medianEdgeLength"`
	StdDevEdgeLength float64   `json:"stdDevEdgeLength"`
	BoundaryEdges    int       `json:"boundaryEdges"`
	DegenerateFaces  int       `json:"degenerateFaces"`
	IsolatedVertices int       `json:"isolatedVertices"`
}

// Analyze computes summary statistics over the mesh.
func Analyze(m *Mesh) (*MeshStats, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	st := &MeshStats{
		VertexCount: m.VertexCount(),
		FaceCount:   m.FaceCount(),
		BBox:        m.ComputeBBox(),
	}

	ef := edgeFaces(m)
	lengths := make([]float64, 0, len(ef))
	for key, faces := range ef {
		if len(faces) == 1 {
			st.BoundaryEdges++
		}
		a := m.Vertices[key.A]
		b := m.Vertices[key.B]
		dx := float64(a[0]) - float64(b[0])
		dy := float64(a[1]) - float64(b[1])
		dz := float64(a[2]) - float64(b[2])
		lengths = append(lengths, math.Sqrt(dx*dx+dy*dy+dz*dz))
	}
	if len(lengths) > 0 {
		sort.Float64s(lengths)
		st.MeanEdgeLength = stat.Mean(lengths, nil)
		st.MedianEdgeLength = stat.Quantile(0.5, stat.Empirical, lengths, nil)
		st.StdDevEdgeLength = stat.StdDev(lengths, nil)
	}

	for i := range m.Faces {
		if _, area := faceNormalArea64(m, i); area == 0 {
			st.DegenerateFaces++
		} else {
			st.SurfaceArea += area
		}
	}

	for _, faces := range vertexFaces(m) {
		if len(faces) == 0 {
			st.IsolatedVertices++
		}
	}
	return st, nil
}

func faceNormalArea64(m *Mesh, i int) ([3]float64, float64) {
	f := m.Faces[i]
	var p [3][3]float64
	for k, v := range f {
		p[k] = [3]float64{float64(m.Vertices[v][0]), float64(m.Vertices[v][1]), float64(m.Vertices[v][2])}
	}
	n := triNormal(p)
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return n, 0
	}
	n[0] /= l
	n[1] /= l
	n[2] /= l
	return n, l / 2
}
