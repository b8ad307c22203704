package scanmesh

import (
	"github.com/flywave/go3d/vec3"
)

// Smooth runs rounds of Laplacian relaxation. Each round moves a vertex
// toward the mean of its one-ring by factor. Vertices on a boundary average
// only the neighbors they share a boundary edge with, which keeps open
// edges from curling inward. Connectivity never changes; zero iterations
// returns an untouched clone.
func Smooth(m *Mesh, iterations int, factor float64) (*Mesh, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	out := m.Clone()
	if iterations <= 0 || factor <= 0 {
		return out, nil
	}
	if factor > 1 {
		factor = 1
	}

	ring := oneRing(m)
	bn := boundaryNeighbors(m)

	cur := out.Vertices
	next := make([]vec3.T, len(cur))
	for it := 0; it < iterations; it++ {
		for v := range cur {
			nb := ring[v]
			if b, onBoundary := bn[uint32(v)]; onBoundary {
				nb = b
			}
			if len(nb) == 0 {
				next[v] = cur[v]
				continue
			}
			var cx, cy, cz float64
			for _, n := range nb {
				cx += float64(cur[n][0])
				cy += float64(cur[n][1])
				cz += float64(cur[n][2])
			}
			k := float64(len(nb))
			px := float64(cur[v][0])
			py := float64(cur[v][1])
			pz := float64(cur[v][2])
			next[v] = vec3.T{
				float32(px + factor*(cx/k-px)),
				float32(py + factor*(cy/k-py)),
				float32(pz + factor*(cz/k-pz)),
			}
		}
		cur, next = next, cur
	}
	out.Vertices = cur
	if out.HasNormals() {
		out.ReComputeNormal()
	}
	return out, nil
}
