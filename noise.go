package scanmesh

import (
	"math"

	"github.com/flywave/go3d/vec3"
)

// FilterNoise snaps outlier vertices back toward the surface. The
// reference position for each vertex is the mean of its one-ring; a
// displacement above threshold marks the vertex as sensor noise and it is
// replaced by the reference. All references are computed from the input
// positions, so the pass is order-independent. Isolated vertices pass
// through unchanged.
func FilterNoise(m *Mesh, threshold float64) (*Mesh, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	if threshold <= 0 {
		threshold = DEFAULT_NOISE_THRESHOLD
	}
	out := m.Clone()
	ring := oneRing(m)
	for v := range m.Vertices {
		nb := ring[v]
		if len(nb) == 0 {
			continue
		}
		var cx, cy, cz float64
		for _, n := range nb {
			cx += float64(m.Vertices[n][0])
			cy += float64(m.Vertices[n][1])
			cz += float64(m.Vertices[n][2])
		}
		k := float64(len(nb))
		rx := cx / k
		ry := cy / k
		rz := cz / k

		dx := float64(m.Vertices[v][0]) - rx
		dy := float64(m.Vertices[v][1]) - ry
		dz := float64(m.Vertices[v][2]) - rz
		if math.Sqrt(dx*dx+dy*dy+dz*dz) > threshold {
			out.Vertices[v] = vec3.T{float32(rx), float32(ry), float32(rz)}
		}
	}
	return out, nil
}
