package scanmesh

import (
	"fmt"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// MAX_HOLE_EDGES bounds the boundary loops the repair stage will close.
// Larger loops usually mean a genuinely open scan, not a defect.
const MAX_HOLE_EDGES = 64

// FillHoles closes small holes. Boundary edges are chained into loops by
// endpoint adjacency; each closed loop within the sanity bound is
// triangulated as a fan around its centroid, wound opposite the interior
// faces so patches face outward. Loops that stay open or exceed the bound
// are reported as warnings and left alone.
func FillHoles(m *Mesh) (*Mesh, []string, error) {
	if m.IsEmpty() {
		return nil, nil, ErrEmptyMesh
	}
	out := m.Clone()
	loops, openStrips := boundaryLoops(m)

	var warnings []string
	for _, n := range openStrips {
		warnings = append(warnings, fmt.Sprintf("open boundary strip of %d edges left unfilled", n))
	}
	for _, loop := range loops {
		if len(loop) < 3 {
			warnings = append(warnings, fmt.Sprintf("degenerate boundary loop of %d edges skipped", len(loop)))
			continue
		}
		if len(loop) > MAX_HOLE_EDGES {
			warnings = append(warnings, fmt.Sprintf("boundary loop of %d edges exceeds fill bound %d", len(loop), MAX_HOLE_EDGES))
			continue
		}
		fillLoop(out, loop)
	}
	return out, warnings, nil
}

// boundaryLoops chains directed boundary edges into closed loops. Walks
// that dead-end are returned as open strip lengths instead.
func boundaryLoops(m *Mesh) ([][]uint32, []int) {
	edges := boundaryEdges(m)
	outgoing := make(map[uint32][]int)
	for i, e := range edges {
		outgoing[e[0]] = append(outgoing[e[0]], i)
	}

	used := make([]bool, len(edges))
	takeFrom := func(v uint32) int {
		for _, i := range outgoing[v] {
			if !used[i] {
				used[i] = true
				return i
			}
		}
		return -1
	}

	var loops [][]uint32
	var openStrips []int
	for i, e := range edges {
		if used[i] {
			continue
		}
		used[i] = true
		start := e[0]
		loop := []uint32{start}
		cur := e[1]
		closed := false
		for steps := 0; steps < len(edges); steps++ {
			if cur == start {
				closed = true
				break
			}
			loop = append(loop, cur)
			j := takeFrom(cur)
			if j < 0 {
				break
			}
			cur = edges[j][1]
		}
		if closed {
			loops = append(loops, loop)
		} else {
			openStrips = append(openStrips, len(loop))
		}
	}
	return loops, openStrips
}

// fillLoop appends the patch for one closed loop. Triangle loops take a
// single face; anything larger gets a centroid vertex and a fan. Each
// patch triangle traverses its boundary edge opposite to the interior
// face that owns it.
func fillLoop(m *Mesh, loop []uint32) {
	if len(loop) == 3 {
		m.Faces = append(m.Faces, [3]uint32{loop[2], loop[1], loop[0]})
		return
	}

	c := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, loopCentroid(m, loop))
	if m.Normals != nil {
		var n vec3.T
		for _, v := range loop {
			n.Add(&m.Normals[v])
		}
		n.Normalize()
		m.Normals = append(m.Normals, n)
	}
	if m.TexCoords != nil {
		var s, t float64
		for _, v := range loop {
			s += float64(m.TexCoords[v][0])
			t += float64(m.TexCoords[v][1])
		}
		k := float64(len(loop))
		m.TexCoords = append(m.TexCoords, vec2.T{float32(s / k), float32(t / k)})
	}
	if m.Colors != nil {
		var r, g, b int
		for _, v := range loop {
			r += int(m.Colors[v][0])
			g += int(m.Colors[v][1])
			b += int(m.Colors[v][2])
		}
		k := len(loop)
		m.Colors = append(m.Colors, [3]byte{byte(r / k), byte(g / k), byte(b / k)})
	}

	for i := range loop {
		a := loop[i]
		b := loop[(i+1)%len(loop)]
		m.Faces = append(m.Faces, [3]uint32{b, a, c})
	}
}

func loopCentroid(m *Mesh, loop []uint32) vec3.T {
	var cx, cy, cz float64
	for _, v := range loop {
		cx += float64(m.Vertices[v][0])
		cy += float64(m.Vertices[v][1])
		cz += float64(m.Vertices[v][2])
	}
	n := float64(len(loop))
	return vec3.T{float32(cx / n), float32(cy / n), float32(cz / n)}
}
