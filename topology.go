package scanmesh

import "sort"

// edgeKey identifies an undirected edge by its sorted endpoints.
type edgeKey struct {
	A, B uint32
}

func makeEdgeKey(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{A: a, B: b}
}

// edgeFaces maps every undirected edge to the faces incident on it.
func edgeFaces(m *Mesh) map[edgeKey][]int {
	ef := make(map[edgeKey][]int, len(m.Faces)*3/2)
	for i, f := range m.Faces {
		ef[makeEdgeKey(f[0], f[1])] = append(ef[makeEdgeKey(f[0], f[1])], i)
		ef[makeEdgeKey(f[1], f[2])] = append(ef[makeEdgeKey(f[1], f[2])], i)
		ef[makeEdgeKey(f[2], f[0])] = append(ef[makeEdgeKey(f[2], f[0])], i)
	}
	return ef
}

// boundaryEdges returns the directed boundary edges in face winding order.
// An edge used by exactly one face is a boundary edge; keeping its winding
// direction lets hole loops be chained and oriented consistently.
func boundaryEdges(m *Mesh) [][2]uint32 {
	ef := edgeFaces(m)
	var out [][2]uint32
	for _, f := range m.Faces {
		dir := [3][2]uint32{{f[0], f[1]}, {f[1], f[2]}, {f[2], f[0]}}
		for _, e := range dir {
			if len(ef[makeEdgeKey(e[0], e[1])]) == 1 {
				out = append(out, e)
			}
		}
	}
	return out
}

// oneRing builds the neighbor set of every vertex via face incidence.
// Neighbor lists are sorted so traversal order is reproducible.
func oneRing(m *Mesh) [][]uint32 {
	sets := make([]map[uint32]struct{}, len(m.Vertices))
	add := func(a, b uint32) {
		if sets[a] == nil {
			sets[a] = make(map[uint32]struct{}, 8)
		}
		sets[a][b] = struct{}{}
	}
	for _, f := range m.Faces {
		add(f[0], f[1])
		add(f[0], f[2])
		add(f[1], f[0])
		add(f[1], f[2])
		add(f[2], f[0])
		add(f[2], f[1])
	}
	ring := make([][]uint32, len(m.Vertices))
	for v, set := range sets {
		if set == nil {
			continue
		}
		nb := make([]uint32, 0, len(set))
		for n := range set {
			nb = append(nb, n)
		}
		sort.Slice(nb, func(i, j int) bool { return nb[i] < nb[j] })
		ring[v] = nb
	}
	return ring
}

// boundaryNeighbors maps each boundary vertex to the neighbors it shares a
// boundary edge with. Vertices absent from the map are interior.
func boundaryNeighbors(m *Mesh) map[uint32][]uint32 {
	bn := make(map[uint32][]uint32)
	for _, e := range boundaryEdges(m) {
		bn[e[0]] = append(bn[e[0]], e[1])
		bn[e[1]] = append(bn[e[1]], e[0])
	}
	for v := range bn {
		sort.Slice(bn[v], func(i, j int) bool { return bn[v][i] < bn[v][j] })
	}
	return bn
}

// vertexFaces maps each vertex to the faces incident on it.
func vertexFaces(m *Mesh) [][]int {
	vf := make([][]int, len(m.Vertices))
	for i, f := range m.Faces {
		vf[f[0]] = append(vf[f[0]], i)
		vf[f[1]] = append(vf[f[1]], i)
		vf[f[2]] = append(vf[f[2]], i)
	}
	return vf
}
