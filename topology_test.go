package scanmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeFaces(t *testing.T) {
	t.Parallel()

	ef := edgeFaces(makeCube())
	// 12 cube edges plus 6 face diagonals, every one shared by two faces.
	require.Len(t, ef, 18)
	for key, faces := range ef {
		assert.Len(t, faces, 2, "edge %v", key)
	}
}

func TestBoundaryEdges(t *testing.T) {
	t.Parallel()

	assert.Empty(t, boundaryEdges(makeCube()))

	open := makeOpenCube()
	edges := boundaryEdges(open)
	require.Len(t, edges, 4)
	assert.ElementsMatch(t, [][2]uint32{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, edges)
}

func TestOneRing(t *testing.T) {
	t.Parallel()

	ring := oneRing(makeCube())
	require.Len(t, ring, 8)
	// Corner 0 touches its three edge neighbors and three face diagonals.
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 7}, ring[0])
	assert.Equal(t, []uint32{1, 2, 4, 5, 7}, ring[6])

	isolated := makeCube()
	isolated.Vertices = append(isolated.Vertices, isolated.Vertices[0])
	ring = oneRing(isolated)
	assert.Empty(t, ring[8])
}

func TestBoundaryNeighbors(t *testing.T) {
	t.Parallel()

	assert.Empty(t, boundaryNeighbors(makeCube()))

	bn := boundaryNeighbors(makeOpenCube())
	require.Len(t, bn, 4)
	assert.Equal(t, []uint32{1, 3}, bn[0])
	assert.Equal(t, []uint32{0, 2}, bn[1])
	assert.Equal(t, []uint32{1, 3}, bn[2])
	assert.Equal(t, []uint32{0, 2}, bn[3])
}

func TestVertexFaces(t *testing.T) {
	t.Parallel()

	vf := vertexFaces(makeCube())
	require.Len(t, vf, 8)
	total := 0
	for _, faces := range vf {
		total += len(faces)
	}
	assert.Equal(t, 36, total)
	assert.Len(t, vf[0], 6)
}
