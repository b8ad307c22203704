package scanmesh

import (
	"errors"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNoiseSnapsSpike(t *testing.T) {
	t.Parallel()

	// Interior vertices of the grid sit exactly at their one-ring mean, so
	// only the spiked vertex exceeds the threshold among them.
	m := makeGrid(5)
	spike := 2*5 + 2
	m.Vertices[spike][2] = 2

	out, err := FilterNoise(m, 0.5)
	require.NoError(t, err)
	assert.Equal(t, vec3.T{2, 2, 0}, out.Vertices[spike])

	for _, v := range []int{1*5 + 1, 1*5 + 3, 3*5 + 1, 3*5 + 3} {
		assert.Equal(t, m.Vertices[v], out.Vertices[v], "interior vertex %d moved", v)
	}
	assert.Equal(t, m.Faces, out.Faces)
}

func TestFilterNoiseKeepsSmallDisplacement(t *testing.T) {
	t.Parallel()

	m := makeGrid(5)
	spike := 2*5 + 2
	m.Vertices[spike][2] = 0.4

	// Threshold above every displacement in the mesh, boundary included.
	out, err := FilterNoise(m, 1.0)
	require.NoError(t, err)
	assert.Equal(t, m.Vertices, out.Vertices)
}

func TestFilterNoiseDefaultThreshold(t *testing.T) {
	t.Parallel()

	// A displacement between the default threshold and zero survives a
	// non-positive threshold argument.
	m := makeGrid(3)
	m.Vertices[4][2] = 0.001

	out, err := FilterNoise(m, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.001), out.Vertices[4][2])

	out, err = FilterNoise(m, 0.0005)
	require.NoError(t, err)
	assert.InDelta(t, 0, out.Vertices[4][2], 1e-6)
}

func TestFilterNoiseIsolatedVertex(t *testing.T) {
	t.Parallel()

	m := makeGrid(3)
	m.Vertices = append(m.Vertices, vec3.T{50, 50, 50})

	out, err := FilterNoise(m, 0.5)
	require.NoError(t, err)
	assert.Equal(t, vec3.T{50, 50, 50}, out.Vertices[9])
}

func TestFilterNoiseEmptyMesh(t *testing.T) {
	t.Parallel()

	_, err := FilterNoise(NewMesh(), 0.5)
	assert.True(t, errors.Is(err, ErrEmptyMesh))
}
