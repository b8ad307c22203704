package scanmesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawExportOptions() ExportOptions {
	opts := DefaultExportOptions()
	opts.CenterMesh = false
	opts.Scale = 1
	return opts
}

func TestSerializeSTLBinaryLayout(t *testing.T) {
	t.Parallel()

	tri := &Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]uint32{{0, 1, 2}},
	}
	data, err := SerializeSTL(tri, rawExportOptions())
	require.NoError(t, err)
	require.Len(t, data, 84+50)

	assert.True(t, bytes.HasPrefix(data, []byte("go-scanmesh binary STL")))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[80:84]))

	rec := data[84:]
	assert.Equal(t, vec3.T{0, 0, 1}, getVec3(rec[0:12]))
	assert.Equal(t, vec3.T{0, 0, 0}, getVec3(rec[12:24]))
	assert.Equal(t, vec3.T{1, 0, 0}, getVec3(rec[24:36]))
	assert.Equal(t, vec3.T{0, 1, 0}, getVec3(rec[36:48]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(rec[48:50]))
}

func TestSTLBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	m := makeCube()
	data, err := SerializeSTL(m, rawExportOptions())
	require.NoError(t, err)
	require.Len(t, data, 84+12*50)

	back, err := ReadSTL(bytes.NewReader(data))
	require.NoError(t, err)

	// The 36 per-triangle corners weld back into the 8 cube vertices.
	assert.Equal(t, 8, back.VertexCount())
	assert.Equal(t, 12, back.FaceCount())
	require.NoError(t, back.Validate())
	assert.ElementsMatch(t, m.Vertices, back.Vertices)
	assert.Empty(t, boundaryEdges(back))
}

func TestSTLTextRoundTrip(t *testing.T) {
	t.Parallel()

	m := makeCube()
	opts := rawExportOptions()
	opts.Binary = false
	data, err := SerializeSTL(m, opts)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "solid scanmesh\n"))
	assert.True(t, strings.HasSuffix(text, "endsolid scanmesh\n"))
	assert.Equal(t, 12, strings.Count(text, "facet normal"))
	assert.Equal(t, 36, strings.Count(text, "vertex"))

	back, err := ReadSTL(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 8, back.VertexCount())
	assert.Equal(t, 12, back.FaceCount())
	assert.ElementsMatch(t, m.Vertices, back.Vertices)
}

func TestSTLScaleAndCenter(t *testing.T) {
	t.Parallel()

	m := makeCube()
	opts := rawExportOptions()
	opts.CenterMesh = true
	opts.Scale = 2

	data, err := SerializeSTL(m, opts)
	require.NoError(t, err)
	back, err := ReadSTL(bytes.NewReader(data))
	require.NoError(t, err)

	bx := back.GetBoundbox()
	assert.InDelta(t, -1, bx[0], 1e-6)
	assert.InDelta(t, -1, bx[1], 1e-6)
	assert.InDelta(t, -1, bx[2], 1e-6)
	assert.InDelta(t, 1, bx[3], 1e-6)
	assert.InDelta(t, 1, bx[4], 1e-6)
	assert.InDelta(t, 1, bx[5], 1e-6)

	// The input mesh is untouched.
	assert.Equal(t, makeCube().Vertices, m.Vertices)
}

func TestReadSTLDetectsEncoding(t *testing.T) {
	t.Parallel()

	m := makeCube()

	bin, err := SerializeSTL(m, rawExportOptions())
	require.NoError(t, err)
	assert.True(t, isBinarySTL(bin))

	opts := rawExportOptions()
	opts.Binary = false
	txt, err := SerializeSTL(m, opts)
	require.NoError(t, err)
	assert.False(t, isBinarySTL(txt))
}

func TestReadSTLRejectsGarbage(t *testing.T) {
	t.Parallel()

	t.Run("truncated binary", func(t *testing.T) {
		m := makeCube()
		data, err := SerializeSTL(m, rawExportOptions())
		require.NoError(t, err)
		_, err = ReadSTL(bytes.NewReader(data[:100]))
		assert.True(t, errors.Is(err, ErrInvalidData))
	})

	t.Run("malformed text", func(t *testing.T) {
		_, err := ReadSTL(strings.NewReader("solid x\n  facet normal 0 0 1\n  giberish\n"))
		assert.True(t, errors.Is(err, ErrInvalidData))
	})

	t.Run("facet with wrong vertex count", func(t *testing.T) {
		_, err := ReadSTL(strings.NewReader(
			"solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\nendsolid x\n"))
		assert.True(t, errors.Is(err, ErrInvalidData))
	})
}

func TestSTLDegenerateTrianglesDropped(t *testing.T) {
	t.Parallel()

	// A record whose corners weld to fewer than three distinct vertices
	// carries no surface and is dropped on read.
	var buf bytes.Buffer
	tri := &Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]uint32{{0, 1, 2}},
	}
	writeBinarySTL(&buf, tri)
	data := buf.Bytes()

	// Patch the record so the second vertex equals the first.
	rec := data[84:]
	copy(rec[24:36], rec[12:24])
	back, err := readBinarySTL(data)
	require.NoError(t, err)
	assert.Equal(t, 0, back.FaceCount())
}

func TestSerializeSTLEmptyMesh(t *testing.T) {
	t.Parallel()

	_, err := SerializeSTL(NewMesh(), rawExportOptions())
	assert.True(t, errors.Is(err, ErrEmptyMesh))
}
