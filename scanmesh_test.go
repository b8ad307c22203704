package scanmesh

import (
	"image"
	"image/color"
	"math"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// makeCube returns a closed unit cube of 8 vertices and 12 CCW faces
// with outward winding.
func makeCube() *Mesh {
	return &Mesh{
		Vertices: []vec3.T{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
		},
		Faces: [][3]uint32{
			{0, 2, 1}, {0, 3, 2},
			{4, 5, 6}, {4, 6, 7},
			{0, 1, 5}, {0, 5, 4},
			{2, 3, 7}, {2, 7, 6},
			{0, 4, 7}, {0, 7, 3},
			{1, 2, 6}, {1, 6, 5},
		},
	}
}

// makeOpenCube is the cube with the two z=0 faces removed, leaving a
// square hole rimmed by vertices 0, 1, 2, 3.
func makeOpenCube() *Mesh {
	m := makeCube()
	m.Faces = m.Faces[2:]
	return m
}

// makeGrid returns an n-by-n vertex plane at z=0. Quads are split along
// the (i,j)-(i+1,j+1) diagonal, so interior vertices sit exactly at the
// mean of their one-ring.
func makeGrid(n int) *Mesh {
	m := NewMesh()
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			m.Vertices = append(m.Vertices, vec3.T{float32(i), float32(j), 0})
		}
	}
	at := func(i, j int) uint32 { return uint32(j*n + i) }
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			m.Faces = append(m.Faces,
				[3]uint32{at(i, j), at(i + 1, j), at(i + 1, j + 1)},
				[3]uint32{at(i, j), at(i + 1, j + 1), at(i, j + 1)})
		}
	}
	return m
}

// makeFan returns a disk of n boundary vertices fanned around a center
// vertex at the origin. Index 0 is the center.
func makeFan(n int) *Mesh {
	m := NewMesh()
	m.Vertices = append(m.Vertices, vec3.T{0, 0, 0})
	for i := 0; i < n; i++ {
		th := 2 * math.Pi * float64(i) / float64(n)
		m.Vertices = append(m.Vertices, vec3.T{float32(math.Cos(th)), float32(math.Sin(th)), 0})
	}
	for i := 0; i < n; i++ {
		a := uint32(i + 1)
		b := uint32((i+1)%n + 1)
		m.Faces = append(m.Faces, [3]uint32{0, a, b})
	}
	return m
}

// makeAtlas builds a w-by-h RGBA atlas with a deterministic gradient.
func makeAtlas(w, h int) *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 17), G: uint8(y * 31), B: 128, A: 255})
		}
	}
	tex, err := CreateTextureFromImage(img, "atlas.png", false)
	if err != nil {
		panic(err)
	}
	return tex
}

// makeTexturedCube is the cube with normals, texcoords, colors and an
// atlas attached.
func makeTexturedCube() *Mesh {
	m := makeCube()
	m.ReComputeNormal()
	for i := range m.Vertices {
		m.TexCoords = append(m.TexCoords, vec2.T{m.Vertices[i][0], m.Vertices[i][1]})
		m.Colors = append(m.Colors, [3]byte{byte(40 * i), byte(255 - 30*i), 200})
	}
	m.Texture = makeAtlas(8, 8)
	return m
}
