package scanmesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec3"
)

const stlSolidName = "scanmesh"

// SerializeSTL encodes the mesh as STL. STL stores bare triangles with a
// computed facet normal; vertex attributes and textures never survive, so
// the include flags are ignored for this format. Binary selects the
// 80-byte-header record layout, otherwise the ASCII grammar is emitted.
func SerializeSTL(m *Mesh, opts ExportOptions) ([]byte, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	opts.Validate()
	t := transformForExport(m, opts)
	var buf bytes.Buffer
	if opts.Binary {
		writeBinarySTL(&buf, t)
	} else {
		writeTextSTL(&buf, t)
	}
	return buf.Bytes(), nil
}

func writeBinarySTL(wt io.Writer, m *Mesh) {
	var header [80]byte
	copy(header[:], "go-scanmesh binary STL")
	wt.Write(header[:])
	writeLittleByte(wt, uint32(len(m.Faces)))
	for i, f := range m.Faces {
		var rec [50]byte
		putVec3(rec[:12], m.FaceNormal(i))
		putVec3(rec[12:24], m.Vertices[f[0]])
		putVec3(rec[24:36], m.Vertices[f[1]])
		putVec3(rec[36:48], m.Vertices[f[2]])
		binary.LittleEndian.PutUint16(rec[48:], 0)
		wt.Write(rec[:])
	}
}

func writeTextSTL(wt io.Writer, m *Mesh) {
	fmt.Fprintf(wt, "solid %s\n", stlSolidName)
	for i, f := range m.Faces {
		n := m.FaceNormal(i)
		fmt.Fprintf(wt, "  facet normal %e %e %e\n", n[0], n[1], n[2])
		fmt.Fprintf(wt, "    outer loop\n")
		for _, v := range f {
			p := m.Vertices[v]
			fmt.Fprintf(wt, "      vertex %e %e %e\n", p[0], p[1], p[2])
		}
		fmt.Fprintf(wt, "    endloop\n")
		fmt.Fprintf(wt, "  endfacet\n")
	}
	fmt.Fprintf(wt, "endsolid %s\n", stlSolidName)
}

func putVec3(b []byte, v vec3.T) {
	binary.LittleEndian.PutUint32(b[:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v[2]))
}

func getVec3(b []byte) vec3.T {
	return vec3.T{
		math.Float32frombits(binary.LittleEndian.Uint32(b[:4])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}

// ReadSTL parses either STL encoding. STL repeats every corner per
// triangle, so identical positions are welded back into shared vertices
// while reading. Stored facet normals are discarded; they are cheaper to
// recompute than to trust.
func ReadSTL(rd io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if isBinarySTL(data) {
		return readBinarySTL(data)
	}
	return readTextSTL(data)
}

// isBinarySTL sniffs the encoding. The declared record count is the
// reliable signal; a "solid" prefix alone is not, binary headers may
// start with it too.
func isBinarySTL(data []byte) bool {
	if len(data) < 84 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[80:84])
	if int64(len(data)) == 84+int64(n)*50 {
		return true
	}
	return !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid"))
}

type stlBuilder struct {
	mesh  *Mesh
	index map[vec3.T]uint32
}

func newSTLBuilder() *stlBuilder {
	return &stlBuilder{mesh: NewMesh(), index: make(map[vec3.T]uint32)}
}

func (b *stlBuilder) vertex(v vec3.T) uint32 {
	if i, ok := b.index[v]; ok {
		return i
	}
	i := uint32(len(b.mesh.Vertices))
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	b.index[v] = i
	return i
}

func (b *stlBuilder) addTriangle(v0, v1, v2 vec3.T) {
	i0 := b.vertex(v0)
	i1 := b.vertex(v1)
	i2 := b.vertex(v2)
	if i0 == i1 || i1 == i2 || i2 == i0 {
		return
	}
	b.mesh.Faces = append(b.mesh.Faces, [3]uint32{i0, i1, i2})
}

func readBinarySTL(data []byte) (*Mesh, error) {
	if len(data) < 84 {
		return nil, fmt.Errorf("%w: binary STL shorter than header", ErrInvalidData)
	}
	n := int(binary.LittleEndian.Uint32(data[80:84]))
	if len(data) < 84+n*50 {
		return nil, fmt.Errorf("%w: binary STL truncated, %d triangles declared", ErrInvalidData, n)
	}
	b := newSTLBuilder()
	for i := 0; i < n; i++ {
		rec := data[84+i*50:]
		b.addTriangle(getVec3(rec[12:24]), getVec3(rec[24:36]), getVec3(rec[36:48]))
	}
	return b.mesh, nil
}

func readTextSTL(data []byte) (*Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	b := newSTLBuilder()
	var verts []vec3.T
	inFacet := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "solid"), strings.HasPrefix(line, "endsolid"):
		case strings.HasPrefix(line, "facet"):
			verts = verts[:0]
			inFacet = true
		case line == "outer loop", line == "endloop":
		case strings.HasPrefix(line, "vertex"):
			if !inFacet {
				return nil, fmt.Errorf("%w: vertex outside facet", ErrInvalidData)
			}
			v, err := parseVec3(strings.TrimPrefix(line, "vertex"))
			if err != nil {
				return nil, err
			}
			verts = append(verts, v)
		case line == "endfacet":
			if len(verts) != 3 {
				return nil, fmt.Errorf("%w: facet with %d vertices", ErrInvalidData, len(verts))
			}
			b.addTriangle(verts[0], verts[1], verts[2])
			inFacet = false
		default:
			return nil, fmt.Errorf("%w: unexpected STL line %q", ErrInvalidData, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return b.mesh, nil
}

func parseVec3(s string) (vec3.T, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return vec3.T{}, fmt.Errorf("%w: vector %q", ErrInvalidData, s)
	}
	var v vec3.T
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return vec3.T{}, fmt.Errorf("%w: vector %q", ErrInvalidData, s)
		}
		v[i] = float32(x)
	}
	return v, nil
}
