package scanmesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// SerializePLY encodes the mesh as Stanford PLY. The header always
// declares positions; normals, texcoords and colors are added per the
// option flags and data presence. Binary selects a little-endian body,
// otherwise ASCII. Faces are written as uchar-counted index lists.
func SerializePLY(m *Mesh, opts ExportOptions) ([]byte, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	opts.Validate()
	t := transformForExport(m, opts)

	withNormals := opts.IncludeNormals && t.HasNormals()
	withUVs := opts.IncludeTexCoords && t.HasTexCoords()
	withColors := t.HasColors()

	var buf bytes.Buffer
	buf.WriteString("ply\n")
	if opts.Binary {
		buf.WriteString("format binary_little_endian 1.0\n")
	} else {
		buf.WriteString("format ascii 1.0\n")
	}
	buf.WriteString("comment go-scanmesh PLY export\n")
	fmt.Fprintf(&buf, "element vertex %d\n", len(t.Vertices))
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	if withNormals {
		buf.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	}
	if withUVs {
		buf.WriteString("property float s\nproperty float t\n")
	}
	if withColors {
		buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	fmt.Fprintf(&buf, "element face %d\n", len(t.Faces))
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	if opts.Binary {
		for i := range t.Vertices {
			writeLittleByte(&buf, t.Vertices[i][:])
			if withNormals {
				writeLittleByte(&buf, t.Normals[i][:])
			}
			if withUVs {
				writeLittleByte(&buf, t.TexCoords[i][:])
			}
			if withColors {
				buf.Write(t.Colors[i][:])
			}
		}
		for _, f := range t.Faces {
			writeLittleByte(&buf, uint8(3))
			writeLittleByte(&buf, [3]int32{int32(f[0]), int32(f[1]), int32(f[2])})
		}
	} else {
		for i := range t.Vertices {
			v := t.Vertices[i]
			fmt.Fprintf(&buf, "%g %g %g", v[0], v[1], v[2])
			if withNormals {
				n := t.Normals[i]
				fmt.Fprintf(&buf, " %g %g %g", n[0], n[1], n[2])
			}
			if withUVs {
				uv := t.TexCoords[i]
				fmt.Fprintf(&buf, " %g %g", uv[0], uv[1])
			}
			if withColors {
				c := t.Colors[i]
				fmt.Fprintf(&buf, " %d %d %d", c[0], c[1], c[2])
			}
			buf.WriteByte('\n')
		}
		for _, f := range t.Faces {
			fmt.Fprintf(&buf, "3 %d %d %d\n", f[0], f[1], f[2])
		}
	}
	return buf.Bytes(), nil
}

type plyProp struct {
	name      string
	typ       string
	isList    bool
	countType string
	indexType string
}

type plyElement struct {
	name  string
	count int
	props []plyProp
}

func plyTypeSize(t string) int {
	switch t {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "int32", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

// ReadPLY parses an ASCII or binary little-endian PLY stream. Recognized
// vertex properties are x/y/z, nx/ny/nz, s/t (or u/v), and red/green/blue;
// everything else is skipped by size. Faces with more than three corners
// are fan-triangulated.
func ReadPLY(r io.Reader) (*Mesh, error) {
	rd := bufio.NewReader(r)

	magic, err := plyHeaderLine(rd)
	if err != nil || magic != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrInvalidData)
	}

	var binaryBody bool
	var elements []*plyElement
	var cur *plyElement
	for {
		line, err := plyHeaderLine(rd)
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated ply header", ErrInvalidData)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: bad format line", ErrInvalidData)
			}
			switch fields[1] {
			case "ascii":
				binaryBody = false
			case "binary_little_endian":
				binaryBody = true
			default:
				return nil, fmt.Errorf("%w: ply format %q", ErrUnsupportedFormat, fields[1])
			}
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: bad element line", ErrInvalidData)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: element count %q", ErrInvalidData, fields[2])
			}
			cur = &plyElement{name: fields[1], count: n}
			elements = append(elements, cur)
		case "property":
			if cur == nil || len(fields) < 3 {
				return nil, fmt.Errorf("%w: property outside element", ErrInvalidData)
			}
			if fields[1] == "list" {
				if len(fields) != 5 {
					return nil, fmt.Errorf("%w: bad list property", ErrInvalidData)
				}
				cur.props = append(cur.props, plyProp{
					name: fields[4], isList: true, countType: fields[2], indexType: fields[3],
				})
			} else {
				cur.props = append(cur.props, plyProp{name: fields[2], typ: fields[1]})
			}
		case "end_header":
			return readPLYBody(rd, elements, binaryBody)
		default:
			return nil, fmt.Errorf("%w: ply header keyword %q", ErrInvalidData, fields[0])
		}
	}
}

func plyHeaderLine(rd *bufio.Reader) (string, error) {
	line, err := rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPLYBody(rd *bufio.Reader, elements []*plyElement, binary bool) (*Mesh, error) {
	mesh := NewMesh()
	for _, el := range elements {
		switch el.name {
		case "vertex":
			if err := readPLYVertices(rd, el, binary, mesh); err != nil {
				return nil, err
			}
		case "face":
			if err := readPLYFaces(rd, el, binary, mesh); err != nil {
				return nil, err
			}
		default:
			if err := skipPLYElement(rd, el, binary); err != nil {
				return nil, err
			}
		}
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func readPLYVertices(rd *bufio.Reader, el *plyElement, binary bool, mesh *Mesh) error {
	type slot int
	const (
		sx slot = iota
		sy
		sz
		snx
		sny
		snz
		ss
		st
		sr
		sg
		sb
		sskip
	)
	slots := make([]slot, len(el.props))
	hasNormal := false
	hasUV := false
	hasColor := false
	for i, p := range el.props {
		if p.isList {
			return fmt.Errorf("%w: list property %q on vertex element", ErrInvalidData, p.name)
		}
		switch p.name {
		case "x":
			slots[i] = sx
		case "y":
			slots[i] = sy
		case "z":
			slots[i] = sz
		case "nx":
			slots[i] = snx
			hasNormal = true
		case "ny":
			slots[i] = sny
			hasNormal = true
		case "nz":
			slots[i] = snz
			hasNormal = true
		case "s", "u", "texture_u":
			slots[i] = ss
			hasUV = true
		case "t", "v", "texture_v":
			slots[i] = st
			hasUV = true
		case "red":
			slots[i] = sr
			hasColor = true
		case "green":
			slots[i] = sg
			hasColor = true
		case "blue":
			slots[i] = sb
			hasColor = true
		default:
			slots[i] = sskip
		}
	}

	for n := 0; n < el.count; n++ {
		vals := make([]float64, len(el.props))
		if binary {
			for i, p := range el.props {
				v, err := readPLYScalar(rd, p.typ)
				if err != nil {
					return err
				}
				vals[i] = v
			}
		} else {
			fields, err := plyBodyFields(rd, len(el.props))
			if err != nil {
				return err
			}
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return fmt.Errorf("%w: vertex value %q", ErrInvalidData, f)
				}
				vals[i] = v
			}
		}

		var pos vec3.T
		var nrm vec3.T
		var uv vec2.T
		var col [3]byte
		for i, s := range slots {
			switch s {
			case sx:
				pos[0] = float32(vals[i])
			case sy:
				pos[1] = float32(vals[i])
			case sz:
				pos[2] = float32(vals[i])
			case snx:
				nrm[0] = float32(vals[i])
			case sny:
				nrm[1] = float32(vals[i])
			case snz:
				nrm[2] = float32(vals[i])
			case ss:
				uv[0] = float32(vals[i])
			case st:
				uv[1] = float32(vals[i])
			case sr:
				col[0] = byte(vals[i])
			case sg:
				col[1] = byte(vals[i])
			case sb:
				col[2] = byte(vals[i])
			}
		}
		mesh.Vertices = append(mesh.Vertices, pos)
		if hasNormal {
			mesh.Normals = append(mesh.Normals, nrm)
		}
		if hasUV {
			mesh.TexCoords = append(mesh.TexCoords, uv)
		}
		if hasColor {
			mesh.Colors = append(mesh.Colors, col)
		}
	}
	return nil
}

func readPLYFaces(rd *bufio.Reader, el *plyElement, binary bool, mesh *Mesh) error {
	if len(el.props) != 1 || !el.props[0].isList {
		return fmt.Errorf("%w: face element needs a single list property", ErrInvalidData)
	}
	p := el.props[0]
	for n := 0; n < el.count; n++ {
		var idx []uint32
		if binary {
			cnt, err := readPLYScalar(rd, p.countType)
			if err != nil {
				return err
			}
			k := int(cnt)
			if k < 0 || k > 255 {
				return fmt.Errorf("%w: face corner count %d", ErrInvalidData, k)
			}
			idx = make([]uint32, k)
			for i := 0; i < k; i++ {
				v, err := readPLYScalar(rd, p.indexType)
				if err != nil {
					return err
				}
				if v < 0 {
					return fmt.Errorf("%w: face index %g", ErrInvalidData, v)
				}
				idx[i] = uint32(v)
			}
		} else {
			fields, err := plyBodyFields(rd, -1)
			if err != nil {
				return err
			}
			k, err := strconv.Atoi(fields[0])
			if err != nil || len(fields) != k+1 {
				return fmt.Errorf("%w: face record %v", ErrInvalidData, fields)
			}
			idx = make([]uint32, k)
			for i := 0; i < k; i++ {
				v, err := strconv.Atoi(fields[i+1])
				if err != nil || v < 0 {
					return fmt.Errorf("%w: face index %q", ErrInvalidData, fields[i+1])
				}
				idx[i] = uint32(v)
			}
		}
		if len(idx) < 3 {
			return fmt.Errorf("%w: face with %d corners", ErrInvalidData, len(idx))
		}
		for i := 1; i+1 < len(idx); i++ {
			mesh.Faces = append(mesh.Faces, [3]uint32{idx[0], idx[i], idx[i+1]})
		}
	}
	return nil
}

func skipPLYElement(rd *bufio.Reader, el *plyElement, binary bool) error {
	if !binary {
		for n := 0; n < el.count; n++ {
			if _, err := plyBodyFields(rd, -1); err != nil {
				return err
			}
		}
		return nil
	}
	for n := 0; n < el.count; n++ {
		for _, p := range el.props {
			if p.isList {
				cnt, err := readPLYScalar(rd, p.countType)
				if err != nil {
					return err
				}
				sz := plyTypeSize(p.indexType)
				if sz == 0 {
					return fmt.Errorf("%w: ply type %q", ErrInvalidData, p.indexType)
				}
				if _, err := rd.Discard(int(cnt) * sz); err != nil {
					return fmt.Errorf("%w: %v", ErrLoadFailed, err)
				}
				continue
			}
			sz := plyTypeSize(p.typ)
			if sz == 0 {
				return fmt.Errorf("%w: ply type %q", ErrInvalidData, p.typ)
			}
			if _, err := rd.Discard(sz); err != nil {
				return fmt.Errorf("%w: %v", ErrLoadFailed, err)
			}
		}
	}
	return nil
}

// plyBodyFields reads one ASCII body record. want < 0 accepts any field
// count.
func plyBodyFields(rd *bufio.Reader, want int) ([]string, error) {
	for {
		line, err := rd.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("%w: ply body truncated", ErrInvalidData)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if err != nil {
				return nil, fmt.Errorf("%w: ply body truncated", ErrInvalidData)
			}
			continue
		}
		if want >= 0 && len(fields) != want {
			return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidData, want, len(fields))
		}
		return fields, nil
	}
}

func readPLYScalar(rd *bufio.Reader, typ string) (float64, error) {
	sz := plyTypeSize(typ)
	if sz == 0 {
		return 0, fmt.Errorf("%w: ply type %q", ErrInvalidData, typ)
	}
	b := make([]byte, sz)
	if _, err := io.ReadFull(rd, b); err != nil {
		return 0, fmt.Errorf("%w: ply body truncated", ErrInvalidData)
	}
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		var v int16
		readLittleByte(bytes.NewReader(b), &v)
		return float64(v), nil
	case "ushort", "uint16":
		var v uint16
		readLittleByte(bytes.NewReader(b), &v)
		return float64(v), nil
	case "int", "int32":
		var v int32
		readLittleByte(bytes.NewReader(b), &v)
		return float64(v), nil
	case "uint", "uint32":
		var v uint32
		readLittleByte(bytes.NewReader(b), &v)
		return float64(v), nil
	case "float", "float32":
		var v float32
		readLittleByte(bytes.NewReader(b), &v)
		return float64(v), nil
	case "double", "float64":
		var v float64
		readLittleByte(bytes.NewReader(b), &v)
		return v, nil
	}
	return 0, fmt.Errorf("%w: ply type %q", ErrInvalidData, typ)
}
