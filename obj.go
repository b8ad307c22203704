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

const objMaterialName = "material_0"

// SerializeOBJ encodes the mesh as Wavefront OBJ. OBJ is always text, so
// the Binary option is a documented no-op here. With IncludeTexture and an
// atlas present the output grows an MTL sidecar plus a JPEG of the atlas
// resampled to TextureResolution; face records reference texcoords and
// normals only when the matching include flag is set and the data exists.
func SerializeOBJ(m *Mesh, baseName string, opts ExportOptions) ([]ExportFile, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	opts.Validate()
	t := transformForExport(m, opts)

	withNormals := opts.IncludeNormals && t.HasNormals()
	withUVs := opts.IncludeTexCoords && t.HasTexCoords()
	withTexture := opts.IncludeTexture && t.Texture != nil

	vertTmp := "v %f %f %f \n"
	nvTmp := "vn %f %f %f \n"
	uvTmp := "vt %f %f \n"
	faceTemp1 := "f %d %d %d \n"
	faceTemp12 := "f %d//%d %d//%d %d//%d \n"
	faceTemp21 := "f %d/%d %d/%d %d/%d \n"
	faceTemp3 := "f %d/%d/%d %d/%d/%d %d/%d/%d \n"

	mtlName := baseName + ".mtl"
	texName := baseName + "_tex.jpg"

	var buf bytes.Buffer
	buf.WriteString("# go-scanmesh OBJ export\n")
	if withTexture {
		buf.WriteString(fmt.Sprintf("mtllib %s \n", mtlName))
	}
	for _, v := range t.Vertices {
		buf.WriteString(fmt.Sprintf(vertTmp, v[0], v[1], v[2]))
	}
	if withNormals {
		for _, v := range t.Normals {
			buf.WriteString(fmt.Sprintf(nvTmp, v[0], v[1], v[2]))
		}
	}
	if withUVs {
		for _, v := range t.TexCoords {
			buf.WriteString(fmt.Sprintf(uvTmp, v[0], v[1]))
		}
	}
	if withTexture {
		buf.WriteString(fmt.Sprintf("usemtl %s \n", objMaterialName))
	}
	for _, f := range t.Faces {
		a, b, c := f[0]+1, f[1]+1, f[2]+1
		switch {
		case withUVs && withNormals:
			buf.WriteString(fmt.Sprintf(faceTemp3, a, a, a, b, b, b, c, c, c))
		case withNormals:
			buf.WriteString(fmt.Sprintf(faceTemp12, a, a, b, b, c, c))
		case withUVs:
			buf.WriteString(fmt.Sprintf(faceTemp21, a, a, b, b, c, c))
		default:
			buf.WriteString(fmt.Sprintf(faceTemp1, a, b, c))
		}
	}

	files := []ExportFile{{Name: baseName + ".obj", Data: buf.Bytes()}}
	if !withTexture {
		return files, nil
	}

	var mtl bytes.Buffer
	mtl.WriteString(fmt.Sprintf("newmtl %s \n", objMaterialName))
	mtl.WriteString("Ka 0.200000 0.200000 0.200000\n")
	mtl.WriteString("Kd 1.000000 1.000000 1.000000\n")
	mtl.WriteString(fmt.Sprintf("map_Kd %s \n", texName))
	files = append(files, ExportFile{Name: mtlName, Data: mtl.Bytes()})

	tex, err := t.Texture.Resample(opts.TextureResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: texture sidecar: %v", ErrSerialization, err)
	}
	var img bytes.Buffer
	if err := tex.EncodeJPEG(&img, 95); err != nil {
		return nil, fmt.Errorf("%w: texture sidecar: %v", ErrSerialization, err)
	}
	files = append(files, ExportFile{Name: texName, Data: img.Bytes()})
	return files, nil
}

// objCorner is one face-vertex reference. OBJ keeps positions, texcoords
// and normals in separate index spaces; corners sharing all three collapse
// into one mesh vertex.
type objCorner struct {
	v, vt, vn int
}

// ReadOBJ parses an OBJ stream. Polygons are fan-triangulated, negative
// indices resolve relative to the current attribute counts, and statements
// other than v/vn/vt/f are ignored.
func ReadOBJ(rd io.Reader) (*Mesh, error) {
	var positions []vec3.T
	var normals []vec3.T
	var uvs []vec2.T

	mesh := NewMesh()
	corners := make(map[objCorner]uint32)
	usedNormals := false
	usedUVs := false

	resolve := func(c objCorner) (uint32, error) {
		if c.v < 0 || c.v >= len(positions) {
			return 0, fmt.Errorf("%w: face references vertex %d of %d", ErrInvalidData, c.v+1, len(positions))
		}
		if c.vt >= len(uvs) || c.vn >= len(normals) {
			return 0, fmt.Errorf("%w: face references missing attribute", ErrInvalidData)
		}
		if i, ok := corners[c]; ok {
			return i, nil
		}
		i := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, positions[c.v])
		if c.vn >= 0 {
			usedNormals = true
		}
		if c.vt >= 0 {
			usedUVs = true
		}
		var n vec3.T
		if c.vn >= 0 {
			n = normals[c.vn]
		}
		var t vec2.T
		if c.vt >= 0 {
			t = uvs[c.vt]
		}
		mesh.Normals = append(mesh.Normals, n)
		mesh.TexCoords = append(mesh.TexCoords, t)
		corners[c] = i
		return i, nil
	}

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d", err, lineNo)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d", err, lineNo)
			}
			normals = append(normals, v)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: short vt", ErrInvalidData, lineNo)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: line %d: bad vt", ErrInvalidData, lineNo)
			}
			uvs = append(uvs, vec2.T{float32(u), float32(v)})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face with %d corners", ErrInvalidData, lineNo, len(fields)-1)
			}
			idx := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseObjCorner(ref, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d", err, lineNo)
				}
				i, err := resolve(c)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d", err, lineNo)
				}
				idx = append(idx, i)
			}
			for i := 1; i+1 < len(idx); i++ {
				mesh.Faces = append(mesh.Faces, [3]uint32{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	if !usedNormals {
		mesh.Normals = nil
	}
	if !usedUVs {
		mesh.TexCoords = nil
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

// parseObjCorner decodes "v", "v/vt", "v//vn" or "v/vt/vn". Indices come
// back zero-based, -1 marking an absent attribute.
func parseObjCorner(ref string, nv, nvt, nvn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	parts := strings.Split(ref, "/")
	if len(parts) == 0 || len(parts) > 3 {
		return c, fmt.Errorf("%w: face corner %q", ErrInvalidData, ref)
	}
	conv := func(s string, n int) (int, error) {
		i, err := strconv.Atoi(s)
		if err != nil || i == 0 {
			return -1, fmt.Errorf("%w: face index %q", ErrInvalidData, s)
		}
		if i < 0 {
			return n + i, nil
		}
		return i - 1, nil
	}
	var err error
	if c.v, err = conv(parts[0], nv); err != nil {
		return c, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = conv(parts[1], nvt); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = conv(parts[2], nvn); err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseFloats3(fields []string) (vec3.T, error) {
	if len(fields) < 3 {
		return vec3.T{}, fmt.Errorf("%w: expected 3 components", ErrInvalidData)
	}
	var v vec3.T
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return vec3.T{}, fmt.Errorf("%w: bad float %q", ErrInvalidData, fields[i])
		}
		v[i] = float32(f)
	}
	return v, nil
}
