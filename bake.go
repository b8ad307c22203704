package scanmesh

import "fmt"

// BakeTexture finalizes the color atlas for export: texcoords of a
// non-repeating atlas are clamped into [0,1] and the pixel data is
// normalized to the RGBA layout the serializers expect. Meshes without an
// atlas pass through. A defective atlas is dropped with a warning rather
// than failing the pipeline.
func BakeTexture(m *Mesh) (*Mesh, []string, error) {
	if m.IsEmpty() {
		return nil, nil, ErrEmptyMesh
	}
	out := m.Clone()
	if out.Texture == nil || !out.HasTexCoords() {
		return out, nil, nil
	}

	if !out.Texture.Repeated {
		for i := range out.TexCoords {
			out.TexCoords[i][0] = clamp01(out.TexCoords[i][0])
			out.TexCoords[i][1] = clamp01(out.TexCoords[i][1])
		}
	}

	if out.Texture.Format != TEXTURE_FORMAT_RGBA {
		img, err := LoadTexture(out.Texture, false)
		if err != nil {
			out.Texture = nil
			return out, []string{fmt.Sprintf("texture atlas unreadable, dropped: %v", err)}, nil
		}
		tex, err := CreateTextureFromImage(img, out.Texture.Name, out.Texture.Repeated)
		if err != nil {
			out.Texture = nil
			return out, []string{fmt.Sprintf("texture atlas unreadable, dropped: %v", err)}, nil
		}
		tex.Id = out.Texture.Id
		out.Texture = tex
	}
	return out, nil, nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
