package scanmesh

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	xdraw "golang.org/x/image/draw"
)

const (
	TEXTURE_FORMAT_R    = 0
	TEXTURE_FORMAT_RGB  = 4
	TEXTURE_FORMAT_RGBA = 6
)

const (
	TEXTURE_COMPRESSED_ZLIB = 1
)

// Texture is the scan's color atlas, referenced by the mesh texcoords.
// Pixel rows are stored top to bottom; Data may be zlib compressed.
type Texture struct {
	Id         int32     `json:"id"`
	Name       string    `json:"name"`
	Size       [2]uint64 `json:"size"`
	Format     uint16    `json:"format"`
	Compressed uint16    `json:"compressed"`
	Data       []byte    `json:"-"`
	Repeated   bool      `json:"repeated"`
}

func (t *Texture) Clone() *Texture {
	out := *t
	out.Data = make([]byte, len(t.Data))
	copy(out.Data, t.Data)
	return &out
}

func CompressImage(buf []byte) []byte {
	var bt []byte
	bf := bytes.NewBuffer(bt)
	w := zlib.NewWriter(bf)
	w.Write(buf)
	w.Close()
	return bf.Bytes()
}

func DecompressImage(src []byte) ([]byte, error) {
	bf := bytes.NewBuffer(src)
	r, er := zlib.NewReader(bf)
	if er != nil {
		return nil, er
	}
	return io.ReadAll(r)
}

// LoadTexture expands the atlas into an NRGBA image. flipY mirrors rows
// for consumers that index texture space bottom-up.
func LoadTexture(tex *Texture, flipY bool) (image.Image, error) {
	w := int(tex.Size[0])
	h := int(tex.Size[1])
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	data := tex.Data
	var sz int
	switch tex.Format {
	case TEXTURE_FORMAT_RGB:
		sz = 3
	case TEXTURE_FORMAT_RGBA:
		sz = 4
	case TEXTURE_FORMAT_R:
		sz = 1
	default:
		return nil, fmt.Errorf("%w: texture format %d", ErrInvalidData, tex.Format)
	}
	var e error
	if tex.Compressed == TEXTURE_COMPRESSED_ZLIB {
		data, e = DecompressImage(data)
		if e != nil && e.Error() != "EOF" {
			return nil, e
		}
	}
	if len(data) < w*h*sz {
		return nil, fmt.Errorf("%w: texture data truncated", ErrInvalidData)
	}

	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			p := i*w*sz + j*sz
			var c color.NRGBA
			switch sz {
			case 4:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: data[p+3]}
			case 3:
				c = color.NRGBA{R: data[p], G: data[p+1], B: data[p+2], A: 255}
			case 1:
				c = color.NRGBA{R: data[p], G: data[p], B: data[p], A: 255}
			}

			y := i
			if flipY {
				y = h - i - 1
			}
			img.Set(j, y, c)
		}
	}
	return img, nil
}

// CreateTexture builds an atlas from an image file. jpeg, png, gif, bmp
// and tiff are accepted.
func CreateTexture(name string, repet bool) (*Texture, error) {
	reader, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	defer reader.Close()
	tex, err := DecodeTexture(reader, name, repet)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

// DecodeTexture builds an atlas from encoded image bytes.
func DecodeTexture(reader io.ReadSeeker, name string, repet bool) (*Texture, error) {
	_, format, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	reader.Seek(0, io.SeekStart)
	var img image.Image
	switch format {
	case "jpeg", "jpg":
		img, err = jpeg.Decode(reader)
	case "png":
		img, err = png.Decode(reader)
	case "gif":
		img, err = gif.Decode(reader)
	case "bmp":
		img, err = bmp.Decode(reader)
	case "tif", "tiff":
		img, err = tiff.Decode(reader)
	default:
		return nil, fmt.Errorf("%w: image format %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return CreateTextureFromImage(img, name, repet)
}

// CreateTextureFromImage normalizes any image into an RGBA zlib atlas.
func CreateTextureFromImage(img image.Image, name string, repet bool) (*Texture, error) {
	bd := img.Bounds()
	buf1 := make([]byte, 0, bd.Dx()*bd.Dy()*4)

	for y := 0; y < bd.Dy(); y++ {
		for x := 0; x < bd.Dx(); x++ {
			cl := img.At(bd.Min.X+x, bd.Min.Y+y)
			r, g, b, a := color.RGBAModel.Convert(cl).RGBA()
			buf1 = append(buf1, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	t := &Texture{}
	_, fn := filepath.Split(name)
	t.Name = fn
	t.Format = TEXTURE_FORMAT_RGBA
	t.Size = [2]uint64{uint64(bd.Dx()), uint64(bd.Dy())}
	t.Compressed = TEXTURE_COMPRESSED_ZLIB
	t.Data = CompressImage(buf1)
	t.Repeated = repet
	return t, nil
}

// Resample scales the atlas so its longest side equals maxDim. Atlases
// already at or below maxDim come back as plain clones.
func (t *Texture) Resample(maxDim int) (*Texture, error) {
	if maxDim <= 0 {
		return nil, fmt.Errorf("%w: resample target %d", ErrInvalidData, maxDim)
	}
	w := int(t.Size[0])
	h := int(t.Size[1])
	if w <= maxDim && h <= maxDim {
		return t.Clone(), nil
	}
	src, err := LoadTexture(t, false)
	if err != nil {
		return nil, err
	}
	dw, dh := maxDim, maxDim
	if w >= h {
		dh = h * maxDim / w
	} else {
		dw = w * maxDim / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	out, err := CreateTextureFromImage(dst, t.Name, t.Repeated)
	if err != nil {
		return nil, err
	}
	out.Id = t.Id
	return out, nil
}

// EncodeJPEG writes the atlas as a JPEG sidecar image.
func (t *Texture) EncodeJPEG(wt io.Writer, quality int) error {
	img, err := LoadTexture(t, false)
	if err != nil {
		return err
	}
	return jpeg.Encode(wt, img, &jpeg.Options{Quality: quality})
}

// EncodePNG writes the atlas as a PNG sidecar image.
func (t *Texture) EncodePNG(wt io.Writer) error {
	img, err := LoadTexture(t, false)
	if err != nil {
		return err
	}
	return png.Encode(wt, img)
}
