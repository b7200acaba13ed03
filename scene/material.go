package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	blezektga "github.com/blezek/tga"
	"github.com/ftrvxmtrx/tga"
	"github.com/oov/psd"
	"golang.org/x/image/bmp"

	"github.com/binzume/umeshconv/geom"
)

type Material struct {
	Name     string
	Colors   map[string]geom.Vector4
	Textures map[string]*Texture
}

func NewMaterial(name string) *Material {
	return &Material{Name: name, Colors: map[string]geom.Vector4{}, Textures: map[string]*Texture{}}
}

// Texture is a lazily opened image. Readable and Compressed mirror the
// importer settings of the source asset.
type Texture struct {
	Name       string
	Source     string // file name, used to pick a decoder
	Readable   bool
	Compressed bool

	Open  func() (io.ReadCloser, error)
	Image image.Image
}

type imageDecoder func(io.Reader) (image.Image, error)

// The tga package registers itself with an empty magic, which would match any
// input in image.Decode, so decoders are picked here instead.
var decodersByExt = map[string]imageDecoder{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".psd":  decodePSD,
	".tga":  decodeTGA,
}

var decodersByMagic = []struct {
	magic  string
	decode imageDecoder
}{
	{"\x89PNG\r\n\x1a\n", png.Decode},
	{"\xff\xd8", jpeg.Decode},
	{"BM", bmp.Decode},
	{"8BPS", decodePSD},
}

func decodePSD(r io.Reader) (image.Image, error) {
	p, _, err := psd.Decode(r, &psd.DecodeOptions{SkipLayerImage: true})
	if err != nil {
		return nil, err
	}
	return p.Picker, nil
}

func decodeTGA(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := tga.Decode(bytes.NewReader(data))
	if err != nil {
		// retry
		img, err = blezektga.Decode(bytes.NewReader(data))
	}
	return img, err
}

// DecodeImage decodes data by the extension of name, or by its magic number
// when the extension is unknown.
func DecodeImage(data []byte, name string) (image.Image, error) {
	if dec, ok := decodersByExt[strings.ToLower(path.Ext(name))]; ok {
		return dec(bytes.NewReader(data))
	}
	for _, d := range decodersByMagic {
		if bytes.HasPrefix(data, []byte(d.magic)) {
			return d.decode(bytes.NewReader(data))
		}
	}
	return nil, image.ErrFormat
}

// Decode returns Image, or decodes the source with DecodeImage.
func (t *Texture) Decode() (image.Image, error) {
	if t.Image != nil {
		return t.Image, nil
	}
	if t.Open == nil {
		return nil, fmt.Errorf("texture %s: no image source", t.Name)
	}
	r, err := t.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data, t.Source)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", t.Name, err)
	}
	t.Image = img
	return img, nil
}
