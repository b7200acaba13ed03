package converter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/binzume/umeshconv/scene"
	"github.com/binzume/umeshconv/umesh"
	"golang.org/x/image/draw"
)

var ErrTextureNotReadable = errors.New("converter: texture is not readable")

type textureJob struct {
	file    string
	texture *scene.Texture
}

// textureSet collects the side files of one export. A file name is written once.
type textureSet struct {
	jobs  []*textureJob
	files map[string]bool
}

func newTextureSet() *textureSet {
	return &textureSet{files: map[string]bool{}}
}

// add registers tex for property and returns the side file name.
func (s *textureSet) add(opts *ExportOptions, tex *scene.Texture, property string) (string, error) {
	if (!tex.Readable || tex.Compressed) && !opts.AllowUnreadableTextures {
		return "", fmt.Errorf("%w: %s (readable: %v, compressed: %v)", ErrTextureNotReadable, tex.Name, tex.Readable, tex.Compressed)
	}
	name, err := opts.asciiName("texture", tex.Name)
	if err != nil {
		return "", err
	}
	file := umesh.TextureFileName(name, property)
	if !s.files[file] {
		s.files[file] = true
		s.jobs = append(s.jobs, &textureJob{file: file, texture: tex})
	}
	return file, nil
}

// write saves missing side files to dir. Existing files are kept as is.
func (s *textureSet) write(ctx context.Context, dir string, maxSize int, progress ProgressSink) error {
	for i, job := range s.jobs {
		progress.Progress("texture "+job.file, i+1, len(s.jobs))
		path := filepath.Join(dir, job.file)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		img, err := job.texture.Decode()
		if err != nil {
			return err
		}
		img = scaleTexture(img, maxSize)
		err = writeFileAtomic(ctx, path, func(w io.Writer) error {
			return png.Encode(w, img)
		})
		if err != nil {
			return fmt.Errorf("converter: %s: %w", job.file, err)
		}
	}
	return nil
}

// scaleTexture shrinks img so that neither side exceeds limit.
func scaleTexture(img image.Image, limit int) image.Image {
	rect := img.Bounds()
	sz := rect.Dx()
	if rect.Dy() > sz {
		sz = rect.Dy()
	}
	if limit <= 0 || sz <= limit {
		return img
	}
	scale := float64(limit) / float64(sz)
	w, h := int(float64(rect.Dx())*scale), int(float64(rect.Dy())*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Src, nil)
	return dst
}
