// Package imagemeta reads pixel dimensions of image files.
package imagemeta

import (
	"fmt"
	"image"

	// decoders registered with image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spf13/afero"

	"github.com/tphakala/via2coco/internal/errors"
)

const componentImageMeta = "imagemeta"

// Size is an image's width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Provider returns the pixel dimensions of the image at path.
type Provider interface {
	Dimensions(path string) (Size, error)
}

// FileProvider reads dimensions from image headers on a filesystem.
type FileProvider struct {
	fs afero.Fs
}

// NewFileProvider returns a provider reading from fsys.
func NewFileProvider(fsys afero.Fs) *FileProvider {
	return &FileProvider{fs: fsys}
}

// Dimensions decodes only the image header. The file is closed before
// returning.
func (p *FileProvider) Dimensions(path string) (Size, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return Size{}, errors.New(fmt.Errorf("open image: %w", err)).
			Component(componentImageMeta).
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, errors.New(fmt.Errorf("decode image header of %s: %w", path, err)).
			Component(componentImageMeta).
			Category(errors.CategoryImageDecode).
			FileContext(path).
			Build()
	}

	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}
