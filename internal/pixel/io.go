package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
)

// I/O errors.
var (
	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("pixel: empty data")

	// ErrInvalidSize is returned for non-positive dimensions or a pixel
	// count that does not match them.
	ErrInvalidSize = errors.New("pixel: invalid image size")
)

// Image is a row-major grid of packed ARGB pixels.
type Image struct {
	Width, Height int
	Pix           []ARGB
}

// NewImage wraps pix as a width x height image.
func NewImage(width, height int, pix []ARGB) (*Image, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d pixels", ErrInvalidSize, width, height, len(pix))
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// Load reads an image file. PNG, JPEG, BMP and TIFF are supported.
func Load(path string) (*Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("pixel: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadFromBytes decodes an image from a byte slice.
func LoadFromBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from r, auto-detecting the format.
func Decode(r io.Reader) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("pixel: decode: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to packed ARGB.
func FromImage(img image.Image) *Image {
	nrgba := toNRGBA(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	out := &Image{Width: w, Height: h, Pix: make([]ARGB, w*h)}
	for y := range h {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := range w {
			px := row[x*4 : x*4+4]
			out.Pix[y*w+x] = NewARGB(px[3], px[0], px[1], px[2])
		}
	}
	return out
}

// toNRGBA returns img as an NRGBA image with origin (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Scale resizes the image with nearest-neighbor sampling, which keeps
// every output pixel equal to some input pixel.
func (m *Image) Scale(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if width == m.Width && height == m.Height {
		return m, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m.NRGBA(), image.Rect(0, 0, m.Width, m.Height), draw.Src, nil)
	return FromImage(dst), nil
}

// NRGBA converts the image to a standard library image.
func (m *Image) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range m.Pix {
		dst.Pix[i*4+0] = p.R()
		dst.Pix[i*4+1] = p.G()
		dst.Pix[i*4+2] = p.B()
		dst.Pix[i*4+3] = p.A()
	}
	return dst
}

// EncodePNG encodes the image as PNG to w.
func (m *Image) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, m.NRGBA()); err != nil {
		return fmt.Errorf("pixel: encode PNG: %w", err)
	}
	return nil
}

// SavePNG saves the image as a PNG file.
func (m *Image) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("pixel: create file: %w", err)
	}
	if err := m.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
