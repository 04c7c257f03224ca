// Package raster provides the pixel storage the evaluator reads images from
// and the render driver writes into. Images are decoded and encoded with the
// standard image codecs for PNG, JPEG and GIF.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Raster is a readable and writable grid of 8-bit pixels.
type Raster interface {
	At(x, y int) color.RGBA
	Set(x, y int, c color.RGBA)
	Size() (w, h int)
}

// Format identifies an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
)

// ErrUnknownFormat is returned for file extensions or format names without a codec.
var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat maps a format name ("png", "jpg", "jpeg", "gif") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	default:
		return "image/png"
	}
}

// LoadError reports an image that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load image %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Tag implements types.Tagged.
func (e *LoadError) Tag() string { return types.TagResourceLoadError }

// Image is a Raster backed by an *image.RGBA.
type Image struct {
	rgba *image.RGBA
}

// Blank returns a w by h image with every pixel opaque black.
func Blank(w, h int) *Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)
	return &Image{rgba: img}
}

// FromImage copies any image.Image into an Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return &Image{rgba: img}
}

// Load decodes the image file at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads an encoded image from r. name is only used in errors.
func Decode(r io.Reader, name string) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	return FromImage(src), nil
}

// At returns the pixel at (x, y). Coordinates outside the image are clamped
// to the nearest edge.
func (m *Image) At(x, y int) color.RGBA {
	w, h := m.Size()
	return m.rgba.RGBAAt(clampIndex(x, w), clampIndex(y, h))
}

// Set writes the pixel at (x, y). Out of range writes are ignored.
func (m *Image) Set(x, y int, c color.RGBA) {
	m.rgba.SetRGBA(x, y, c)
}

// Size returns the image dimensions.
func (m *Image) Size() (w, h int) {
	b := m.rgba.Bounds()
	return b.Dx(), b.Dy()
}

// RGBA exposes the underlying image for encoders that need an image.Image.
func (m *Image) RGBA() *image.RGBA {
	return m.rgba
}

// Encode writes the image to w in the given format.
func (m *Image) Encode(w io.Writer, format Format) error {
	return encode(w, m.rgba, format)
}

// Save writes the image to path, creating or truncating the file.
func (m *Image) Save(path string, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := m.Encode(f, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case FormatGIF:
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
