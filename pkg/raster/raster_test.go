package raster

import (
	"bytes"
	"errors"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

func TestBlankIsOpaqueBlack(t *testing.T) {
	img := Blank(3, 2)
	w, h := img.Size()
	if w != 3 || h != 2 {
		t.Fatalf("Size() = %d,%d, want 3,2", w, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := img.At(x, y); got != (color.RGBA{A: 0xff}) {
				t.Errorf("At(%d,%d) = %v, want opaque black", x, y, got)
			}
		}
	}
}

func TestBlankMinimumSize(t *testing.T) {
	w, h := Blank(0, -4).Size()
	if w != 1 || h != 1 {
		t.Errorf("Blank(0,-4).Size() = %d,%d, want 1,1", w, h)
	}
}

func TestAtClampsToEdges(t *testing.T) {
	img := Blank(2, 2)
	red := color.RGBA{R: 0xff, A: 0xff}
	img.Set(1, 1, red)
	if got := img.At(5, 9); got != red {
		t.Errorf("At(5,9) = %v, want bottom-right pixel %v", got, red)
	}
	if got := img.At(-3, -3); got != (color.RGBA{A: 0xff}) {
		t.Errorf("At(-3,-3) = %v, want top-left pixel", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := Blank(4, 3)
	img.Set(2, 1, color.RGBA{R: 10, G: 200, B: 30, A: 0xff})

	path := filepath.Join(dir, "out.png")
	if err := img.Save(path, FormatPNG); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w, h := got.Size(); w != 4 || h != 3 {
		t.Fatalf("loaded size = %d,%d, want 4,3", w, h)
	}
	if c := got.At(2, 1); c != (color.RGBA{R: 10, G: 200, B: 30, A: 0xff}) {
		t.Errorf("loaded pixel = %v", c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
	if le.Tag() != types.TagResourceLoadError {
		t.Errorf("Tag() = %q", le.Tag())
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")), "garbage")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if le.Path != "garbage" {
		t.Errorf("Path = %q", le.Path)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.png", FormatPNG, false},
		{"dir/b.JPG", FormatJPEG, false},
		{"c.jpeg", FormatJPEG, false},
		{"d.gif", FormatGIF, false},
		{"e.bmp", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeEachFormat(t *testing.T) {
	img := Blank(2, 2)
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatGIF} {
		var buf bytes.Buffer
		if err := img.Encode(&buf, f); err != nil {
			t.Errorf("Encode(%s): %v", f, err)
			continue
		}
		if _, err := Decode(&buf, string(f)); err != nil {
			t.Errorf("Decode(%s): %v", f, err)
		}
	}
	if err := img.Encode(&bytes.Buffer{}, Format("tiff")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestEncodeGIFFrames(t *testing.T) {
	frames := []*Image{Blank(2, 2), Blank(2, 2), Blank(2, 2)}
	var buf bytes.Buffer
	if err := EncodeGIF(&buf, frames, 5); err != nil {
		t.Fatalf("EncodeGIF: %v", err)
	}
	g, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(g.Image) != 3 {
		t.Errorf("frames = %d, want 3", len(g.Image))
	}
	if err := EncodeGIF(&buf, nil, 5); err == nil {
		t.Error("expected error for empty frame list")
	}
}
