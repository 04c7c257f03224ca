package raster

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
)

// EncodeGIF writes frames as a looping animated GIF. delay is in hundredths
// of a second per frame.
func EncodeGIF(w io.Writer, frames []*Image, delay int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	anim := &gif.GIF{}
	for _, f := range frames {
		b := f.rgba.Bounds()
		p := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(p, b, f.rgba, image.Point{})
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, anim)
}

// SaveGIF writes frames to path as an animated GIF.
func SaveGIF(path string, frames []*Image, delay int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeGIF(f, frames, delay); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
