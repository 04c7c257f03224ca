// Package types defines the value types shared by the picasso packages: the
// three-channel color every expression evaluates to, and the tagged error
// envelope used by the API surfaces.
package types

import (
	"image/color"
	"math"
	"strconv"
)

// Color is a three-channel color. Channels nominally lie in [-1, 1] but are
// not clamped: several functions produce out-of-range values on purpose and
// only ToDisplay saturates them.
type Color struct {
	R, G, B float64
}

// NewColor returns a color with the given channels.
func NewColor(r, g, b float64) Color {
	return Color{R: r, G: g, B: b}
}

// Gray returns an achromatic color with v on every channel.
func Gray(v float64) Color {
	return Color{R: v, G: v, B: v}
}

// Map applies f to every channel.
func (c Color) Map(f func(float64) float64) Color {
	return Color{R: f(c.R), G: f(c.G), B: f(c.B)}
}

// Combine applies f channel-wise to a and b.
func Combine(a, b Color, f func(l, r float64) float64) Color {
	return Color{R: f(a.R, b.R), G: f(a.G, b.G), B: f(a.B, b.B)}
}

// IsFinite reports whether no channel is NaN or infinite.
func (c Color) IsFinite() bool {
	return finite(c.R) && finite(c.G) && finite(c.B)
}

// ApproxEqual reports whether every channel of c is within eps of o.
func (c Color) ApproxEqual(o Color, eps float64) bool {
	return math.Abs(c.R-o.R) <= eps && math.Abs(c.G-o.G) <= eps && math.Abs(c.B-o.B) <= eps
}

// ToDisplay converts c to an opaque 8-bit color. Each channel is clamped to
// [-1, 1] and mapped with round((v+1)/2*255); NaN maps to 0.
func (c Color) ToDisplay() color.RGBA {
	return color.RGBA{R: toByte(c.R), G: toByte(c.G), B: toByte(c.B), A: 0xff}
}

// FromDisplay converts an 8-bit color back into the [-1, 1] range.
func FromDisplay(c color.Color) Color {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return Color{R: fromByte(rgba.R), G: fromByte(rgba.G), B: fromByte(rgba.B)}
}

// String formats c as a color literal, e.g. "[0.5, -1, 0]".
func (c Color) String() string {
	return "[" + FormatFloat(c.R) + ", " + FormatFloat(c.G) + ", " + FormatFloat(c.B) + "]"
}

// FormatFloat formats v in the shortest form that parses back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return uint8(math.Round((v + 1) / 2 * 255))
}

func fromByte(b uint8) float64 {
	return float64(b)/255*2 - 1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
