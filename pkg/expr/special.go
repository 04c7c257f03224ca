package expr

import (
	"math"
	"strconv"

	"github.com/lemonberrylabs/picasso/pkg/noise"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/types"
)

// MandelbrotIterations is the escape-time iteration cap.
const MandelbrotIterations = 80

// T is the animation time, read from the clock of the Env that parsed it.
type T struct {
	Clock *Clock
}

func (n *T) Evaluate(_, _ float64) types.Color { return types.Gray(n.Clock.Now()) }
func (n *T) String() string                    { return "t" }
func (n *T) Equal(other Node) bool             { _, ok := other.(*T); return ok }

// Mandelbrot colors a point by how quickly z = z*z + c escapes, where c is
// (Real.R, Imag.R).
type Mandelbrot struct {
	Real Node
	Imag Node
}

func (n *Mandelbrot) Evaluate(x, y float64) types.Color {
	return types.Gray(mandelbrot(n.Real.Evaluate(x, y).R, n.Imag.Evaluate(x, y).R))
}

func (n *Mandelbrot) String() string {
	return call(FuncMandelbrot, n.Real, n.Imag)
}

func (n *Mandelbrot) Equal(other Node) bool {
	o, ok := other.(*Mandelbrot)
	return ok && n.Real.Equal(o.Real) && n.Imag.Equal(o.Imag)
}

func mandelbrot(cr, ci float64) float64 {
	var zr, zi float64
	n := 0
	for n < MandelbrotIterations && zr*zr+zi*zi <= 4 {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		n++
	}
	return 1 - 2*float64(n)/MandelbrotIterations
}

// PerlinBW is achromatic noise sampled at the channel-wise sum of its
// arguments.
type PerlinBW struct {
	A Node
	B Node
}

func (n *PerlinBW) Evaluate(x, y float64) types.Color {
	a, b := n.A.Evaluate(x, y), n.B.Evaluate(x, y)
	return types.Gray(noise.Noise3(a.R+b.R, a.G+b.G, a.B+b.B))
}

func (n *PerlinBW) String() string { return call(FuncPerlinBW, n.A, n.B) }

func (n *PerlinBW) Equal(other Node) bool {
	o, ok := other.(*PerlinBW)
	return ok && n.A.Equal(o.A) && n.B.Equal(o.B)
}

// PerlinColor samples noise once per channel at offset coordinates.
type PerlinColor struct {
	A Node
	B Node
}

func (n *PerlinColor) Evaluate(x, y float64) types.Color {
	a, b := n.A.Evaluate(x, y).R, n.B.Evaluate(x, y).R
	return types.NewColor(
		noise.Noise2(a+0.3, b+0.3),
		noise.Noise2(a-0.8, b-0.8),
		noise.Noise2(a+0.1, b+0.1),
	)
}

func (n *PerlinColor) String() string { return call(FuncPerlinColor, n.A, n.B) }

func (n *PerlinColor) Equal(other Node) bool {
	o, ok := other.(*PerlinColor)
	return ok && n.A.Equal(o.A) && n.B.Equal(o.B)
}

// StringValue is an image file. Evaluated on its own it samples the image at
// the clamped (x, y).
type StringValue struct {
	Path  string
	Image raster.Raster
}

func (n *StringValue) Evaluate(x, y float64) types.Color {
	return sample(n.Image, Clamp(x), Clamp(y))
}

func (n *StringValue) String() string { return strconv.Quote(n.Path) }

func (n *StringValue) Equal(other Node) bool {
	o, ok := other.(*StringValue)
	return ok && n.Path == o.Path
}

// ImageClip samples File at (X.R, Y.R) clamped to the domain.
type ImageClip struct {
	File *StringValue
	X    Node
	Y    Node
}

func (n *ImageClip) Evaluate(x, y float64) types.Color {
	return sample(n.File.Image, Clamp(n.X.Evaluate(x, y).R), Clamp(n.Y.Evaluate(x, y).R))
}

func (n *ImageClip) String() string { return call(FuncImageClip, n.File, n.X, n.Y) }

func (n *ImageClip) Equal(other Node) bool {
	o, ok := other.(*ImageClip)
	return ok && n.File.Equal(o.File) && n.X.Equal(o.X) && n.Y.Equal(o.Y)
}

// ImageWrap samples File at (X.R, Y.R) wrapped into the domain, tiling the
// image.
type ImageWrap struct {
	File *StringValue
	X    Node
	Y    Node
}

func (n *ImageWrap) Evaluate(x, y float64) types.Color {
	return sample(n.File.Image, wrapUnit(n.X.Evaluate(x, y).R), wrapUnit(n.Y.Evaluate(x, y).R))
}

func (n *ImageWrap) String() string { return call(FuncImageWrap, n.File, n.X, n.Y) }

func (n *ImageWrap) Equal(other Node) bool {
	o, ok := other.(*ImageWrap)
	return ok && n.File.Equal(o.File) && n.X.Equal(o.X) && n.Y.Equal(o.Y)
}

// sample reads the pixel of img nearest to domain point (u, v). v = -1 is
// the top row and v = 1 the bottom row.
func sample(img raster.Raster, u, v float64) types.Color {
	w, h := img.Size()
	return types.FromDisplay(img.At(pixelIndex(u, w), pixelIndex(v, h)))
}

func pixelIndex(v float64, n int) int {
	if math.IsNaN(v) || n <= 1 {
		return 0
	}
	i := int(math.Round((v + 1) / 2 * float64(n-1)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Random is a color chosen once when the tree is built.
type Random struct {
	Color types.Color
}

func (n *Random) Evaluate(_, _ float64) types.Color { return n.Color }
func (n *Random) String() string                    { return FuncRandom.String() + "()" }

func (n *Random) Equal(other Node) bool {
	o, ok := other.(*Random)
	return ok && n.Color == o.Color
}

// RandomFunction draws a fresh color on every evaluation. Source must be
// safe for concurrent use.
type RandomFunction struct {
	Source func() float64
}

func (n *RandomFunction) Evaluate(_, _ float64) types.Color {
	return types.NewColor(n.Source()*2-1, n.Source()*2-1, n.Source()*2-1)
}

func (n *RandomFunction) String() string        { return FuncRandomFunction.String() + "()" }
func (n *RandomFunction) Equal(other Node) bool { _, ok := other.(*RandomFunction); return ok }

func call(f Func, args ...Node) string {
	s := f.String() + "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}
