package expr

import (
	"math"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// BT.601 luma weights and chroma scale factors.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114

	chromaB = 1.772 // 2 * (1 - lumaB)
	chromaR = 1.402 // 2 * (1 - lumaR)
)

func applyUnary(op UnaryOp, c types.Color) types.Color {
	switch op {
	case OpNegate:
		return c.Map(func(v float64) float64 { return -v })
	case OpSin:
		return c.Map(math.Sin)
	case OpCos:
		return c.Map(math.Cos)
	case OpTan:
		return c.Map(math.Tan)
	case OpAtan:
		return c.Map(math.Atan)
	case OpLog:
		return c.Map(func(v float64) float64 { return math.Log(math.Abs(v)) })
	case OpExp:
		return c.Map(math.Exp)
	case OpAbs:
		return c.Map(math.Abs)
	case OpFloor:
		return c.Map(math.Floor)
	case OpCeil:
		return c.Map(math.Ceil)
	case OpClamp:
		return c.Map(Clamp)
	case OpWrap:
		return c.Map(Wrap)
	case OpRGBToYCrCb:
		return RGBToYCrCb(c)
	case OpYCrCbToRGB:
		return YCrCbToRGB(c)
	default:
		return c
	}
}

func binaryFunc(op TokenType) func(l, r float64) float64 {
	switch op {
	case TokenPlus:
		return func(l, r float64) float64 { return l + r }
	case TokenMinus:
		return func(l, r float64) float64 { return l - r }
	case TokenStar:
		return func(l, r float64) float64 { return l * r }
	case TokenSlash:
		return func(l, r float64) float64 { return l / r }
	case TokenPercent:
		return math.Mod
	case TokenCaret:
		return math.Pow
	default:
		return func(l, _ float64) float64 { return math.NaN() }
	}
}

// Clamp saturates v to [-1, 1]. NaN passes through.
func Clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// Wrap folds v into [-1, 1] with period 2. When v+1 is an exact multiple of
// the period the result is +1 for v >= 1 and -1 otherwise, so wrap(1) = 1,
// wrap(3) = 1 and wrap(-1) = wrap(-3) = -1.
func Wrap(v float64) float64 {
	w := wrapUnit(v)
	if w == -1 {
		if v >= 1 {
			return 1
		}
		return -1
	}
	return w
}

// wrapUnit folds v into [-1, 1) with period 2 and no seam adjustment.
func wrapUnit(v float64) float64 {
	w := math.Mod(v+1, 2)
	if w < 0 {
		w += 2
	}
	return w - 1
}

// RGBToYCrCb converts an RGB color to (Y, Cb, Cr) stored in the R, G and B
// channels. All values use the [-1, 1] domain.
func RGBToYCrCb(c types.Color) types.Color {
	r, g, b := (c.R+1)/2, (c.G+1)/2, (c.B+1)/2
	luma := lumaR*r + lumaG*g + lumaB*b
	cb := (b - luma) / chromaB
	cr := (r - luma) / chromaR
	return types.NewColor(luma*2-1, cb*2, cr*2)
}

// YCrCbToRGB is the exact inverse of RGBToYCrCb.
func YCrCbToRGB(c types.Color) types.Color {
	luma := (c.R + 1) / 2
	cb, cr := c.G/2, c.B/2
	r := luma + chromaR*cr
	b := luma + chromaB*cb
	g := (luma - lumaR*r - lumaB*b) / lumaG
	return types.NewColor(r*2-1, g*2-1, b*2-1)
}
