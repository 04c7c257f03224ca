package expr

import (
	"math"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Node is an expression tree node. Trees are immutable once built and may be
// evaluated from many goroutines at once.
type Node interface {
	// Evaluate returns the color of the expression at (x, y).
	Evaluate(x, y float64) types.Color
	// String renders the node as program text that parses back to an equal tree.
	String() string
	// Equal reports structural equality.
	Equal(other Node) bool
}

// X is the horizontal coordinate.
type X struct{}

func (X) Evaluate(x, _ float64) types.Color { return types.Gray(x) }
func (X) String() string                    { return "x" }
func (X) Equal(other Node) bool             { _, ok := other.(X); return ok }

// Y is the vertical coordinate.
type Y struct{}

func (Y) Evaluate(_, y float64) types.Color { return types.Gray(y) }
func (Y) String() string                    { return "y" }
func (Y) Equal(other Node) bool             { _, ok := other.(Y); return ok }

// Constant is a scalar broadcast to all three channels.
type Constant struct {
	Value float64
}

func (c Constant) Evaluate(_, _ float64) types.Color { return types.Gray(c.Value) }
func (c Constant) String() string                    { return types.FormatFloat(c.Value) }

func (c Constant) Equal(other Node) bool {
	o, ok := other.(Constant)
	return ok && sameFloat(c.Value, o.Value)
}

// ColorLiteral is a fixed color.
type ColorLiteral struct {
	Color types.Color
}

func (c ColorLiteral) Evaluate(_, _ float64) types.Color { return c.Color }
func (c ColorLiteral) String() string                    { return c.Color.String() }

func (c ColorLiteral) Equal(other Node) bool {
	o, ok := other.(ColorLiteral)
	return ok && sameFloat(c.Color.R, o.Color.R) && sameFloat(c.Color.G, o.Color.G) && sameFloat(c.Color.B, o.Color.B)
}

// UnaryOp enumerates the single-argument operators.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpSin
	OpCos
	OpTan
	OpAtan
	OpLog
	OpExp
	OpAbs
	OpFloor
	OpCeil
	OpClamp
	OpWrap
	OpRGBToYCrCb
	OpYCrCbToRGB
)

// String returns the operator's source name.
func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "!"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpTan:
		return "tan"
	case OpAtan:
		return "atan"
	case OpLog:
		return "log"
	case OpExp:
		return "exp"
	case OpAbs:
		return "abs"
	case OpFloor:
		return "floor"
	case OpCeil:
		return "ceil"
	case OpClamp:
		return "clamp"
	case OpWrap:
		return "wrap"
	case OpRGBToYCrCb:
		return "rgbToYCrCb"
	case OpYCrCbToRGB:
		return "yCrCbToRGB"
	default:
		return "unknown"
	}
}

// Unary applies a single-argument operator to its child.
type Unary struct {
	Op  UnaryOp
	Arg Node
}

func (n *Unary) Evaluate(x, y float64) types.Color {
	return applyUnary(n.Op, n.Arg.Evaluate(x, y))
}

func (n *Unary) String() string {
	return n.Op.String() + "(" + n.Arg.String() + ")"
}

func (n *Unary) Equal(other Node) bool {
	o, ok := other.(*Unary)
	return ok && n.Op == o.Op && n.Arg.Equal(o.Arg)
}

// Binary applies an arithmetic operator channel by channel. Op is one of the
// six binary operator token types.
type Binary struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (n *Binary) Evaluate(x, y float64) types.Color {
	return types.Combine(n.Left.Evaluate(x, y), n.Right.Evaluate(x, y), binaryFunc(n.Op))
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op.Symbol() + " " + n.Right.String() + ")"
}

func (n *Binary) Equal(other Node) bool {
	o, ok := other.(*Binary)
	return ok && n.Op == o.Op && n.Left.Equal(o.Left) && n.Right.Equal(o.Right)
}

// sameFloat treats NaN as equal to itself so trees built from the same text
// compare equal.
func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
