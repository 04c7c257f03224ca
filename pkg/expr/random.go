package expr

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// DefaultRandomDepth bounds the nesting of generated expressions.
const DefaultRandomDepth = 10

var randomOperators = []TokenType{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenCaret}

// RandomExpression generates the text of a random, parseable program of up
// to depth nested calls. images lists files the image functions may sample;
// when empty the image functions are not used.
func RandomExpression(rng *rand.Rand, depth int, images []string) string {
	g := &generator{rng: rng, images: images}
	for f := Func(0); f < numFuncs; f++ {
		switch {
		case f.Arity() == 0:
			g.zeroArg = append(g.zeroArg, f)
		case f.Arity() == 1:
			g.unary = append(g.unary, f)
		case f == FuncImageClip || f == FuncImageWrap:
			if len(images) > 0 {
				g.multi = append(g.multi, f)
			}
		default:
			g.multi = append(g.multi, f)
		}
	}

	expr := g.expression(depth)
	for terms := 1 + rng.IntN(3); terms > 1; terms-- {
		expr = "(" + expr + " " + g.operator() + " " + g.expression(depth) + ")"
	}
	return expr
}

type generator struct {
	rng     *rand.Rand
	images  []string
	unary   []Func
	multi   []Func
	zeroArg []Func
}

func (g *generator) expression(depth int) string {
	if depth <= 0 {
		if g.rng.IntN(5) == 0 {
			return g.zeroArg[g.rng.IntN(len(g.zeroArg))].String() + "()"
		}
		return g.leaf()
	}
	switch g.rng.IntN(5) {
	case 0:
		return g.leaf()
	case 1:
		fn := g.unary[g.rng.IntN(len(g.unary))]
		return fn.String() + "(" + g.expression(depth-1) + ")"
	case 2:
		return "(" + g.expression(depth-1) + " " + g.operator() + " " + g.expression(depth-1) + ")"
	case 3:
		return g.call(depth)
	default:
		inner := g.expression(depth - 1)
		if strings.HasPrefix(inner, "!") {
			return inner
		}
		return "!(" + inner + ")"
	}
}

func (g *generator) call(depth int) string {
	fn := g.multi[g.rng.IntN(len(g.multi))]
	args := make([]string, 0, fn.Arity())
	if fn == FuncImageClip || fn == FuncImageWrap {
		args = append(args, strconv.Quote(g.images[g.rng.IntN(len(g.images))]))
	}
	for len(args) < fn.Arity() {
		args = append(args, g.expression(depth-1))
	}
	return fn.String() + "(" + strings.Join(args, ", ") + ")"
}

func (g *generator) leaf() string {
	switch g.rng.IntN(4) {
	case 0:
		return "x"
	case 1:
		return "y"
	case 2:
		return strconv.FormatFloat(g.rng.Float64()*2-1, 'f', 2, 64)
	default:
		return fmt.Sprintf("[%.2f, %.2f, %.2f]", g.rng.Float64()*2-1, g.rng.Float64()*2-1, g.rng.Float64()*2-1)
	}
}

func (g *generator) operator() string {
	return randomOperators[g.rng.IntN(len(randomOperators))].Symbol()
}
