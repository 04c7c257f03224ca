package expr

import (
	"fmt"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Parser is a precedence-climbing recursive descent parser over a token
// slice. Bindings made by assignments go to env as soon as their right-hand
// side parses.
type Parser struct {
	env    *Env
	tokens []Token
	pos    int
}

// Parse tokenizes and parses src. The result is the tree of the last
// statement in the program.
func (e *Env) Parse(src string) (Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return e.ParseTokens(tokens)
}

// ParseTokens parses a token sequence produced by Tokenize. A missing
// trailing TokenEOF is supplied.
func (e *Env) ParseTokens(tokens []Token) (Node, error) {
	if n := len(tokens); n == 0 || tokens[n-1].Type != TokenEOF {
		pos := 0
		if n > 0 {
			pos = tokens[n-1].Pos + len(tokens[n-1].Value)
		}
		tokens = append(tokens[:n:n], Token{Type: TokenEOF, Pos: pos})
	}
	p := &Parser{env: e, tokens: tokens}
	return p.parseProgram()
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming it.
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *Parser) expect(tt TokenType, context string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, p.unexpected(tok, fmt.Sprintf("expected '%s' %s", tt.Symbol(), context))
	}
	p.advance()
	return tok, nil
}

// unexpected reports tok where something else was required.
func (p *Parser) unexpected(tok Token, want string) error {
	if tok.Type == TokenEOF {
		return newParseError(ErrUnexpectedEOF, tok, "%s, got end of input", want)
	}
	return newParseError(ErrUnexpectedToken, tok, "%s, got %s", want, tok.describe())
}

// parseProgram parses whitespace-separated statements up to EOF.
func (p *Parser) parseProgram() (Node, error) {
	if p.current().Type == TokenEOF {
		return nil, newParseError(ErrUnexpectedEOF, p.current(), "empty program")
	}

	var last Node
	for p.current().Type != TokenEOF {
		if last != nil && !startsOperand(p.current().Type) {
			tok := p.current()
			return nil, newParseError(ErrTrailingTokens, tok, "unexpected %s after complete expression", tok.describe())
		}
		node, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		last = node
	}
	return last, nil
}

// parseAssignment handles the lowest precedence level:
//
//	assignment := IDENT '=' assignment | binary
func (p *Parser) parseAssignment() (Node, error) {
	tok := p.current()
	if p.peek().Type == TokenAssign {
		switch tok.Type {
		case TokenIdent:
			if isCoordinate(tok.Value) {
				return nil, newParseError(ErrMalformedAssignment, tok, "cannot assign to reserved name %q", tok.Value)
			}
			p.advance() // name
			p.advance() // '='
			value, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			p.env.Define(tok.Value, value)
			return value, nil
		case TokenFunc:
			return nil, newParseError(ErrMalformedAssignment, tok, "cannot assign to function %q", tok.Value)
		}
	}

	node, err := p.parseBinary(PrecAdditive)
	if err != nil {
		return nil, err
	}
	if eq := p.current(); eq.Type == TokenAssign {
		return nil, newParseError(ErrMalformedAssignment, eq, "left side of '=' must be a single variable name, got %s", node)
	}
	return node, nil
}

// parseBinary parses operators whose precedence is at least minPrec.
// Left-associative operators parse their right operand one level higher;
// right-associative ones at the same level.
func (p *Parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.current().Type
		if !op.IsBinary() || op.Precedence() < minPrec {
			return left, nil
		}
		p.advance()
		next := op.Precedence() + 1
		if op.RightAssoc() {
			next = op.Precedence()
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// parseUnary handles prefix negation, which binds tighter than every binary
// operator.
func (p *Parser) parseUnary() (Node, error) {
	if t := p.current().Type; t == TokenBang || t == TokenMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNegate, Arg: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		return Constant{Value: tok.Num}, nil
	case TokenColor:
		p.advance()
		return ColorLiteral{Color: tok.Color}, nil
	case TokenString:
		p.advance()
		return p.env.image(tok.Str), nil
	case TokenIdent:
		return p.parseIdent()
	case TokenFunc:
		return p.parseCall()
	case TokenLParen:
		p.advance()
		node, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "to close '('"); err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, p.unexpected(tok, "expected an expression")
	}
}

func (p *Parser) parseIdent() (Node, error) {
	tok := p.advance()
	switch tok.Value {
	case "x":
		return X{}, nil
	case "y":
		return Y{}, nil
	case "t":
		return &T{Clock: p.env.clock}, nil
	}
	if node, ok := p.env.Lookup(tok.Value); ok {
		return node, nil
	}
	if p.current().Type == TokenLParen {
		if s, ok := suggestFunction(tok.Value); ok {
			return nil, newParseError(ErrUnknownFunction, tok, "unknown function %q (did you mean %q?)", tok.Value, s)
		}
		return nil, newParseError(ErrUnknownFunction, tok, "unknown function %q", tok.Value)
	}
	return nil, newParseError(ErrUnknownIdentifier, tok, "unknown identifier %q", tok.Value)
}

// parseCall parses a builtin call. Zero-argument builtins may omit the
// parentheses.
func (p *Parser) parseCall() (Node, error) {
	tok := p.advance()
	fn := tok.Func
	arity := fn.Arity()

	if p.current().Type != TokenLParen {
		if arity == 0 {
			return p.build(fn, nil), nil
		}
		return nil, newParseError(ErrArityMismatch, tok, "%s expects %d argument(s), got none", fn, arity)
	}
	p.advance() // '('

	var args []Node
	if p.current().Type != TokenRParen {
		for {
			arg, err := p.parseArgument(fn, len(args))
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenRParen, fmt.Sprintf("or ',' in call to %s", fn)); err != nil {
		return nil, err
	}
	if len(args) != arity {
		return nil, newParseError(ErrArityMismatch, tok, "%s expects %d argument(s), got %d", fn, arity, len(args))
	}
	return p.build(fn, args), nil
}

// parseArgument parses argument i of a call to fn. The image functions take
// a file name first, either quoted or through a variable bound to one.
func (p *Parser) parseArgument(fn Func, i int) (Node, error) {
	if i == 0 && (fn == FuncImageClip || fn == FuncImageWrap) {
		tok := p.current()
		arg, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, ok := arg.(*StringValue); !ok {
			return nil, newParseError(ErrInvalidArgument, tok, "%s expects a quoted file name as its first argument, got %s", fn, arg)
		}
		return arg, nil
	}
	return p.parseAssignment()
}

// build constructs the node for a builtin with already-checked arguments.
func (p *Parser) build(fn Func, args []Node) Node {
	if op, ok := fn.unaryOp(); ok {
		return &Unary{Op: op, Arg: args[0]}
	}
	switch fn {
	case FuncPerlinBW:
		return &PerlinBW{A: args[0], B: args[1]}
	case FuncPerlinColor:
		return &PerlinColor{A: args[0], B: args[1]}
	case FuncMandelbrot:
		return &Mandelbrot{Real: args[0], Imag: args[1]}
	case FuncImageClip:
		return &ImageClip{File: args[0].(*StringValue), X: args[1], Y: args[2]}
	case FuncImageWrap:
		return &ImageWrap{File: args[0].(*StringValue), X: args[1], Y: args[2]}
	case FuncRandom:
		r := p.env.random
		return &Random{Color: types.NewColor(r()*2-1, r()*2-1, r()*2-1)}
	case FuncRandomFunction:
		return &RandomFunction{Source: p.env.random}
	}
	panic(fmt.Sprintf("expr: no constructor for builtin %s", fn))
}

// startsOperand reports whether a statement can begin with a token of type t.
func startsOperand(t TokenType) bool {
	switch t {
	case TokenNumber, TokenString, TokenColor, TokenIdent, TokenFunc, TokenLParen, TokenBang, TokenMinus:
		return true
	}
	return false
}

func isCoordinate(name string) bool {
	return name == "x" || name == "y" || name == "t"
}
