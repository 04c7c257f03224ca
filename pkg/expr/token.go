// Package expr implements the picasso expression language: a tokenizer, a
// precedence-climbing parser with assignment, and the expression tree that
// evaluates a program to a color at every point of the [-1,1] domain.
package expr

import "github.com/lemonberrylabs/picasso/pkg/types"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Literals
	TokenNumber TokenType = iota // numeric literal
	TokenString                  // double-quoted string literal (image path)
	TokenColor                   // [r, g, b] color literal

	// Names
	TokenIdent // identifier (x, y, t or a variable)
	TokenFunc  // builtin function name

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenCaret   // ^
	TokenBang    // ! (negate)
	TokenAssign  // =

	// Punctuation
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,

	// Special
	TokenEOF // end of input
)

// Operator precedence, lowest first.
const (
	PrecNone           = 0
	PrecAssign         = 1
	PrecAdditive       = 2
	PrecMultiplicative = 3
	PrecExponent       = 4
	PrecNegate         = 5
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string      // raw source text
	Num   float64     // parsed value (TokenNumber)
	Color types.Color // parsed channels (TokenColor)
	Str   string      // unescaped contents (TokenString)
	Func  Func        // builtin (TokenFunc)
	Pos   int         // byte offset in source
}

// Equal reports whether two tokens are structurally equal. Positions are
// ignored so that tokens from differently formatted sources compare equal.
func (t Token) Equal(o Token) bool {
	if t.Type != o.Type {
		return false
	}
	switch t.Type {
	case TokenNumber:
		return t.Num == o.Num
	case TokenColor:
		return t.Color == o.Color
	case TokenString:
		return t.Str == o.Str
	case TokenFunc:
		return t.Func == o.Func
	default:
		return t.Value == o.Value
	}
}

// Precedence returns the binding strength of an operator token, or PrecNone
// for tokens that are not operators.
func (t TokenType) Precedence() int {
	switch t {
	case TokenAssign:
		return PrecAssign
	case TokenPlus, TokenMinus:
		return PrecAdditive
	case TokenStar, TokenSlash, TokenPercent:
		return PrecMultiplicative
	case TokenCaret:
		return PrecExponent
	case TokenBang:
		return PrecNegate
	default:
		return PrecNone
	}
}

// RightAssoc reports whether the operator groups right to left.
func (t TokenType) RightAssoc() bool {
	return t == TokenCaret || t == TokenAssign
}

// IsBinary reports whether the token is one of the six binary operators.
func (t TokenType) IsBinary() bool {
	switch t {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenCaret:
		return true
	}
	return false
}

// endsOperand reports whether a token of this type can close an operand, in
// which case a following '-' is a binary minus rather than a sign.
func (t TokenType) endsOperand() bool {
	switch t {
	case TokenNumber, TokenString, TokenColor, TokenIdent, TokenRParen:
		return true
	}
	return false
}

// Symbol returns the source spelling of an operator or punctuation token.
func (t TokenType) Symbol() string {
	switch t {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenCaret:
		return "^"
	case TokenBang:
		return "!"
	case TokenAssign:
		return "="
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenComma:
		return ","
	default:
		return ""
	}
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenColor:
		return "COLOR"
	case TokenIdent:
		return "IDENT"
	case TokenFunc:
		return "FUNC"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenPercent:
		return "PERCENT"
	case TokenCaret:
		return "CARET"
	case TokenBang:
		return "BANG"
	case TokenAssign:
		return "ASSIGN"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenComma:
		return "COMMA"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// describe names a token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenNumber, TokenIdent, TokenFunc, TokenString, TokenColor:
		return t.Type.String() + " " + t.Value
	default:
		return "'" + t.Type.Symbol() + "'"
	}
}
