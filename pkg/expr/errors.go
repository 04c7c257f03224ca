package expr

import (
	"errors"
	"fmt"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Parse error kinds. A *ParseError unwraps to exactly one of these.
var (
	ErrUnknownIdentifier   = errors.New("unknown identifier")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrArityMismatch       = errors.New("wrong number of arguments")
	ErrMalformedAssignment = errors.New("malformed assignment target")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrTrailingTokens      = errors.New("trailing tokens")
	ErrUnexpectedToken     = errors.New("unexpected token")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// TokenizeError reports source text that could not be split into tokens.
type TokenizeError struct {
	Pos int
	Msg string
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("tokenize error: %s at position %d", e.Msg, e.Pos)
}

// Tag implements types.Tagged.
func (e *TokenizeError) Tag() string { return types.TagTokenizeError }

// ParseError reports a token sequence that does not form a valid program.
type ParseError struct {
	Kind    error
	Message string
	Pos     int
	Token   Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s at position %d", e.Message, e.Pos)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Tag implements types.Tagged.
func (e *ParseError) Tag() string { return types.TagParseError }

func newParseError(kind error, tok Token, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     tok.Pos,
		Token:   tok,
	}
}
