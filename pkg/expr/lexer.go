package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Lexer tokenizes picasso program text.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize splits src into tokens. The result always ends with a TokenEOF.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(src).Tokenize()
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	if ch == '"' {
		return l.readString()
	}
	if ch == '[' {
		return l.readColor()
	}
	if isDigit(ch) || (ch == '.' && l.digitAt(l.pos+1)) {
		return l.readNumber()
	}
	if ch == '-' && l.signAllowed() && (l.digitAt(l.pos+1) || (l.byteAt(l.pos+1) == '.' && l.digitAt(l.pos+2))) {
		return l.readNumber()
	}

	var tt TokenType
	switch ch {
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenStar
	case '/':
		tt = TokenSlash
	case '%':
		tt = TokenPercent
	case '^':
		tt = TokenCaret
	case '!':
		tt = TokenBang
	case '=':
		tt = TokenAssign
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case ',':
		tt = TokenComma
	default:
		if isIdentStart(ch) {
			return l.readIdentifier(), nil
		}
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return Token{}, &TokenizeError{Pos: l.pos, Msg: fmt.Sprintf("unexpected character %q", r)}
	}
	l.pos++
	return Token{Type: tt, Value: string(ch), Pos: l.pos - 1}, nil
}

// signAllowed reports whether a '-' at the current position can start a
// negative literal, i.e. the previous token does not end an operand. A bare
// zero-argument builtin such as random ends an operand.
func (l *Lexer) signAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	if prev.Type == TokenFunc && prev.Func.Arity() == 0 {
		return false
	}
	return !prev.Type.endsOperand()
}

// readString reads a double-quoted string literal. Only \" and \\ are
// escapes; any other backslash is kept so Windows paths survive.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // skip opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			switch next := l.input[l.pos+1]; next {
			case '"', '\\':
				sb.WriteByte(next)
				l.pos += 2
				continue
			}
		}
		if ch == '\n' {
			break
		}
		if ch == '"' {
			l.pos++ // skip closing quote
			return Token{
				Type:  TokenString,
				Value: l.input[start:l.pos],
				Str:   sb.String(),
				Pos:   start,
			}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}

	return Token{}, &TokenizeError{Pos: start, Msg: "unterminated string"}
}

// readNumber reads a numeric literal with optional sign, fraction and
// exponent.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	if l.byteAt(l.pos) == '-' || l.byteAt(l.pos) == '+' {
		l.pos++
	}
	for l.digitAt(l.pos) {
		l.pos++
	}
	if l.byteAt(l.pos) == '.' && l.digitAt(l.pos+1) {
		l.pos++
		for l.digitAt(l.pos) {
			l.pos++
		}
	}
	if c := l.byteAt(l.pos); c == 'e' || c == 'E' {
		end := l.pos + 1
		if s := l.byteAt(end); s == '+' || s == '-' {
			end++
		}
		if l.digitAt(end) {
			l.pos = end
			for l.digitAt(l.pos) {
				l.pos++
			}
		}
	}

	raw := l.input[start:l.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Token{}, &TokenizeError{Pos: start, Msg: fmt.Sprintf("invalid number %q", raw)}
	}
	return Token{Type: TokenNumber, Value: raw, Num: f, Pos: start}, nil
}

// readColor reads a [r, g, b] literal. Each channel must be a number in
// [-1, 1].
func (l *Lexer) readColor() (Token, error) {
	start := l.pos
	l.pos++ // skip '['

	var channels []float64
	for {
		l.skipSpaces()
		c := l.byteAt(l.pos)
		if !(isDigit(c) || c == '-' || c == '+' || c == '.') {
			return Token{}, l.colorError(start, "expected number")
		}
		tok, err := l.readNumber()
		if err != nil {
			return Token{}, err
		}
		if tok.Num < -1 || tok.Num > 1 {
			return Token{}, l.colorError(start, fmt.Sprintf("channel %s out of range [-1, 1]", tok.Value))
		}
		channels = append(channels, tok.Num)

		l.skipSpaces()
		switch l.byteAt(l.pos) {
		case ',':
			l.pos++
			continue
		case ']':
			l.pos++
		default:
			return Token{}, l.colorError(start, "expected ',' or ']'")
		}
		break
	}
	if len(channels) != 3 {
		return Token{}, l.colorError(start, fmt.Sprintf("expected 3 channels, got %d", len(channels)))
	}
	return Token{
		Type:  TokenColor,
		Value: l.input[start:l.pos],
		Color: types.NewColor(channels[0], channels[1], channels[2]),
		Pos:   start,
	}, nil
}

func (l *Lexer) colorError(start int, msg string) error {
	return &TokenizeError{Pos: start, Msg: "malformed color literal: " + msg}
}

// readIdentifier reads an identifier or a builtin function name.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}

	word := l.input[start:l.pos]
	if fn, ok := LookupFunc(word); ok {
		return Token{Type: TokenFunc, Value: word, Func: fn, Pos: start}
	}
	return Token{Type: TokenIdent, Value: word, Pos: start}
}

// skipWhitespaceAndComments advances past whitespace and // comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isSpace(ch) {
			l.pos++
			continue
		}
		if ch == '/' && l.byteAt(l.pos+1) == '/' {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *Lexer) skipSpaces() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) byteAt(i int) byte {
	if i < 0 || i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func (l *Lexer) digitAt(i int) bool {
	return isDigit(l.byteAt(i))
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
