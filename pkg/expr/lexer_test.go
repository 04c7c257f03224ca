package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

func num(v float64) Token       { return Token{Type: TokenNumber, Num: v} }
func ident(name string) Token   { return Token{Type: TokenIdent, Value: name} }
func op(tt TokenType) Token     { return Token{Type: tt, Value: tt.Symbol()} }
func fn(f Func) Token           { return Token{Type: TokenFunc, Value: f.String(), Func: f} }
func str(s string) Token        { return Token{Type: TokenString, Str: s} }
func col(r, g, b float64) Token { return Token{Type: TokenColor, Color: types.NewColor(r, g, b)} }
func eof() Token                { return Token{Type: TokenEOF} }

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"empty", "", []Token{eof()}},
		{"whitespace only", "  \n\t ", []Token{eof()}},
		{"sum", "x + y", []Token{ident("x"), op(TokenPlus), ident("y"), eof()}},
		{"no spaces", "x*y", []Token{ident("x"), op(TokenStar), ident("y"), eof()}},
		{"all operators", "+ - * / % ^ ! = ( ) ,", []Token{
			op(TokenPlus), op(TokenMinus), op(TokenStar), op(TokenSlash), op(TokenPercent),
			op(TokenCaret), op(TokenBang), op(TokenAssign), op(TokenLParen), op(TokenRParen),
			op(TokenComma), eof(),
		}},
		{"integer", "42", []Token{num(42), eof()}},
		{"fraction", "3.25", []Token{num(3.25), eof()}},
		{"leading dot", ".5", []Token{num(0.5), eof()}},
		{"exponent", "1e-3", []Token{num(0.001), eof()}},
		{"negative literal", "-1", []Token{num(-1), eof()}},
		{"negative leading dot", "-.5", []Token{num(-0.5), eof()}},
		{"minus after operand", "x -1", []Token{ident("x"), op(TokenMinus), num(1), eof()}},
		{"minus after rparen", "(x)-1", []Token{op(TokenLParen), ident("x"), op(TokenRParen), op(TokenMinus), num(1), eof()}},
		{"minus after operator", "x - -1", []Token{ident("x"), op(TokenMinus), num(-1), eof()}},
		{"minus in call", "sin(-0.5)", []Token{fn(FuncSin), op(TokenLParen), num(-0.5), op(TokenRParen), eof()}},
		{"minus after bare random", "random-1", []Token{fn(FuncRandom), op(TokenMinus), num(1), eof()}},
		{"minus after bare randomFunction", "randomFunction -2", []Token{fn(FuncRandomFunction), op(TokenMinus), num(2), eof()}},
		{"minus after sin is a sign", "sin(-1)", []Token{fn(FuncSin), op(TokenLParen), num(-1), op(TokenRParen), eof()}},
		{"minus before ident", "-x", []Token{op(TokenMinus), ident("x"), eof()}},
		{"function names", "sin cos perlinColor randomFunction", []Token{
			fn(FuncSin), fn(FuncCos), fn(FuncPerlinColor), fn(FuncRandomFunction), eof(),
		}},
		{"case sensitive", "Sin", []Token{ident("Sin"), eof()}},
		{"identifier with digits", "a1_b", []Token{ident("a1_b"), eof()}},
		{"string", `"pic.png"`, []Token{str("pic.png"), eof()}},
		{"string escapes", `"a\"b\\c"`, []Token{str(`a"b\c`), eof()}},
		{"string keeps other backslashes", `"C:\img.png"`, []Token{str(`C:\img.png`), eof()}},
		{"color", "[1, -0.5, 0]", []Token{col(1, -0.5, 0), eof()}},
		{"color tight", "[0,0,.25]", []Token{col(0, 0, 0.25), eof()}},
		{"comment", "x // the rest + y\n* y", []Token{ident("x"), op(TokenStar), ident("y"), eof()}},
		{"comment only", "// nothing", []Token{eof()}},
		{"assignment", "a = x", []Token{ident("a"), op(TokenAssign), ident("x"), eof()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	got, err := Tokenize("ab + sin(x)")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 3, 5, 8, 9, 10, 11}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i, tok := range got {
		if tok.Pos != want[i] {
			t.Errorf("token %d (%s) Pos = %d, want %d", i, tok.Type, tok.Pos, want[i])
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantPos int
		wantMsg string
	}{
		{`"unterminated`, 0, "unterminated string"},
		{"x + \"broken\nline\"", 4, "unterminated string"},
		{"[1, 2, 0]", 0, "out of range"},
		{"[0, -1.5, 0]", 0, "out of range"},
		{"[0, 0]", 0, "expected 3 channels"},
		{"[0, 0, 0, 0]", 0, "expected 3 channels"},
		{"[a, b, c]", 0, "expected number"},
		{"[0, 0, 0", 0, "expected ',' or ']'"},
		{"x # y", 2, "unexpected character"},
		{"x & y", 2, "unexpected character"},
		{"x + é", 4, `unexpected character 'é'`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			var te *TokenizeError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TokenizeError, got %T: %v", err, err)
			}
			if te.Pos != tt.wantPos {
				t.Errorf("Pos = %d, want %d", te.Pos, tt.wantPos)
			}
			if !strings.Contains(te.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", te.Msg, tt.wantMsg)
			}
			if te.Tag() != types.TagTokenizeError {
				t.Errorf("Tag() = %q", te.Tag())
			}
		})
	}
}

func TestTokenEqualIgnoresPosition(t *testing.T) {
	a := Token{Type: TokenNumber, Value: "1.0", Num: 1, Pos: 3}
	b := Token{Type: TokenNumber, Value: "1", Num: 1, Pos: 9}
	if !a.Equal(b) {
		t.Error("numbers with equal values should be equal")
	}
	if a.Equal(Token{Type: TokenNumber, Num: 2}) {
		t.Error("numbers with different values should differ")
	}
	if ident("a").Equal(ident("b")) {
		t.Error("identifiers with different names should differ")
	}
}

func TestPrecedenceTable(t *testing.T) {
	order := []TokenType{TokenAssign, TokenPlus, TokenStar, TokenCaret, TokenBang}
	for i := 1; i < len(order); i++ {
		if order[i-1].Precedence() >= order[i].Precedence() {
			t.Errorf("%s should bind looser than %s", order[i-1], order[i])
		}
	}
	if TokenPlus.Precedence() != TokenMinus.Precedence() {
		t.Error("+ and - should share a level")
	}
	if TokenStar.Precedence() != TokenSlash.Precedence() || TokenSlash.Precedence() != TokenPercent.Precedence() {
		t.Error("*, / and % should share a level")
	}
	for _, tt := range []TokenType{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent} {
		if tt.RightAssoc() {
			t.Errorf("%s should be left-associative", tt)
		}
	}
	if !TokenCaret.RightAssoc() || !TokenAssign.RightAssoc() {
		t.Error("^ and = should be right-associative")
	}
	if TokenLParen.Precedence() != PrecNone {
		t.Error("punctuation has no precedence")
	}
}
