package lexer

import (
	"testing"

	"github.com/ScratchCat458/august-build/internal/token"
)

func TestBasicTokens(t *testing.T) {
	input := `@ ~ , :: = => ( ) [ ] < > { }`

	expected := []token.Type{
		token.AT, token.TILDE, token.COMMA, token.DOUBLECOLON,
		token.EQUALS, token.ARROW, token.LPAREN, token.RPAREN,
		token.LBRACKET, token.RBRACKET, token.LANGLE, token.RANGLE,
		token.LBRACE, token.RBRACE, token.EOF,
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - wrong type. expected=%s, got=%s (literal=%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestDoubleColonPrecedesSingleColon(t *testing.T) {
	input := `: ::`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.COLON {
		t.Fatalf("expected COLON, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != token.DOUBLECOLON {
		t.Fatalf("expected DOUBLECOLON, got %s", tok.Type)
	}
}

func TestArrowPrecedesEquals(t *testing.T) {
	input := `= =>`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.EQUALS {
		t.Fatalf("expected EQUALS, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != token.ARROW {
		t.Fatalf("expected ARROW, got %s", tok.Type)
	}
}

func TestKeywords(t *testing.T) {
	input := `unit expose as foo`

	expected := []token.Type{token.UNIT, token.EXPOSE, token.AS, token.IDENT}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	input := `"hello world" "tab\tnewline\n" "quote\"inside"`

	expected := []string{
		"hello world",
		"tab\tnewline\n",
		`quote"inside`,
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != token.STRING || tok.Literal != exp {
			t.Fatalf("test[%d] - got %s(%q), want STRING(%q)", i, tok.Type, tok.Literal, exp)
		}
	}
}

func TestUnterminatedStringRecovers(t *testing.T) {
	l := New(`"oops`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if !l.Errors().HasErrors() {
		t.Fatalf("expected an unterminated-string diagnostic")
	}
	if tok := l.NextToken(); tok.Type != token.EOF {
		t.Fatalf("expected EOF after recovery, got %s", tok.Type)
	}
}

func TestRawIdentFallback(t *testing.T) {
	input := `exec(git --verbose ./build.sh -j4)`

	l := New(input)
	var got []string
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		got = append(got, string(tok.Type)+":"+tok.Literal)
	}

	want := []string{
		"IDENT:exec", "(:(", "IDENT:git",
		"RAWIDENT:--verbose", "RAWIDENT:./build.sh", "RAWIDENT:-j4", "):)",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIllegalCharacterRecovers(t *testing.T) {
	l := New("unit" + "\x01" + "foo")
	tok := l.NextToken()
	if tok.Type != token.UNIT {
		t.Fatalf("expected UNIT, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if !l.Errors().HasErrors() {
		t.Fatalf("expected a diagnostic for the illegal character")
	}
	tok = l.NextToken()
	if tok.Type != token.IDENT || tok.Literal != "foo" {
		t.Fatalf("expected lexing to continue after the illegal byte, got %s(%q)", tok.Type, tok.Literal)
	}
}
