package lexer

import (
	"testing"

	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/token"
)

func lex(t *testing.T, src string) ([]token.Token, *Lexer) {
	t.Helper()
	smap := sourcemap.New()
	id := smap.AddFile("test.prv", []byte(src))
	l := New(id, smap.Content(id))
	return l.Lex(), l
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestIndentDedentBalance(t *testing.T) {
	src := "main()!\nfrom\n    println(\"hi\")\n"
	toks, l := lex(t, src)
	if len(l.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", l.Diagnostics())
	}
	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("INDENT/DEDENT unbalanced: %d vs %d", indents, dedents)
	}
	if indents != 1 {
		t.Fatalf("expected exactly one indent level, got %d", indents)
	}
}

func TestEverySpanInsideSource(t *testing.T) {
	src := "transforms add(a Integer, b Integer) Integer\nfrom\n    a + b\n"
	toks, _ := lex(t, src)
	for _, tok := range toks {
		if tok.Span.Start < 0 || tok.Span.End > len(src) || tok.Span.Start > tok.Span.End {
			t.Fatalf("token %v span %+v escapes the source buffer", tok.Kind, tok.Span)
		}
	}
}

func TestMultipleDedentsAtOnce(t *testing.T) {
	src := "a\n    b\n        c\nd\n"
	toks, l := lex(t, src)
	if len(l.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", l.Diagnostics())
	}
	dedents := 0
	for _, tok := range toks {
		if tok.Kind == token.DEDENT {
			dedents++
		}
	}
	if dedents != 2 {
		t.Fatalf("expected 2 dedents returning to column zero, got %d", dedents)
	}
}

func TestDedentToUnknownWidthIsError(t *testing.T) {
	src := "a\n        b\n    c\n"
	_, l := lex(t, src)
	found := false
	for _, d := range l.Diagnostics() {
		if d.Code == "E101" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E101 for dedent to a width never pushed")
	}
}

func TestNewlineSuppressionAfterOperators(t *testing.T) {
	src := "x as Integer = 1 +\n    2\ny as Integer = 3\n"
	toks, _ := lex(t, src)
	newlines := 0
	for _, tok := range toks {
		if tok.Kind == token.NEWLINE {
			newlines++
		}
	}
	// The continuation after `+` must not produce a NEWLINE (nor INDENT).
	if newlines != 2 {
		t.Fatalf("expected 2 logical newlines, got %d", newlines)
	}
	for _, tok := range toks {
		if tok.Kind == token.INDENT {
			t.Fatalf("continuation line must not open an indent block")
		}
	}
}

func TestIdentifierClassification(t *testing.T) {
	cases := []struct {
		src  string
		want token.Kind
	}{
		{"snake_name", token.IDENT},
		{"CamelName", token.TYPE_IDENT},
		{"MAX_SIZE", token.CONST_IDENT},
		{"PI", token.CONST_IDENT},
		{"X", token.TYPE_IDENT},
		{"match", token.KW_MATCH},
		{"transforms", token.KW_TRANSFORMS},
	}
	for _, tc := range cases {
		toks, _ := lex(t, tc.src)
		if toks[0].Kind != tc.want {
			t.Errorf("%q: classified %v, want %v", tc.src, toks[0].Kind, tc.want)
		}
	}
}

func TestFailMarkerVsBooleanNot(t *testing.T) {
	toks, _ := lex(t, "value! && !flag\n")
	var bangs []token.Token
	for _, tok := range toks {
		if tok.Kind == token.BANG {
			bangs = append(bangs, tok)
		}
	}
	if len(bangs) != 2 {
		t.Fatalf("expected 2 bang tokens, got %d", len(bangs))
	}
	if !bangs[0].ImmediatePrefix {
		t.Errorf("postfix `!` hugging an identifier must be immediate")
	}
	if bangs[1].ImmediatePrefix {
		t.Errorf("prefix `!` after whitespace must not be immediate")
	}
}

func TestStringEscapesAndSegments(t *testing.T) {
	toks, _ := lex(t, `s as String = "a\n\t\"b\""`+"\n")
	var str token.Token
	for _, tok := range toks {
		if tok.Kind == token.STRING {
			str = tok
		}
	}
	if len(str.Segments) != 1 {
		t.Fatalf("expected one literal segment, got %d", len(str.Segments))
	}
	if str.Segments[0].Text != "a\n\t\"b\"" {
		t.Fatalf("escape decoding wrong: %q", str.Segments[0].Text)
	}
}

func TestFormatStringSegments(t *testing.T) {
	toks, _ := lex(t, `msg as String = f"got {x} of {y + 1}"`+"\n")
	var str token.Token
	for _, tok := range toks {
		if tok.Kind == token.FORMAT_STRING {
			str = tok
		}
	}
	if str.Kind != token.FORMAT_STRING {
		t.Fatalf("expected a FORMAT_STRING token")
	}
	var exprs []string
	for _, seg := range str.Segments {
		if seg.Kind == token.SegExpr {
			exprs = append(exprs, seg.Text)
		}
	}
	if len(exprs) != 2 || exprs[0] != "x" || exprs[1] != "y + 1" {
		t.Fatalf("interpolation segments wrong: %v", exprs)
	}
}

func TestNumericLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
		val  int64
	}{
		{"1_000_000", token.INT, 1000000},
		{"0x2A", token.INT, 42},
		{"0b1010", token.INT, 10},
		{"0o52", token.INT, 42},
	}
	for _, tc := range cases {
		toks, _ := lex(t, tc.src+"\n")
		if toks[0].Kind != tc.kind || toks[0].IntValue != tc.val {
			t.Errorf("%q: got %v %d", tc.src, toks[0].Kind, toks[0].IntValue)
		}
	}
	toks, _ := lex(t, "1.5\n")
	if toks[0].Kind != token.DECIMAL || toks[0].FloatValue != 1.5 {
		t.Errorf("1.5: got %v %g", toks[0].Kind, toks[0].FloatValue)
	}
}

func TestRegexVsDivision(t *testing.T) {
	toks, _ := lex(t, "a as Boolean = matches_pattern(s, /ab+c/)\nb as Integer = x / y\n")
	sawRegex, sawSlash := false, false
	for _, tok := range toks {
		switch tok.Kind {
		case token.REGEX:
			sawRegex = true
			if tok.Text != "ab+c" {
				t.Errorf("regex body wrong: %q", tok.Text)
			}
		case token.SLASH:
			sawSlash = true
		}
	}
	if !sawRegex {
		t.Errorf("expected a regex literal after `(` position")
	}
	if !sawSlash {
		t.Errorf("expected `/` after an identifier to lex as division")
	}
}

func TestUnterminatedStringReportsE102(t *testing.T) {
	_, l := lex(t, "s as String = \"oops\n")
	found := false
	for _, d := range l.Diagnostics() {
		if d.Code == "E102" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E102 for unterminated string")
	}
}

func TestDocCommentAttachesToNextDeclaration(t *testing.T) {
	src := "/// trims and lowercases\n/// the address\ntransforms email(raw String) String\nfrom\n    raw\n"
	toks, _ := lex(t, src)
	var verbTok token.Token
	for _, tok := range toks {
		if tok.Kind == token.KW_TRANSFORMS {
			verbTok = tok
		}
	}
	if verbTok.Doc != "trims and lowercases\nthe address" {
		t.Fatalf("doc comment not attached, got %q", verbTok.Doc)
	}
}

func TestBlankLinesDoNotDisturbIndentation(t *testing.T) {
	src := "main()!\nfrom\n    a as Integer = 1\n\n    println(\"x\")\n"
	toks, l := lex(t, src)
	if len(l.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", l.Diagnostics())
	}
	indents := 0
	for _, tok := range toks {
		if tok.Kind == token.INDENT {
			indents++
		}
	}
	if indents != 1 {
		t.Fatalf("blank line must not re-open the indent block, got %d indents", indents)
	}
	_ = kinds(toks)
}
