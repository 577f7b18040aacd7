// Package lexer turns a UTF-8 source buffer into a token stream, including
// explicit INDENT/DEDENT tokens (spec.md §4.1).
package lexer

import (
	"strconv"
	"strings"

	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/token"
)

const defaultTabWidth = 4

// tokensThatSuppressNewline are the kinds after which a physical newline is
// a continuation, not a logical NEWLINE (spec.md §4.1 "Newline
// suppression").
var tokensThatSuppressNewline = map[token.Kind]bool{
	token.PLUS: true, token.MINUS: true, token.STAR: true, token.SLASH: true,
	token.PERCENT: true, token.EQ: true, token.NOT_EQ: true, token.LT: true,
	token.GT: true, token.LE: true, token.GE: true, token.AND_AND: true,
	token.OR_OR: true, token.PIPE: true, token.ASSIGN: true,
	token.COMMA: true, token.LPAREN: true, token.LBRACE: true, token.LBRACKET: true,
	token.FAT_ARROW: true, token.ARROW: true, token.COLON: true,
	token.DOT_DOT: true, token.BAR: true,
}

// closers track the reverse so an open bracket suppresses until its match;
// a simple depth counter is sufficient since any open bracket suppresses.
var opens = map[token.Kind]bool{token.LPAREN: true, token.LBRACE: true, token.LBRACKET: true}
var closes = map[token.Kind]bool{token.RPAREN: true, token.RBRACE: true, token.RBRACKET: true}

// canPrecedeRegex is the set of token kinds after which a leading `/` opens
// a regex literal rather than meaning division (spec.md §4.1 "Regex
// literals").
var canPrecedeRegex = map[token.Kind]bool{
	token.ILLEGAL: true, // start of file / start of line
	token.NEWLINE: true, token.INDENT: true, token.DEDENT: true,
	token.ASSIGN: true, token.COMMA: true, token.LPAREN: true, token.LBRACE: true,
	token.LBRACKET: true, token.FAT_ARROW: true, token.ARROW: true, token.COLON: true,
	token.AND_AND: true, token.OR_OR: true, token.EQ: true, token.NOT_EQ: true,
	token.LT: true, token.GT: true, token.LE: true, token.GE: true, token.BANG: true,
	token.KW_MATCH: true, token.KW_IF: true, token.KW_WHERE: true, token.KW_ENSURES: true,
	token.KW_REQUIRES: true, token.PIPE: true,
}

// Lexer produces a token stream from a single source file's bytes.
type Lexer struct {
	file sourcemap.FileID
	src  []byte
	pos  int
	ch   byte

	tabWidth int

	indentStack []int
	atLineStart bool
	parenDepth  int
	prevKind    token.Kind
	sawSpace    bool

	queue []token.Token
	diags []*diagnostics.Diagnostic

	docLines []string // accumulated `///` lines awaiting attachment to the next real token
}

// New constructs a Lexer over the given file's content.
func New(file sourcemap.FileID, src []byte) *Lexer {
	l := &Lexer{
		file:        file,
		src:         src,
		tabWidth:    defaultTabWidth,
		indentStack: []int{0},
		atLineStart: true,
		prevKind:    token.ILLEGAL,
	}
	if len(src) > 0 {
		l.ch = src[0]
	}
	return l
}

// Diagnostics returns lexical diagnostics accumulated so far.
func (l *Lexer) Diagnostics() []*diagnostics.Diagnostic { return l.diags }

func (l *Lexer) error(span sourcemap.Span, code, msg string) {
	l.diags = append(l.diags, diagnostics.New(diagnostics.SeverityError, code, span, msg))
}

func (l *Lexer) advance() {
	l.pos++
	if l.pos >= len(l.src) {
		l.ch = 0
		return
	}
	l.ch = l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	p := l.pos + off
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) span(start int) sourcemap.Span {
	return sourcemap.Span{File: l.file, Start: start, End: l.pos}
}

// Lex runs the lexer to completion and returns every token including a
// final EOF.
func (l *Lexer) Lex() []token.Token {
	var out []token.Token
	for {
		t := l.Next()
		out = append(out, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return out
}

// Next returns the next token in the stream.
func (l *Lexer) Next() token.Token {
	if len(l.queue) > 0 {
		t := l.queue[0]
		l.queue = l.queue[1:]
		l.prevKind = t.Kind
		return t
	}
	t := l.next()
	if len(l.docLines) > 0 && isDocBearer(t.Kind) {
		t.Doc = strings.Join(l.docLines, "\n")
		l.docLines = nil
	}
	l.prevKind = t.Kind
	return t
}

// isDocBearer reports whether pending `///` lines attach to this token's
// declaration (spec.md §4.1: doc comments attach to the following function,
// type, or module).
func isDocBearer(k token.Kind) bool {
	switch k {
	case token.KW_MODULE, token.KW_TYPE, token.KW_MAIN,
		token.KW_TRANSFORMS, token.KW_VALIDATES, token.KW_READS,
		token.KW_CREATES, token.KW_MATCHES, token.KW_INPUTS, token.KW_OUTPUTS:
		return true
	}
	return false
}

func (l *Lexer) next() token.Token {
	// A blank or comment-only line leaves us back at a line start; keep
	// re-measuring until a real token line (or EOF) is reached.
	for l.atLineStart && l.parenDepth == 0 {
		tok, ok := l.handleIndentation()
		if ok {
			return tok
		}
		if !l.atLineStart {
			break
		}
	}
	l.sawSpace = l.skipIntralineWhitespaceAndComments()

	if l.pos >= len(l.src) {
		return l.handleEOF()
	}

	start := l.pos
	ch := l.ch

	switch {
	case ch == '\n':
		l.advance()
		if l.parenDepth > 0 || tokensThatSuppressNewline[l.prevKind] {
			// Continuation line: no NEWLINE and no INDENT/DEDENT measuring
			// (spec.md §4.1 "Newline suppression").
			return l.next()
		}
		l.atLineStart = true
		return token.Token{Kind: token.NEWLINE, Span: l.span(start), ImmediatePrefix: !l.sawSpace}
	case isIdentStart(ch):
		return l.readIdentifier(start)
	case isDigit(ch):
		return l.readNumber(start)
	case ch == '"':
		return l.readString(start, false, false)
	case ch == '/':
		if canPrecedeRegex[l.prevKind] {
			return l.readRegex(start)
		}
		return l.readOperator(start)
	default:
		return l.readOperator(start)
	}
}

func (l *Lexer) handleEOF() token.Token {
	// Close out any open indentation before EOF.
	if len(l.indentStack) > 1 {
		l.indentStack = l.indentStack[:len(l.indentStack)-1]
		return token.Token{Kind: token.DEDENT, Span: l.span(l.pos)}
	}
	return token.Token{Kind: token.EOF, Span: l.span(l.pos)}
}

// handleIndentation measures leading whitespace of a new logical line and
// emits INDENT/DEDENT tokens per spec.md §4.1. It returns ok=false when the
// line is blank or a comment-only line, in which case lexing continues
// past it without affecting the indent stack.
func (l *Lexer) handleIndentation() (token.Token, bool) {
	start := l.pos
	width := 0
	for {
		switch l.ch {
		case ' ':
			width++
			l.advance()
			continue
		case '\t':
			width += l.tabWidth
			l.advance()
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		l.atLineStart = false
		return l.handleEOF(), true
	}
	if l.ch == '\n' || (l.ch == '/' && l.peekAt(1) == '/') {
		// Blank or comment-only line: consume it, stay at line start.
		isDoc := l.ch == '/' && l.peekAt(1) == '/' && l.peekAt(2) == '/'
		textStart := l.pos
		for l.pos < len(l.src) && l.ch != '\n' {
			l.advance()
		}
		if isDoc {
			line := strings.TrimPrefix(string(l.src[textStart:l.pos]), "///")
			line = strings.TrimPrefix(line, " ")
			l.docLines = append(l.docLines, line)
		} else {
			// A blank line or a plain `//` comment breaks doc-comment
			// adjacency (spec.md §4.1 "adjacent to the same declaration
			// are concatenated in order").
			l.docLines = nil
		}
		if l.pos < len(l.src) {
			l.advance()
		}
		return token.Token{}, false
	}
	l.atLineStart = false
	top := l.indentStack[len(l.indentStack)-1]
	switch {
	case width > top:
		l.indentStack = append(l.indentStack, width)
		return token.Token{Kind: token.INDENT, Span: l.span(start), IndentWidth: width}, true
	case width < top:
		var deds []token.Token
		for len(l.indentStack) > 1 && l.indentStack[len(l.indentStack)-1] > width {
			l.indentStack = l.indentStack[:len(l.indentStack)-1]
			deds = append(deds, token.Token{Kind: token.DEDENT, Span: l.span(start), IndentWidth: width})
		}
		if l.indentStack[len(l.indentStack)-1] != width {
			l.error(l.span(start), "E101", "inconsistent dedent: no matching indentation level")
		}
		l.queue = append(l.queue, deds[1:]...)
		return deds[0], true
	default:
		return token.Token{}, false
	}
}

// skipIntralineWhitespaceAndComments advances past spaces/tabs and // / ///
// comments within the current logical line (not newlines), returning
// whether any whitespace was actually consumed.
func (l *Lexer) skipIntralineWhitespaceAndComments() bool {
	sawSpace := false
	for l.pos < len(l.src) {
		switch l.ch {
		case ' ', '\t', '\r':
			sawSpace = true
			l.advance()
		case '/':
			if l.peekAt(1) == '/' {
				for l.pos < len(l.src) && l.ch != '\n' {
					l.advance()
				}
				sawSpace = true
			} else {
				return sawSpace
			}
		default:
			return sawSpace
		}
	}
	return sawSpace
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }

// readIdentifier classifies the word per spec.md §4.1: keyword table takes
// precedence; else fully-uppercase-with-underscore-or-2+chars is a
// CONST_IDENT; else leading-uppercase is TYPE_IDENT; else IDENT. A raw or
// format string prefix (r"...", f"...") is handled specially.
func (l *Lexer) readIdentifier(start int) token.Token {
	for l.pos < len(l.src) && isIdentCont(l.ch) {
		l.advance()
	}
	text := string(l.src[start:l.pos])

	if (text == "r" || text == "f") && l.pos < len(l.src) && l.ch == '"' {
		if text == "r" {
			return l.readString(start, true, false)
		}
		return l.readString(start, false, true)
	}

	if kw, ok := token.Keywords[text]; ok {
		return token.Token{Kind: kw, Span: l.span(start), Text: text}
	}
	return token.Token{Kind: classifyIdent(text), Span: l.span(start), Text: text}
}

func classifyIdent(text string) token.Kind {
	if isAllUpperConst(text) {
		return token.CONST_IDENT
	}
	if text[0] >= 'A' && text[0] <= 'Z' {
		return token.TYPE_IDENT
	}
	return token.IDENT
}

// isAllUpperConst implements spec.md's `/[A-Z][A-Z0-9_]+/` rule: fully
// uppercase, at least one underscore or at least two characters total.
func isAllUpperConst(text string) bool {
	if len(text) == 0 || text[0] < 'A' || text[0] > 'Z' {
		return false
	}
	hasUnderscore := false
	for i := 1; i < len(text); i++ {
		c := text[i]
		if c == '_' {
			hasUnderscore = true
			continue
		}
		if !(c >= 'A' && c <= 'Z') && !isDigit(c) {
			return false
		}
	}
	return hasUnderscore || len(text) >= 2
}

// readNumber reads an integer or decimal literal, including 0x/0b/0o
// prefixes; underscores are stripped before value parsing (spec.md §4.1).
func (l *Lexer) readNumber(start int) token.Token {
	if l.ch == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && (isHexDigit(l.ch) || l.ch == '_') {
			l.advance()
		}
		text := stripUnderscores(string(l.src[start+2 : l.pos]))
		v, _ := strconv.ParseInt(text, 16, 64)
		return token.Token{Kind: token.INT, Span: l.span(start), Text: string(l.src[start:l.pos]), IntValue: v, IsHex: true}
	}
	if l.ch == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && (l.ch == '0' || l.ch == '1' || l.ch == '_') {
			l.advance()
		}
		text := stripUnderscores(string(l.src[start+2 : l.pos]))
		v, _ := strconv.ParseInt(text, 2, 64)
		return token.Token{Kind: token.INT, Span: l.span(start), Text: string(l.src[start:l.pos]), IntValue: v, IsBin: true}
	}
	if l.ch == '0' && (l.peekAt(1) == 'o' || l.peekAt(1) == 'O') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && ((l.ch >= '0' && l.ch <= '7') || l.ch == '_') {
			l.advance()
		}
		text := stripUnderscores(string(l.src[start+2 : l.pos]))
		v, _ := strconv.ParseInt(text, 8, 64)
		return token.Token{Kind: token.INT, Span: l.span(start), Text: string(l.src[start:l.pos]), IntValue: v, IsOct: true}
	}

	for l.pos < len(l.src) && (isDigit(l.ch) || l.ch == '_') {
		l.advance()
	}
	isDecimal := false
	if l.ch == '.' && isDigit(l.peekAt(1)) {
		isDecimal = true
		l.advance()
		for l.pos < len(l.src) && (isDigit(l.ch) || l.ch == '_') {
			l.advance()
		}
	}
	text := stripUnderscores(string(l.src[start:l.pos]))
	if isDecimal {
		f, _ := strconv.ParseFloat(text, 64)
		return token.Token{Kind: token.DECIMAL, Span: l.span(start), Text: text, FloatValue: f}
	}
	v, _ := strconv.ParseInt(text, 10, 64)
	return token.Token{Kind: token.INT, Span: l.span(start), Text: text, IntValue: v}
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func stripUnderscores(s string) string { return strings.ReplaceAll(s, "_", "") }

// readString handles plain, triple, raw, and format strings (spec.md
// §4.1). start points at the opening quote for plain and triple strings,
// or at the 'r'/'f' prefix for raw and format strings (the prefix is
// already consumed by readIdentifier's dispatch); either way l.ch == '"'.
func (l *Lexer) readString(start int, raw, format bool) token.Token {
	quoteStart := l.pos
	triple := false
	if l.peekAt(1) == '"' && l.peekAt(2) == '"' {
		triple = true
		l.advance()
		l.advance()
		l.advance()
	} else {
		l.advance() // consume opening "
	}

	var segs []token.StringSegment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, token.StringSegment{Kind: token.SegLiteral, Text: lit.String()})
			lit.Reset()
		}
	}

	for l.pos < len(l.src) {
		if triple {
			if l.ch == '"' && l.peekAt(1) == '"' && l.peekAt(2) == '"' {
				l.advance()
				l.advance()
				l.advance()
				flush()
				return token.Token{Kind: token.TRIPLE_STRING, Span: l.span(start), Segments: segs}
			}
			lit.WriteByte(l.ch)
			l.advance()
			continue
		}
		if l.ch == '"' {
			l.advance()
			flush()
			kind := token.STRING
			if raw {
				kind = token.RAW_STRING
			} else if format {
				kind = token.FORMAT_STRING
			}
			return token.Token{Kind: kind, Span: l.span(start), Segments: segs}
		}
		if l.ch == '\n' {
			l.error(l.span(quoteStart), "E102", "unterminated string literal")
			flush()
			return token.Token{Kind: token.STRING, Span: l.span(start), Segments: segs}
		}
		if raw {
			lit.WriteByte(l.ch)
			l.advance()
			continue
		}
		if l.ch == '\\' {
			l.advance()
			switch l.ch {
			case 'n':
				lit.WriteByte('\n')
			case 'r':
				lit.WriteByte('\r')
			case 't':
				lit.WriteByte('\t')
			case '\\':
				lit.WriteByte('\\')
			case '"':
				lit.WriteByte('"')
			case '0':
				lit.WriteByte(0)
			case '{':
				lit.WriteByte('{')
			case '}':
				lit.WriteByte('}')
			default:
				lit.WriteByte(l.ch)
			}
			l.advance()
			continue
		}
		if format && l.ch == '{' {
			flush()
			l.advance()
			exprStart := l.pos
			depth := 1
			for l.pos < len(l.src) && depth > 0 {
				switch l.ch {
				case '{':
					depth++
				case '}':
					depth--
					if depth == 0 {
						break
					}
				}
				if depth == 0 {
					break
				}
				l.advance()
			}
			segs = append(segs, token.StringSegment{Kind: token.SegExpr, Text: string(l.src[exprStart:l.pos])})
			if l.pos < len(l.src) && l.ch == '}' {
				l.advance()
			}
			continue
		}
		lit.WriteByte(l.ch)
		l.advance()
	}
	l.error(l.span(quoteStart), "E102", "unterminated string literal")
	flush()
	return token.Token{Kind: token.STRING, Span: l.span(start), Segments: segs}
}

func (l *Lexer) readRegex(start int) token.Token {
	l.advance() // consume opening /
	var body strings.Builder
	for l.pos < len(l.src) && l.ch != '/' && l.ch != '\n' {
		if l.ch == '\\' {
			body.WriteByte(l.ch)
			l.advance()
			if l.pos < len(l.src) {
				body.WriteByte(l.ch)
				l.advance()
			}
			continue
		}
		body.WriteByte(l.ch)
		l.advance()
	}
	if l.pos < len(l.src) && l.ch == '/' {
		l.advance()
	} else {
		l.error(l.span(start), "E103", "unterminated regex literal")
	}
	return token.Token{Kind: token.REGEX, Span: l.span(start), Text: body.String()}
}

// readOperator reads punctuation and operators, including the postfix-vs-
// prefix disambiguation of `!` (spec.md §4.1 "Fail marker vs. boolean-not":
// a `!` immediately following an expression token with no intervening
// whitespace is postfix).
func (l *Lexer) readOperator(start int) token.Token {
	ch := l.ch
	two := func(next byte, k token.Kind) bool {
		if l.peekAt(1) == next {
			l.advance()
			l.advance()
			return true
		}
		return false
	}
	mk := func(k token.Kind) token.Token {
		return token.Token{Kind: k, Span: l.span(start)}
	}

	switch ch {
	case '(':
		l.advance()
		l.parenDepth++
		return mk(token.LPAREN)
	case ')':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return mk(token.RPAREN)
	case '{':
		l.advance()
		l.parenDepth++
		return mk(token.LBRACE)
	case '}':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return mk(token.RBRACE)
	case '[':
		l.advance()
		l.parenDepth++
		return mk(token.LBRACKET)
	case ']':
		l.advance()
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return mk(token.RBRACKET)
	case ',':
		l.advance()
		return mk(token.COMMA)
	case ':':
		l.advance()
		return mk(token.COLON)
	case '@':
		l.advance()
		return mk(token.AT)
	case '.':
		if l.peekAt(1) == '.' && l.peekAt(2) == '.' {
			l.advance()
			l.advance()
			l.advance()
			return mk(token.ELLIPSIS)
		}
		if two('.', token.DOT_DOT) {
			return mk(token.DOT_DOT)
		}
		l.advance()
		return mk(token.DOT)
	case '=':
		if two('=', token.EQ) {
			return mk(token.EQ)
		}
		if two('>', token.FAT_ARROW) {
			return mk(token.FAT_ARROW)
		}
		l.advance()
		return mk(token.ASSIGN)
	case '!':
		immediate := !l.sawSpace && exprToken(l.prevKind)
		if two('=', token.NOT_EQ) {
			return mk(token.NOT_EQ)
		}
		l.advance()
		t := mk(token.BANG)
		t.ImmediatePrefix = immediate
		return t
	case '<':
		if two('=', token.LE) {
			return mk(token.LE)
		}
		l.advance()
		return mk(token.LT)
	case '>':
		if two('=', token.GE) {
			return mk(token.GE)
		}
		l.advance()
		return mk(token.GT)
	case '&':
		if two('&', token.AND_AND) {
			return mk(token.AND_AND)
		}
		l.advance()
		return mk(token.ILLEGAL)
	case '|':
		if l.peekAt(1) == '>' {
			l.advance()
			l.advance()
			return mk(token.PIPE)
		}
		if two('|', token.OR_OR) {
			return mk(token.OR_OR)
		}
		l.advance()
		return mk(token.BAR)
	case '+':
		l.advance()
		return mk(token.PLUS)
	case '-':
		if two('>', token.ARROW) {
			return mk(token.ARROW)
		}
		l.advance()
		return mk(token.MINUS)
	case '*':
		l.advance()
		return mk(token.STAR)
	case '/':
		l.advance()
		return mk(token.SLASH)
	case '%':
		l.advance()
		return mk(token.PERCENT)
	default:
		l.error(l.span(start), "E100", "unexpected character '"+string(ch)+"'")
		l.advance()
		return mk(token.ILLEGAL)
	}
}

// exprToken reports whether a token kind can end an expression, i.e. a
// following `!` with no space is a postfix fail-propagation operator
// rather than logical-not.
func exprToken(k token.Kind) bool {
	switch k {
	case token.IDENT, token.TYPE_IDENT, token.CONST_IDENT, token.INT, token.DECIMAL,
		token.STRING, token.TRIPLE_STRING, token.FORMAT_STRING, token.RAW_STRING,
		token.RPAREN, token.RBRACKET, token.RBRACE, token.BANG, token.KW_TRUE, token.KW_FALSE:
		return true
	}
	return false
}
