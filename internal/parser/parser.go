// Package parser turns a token stream into a Module AST: hand-rolled
// recursive descent for declarations, Pratt-style for expressions
// (spec.md §4.2).
package parser

import (
	"fmt"

	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/token"
)

// MaxRecursionDepth bounds expression nesting so a pathological input
// cannot blow the Go stack.
const MaxRecursionDepth = 500

// Parser consumes one file's token stream.
type Parser struct {
	toks []token.Token
	pos  int

	smap *sourcemap.Map
	file sourcemap.FileID

	diags []*diagnostics.Diagnostic
	depth int

	// comptimeDepth > 0 while parsing inside a `comptime` block, the only
	// place `if` is accepted (spec.md §9 Open Question a).
	comptimeDepth int
}

// New builds a Parser over toks. The sourcemap is needed to recover the
// verbatim text of explain/proof rows (spec.md §4.2 "Row text is preserved
// verbatim").
func New(toks []token.Token, smap *sourcemap.Map, file sourcemap.FileID) *Parser {
	return &Parser{toks: toks, smap: smap, file: file}
}

// Diagnostics returns syntax diagnostics accumulated so far.
func (p *Parser) Diagnostics() []*diagnostics.Diagnostic { return p.diags }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		if len(p.toks) == 0 {
			return token.Token{Kind: token.EOF}
		}
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// accept consumes the current token if it has kind k.
func (p *Parser) accept(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k or reports E200 and leaves the stream
// untouched so the caller can recover.
func (p *Parser) expect(k token.Kind, context string) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
		"expected %s %s, found %s", k.String(), context, p.describe(p.cur()))
	return token.Token{Kind: k, Span: p.cur().Span}
}

func (p *Parser) describe(t token.Token) string {
	if t.Text != "" {
		return fmt.Sprintf("`%s`", t.Text)
	}
	return t.Kind.String()
}

func (p *Parser) errorf(span sourcemap.Span, code, format string, args ...interface{}) {
	p.diags = append(p.diags, diagnostics.New(
		diagnostics.SeverityError, code, span, fmt.Sprintf(format, args...)))
}

// skipNewlines consumes any run of NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

// skipLine consumes through the end of the current logical line, including
// any indented continuation block, as error recovery.
func (p *Parser) skipLine() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.INDENT:
			depth++
		case token.DEDENT:
			if depth == 0 {
				return
			}
			depth--
		case token.NEWLINE:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// mark / resetTo support the restricted-lookahead backtracking the type-arg
// vs. comparison disambiguation needs (spec.md §4.2 "Type expressions").
func (p *Parser) mark() int        { return p.pos }
func (p *Parser) resetTo(mark int) { p.pos = mark }

// spanFrom builds a span from a start token through the previous token.
func (p *Parser) spanFrom(start token.Token) sourcemap.Span {
	end := start.Span
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span
	}
	return start.Span.Union(end)
}
