package parser

import (
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/token"
)

// parseAnnotations parses the annotation block between a signature and
// `from`, in any order, recording them in source order (spec.md §4.2
// "Annotations"). The block may sit at the signature's indent or one level
// deeper.
func (p *Parser) parseAnnotations() []ast.Annotation {
	var out []ast.Annotation
	indented := false
	for {
		p.skipNewlines()
		switch p.cur().Kind {
		case token.INDENT:
			if indented || len(out) > 0 {
				return out // the body's own indent, not ours
			}
			// Peek: only consume the indent if an annotation follows.
			if !isAnnotationKeyword(p.peek(1).Kind) {
				return out
			}
			p.advance()
			indented = true
			continue
		case token.DEDENT:
			if indented {
				p.advance()
				indented = false
				continue
			}
			return out
		case token.KW_FROM, token.EOF:
			return out
		}
		a := p.parseAnnotation()
		if a == nil {
			return out
		}
		out = append(out, a)
	}
}

func isAnnotationKeyword(k token.Kind) bool {
	switch k {
	case token.KW_REQUIRES, token.KW_ENSURES, token.KW_TERMINATES, token.KW_TRUSTED,
		token.KW_KNOW, token.KW_ASSUME, token.KW_BELIEVE, token.KW_WHY_NOT,
		token.KW_CHOSEN, token.KW_NEAR_MISS, token.KW_SATISFIES, token.KW_INTENT,
		token.KW_EXPLAIN, token.KW_PROOF:
		return true
	}
	return false
}

func (p *Parser) parseAnnotation() ast.Annotation {
	start := p.cur()
	switch start.Kind {
	case token.KW_REQUIRES:
		p.advance()
		a := &ast.RequiresAnnotation{Predicate: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `requires`")
		return a
	case token.KW_ENSURES:
		p.advance()
		a := &ast.EnsuresAnnotation{Predicate: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `ensures`")
		return a
	case token.KW_TERMINATES:
		p.advance()
		p.accept(token.COLON)
		a := &ast.TerminatesAnnotation{Measure: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `terminates`")
		return a
	case token.KW_KNOW:
		p.advance()
		a := &ast.KnowAnnotation{Predicate: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `know`")
		return a
	case token.KW_ASSUME:
		p.advance()
		a := &ast.AssumeAnnotation{Predicate: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `assume`")
		return a
	case token.KW_BELIEVE:
		p.advance()
		a := &ast.BelieveAnnotation{Predicate: p.parseExpression(precLowest)}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `believe`")
		return a
	case token.KW_TRUSTED:
		p.advance()
		a := &ast.TrustedAnnotation{Reason: p.parseAnnotationString("trusted")}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `trusted`")
		return a
	case token.KW_WHY_NOT:
		p.advance()
		a := &ast.WhyNotAnnotation{Text: p.parseAnnotationString("why_not")}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `why_not`")
		return a
	case token.KW_CHOSEN:
		p.advance()
		a := &ast.ChosenAnnotation{Text: p.parseAnnotationString("chosen")}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `chosen`")
		return a
	case token.KW_INTENT:
		p.advance()
		a := &ast.IntentAnnotation{Text: p.parseAnnotationString("intent")}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `intent`")
		return a
	case token.KW_SATISFIES:
		p.advance()
		nameTok := p.expect(token.TYPE_IDENT, "after `satisfies`")
		a := &ast.SatisfiesAnnotation{NetworkName: nameTok.Text}
		a.SetSpan(p.spanFrom(start))
		p.endOfLine("after `satisfies`")
		return a
	case token.KW_NEAR_MISS:
		return p.parseNearMiss()
	case token.KW_EXPLAIN:
		return p.parseExplain()
	case token.KW_PROOF:
		return p.parseProof()
	default:
		p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
			diagnostics.ESyntaxBadAnnotation, start.Span,
			"expected an annotation or `from`, found "+p.describe(start)))
		p.skipLine()
		return nil
	}
}

func (p *Parser) parseAnnotationString(kw string) string {
	t := p.cur()
	if t.Kind != token.STRING && t.Kind != token.TRIPLE_STRING {
		p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
			diagnostics.ESyntaxBadAnnotation, t.Span,
			"`"+kw+"` takes a string"))
		return ""
	}
	p.advance()
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// parseNearMiss parses `near_miss input => expected`, inline or as an
// indented block of cases (spec.md §4.5).
func (p *Parser) parseNearMiss() ast.Annotation {
	start := p.advance() // near_miss
	a := &ast.NearMissAnnotation{}

	parseCase := func() {
		input := p.parseExpression(precLowest)
		p.expect(token.FAT_ARROW, "in near_miss case")
		expected := p.parseExpression(precLowest)
		a.Cases = append(a.Cases, ast.NearMissCase{Input: input, Expected: expected})
	}

	if p.at(token.NEWLINE) {
		p.skipNewlines()
		if p.accept(token.INDENT) {
			for !p.at(token.DEDENT) && !p.at(token.EOF) {
				p.skipNewlines()
				if p.at(token.DEDENT) || p.at(token.EOF) {
					break
				}
				parseCase()
				p.skipNewlines()
			}
			p.accept(token.DEDENT)
		}
	} else {
		parseCase()
		p.endOfLine("after `near_miss`")
	}
	a.SetSpan(p.spanFrom(start))
	return a
}

// parseExplain parses the `explain` block: each row is the remainder of a
// physical line plus any indented continuation lines; text is preserved
// verbatim for the CNL tokenizer (spec.md §4.2 "Annotations").
func (p *Parser) parseExplain() ast.Annotation {
	start := p.advance() // explain
	a := &ast.ExplainAnnotation{}
	p.skipNewlines()
	if p.accept(token.INDENT) {
		for !p.at(token.DEDENT) && !p.at(token.EOF) {
			p.skipNewlines()
			if p.at(token.DEDENT) || p.at(token.EOF) {
				break
			}
			span, ok := p.consumeRowSpan()
			if !ok {
				break
			}
			a.Rows = append(a.Rows, ast.ExplainRow{Text: p.smap.Slice(span), Span: span})
		}
		p.accept(token.DEDENT)
	}
	a.SetSpan(p.spanFrom(start))
	return a
}

// parseProof parses the legacy `proof` block: rows of `identifier : text`
// with the same continuation rules as explain (spec.md §4.2).
func (p *Parser) parseProof() ast.Annotation {
	start := p.advance() // proof
	a := &ast.ProofAnnotation{}
	p.skipNewlines()
	if p.accept(token.INDENT) {
		for !p.at(token.DEDENT) && !p.at(token.EOF) {
			p.skipNewlines()
			if p.at(token.DEDENT) || p.at(token.EOF) {
				break
			}
			nameTok := p.cur()
			if nameTok.Kind != token.IDENT {
				p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
					diagnostics.ESyntaxBadAnnotation, nameTok.Span,
					"proof rows have the form `name: text`"))
				p.skipLine()
				continue
			}
			p.advance()
			p.expect(token.COLON, "in proof row")
			span, ok := p.consumeRowSpan()
			if !ok {
				break
			}
			a.Obligations = append(a.Obligations, ast.ProofObligationRow{
				Name: nameTok.Text,
				Text: p.smap.Slice(span),
				Span: nameTok.Span.Union(span),
			})
		}
		p.accept(token.DEDENT)
	}
	a.SetSpan(p.spanFrom(start))
	return a
}

// consumeRowSpan eats tokens to the end of the current row, including any
// indented continuation lines, and returns the covered source span.
func (p *Parser) consumeRowSpan() (sourcemap.Span, bool) {
	if p.at(token.NEWLINE) || p.at(token.DEDENT) || p.at(token.EOF) {
		return sourcemap.Span{}, false
	}
	span := p.cur().Span
	depth := 0
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.NEWLINE:
			p.advance()
			if depth == 0 && !p.at(token.INDENT) {
				return span, true
			}
			continue
		case token.INDENT:
			depth++
		case token.DEDENT:
			if depth == 0 {
				return span, true
			}
			depth--
			p.advance()
			if depth == 0 {
				return span, true
			}
			continue
		default:
			span = span.Union(p.cur().Span)
		}
		p.advance()
	}
	return span, true
}
