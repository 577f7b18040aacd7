package parser

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/token"
)

// parseTypeDefBody parses the right-hand side of `type Name is ...`: an
// algebraic variant list (`A(f T) | B`), a record, a refinement, or a
// simple/generic alias (spec.md §3 "Type expressions").
func (p *Parser) parseTypeDefBody() ast.TypeExpr {
	start := p.cur()

	// An algebraic body starts with a variant: `Name(` or a bare `Name`
	// followed by `|`.
	if p.at(token.TYPE_IDENT) && (p.peek(1).Kind == token.LPAREN || p.barFollowsVariant()) {
		return p.parseAlgebraic(start)
	}

	return p.parseTypeExpr()
}

// barFollowsVariant reports whether the bare TYPE_IDENT at cursor is the
// first of a `A | B | ...` variant list.
func (p *Parser) barFollowsVariant() bool {
	return p.peek(1).Kind == token.BAR
}

func (p *Parser) parseAlgebraic(start token.Token) ast.TypeExpr {
	alg := &ast.Algebraic{}
	for {
		nameTok := p.expect(token.TYPE_IDENT, "as a variant constructor name")
		v := ast.AlgebraicVariant{Name: nameTok.Text}
		if p.accept(token.LPAREN) {
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				f := ast.VariantField{}
				// `Circle(r Decimal)` names the field; `Some(T)` leaves it
				// positional.
				if p.at(token.IDENT) {
					f.Name = p.advance().Text
				}
				f.Type = p.parseTypeExprNoWhere()
				v.Fields = append(v.Fields, f)
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN, "closing variant fields")
		}
		alg.Variants = append(alg.Variants, v)
		if !p.accept(token.BAR) {
			break
		}
		p.skipNewlines()
	}
	alg.SetSpan(p.spanFrom(start))
	return alg
}

// parseTypeExpr parses a full type expression including a trailing
// `where predicate` refinement.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	base := p.parseTypeExprNoWhere()
	if p.accept(token.KW_WHERE) {
		constraint := p.parseExpression(precLowest)
		r := &ast.Refinement{Base: base, Constraint: constraint}
		r.SetSpan(base.Span().Union(p.spanFrom(p.cur())))
		if constraint != nil {
			r.SetSpan(base.Span().Union(constraint.Span()))
		}
		return r
	}
	return base
}

// parseTypeExprNoWhere parses a type expression without consuming a
// trailing `where` (parameter lists attach `where` to the parameter, not
// the type — spec.md §3 "FunctionDef").
func (p *Parser) parseTypeExprNoWhere() ast.TypeExpr {
	start := p.cur()

	if p.at(token.LBRACE) {
		return p.parseRecordType()
	}

	if !p.at(token.TYPE_IDENT) {
		p.errorf(start.Span, diagnostics.ESyntaxUnexpectedToken,
			"expected a type, found %s", p.describe(start))
		p.advance()
		st := &ast.SimpleType{Name: "Unknown"}
		st.SetSpan(start.Span)
		return st
	}

	head := p.advance()
	var t ast.TypeExpr
	if p.at(token.LT) {
		if args, ok := p.tryTypeArgs(); ok {
			g := &ast.GenericType{Head: head.Text, Args: args}
			g.SetSpan(p.spanFrom(head))
			t = g
		}
	}
	if t == nil {
		st := &ast.SimpleType{Name: head.Text}
		st.SetSpan(head.Span)
		t = st
	}

	// `Type:[mod1 mod2 ...]` modifier axis list.
	if p.at(token.COLON) && p.peek(1).Kind == token.LBRACKET {
		p.advance() // :
		p.advance() // [
		m := &ast.ModifiedType{Head: t}
		for p.at(token.TYPE_IDENT) {
			m.Modifiers = append(m.Modifiers, p.advance().Text)
		}
		p.expect(token.RBRACKET, "closing modifier list")
		m.SetSpan(p.spanFrom(start))
		t = m
	}
	return t
}

// tryTypeArgs attempts to parse `<T, U, ...>` after a TYPE_IDENT with
// restricted-lookahead backtracking: a `<` that does not close as a
// well-formed type-arg list reverts to comparison (spec.md §4.2 "Type
// expressions").
func (p *Parser) tryTypeArgs() ([]ast.TypeExpr, bool) {
	mark := p.mark()
	savedDiags := len(p.diags)
	p.advance() // <
	var args []ast.TypeExpr
	for {
		if !p.at(token.TYPE_IDENT) && !p.at(token.LBRACE) {
			p.resetTo(mark)
			p.diags = p.diags[:savedDiags]
			return nil, false
		}
		args = append(args, p.parseTypeExprNoWhere())
		if p.accept(token.COMMA) {
			continue
		}
		break
	}
	if !p.accept(token.GT) {
		p.resetTo(mark)
		p.diags = p.diags[:savedDiags]
		return nil, false
	}
	if len(p.diags) > savedDiags {
		p.resetTo(mark)
		p.diags = p.diags[:savedDiags]
		return nil, false
	}
	return args, true
}

// parseRecordType parses `{ name Type, ... }`.
func (p *Parser) parseRecordType() ast.TypeExpr {
	start := p.advance() // {
	r := &ast.Record{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.RBRACE) {
			break
		}
		nameTok := p.expect(token.IDENT, "as a record field name")
		f := ast.VariantField{Name: nameTok.Text, Type: p.parseTypeExprNoWhere()}
		r.Fields = append(r.Fields, f)
		p.skipNewlines()
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "closing record type")
	r.SetSpan(p.spanFrom(start))
	return r
}
