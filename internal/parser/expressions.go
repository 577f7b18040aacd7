package parser

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/token"
)

// Precedence levels, low to high (spec.md §4.2 "Precedence").
const (
	precLowest = iota
	precPipe
	precOr
	precAnd
	precCmp
	precRange
	precSum
	precProd
	precPrefix
	precPostfix
)

func tokenPrecedence(t token.Token) int {
	switch t.Kind {
	case token.PIPE:
		return precPipe
	case token.OR_OR:
		return precOr
	case token.AND_AND:
		return precAnd
	case token.EQ, token.NOT_EQ, token.LT, token.GT, token.LE, token.GE:
		return precCmp
	case token.DOT_DOT:
		return precRange
	case token.PLUS, token.MINUS:
		return precSum
	case token.STAR, token.SLASH, token.PERCENT:
		return precProd
	case token.DOT, token.LPAREN:
		return precPostfix
	case token.BANG:
		// Postfix fail-propagation only when the `!` hugs the expression
		// (spec.md §4.1 "Fail marker vs. boolean-not").
		if t.ImmediatePrefix {
			return precPostfix
		}
	}
	return precLowest
}

var binaryOps = map[token.Kind]ast.BinaryOpKind{
	token.OR_OR: ast.OpOr, token.AND_AND: ast.OpAnd,
	token.EQ: ast.OpEq, token.NOT_EQ: ast.OpNotEq,
	token.LT: ast.OpLt, token.GT: ast.OpGt, token.LE: ast.OpLe, token.GE: ast.OpGe,
	token.PLUS: ast.OpAdd, token.MINUS: ast.OpSub,
	token.STAR: ast.OpMul, token.SLASH: ast.OpDiv, token.PERCENT: ast.OpMod,
}

func (p *Parser) parseExpression(prec int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxRecursionDepth {
		p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
			"expression too deeply nested")
		p.skipLine()
		return nil
	}

	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		t := p.cur()
		tp := tokenPrecedence(t)
		if tp == precLowest || prec >= tp {
			break
		}
		left = p.parseInfix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expression {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		e := &ast.IntegerLiteral{Value: t.IntValue, IsHex: t.IsHex, IsBin: t.IsBin, IsOct: t.IsOct}
		e.SetSpan(t.Span)
		return e
	case token.DECIMAL:
		p.advance()
		e := &ast.DecimalLiteral{Value: t.FloatValue}
		e.SetSpan(t.Span)
		return e
	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		e := &ast.BooleanLiteral{Value: t.Kind == token.KW_TRUE}
		e.SetSpan(t.Span)
		return e
	case token.STRING, token.TRIPLE_STRING, token.FORMAT_STRING, token.RAW_STRING:
		return p.parseStringLiteral()
	case token.REGEX:
		p.advance()
		e := &ast.RegexLiteral{Pattern: t.Text}
		e.SetSpan(t.Span)
		return e
	case token.IDENT:
		if p.peek(1).Kind == token.FAT_ARROW {
			return p.parseBareLambda()
		}
		p.advance()
		e := &ast.Identifier{Name: t.Text}
		e.SetSpan(t.Span)
		return e
	case token.CONST_IDENT:
		p.advance()
		e := &ast.Identifier{Name: t.Text}
		e.SetSpan(t.Span)
		return e
	case token.TYPE_IDENT:
		p.advance()
		if p.at(token.LT) {
			// `TypeIdent<...>` in an expression is always type args
			// (spec.md §4.2); the checker re-infers them, so explicit args
			// are consumed but not stored.
			p.tryTypeArgs()
		}
		e := &ast.TypeIdentifier{Name: t.Text}
		e.SetSpan(t.Span)
		return e
	case token.LPAREN:
		return p.parseParenOrLambda()
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.MINUS:
		p.advance()
		inner := p.parseExpression(precPrefix)
		e := &ast.UnaryOp{Op: ast.OpNeg, Inner: inner}
		e.SetSpan(p.spanFrom(t))
		return e
	case token.BANG:
		p.advance()
		inner := p.parseExpression(precPrefix)
		e := &ast.UnaryOp{Op: ast.OpNot, Inner: inner}
		e.SetSpan(p.spanFrom(t))
		return e
	case token.KW_MATCH:
		return p.parseMatchExpr()
	case token.KW_VALID:
		p.advance()
		target := p.parseExpression(precPrefix)
		e := &ast.Valid{Target: target}
		e.SetSpan(p.spanFrom(t))
		return e
	case token.KW_COMPTIME:
		p.advance()
		p.comptimeDepth++
		inner := p.parseBlockOrInlineExpr()
		p.comptimeDepth--
		return inner
	case token.KW_IF:
		return p.parseIfExpr()
	default:
		p.errorf(t.Span, diagnostics.ESyntaxUnexpectedToken,
			"expected an expression, found %s", p.describe(t))
		p.advance()
		return nil
	}
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	t := p.cur()
	switch t.Kind {
	case token.DOT:
		p.advance()
		nameTok := p.expect(token.IDENT, "as a field name")
		e := &ast.Field{Receiver: left, Name: nameTok.Text}
		e.SetSpan(left.Span().Union(nameTok.Span))
		return e
	case token.LPAREN:
		return p.parseCall(left)
	case token.BANG:
		p.advance()
		e := &ast.FailProp{Inner: left}
		e.SetSpan(left.Span().Union(t.Span))
		return e
	case token.PIPE:
		p.advance()
		right := p.parseExpression(precPipe)
		e := &ast.Pipe{Left: left, Right: right}
		e.SetSpan(p.spanFrom(t).Union(left.Span()))
		return e
	case token.DOT_DOT:
		p.advance()
		high := p.parseExpression(precRange)
		e := &ast.Range{Low: left, High: high}
		e.SetSpan(p.spanFrom(t).Union(left.Span()))
		return e
	default:
		op, ok := binaryOps[t.Kind]
		if !ok {
			p.errorf(t.Span, diagnostics.ESyntaxUnexpectedToken,
				"unexpected operator %s", p.describe(t))
			p.advance()
			return left
		}
		p.advance()
		right := p.parseExpression(tokenPrecedence(t))
		e := &ast.BinaryOp{Op: op, Left: left, Right: right}
		e.SetSpan(p.spanFrom(t).Union(left.Span()))
		return e
	}
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	open := p.advance() // (
	call := &ast.Call{Callee: callee}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		arg := p.parseExpression(precLowest)
		if arg == nil {
			break
		}
		call.Args = append(call.Args, arg)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "closing call arguments")
	call.SetSpan(callee.Span().Union(p.spanFrom(open)))
	return call
}

func (p *Parser) parseStringLiteral() ast.Expression {
	t := p.advance()
	e := &ast.StringLiteral{}
	e.SetSpan(t.Span)
	switch t.Kind {
	case token.TRIPLE_STRING:
		e.StrKind = ast.StrTriple
	case token.FORMAT_STRING:
		e.StrKind = ast.StrFormat
	case token.RAW_STRING:
		e.StrKind = ast.StrRaw
	default:
		e.StrKind = ast.StrPlain
	}
	for _, seg := range t.Segments {
		if seg.Kind == token.SegLiteral {
			e.Segments = append(e.Segments, ast.StringSegment{Kind: ast.StrSegText, Text: seg.Text})
			continue
		}
		// Interpolated segment: re-lex and parse the embedded expression
		// (spec.md §4.1 "Format strings parse {expr} segments by
		// recursively invoking a bounded expression lexer").
		sub := lexer.New(t.Span.File, []byte(seg.Text))
		subParser := New(sub.Lex(), p.smap, p.file)
		expr := subParser.parseExpression(precLowest)
		for _, d := range subParser.Diagnostics() {
			d.Primary = t.Span
			p.diags = append(p.diags, d)
		}
		for _, d := range sub.Diagnostics() {
			d.Primary = t.Span
			p.diags = append(p.diags, d)
		}
		if expr != nil {
			// Sub-parsed nodes carry segment-relative offsets; pin them all
			// to the carrier string token so diagnostics point at real
			// source.
			ast.Inspect(expr, func(n ast.Node) bool {
				if s, ok := n.(interface{ SetSpan(sourcemap.Span) }); ok {
					s.SetSpan(t.Span)
				}
				return true
			})
		}
		e.Segments = append(e.Segments, ast.StringSegment{Kind: ast.StrSegExpr, Text: seg.Text, Expr: expr})
	}
	return e
}

func (p *Parser) parseListLiteral() ast.Expression {
	open := p.advance() // [
	e := &ast.ListLiteral{}
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		el := p.parseExpression(precLowest)
		if el == nil {
			break
		}
		e.Elements = append(e.Elements, el)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "closing list literal")
	e.SetSpan(p.spanFrom(open))
	return e
}

// parseParenOrLambda disambiguates `(expr)` from `(x T, y U) => body` by
// restricted backtracking: lambdas appear only as call arguments (spec.md
// §4.4 "A lambda may be passed only as a function argument").
func (p *Parser) parseParenOrLambda() ast.Expression {
	mark := p.mark()
	savedDiags := len(p.diags)
	open := p.advance() // (

	var params []ast.Param
	ok := true
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		if !p.at(token.IDENT) {
			ok = false
			break
		}
		nameTok := p.advance()
		param := ast.Param{Name: nameTok.Text, Span: nameTok.Span}
		if p.at(token.TYPE_IDENT) || p.at(token.LBRACE) {
			param.Type = p.parseTypeExprNoWhere()
		}
		params = append(params, param)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if ok && p.accept(token.RPAREN) && p.at(token.FAT_ARROW) && len(p.diags) == savedDiags {
		p.advance() // =>
		body := p.parseExpression(precLowest)
		e := &ast.Lambda{Params: params, Body: body}
		e.SetSpan(p.spanFrom(open))
		return e
	}

	p.resetTo(mark)
	p.diags = p.diags[:savedDiags]
	p.advance() // (
	inner := p.parseExpression(precLowest)
	p.expect(token.RPAREN, "closing parenthesized expression")
	e := &ast.Parenthesized{Inner: inner}
	e.SetSpan(p.spanFrom(open))
	return e
}

// parseBareLambda parses `x => body` (single inferred-type parameter).
func (p *Parser) parseBareLambda() ast.Expression {
	nameTok := p.advance() // IDENT
	p.advance()            // =>
	body := p.parseExpression(precLowest)
	e := &ast.Lambda{Params: []ast.Param{{Name: nameTok.Text, Span: nameTok.Span}}, Body: body}
	e.SetSpan(p.spanFrom(nameTok))
	return e
}

func (p *Parser) parseMatchExpr() ast.Expression {
	start := p.advance() // match
	scrutinee := p.parseExpression(precLowest)
	e := &ast.Match{Scrutinee: scrutinee}
	p.skipNewlines()
	if p.accept(token.INDENT) {
		for !p.at(token.DEDENT) && !p.at(token.EOF) {
			p.skipNewlines()
			if p.at(token.DEDENT) || p.at(token.EOF) {
				break
			}
			e.Arms = append(e.Arms, p.parseMatchArm())
			p.skipNewlines()
		}
		p.accept(token.DEDENT)
	} else {
		p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
			"expected indented match arms after `match`")
	}
	e.SetSpan(p.spanFrom(start))
	return e
}

// parseMatchArm parses `pattern [where guard] => expression`.
func (p *Parser) parseMatchArm() ast.MatchArm {
	start := p.cur()
	arm := ast.MatchArm{Pattern: p.parsePattern()}
	if p.accept(token.KW_WHERE) {
		arm.Guard = p.parseExpression(precLowest)
	}
	p.expect(token.FAT_ARROW, "in match arm")
	arm.Body = p.parseExpression(precLowest)
	arm.Span = p.spanFrom(start)
	p.endOfLine("after match arm")
	return arm
}

func (p *Parser) parsePattern() ast.Pattern {
	t := p.cur()
	switch t.Kind {
	case token.IDENT:
		p.advance()
		if t.Text == "_" {
			w := &ast.WildcardPattern{}
			w.SetSpan(t.Span)
			return w
		}
		b := &ast.BindingPattern{Name: t.Text}
		b.SetSpan(t.Span)
		return b
	case token.TYPE_IDENT:
		p.advance()
		v := &ast.VariantPattern{Constructor: t.Text}
		if p.accept(token.LPAREN) {
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				v.Fields = append(v.Fields, p.parsePattern())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN, "closing pattern fields")
		}
		v.SetSpan(p.spanFrom(t))
		return v
	case token.INT, token.DECIMAL, token.STRING, token.KW_TRUE, token.KW_FALSE, token.MINUS:
		value := p.parseExpression(precCmp)
		l := &ast.LiteralPattern{Value: value}
		if value != nil {
			l.SetSpan(value.Span())
		} else {
			l.SetSpan(t.Span)
		}
		return l
	default:
		p.errorf(t.Span, diagnostics.ESyntaxUnexpectedToken,
			"expected a pattern, found %s", p.describe(t))
		p.advance()
		w := &ast.WildcardPattern{}
		w.SetSpan(t.Span)
		return w
	}
}

// parseBlockOrInlineExpr parses either an inline expression or an indented
// single-expression block (used for `comptime` and `if` branches).
func (p *Parser) parseBlockOrInlineExpr() ast.Expression {
	if p.at(token.NEWLINE) {
		p.skipNewlines()
		if p.accept(token.INDENT) {
			e := p.parseExpression(precLowest)
			p.skipNewlines()
			p.accept(token.DEDENT)
			return e
		}
	}
	return p.parseExpression(precLowest)
}

// parseIfExpr parses `if cond ... [else ...]`. `if` is accepted only inside
// `comptime` blocks (spec.md §9 Open Question a).
func (p *Parser) parseIfExpr() ast.Expression {
	start := p.advance() // if
	if p.comptimeDepth == 0 {
		p.errorf(start.Span, diagnostics.ESyntaxUnexpectedToken,
			"`if` is only allowed inside `comptime` blocks; use `match` instead")
	}
	cond := p.parseExpression(precLowest)
	then := p.parseBlockOrInlineExpr()
	e := &ast.If{Cond: cond, Then: then}
	save := p.mark()
	p.skipNewlines()
	if p.accept(token.KW_ELSE) {
		e.Else = p.parseBlockOrInlineExpr()
	} else {
		p.resetTo(save)
	}
	e.SetSpan(p.spanFrom(start))
	return e
}
