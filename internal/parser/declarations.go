package parser

import (
	"strings"
	"unicode"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/token"
)

// ParseModule parses the whole file into a Module.
func (p *Parser) ParseModule() *ast.Module {
	mod := &ast.Module{}
	if len(p.toks) > 0 {
		first := p.toks[0].Span
		last := p.toks[len(p.toks)-1].Span
		mod.FileSpan = first.Union(last)
	}

	p.skipNewlines()
	if p.at(token.KW_MODULE) {
		p.advance()
		p.expect(token.TYPE_IDENT, "after `module`")
		p.skipNewlines()
	}

	for !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		switch p.cur().Kind {
		case token.KW_NARRATIVE:
			p.parseNarrative(mod)
		case token.KW_TYPE:
			if td := p.parseTypeDef(); td != nil {
				mod.Types = append(mod.Types, td)
			}
		case token.CONST_IDENT:
			if cd := p.parseConstantDef(); cd != nil {
				mod.Constants = append(mod.Constants, cd)
			}
		case token.KW_FOREIGN:
			if fb := p.parseForeignBlock(); fb != nil {
				mod.Foreign = append(mod.Foreign, fb)
			}
		case token.KW_INVARIANT_NETWORK:
			if n := p.parseInvariantNetwork(); n != nil {
				mod.Networks = append(mod.Networks, n)
			}
		case token.KW_MAIN:
			if m := p.parseMainDef(); m != nil {
				if mod.Main != nil {
					p.errorf(m.Span(), diagnostics.ESyntaxUnexpectedToken, "duplicate `main` definition")
				} else {
					mod.Main = m
				}
			}
		case token.TYPE_IDENT:
			// A module-body import begins with a TYPE_IDENT (spec.md §4.2
			// "Imports").
			mod.Imports = append(mod.Imports, p.parseImport()...)
		default:
			if p.cur().IsVerb() {
				if f := p.parseFunctionDef(); f != nil {
					mod.Functions = append(mod.Functions, f)
				}
				continue
			}
			p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
				"expected a declaration, found %s", p.describe(p.cur()))
			p.skipLine()
		}
	}
	return mod
}

func (p *Parser) parseNarrative(mod *ast.Module) {
	p.advance() // narrative
	t := p.cur()
	if t.Kind == token.STRING || t.Kind == token.TRIPLE_STRING {
		p.advance()
		var b strings.Builder
		for _, s := range t.Segments {
			b.WriteString(s.Text)
		}
		mod.Narrative = b.String()
	} else {
		p.errorf(t.Span, diagnostics.ESyntaxUnexpectedToken, "expected a string after `narrative`")
		p.skipLine()
		return
	}
	p.endOfLine("after narrative")
}

// parseImport parses `ModuleName group {, group}` where a group is an
// optional verb keyword (or the literal `types`) qualifying the
// space-separated identifiers that follow (spec.md §4.2 "Imports").
func (p *Parser) parseImport() []*ast.Import {
	start := p.advance() // TYPE_IDENT module name
	modName := start.Text

	var out []*ast.Import
	for {
		verb := ""
		if p.cur().IsVerb() {
			verb = p.advance().Text
		} else if p.at(token.IDENT) && p.cur().Text == "types" {
			verb = "types"
			p.advance()
		}
		var names []string
		for p.at(token.IDENT) || p.at(token.TYPE_IDENT) || p.at(token.CONST_IDENT) {
			names = append(names, p.advance().Text)
		}
		if len(names) == 0 {
			p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
				"expected imported names after module `%s`", modName)
			p.skipLine()
			return out
		}
		out = append(out, ast.NewImport(p.spanFrom(start), modName, verb, names))
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.endOfLine("after import")
	return out
}

// parseTypeDef parses `type Name is TypeExpr` where TypeExpr may be an
// algebraic variant list, a record, a refinement, or an alias.
func (p *Parser) parseTypeDef() *ast.TypeDef {
	start := p.advance() // type
	nameTok := p.cur()
	name := ""
	switch nameTok.Kind {
	case token.TYPE_IDENT:
		name = p.advance().Text
	case token.IDENT, token.CONST_IDENT:
		// Wrong case at a declaration site is an error, not a warning, with
		// a rewritten-name hint (spec.md §4.4 "Casing enforcement").
		name = p.advance().Text
		fixed := toCamelCase(name)
		p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
			diagnostics.ECasingDeclSite, nameTok.Span,
			"type names must be CamelCase").
			WithSuggestion("rename to `"+fixed+"`", nameTok.Span, fixed))
		name = fixed
	default:
		p.errorf(nameTok.Span, diagnostics.ESyntaxUnexpectedToken, "expected a type name after `type`")
		p.skipLine()
		return nil
	}
	p.expect(token.KW_IS, "in type declaration")

	typ := p.parseTypeDefBody()
	td := &ast.TypeDef{Name: name, Type: typ, Doc: start.Doc}
	td.SetSpan(p.spanFrom(start))
	p.endOfLine("after type declaration")
	return td
}

// parseConstantDef parses `CONST_NAME [as Type] = expr`.
func (p *Parser) parseConstantDef() *ast.ConstantDef {
	start := p.advance() // CONST_IDENT
	var typ ast.TypeExpr
	if p.accept(token.KW_AS) {
		if !p.at(token.ASSIGN) {
			typ = p.parseTypeExpr()
		}
	}
	p.expect(token.ASSIGN, "in constant declaration")
	value := p.parseExpression(precLowest)
	cd := &ast.ConstantDef{Name: start.Text, Type: typ, Value: value}
	cd.SetSpan(p.spanFrom(start))
	p.endOfLine("after constant declaration")
	return cd
}

// parseForeignBlock parses
//
//	foreign "libname"
//	    name(Type, ...) ReturnType = "c_symbol"
//
// where the `= "c_symbol"` part defaults to the prv-side name (spec.md §3
// "ForeignBlock", §4.6 "Foreign block").
func (p *Parser) parseForeignBlock() *ast.ForeignBlock {
	start := p.advance() // foreign
	libTok := p.cur()
	lib := ""
	if libTok.Kind == token.STRING {
		p.advance()
		for _, s := range libTok.Segments {
			lib += s.Text
		}
	} else {
		p.errorf(libTok.Span, diagnostics.ESyntaxUnexpectedToken, "expected a library name string after `foreign`")
	}
	fb := &ast.ForeignBlock{Library: lib}

	p.skipNewlines()
	if !p.accept(token.INDENT) {
		fb.SetSpan(p.spanFrom(start))
		return fb
	}
	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.DEDENT) || p.at(token.EOF) {
			break
		}
		nameTok := p.expect(token.IDENT, "as a foreign function name")
		ff := ast.ForeignFunc{Name: nameTok.Text, CName: nameTok.Text, Span: nameTok.Span}
		p.expect(token.LPAREN, "in foreign function signature")
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			ff.Params = append(ff.Params, p.parseTypeExpr())
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN, "closing foreign parameter list")
		if p.at(token.TYPE_IDENT) {
			ff.ReturnType = p.parseTypeExpr()
		}
		if p.accept(token.ASSIGN) {
			cTok := p.expect(token.STRING, "as the bound C symbol name")
			cname := ""
			for _, s := range cTok.Segments {
				cname += s.Text
			}
			if cname != "" {
				ff.CName = cname
			}
		}
		ff.Span = nameTok.Span.Union(p.spanFrom(nameTok))
		fb.Functions = append(fb.Functions, ff)
		p.skipNewlines()
	}
	p.accept(token.DEDENT)
	fb.SetSpan(p.spanFrom(start))
	return fb
}

// parseInvariantNetwork parses `invariant_network Name` with an indented
// block of invariant expressions.
func (p *Parser) parseInvariantNetwork() *ast.InvariantNetwork {
	start := p.advance() // invariant_network
	nameTok := p.expect(token.TYPE_IDENT, "after `invariant_network`")
	n := &ast.InvariantNetwork{Name: nameTok.Text}
	p.skipNewlines()
	if p.accept(token.INDENT) {
		for !p.at(token.DEDENT) && !p.at(token.EOF) {
			p.skipNewlines()
			if p.at(token.DEDENT) || p.at(token.EOF) {
				break
			}
			n.Invariants = append(n.Invariants, p.parseExpression(precLowest))
			p.skipNewlines()
		}
		p.accept(token.DEDENT)
	}
	n.SetSpan(p.spanFrom(start))
	return n
}

// parseMainDef parses `main()!` plus annotations and body.
func (p *Parser) parseMainDef() *ast.MainDef {
	start := p.advance() // main
	p.expect(token.LPAREN, "after `main`")
	p.expect(token.RPAREN, "after `main(`")
	m := &ast.MainDef{}
	if p.at(token.BANG) {
		p.advance()
		m.Fails = true
	}
	p.skipNewlines()
	m.Annotations = p.parseAnnotations()
	m.Body = p.parseFunctionBody("main", nil)
	m.SetSpan(p.spanFrom(start))
	return m
}

// parseFunctionDef parses a verb-prefixed function declaration (spec.md
// §4.2 "Verb-prefixed functions").
func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	start := p.advance() // verb keyword
	verb := start.Text

	nameTok := p.cur()
	name := ""
	switch nameTok.Kind {
	case token.IDENT:
		name = p.advance().Text
	case token.TYPE_IDENT, token.CONST_IDENT:
		name = p.advance().Text
		fixed := toSnakeCase(name)
		p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
			diagnostics.ECasingDeclSite, nameTok.Span,
			"function names must be snake_case").
			WithSuggestion("rename to `"+fixed+"`", nameTok.Span, fixed))
		name = fixed
	default:
		p.errorf(nameTok.Span, diagnostics.ESyntaxUnexpectedToken,
			"expected a function name after `%s`", verb)
		p.skipLine()
		return nil
	}

	f := &ast.FunctionDef{Verb: verb, Name: name, Doc: start.Doc}

	p.expect(token.LPAREN, "in function signature")
	f.Params = p.parseParams()
	p.expect(token.RPAREN, "closing parameter list")

	if p.at(token.TYPE_IDENT) || p.at(token.LBRACE) {
		retStart := p.cur()
		f.ReturnType = p.parseTypeExpr()
		if verb == "validates" {
			// validates rejects an explicit return type at parse (spec.md
			// §4.2, E360).
			p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
				diagnostics.EValidatesReturnType, retStart.Span.Union(p.spanFrom(retStart)),
				"`validates` functions have an implicit Boolean return").
				WithNote("drop the return type; `"+name+"` already returns Boolean"))
			f.ReturnType = nil
		}
	}

	if p.at(token.BANG) {
		bang := p.advance()
		if verb == "inputs" || verb == "outputs" {
			f.Fails = true
		} else {
			// Pure verbs reject the fail marker at parse (spec.md §4.2,
			// E361).
			p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
				diagnostics.EFailMarkerMisuse, bang.Span,
				"`"+verb+"` functions cannot declare the `!` fail marker").
				WithNote("only `inputs`, `outputs`, and `main` may fail"))
		}
	}

	p.skipNewlines()
	f.Annotations = p.parseAnnotations()
	f.Body = p.parseFunctionBody(verb, f.Params)
	f.SetSpan(p.spanFrom(start))
	return f
}

// parseParams parses the parenthesized parameter list: each parameter is
// `identifier TypeExpr [where predicate]` (spec.md §3 "FunctionDef").
func (p *Parser) parseParams() []ast.Param {
	var out []ast.Param
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		nameTok := p.cur()
		if nameTok.Kind != token.IDENT {
			if nameTok.Kind == token.TYPE_IDENT || nameTok.Kind == token.CONST_IDENT {
				fixed := toSnakeCase(nameTok.Text)
				p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
					diagnostics.ECasingDeclSite, nameTok.Span,
					"parameter names must be snake_case").
					WithSuggestion("rename to `"+fixed+"`", nameTok.Span, fixed))
				nameTok.Text = fixed
			} else {
				p.errorf(nameTok.Span, diagnostics.ESyntaxUnexpectedToken,
					"expected a parameter name, found %s", p.describe(nameTok))
				p.advance()
				continue
			}
		}
		p.advance()
		param := ast.Param{Name: nameTok.Text, Span: nameTok.Span}
		param.Type = p.parseTypeExprNoWhere()
		if p.accept(token.KW_WHERE) {
			param.Where = p.parseExpression(precLowest)
		}
		param.Span = nameTok.Span.Union(p.spanFrom(nameTok))
		out = append(out, param)
		if !p.accept(token.COMMA) {
			break
		}
	}
	return out
}

// parseFunctionBody parses `from` and the indented body. For `matches` the
// body is always an implicit match; for `inputs` it is one when the arms
// syntactically start with patterns (the algebraic-first-parameter rule is
// confirmed post-resolution) (spec.md §4.2 "Body").
func (p *Parser) parseFunctionBody(verb string, params []ast.Param) *ast.Body {
	p.skipNewlines()
	fromTok := p.cur()
	if !p.accept(token.KW_FROM) {
		p.diags = append(p.diags, diagnostics.New(diagnostics.SeverityError,
			diagnostics.ESyntaxMissingFrom, fromTok.Span,
			"expected `from` before the function body"))
		return &ast.Body{BodySpan: fromTok.Span}
	}
	p.skipNewlines()
	body := &ast.Body{BodySpan: fromTok.Span}
	if !p.accept(token.INDENT) {
		p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
			"expected an indented body after `from`")
		return body
	}

	implicit := verb == "matches" || p.looksLikeMatchArm()
	body.IsImplicitMatch = implicit

	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.DEDENT) || p.at(token.EOF) {
			break
		}
		if implicit {
			body.Arms = append(body.Arms, p.parseMatchArm())
		} else {
			body.Statements = append(body.Statements, p.parseStatement())
		}
		p.skipNewlines()
	}
	p.accept(token.DEDENT)
	body.BodySpan = fromTok.Span.Union(p.spanFrom(fromTok))
	return body
}

// looksLikeMatchArm scans the current logical line for a top-level `=>`,
// which marks an implicit-match arm rather than a statement.
func (p *Parser) looksLikeMatchArm() bool {
	depth := 0
	for i := 0; ; i++ {
		t := p.peek(i)
		switch t.Kind {
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACKET, token.RBRACE:
			depth--
		case token.FAT_ARROW:
			if depth == 0 {
				return true
			}
		case token.ASSIGN, token.NEWLINE, token.INDENT, token.DEDENT, token.EOF:
			if depth == 0 {
				return false
			}
		}
		if t.Kind == token.EOF {
			return false
		}
	}
}

// parseStatement parses one body statement: VarDecl, Assignment, or an
// expression (spec.md §4.2 "Body").
func (p *Parser) parseStatement() ast.Statement {
	start := p.cur()
	if start.Kind == token.IDENT {
		switch p.peek(1).Kind {
		case token.KW_AS:
			p.advance() // name
			p.advance() // as
			var typ ast.TypeExpr
			if !p.at(token.ASSIGN) {
				typ = p.parseTypeExpr()
			}
			p.expect(token.ASSIGN, "in variable declaration")
			value := p.parseExpression(precLowest)
			vd := &ast.VarDecl{Name: start.Text, Type: typ, Value: value}
			vd.SetSpan(p.spanFrom(start))
			p.endOfLine("after variable declaration")
			return vd
		case token.ASSIGN:
			p.advance() // name
			p.advance() // =
			value := p.parseExpression(precLowest)
			a := &ast.Assignment{Name: start.Text, Value: value}
			a.SetSpan(p.spanFrom(start))
			p.endOfLine("after assignment")
			return a
		}
	}
	expr := p.parseExpression(precLowest)
	st := &ast.ExprStmt{Value: expr}
	if expr != nil {
		st.SetSpan(expr.Span())
	} else {
		st.SetSpan(start.Span)
		p.skipLine()
	}
	p.endOfLine("after expression")
	return st
}

// endOfLine expects the current logical line to be over.
func (p *Parser) endOfLine(context string) {
	switch p.cur().Kind {
	case token.NEWLINE:
		p.advance()
	case token.EOF, token.DEDENT, token.INDENT:
	default:
		p.errorf(p.cur().Span, diagnostics.ESyntaxUnexpectedToken,
			"unexpected %s %s", p.describe(p.cur()), context)
		p.skipLine()
	}
}

// toSnakeCase rewrites CamelCase or UPPER_CASE to snake_case for the casing
// diagnostic's hint (spec.md §4.4 "Casing enforcement").
func toSnakeCase(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			continue
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		b.WriteRune(r)
	}
	return strings.ReplaceAll(b.String(), "__", "_")
}

// toCamelCase rewrites snake_case or UPPER_CASE to CamelCase.
func toCamelCase(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range strings.ToLower(name) {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
