package resolver

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// resolveReferences is pass 2 (spec.md §4.3 "Reference resolution"): walk
// every function body, opening a new scope per lambda, per match arm, and
// per block.
func (r *resolver) resolveReferences() {
	for _, cd := range r.mod.Constants {
		r.resolveExpr(r.root, cd.Value)
	}
	for _, nw := range r.mod.Networks {
		for _, inv := range nw.Invariants {
			r.resolveExpr(r.root, inv)
		}
	}
	for _, fn := range r.mod.Functions {
		r.resolveFunction(fn)
	}
	if r.mod.Main != nil {
		scope := symbols.NewChild(r.root)
		r.resolveAnnotations(scope, r.mod.Main.Annotations, typesystem.Unit{})
		r.resolveBody(scope, r.mod.Main.Body, nil)
	}
}

func (r *resolver) resolveFunction(fn *ast.FunctionDef) {
	scope := symbols.NewChild(r.root)

	var firstParamType typesystem.Type
	var retType typesystem.Type = typesystem.Unit{}
	if symID, ok := r.res.FuncSymbols[fn]; ok {
		if ft, ok := r.table.Get(symID).Type.(typesystem.Function); ok {
			retType = ft.Return
		}
	}

	for i, p := range fn.Params {
		var pt typesystem.Type
		if p.Type != nil {
			pt = r.lower.lowerTypeExpr(p.Type)
		}
		if i == 0 {
			firstParamType = pt
		}
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindParameter, Name: p.Name, Span: p.Span, Type: pt,
		})
		if !scope.Declare(p.Name, id) {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.EResDuplicateCtor, p.Span,
				"duplicate parameter `"+p.Name+"`"))
		}
		if p.Where != nil {
			r.resolveExpr(scope, p.Where)
		}
	}

	r.resolveAnnotations(scope, fn.Annotations, retType)
	r.resolveBody(scope, fn.Body, firstParamType)
}

// resolveAnnotations resolves contract predicates in a scope where the
// pseudo-identifier `result` names the function's return value.
func (r *resolver) resolveAnnotations(scope *symbols.Scope, anns []ast.Annotation, retType typesystem.Type) {
	annScope := symbols.NewChild(scope)
	resultID := r.table.Insert(symbols.Symbol{
		Kind: symbols.KindLocal, Name: "result", Type: retType,
	})
	annScope.Declare("result", resultID)

	for _, a := range anns {
		switch v := a.(type) {
		case *ast.RequiresAnnotation:
			r.resolveExpr(annScope, v.Predicate)
		case *ast.EnsuresAnnotation:
			r.resolveExpr(annScope, v.Predicate)
		case *ast.TerminatesAnnotation:
			r.resolveExpr(annScope, v.Measure)
		case *ast.KnowAnnotation:
			r.resolveExpr(annScope, v.Predicate)
		case *ast.AssumeAnnotation:
			r.resolveExpr(annScope, v.Predicate)
		case *ast.BelieveAnnotation:
			r.resolveExpr(annScope, v.Predicate)
		case *ast.NearMissAnnotation:
			for _, c := range v.Cases {
				r.resolveExpr(annScope, c.Input)
				r.resolveExpr(annScope, c.Expected)
			}
		case *ast.SatisfiesAnnotation:
			if _, ok := r.res.Networks[v.NetworkName]; !ok {
				r.report(diagnostics.New(diagnostics.SeverityError,
					diagnostics.EResUnknownIdent, v.Span(),
					"unknown invariant network `"+v.NetworkName+"`"))
			}
		}
	}
}

func (r *resolver) resolveBody(scope *symbols.Scope, body *ast.Body, firstParamType typesystem.Type) {
	if body == nil {
		return
	}
	if body.IsImplicitMatch {
		for _, arm := range body.Arms {
			r.resolveArm(scope, arm, firstParamType)
		}
		return
	}
	for _, st := range body.Statements {
		switch v := st.(type) {
		case *ast.VarDecl:
			r.resolveExpr(scope, v.Value)
			var t typesystem.Type
			if v.Type != nil {
				t = r.lower.lowerTypeExpr(v.Type)
			}
			id := r.table.Insert(symbols.Symbol{
				Kind: symbols.KindLocal, Name: v.Name, Span: v.Span(), Type: t,
			})
			scope.Declare(v.Name, id)
			r.res.Uses[v] = id
		case *ast.Assignment:
			if id, ok := scope.Lookup(v.Name); ok {
				r.res.Uses[v] = id
			} else {
				r.report(diagnostics.New(diagnostics.SeverityError,
					diagnostics.EResUnknownIdent, v.Span(),
					"unknown identifier `"+v.Name+"`"))
			}
			r.resolveExpr(scope, v.Value)
		case *ast.ExprStmt:
			r.resolveExpr(scope, v.Value)
		}
	}
}

func (r *resolver) resolveArm(scope *symbols.Scope, arm ast.MatchArm, scrutineeType typesystem.Type) {
	armScope := symbols.NewChild(scope)
	r.bindPattern(armScope, arm.Pattern, scrutineeType)
	if arm.Guard != nil {
		r.resolveExpr(armScope, arm.Guard)
	}
	r.resolveExpr(armScope, arm.Body)
}

// bindPattern declares pattern bindings into the arm's scope, taking field
// types from the variant constructor when the pattern names one.
func (r *resolver) bindPattern(scope *symbols.Scope, pat ast.Pattern, expected typesystem.Type) {
	switch v := pat.(type) {
	case *ast.BindingPattern:
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindLocal, Name: v.Name, Span: v.Span(), Type: expected,
		})
		scope.Declare(v.Name, id)
		r.res.Uses[v] = id
	case *ast.VariantPattern:
		ctorID, ok := scope.LookupType(v.Constructor)
		if !ok {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.EResUnknownIdent, v.Span(),
				"unknown variant constructor `"+v.Constructor+"`"))
			for _, sub := range v.Fields {
				r.bindPattern(scope, sub, nil)
			}
			return
		}
		r.res.Uses[v] = ctorID
		ctor := r.table.Get(ctorID)
		var fieldTypes []typesystem.Type
		if ft, ok := ctor.Type.(typesystem.Function); ok {
			fieldTypes = ft.Params
		}
		for i, sub := range v.Fields {
			var ft typesystem.Type
			if i < len(fieldTypes) {
				ft = fieldTypes[i]
			}
			r.bindPattern(scope, sub, ft)
		}
	case *ast.LiteralPattern:
		r.resolveExpr(scope, v.Value)
	}
}

func (r *resolver) resolveExpr(scope *symbols.Scope, e ast.Expression) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.Identifier:
		r.resolveIdentifier(scope, v)
	case *ast.TypeIdentifier:
		if id, ok := scope.LookupType(v.Name); ok {
			r.res.Uses[v] = id
		} else {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.EResUnknownIdent, v.Span(),
				"unknown type or constructor `"+v.Name+"`"))
		}
	case *ast.Call:
		r.resolveExpr(scope, v.Callee)
		for _, a := range v.Args {
			r.resolveExpr(scope, a)
		}
	case *ast.Field:
		r.resolveExpr(scope, v.Receiver)
	case *ast.Pipe:
		r.resolveExpr(scope, v.Left)
		r.resolveExpr(scope, v.Right)
	case *ast.FailProp:
		r.resolveExpr(scope, v.Inner)
	case *ast.Lambda:
		r.resolveLambda(scope, v)
	case *ast.Valid:
		r.resolveValid(scope, v)
	case *ast.Match:
		r.resolveExpr(scope, v.Scrutinee)
		for _, arm := range v.Arms {
			r.resolveArm(scope, arm, nil)
		}
	case *ast.If:
		r.resolveExpr(scope, v.Cond)
		r.resolveExpr(scope, v.Then)
		r.resolveExpr(scope, v.Else)
	case *ast.BinaryOp:
		r.resolveExpr(scope, v.Left)
		r.resolveExpr(scope, v.Right)
	case *ast.UnaryOp:
		r.resolveExpr(scope, v.Inner)
	case *ast.Parenthesized:
		r.resolveExpr(scope, v.Inner)
	case *ast.ListLiteral:
		for _, el := range v.Elements {
			r.resolveExpr(scope, el)
		}
	case *ast.Range:
		r.resolveExpr(scope, v.Low)
		r.resolveExpr(scope, v.High)
	case *ast.StringLiteral:
		for _, seg := range v.Segments {
			if seg.Expr != nil {
				r.resolveExpr(scope, seg.Expr)
			}
		}
	}
}

// resolveIdentifier resolves a value identifier: locals and constants walk
// the scope tree outward; otherwise the root function table's by-name
// candidate set decides (a single candidate binds here; several wait for
// the checker's context-aware resolution — spec.md §4.3).
func (r *resolver) resolveIdentifier(scope *symbols.Scope, v *ast.Identifier) {
	if id, ok := scope.Lookup(v.Name); ok {
		r.res.Uses[v] = id
		return
	}
	cands := scope.CandidatesByName(v.Name)
	switch len(cands) {
	case 0:
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResUnknownIdent, v.Span(),
			"unknown identifier `"+v.Name+"`"))
	case 1:
		r.res.Uses[v] = cands[0]
	default:
		// Multiple verb-variants: left for context-aware call resolution.
	}
}

// resolveLambda resolves a lambda body against a scope whose only locals
// are the lambda's own parameters. A reference that would resolve in the
// enclosing chain but not here is a capture, which lambdas may not do
// (spec.md §4.4 E364).
func (r *resolver) resolveLambda(enclosing *symbols.Scope, v *ast.Lambda) {
	lambdaScope := symbols.NewChild(r.root)
	for _, p := range v.Params {
		var pt typesystem.Type
		if p.Type != nil {
			pt = r.lower.lowerTypeExpr(p.Type)
		}
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindParameter, Name: p.Name, Span: p.Span, Type: pt,
		})
		lambdaScope.Declare(p.Name, id)
	}
	ast.Inspect(v.Body, func(n ast.Node) bool {
		if ti, ok := n.(*ast.TypeIdentifier); ok {
			if id, found := lambdaScope.LookupType(ti.Name); found {
				r.res.Uses[ti] = id
			} else {
				r.report(diagnostics.New(diagnostics.SeverityError,
					diagnostics.EResUnknownIdent, ti.Span(),
					"unknown type or constructor `"+ti.Name+"`"))
			}
			return true
		}
		ident, ok := n.(*ast.Identifier)
		if !ok {
			return true
		}
		if id, found := lambdaScope.Lookup(ident.Name); found {
			r.res.Uses[ident] = id
			return true
		}
		if len(lambdaScope.CandidatesByName(ident.Name)) > 0 {
			return true // module-level function reference, not a capture
		}
		if id, inRoot := r.root.Lookup(ident.Name); inRoot {
			// Module-level constant: visible, not a capture.
			r.res.Uses[ident] = id
			return true
		}
		if _, capturedFromOuter := enclosing.Lookup(ident.Name); capturedFromOuter {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.ELambdaCapture, ident.Span(),
				"lambda captures `"+ident.Name+"` from an enclosing scope").
				WithNote("lambdas are captureless; pass the value as a parameter instead"))
			return true
		}
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResUnknownIdent, ident.Span(),
			"unknown identifier `"+ident.Name+"`"))
		return true
	})
}

// resolveValid checks that the `valid f` target has a validates variant
// and binds it when unique (spec.md §4.3 "The `valid f` syntactic form").
func (r *resolver) resolveValid(scope *symbols.Scope, v *ast.Valid) {
	var name string
	var nameNode ast.Node
	switch t := v.Target.(type) {
	case *ast.Identifier:
		name = t.Name
		nameNode = t
	case *ast.Call:
		if ident, ok := t.Callee.(*ast.Identifier); ok {
			name = ident.Name
			nameNode = ident
		}
		for _, a := range t.Args {
			r.resolveExpr(scope, a)
		}
	}
	if name == "" {
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResUnknownIdent, v.Span(),
			"`valid` expects a function name"))
		return
	}
	var validates []symbols.ID
	for _, id := range scope.CandidatesByName(name) {
		if r.table.Get(id).Verb == "validates" {
			validates = append(validates, id)
		}
	}
	switch len(validates) {
	case 0:
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResUnknownIdent, v.Span(),
			"`"+name+"` has no validates variant"))
	case 1:
		r.res.Uses[nameNode] = validates[0]
	default:
		// Several validates overloads: the checker picks by argument types.
	}
}
