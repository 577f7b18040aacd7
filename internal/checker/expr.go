package checker

import (
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// checkExpr is the bidirectional core: expected is the contextual type
// (nil when synthesizing). The returned type is recorded on the node so
// every typed expression carries a non-null type after the checker
// (spec.md §3 invariants).
func (c *checker) checkExpr(e ast.Expression, expected typesystem.Type) typesystem.Type {
	if e == nil {
		return nil
	}
	t := c.checkExprInner(e, expected)
	if t == nil {
		t = typesystem.Unit{}
	}
	e.SetExprType(t)
	return t
}

func (c *checker) checkExprInner(e ast.Expression, expected typesystem.Type) typesystem.Type {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return typesystem.Integer()
	case *ast.DecimalLiteral:
		return typesystem.Decimal()
	case *ast.BooleanLiteral:
		return typesystem.Boolean()
	case *ast.RegexLiteral:
		return typesystem.Primitive{Name: "String"}
	case *ast.StringLiteral:
		for _, seg := range v.Segments {
			if seg.Expr != nil {
				c.checkExpr(seg.Expr, nil)
			}
		}
		return typesystem.StringT()

	case *ast.Identifier:
		return c.checkIdentifier(v, expected)

	case *ast.TypeIdentifier:
		return c.checkTypeIdentifier(v)

	case *ast.Call:
		return c.checkCall(v, expected)

	case *ast.Field:
		return c.checkField(v)

	case *ast.Pipe:
		return c.checkPipe(v, expected)

	case *ast.FailProp:
		return c.checkFailProp(v)

	case *ast.Lambda:
		return c.checkLambda(v, expected)

	case *ast.Valid:
		return c.checkValid(v)

	case *ast.Match:
		scrutType := c.checkExpr(v.Scrutinee, nil)
		return c.checkMatchArms(v.Span(), scrutType, v.Arms, expected, c.scrutineeParamName(v.Scrutinee))

	case *ast.If:
		c.expectAssignable(v.Cond, c.checkExpr(v.Cond, typesystem.Boolean()), typesystem.Boolean())
		thenT := c.checkExpr(v.Then, expected)
		if v.Else != nil {
			elseT := c.checkExpr(v.Else, expected)
			if thenT != nil && elseT != nil {
				c.expectAssignable(v.Else, elseT, thenT)
			}
		}
		return thenT

	case *ast.BinaryOp:
		return c.checkBinaryOp(v)

	case *ast.UnaryOp:
		if v.Op == ast.OpNot {
			got := c.checkExpr(v.Inner, typesystem.Boolean())
			c.expectAssignable(v.Inner, got, typesystem.Boolean())
			return typesystem.Boolean()
		}
		got := c.checkExpr(v.Inner, expected)
		if got != nil && !isNumeric(got) {
			c.errorf(v.Span(), diagnostics.ETypeUnify,
				"unary `-` needs a numeric operand, got %s", got.String())
		}
		return got

	case *ast.Parenthesized:
		return c.checkExpr(v.Inner, expected)

	case *ast.ListLiteral:
		var elem typesystem.Type
		if lst, ok := typesystem.Base(orUnit(expected)).(typesystem.List); ok {
			elem = lst.Elem
		}
		for _, el := range v.Elements {
			got := c.checkExpr(el, elem)
			if elem == nil {
				elem = got
			} else {
				c.expectAssignable(el, got, elem)
			}
		}
		if elem == nil {
			elem = typesystem.GenericParam{Name: "T"}
		}
		return typesystem.List{Elem: elem}

	case *ast.Range:
		c.expectAssignable(v.Low, c.checkExpr(v.Low, typesystem.Integer()), typesystem.Integer())
		c.expectAssignable(v.High, c.checkExpr(v.High, typesystem.Integer()), typesystem.Integer())
		return typesystem.List{Elem: typesystem.Integer()}
	}
	return nil
}

func orUnit(t typesystem.Type) typesystem.Type {
	if t == nil {
		return typesystem.Unit{}
	}
	return t
}

// expectAssignable reports a unification failure between got and want.
func (c *checker) expectAssignable(at ast.Expression, got, want typesystem.Type) {
	if got == nil || want == nil {
		return
	}
	if _, err := typesystem.Unify(got, want, typesystem.Subst{}); err != nil {
		c.errorf(at.Span(), diagnostics.ETypeUnify,
			"type mismatch: expected %s, got %s", want.String(), got.String())
	}
}

func (c *checker) checkIdentifier(v *ast.Identifier, expected typesystem.Type) typesystem.Type {
	if t, ok := c.lookupLocal(v.Name); ok {
		return t
	}
	if id, ok := c.res.Uses[v]; ok {
		return c.table.Get(id).Type
	}
	cands := c.res.Root.CandidatesByName(v.Name)
	if len(cands) == 0 {
		return nil // resolver reported the unknown identifier
	}
	// A bare reference to an overloaded name: the expected type decides.
	if expected != nil {
		for _, id := range cands {
			if typesystem.Equal(c.table.Get(id).Type, expected) {
				c.res.Uses[v] = id
				return c.table.Get(id).Type
			}
		}
	}
	if len(cands) == 1 {
		c.res.Uses[v] = cands[0]
		return c.table.Get(cands[0]).Type
	}
	c.errorf(v.Span(), diagnostics.EResAmbiguousCall,
		"`%s` has several verb-variants; qualify the use or call it", v.Name)
	return nil
}

func (c *checker) checkTypeIdentifier(v *ast.TypeIdentifier) typesystem.Type {
	id, ok := c.res.Uses[v]
	if !ok {
		return nil
	}
	sym := c.table.Get(id)
	if sym.Kind == symbols.KindVariantConstructor {
		ft := sym.Type.(typesystem.Function)
		if len(ft.Params) == 0 {
			return c.namedType(ft.Return) // nullary constructor is the value itself
		}
		return ft
	}
	return sym.Type
}

// namedType swaps a shallow nominal stub for the full definition.
func (c *checker) namedType(t typesystem.Type) typesystem.Type {
	if alg, ok := t.(typesystem.Algebraic); ok && len(alg.Variants) == 0 {
		if full, ok := c.res.NamedTypes[alg.Name]; ok {
			return full
		}
	}
	return t
}

func (c *checker) scrutineeParamName(e ast.Expression) string {
	if ident, ok := e.(*ast.Identifier); ok {
		return ident.Name
	}
	return ""
}

func (c *checker) checkField(v *ast.Field) typesystem.Type {
	recvT := c.checkExpr(v.Receiver, nil)
	if recvT == nil {
		return nil
	}
	base := typesystem.Base(recvT)
	if rec, ok := base.(typesystem.Record); ok {
		full := rec
		if len(rec.Fields) == 0 {
			if named, ok := c.res.NamedTypes[rec.Name].(typesystem.Record); ok {
				full = named
			}
		}
		if f, ok := full.FieldByName(v.Name); ok {
			return f.Type
		}
	}
	c.errorf(v.Span(), diagnostics.ETypeUnify,
		"%s has no field `%s`", base.String(), v.Name)
	return nil
}

// checkPipe desugars `a |> f` to `f(a)` at the typed-AST stage: if the
// right side is a call missing its final argument, the pipe result is
// argument-appended; otherwise wrapped as a call (spec.md §4.2).
func (c *checker) checkPipe(v *ast.Pipe, expected typesystem.Type) typesystem.Type {
	var call *ast.Call
	switch rhs := v.Right.(type) {
	case *ast.Call:
		call = &ast.Call{Callee: rhs.Callee, Args: append(append([]ast.Expression(nil), rhs.Args...), v.Left)}
		call.SetSpan(v.Span())
	default:
		call = &ast.Call{Callee: v.Right, Args: []ast.Expression{v.Left}}
		call.SetSpan(v.Span())
	}
	t := c.checkExpr(call, expected)
	c.out.DesugaredPipes[v] = call
	return t
}

func (c *checker) checkFailProp(v *ast.FailProp) typesystem.Type {
	innerT := c.checkExpr(v.Inner, nil)
	if c.curVerb != "inputs" && c.curVerb != "outputs" && c.curVerb != "main" {
		c.errorf(v.Span(), diagnostics.EFailMarkerMisuse,
			"postfix `!` is only permitted inside `inputs`, `outputs`, and `main`").
			WithNote("the enclosing function is declared `" + c.curVerb + "`")
	} else if !c.curFails {
		c.errorf(v.Span(), diagnostics.EFailMarkerMisuse,
			"postfix `!` needs the enclosing function to declare the `!` fail marker")
	}
	if innerT == nil {
		return nil
	}
	switch t := typesystem.Base(innerT).(type) {
	case typesystem.Result:
		return t.Ok
	case typesystem.Option:
		// Treated as Result<T, Unit> at the emission layer (spec.md §4.4).
		return t.Elem
	default:
		c.errorf(v.Inner.Span(), diagnostics.ETypeUnify,
			"postfix `!` needs a Result or Option, got %s", innerT.String())
		return innerT
	}
}

func (c *checker) checkLambda(v *ast.Lambda, expected typesystem.Type) typesystem.Type {
	var want typesystem.Function
	if f, ok := typesystem.Base(orUnit(expected)).(typesystem.Function); ok {
		want = f
	}

	params := make([]typesystem.Type, len(v.Params))
	for i, p := range v.Params {
		switch {
		case p.Type != nil:
			params[i] = c.lowerType(p.Type)
		case i < len(want.Params):
			params[i] = want.Params[i]
		default:
			params[i] = typesystem.GenericParam{Name: "L" + string(rune('A'+i))}
		}
	}

	// Lambdas are captureless: the body types against the lambda's own
	// parameters only (spec.md §4.4 E364; the resolver reports captures).
	saved := c.env
	c.env = nil
	c.pushFrame()
	for i, p := range v.Params {
		c.bind(p.Name, params[i])
	}
	ret := c.checkExpr(v.Body, want.Return)
	c.popFrame()
	c.env = saved

	verb := want.Verb
	if verb == "" {
		verb = "transforms"
	}
	return typesystem.Function{Verb: verb, Params: params, Return: orUnit(ret)}
}

func (c *checker) checkValid(v *ast.Valid) typesystem.Type {
	switch target := v.Target.(type) {
	case *ast.Identifier:
		// `valid f` binds the validates variant as a first-class reference.
		if id, ok := c.res.Uses[target]; ok {
			return c.table.Get(id).Type
		}
		return nil
	case *ast.Call:
		ident, ok := target.Callee.(*ast.Identifier)
		if !ok {
			c.errorf(v.Span(), diagnostics.ETypeUnify, "`valid` expects a function name")
			return nil
		}
		// `valid f(x)` forces the validates variant and evaluates it.
		chosen := c.pickCandidate(ident, target.Args, typesystem.Boolean(), onlyVerb("validates"))
		if chosen < 0 {
			return typesystem.Boolean()
		}
		c.finishCall(target, chosen)
		target.ResolvedVerb = "validates"
		target.SetExprType(typesystem.Boolean())
		return typesystem.Boolean()
	default:
		c.errorf(v.Span(), diagnostics.ETypeUnify, "`valid` expects a function name")
		return nil
	}
}

func (c *checker) checkBinaryOp(v *ast.BinaryOp) typesystem.Type {
	switch v.Op {
	case ast.OpAnd, ast.OpOr:
		c.expectAssignable(v.Left, c.checkExpr(v.Left, typesystem.Boolean()), typesystem.Boolean())
		c.expectAssignable(v.Right, c.checkExpr(v.Right, typesystem.Boolean()), typesystem.Boolean())
		return typesystem.Boolean()
	case ast.OpEq, ast.OpNotEq:
		leftT := c.checkExpr(v.Left, nil)
		c.checkExpr(v.Right, leftT)
		return typesystem.Boolean()
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		leftT := c.checkExpr(v.Left, nil)
		rightT := c.checkExpr(v.Right, leftT)
		if leftT != nil && !isNumeric(leftT) {
			c.errorf(v.Left.Span(), diagnostics.ETypeUnify,
				"comparison needs numeric operands, got %s", leftT.String())
		}
		_ = rightT
		return typesystem.Boolean()
	default: // arithmetic
		leftT := c.checkExpr(v.Left, nil)
		rightT := c.checkExpr(v.Right, leftT)
		if leftT != nil && !isNumeric(leftT) && !isStringConcat(v.Op, leftT) {
			c.errorf(v.Left.Span(), diagnostics.ETypeUnify,
				"arithmetic needs numeric operands, got %s", leftT.String())
		}
		if leftT != nil && rightT != nil {
			c.expectAssignable(v.Right, rightT, leftT)
		}
		return leftT
	}
}

func isStringConcat(op ast.BinaryOpKind, t typesystem.Type) bool {
	if op != ast.OpAdd {
		return false
	}
	p, ok := typesystem.Base(t).(typesystem.Primitive)
	return ok && p.Name == "String"
}

// lowerType lowers a body-local type expression through the resolver's
// named-type table.
func (c *checker) lowerType(te ast.TypeExpr) typesystem.Type {
	switch v := te.(type) {
	case *ast.SimpleType:
		switch v.Name {
		case "Integer", "Decimal", "Float", "Boolean", "String", "Byte", "Character":
			return typesystem.Primitive{Name: v.Name}
		case "Unit":
			return typesystem.Unit{}
		}
		if t, ok := c.res.NamedTypes[v.Name]; ok {
			return t
		}
		if len(v.Name) == 1 {
			return typesystem.GenericParam{Name: v.Name}
		}
		c.errorf(v.Span(), diagnostics.EResUnknownIdent, "unknown type `%s`", v.Name)
		return typesystem.Unit{}
	case *ast.GenericType:
		args := make([]typesystem.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = c.lowerType(a)
		}
		switch v.Head {
		case "Option":
			if len(args) == 1 {
				return typesystem.Option{Elem: args[0]}
			}
		case "Result":
			if len(args) == 2 {
				return typesystem.Result{Ok: args[0], Err: args[1]}
			}
		case "List":
			if len(args) == 1 {
				return typesystem.List{Elem: args[0]}
			}
		}
		return typesystem.Applied{Head: v.Head, Args: args}
	case *ast.ModifiedType:
		return typesystem.NewModified(c.lowerType(v.Head), v.Modifiers...)
	case *ast.Refinement:
		return typesystem.Refined{Base: c.lowerType(v.Base), Constraint: resolverConstraint(v.Constraint)}
	}
	return typesystem.Unit{}
}

func onlyVerb(verb string) func(*symbols.Symbol) bool {
	return func(s *symbols.Symbol) bool { return s.Verb == verb }
}

// verbRank orders spec.md §4.3's dispatch preference.
func verbRank(verb string) int {
	for i, v := range config.DispatchPreference {
		if v == verb {
			return i
		}
	}
	return len(config.DispatchPreference)
}

func candidateList(table *symbols.Table, ids []symbols.ID) string {
	var parts []string
	for _, id := range ids {
		sym := table.Get(id)
		parts = append(parts, sym.Verb+" "+sym.Name)
	}
	return strings.Join(parts, ", ")
}
