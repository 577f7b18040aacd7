package checker

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

func (c *checker) checkCall(call *ast.Call, expected typesystem.Type) typesystem.Type {
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		chosen := c.pickCandidate(callee, call.Args, expected, nil)
		if chosen < 0 {
			for _, a := range call.Args {
				c.checkExpr(a, nil)
			}
			return nil
		}
		return c.finishCall(call, chosen)

	case *ast.TypeIdentifier:
		return c.checkConstructorCall(call, callee)

	default:
		calleeT := c.checkExpr(call.Callee, nil)
		ft, ok := typesystem.Base(orUnit(calleeT)).(typesystem.Function)
		if !ok {
			c.errorf(call.Callee.Span(), diagnostics.ETypeUnify,
				"cannot call a value of type %s", orUnit(calleeT).String())
			for _, a := range call.Args {
				c.checkExpr(a, nil)
			}
			return nil
		}
		if len(call.Args) != len(ft.Params) {
			c.errorf(call.Span(), diagnostics.ETypeArity,
				"wrong number of arguments: expected %d, got %d", len(ft.Params), len(call.Args))
		}
		for i, a := range call.Args {
			if i < len(ft.Params) {
				got := c.checkExpr(a, ft.Params[i])
				c.expectAssignable(a, got, ft.Params[i])
			} else {
				c.checkExpr(a, nil)
			}
		}
		return ft.Return
	}
}

// pickCandidate applies the context-aware call resolution rules of spec.md
// §4.3 in order:
//  1. Boolean expected type selects the validates variant.
//  2. An expected type equal to exactly one candidate's return selects it.
//  3. Parameter unification against the argument expressions filters.
//  4. The dispatch-preference verb order breaks remaining ties.
//  5. Anything still plural is an ambiguity diagnostic.
//
// Returns -1 when no candidate survives (the error is already reported).
func (c *checker) pickCandidate(ident *ast.Identifier, args []ast.Expression, expected typesystem.Type, filter func(*symbols.Symbol) bool) symbols.ID {
	// A local binding (e.g. a function-typed parameter) shadows the table.
	if _, isLocal := c.lookupLocal(ident.Name); isLocal {
		return -1
	}

	all := c.res.Root.CandidatesByName(ident.Name)
	var cands []symbols.ID
	for _, id := range all {
		sym := c.table.Get(id)
		if filter != nil && !filter(sym) {
			continue
		}
		ft, ok := sym.Type.(typesystem.Function)
		if !ok || len(ft.Params) != len(args) {
			continue
		}
		cands = append(cands, id)
	}

	switch len(cands) {
	case 0:
		if len(all) == 0 {
			return -1 // unknown identifier, reported by the resolver
		}
		c.errorf(ident.Span(), diagnostics.ETypeArity,
			"no variant of `%s` takes %d arguments", ident.Name, len(args))
		return -1
	case 1:
		return cands[0]
	}

	// Rule 1: a Boolean expectation selects the validates variant.
	if expected != nil && typesystem.Equal(typesystem.Base(expected), typesystem.Boolean()) {
		var validates []symbols.ID
		for _, id := range cands {
			if c.table.Get(id).Verb == "validates" {
				validates = append(validates, id)
			}
		}
		if len(validates) == 1 {
			return validates[0]
		}
		if len(validates) > 1 {
			cands = validates
		}
	}

	// Rule 2: the expected type equals the return type of exactly one.
	if expected != nil {
		var matches []symbols.ID
		for _, id := range cands {
			ft := c.table.Get(id).Type.(typesystem.Function)
			if typesystem.Equal(typesystem.Base(ft.Return), typesystem.Base(expected)) {
				matches = append(matches, id)
			}
		}
		if len(matches) == 1 {
			return matches[0]
		}
		if len(matches) > 1 {
			cands = matches
		}
	}

	// Rule 3: unify each candidate's parameters against the arguments.
	argTypes := c.probeArgTypes(args)
	var unifiable []symbols.ID
	for _, id := range cands {
		ft := c.table.Get(id).Type.(typesystem.Function)
		if paramsUnify(ft.Params, argTypes) {
			unifiable = append(unifiable, id)
		}
	}
	if len(unifiable) == 1 {
		return unifiable[0]
	}
	if len(unifiable) > 1 {
		cands = unifiable
	}

	// Rule 4: dispatch preference order.
	best := cands[0]
	bestRank := verbRank(c.table.Get(best).Verb)
	tie := false
	for _, id := range cands[1:] {
		r := verbRank(c.table.Get(id).Verb)
		switch {
		case r < bestRank:
			best, bestRank, tie = id, r, false
		case r == bestRank:
			tie = true
		}
	}
	if !tie {
		return best
	}

	// Rule 5: ambiguity.
	c.errorf(ident.Span(), diagnostics.EResAmbiguousCall,
		"ambiguous call to `%s`; candidates: %s", ident.Name, candidateList(c.table, cands))
	return -1
}

// probeArgTypes synthesizes argument types without emitting diagnostics or
// recording side tables; the chosen candidate's final pass re-checks them
// with real expected types.
func (c *checker) probeArgTypes(args []ast.Expression) []typesystem.Type {
	c.quiet++
	out := make([]typesystem.Type, len(args))
	for i, a := range args {
		out[i] = c.checkExpr(a, nil)
	}
	c.quiet--
	return out
}

func paramsUnify(params, args []typesystem.Type) bool {
	if len(params) != len(args) {
		return false
	}
	s := typesystem.Subst{}
	for i := range params {
		if args[i] == nil {
			continue
		}
		var err error
		s, err = typesystem.Unify(params[i], args[i], s)
		if err != nil {
			return false
		}
	}
	return true
}

// finishCall checks the call against the chosen symbol: arity, argument
// typing with generic substitution, refinement discharge per argument,
// purity enforcement, and call-graph bookkeeping.
func (c *checker) finishCall(call *ast.Call, symID symbols.ID) typesystem.Type {
	sym := c.table.Get(symID)
	ft, ok := sym.Type.(typesystem.Function)
	if !ok {
		return sym.Type
	}

	if ident, isIdent := call.Callee.(*ast.Identifier); isIdent && c.quiet == 0 {
		c.res.Uses[ident] = symID
		ident.SetExprType(sym.Type)
	}
	call.ResolvedVerb = sym.Verb

	c.enforcePurity(call, sym)
	c.recordCallEdge(call, sym)

	if len(call.Args) != len(ft.Params) {
		c.errorf(call.Span(), diagnostics.ETypeArity,
			"wrong number of arguments to `%s`: expected %d, got %d",
			sym.Name, len(ft.Params), len(call.Args))
	}

	subst := typesystem.Subst{}
	for i, a := range call.Args {
		if i >= len(ft.Params) {
			c.checkExpr(a, nil)
			continue
		}
		expectedParam := ft.Params[i].Apply(subst)
		got := c.checkExpr(a, expectedParam)
		if got != nil {
			next, err := typesystem.Unify(ft.Params[i], got, subst)
			if err != nil {
				c.errorf(a.Span(), diagnostics.ETypeUnify,
					"argument %d of `%s`: expected %s, got %s",
					i+1, sym.Name, expectedParam.String(), got.String())
			} else {
				subst = next
			}
		}
		c.checkRefinedAssignment(a, a, got, ft.Params[i])
	}

	// Monomorphization: each generic instantiation is recorded per module
	// (spec.md §4.4 "Generics").
	if sym.Kind == symbols.KindFunction && len(ft.FreeVars()) > 0 {
		resolved := make([]typesystem.Type, len(ft.Params))
		for i, p := range ft.Params {
			resolved[i] = p.Apply(subst)
		}
		c.recordMonomorph(symID, sym.Name, resolved)
	}

	ret := ft.Return.Apply(subst)
	if ft.Fails && sym.Kind == symbols.KindFunction {
		// A fallible user function yields its declared type wrapped in
		// Result at the call boundary; the declared return is the Ok arm.
		if _, already := typesystem.Base(ret).(typesystem.Result); !already {
			ret = typesystem.Result{Ok: ret, Err: typesystem.StringT()}
		}
	}
	return c.namedType(ret)
}

// enforcePurity applies E362/E363: pure verbs cannot call IO builtins nor
// user inputs/outputs functions (spec.md §4.4 "Verb purity").
func (c *checker) enforcePurity(call *ast.Call, callee *symbols.Symbol) {
	if !config.PureVerbs[c.curVerb] {
		return
	}
	if callee.Kind == symbols.KindBuiltinFunction && config.IOBuiltins[callee.Name] {
		c.errorf(call.Span(), diagnostics.EPureCallsIO,
			"`%s` functions cannot call the IO builtin `%s`", c.curVerb, callee.Name)
		return
	}
	if callee.Kind == symbols.KindFunction && (callee.Verb == "inputs" || callee.Verb == "outputs") {
		c.errorf(call.Span(), diagnostics.EPureCallsEffectful,
			"`%s` functions cannot call the `%s` function `%s`", c.curVerb, callee.Verb, callee.Name)
	}
}

func (c *checker) recordCallEdge(call *ast.Call, callee *symbols.Symbol) {
	if c.quiet > 0 || callee.Kind != symbols.KindFunction || c.curFnSym < 0 {
		return
	}
	edges, ok := c.calls[c.curFnSym]
	if !ok {
		edges = map[symbols.ID]bool{}
		c.calls[c.curFnSym] = edges
	}
	edges[callee.ID] = true
	// Every same-module call site is kept: whether it is a recursive one
	// (direct, or a cycle edge like A→B where B reaches back to A) is only
	// known once the whole call graph exists, so checkRecursion filters.
	c.callSites[c.curFnSym] = append(c.callSites[c.curFnSym], callSite{callee: callee.ID, call: call})
}

func (c *checker) checkConstructorCall(call *ast.Call, callee *ast.TypeIdentifier) typesystem.Type {
	id, ok := c.res.Uses[callee]
	if !ok {
		for _, a := range call.Args {
			c.checkExpr(a, nil)
		}
		return nil
	}
	sym := c.table.Get(id)
	ft, isFn := sym.Type.(typesystem.Function)
	if !isFn {
		c.errorf(callee.Span(), diagnostics.ETypeUnify,
			"`%s` is not a constructor", callee.Name)
		for _, a := range call.Args {
			c.checkExpr(a, nil)
		}
		return sym.Type
	}
	if len(call.Args) != len(ft.Params) {
		c.errorf(call.Span(), diagnostics.ETypeArity,
			"constructor `%s` takes %d fields, got %d", callee.Name, len(ft.Params), len(call.Args))
	}
	subst := typesystem.Subst{}
	for i, a := range call.Args {
		if i >= len(ft.Params) {
			c.checkExpr(a, nil)
			continue
		}
		got := c.checkExpr(a, ft.Params[i].Apply(subst))
		if got != nil {
			next, err := typesystem.Unify(ft.Params[i], got, subst)
			if err != nil {
				c.errorf(a.Span(), diagnostics.ETypeUnify,
					"field %d of `%s`: expected %s, got %s",
					i+1, callee.Name, ft.Params[i].Apply(subst).String(), got.String())
			} else {
				subst = next
			}
		}
		c.checkRefinedAssignment(a, a, got, ft.Params[i])
	}
	return c.namedType(ft.Return.Apply(subst))
}
