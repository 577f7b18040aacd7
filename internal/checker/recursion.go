package checker

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/symbols"
)

// callSite is one recorded same-module call expression and its callee.
type callSite struct {
	callee symbols.ID
	call   *ast.Call
}

// checkRecursion enforces spec.md §4.4: recursive functions (direct or
// through a same-module cycle) must declare `terminates`, and the measure
// must be provably strictly smaller at each recursive call site by one of
// len-shrink, integer decrement, or algebraic structural shrink. A
// recursive call site is any call whose callee can reach the caller again
// through the module's call graph — a direct self-call or a cycle edge
// such as A→B when B calls back into A.
func (c *checker) checkRecursion() {
	inCycle := c.cyclicFunctions()
	for _, fn := range c.mod.Functions {
		symID, ok := c.res.FuncSymbols[fn]
		if !ok {
			continue
		}
		if !inCycle[symID] {
			continue
		}
		term := terminatesAnnotation(fn)
		if term == nil {
			c.errorf(fn.Span(), diagnostics.ERecursionNoMeasure,
				"recursive function `%s` must declare `terminates: <measure>`", fn.Name)
			continue
		}
		c.checkMeasureDecreases(fn, symID, term)
	}
}

// cyclicFunctions finds every function symbol on a same-module call cycle.
func (c *checker) cyclicFunctions() map[symbols.ID]bool {
	out := map[symbols.ID]bool{}
	for start := range c.calls {
		if c.reaches(start, start) {
			out[start] = true
		}
	}
	return out
}

// reaches reports whether to is reachable from from through at least one
// call edge.
func (c *checker) reaches(from, to symbols.ID) bool {
	seen := map[symbols.ID]bool{}
	stack := []symbols.ID{}
	for next := range c.calls[from] {
		stack = append(stack, next)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for next := range c.calls[cur] {
			stack = append(stack, next)
		}
	}
	return false
}

func terminatesAnnotation(fn *ast.FunctionDef) *ast.TerminatesAnnotation {
	for _, a := range fn.Annotations {
		if t, ok := a.(*ast.TerminatesAnnotation); ok {
			return t
		}
	}
	return nil
}

// checkMeasureDecreases verifies syntactically that the measure's
// parameters shrink at every recursive call site of fn: direct self-calls
// and calls into cycle members that lead back to fn.
func (c *checker) checkMeasureDecreases(fn *ast.FunctionDef, symID symbols.ID, term *ast.TerminatesAnnotation) {
	paramIndex := map[string]int{}
	for i, p := range fn.Params {
		paramIndex[p.Name] = i
	}

	// Parameters the measure depends on.
	measureParams := map[string]bool{}
	ast.Inspect(term.Measure, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Identifier); ok {
			if _, isParam := paramIndex[ident.Name]; isParam {
				measureParams[ident.Name] = true
			}
		}
		return true
	})
	if len(measureParams) == 0 {
		c.errorf(term.Span(), diagnostics.ERecursionNoMeasure,
			"`terminates` measure of `%s` references no parameter", fn.Name)
		return
	}

	for _, site := range c.callSites[symID] {
		// Only edges that land back on fn are recursive: a self-call, or a
		// call into a cycle member whose own calls return here.
		if site.callee != symID && !c.reaches(site.callee, symID) {
			continue
		}
		decreases := false
		for name := range measureParams {
			i := paramIndex[name]
			if site.callee != symID {
				// Cross-cycle edge: parameter positions belong to the
				// callee, so any argument shrinking a measure parameter of
				// the caller counts.
				for _, arg := range site.call.Args {
					if argStrictlySmaller(arg, name, c.patternOrigins) {
						decreases = true
						break
					}
				}
			} else if i < len(site.call.Args) && argStrictlySmaller(site.call.Args[i], name, c.patternOrigins) {
				decreases = true
			}
			if decreases {
				break
			}
		}
		if !decreases {
			callee := c.table.Get(site.callee)
			c.errorf(site.call.Span(), diagnostics.ERecursionNoMeasure,
				"recursive call to `%s` does not shrink `%s`'s `terminates` measure", callee.Name, fn.Name).
				WithNote("pass a decremented integer, a shorter list (e.g. `tail(x)`), or a destructured sub-value")
		}
	}
}

// argStrictlySmaller recognizes the three shrink shapes of spec.md §4.4:
// integer decrement on the parameter, a len-shrinking call over it, or a
// binding destructured out of it by a match pattern.
func argStrictlySmaller(arg ast.Expression, param string, origins map[string]string) bool {
	switch v := arg.(type) {
	case *ast.BinaryOp:
		if v.Op != ast.OpSub {
			return false
		}
		ident, ok := v.Left.(*ast.Identifier)
		if !ok || ident.Name != param {
			return false
		}
		k, known := knownIntValue(v.Right)
		return known && k > 0
	case *ast.Call:
		callee, ok := v.Callee.(*ast.Identifier)
		if !ok || callee.Name != "tail" {
			return false
		}
		for _, a := range v.Args {
			if ident, isIdent := a.(*ast.Identifier); isIdent && ident.Name == param {
				return true
			}
		}
		return false
	case *ast.Identifier:
		return origins[v.Name] == param
	case *ast.Parenthesized:
		return argStrictlySmaller(v.Inner, param, origins)
	}
	return false
}
