package checker

import (
	"sort"
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// checkMatchArms types every arm against the scrutinee and enforces
// exhaustiveness: every variant covered or a terminal wildcard, with a
// warning for arms reachable only after a wildcard (spec.md §4.4
// "Exhaustiveness"). scrutParam carries the scrutinee's parameter name for
// structural-shrink bookkeeping, "" when the scrutinee is not a parameter.
func (c *checker) checkMatchArms(span sourcemap.Span, scrutType typesystem.Type, arms []ast.MatchArm, expected typesystem.Type, scrutParam string) typesystem.Type {
	scrutType = c.namedType(typesystem.Base(orUnit(scrutType)))

	covered := map[string]bool{}
	sawCatchAll := false
	var resultType typesystem.Type = expected

	for _, arm := range arms {
		if sawCatchAll {
			c.warnf(arm.Span, diagnostics.WUnreachableMatchArm,
				"arm is unreachable: a previous arm already matches everything")
		}
		c.pushFrame()
		c.bindPatternEnv(arm.Pattern, scrutType, scrutParam)
		switch p := arm.Pattern.(type) {
		case *ast.WildcardPattern, *ast.BindingPattern:
			sawCatchAll = true
		case *ast.VariantPattern:
			covered[p.Constructor] = true
		case *ast.LiteralPattern:
			if b, ok := p.Value.(*ast.BooleanLiteral); ok {
				if b.Value {
					covered["true"] = true
				} else {
					covered["false"] = true
				}
			}
		}
		if arm.Guard != nil {
			got := c.checkExpr(arm.Guard, typesystem.Boolean())
			c.expectAssignable(arm.Guard, got, typesystem.Boolean())
		}
		bodyT := c.checkExpr(arm.Body, resultType)
		if resultType == nil {
			resultType = bodyT
		} else if bodyT != nil {
			c.expectAssignable(arm.Body, bodyT, resultType)
		}
		c.popFrame()
	}

	if !sawCatchAll {
		switch st := scrutType.(type) {
		case typesystem.Algebraic:
			var missing []string
			for _, v := range st.Variants {
				if !covered[v.Name] {
					missing = append(missing, v.Name)
				}
			}
			if len(missing) > 0 {
				sort.Strings(missing)
				c.errorf(span, diagnostics.ETypeNonExhaustive,
					"non-exhaustive match on %s: missing %s",
					st.Name, strings.Join(missing, ", ")).
					WithNote("add the missing arms or a `_` wildcard")
			}
		case typesystem.Primitive:
			if st.Name == "Boolean" && (!covered["true"] || !covered["false"]) {
				c.errorf(span, diagnostics.ETypeNonExhaustive,
					"non-exhaustive match on Boolean: cover both `true` and `false` or add `_`")
			}
		}
	}
	return orUnit(resultType)
}

// bindPatternEnv binds pattern names into the current frame with the types
// the scrutinee dictates, recording which parameter a binding was
// destructured from for the terminates measure check (spec.md §4.4
// "algebraic structural shrink").
func (c *checker) bindPatternEnv(pat ast.Pattern, scrutType typesystem.Type, scrutParam string) {
	switch v := pat.(type) {
	case *ast.BindingPattern:
		c.bind(v.Name, orUnit(scrutType))
	case *ast.VariantPattern:
		var fieldTypes []typesystem.Type
		if alg, ok := scrutType.(typesystem.Algebraic); ok {
			if variant, found := alg.VariantByName(v.Constructor); found {
				for _, f := range variant.Fields {
					fieldTypes = append(fieldTypes, f.Type)
				}
			} else if len(alg.Variants) > 0 {
				c.errorf(v.Span(), diagnostics.ETypeUnify,
					"`%s` is not a variant of %s", v.Constructor, alg.Name)
			}
		} else if id, ok := c.res.Uses[v]; ok {
			if ft, isFn := c.table.Get(id).Type.(typesystem.Function); isFn {
				fieldTypes = ft.Params
			}
		}
		if len(v.Fields) > 0 && len(fieldTypes) > 0 && len(v.Fields) != len(fieldTypes) {
			c.errorf(v.Span(), diagnostics.ETypeArity,
				"`%s` destructures %d fields, the variant has %d",
				v.Constructor, len(v.Fields), len(fieldTypes))
		}
		for i, sub := range v.Fields {
			var ft typesystem.Type
			if i < len(fieldTypes) {
				ft = fieldTypes[i]
			}
			if binding, isBinding := sub.(*ast.BindingPattern); isBinding && scrutParam != "" && c.quiet == 0 {
				c.patternOrigins[binding.Name] = scrutParam
			}
			c.bindPatternEnv(sub, orUnit(ft), "")
		}
	case *ast.LiteralPattern:
		c.checkExpr(v.Value, scrutType)
	}
}
