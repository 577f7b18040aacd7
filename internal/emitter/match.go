package emitter

import (
	"fmt"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// sinkFn receives each arm's value; return-position matches return it,
// expression-position matches assign it to a temporary.
type sinkFn func(blk *block, val string, t typesystem.Type)

// emitMatchExpr lowers a match in expression position: bind the scrutinee,
// declare the result temporary, dispatch, read the temporary.
func (f *fnEmitter) emitMatchExpr(blk *block, v *ast.Match) string {
	scrutT := f.typeOf(v.Scrutinee)
	scrutVal := f.emitExpr(blk, v.Scrutinee)
	scrut := f.freshTmp()
	blk.addf("%s %s = %s;", cValueType(scrutT), scrut, scrutVal)

	resultT := f.typeOf(v)
	result := f.freshTmp()
	blk.addf("%s %s;", cValueType(resultT), result)

	f.emitMatchOver(blk, scrut, scrutT, v.Arms, func(b *block, val string, t typesystem.Type) {
		b.addf("%s = %s;", result, val)
	})
	return result
}

// emitMatchOver dispatches over the arms: a guard-free match on an
// algebraic scrutinee lowers to a C switch on the tag discriminant with a
// wildcard arm as default (spec.md §4.6 "Pattern match"); guards and
// literal patterns use a sequential if-chain instead.
func (f *fnEmitter) emitMatchOver(blk *block, scrut string, scrutT typesystem.Type, arms []ast.MatchArm, sink sinkFn) {
	alg, isAlg := f.fullAlgebraic(scrutT)
	simple := isAlg
	for _, arm := range arms {
		if arm.Guard != nil {
			simple = false
		}
		if _, isLit := arm.Pattern.(*ast.LiteralPattern); isLit {
			simple = false
		}
	}
	if simple {
		f.emitMatchSwitch(blk, scrut, alg, arms, sink)
		return
	}
	f.emitMatchChain(blk, scrut, scrutT, arms, sink)
}

func (f *fnEmitter) fullAlgebraic(t typesystem.Type) (typesystem.Algebraic, bool) {
	alg, ok := typesystem.Unmodified(typesystem.Base(t)).(typesystem.Algebraic)
	if !ok {
		return typesystem.Algebraic{}, false
	}
	if len(alg.Variants) == 0 {
		if full, found := f.e.res.NamedTypes[alg.Name].(typesystem.Algebraic); found {
			return full, true
		}
	}
	return alg, true
}

func (f *fnEmitter) emitMatchSwitch(blk *block, scrut string, alg typesystem.Algebraic, arms []ast.MatchArm, sink sinkFn) {
	cname := "Type_" + alg.Name
	blk.addf("switch (%s.tag) {", scrut)
	sawDefault := false
	for _, arm := range arms {
		armBlk := &block{}
		switch p := arm.Pattern.(type) {
		case *ast.VariantPattern:
			blk.addf("case %s_TAG_%s: {", cname, p.Constructor)
			f.bindVariantFields(armBlk, scrut, alg, p)
		case *ast.WildcardPattern:
			blk.addf("default: {")
			sawDefault = true
		case *ast.BindingPattern:
			blk.addf("default: {")
			armBlk.addf("%s %s = %s;", cValueType(typesystem.Algebraic{Name: alg.Name}), p.Name, scrut)
			sawDefault = true
		default:
			continue
		}
		val := f.emitExpr(armBlk, arm.Body)
		sink(armBlk, val, f.typeOf(arm.Body))
		for _, l := range armBlk.lines {
			blk.addf("\t%s", l)
		}
		blk.addf("\tbreak;")
		blk.addf("}")
		if sawDefault {
			break
		}
	}
	blk.addf("}")
}

// emitMatchChain lowers guarded or literal arms to a first-match-wins
// if-chain over a done flag, so a failing guard falls through to the next
// arm.
func (f *fnEmitter) emitMatchChain(blk *block, scrut string, scrutT typesystem.Type, arms []ast.MatchArm, sink sinkFn) {
	done := f.freshTmp()
	blk.addf("bool %s = false;", done)
	for _, arm := range arms {
		cond := f.patternCondition(blk, scrut, scrutT, arm.Pattern)
		blk.addf("if (!%s && (%s)) {", done, cond)
		armBlk := &block{}
		f.bindPattern(armBlk, scrut, scrutT, arm.Pattern)
		if arm.Guard != nil {
			guard := f.emitExpr(armBlk, arm.Guard)
			armBlk.addf("if (%s) {", guard)
			inner := &block{}
			val := f.emitExpr(inner, arm.Body)
			sink(inner, val, f.typeOf(arm.Body))
			inner.addf("%s = true;", done)
			for _, l := range inner.lines {
				armBlk.addf("\t%s", l)
			}
			armBlk.addf("}")
		} else {
			val := f.emitExpr(armBlk, arm.Body)
			sink(armBlk, val, f.typeOf(arm.Body))
			armBlk.addf("%s = true;", done)
		}
		for _, l := range armBlk.lines {
			blk.addf("\t%s", l)
		}
		blk.addf("}")
	}
}

func (f *fnEmitter) patternCondition(blk *block, scrut string, scrutT typesystem.Type, pat ast.Pattern) string {
	switch p := pat.(type) {
	case *ast.WildcardPattern, *ast.BindingPattern:
		return "true"
	case *ast.VariantPattern:
		if alg, ok := f.fullAlgebraic(scrutT); ok {
			return fmt.Sprintf("%s.tag == Type_%s_TAG_%s", scrut, alg.Name, p.Constructor)
		}
		return "true"
	case *ast.LiteralPattern:
		lit := f.emitExpr(blk, p.Value)
		if cType(f.typeOf(p.Value)) == "Prove_String*" {
			return fmt.Sprintf("prove_string_eq(%s, %s)", scrut, lit)
		}
		return fmt.Sprintf("%s == %s", scrut, lit)
	}
	return "true"
}

func (f *fnEmitter) bindPattern(blk *block, scrut string, scrutT typesystem.Type, pat ast.Pattern) {
	switch p := pat.(type) {
	case *ast.BindingPattern:
		blk.addf("%s %s = %s;", cValueType(scrutT), p.Name, scrut)
	case *ast.VariantPattern:
		if alg, ok := f.fullAlgebraic(scrutT); ok {
			f.bindVariantFields(blk, scrut, alg, p)
		}
	}
}

// bindVariantFields destructures a variant's payload into arm locals.
// Nested sub-patterns beyond bindings and wildcards are matched by the
// checker but lower flat here.
func (f *fnEmitter) bindVariantFields(blk *block, scrut string, alg typesystem.Algebraic, p *ast.VariantPattern) {
	variant, ok := alg.VariantByName(p.Constructor)
	if !ok {
		return
	}
	for i, sub := range p.Fields {
		if i >= len(variant.Fields) {
			break
		}
		field := variant.Fields[i]
		access := fmt.Sprintf("%s.payload.%s.%s", scrut, variant.Name, fieldName(i, field.Name))
		if binding, isBinding := sub.(*ast.BindingPattern); isBinding {
			blk.addf("%s %s = %s;", cValueType(field.Type), binding.Name, access)
		}
	}
}
