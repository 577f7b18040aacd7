package checker

import (
	"fmt"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/typesystem"
)

func resolverConstraint(e ast.Expression) typesystem.Constraint {
	return resolver.ConstraintFromExpr(e)
}

// checkRefinedAssignment discharges a refinement obligation at an
// assignment site (spec.md §4.4 "Refinement semantics"): a known literal
// evaluates the predicate at compile time; an unknown value gets a runtime
// check inserted unless its own refinement structurally subsumes the
// target's (range constraints, equality, and conjunctions only).
func (c *checker) checkRefinedAssignment(node ast.Node, value ast.Expression, got, declared typesystem.Type) {
	refined, ok := declared.(typesystem.Refined)
	if !ok {
		return
	}

	if lit, known := knownIntValue(value); known {
		satisfied, decidable := evalConstraint(refined.Constraint, lit)
		if decidable {
			if !satisfied {
				c.reportRefinementViolation(value, lit, refined)
			}
			return
		}
		// Opaque predicate over a literal still needs the runtime check.
	}

	if gotRefined, isRefined := orUnit(got).(typesystem.Refined); isRefined {
		if subsumes(gotRefined.Constraint, refined.Constraint) {
			return
		}
	}

	if c.quiet == 0 {
		c.out.RuntimeChecks[node] = refined
	}
}

func (c *checker) reportRefinementViolation(value ast.Expression, lit int64, refined typesystem.Refined) {
	d := c.errorf(value.Span(), diagnostics.ETypeRefinement,
		"value %d does not satisfy `%s where %s`",
		lit, refined.Base.String(), refined.Constraint.Text)
	if refined.Constraint.Kind == "range" && refined.Constraint.Low != nil && refined.Constraint.High != nil {
		fix := fmt.Sprintf("clamp(%d, %d, %d)", lit, *refined.Constraint.Low, *refined.Constraint.High)
		d.WithSuggestion("replace with `"+fix+"`", value.Span(), fix).
			WithSuggestion(fmt.Sprintf("or validate at runtime with `check(%d)!`", lit), value.Span(), fmt.Sprintf("check(%d)!", lit))
	}
}

// knownIntValue folds an expression to a compile-time integer when its
// value is fully literal.
func knownIntValue(e ast.Expression) (int64, bool) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return v.Value, true
	case *ast.UnaryOp:
		if v.Op == ast.OpNeg {
			if val, ok := knownIntValue(v.Inner); ok {
				return -val, true
			}
		}
	case *ast.Parenthesized:
		return knownIntValue(v.Inner)
	case *ast.BinaryOp:
		l, lok := knownIntValue(v.Left)
		r, rok := knownIntValue(v.Right)
		if !lok || !rok {
			return 0, false
		}
		switch v.Op {
		case ast.OpAdd:
			return l + r, true
		case ast.OpSub:
			return l - r, true
		case ast.OpMul:
			return l * r, true
		case ast.OpDiv:
			if r != 0 {
				return l / r, true
			}
		case ast.OpMod:
			if r != 0 {
				return l % r, true
			}
		}
	}
	return 0, false
}

// evalConstraint decides a constraint against a known integer. The second
// result reports decidability: opaque predicates cannot be folded.
func evalConstraint(cons typesystem.Constraint, val int64) (satisfied, decidable bool) {
	switch cons.Kind {
	case "range":
		if cons.Low != nil && val < *cons.Low {
			return false, true
		}
		if cons.High != nil && val > *cons.High {
			return false, true
		}
		return true, true
	case "conjunction":
		for _, sub := range cons.Sub {
			ok, dec := evalConstraint(sub, val)
			if !dec {
				return false, false
			}
			if !ok {
				return false, true
			}
		}
		return true, true
	default:
		return false, false
	}
}

// subsumes reports whether holding a implies b, structurally: range
// containment, and conjunction elementwise (spec.md §4.4 "structural
// subsumption over range constraints only in v0.x").
func subsumes(a, b typesystem.Constraint) bool {
	switch b.Kind {
	case "range":
		if a.Kind == "conjunction" {
			for _, sub := range a.Sub {
				if subsumes(sub, b) {
					return true
				}
			}
			return false
		}
		if a.Kind != "range" {
			return false
		}
		if b.Low != nil && (a.Low == nil || *a.Low < *b.Low) {
			return false
		}
		if b.High != nil && (a.High == nil || *a.High > *b.High) {
			return false
		}
		return true
	case "conjunction":
		for _, sub := range b.Sub {
			if !subsumes(a, sub) {
				return false
			}
		}
		return true
	default:
		// Opaque targets never subsume statically; identical text is the
		// one safe exception.
		return a.Text == b.Text && a.Text != ""
	}
}
