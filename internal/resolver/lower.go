package resolver

import (
	"strconv"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// typeLowerer converts type expressions to canonical typesystem values,
// memoizing module-level definitions and breaking recursion with shallow
// nominal references (a self-referential algebraic field lowers to an
// Algebraic carrying only its name; variant lookup always goes through
// Result.NamedTypes).
type typeLowerer struct {
	defs       map[string]*ast.TypeDef
	cache      map[string]typesystem.Type
	inProgress map[string]bool
	res        *Result
	report     func(*diagnostics.Diagnostic)
}

func newTypeLowerer(mod *ast.Module, res *Result, report func(*diagnostics.Diagnostic)) *typeLowerer {
	l := &typeLowerer{
		defs:       map[string]*ast.TypeDef{},
		cache:      map[string]typesystem.Type{},
		inProgress: map[string]bool{},
		res:        res,
		report:     report,
	}
	for _, td := range mod.Types {
		l.defs[td.Name] = td
	}
	return l
}

func (l *typeLowerer) lowerTypeDef(td *ast.TypeDef) typesystem.Type {
	if t, ok := l.cache[td.Name]; ok {
		return t
	}
	l.inProgress[td.Name] = true
	var t typesystem.Type
	switch body := td.Type.(type) {
	case *ast.Algebraic:
		alg := typesystem.Algebraic{Name: td.Name}
		for _, v := range body.Variants {
			variant := typesystem.Variant{Name: v.Name}
			for _, f := range v.Fields {
				variant.Fields = append(variant.Fields, typesystem.Field{
					Name: f.Name, Type: l.lowerTypeExpr(f.Type),
				})
			}
			alg.Variants = append(alg.Variants, variant)
		}
		t = alg
	case *ast.Record:
		rec := typesystem.Record{Name: td.Name}
		for _, f := range body.Fields {
			rec.Fields = append(rec.Fields, typesystem.Field{
				Name: f.Name, Type: l.lowerTypeExpr(f.Type),
			})
		}
		t = rec
	default:
		// Alias or refinement: the canonical value is the aliased type
		// itself; refinements keep `(base, constraint)` with the base
		// canonicalized first (spec.md §3 invariants).
		t = l.lowerTypeExpr(td.Type)
	}
	delete(l.inProgress, td.Name)
	l.cache[td.Name] = t
	return t
}

// lowerTypeExpr converts one type expression. A SimpleType that names
// nothing known and is a single uppercase letter becomes a generic
// parameter; anything else unknown is an error.
func (l *typeLowerer) lowerTypeExpr(te ast.TypeExpr) typesystem.Type {
	switch v := te.(type) {
	case *ast.SimpleType:
		return l.lowerNamed(v)
	case *ast.GenericType:
		args := make([]typesystem.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = l.lowerTypeExpr(a)
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
			if len(args) == 1 {
				return typesystem.Result{Ok: args[0], Err: typesystem.StringT()}
			}
		case "List":
			if len(args) == 1 {
				return typesystem.List{Elem: args[0]}
			}
		}
		return typesystem.Applied{Head: v.Head, Args: args}
	case *ast.ModifiedType:
		base := l.lowerTypeExpr(v.Head)
		return typesystem.NewModified(base, v.Modifiers...)
	case *ast.Refinement:
		base := l.lowerTypeExpr(v.Base)
		return typesystem.Refined{Base: base, Constraint: ConstraintFromExpr(v.Constraint)}
	case *ast.Algebraic:
		// Anonymous algebraic outside a type definition; nominal identity
		// comes from the enclosing TypeDef, so here it stays structural.
		alg := typesystem.Algebraic{}
		for _, variant := range v.Variants {
			tv := typesystem.Variant{Name: variant.Name}
			for _, f := range variant.Fields {
				tv.Fields = append(tv.Fields, typesystem.Field{Name: f.Name, Type: l.lowerTypeExpr(f.Type)})
			}
			alg.Variants = append(alg.Variants, tv)
		}
		return alg
	case *ast.Record:
		rec := typesystem.Record{}
		for _, f := range v.Fields {
			rec.Fields = append(rec.Fields, typesystem.Field{Name: f.Name, Type: l.lowerTypeExpr(f.Type)})
		}
		return rec
	default:
		return typesystem.Unit{}
	}
}

func (l *typeLowerer) lowerNamed(v *ast.SimpleType) typesystem.Type {
	switch v.Name {
	case "Integer", "Decimal", "Float", "Boolean", "String", "Byte", "Character":
		return typesystem.Primitive{Name: v.Name}
	case "Unit":
		return typesystem.Unit{}
	case "Never":
		return typesystem.Never{}
	}
	if t, ok := l.cache[v.Name]; ok {
		return t
	}
	if l.inProgress[v.Name] {
		// Recursive reference: shallow nominal stub; equality is by name.
		return typesystem.Algebraic{Name: v.Name}
	}
	if td, ok := l.defs[v.Name]; ok {
		return l.lowerTypeDef(td)
	}
	if len(v.Name) == 1 {
		return typesystem.GenericParam{Name: v.Name}
	}
	l.report(diagnostics.New(diagnostics.SeverityError,
		diagnostics.EResUnknownIdent, v.Span(),
		"unknown type `"+v.Name+"`"))
	return typesystem.Unit{}
}

// ConstraintFromExpr canonicalizes a refinement predicate into the
// structural Constraint shapes the checker can subsume: ranges, equalities,
// and conjunctions of those; anything else is opaque (spec.md §4.4
// "Refinement semantics").
func ConstraintFromExpr(e ast.Expression) typesystem.Constraint {
	text := constraintText(e)
	switch v := e.(type) {
	case *ast.Range:
		lo, loOK := intLiteralValue(v.Low)
		hi, hiOK := intLiteralValue(v.High)
		if loOK && hiOK {
			return typesystem.Constraint{Kind: "range", Low: &lo, High: &hi, Text: text}
		}
	case *ast.BinaryOp:
		switch v.Op {
		case ast.OpAnd:
			left := ConstraintFromExpr(v.Left)
			right := ConstraintFromExpr(v.Right)
			return typesystem.Constraint{Kind: "conjunction", Sub: []typesystem.Constraint{left, right}, Text: text}
		case ast.OpEq:
			if val, ok := intLiteralValue(v.Right); ok {
				return typesystem.Constraint{Kind: "range", Low: &val, High: &val, Text: text}
			}
		case ast.OpGe:
			if val, ok := intLiteralValue(v.Right); ok {
				return typesystem.Constraint{Kind: "range", Low: &val, Text: text}
			}
		case ast.OpGt:
			if val, ok := intLiteralValue(v.Right); ok {
				lo := val + 1
				return typesystem.Constraint{Kind: "range", Low: &lo, Text: text}
			}
		case ast.OpLe:
			if val, ok := intLiteralValue(v.Right); ok {
				return typesystem.Constraint{Kind: "range", High: &val, Text: text}
			}
		case ast.OpLt:
			if val, ok := intLiteralValue(v.Right); ok {
				hi := val - 1
				return typesystem.Constraint{Kind: "range", High: &hi, Text: text}
			}
		}
	case *ast.Parenthesized:
		return ConstraintFromExpr(v.Inner)
	}
	return typesystem.Constraint{Kind: "opaque", Text: text}
}

func intLiteralValue(e ast.Expression) (int64, bool) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return v.Value, true
	case *ast.UnaryOp:
		if v.Op == ast.OpNeg {
			if val, ok := intLiteralValue(v.Inner); ok {
				return -val, true
			}
		}
	case *ast.Parenthesized:
		return intLiteralValue(v.Inner)
	}
	return 0, false
}

// constraintText renders a short human-readable form of the predicate for
// diagnostics and runtime-check codegen.
func constraintText(e ast.Expression) string {
	switch v := e.(type) {
	case *ast.Range:
		return constraintText(v.Low) + ".." + constraintText(v.High)
	case *ast.IntegerLiteral:
		return strconv.FormatInt(v.Value, 10)
	case *ast.DecimalLiteral:
		return "decimal"
	case *ast.Identifier:
		return v.Name
	case *ast.BinaryOp:
		return constraintText(v.Left) + " " + binaryOpText(v.Op) + " " + constraintText(v.Right)
	case *ast.UnaryOp:
		if v.Op == ast.OpNeg {
			return "-" + constraintText(v.Inner)
		}
		return "!" + constraintText(v.Inner)
	case *ast.Parenthesized:
		return "(" + constraintText(v.Inner) + ")"
	case *ast.Call:
		return constraintText(v.Callee) + "(...)"
	case *ast.Field:
		return constraintText(v.Receiver) + "." + v.Name
	default:
		if e == nil {
			return ""
		}
		return "<predicate>"
	}
}

func binaryOpText(op ast.BinaryOpKind) string {
	switch op {
	case ast.OpOr:
		return "||"
	case ast.OpAnd:
		return "&&"
	case ast.OpEq:
		return "=="
	case ast.OpNotEq:
		return "!="
	case ast.OpLt:
		return "<"
	case ast.OpGt:
		return ">"
	case ast.OpLe:
		return "<="
	case ast.OpGe:
		return ">="
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	default:
		return "?"
	}
}
