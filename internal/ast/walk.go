package ast

// Inspect traverses the tree rooted at n in depth-first order, calling f on
// each node. If f returns false, the node's children are skipped. It is the
// dispatch-on-discriminator traversal of spec.md §9 packaged once so every
// later stage does not re-implement its own walker.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch v := n.(type) {
	case *Module:
		for _, i := range v.Imports {
			Inspect(i, f)
		}
		for _, t := range v.Types {
			Inspect(t, f)
		}
		for _, c := range v.Constants {
			Inspect(c, f)
		}
		for _, fn := range v.Functions {
			Inspect(fn, f)
		}
		if v.Main != nil {
			Inspect(v.Main, f)
		}
		for _, fb := range v.Foreign {
			Inspect(fb, f)
		}
		for _, nw := range v.Networks {
			Inspect(nw, f)
		}

	case *FunctionDef:
		for _, p := range v.Params {
			if p.Type != nil {
				Inspect(p.Type, f)
			}
			if p.Where != nil {
				Inspect(p.Where, f)
			}
		}
		if v.ReturnType != nil {
			Inspect(v.ReturnType, f)
		}
		for _, a := range v.Annotations {
			Inspect(a, f)
		}
		if v.Body != nil {
			Inspect(v.Body, f)
		}
	case *MainDef:
		for _, a := range v.Annotations {
			Inspect(a, f)
		}
		if v.Body != nil {
			Inspect(v.Body, f)
		}
	case *TypeDef:
		if v.Type != nil {
			Inspect(v.Type, f)
		}
	case *ConstantDef:
		if v.Type != nil {
			Inspect(v.Type, f)
		}
		if v.Value != nil {
			Inspect(v.Value, f)
		}
	case *ForeignBlock:
		for _, fn := range v.Functions {
			for _, pt := range fn.Params {
				Inspect(pt, f)
			}
			if fn.ReturnType != nil {
				Inspect(fn.ReturnType, f)
			}
		}
	case *InvariantNetwork:
		for _, inv := range v.Invariants {
			Inspect(inv, f)
		}

	case *RequiresAnnotation:
		Inspect(v.Predicate, f)
	case *EnsuresAnnotation:
		Inspect(v.Predicate, f)
	case *TerminatesAnnotation:
		Inspect(v.Measure, f)
	case *KnowAnnotation:
		Inspect(v.Predicate, f)
	case *AssumeAnnotation:
		Inspect(v.Predicate, f)
	case *BelieveAnnotation:
		Inspect(v.Predicate, f)
	case *NearMissAnnotation:
		for _, c := range v.Cases {
			Inspect(c.Input, f)
			Inspect(c.Expected, f)
		}

	case *Body:
		for _, s := range v.Statements {
			Inspect(s, f)
		}
		for _, arm := range v.Arms {
			inspectArm(arm, f)
		}
	case *VarDecl:
		if v.Type != nil {
			Inspect(v.Type, f)
		}
		Inspect(v.Value, f)
	case *Assignment:
		Inspect(v.Value, f)
	case *ExprStmt:
		Inspect(v.Value, f)

	case *StringLiteral:
		for _, seg := range v.Segments {
			if seg.Expr != nil {
				Inspect(seg.Expr, f)
			}
		}
	case *Call:
		Inspect(v.Callee, f)
		for _, a := range v.Args {
			Inspect(a, f)
		}
	case *Field:
		Inspect(v.Receiver, f)
	case *Pipe:
		Inspect(v.Left, f)
		Inspect(v.Right, f)
	case *FailProp:
		Inspect(v.Inner, f)
	case *Lambda:
		for _, p := range v.Params {
			if p.Type != nil {
				Inspect(p.Type, f)
			}
		}
		Inspect(v.Body, f)
	case *Valid:
		Inspect(v.Target, f)
	case *Match:
		Inspect(v.Scrutinee, f)
		for _, arm := range v.Arms {
			inspectArm(arm, f)
		}
	case *If:
		Inspect(v.Cond, f)
		Inspect(v.Then, f)
		if v.Else != nil {
			Inspect(v.Else, f)
		}
	case *BinaryOp:
		Inspect(v.Left, f)
		Inspect(v.Right, f)
	case *UnaryOp:
		Inspect(v.Inner, f)
	case *Parenthesized:
		Inspect(v.Inner, f)
	case *ListLiteral:
		for _, el := range v.Elements {
			Inspect(el, f)
		}
	case *Range:
		Inspect(v.Low, f)
		Inspect(v.High, f)

	case *VariantPattern:
		for _, sub := range v.Fields {
			Inspect(sub, f)
		}
	case *LiteralPattern:
		Inspect(v.Value, f)

	case *GenericType:
		for _, a := range v.Args {
			Inspect(a, f)
		}
	case *ModifiedType:
		Inspect(v.Head, f)
	case *Refinement:
		Inspect(v.Base, f)
		Inspect(v.Constraint, f)
	case *Algebraic:
		for _, variant := range v.Variants {
			for _, field := range variant.Fields {
				Inspect(field.Type, f)
			}
		}
	case *Record:
		for _, field := range v.Fields {
			Inspect(field.Type, f)
		}
	}
}

func inspectArm(arm MatchArm, f func(Node) bool) {
	if arm.Pattern != nil {
		Inspect(arm.Pattern, f)
	}
	if arm.Guard != nil {
		Inspect(arm.Guard, f)
	}
	if arm.Body != nil {
		Inspect(arm.Body, f)
	}
}
