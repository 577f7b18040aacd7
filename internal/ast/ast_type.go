package ast

// SimpleType is a bare type name: `Integer`, `Port`, … (spec.md §3).
type SimpleType struct {
	typeBase
	Name string
}

func (t *SimpleType) Accept(v Visitor) { v.VisitSimpleType(t) }

// GenericType is `Head<Arg1, Arg2, ...>` (spec.md §3).
type GenericType struct {
	typeBase
	Head string
	Args []TypeExpr
}

func (t *GenericType) Accept(v Visitor) { v.VisitGenericType(t) }

// ModifiedType is `Head:[mod1 mod2 ...]` (spec.md §3): an ordered axis
// list of type modifiers (e.g. `Mutable`, `Arena`).
type ModifiedType struct {
	typeBase
	Head      TypeExpr
	Modifiers []string
}

func (t *ModifiedType) Accept(v Visitor) { v.VisitModifiedType(t) }

// Refinement is `Base where Predicate` (spec.md §3, §4.4).
type Refinement struct {
	typeBase
	Base       TypeExpr
	Constraint Expression
}

func (t *Refinement) Accept(v Visitor) { v.VisitRefinement(t) }

// AlgebraicVariant is one `Name(field: Type, ...)` or bare `Name` arm of an
// Algebraic type expression.
type AlgebraicVariant struct {
	Name   string
	Fields []VariantField
}

// Algebraic is an ordered list of variants with optional field lists
// (spec.md §3).
type Algebraic struct {
	typeBase
	Variants []AlgebraicVariant
}

func (t *Algebraic) Accept(v Visitor) { v.VisitAlgebraic(t) }

// Record is an ordered set of named fields (spec.md §3).
type Record struct {
	typeBase
	Fields []VariantField
}

func (t *Record) Accept(v Visitor) { v.VisitRecord(t) }
