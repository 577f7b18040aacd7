// Package typesystem defines the canonical type values the checker
// produces and the emitter consumes (spec.md §3 "Types"). Every Type is a
// tagged variant (spec.md §9 "Tagged variants over inheritance") rather
// than a class hierarchy.
package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface every canonical type value implements.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeVars() []string
}

// Subst maps a generic-parameter name to its bound Type.
type Subst map[string]Type

// Primitive covers Integer/Decimal/Float/Boolean/String/Byte/Character
// with a modifier bag (spec.md §3 "Types"). Equality ignores modifier
// ordering but not modifier content. NewPrimitive sorts the modifiers;
// neither it nor this struct checks how many modifiers share an axis.
type Primitive struct {
	Name      string // Integer, Decimal, Float, Boolean, String, Byte, Character
	Modifiers []string
}

// NewPrimitive builds a Primitive with its modifiers in canonical
// (sorted) order so two structurally-equal instances compare equal.
func NewPrimitive(name string, modifiers ...string) Primitive {
	mods := append([]string(nil), modifiers...)
	sort.Strings(mods)
	return Primitive{Name: name, Modifiers: mods}
}

func (p Primitive) String() string {
	if len(p.Modifiers) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s:[%s]", p.Name, strings.Join(p.Modifiers, " "))
}
func (p Primitive) Apply(Subst) Type   { return p }
func (p Primitive) FreeVars() []string { return nil }

// HasModifier reports whether p carries the named modifier (e.g.
// "Mutable", "Arena").
func (p Primitive) HasModifier(name string) bool {
	for _, m := range p.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}

// GenericParam is an unbound type variable appearing in a generic
// function's signature, distinct from Refined's erasure-time variables.
type GenericParam struct {
	Name string
}

func (g GenericParam) String() string     { return g.Name }
func (g GenericParam) FreeVars() []string { return []string{g.Name} }
func (g GenericParam) Apply(s Subst) Type {
	if t, ok := s[g.Name]; ok {
		return t
	}
	return g
}

// Applied is a generic type constructor applied to arguments:
// `Head<Arg1, Arg2, ...>` (spec.md §3 "Applied generic").
type Applied struct {
	Head string
	Args []Type
}

func (a Applied) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("%s<%s>", a.Head, strings.Join(parts, ", "))
}
func (a Applied) FreeVars() []string {
	var out []string
	for _, arg := range a.Args {
		out = append(out, arg.FreeVars()...)
	}
	return out
}
func (a Applied) Apply(s Subst) Type {
	args := make([]Type, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Apply(s)
	}
	return Applied{Head: a.Head, Args: args}
}

// Refined is `(base, constraint)` where constraint is the canonicalized
// Constraint built from the predicate (its structural shape plus the
// predicate's source text) — spec.md §3 "Refined" and §3 invariants ("a
// refined type's canonical form is always (base, constraint-AST) with the
// base already canonicalized"). The predicate AST itself is not stored.
type Refined struct {
	Base       Type
	Constraint Constraint
}

// Constraint is the canonicalized, composable shape of a refinement
// predicate the checker can reason about structurally (spec.md §4.4
// "Range constraints, equality, and conjunctions ... are structurally
// subsumed"). Kind "opaque" means the predicate fell outside what the
// checker can subsume structurally and must be checked at runtime or by
// literal evaluation; Text still carries the original source text for
// diagnostics and runtime-check codegen.
type Constraint struct {
	Kind string // "range", "conjunction", "opaque"; `== n` is a range with Low == High
	Low  *int64 // for Kind == "range"
	High *int64 // for Kind == "range"
	Text string // human-readable predicate source, always populated
	Sub  []Constraint // for Kind == "conjunction"
}

func (c Constraint) String() string { return c.Text }

func (r Refined) String() string {
	return fmt.Sprintf("%s where %s", r.Base.String(), r.Constraint.String())
}
func (r Refined) FreeVars() []string { return r.Base.FreeVars() }
func (r Refined) Apply(s Subst) Type {
	return Refined{Base: r.Base.Apply(s), Constraint: r.Constraint}
}

// Field is one named, ordered field of a Record or one payload field of
// an Algebraic variant.
type Field struct {
	Name string
	Type Type
}

// Variant is one arm of an Algebraic type.
type Variant struct {
	Name   string
	Fields []Field
}

// Algebraic is a named nominal sum type (spec.md §3 "Algebraic").
type Algebraic struct {
	Name     string
	Variants []Variant
}

func (a Algebraic) String() string { return a.Name }
func (a Algebraic) FreeVars() []string {
	var out []string
	for _, v := range a.Variants {
		for _, f := range v.Fields {
			out = append(out, f.Type.FreeVars()...)
		}
	}
	return out
}
func (a Algebraic) Apply(s Subst) Type {
	variants := make([]Variant, len(a.Variants))
	for i, v := range a.Variants {
		fields := make([]Field, len(v.Fields))
		for j, f := range v.Fields {
			fields[j] = Field{Name: f.Name, Type: f.Type.Apply(s)}
		}
		variants[i] = Variant{Name: v.Name, Fields: fields}
	}
	return Algebraic{Name: a.Name, Variants: variants}
}

// VariantByName finds a.Variants by name.
func (a Algebraic) VariantByName(name string) (Variant, bool) {
	for _, v := range a.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Record is a named nominal product type with ordered fields (spec.md §3
// "Record").
type Record struct {
	Name   string
	Fields []Field
}

func (r Record) String() string { return r.Name }
func (r Record) FreeVars() []string {
	var out []string
	for _, f := range r.Fields {
		out = append(out, f.Type.FreeVars()...)
	}
	return out
}
func (r Record) Apply(s Subst) Type {
	fields := make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = Field{Name: f.Name, Type: f.Type.Apply(s)}
	}
	return Record{Name: r.Name, Fields: fields}
}

// FieldByName finds r.Fields by name.
func (r Record) FieldByName(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Function is a verb-dispatched function's type (spec.md §3 "Function").
// It is never itself the subject of unification across verbs: verb is
// part of a function's identity (spec.md §9 "Verb-dispatched identity"),
// not its type, but is carried here so the emitter's name-mangling and
// the checker's purity enforcement can both read it off one value.
type Function struct {
	Verb    string
	Params  []Type
	Return  Type
	Fails   bool
}

func (f Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	fail := ""
	if f.Fails {
		fail = "!"
	}
	return fmt.Sprintf("%s(%s) %s%s", f.Verb, strings.Join(parts, ", "), f.Return.String(), fail)
}
func (f Function) FreeVars() []string {
	var out []string
	for _, p := range f.Params {
		out = append(out, p.FreeVars()...)
	}
	return append(out, f.Return.FreeVars()...)
}
func (f Function) Apply(s Subst) Type {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Apply(s)
	}
	return Function{Verb: f.Verb, Params: params, Return: f.Return.Apply(s), Fails: f.Fails}
}

// Modified wraps a non-primitive base in an ordered-axis modifier list
// (`List<T>:[Arena]`, `Config:[Mutable]`). Primitives carry modifiers in
// their own bag; everything else uses this wrapper. Equality follows the
// same rule: modifier content matters, order does not (NewModified sorts).
type Modified struct {
	Base      Type
	Modifiers []string
}

// NewModified wraps base with modifiers in canonical order.
func NewModified(base Type, modifiers ...string) Type {
	if p, ok := base.(Primitive); ok {
		return NewPrimitive(p.Name, append(p.Modifiers, modifiers...)...)
	}
	mods := append([]string(nil), modifiers...)
	sort.Strings(mods)
	return Modified{Base: base, Modifiers: mods}
}

func (m Modified) String() string {
	return fmt.Sprintf("%s:[%s]", m.Base.String(), strings.Join(m.Modifiers, " "))
}
func (m Modified) FreeVars() []string { return m.Base.FreeVars() }
func (m Modified) Apply(s Subst) Type {
	return Modified{Base: m.Base.Apply(s), Modifiers: m.Modifiers}
}

// HasModifier reports whether m carries the named modifier.
func (m Modified) HasModifier(name string) bool {
	for _, mod := range m.Modifiers {
		if mod == name {
			return true
		}
	}
	return false
}

// HasModifier reports whether t carries the named modifier at its surface,
// looking through refinements.
func HasModifier(t Type, name string) bool {
	switch v := Base(t).(type) {
	case Primitive:
		return v.HasModifier(name)
	case Modified:
		return v.HasModifier(name)
	}
	return false
}

// Unmodified strips any modifier wrapper (and a Primitive's modifier bag),
// looking through refinements.
func Unmodified(t Type) Type {
	t = Base(t)
	switch v := t.(type) {
	case Primitive:
		return Primitive{Name: v.Name}
	case Modified:
		return Unmodified(v.Base)
	}
	return t
}

// Built-in container/sum types (spec.md §3 "built-in Option, Result,
// List, Unit, Never").

type Option struct{ Elem Type }

func (o Option) String() string     { return fmt.Sprintf("Option<%s>", o.Elem.String()) }
func (o Option) FreeVars() []string { return o.Elem.FreeVars() }
func (o Option) Apply(s Subst) Type { return Option{Elem: o.Elem.Apply(s)} }

type Result struct{ Ok, Err Type }

func (r Result) String() string     { return fmt.Sprintf("Result<%s,%s>", r.Ok.String(), r.Err.String()) }
func (r Result) FreeVars() []string { return append(r.Ok.FreeVars(), r.Err.FreeVars()...) }
func (r Result) Apply(s Subst) Type { return Result{Ok: r.Ok.Apply(s), Err: r.Err.Apply(s)} }

type List struct{ Elem Type }

func (l List) String() string     { return fmt.Sprintf("List<%s>", l.Elem.String()) }
func (l List) FreeVars() []string { return l.Elem.FreeVars() }
func (l List) Apply(s Subst) Type { return List{Elem: l.Elem.Apply(s)} }

type Unit struct{}

func (Unit) String() string     { return "Unit" }
func (Unit) FreeVars() []string { return nil }
func (Unit) Apply(Subst) Type   { return Unit{} }

// Never is the bottom type: the type of an expression that never
// produces a value on the normal path.
type Never struct{}

func (Never) String() string     { return "Never" }
func (Never) FreeVars() []string { return nil }
func (Never) Apply(Subst) Type   { return Never{} }

// Well-known primitive constructors.
func Integer() Type   { return Primitive{Name: "Integer"} }
func Decimal() Type   { return Primitive{Name: "Decimal"} }
func Float() Type     { return Primitive{Name: "Float"} }
func Boolean() Type   { return Primitive{Name: "Boolean"} }
func StringT() Type   { return Primitive{Name: "String"} }
func Byte() Type      { return Primitive{Name: "Byte"} }
func Character() Type { return Primitive{Name: "Character"} }

// Equal reports structural equality: same shape, same names, same
// fields/params in order, and — for Primitive — the same modifier set
// irrespective of order (spec.md §3 "Equality ignores modifier ordering
// but not modifier content").
func Equal(a, b Type) bool {
	return a.String() == b.String()
}

// Base returns the non-refinement type underneath any number of nested
// Refined wrappers — used wherever the spec says a refinement "erases"
// to its base (spec.md §3, §4.6).
func Base(t Type) Type {
	for {
		r, ok := t.(Refined)
		if !ok {
			return t
		}
		t = r.Base
	}
}

// IsFallible reports whether t is a Result or Option, the two types
// postfix `!` can unwrap (spec.md §4.4 "Fallibility propagation").
func IsFallible(t Type) bool {
	switch t.(type) {
	case Result, Option:
		return true
	default:
		return false
	}
}
