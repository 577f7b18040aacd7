package typesystem

import "fmt"

// UnifyError reports a unification failure between two types.
type UnifyError struct {
	Left, Right Type
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.Left.String(), e.Right.String())
}

// Unify performs Hindley-Milner unification with algebraic-type rigidity
// (an Algebraic/Record never unifies with anything but an identically
// named Algebraic/Record) and refinement erasure during inference
// (spec.md §4.4 "Generics"): a Refined type unifies as its Base, the
// refinement constraint is not part of the unification problem. The
// returned Subst composes with any Subst already accumulated by the
// caller.
func Unify(a, b Type, s Subst) (Subst, error) {
	a = Base(a).Apply(s)
	b = Base(b).Apply(s)
	if m, ok := a.(Modified); ok {
		a = Base(m.Base)
	}
	if m, ok := b.(Modified); ok {
		b = Base(m.Base)
	}

	if g, ok := a.(GenericParam); ok {
		return bindVar(g.Name, b, s)
	}
	if g, ok := b.(GenericParam); ok {
		return bindVar(g.Name, a, s)
	}

	switch at := a.(type) {
	case Primitive:
		bt, ok := b.(Primitive)
		if !ok || at.Name != bt.Name {
			return nil, &UnifyError{a, b}
		}
		return s, nil

	case Algebraic:
		bt, ok := b.(Algebraic)
		if !ok || at.Name != bt.Name {
			return nil, &UnifyError{a, b}
		}
		return s, nil

	case Record:
		bt, ok := b.(Record)
		if !ok || at.Name != bt.Name {
			return nil, &UnifyError{a, b}
		}
		return s, nil

	case Applied:
		bt, ok := b.(Applied)
		if !ok || at.Head != bt.Head || len(at.Args) != len(bt.Args) {
			return nil, &UnifyError{a, b}
		}
		cur := s
		for i := range at.Args {
			var err error
			cur, err = Unify(at.Args[i], bt.Args[i], cur)
			if err != nil {
				return nil, err
			}
		}
		return cur, nil

	case Option:
		bt, ok := b.(Option)
		if !ok {
			return nil, &UnifyError{a, b}
		}
		return Unify(at.Elem, bt.Elem, s)

	case Result:
		bt, ok := b.(Result)
		if !ok {
			return nil, &UnifyError{a, b}
		}
		cur, err := Unify(at.Ok, bt.Ok, s)
		if err != nil {
			return nil, err
		}
		return Unify(at.Err, bt.Err, cur)

	case List:
		bt, ok := b.(List)
		if !ok {
			return nil, &UnifyError{a, b}
		}
		return Unify(at.Elem, bt.Elem, s)

	case Unit:
		if _, ok := b.(Unit); !ok {
			return nil, &UnifyError{a, b}
		}
		return s, nil

	case Never:
		// Never unifies with anything (a non-returning branch contributes
		// no constraint on the join type).
		return s, nil

	case Function:
		bt, ok := b.(Function)
		if !ok || at.Verb != bt.Verb || len(at.Params) != len(bt.Params) || at.Fails != bt.Fails {
			return nil, &UnifyError{a, b}
		}
		cur := s
		for i := range at.Params {
			var err error
			cur, err = Unify(at.Params[i], bt.Params[i], cur)
			if err != nil {
				return nil, err
			}
		}
		return Unify(at.Return, bt.Return, cur)
	}

	if _, ok := b.(Never); ok {
		return s, nil
	}

	return nil, &UnifyError{a, b}
}

func bindVar(name string, t Type, s Subst) (Subst, error) {
	if g, ok := t.(GenericParam); ok && g.Name == name {
		return s, nil
	}
	for _, fv := range t.FreeVars() {
		if fv == name {
			return nil, fmt.Errorf("occurs check failed: %s occurs in %s", name, t.String())
		}
	}
	out := make(Subst, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[name] = t
	return out, nil
}

// Instantiate generates a fresh Subst binding every GenericParam in
// params to the corresponding arg in args (positional, by occurrence
// order of each distinct name's first appearance) and returns it for the
// caller to apply, supporting the checker's per-call-site monomorphization
// (spec.md §4.4 "Generics").
func Instantiate(generic []Type, args []Type) (Subst, error) {
	s := Subst{}
	for i := range generic {
		if i >= len(args) {
			break
		}
		var err error
		s, err = Unify(generic[i], args[i], s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MonomorphKey builds a stable string key for a (function-name, resolved
// type-args) instantiation, used by the checker's per-module
// monomorphization table (spec.md §4.4 "the checker records
// instantiations in a per-module monomorphization table").
func MonomorphKey(name string, resolved []Type) string {
	key := name
	for _, t := range resolved {
		key += "," + t.String()
	}
	return key
}
