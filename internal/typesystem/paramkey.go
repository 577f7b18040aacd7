package typesystem

import "strings"

// ParamKey computes the normalized parameter-type-key spec.md §3 "Symbol"
// describes: "the normalized list of declared parameter types (post-
// modifier normalization)". Refinements erase to their base, and a
// Primitive's modifiers are ignored — two parameters differing only by
// a `:[Mutable]` modifier or a `where` clause dispatch to the same
// function identity.
func ParamKey(params []Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = normalize(p).String()
	}
	return strings.Join(parts, "|")
}

func normalize(t Type) Type {
	t = Base(t)
	switch v := t.(type) {
	case Primitive:
		return Primitive{Name: v.Name}
	case Modified:
		return normalize(v.Base)
	case Applied:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = normalize(a)
		}
		return Applied{Head: v.Head, Args: args}
	case Option:
		return Option{Elem: normalize(v.Elem)}
	case Result:
		return Result{Ok: normalize(v.Ok), Err: normalize(v.Err)}
	case List:
		return List{Elem: normalize(v.Elem)}
	default:
		return t
	}
}

// Identity is the verb-dispatched compound key of spec.md §3 "Symbol" /
// §9 "Verb-dispatched identity": (verb, name, parameter-type-key).
type Identity struct {
	Verb     string
	Name     string
	ParamKey string
}

func (id Identity) String() string {
	return id.Verb + " " + id.Name + "(" + id.ParamKey + ")"
}

// NewIdentity builds an Identity from a function's declared parameter
// types.
func NewIdentity(verb, name string, params []Type) Identity {
	return Identity{Verb: verb, Name: name, ParamKey: ParamKey(params)}
}
