package typesystem

import "testing"

func TestParamKeyErasesModifiersAndRefinements(t *testing.T) {
	port := Refined{
		Base:       Primitive{Name: "Integer"},
		Constraint: Constraint{Kind: "range", Text: "1..65535"},
	}
	mutableInt := Primitive{Name: "Integer", Modifiers: []string{"Mutable"}}

	got := ParamKey([]Type{port})
	want := ParamKey([]Type{mutableInt})
	if got != want {
		t.Fatalf("expected refinement and modifier to erase to the same key, got %q vs %q", got, want)
	}
}

func TestParamKeyDistinguishesDifferentBaseTypes(t *testing.T) {
	a := ParamKey([]Type{Integer()})
	b := ParamKey([]Type{StringT()})
	if a == b {
		t.Fatalf("Integer and String must not share a param key")
	}
}

func TestIdentityStringIncludesVerbNameAndParamKey(t *testing.T) {
	id := NewIdentity("transforms", "email", []Type{StringT()})
	if id.Verb != "transforms" || id.Name != "email" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if got, want := id.String(), "transforms email(String)"; got != want {
		t.Fatalf("identity string = %q, want %q", got, want)
	}
}

func TestUnifyBindsGenericParam(t *testing.T) {
	s, err := Unify(GenericParam{Name: "T"}, Integer(), Subst{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(s["T"], Integer()) {
		t.Fatalf("expected T bound to Integer, got %v", s["T"])
	}
}

func TestUnifyRejectsMismatchedAlgebraics(t *testing.T) {
	a := Algebraic{Name: "Shape"}
	b := Algebraic{Name: "Color"}
	if _, err := Unify(a, b, Subst{}); err == nil {
		t.Fatalf("expected unify of distinct nominal algebraics to fail")
	}
}

func TestUnifyAppliedGenericRecurses(t *testing.T) {
	listT := Applied{Head: "List", Args: []Type{GenericParam{Name: "T"}}}
	listInt := Applied{Head: "List", Args: []Type{Integer()}}
	s, err := Unify(listT, listInt, Subst{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Equal(s["T"], Integer()) {
		t.Fatalf("expected T bound to Integer, got %v", s["T"])
	}
}

func TestOccursCheckRejectsCyclicBinding(t *testing.T) {
	listT := Applied{Head: "List", Args: []Type{GenericParam{Name: "T"}}}
	if _, err := Unify(GenericParam{Name: "T"}, listT, Subst{}); err == nil {
		t.Fatalf("expected occurs-check failure")
	}
}

func TestIsFallibleRecognizesResultAndOption(t *testing.T) {
	if !IsFallible(Result{Ok: Integer(), Err: StringT()}) {
		t.Fatalf("Result should be fallible")
	}
	if !IsFallible(Option{Elem: Integer()}) {
		t.Fatalf("Option should be fallible")
	}
	if IsFallible(Integer()) {
		t.Fatalf("Integer should not be fallible")
	}
}
