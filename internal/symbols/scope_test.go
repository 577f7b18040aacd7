package symbols

import (
	"testing"

	"github.com/kennedyshead/prove/internal/typesystem"
)

func TestLookupWalksOutward(t *testing.T) {
	table := NewTable()
	root := NewRootScope()
	outerID := table.Insert(Symbol{Kind: KindLocal, Name: "x"})
	root.Declare("x", outerID)

	child := NewChild(root)
	if id, ok := child.Lookup("x"); !ok || id != outerID {
		t.Fatalf("expected child scope to find x in parent, got %v %v", id, ok)
	}
}

func TestShadowingInChildDoesNotMutateParent(t *testing.T) {
	table := NewTable()
	root := NewRootScope()
	outerID := table.Insert(Symbol{Kind: KindLocal, Name: "x"})
	root.Declare("x", outerID)

	child := NewChild(root)
	innerID := table.Insert(Symbol{Kind: KindLocal, Name: "x"})
	child.Declare("x", innerID)

	if id, _ := child.Lookup("x"); id != innerID {
		t.Fatalf("expected child lookup to prefer its own binding")
	}
	if id, _ := root.Lookup("x"); id != outerID {
		t.Fatalf("parent binding must be unaffected by child shadow")
	}
}

func TestFunctionTableOnlyOnRoot(t *testing.T) {
	table := NewTable()
	root := NewRootScope()
	child := NewChild(root)

	symID := table.Insert(Symbol{Kind: KindFunction, Name: "email"})
	identity := typesystem.NewIdentity("transforms", "email", []typesystem.Type{typesystem.StringT()})

	if !child.DeclareFunction(identity, symID) {
		t.Fatalf("expected first declaration to succeed")
	}
	if _, ok := root.LookupFunction(identity); !ok {
		t.Fatalf("function must register on root scope even when declared via a child")
	}
	if child.DeclareFunction(identity, symID) {
		t.Fatalf("expected duplicate identity registration to fail")
	}
}

func TestCandidatesByNameCollectsAcrossVerbs(t *testing.T) {
	table := NewTable()
	root := NewRootScope()

	valID := table.Insert(Symbol{Kind: KindFunction, Name: "email", Verb: "validates"})
	transID := table.Insert(Symbol{Kind: KindFunction, Name: "email", Verb: "transforms"})

	root.DeclareFunction(typesystem.NewIdentity("validates", "email", []typesystem.Type{typesystem.StringT()}), valID)
	root.DeclareFunction(typesystem.NewIdentity("transforms", "email", []typesystem.Type{typesystem.StringT()}), transID)

	cands := root.CandidatesByName("email")
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates for email, got %d", len(cands))
	}
}
