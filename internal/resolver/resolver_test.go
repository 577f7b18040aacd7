package resolver

import (
	"testing"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/parser"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/typesystem"
)

func resolveSource(t *testing.T, src string) (*ast.Module, *Result) {
	t.Helper()
	smap := sourcemap.New()
	id := smap.AddFile("test.prv", []byte(src))
	lx := lexer.New(id, smap.Content(id))
	p := parser.New(lx.Lex(), smap, id)
	mod := p.ParseModule()
	for _, d := range append(lx.Diagnostics(), p.Diagnostics()...) {
		if d.IsError() {
			t.Fatalf("setup parse error: [%s] %s", d.Code, d.Message)
		}
	}
	return mod, Resolve(mod)
}

func hasCode(diags []*diagnostics.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestFunctionRegistersUnderVerbDispatchedIdentity(t *testing.T) {
	_, res := resolveSource(t, `validates email(a String)
from
    true

transforms email(raw String) String
from
    raw
`)
	if hasErrors(res) {
		t.Fatalf("same name under different verbs must coexist: %v", res.Diags)
	}
	cands := res.Root.CandidatesByName("email")
	if len(cands) != 2 {
		t.Fatalf("expected 2 email candidates, got %d", len(cands))
	}
	if _, ok := res.Root.LookupFunction(typesystem.Identity{Verb: "validates", Name: "email", ParamKey: "String"}); !ok {
		t.Fatalf("validates variant missing from the function table")
	}
}

func hasErrors(res *Result) bool {
	for _, d := range res.Diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

func TestDuplicateIdentityRejected(t *testing.T) {
	_, res := resolveSource(t, `transforms email(raw String) String
from
    raw

transforms email(raw String) String
from
    raw
`)
	if !hasCode(res.Diags, diagnostics.EResDuplicateFunc) {
		t.Fatalf("expected E304 for duplicate pure identity, got %v", res.Diags)
	}
}

func TestDuplicateIOIdentityRaisesE365(t *testing.T) {
	_, res := resolveSource(t, `inputs load(path String) String!
from
    read_file(path)!

inputs load(path String) String!
from
    read_file(path)!
`)
	if !hasCode(res.Diags, diagnostics.EIdentityDuplicate) {
		t.Fatalf("expected E365 for duplicate IO identity, got %v", res.Diags)
	}
}

func TestUnknownIdentifierReported(t *testing.T) {
	_, res := resolveSource(t, "transforms id(x Integer) Integer\nfrom\n    missing_thing\n")
	if !hasCode(res.Diags, diagnostics.EResUnknownIdent) {
		t.Fatalf("expected E300 for unknown identifier")
	}
}

func TestVariantConstructorsRegistered(t *testing.T) {
	_, res := resolveSource(t, "type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)\n")
	if _, ok := res.Root.LookupType("Circle"); !ok {
		t.Fatalf("Circle constructor must register in the type namespace")
	}
	alg, ok := res.NamedTypes["Shape"].(typesystem.Algebraic)
	if !ok || len(alg.Variants) != 2 {
		t.Fatalf("Shape should lower to a 2-variant algebraic, got %#v", res.NamedTypes["Shape"])
	}
}

func TestDuplicateVariantConstructorRejected(t *testing.T) {
	_, res := resolveSource(t, `type A is Same(x Integer) | Other
type B is Same(y String)
`)
	if !hasCode(res.Diags, diagnostics.EResDuplicateCtor) {
		t.Fatalf("expected duplicate constructor error")
	}
}

func TestLambdaCaptureRaisesE364(t *testing.T) {
	_, res := resolveSource(t, `transforms shift_all(xs List<Integer>, base Integer) List<Integer>
from
    map(xs, (x Integer) => x + base)
`)
	if !hasCode(res.Diags, diagnostics.ELambdaCapture) {
		t.Fatalf("expected E364 for lambda capturing `base`, got %v", res.Diags)
	}
}

func TestLambdaMayUseModuleConstants(t *testing.T) {
	_, res := resolveSource(t, `transforms scale_all(xs List<Decimal>) List<Decimal>
from
    map(xs, (x Decimal) => x * pi)
`)
	if hasCode(res.Diags, diagnostics.ELambdaCapture) {
		t.Fatalf("module-level constants are not captures: %v", res.Diags)
	}
}

func TestRefinedTypeLowersToRangeConstraint(t *testing.T) {
	_, res := resolveSource(t, "type Port is Integer where 1..65535\n")
	ref, ok := res.NamedTypes["Port"].(typesystem.Refined)
	if !ok {
		t.Fatalf("Port should lower to Refined, got %#v", res.NamedTypes["Port"])
	}
	if ref.Constraint.Kind != "range" || *ref.Constraint.Low != 1 || *ref.Constraint.High != 65535 {
		t.Fatalf("constraint not canonicalized: %#v", ref.Constraint)
	}
}

func TestSatisfiesUnknownNetworkReported(t *testing.T) {
	_, res := resolveSource(t, `transforms id(x Integer) Integer
satisfies Ordering
from
    x
`)
	if !hasCode(res.Diags, diagnostics.EResUnknownIdent) {
		t.Fatalf("expected unknown invariant network error")
	}
}

func TestResolveTwiceIsEquivalent(t *testing.T) {
	mod, first := resolveSource(t, "transforms id(x Integer) Integer\nfrom\n    x\n")
	second := Resolve(mod)
	if len(first.Diags) != len(second.Diags) {
		t.Fatalf("re-resolving must be a no-op: %d vs %d diags", len(first.Diags), len(second.Diags))
	}
	if len(first.Root.CandidatesByName("id")) != len(second.Root.CandidatesByName("id")) {
		t.Fatalf("function table differs across resolutions")
	}
}
