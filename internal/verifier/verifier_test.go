package verifier

import (
	"testing"

	"github.com/kennedyshead/prove/internal/checker"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/parser"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
)

func verifySource(t *testing.T, src string) *Result {
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
	res := resolver.Resolve(mod)
	chk := checker.Check(mod, res)
	cfg, err := config.LoadExplainConfig()
	if err != nil {
		t.Fatalf("loading explain config: %v", err)
	}
	return Verify(mod, res, chk, cfg)
}

func hasCode(diags []*diagnostics.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Strict mode: 2 explain rows against 3 top-level statements is E390
// (spec.md §8 scenario 6).
func TestExplainStrictRowCountMismatch(t *testing.T) {
	src := `transforms clamp_value(x Integer, lo Integer, hi Integer) Integer
ensures result >= lo
explain
    bound value from below using lo
    return result
from
    a as Integer = max(lo, x)
    b as Integer = min(a, hi)
    b
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EExplainRowCount) {
		t.Fatalf("expected E390 for 2 rows over 3 statements, got %v", out.Diags)
	}
}

func TestExplainStrictMatchingRowCountPasses(t *testing.T) {
	src := `transforms clamp_value(x Integer, lo Integer, hi Integer) Integer
ensures result >= lo
explain
    bound value from below using lo
    bound value from above using hi
    return result
from
    a as Integer = max(lo, x)
    b as Integer = min(a, hi)
    b
`
	out := verifySource(t, src)
	if hasCode(out.Diags, diagnostics.EExplainRowCount) {
		t.Fatalf("3 rows over 3 statements must pass: %v", out.Diags)
	}
}

func TestExplainDuplicateRows(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
explain
    sum x with x
    sum x with x
from
    a as Integer = x + x
    a
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EExplainDuplicate) {
		t.Fatalf("expected E391 for duplicate rows, got %v", out.Diags)
	}
}

func TestExplainUnknownOperation(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
explain
    frobnicate x
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EExplainUnknownOp) {
		t.Fatalf("expected E394 for unrecognized operation, got %v", out.Diags)
	}
}

func TestExplainUnknownReference(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
explain
    sum x with nonexistent_thing
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EProofUnknownRef) {
		t.Fatalf("expected E392 for unknown reference, got %v", out.Diags)
	}
}

func TestExplainLooseModeSkipsCountAndOps(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
explain
    anything about x goes here
from
    a as Integer = x + x
    a
`
	out := verifySource(t, src)
	if hasCode(out.Diags, diagnostics.EExplainRowCount) || hasCode(out.Diags, diagnostics.EExplainUnknownOp) {
		t.Fatalf("loose mode must not enforce count or operations: %v", out.Diags)
	}
}

func TestBelieveWithoutEnsuresRaisesE393(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
believe result >= x
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EBelieveNoEnsures) {
		t.Fatalf("expected E393, got %v", out.Diags)
	}
}

func TestProofDuplicateObligationNames(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
proof
    growth: result is at least x
    growth: stated twice
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EExplainDuplicate) {
		t.Fatalf("expected E391 for duplicate obligation names, got %v", out.Diags)
	}
}

func TestProofFewerObligationsThanEnsures(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
ensures result >= 0
proof
    growth: result is at least x
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EProofUnknownRef) {
		t.Fatalf("expected E392 for fewer obligations than ensures, got %v", out.Diags)
	}
}

func TestProofObligationWithoutConceptWarnsW321(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
ensures result >= x
proof
    vague: this follows by straightforward reasoning
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.WProofNoConceptRef) {
		t.Fatalf("expected W321 for an obligation with no concept reference, got %v", out.Diags)
	}
}

func TestNearMissRedundantInputWarnsW322(t *testing.T) {
	src := `validates port_ok(p Integer)
near_miss
    0 => false
    0 => false
from
    p > 0
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.WNearMissRedundant) {
		t.Fatalf("expected W322 for a redundant near_miss input, got %v", out.Diags)
	}
}

func TestKnowUnprovablePredicateRejected(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
know x >= 0
from
    x + x
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.EKnowUnprovable) {
		t.Fatalf("expected E395 for a know over a free variable, got %v", out.Diags)
	}
}

func TestKnowClosedTruePredicateAccepted(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
know 2 + 2 == 4
from
    x + x
`
	out := verifySource(t, src)
	if hasCode(out.Diags, diagnostics.EKnowUnprovable) {
		t.Fatalf("a closed true predicate must be provable: %v", out.Diags)
	}
}

func TestVerificationChainGapWarnsW325(t *testing.T) {
	src := `transforms helper_step(x Integer) Integer
from
    x + 1

transforms pipeline_run(x Integer) Integer
ensures result >= x
from
    helper_step(x)
`
	out := verifySource(t, src)
	if !hasCode(out.Diags, diagnostics.WChainGap) {
		t.Fatalf("expected W325 for an unverified callee, got %v", out.Diags)
	}
	if len(out.ChainGaps) != 1 || out.ChainGaps[0].Callee != "helper_step" {
		t.Fatalf("chain gap record wrong: %#v", out.ChainGaps)
	}
}

func TestTrustedCalleeClosesChainGap(t *testing.T) {
	src := `transforms helper_step(x Integer) Integer
trusted "audited by hand"
from
    x + 1

transforms pipeline_run(x Integer) Integer
ensures result >= x
from
    helper_step(x)
`
	out := verifySource(t, src)
	if hasCode(out.Diags, diagnostics.WChainGap) {
		t.Fatalf("trusted callee must not be a chain gap: %v", out.Diags)
	}
}
