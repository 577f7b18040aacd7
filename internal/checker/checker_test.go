package checker

import (
	"testing"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/parser"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/typesystem"
)

func checkSource(t *testing.T, src string) (*ast.Module, *resolver.Result, *Result) {
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
	for _, d := range res.Diags {
		if d.IsError() {
			t.Fatalf("setup resolve error: [%s] %s", d.Code, d.Message)
		}
	}
	return mod, res, Check(mod, res)
}

func hasCode(diags []*diagnostics.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func errorCount(diags []*diagnostics.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.IsError() {
			n++
		}
	}
	return n
}

const verbDispatchSrc = `validates email(a String)
from
    contains(a, "@")

transforms email(raw String) String
from
    lower(trim(raw))

main()!
from
    ok as Boolean = email("a@b.c")
    name as String = email("  A@B.C ")
    println(name)
`

func TestContextAwareVerbDispatch(t *testing.T) {
	mod, res, chk := checkSource(t, verbDispatchSrc)
	if errorCount(chk.Diags) != 0 {
		t.Fatalf("unexpected errors: %v", chk.Diags)
	}

	var calls []*ast.Call
	ast.Inspect(mod, func(n ast.Node) bool {
		if c, ok := n.(*ast.Call); ok {
			if ident, isIdent := c.Callee.(*ast.Identifier); isIdent && ident.Name == "email" {
				calls = append(calls, c)
			}
		}
		return true
	})
	if len(calls) != 2 {
		t.Fatalf("expected 2 email call sites, got %d", len(calls))
	}
	if calls[0].ResolvedVerb != "validates" {
		t.Errorf("Boolean-typed declaration must select validates, got %q", calls[0].ResolvedVerb)
	}
	if calls[1].ResolvedVerb != "transforms" {
		t.Errorf("String-typed declaration must select transforms, got %q", calls[1].ResolvedVerb)
	}
	_ = res
}

func TestRefinementRejectsOutOfRangeLiteral(t *testing.T) {
	src := `type Port is Integer where 1..65535

main()!
from
    port as Port = 70000
    println("unreachable")
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ETypeRefinement) {
		t.Fatalf("expected E352 for 70000 outside 1..65535, got %v", chk.Diags)
	}
	for _, d := range chk.Diags {
		if d.Code == diagnostics.ETypeRefinement {
			if len(d.Suggestions) == 0 || d.Suggestions[0].Replacement != "clamp(70000, 1, 65535)" {
				t.Fatalf("expected the clamp suggestion, got %#v", d.Suggestions)
			}
		}
	}
}

func TestRefinementAcceptsBoundaryLiterals(t *testing.T) {
	src := `type Port is Integer where 1..65535

main()!
from
    low as Port = 1
    high as Port = 65535
    println("ok")
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ETypeRefinement) {
		t.Fatalf("boundary values 1 and 65535 must be accepted: %v", chk.Diags)
	}
}

func TestRefinementUnknownValueInsertsRuntimeCheck(t *testing.T) {
	src := `type Port is Integer where 1..65535

inputs pick_port(raw String) Port!
from
    n as Integer = 4000
    m as Port = n + 1
    m
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ETypeRefinement) {
		t.Fatalf("non-literal value must not be a static error: %v", chk.Diags)
	}
	if len(chk.RuntimeChecks) == 0 {
		t.Fatalf("expected a runtime check insertion for the unknown value")
	}
}

func TestPureVerbCallingPrintlnRaisesE362(t *testing.T) {
	src := `transforms shout(a String) String
from
    println(a)
    upper(a)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.EPureCallsIO) {
		t.Fatalf("expected E362, got %v", chk.Diags)
	}
}

func TestPureVerbCallingOutputsFunctionRaisesE363(t *testing.T) {
	src := `outputs log_line(a String)
from
    println(a)

transforms shout(a String) String
from
    log_line(a)
    upper(a)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.EPureCallsEffectful) {
		t.Fatalf("expected E363, got %v", chk.Diags)
	}
}

func TestFailPropInPureVerbRaisesE361(t *testing.T) {
	src := `inputs load(path String) String!
from
    read_file(path)!

transforms use_it(path String) String
from
    load(path)!
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.EFailMarkerMisuse) {
		t.Fatalf("expected E361 for `!` inside transforms, got %v", chk.Diags)
	}
}

func TestNonExhaustiveMatchReported(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => pi * r * r
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ETypeNonExhaustive) {
		t.Fatalf("expected E351 for the missing Rect arm, got %v", chk.Diags)
	}
	for _, d := range chk.Diags {
		if d.Code == diagnostics.ETypeNonExhaustive {
			if want := "Rect"; !containsStr(d.Message, want) {
				t.Fatalf("message should name the missing variant, got %q", d.Message)
			}
		}
	}
}

func containsStr(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestWildcardSatisfiesExhaustiveness(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => pi * r * r
    _ => 0.0
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ETypeNonExhaustive) {
		t.Fatalf("wildcard arm must satisfy exhaustiveness: %v", chk.Diags)
	}
}

func TestArmAfterWildcardWarns(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    _ => 0.0
    Circle(r) => pi * r * r
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.WUnreachableMatchArm) {
		t.Fatalf("expected W323 for the arm after the wildcard")
	}
}

func TestRecursionWithoutTerminatesRaisesE366(t *testing.T) {
	src := `transforms count_down(n Integer) Integer
from
    count_down(n - 1)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("expected E366 for recursion without terminates, got %v", chk.Diags)
	}
}

func TestRecursionWithDecrementAccepted(t *testing.T) {
	src := `transforms count_down(n Integer) Integer
terminates: n
from
    count_down(n - 1)
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("decrementing recursion with a measure must pass: %v", chk.Diags)
	}
}

func TestRecursionWithNonShrinkingArgRejected(t *testing.T) {
	src := `transforms spin(n Integer) Integer
terminates: n
from
    spin(n + 1)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("expected E366 for a non-shrinking recursive argument")
	}
}

func TestMutualRecursionWithoutTerminatesRaisesE366(t *testing.T) {
	src := `transforms ping(n Integer) Integer
from
    pong(n - 1)

transforms pong(n Integer) Integer
from
    ping(n - 1)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("expected E366 for a same-module cycle without terminates, got %v", chk.Diags)
	}
}

func TestMutualRecursionWithNonShrinkingArgRejected(t *testing.T) {
	src := `transforms ping(n Integer) Integer
terminates: n
from
    pong(n)

transforms pong(n Integer) Integer
terminates: n
from
    ping(n)
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("expected E366: cycle edges never shrink either measure, got %v", chk.Diags)
	}
}

func TestMutualRecursionWithDecrementAccepted(t *testing.T) {
	src := `transforms ping(n Integer) Integer
terminates: n
from
    pong(n - 1)

transforms pong(n Integer) Integer
terminates: n
from
    ping(n - 1)
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ERecursionNoMeasure) {
		t.Fatalf("decrementing cycle edges with measures must pass: %v", chk.Diags)
	}
}

func TestAssignmentToImmutableRejected(t *testing.T) {
	src := `transforms bump(x Integer) Integer
from
    y as Integer = x
    y = y + 1
    y
`
	_, _, chk := checkSource(t, src)
	if !hasCode(chk.Diags, diagnostics.ETypeImmutableAssign) {
		t.Fatalf("expected E354 for assigning a non-Mutable local")
	}
}

func TestAssignmentToMutableAccepted(t *testing.T) {
	src := `transforms bump(x Integer) Integer
from
    y as Integer:[Mutable] = x
    y = y + 1
    y
`
	_, _, chk := checkSource(t, src)
	if hasCode(chk.Diags, diagnostics.ETypeImmutableAssign) {
		t.Fatalf("Mutable locals must accept reassignment: %v", chk.Diags)
	}
}

func TestGenericCallRecordsMonomorphization(t *testing.T) {
	src := `transforms size_of(xs List<T>) Integer
from
    len(xs)

main()!
from
    xs as List<Integer> = [1, 2, 3]
    n as Integer = size_of(xs)
    println("ok")
`
	_, _, chk := checkSource(t, src)
	if errorCount(chk.Diags) != 0 {
		t.Fatalf("unexpected errors: %v", chk.Diags)
	}
	if len(chk.Monomorphs) != 1 {
		t.Fatalf("expected one recorded instantiation, got %d", len(chk.Monomorphs))
	}
	for _, inst := range chk.Monomorphs {
		if len(inst.Resolved) != 1 || inst.Resolved[0].String() != "List<Integer>" {
			t.Fatalf("instantiation should resolve List<T> to List<Integer>, got %#v", inst.Resolved)
		}
	}
}

func TestTypedExpressionsCarryTypes(t *testing.T) {
	mod, _, chk := checkSource(t, "transforms add(a Integer, b Integer) Integer\nfrom\n    a + b\n")
	if errorCount(chk.Diags) != 0 {
		t.Fatalf("unexpected errors: %v", chk.Diags)
	}
	es := mod.Functions[0].Body.Statements[0].(*ast.ExprStmt)
	if es.Value.ExprType() == nil {
		t.Fatalf("terminal expression must carry a type after checking")
	}
	if !typesystem.Equal(es.Value.ExprType(), typesystem.Integer()) {
		t.Fatalf("a + b should type as Integer, got %s", es.Value.ExprType().String())
	}
}

func TestFailPropUnwrapsResult(t *testing.T) {
	src := `inputs load(path String) String!
from
    raw as String = read_file(path)!
    raw
`
	mod, _, chk := checkSource(t, src)
	if errorCount(chk.Diags) != 0 {
		t.Fatalf("unexpected errors: %v", chk.Diags)
	}
	vd := mod.Functions[0].Body.Statements[0].(*ast.VarDecl)
	fp := vd.Value.(*ast.FailProp)
	if !typesystem.Equal(fp.ExprType(), typesystem.StringT()) {
		t.Fatalf("`!` on Result<String,_> should unwrap to String, got %s", fp.ExprType().String())
	}
}
