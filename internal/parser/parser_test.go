package parser

import (
	"testing"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/sourcemap"
)

func parse(t *testing.T, src string) (*ast.Module, []*diagnostics.Diagnostic) {
	t.Helper()
	smap := sourcemap.New()
	id := smap.AddFile("test.prv", []byte(src))
	lx := lexer.New(id, smap.Content(id))
	toks := lx.Lex()
	p := New(toks, smap, id)
	mod := p.ParseModule()
	diags := append(lx.Diagnostics(), p.Diagnostics()...)
	return mod, diags
}

func parseClean(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, diags := parse(t, src)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("unexpected parse error: [%s] %s", d.Code, d.Message)
		}
	}
	return mod
}

func hasCode(diags []*diagnostics.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestParseMainDef(t *testing.T) {
	mod := parseClean(t, "main()!\nfrom\n    println(\"Hello from Prove!\")\n")
	if mod.Main == nil {
		t.Fatalf("expected a main definition")
	}
	if !mod.Main.Fails {
		t.Fatalf("main()! must carry the fail marker")
	}
	if len(mod.Main.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(mod.Main.Body.Statements))
	}
}

func TestParseFunctionWithAnnotationsAndBody(t *testing.T) {
	src := `transforms clamp_level(x Integer, lo Integer, hi Integer) Integer
ensures result >= lo
explain
    bound value from below using lo
    bound value from above using hi
from
    a as Integer = max(lo, x)
    min(a, hi)
`
	mod := parseClean(t, src)
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Verb != "transforms" || fn.Name != "clamp_level" {
		t.Fatalf("wrong signature: %s %s", fn.Verb, fn.Name)
	}
	if len(fn.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(fn.Params))
	}
	if len(fn.Annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(fn.Annotations))
	}
	explain, ok := fn.Annotations[1].(*ast.ExplainAnnotation)
	if !ok {
		t.Fatalf("second annotation should be explain, got %T", fn.Annotations[1])
	}
	if len(explain.Rows) != 2 {
		t.Fatalf("expected 2 explain rows, got %d", len(explain.Rows))
	}
	if explain.Rows[0].Text != "bound value from below using lo" {
		t.Fatalf("row text not preserved verbatim: %q", explain.Rows[0].Text)
	}
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(fn.Body.Statements))
	}
}

func TestValidatesRejectsExplicitReturnType(t *testing.T) {
	_, diags := parse(t, "validates email(a String) Boolean\nfrom\n    true\n")
	if !hasCode(diags, diagnostics.EValidatesReturnType) {
		t.Fatalf("expected E360 for explicit return on validates")
	}
}

func TestPureVerbRejectsFailMarker(t *testing.T) {
	_, diags := parse(t, "transforms email(a String) String!\nfrom\n    a\n")
	if !hasCode(diags, diagnostics.EFailMarkerMisuse) {
		t.Fatalf("expected E361 for fail marker on transforms")
	}
}

func TestMatchesBodyIsImplicitMatch(t *testing.T) {
	src := `matches area(s Shape) Decimal
from
    Circle(r) => pi * r * r
    Rect(w, h) => w * h
`
	mod := parseClean(t, src)
	body := mod.Functions[0].Body
	if !body.IsImplicitMatch {
		t.Fatalf("matches body must parse as an implicit match")
	}
	if len(body.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(body.Arms))
	}
	vp, ok := body.Arms[0].Pattern.(*ast.VariantPattern)
	if !ok || vp.Constructor != "Circle" || len(vp.Fields) != 1 {
		t.Fatalf("first arm pattern wrong: %#v", body.Arms[0].Pattern)
	}
}

func TestAlgebraicTypeDef(t *testing.T) {
	mod := parseClean(t, "type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)\n")
	if len(mod.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(mod.Types))
	}
	alg, ok := mod.Types[0].Type.(*ast.Algebraic)
	if !ok {
		t.Fatalf("expected an algebraic body, got %T", mod.Types[0].Type)
	}
	if len(alg.Variants) != 2 || alg.Variants[0].Name != "Circle" || alg.Variants[1].Name != "Rect" {
		t.Fatalf("variants wrong: %#v", alg.Variants)
	}
	if len(alg.Variants[1].Fields) != 2 {
		t.Fatalf("Rect should have 2 fields")
	}
}

func TestRefinementTypeDef(t *testing.T) {
	mod := parseClean(t, "type Port is Integer where 1..65535\n")
	ref, ok := mod.Types[0].Type.(*ast.Refinement)
	if !ok {
		t.Fatalf("expected a refinement, got %T", mod.Types[0].Type)
	}
	if _, ok := ref.Constraint.(*ast.Range); !ok {
		t.Fatalf("expected a range constraint, got %T", ref.Constraint)
	}
}

func TestGenericTypeVsComparison(t *testing.T) {
	mod := parseClean(t, "transforms first(xs List<Integer>) Integer\nfrom\n    1\n")
	g, ok := mod.Functions[0].Params[0].Type.(*ast.GenericType)
	if !ok || g.Head != "List" || len(g.Args) != 1 {
		t.Fatalf("List<Integer> should parse as a generic type, got %#v", mod.Functions[0].Params[0].Type)
	}

	mod = parseClean(t, "validates small(x Integer)\nfrom\n    x < 10\n")
	body := mod.Functions[0].Body
	es, ok := body.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement")
	}
	cmp, ok := es.Value.(*ast.BinaryOp)
	if !ok || cmp.Op != ast.OpLt {
		t.Fatalf("snake_case `<` must parse as comparison, got %#v", es.Value)
	}
}

func TestPipePrecedenceLowest(t *testing.T) {
	mod := parseClean(t, "transforms go(x Integer) Integer\nfrom\n    x + 1 |> double\n")
	es := mod.Functions[0].Body.Statements[0].(*ast.ExprStmt)
	pipe, ok := es.Value.(*ast.Pipe)
	if !ok {
		t.Fatalf("expected pipe at the root, got %#v", es.Value)
	}
	if _, ok := pipe.Left.(*ast.BinaryOp); !ok {
		t.Fatalf("`x + 1` must bind tighter than `|>`")
	}
}

func TestPostfixFailPropParses(t *testing.T) {
	mod := parseClean(t, "inputs load(path String) String!\nfrom\n    read_file(path)!\n")
	es := mod.Functions[0].Body.Statements[0].(*ast.ExprStmt)
	if _, ok := es.Value.(*ast.FailProp); !ok {
		t.Fatalf("expected postfix fail propagation, got %#v", es.Value)
	}
	if !mod.Functions[0].Fails {
		t.Fatalf("inputs fn with `!` must be marked fallible")
	}
}

func TestVarDeclAndAssignment(t *testing.T) {
	src := `outputs run(n Integer)
from
    counter as Integer:[Mutable] = 0
    counter = counter + 1
    println("done")
`
	mod := parseClean(t, src)
	stmts := mod.Functions[0].Body.Statements
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	vd, ok := stmts[0].(*ast.VarDecl)
	if !ok || vd.Name != "counter" {
		t.Fatalf("first statement should declare counter")
	}
	if _, ok := vd.Type.(*ast.ModifiedType); !ok {
		t.Fatalf("expected a modified type, got %T", vd.Type)
	}
	if _, ok := stmts[1].(*ast.Assignment); !ok {
		t.Fatalf("second statement should be an assignment")
	}
}

func TestImports(t *testing.T) {
	mod := parseClean(t, "Strings transforms trim lower, types Email\n")
	if len(mod.Imports) != 2 {
		t.Fatalf("expected 2 import groups, got %d", len(mod.Imports))
	}
	if mod.Imports[0].Verb != "transforms" || len(mod.Imports[0].Names) != 2 {
		t.Fatalf("first group wrong: %#v", mod.Imports[0])
	}
	if mod.Imports[1].Verb != "types" || mod.Imports[1].Names[0] != "Email" {
		t.Fatalf("types group wrong: %#v", mod.Imports[1])
	}
}

func TestProofBlockRows(t *testing.T) {
	src := `transforms double(x Integer) Integer
ensures result >= x
proof
    doubling: result is x added to x
from
    x + x
`
	mod := parseClean(t, src)
	var proof *ast.ProofAnnotation
	for _, a := range mod.Functions[0].Annotations {
		if p, ok := a.(*ast.ProofAnnotation); ok {
			proof = p
		}
	}
	if proof == nil || len(proof.Obligations) != 1 {
		t.Fatalf("expected one proof obligation")
	}
	if proof.Obligations[0].Name != "doubling" {
		t.Fatalf("obligation name wrong: %q", proof.Obligations[0].Name)
	}
}

func TestWrongCaseFunctionNameIsErrorWithHint(t *testing.T) {
	_, diags := parse(t, "transforms TrimAll(a String) String\nfrom\n    a\n")
	if !hasCode(diags, diagnostics.ECasingDeclSite) {
		t.Fatalf("expected E250 casing error")
	}
	for _, d := range diags {
		if d.Code == diagnostics.ECasingDeclSite {
			if len(d.Suggestions) == 0 || d.Suggestions[0].Replacement != "trim_all" {
				t.Fatalf("expected a snake_case rewrite hint, got %#v", d.Suggestions)
			}
		}
	}
}

func TestIfOutsideComptimeRejected(t *testing.T) {
	_, diags := parse(t, "transforms pick(x Integer) Integer\nfrom\n    if x > 0 x else 0\n")
	if !hasCode(diags, diagnostics.ESyntaxUnexpectedToken) {
		t.Fatalf("expected `if` outside comptime to be rejected")
	}
}

func TestMissingFromReported(t *testing.T) {
	_, diags := parse(t, "transforms id(x Integer) Integer\n    x\n")
	if !hasCode(diags, diagnostics.ESyntaxMissingFrom) {
		t.Fatalf("expected E201 for missing `from`")
	}
}

func TestMatchExpressionWithGuardsAndWildcard(t *testing.T) {
	src := `transforms describe(s Shape) Integer
from
    match s
        Circle(r) where r > 10.0 => 1
        Circle(r) => 2
        _ => 3
`
	mod := parseClean(t, src)
	es := mod.Functions[0].Body.Statements[0].(*ast.ExprStmt)
	m, ok := es.Value.(*ast.Match)
	if !ok {
		t.Fatalf("expected match expression")
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	if m.Arms[0].Guard == nil {
		t.Fatalf("first arm should carry a guard")
	}
	if _, ok := m.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Fatalf("last arm should be the wildcard")
	}
}

func TestLambdaOnlyAsArgument(t *testing.T) {
	mod := parseClean(t, "transforms incr_all(xs List<Integer>) List<Integer>\nfrom\n    map(xs, (x Integer) => x + 1)\n")
	es := mod.Functions[0].Body.Statements[0].(*ast.ExprStmt)
	call, ok := es.Value.(*ast.Call)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("expected map call with two args")
	}
	lam, ok := call.Args[1].(*ast.Lambda)
	if !ok || len(lam.Params) != 1 || lam.Params[0].Name != "x" {
		t.Fatalf("expected a single-param lambda, got %#v", call.Args[1])
	}
}

func TestForeignBlock(t *testing.T) {
	src := "foreign \"m\"\n    c_sqrt(Decimal) Decimal = \"sqrt\"\n"
	mod := parseClean(t, src)
	if len(mod.Foreign) != 1 {
		t.Fatalf("expected one foreign block")
	}
	fb := mod.Foreign[0]
	if fb.Library != "m" || len(fb.Functions) != 1 {
		t.Fatalf("foreign block wrong: %#v", fb)
	}
	if fb.Functions[0].CName != "sqrt" || fb.Functions[0].Name != "c_sqrt" {
		t.Fatalf("binding wrong: %#v", fb.Functions[0])
	}
}

func TestParseIsDeterministic(t *testing.T) {
	src := "transforms id(x Integer) Integer\nfrom\n    x\n"
	a := parseClean(t, src)
	b := parseClean(t, src)
	if len(a.Functions) != len(b.Functions) || a.Functions[0].Name != b.Functions[0].Name {
		t.Fatalf("re-parsing must produce an equivalent module")
	}
}
