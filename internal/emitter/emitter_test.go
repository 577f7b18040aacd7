package emitter

import (
	"strings"
	"testing"

	"github.com/kennedyshead/prove/internal/checker"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/parser"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
)

func emitSource(t *testing.T, src string) *Output {
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
	for _, d := range append(res.Diags, chk.Diags...) {
		if d.IsError() {
			t.Fatalf("setup semantic error: [%s] %s", d.Code, d.Message)
		}
	}
	return Emit(mod, res, chk, "test")
}

func sourceOf(t *testing.T, out *Output, name string) string {
	t.Helper()
	for _, u := range out.Units {
		if u.Name == name {
			return u.Source
		}
	}
	t.Fatalf("no unit named %s", name)
	return ""
}

const helloSrc = "main()!\nfrom\n    println(\"Hello from Prove!\")\n"

func TestHelloWorldEntryPoint(t *testing.T) {
	out := emitSource(t, helloSrc)
	c := sourceOf(t, out, "test.c")

	for _, want := range []string{
		"prove_runtime_init();",
		"prove_io_init(argc, argv);",
		"prove_user_main()",
		"prove_println(prove_string_from_cstr(\"Hello from Prove!\"))",
		"prove_runtime_cleanup();",
		"return 1;",
		"int main(int argc, char **argv)",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("generated C missing %q", want)
		}
	}
}

func TestVerbDispatchMangledToDistinctSymbols(t *testing.T) {
	src := `validates email(a String)
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
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "prove_validates_email_String(") {
		t.Errorf("validates variant not mangled into its own symbol")
	}
	if !strings.Contains(c, "prove_transforms_email_String(") {
		t.Errorf("transforms variant not mangled into its own symbol")
	}
}

func TestAlgebraicTypeLayoutAndConstructors(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => pi * r * r
    Rect(w, h) => w * h
`
	out := emitSource(t, src)
	h := sourceOf(t, out, "test.h")
	for _, want := range []string{
		"uint8_t tag;",
		"} payload;",
		"Type_Shape;",
		"#define Type_Shape_TAG_Circle 0",
		"#define Type_Shape_TAG_Rect 1",
		"static inline Type_Shape Type_Shape_Circle(double r)",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header missing %q", want)
		}
	}

	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "switch (s.tag)") {
		t.Errorf("implicit match should lower to a switch on the tag")
	}
	if !strings.Contains(c, "case Type_Shape_TAG_Circle:") {
		t.Errorf("variant arm should lower to a tag case")
	}
}

func TestFailPropagationLowering(t *testing.T) {
	src := `inputs load(path String) String!
from
    raw as String = read_file(path)!
    raw
`
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	for _, want := range []string{
		"Prove_Result t1 = prove_read_file(path);",
		"if (t1.tag == PROVE_ERR) {",
		"return (Prove_Result){.tag = PROVE_ERR, .err = t1.err};",
		".tag = PROVE_OK",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("fail-prop lowering missing %q", want)
		}
	}
}

func TestRefinementRuntimeCheckInserted(t *testing.T) {
	src := `type Port is Integer where 1..65535

inputs pick_port(raw String) Port!
from
    n as Integer = 4000
    m as Port = n + 1
    m
`
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "if (!(m >= 1 && m <= 65535))") {
		t.Errorf("expected an inline range check on the refined assignment")
	}
	if !strings.Contains(c, "prove_panic(") {
		t.Errorf("violated runtime refinement should panic")
	}
}

func TestRetainReleasePairForHeapLocals(t *testing.T) {
	src := `transforms shout(a String) String
from
    b as String = upper(a)
    b
`
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "prove_retain((Prove_Header*)b);") {
		t.Errorf("heap local must be retained at its declaration")
	}
	if !strings.Contains(c, "prove_release((Prove_Header*)b);") {
		t.Errorf("heap local must be released at scope end")
	}
}

func TestLambdaHoistedToFileScope(t *testing.T) {
	src := `transforms incr_all(xs List<Integer>) List<Integer>
from
    map(xs, (x Integer) => x + 1)
`
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "static int64_t prove_lambda_") {
		t.Errorf("lambda should hoist to a static file-scope function")
	}
	if !strings.Contains(c, "prove_list_map(xs, prove_lambda_") {
		t.Errorf("call site should pass the hoisted function pointer")
	}
}

func TestForeignBlockEmitsExtern(t *testing.T) {
	src := "foreign \"m\"\n    c_sqrt(Decimal) Decimal = \"sqrt\"\n"
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "extern double sqrt(double);") {
		t.Errorf("foreign binding should emit an extern declaration, got:\n%s", c)
	}
	if len(out.Libraries) != 1 || out.Libraries[0] != "m" {
		t.Errorf("library name should be recorded for the linker phase: %v", out.Libraries)
	}
}

func TestEmissionIsByteIdentical(t *testing.T) {
	first := emitSource(t, helloSrc)
	second := emitSource(t, helloSrc)
	for i := range first.Units {
		if first.Units[i].Source != second.Units[i].Source {
			t.Fatalf("emitting the same module twice must be byte-identical (unit %s)", first.Units[i].Name)
		}
	}
}

func TestPipeDesugarsBeforeEmission(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
from
    x * 2

transforms quadruple(x Integer) Integer
from
    x |> double_it |> double_it
`
	out := emitSource(t, src)
	c := sourceOf(t, out, "test.c")
	if !strings.Contains(c, "prove_transforms_double_it_Integer(prove_transforms_double_it_Integer(x))") {
		t.Errorf("pipe chain should lower to nested calls, got:\n%s", c)
	}
	if strings.Contains(c, "|>") {
		t.Errorf("no pipe may survive emission")
	}
}

func TestNoBangSurvivesPureEmission(t *testing.T) {
	out := emitSource(t, "transforms add(a Integer, b Integer) Integer\nfrom\n    a + b\n")
	c := sourceOf(t, out, "test.c")
	var fnBody string
	if i := strings.Index(c, "prove_transforms_add_Integer_Integer"); i >= 0 {
		fnBody = c[i:]
	}
	if strings.Contains(fnBody, "PROVE_ERR") {
		t.Errorf("pure function body must carry no fail-propagation lowering")
	}
}
