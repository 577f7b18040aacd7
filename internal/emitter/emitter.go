// Package emitter lowers a checked module to C translation units against
// the fixed runtime ABI (spec.md §4.6, §6.3). Emission is deterministic:
// the same typed AST always produces byte-identical C.
package emitter

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/checker"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// TranslationUnit is one generated C file.
type TranslationUnit struct {
	Name   string
	Source string
}

// Output is the emitter's result: the units plus the foreign library names
// the linker-flag phase needs (spec.md §4.6 "Foreign block").
type Output struct {
	Units     []TranslationUnit
	Libraries []string
}

type emitter struct {
	mod        *ast.Module
	res        *resolver.Result
	chk        *checker.Result
	moduleName string

	lambdaNames map[*ast.Lambda]string
	lambdaOrder []*ast.Lambda
}

// Emit lowers one module. moduleName names the output files.
func Emit(mod *ast.Module, res *resolver.Result, chk *checker.Result, moduleName string) *Output {
	e := &emitter{
		mod: mod, res: res, chk: chk, moduleName: moduleName,
		lambdaNames: map[*ast.Lambda]string{},
	}
	e.hoistLambdas()

	var h, c strings.Builder
	e.emitHeader(&h)
	e.emitSource(&c)

	out := &Output{
		Units: []TranslationUnit{
			{Name: moduleName + ".h", Source: h.String()},
			{Name: moduleName + ".c", Source: c.String()},
		},
	}
	for _, fb := range mod.Foreign {
		out.Libraries = append(out.Libraries, fb.Library)
	}
	return out
}

// hoistLambdas names every lambda in the module; each becomes a file-scope
// C function passed as a function pointer (spec.md §4.6 "Lambda"). Names
// derive from the lambda's span so re-emission is byte-identical.
func (e *emitter) hoistLambdas() {
	ast.Inspect(e.mod, func(n ast.Node) bool {
		lam, ok := n.(*ast.Lambda)
		if !ok {
			return true
		}
		seed := fmt.Sprintf("%s:%d:%d:%d", e.moduleName, lam.Span().File, lam.Span().Start, lam.Span().End)
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
		e.lambdaNames[lam] = "prove_lambda_" + strings.ReplaceAll(id[:13], "-", "")
		e.lambdaOrder = append(e.lambdaOrder, lam)
		return true
	})
}

func (e *emitter) emitHeader(b *strings.Builder) {
	guard := "PROVE_GEN_" + strings.ToUpper(sanitizeKey(e.moduleName)) + "_H"
	fmt.Fprintf(b, "#ifndef %s\n#define %s\n\n", guard, guard)
	b.WriteString("#include \"prove_runtime.h\"\n\n")

	for _, td := range e.mod.Types {
		e.emitTypeDecl(b, td)
	}

	for _, fn := range e.mod.Functions {
		for _, sig := range e.signaturesFor(fn) {
			b.WriteString(sig.prototype() + ";\n")
		}
	}
	b.WriteString("\n#endif\n")
}

func (e *emitter) emitSource(b *strings.Builder) {
	fmt.Fprintf(b, "#include \"%s.h\"\n\n", e.moduleName)

	for _, fb := range e.mod.Foreign {
		e.emitForeignBlock(b, fb)
	}
	for _, cd := range e.mod.Constants {
		e.emitConstant(b, cd)
	}
	for _, lam := range e.lambdaOrder {
		e.emitLambda(b, lam)
	}
	for _, fn := range e.mod.Functions {
		for _, sig := range e.signaturesFor(fn) {
			e.emitFunction(b, fn, sig)
		}
	}
	if e.mod.Main != nil {
		e.emitMain(b, e.mod.Main)
	}
}

// emitTypeDecl lowers a TypeDef: algebraics become a tagged union with
// constructor helpers, records become plain structs, refinements and
// aliases erase to their base (spec.md §4.6 "Name mangling").
func (e *emitter) emitTypeDecl(b *strings.Builder, td *ast.TypeDef) {
	t, ok := e.res.NamedTypes[td.Name]
	if !ok {
		return
	}
	switch v := t.(type) {
	case typesystem.Algebraic:
		cname := "Type_" + v.Name
		for i, variant := range v.Variants {
			fmt.Fprintf(b, "#define %s_TAG_%s %d\n", cname, variant.Name, i)
		}
		fmt.Fprintf(b, "typedef struct %s {\n\tuint8_t tag;\n\tunion {\n", cname)
		for _, variant := range v.Variants {
			if len(variant.Fields) == 0 {
				continue
			}
			fmt.Fprintf(b, "\t\tstruct {\n")
			for i, f := range variant.Fields {
				fmt.Fprintf(b, "\t\t\t%s %s;\n", cValueType(f.Type), fieldName(i, f.Name))
			}
			fmt.Fprintf(b, "\t\t} %s;\n", variant.Name)
		}
		fmt.Fprintf(b, "\t} payload;\n} %s;\n", cname)

		for _, variant := range v.Variants {
			var params, inits []string
			for i, f := range variant.Fields {
				fn := fieldName(i, f.Name)
				params = append(params, cValueType(f.Type)+" "+fn)
				inits = append(inits, fmt.Sprintf("\tv.payload.%s.%s = %s;", variant.Name, fn, fn))
			}
			paramList := strings.Join(params, ", ")
			if paramList == "" {
				paramList = "void"
			}
			fmt.Fprintf(b, "static inline %s %s_%s(%s) {\n\t%s v;\n\tv.tag = %s_TAG_%s;\n",
				cname, cname, variant.Name, paramList, cname, cname, variant.Name)
			for _, init := range inits {
				b.WriteString(init + "\n")
			}
			b.WriteString("\treturn v;\n}\n")
		}
		b.WriteString("\n")

	case typesystem.Record:
		cname := "Type_" + v.Name
		fmt.Fprintf(b, "typedef struct %s {\n", cname)
		for i, f := range v.Fields {
			fmt.Fprintf(b, "\t%s %s;\n", cValueType(f.Type), fieldName(i, f.Name))
		}
		fmt.Fprintf(b, "} %s;\n\n", cname)

	default:
		// Alias / refinement: erase to the base C type.
		fmt.Fprintf(b, "typedef %s Type_%s;\n\n", cValueType(t), td.Name)
	}
}

func fieldName(i int, name string) string {
	if name == "" {
		return fmt.Sprintf("_%d", i)
	}
	return name
}

func (e *emitter) emitForeignBlock(b *strings.Builder, fb *ast.ForeignBlock) {
	fmt.Fprintf(b, "/* foreign \"%s\" */\n", fb.Library)
	for _, ff := range fb.Functions {
		id, ok := e.res.Root.Lookup(ff.Name)
		if !ok {
			continue
		}
		ft, ok := e.res.Table.Get(id).Type.(typesystem.Function)
		if !ok {
			continue
		}
		var params []string
		for _, p := range ft.Params {
			params = append(params, cValueType(p))
		}
		paramList := strings.Join(params, ", ")
		if paramList == "" {
			paramList = "void"
		}
		fmt.Fprintf(b, "extern %s %s(%s);\n", cType(ft.Return), ff.CName, paramList)
	}
	b.WriteString("\n")
}

func (e *emitter) emitConstant(b *strings.Builder, cd *ast.ConstantDef) {
	id, ok := e.res.Root.Lookup(cd.Name)
	if !ok {
		return
	}
	t := e.res.Table.Get(id).Type
	fe := e.newFnEmitter(nil, false, t)
	blk := &block{}
	val := fe.emitExpr(blk, cd.Value)
	// Constants fold to literal initializers; any prelude means the value
	// was not constant-foldable and gets computed at init time instead.
	if len(blk.lines) == 0 {
		fmt.Fprintf(b, "static const %s prove_const_%s = %s;\n\n", cValueType(t), strings.ToLower(cd.Name), val)
		return
	}
	fmt.Fprintf(b, "static %s prove_const_%s;\nstatic void prove_const_%s_init(void) {\n", cValueType(t), strings.ToLower(cd.Name), strings.ToLower(cd.Name))
	for _, l := range blk.lines {
		b.WriteString("\t" + l + "\n")
	}
	fmt.Fprintf(b, "\tprove_const_%s = %s;\n}\n\n", strings.ToLower(cd.Name), val)
}

// signature describes one emitted copy of a function: the base definition
// for concrete functions, one per monomorphization for generic ones
// (spec.md §4.4 "Each instantiation is monomorphized into a distinct
// emitted function").
type signature struct {
	name   string
	params []typesystem.Type
	ret    typesystem.Type
	fails  bool
	subst  typesystem.Subst
	fn     *ast.FunctionDef
}

func (s signature) prototype() string {
	var params []string
	for i, p := range s.params {
		pname := "p" + fmt.Sprint(i)
		if i < len(s.fn.Params) {
			pname = s.fn.Params[i].Name
		}
		params = append(params, cValueType(p)+" "+pname)
	}
	paramList := strings.Join(params, ", ")
	if paramList == "" {
		paramList = "void"
	}
	retC := cType(s.ret)
	if s.fails {
		retC = "Prove_Result"
	}
	return retC + " " + s.name + "(" + paramList + ")"
}

func (e *emitter) signaturesFor(fn *ast.FunctionDef) []signature {
	symID, ok := e.res.FuncSymbols[fn]
	if !ok {
		return nil
	}
	sym := e.res.Table.Get(symID)
	ft := sym.Type.(typesystem.Function)

	if len(ft.FreeVars()) == 0 {
		return []signature{{
			name:   mangle(fn.Verb, fn.Name, sym.Identity.ParamKey),
			params: ft.Params, ret: ft.Return, fails: fn.Fails, fn: fn,
		}}
	}

	var out []signature
	for _, key := range e.chk.MonomorphOrder {
		inst := e.chk.Monomorphs[key]
		if inst.FuncSym != symID {
			continue
		}
		subst := typesystem.Subst{}
		for i := range ft.Params {
			if i >= len(inst.Resolved) {
				break
			}
			if next, err := typesystem.Unify(ft.Params[i], inst.Resolved[i], subst); err == nil {
				subst = next
			}
		}
		out = append(out, signature{
			name:   mangle(fn.Verb, fn.Name, typesystem.ParamKey(inst.Resolved)),
			params: inst.Resolved, ret: ft.Return.Apply(subst), fails: fn.Fails,
			subst: subst, fn: fn,
		})
	}
	return out
}

func (e *emitter) emitFunction(b *strings.Builder, fn *ast.FunctionDef, sig signature) {
	fe := e.newFnEmitter(sig.subst, sig.fails, sig.ret)
	for i, p := range fn.Params {
		if i < len(sig.params) {
			fe.noteLocal(p.Name, sig.params[i], false)
		}
	}

	b.WriteString(sig.prototype() + " {\n")
	body := &block{}
	var firstParam string
	var firstParamType typesystem.Type
	if len(fn.Params) > 0 {
		firstParam = fn.Params[0].Name
		firstParamType = sig.params[0]
	}
	fe.emitBody(body, fn.Body, firstParam, firstParamType)
	for _, l := range body.lines {
		b.WriteString("\t" + l + "\n")
	}
	b.WriteString("}\n\n")
}

// emitLambda hoists one lambda to a file-scope function (spec.md §4.6
// "Lambda").
func (e *emitter) emitLambda(b *strings.Builder, lam *ast.Lambda) {
	ft, ok := typesystem.Base(orUnit(lam.ExprType())).(typesystem.Function)
	if !ok {
		return
	}
	var params []string
	for i, p := range lam.Params {
		var pt typesystem.Type = typesystem.Unit{}
		if i < len(ft.Params) {
			pt = ft.Params[i]
		}
		params = append(params, cValueType(pt)+" "+p.Name)
	}
	paramList := strings.Join(params, ", ")
	if paramList == "" {
		paramList = "void"
	}
	fmt.Fprintf(b, "static %s %s(%s) {\n", cType(ft.Return), e.lambdaNames[lam], paramList)

	fe := e.newFnEmitter(nil, false, ft.Return)
	for i, p := range lam.Params {
		if i < len(ft.Params) {
			fe.noteLocal(p.Name, ft.Params[i], false)
		}
	}
	blk := &block{}
	val := fe.emitExpr(blk, lam.Body)
	for _, l := range blk.lines {
		b.WriteString("\t" + l + "\n")
	}
	if cType(ft.Return) == "void" {
		fmt.Fprintf(b, "\t(void)(%s);\n}\n\n", val)
	} else {
		fmt.Fprintf(b, "\treturn %s;\n}\n\n", val)
	}
}

// emitMain wraps the user's main body per spec.md §4.6 "Entry point".
func (e *emitter) emitMain(b *strings.Builder, m *ast.MainDef) {
	b.WriteString("static Prove_Result prove_user_main(void) {\n")
	fe := e.newFnEmitter(nil, true, typesystem.Unit{})
	body := &block{}
	fe.emitBody(body, m.Body, "", nil)
	for _, l := range body.lines {
		b.WriteString("\t" + l + "\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("int main(int argc, char **argv) {\n")
	b.WriteString("\tprove_runtime_init();\n")
	b.WriteString("\tprove_io_init(argc, argv);\n")
	b.WriteString("\tProve_Result r = prove_user_main();\n")
	b.WriteString("\tif (r.tag == PROVE_ERR) {\n")
	b.WriteString("\t\tprove_eprintln(r.err);\n")
	b.WriteString("\t\tprove_runtime_cleanup();\n")
	b.WriteString("\t\treturn 1;\n")
	b.WriteString("\t}\n")
	b.WriteString("\tprove_runtime_cleanup();\n")
	b.WriteString("\treturn 0;\n")
	b.WriteString("}\n")
}

func orUnit(t typesystem.Type) typesystem.Type {
	if t == nil {
		return typesystem.Unit{}
	}
	return t
}
