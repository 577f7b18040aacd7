package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// block buffers the statement lines an expression's lowering needs before
// its value can be read (fail-prop tag checks, match temporaries, list
// builders).
type block struct {
	lines []string
}

func (b *block) addf(format string, args ...interface{}) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

type localInfo struct {
	name string
	typ  typesystem.Type
	heap bool
}

type fnEmitter struct {
	e     *emitter
	subst typesystem.Subst
	fails bool
	ret   typesystem.Type

	tmp    int
	locals []localInfo
}

func (e *emitter) newFnEmitter(subst typesystem.Subst, fails bool, ret typesystem.Type) *fnEmitter {
	return &fnEmitter{e: e, subst: subst, fails: fails, ret: ret}
}

func (f *fnEmitter) typeOf(expr ast.Expression) typesystem.Type {
	t := orUnit(expr.ExprType())
	if f.subst != nil {
		t = t.Apply(f.subst)
	}
	return t
}

func (f *fnEmitter) freshTmp() string {
	f.tmp++
	return fmt.Sprintf("t%d", f.tmp)
}

func (f *fnEmitter) noteLocal(name string, t typesystem.Type, owned bool) {
	f.locals = append(f.locals, localInfo{name: name, typ: t, heap: owned && isHeap(t)})
}

// releaseLines renders the scope-end releases for every owned heap local
// (spec.md §4.6 "Memory model"); the retain/release pair is inlined rather
// than delegated (spec.md §9).
func (f *fnEmitter) releaseLines() []string {
	var out []string
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].heap {
			out = append(out, fmt.Sprintf("prove_release((Prove_Header*)%s);", f.locals[i].name))
		}
	}
	return out
}

// emitBody lowers a function body. firstParam names the implicit-match
// scrutinee when the body is arm-form (spec.md §4.2 "Body").
func (f *fnEmitter) emitBody(blk *block, body *ast.Body, firstParam string, firstParamType typesystem.Type) {
	if body == nil {
		f.emitDefaultReturn(blk)
		return
	}
	if body.IsImplicitMatch {
		f.emitMatchOver(blk, firstParam, orUnit(firstParamType), body.Arms, func(b *block, val string, t typesystem.Type) {
			f.emitReturn(b, val, t)
		})
		f.emitDefaultReturn(blk)
		return
	}

	terminal := body.TerminalExpression()
	returned := false
	for _, st := range body.Statements {
		switch v := st.(type) {
		case *ast.VarDecl:
			f.emitVarDecl(blk, v)
		case *ast.Assignment:
			val := f.emitExpr(blk, v.Value)
			blk.addf("%s = %s;", v.Name, val)
		case *ast.ExprStmt:
			if v.Value == terminal {
				val := f.emitExpr(blk, v.Value)
				f.emitReturn(blk, val, f.typeOf(v.Value))
				returned = true
				continue
			}
			val := f.emitExpr(blk, v.Value)
			if cType(f.typeOf(v.Value)) == "void" {
				blk.addf("%s;", val)
			} else {
				blk.addf("(void)(%s);", val)
			}
		}
	}
	if !returned {
		f.emitDefaultReturn(blk)
	}
}

func (f *fnEmitter) emitDefaultReturn(blk *block) {
	for _, l := range f.releaseLines() {
		blk.lines = append(blk.lines, l)
	}
	if f.fails {
		blk.addf("return (Prove_Result){.tag = PROVE_OK, .ok = {.i = 0}};")
		return
	}
	if cType(f.ret) == "void" {
		blk.addf("return;")
	}
}

// emitReturn lowers the terminal value: releases run before the return,
// and a fallible function wraps the value in the OK arm.
func (f *fnEmitter) emitReturn(blk *block, val string, t typesystem.Type) {
	releases := f.releaseLines()
	if cType(f.ret) == "void" && !f.fails {
		if val != "" {
			blk.addf("(void)(%s);", val)
		}
		blk.lines = append(blk.lines, releases...)
		blk.addf("return;")
		return
	}
	if f.fails {
		if _, isResult := typesystem.Base(t).(typesystem.Result); isResult {
			// Already a Result value; pass it through unchanged.
			if len(releases) == 0 {
				blk.addf("return %s;", val)
				return
			}
			tmp := f.freshTmp()
			blk.addf("Prove_Result %s = %s;", tmp, val)
			blk.lines = append(blk.lines, releases...)
			blk.addf("return %s;", tmp)
			return
		}
		if cType(t) == "void" {
			if val != "" {
				blk.addf("%s;", val)
			}
			blk.lines = append(blk.lines, releases...)
			blk.addf("return (Prove_Result){.tag = PROVE_OK, .ok = {.i = 0}};")
			return
		}
		tmp := f.freshTmp()
		blk.addf("%s %s = %s;", cValueType(t), tmp, val)
		blk.lines = append(blk.lines, releases...)
		blk.addf("return (Prove_Result){.tag = PROVE_OK, .ok = %s};", payloadWrite(tmp, t))
		return
	}
	if len(releases) == 0 {
		blk.addf("return %s;", val)
		return
	}
	tmp := f.freshTmp()
	blk.addf("%s %s = %s;", cValueType(f.ret), tmp, val)
	blk.lines = append(blk.lines, releases...)
	blk.addf("return %s;", tmp)
}

func (f *fnEmitter) emitVarDecl(blk *block, v *ast.VarDecl) {
	val := f.emitExpr(blk, v.Value)
	var t typesystem.Type
	if id, ok := f.e.res.Uses[v]; ok {
		t = f.e.res.Table.Get(id).Type
	}
	if t == nil {
		t = f.typeOf(v.Value)
	}
	blk.addf("%s %s = %s;", cValueType(t), v.Name, val)
	if refined, ok := f.e.chk.RuntimeChecks[v]; ok {
		f.emitRuntimeCheck(blk, v.Name, refined)
	}
	if isHeap(t) {
		// Store into a longer-lived location: retain here, release at
		// scope end (spec.md §4.6 "Memory model").
		blk.addf("prove_retain((Prove_Header*)%s);", v.Name)
		f.noteLocal(v.Name, t, true)
		return
	}
	f.noteLocal(v.Name, t, false)
}

// emitRuntimeCheck lowers an undischarged refinement to an inline check at
// the assignment site (spec.md §4.4 "the checker inserts a runtime check").
func (f *fnEmitter) emitRuntimeCheck(blk *block, name string, refined typesystem.Refined) {
	cond := constraintCondition(name, refined.Constraint)
	if cond == "" {
		blk.addf("/* refinement `%s` needs the validator pipeline; not compilable inline */", refined.Constraint.Text)
		return
	}
	blk.addf("if (!(%s)) {", cond)
	blk.addf("\tprove_panic(\"refinement violated: %s\");", escapeC(refined.Constraint.Text))
	blk.addf("}")
}

func constraintCondition(name string, cons typesystem.Constraint) string {
	switch cons.Kind {
	case "range":
		var parts []string
		if cons.Low != nil {
			parts = append(parts, fmt.Sprintf("%s >= %d", name, *cons.Low))
		}
		if cons.High != nil {
			parts = append(parts, fmt.Sprintf("%s <= %d", name, *cons.High))
		}
		return strings.Join(parts, " && ")
	case "conjunction":
		var parts []string
		for _, sub := range cons.Sub {
			c := constraintCondition(name, sub)
			if c == "" {
				return ""
			}
			parts = append(parts, "("+c+")")
		}
		return strings.Join(parts, " && ")
	default:
		return ""
	}
}

// emitExpr lowers one expression to a C expression string, appending any
// required prelude statements to blk.
func (f *fnEmitter) emitExpr(blk *block, expr ast.Expression) string {
	switch v := expr.(type) {
	case *ast.IntegerLiteral:
		return fmt.Sprintf("INT64_C(%d)", v.Value)
	case *ast.DecimalLiteral:
		s := strconv.FormatFloat(v.Value, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case *ast.BooleanLiteral:
		if v.Value {
			return "true"
		}
		return "false"
	case *ast.StringLiteral:
		return f.emitStringLiteral(blk, v)
	case *ast.RegexLiteral:
		return fmt.Sprintf("prove_string_from_cstr(\"%s\")", escapeC(v.Pattern))
	case *ast.Identifier:
		return f.emitIdentifier(v)
	case *ast.TypeIdentifier:
		return f.emitNullaryCtor(v)
	case *ast.Call:
		return f.emitCall(blk, v)
	case *ast.Field:
		return f.emitExpr(blk, v.Receiver) + "." + v.Name
	case *ast.Pipe:
		if call, ok := f.e.chk.DesugaredPipes[v]; ok {
			return f.emitCall(blk, call)
		}
		return f.emitExpr(blk, v.Left)
	case *ast.FailProp:
		return f.emitFailProp(blk, v)
	case *ast.Lambda:
		return f.e.lambdaNames[v]
	case *ast.Valid:
		switch t := v.Target.(type) {
		case *ast.Call:
			return f.emitCall(blk, t)
		case *ast.Identifier:
			return f.emitIdentifier(t)
		}
		return "0"
	case *ast.Match:
		return f.emitMatchExpr(blk, v)
	case *ast.If:
		cond := f.emitExpr(blk, v.Cond)
		thenV := f.emitExpr(blk, v.Then)
		elseV := "0"
		if v.Else != nil {
			elseV = f.emitExpr(blk, v.Else)
		}
		return "(" + cond + " ? " + thenV + " : " + elseV + ")"
	case *ast.BinaryOp:
		return f.emitBinaryOp(blk, v)
	case *ast.UnaryOp:
		inner := f.emitExpr(blk, v.Inner)
		if v.Op == ast.OpNot {
			return "!(" + inner + ")"
		}
		return "-(" + inner + ")"
	case *ast.Parenthesized:
		return "(" + f.emitExpr(blk, v.Inner) + ")"
	case *ast.ListLiteral:
		return f.emitListLiteral(blk, v)
	case *ast.Range:
		low := f.emitExpr(blk, v.Low)
		high := f.emitExpr(blk, v.High)
		return fmt.Sprintf("prove_list_range(%s, %s)", low, high)
	}
	return "0"
}

func (f *fnEmitter) emitIdentifier(v *ast.Identifier) string {
	id, ok := f.e.res.Uses[v]
	if !ok {
		return v.Name // parameter or local
	}
	sym := f.e.res.Table.Get(id)
	switch sym.Kind {
	case symbols.KindConstant:
		return "prove_const_" + strings.ToLower(sym.Name)
	case symbols.KindFunction:
		return mangle(sym.Verb, sym.Name, sym.Identity.ParamKey)
	case symbols.KindForeign:
		return sym.ForeignC
	case symbols.KindBuiltinFunction:
		return "prove_" + sym.Name
	default:
		return v.Name
	}
}

func (f *fnEmitter) emitNullaryCtor(v *ast.TypeIdentifier) string {
	id, ok := f.e.res.Uses[v]
	if !ok {
		return "0"
	}
	sym := f.e.res.Table.Get(id)
	if sym.Kind == symbols.KindVariantConstructor {
		return "Type_" + sym.OwnerType + "_" + sym.Name + "()"
	}
	return "0"
}

func (f *fnEmitter) emitStringLiteral(blk *block, v *ast.StringLiteral) string {
	var parts []string
	for _, seg := range v.Segments {
		if seg.Kind == ast.StrSegText {
			parts = append(parts, fmt.Sprintf("prove_string_from_cstr(\"%s\")", escapeC(seg.Text)))
			continue
		}
		val := f.emitExpr(blk, seg.Expr)
		parts = append(parts, stringify(val, f.typeOf(seg.Expr)))
	}
	if len(parts) == 0 {
		return "prove_string_from_cstr(\"\")"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out = "prove_string_concat(" + out + ", " + p + ")"
	}
	return out
}

// stringify renders a to-String conversion for format-string segments.
func stringify(val string, t typesystem.Type) string {
	switch cType(t) {
	case "Prove_String*":
		return val
	case "double":
		return "prove_string_of_double(" + val + ")"
	case "bool":
		return "prove_string_of_bool(" + val + ")"
	default:
		return "prove_string_of_int((int64_t)(" + val + "))"
	}
}

// emitFailProp lowers postfix `!` (spec.md §4.6 "Fail propagation"): bind
// the fallible value, early-return its error arm, read the ok payload.
func (f *fnEmitter) emitFailProp(blk *block, v *ast.FailProp) string {
	innerT := f.typeOf(v.Inner)
	val := f.emitExpr(blk, v.Inner)
	tmp := f.freshTmp()

	switch t := typesystem.Base(innerT).(type) {
	case typesystem.Result:
		blk.addf("Prove_Result %s = %s;", tmp, val)
		blk.addf("if (%s.tag == PROVE_ERR) {", tmp)
		blk.addf("\treturn (Prove_Result){.tag = PROVE_ERR, .err = %s.err};", tmp)
		blk.addf("}")
		return payloadRead(tmp+".ok", t.Ok)
	case typesystem.Option:
		// The error arm is a synthesized "none" Result (spec.md §4.6).
		blk.addf("Prove_Option %s = %s;", tmp, val)
		blk.addf("if (%s.tag == PROVE_NONE) {", tmp)
		blk.addf("\treturn (Prove_Result){.tag = PROVE_ERR, .err = prove_string_from_cstr(\"none\")};")
		blk.addf("}")
		return payloadRead(tmp+".value", t.Elem)
	default:
		return val
	}
}

func (f *fnEmitter) emitBinaryOp(blk *block, v *ast.BinaryOp) string {
	left := f.emitExpr(blk, v.Left)
	right := f.emitExpr(blk, v.Right)
	leftT := f.typeOf(v.Left)
	isString := cType(leftT) == "Prove_String*"

	switch v.Op {
	case ast.OpAdd:
		if isString {
			return "prove_string_concat(" + left + ", " + right + ")"
		}
		return "(" + left + " + " + right + ")"
	case ast.OpSub:
		return "(" + left + " - " + right + ")"
	case ast.OpMul:
		return "(" + left + " * " + right + ")"
	case ast.OpDiv:
		return "(" + left + " / " + right + ")"
	case ast.OpMod:
		return "(" + left + " % " + right + ")"
	case ast.OpEq:
		if isString {
			return "prove_string_eq(" + left + ", " + right + ")"
		}
		return "(" + left + " == " + right + ")"
	case ast.OpNotEq:
		if isString {
			return "!prove_string_eq(" + left + ", " + right + ")"
		}
		return "(" + left + " != " + right + ")"
	case ast.OpLt:
		return "(" + left + " < " + right + ")"
	case ast.OpGt:
		return "(" + left + " > " + right + ")"
	case ast.OpLe:
		return "(" + left + " <= " + right + ")"
	case ast.OpGe:
		return "(" + left + " >= " + right + ")"
	case ast.OpAnd:
		return "(" + left + " && " + right + ")"
	case ast.OpOr:
		return "(" + left + " || " + right + ")"
	}
	return "0"
}

func (f *fnEmitter) emitListLiteral(blk *block, v *ast.ListLiteral) string {
	elemT := typesystem.Integer()
	if lst, ok := typesystem.Base(f.typeOf(v)).(typesystem.List); ok {
		elemT = lst.Elem
	}
	tmp := f.freshTmp()
	blk.addf("Prove_List *%s = prove_list_new(sizeof(%s), %d);", tmp, cValueType(elemT), len(v.Elements))
	for _, el := range v.Elements {
		val := f.emitExpr(blk, el)
		elTmp := f.freshTmp()
		blk.addf("%s %s = %s;", cValueType(elemT), elTmp, val)
		blk.addf("prove_list_push(%s, &%s);", tmp, elTmp)
	}
	return tmp
}

func escapeC(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
