// Package verifier is the contract & proof verifier (spec.md §4.5): it
// turns annotations on the typed AST into discharged or reported
// obligations, parses explain blocks with the controlled-natural-language
// tokenizer, checks legacy proof blocks, and walks the verification chain.
package verifier

import (
	"fmt"
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/checker"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/symbols"
)

// ChainGap is one unverified link: f has ensures, but callee g has neither
// ensures nor a trusted marker (spec.md §4.5 "Verification chain").
type ChainGap struct {
	Caller string
	Callee string
	Span   sourcemap.Span
}

// Result carries verification diagnostics and the coverage summary data
// `prove check` prints.
type Result struct {
	Diags     []*diagnostics.Diagnostic
	ChainGaps []ChainGap

	// EnsuresCount / TrustedCount feed the coverage summary.
	EnsuresCount int
	TrustedCount int
}

type verifier struct {
	mod *ast.Module
	res *resolver.Result
	chk *checker.Result
	cfg *config.ExplainConfig
	out *Result
}

// Verify runs the contract & proof verifier over one checked module.
func Verify(mod *ast.Module, res *resolver.Result, chk *checker.Result, cfg *config.ExplainConfig) *Result {
	out := &Result{}
	v := &verifier{mod: mod, res: res, chk: chk, cfg: cfg, out: out}
	for _, fn := range mod.Functions {
		v.verifyFunction(fn)
	}
	if mod.Main != nil {
		v.verifyAnnotations("main", mod.Main.Annotations, mod.Main.Body, nil)
	}
	return out
}

func (v *verifier) errorf(span sourcemap.Span, code, format string, args ...interface{}) *diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.SeverityError, code, span, fmt.Sprintf(format, args...))
	v.out.Diags = append(v.out.Diags, d)
	return d
}

func (v *verifier) warnf(span sourcemap.Span, code, format string, args ...interface{}) *diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.SeverityWarning, code, span, fmt.Sprintf(format, args...))
	v.out.Diags = append(v.out.Diags, d)
	return d
}

func (v *verifier) verifyFunction(fn *ast.FunctionDef) {
	v.verifyAnnotations(fn.Name, fn.Annotations, fn.Body, fn)
}

func (v *verifier) verifyAnnotations(name string, anns []ast.Annotation, body *ast.Body, fn *ast.FunctionDef) {
	var ensures []*ast.EnsuresAnnotation
	var trusted *ast.TrustedAnnotation
	for _, a := range anns {
		switch t := a.(type) {
		case *ast.EnsuresAnnotation:
			ensures = append(ensures, t)
		case *ast.TrustedAnnotation:
			trusted = t
		}
	}
	v.out.EnsuresCount += len(ensures)
	if trusted != nil {
		v.out.TrustedCount++
	}

	for _, a := range anns {
		switch t := a.(type) {
		case *ast.BelieveAnnotation:
			// believe seeds an adversarial test, which is meaningless
			// without a contract to attack (spec.md §4.5 E393).
			if len(ensures) == 0 {
				v.errorf(t.Span(), diagnostics.EBelieveNoEnsures,
					"`believe` on `%s` needs at least one `ensures` clause", name)
			}
		case *ast.KnowAnnotation:
			v.verifyKnow(t)
		case *ast.NearMissAnnotation:
			v.verifyNearMiss(t)
		case *ast.TrustedAnnotation:
			if len(ensures) > 0 {
				v.warnf(t.Span(), diagnostics.WTrustedUnused,
					"`trusted` on `%s` is unused: the function already declares `ensures`", name)
			}
		case *ast.ExplainAnnotation:
			v.verifyExplain(name, t, body, fn, len(ensures) > 0)
		case *ast.ProofAnnotation:
			v.verifyProof(name, t, fn, len(ensures))
		}
	}

	if len(ensures) > 0 && body != nil {
		v.walkVerificationChain(name, body, trusted != nil)
	}
}

// verifyKnow requires the predicate to be statically provable: a closed
// expression that folds to true (spec.md §4.5 "know P | statically
// provable predicate | unprovable P").
func (v *verifier) verifyKnow(t *ast.KnowAnnotation) {
	val, decidable := foldBool(t.Predicate)
	if !decidable {
		v.errorf(t.Span(), diagnostics.EKnowUnprovable,
			"`know` predicate is not statically provable").
			WithNote("use `assume` for predicates validated at runtime")
		return
	}
	if !val {
		v.errorf(t.Span(), diagnostics.EKnowUnprovable,
			"`know` predicate is statically false")
	}
}

// verifyNearMiss flags redundant rejection cases (spec.md §4.5 W322).
func (v *verifier) verifyNearMiss(t *ast.NearMissAnnotation) {
	seen := map[string]bool{}
	for _, cs := range t.Cases {
		fp := exprFingerprint(cs.Input)
		if seen[fp] {
			v.warnf(t.Span(), diagnostics.WNearMissRedundant,
				"redundant near_miss input `%s`", fp)
			continue
		}
		seen[fp] = true
		if exprFingerprint(cs.Expected) == fp {
			v.warnf(t.Span(), diagnostics.WNearMissRedundant,
				"near_miss input `%s` equals its expected value; the boundary is not distinct", fp)
		}
	}
}

// verifyProof checks legacy proof blocks: unique obligation names (E391),
// at least as many obligations as ensures clauses (E392), and a concept
// reference per obligation (W321) (spec.md §4.5).
func (v *verifier) verifyProof(name string, t *ast.ProofAnnotation, fn *ast.FunctionDef, ensuresCount int) {
	names := map[string]bool{}
	concepts := v.conceptNames(fn)
	for _, ob := range t.Obligations {
		if names[ob.Name] {
			v.errorf(ob.Span, diagnostics.EExplainDuplicate,
				"duplicate proof obligation `%s` in `%s`", ob.Name, name)
		}
		names[ob.Name] = true

		if !mentionsAnyConcept(ob.Text, concepts) {
			v.warnf(ob.Span, diagnostics.WProofNoConceptRef,
				"proof obligation `%s` references no parameter, variable, function, or `result`", ob.Name)
		}
	}
	if len(t.Obligations) < ensuresCount {
		v.errorf(t.Span(), diagnostics.EProofUnknownRef,
			"proof block has %d obligations for %d `ensures` clauses", len(t.Obligations), ensuresCount)
	}
}

// conceptNames collects every identifier an obligation or explain row may
// legitimately reference: parameters, locals, called function names, and
// the literal `result`.
func (v *verifier) conceptNames(fn *ast.FunctionDef) map[string]bool {
	out := map[string]bool{"result": true}
	if fn == nil {
		return out
	}
	for _, p := range fn.Params {
		out[p.Name] = true
	}
	if fn.Body != nil {
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			switch t := n.(type) {
			case *ast.VarDecl:
				out[t.Name] = true
			case *ast.BindingPattern:
				out[t.Name] = true
			case *ast.Call:
				if ident, ok := t.Callee.(*ast.Identifier); ok {
					out[ident.Name] = true
				}
			case *ast.Field:
				if head, ok := rootIdentifier(t); ok {
					out[head] = true
				}
			}
			return true
		})
	}
	return out
}

func rootIdentifier(f *ast.Field) (string, bool) {
	switch r := f.Receiver.(type) {
	case *ast.Identifier:
		return r.Name, true
	case *ast.Field:
		return rootIdentifier(r)
	}
	return "", false
}

func mentionsAnyConcept(text string, concepts map[string]bool) bool {
	for _, word := range tokenizeWords(text) {
		head := word
		if i := strings.IndexByte(word, '.'); i > 0 {
			head = word[:i]
		}
		if concepts[head] {
			return true
		}
	}
	return false
}

// walkVerificationChain records a gap for every callee without ensures and
// not marked trusted (spec.md §4.5 "Verification chain", W325).
func (v *verifier) walkVerificationChain(caller string, body *ast.Body, callerTrusted bool) {
	if callerTrusted {
		return
	}
	seen := map[symbols.ID]bool{}
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.Call)
		if !ok {
			return true
		}
		ident, ok := call.Callee.(*ast.Identifier)
		if !ok {
			return true
		}
		symID, bound := v.res.Uses[ident]
		if !bound || seen[symID] {
			return true
		}
		seen[symID] = true
		sym := v.res.Table.Get(symID)
		if sym.Kind != symbols.KindFunction {
			return true
		}
		calleeFn := v.functionBySym(symID)
		if calleeFn == nil {
			return true
		}
		if hasEnsures(calleeFn.Annotations) || hasTrusted(calleeFn.Annotations) {
			return true
		}
		v.out.ChainGaps = append(v.out.ChainGaps, ChainGap{
			Caller: caller, Callee: calleeFn.Name, Span: call.Span(),
		})
		v.warnf(call.Span(), diagnostics.WChainGap,
			"`%s` has `ensures` but callee `%s` is unverified and not `trusted`",
			caller, calleeFn.Name)
		return true
	})
}

func (v *verifier) functionBySym(id symbols.ID) *ast.FunctionDef {
	for fn, symID := range v.res.FuncSymbols {
		if symID == id {
			return fn
		}
	}
	return nil
}

func hasEnsures(anns []ast.Annotation) bool {
	for _, a := range anns {
		if _, ok := a.(*ast.EnsuresAnnotation); ok {
			return true
		}
	}
	return false
}

func hasTrusted(anns []ast.Annotation) bool {
	for _, a := range anns {
		if _, ok := a.(*ast.TrustedAnnotation); ok {
			return true
		}
	}
	return false
}

// foldBool statically evaluates a closed Boolean predicate.
func foldBool(e ast.Expression) (value, decidable bool) {
	switch t := e.(type) {
	case *ast.BooleanLiteral:
		return t.Value, true
	case *ast.Parenthesized:
		return foldBool(t.Inner)
	case *ast.UnaryOp:
		if t.Op == ast.OpNot {
			val, dec := foldBool(t.Inner)
			return !val, dec
		}
	case *ast.BinaryOp:
		switch t.Op {
		case ast.OpAnd:
			l, lok := foldBool(t.Left)
			r, rok := foldBool(t.Right)
			return l && r, lok && rok
		case ast.OpOr:
			l, lok := foldBool(t.Left)
			r, rok := foldBool(t.Right)
			return l || r, lok && rok
		case ast.OpEq, ast.OpNotEq, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
			l, lok := foldInt(t.Left)
			r, rok := foldInt(t.Right)
			if !lok || !rok {
				return false, false
			}
			switch t.Op {
			case ast.OpEq:
				return l == r, true
			case ast.OpNotEq:
				return l != r, true
			case ast.OpLt:
				return l < r, true
			case ast.OpGt:
				return l > r, true
			case ast.OpLe:
				return l <= r, true
			default:
				return l >= r, true
			}
		}
	}
	return false, false
}

func foldInt(e ast.Expression) (int64, bool) {
	switch t := e.(type) {
	case *ast.IntegerLiteral:
		return t.Value, true
	case *ast.Parenthesized:
		return foldInt(t.Inner)
	case *ast.UnaryOp:
		if t.Op == ast.OpNeg {
			val, ok := foldInt(t.Inner)
			return -val, ok
		}
	case *ast.BinaryOp:
		l, lok := foldInt(t.Left)
		r, rok := foldInt(t.Right)
		if !lok || !rok {
			return 0, false
		}
		switch t.Op {
		case ast.OpAdd:
			return l + r, true
		case ast.OpSub:
			return l - r, true
		case ast.OpMul:
			return l * r, true
		}
	}
	return 0, false
}

// exprFingerprint renders a stable structural key for near-miss dedup.
func exprFingerprint(e ast.Expression) string {
	switch t := e.(type) {
	case *ast.IntegerLiteral:
		return fmt.Sprintf("%d", t.Value)
	case *ast.DecimalLiteral:
		return fmt.Sprintf("%g", t.Value)
	case *ast.BooleanLiteral:
		return fmt.Sprintf("%t", t.Value)
	case *ast.StringLiteral:
		var b strings.Builder
		b.WriteByte('"')
		for _, s := range t.Segments {
			b.WriteString(s.Text)
		}
		b.WriteByte('"')
		return b.String()
	case *ast.UnaryOp:
		if t.Op == ast.OpNeg {
			return "-" + exprFingerprint(t.Inner)
		}
		return "!" + exprFingerprint(t.Inner)
	case *ast.Parenthesized:
		return exprFingerprint(t.Inner)
	case *ast.Identifier:
		return t.Name
	case *ast.Call:
		var parts []string
		for _, a := range t.Args {
			parts = append(parts, exprFingerprint(a))
		}
		return exprFingerprint(t.Callee) + "(" + strings.Join(parts, ",") + ")"
	case *ast.TypeIdentifier:
		return t.Name
	default:
		return "<expr>"
	}
}
