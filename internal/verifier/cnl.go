package verifier

import (
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
)

// cnlRow is the parse of one explain row: the first recognized operation
// verb, the connectors, and the identifier references (spec.md §4.5
// "explain / proof").
type cnlRow struct {
	Operation  string
	Connectors []string
	References []string
	Unknown    []string
}

// tokenizeWords splits a CNL row into lowercase word tokens, keeping
// dotted field-access chains intact.
func tokenizeWords(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// parseRow runs the CNL tokenizer: sugar words are ignored, the first
// recognized operation verb wins, prepositions from the connector set are
// connectors, and identifiers matching a parameter, local, field chain, or
// `result` are references; other words containing `_` or `.` are unknown,
// and the remaining prose is ignored (spec.md §4.5, §9 "CNL parsing in
// explain").
func (v *verifier) parseRow(text string, concepts map[string]bool) cnlRow {
	row := cnlRow{}
	for _, word := range tokenizeWords(text) {
		if config.SugarWords[word] {
			continue
		}
		if row.Operation == "" {
			if _, known := v.cfg.ShapeFor(word); known {
				row.Operation = word
				continue
			}
		}
		if v.cfg.IsConnector(word) {
			row.Connectors = append(row.Connectors, word)
			continue
		}
		head := word
		if i := strings.IndexByte(word, '.'); i > 0 {
			head = word[:i]
		}
		if concepts[head] {
			row.References = append(row.References, word)
			continue
		}
		// Only identifier-looking words (underscored names, field chains)
		// count as references; free prose between them is tolerated
		// (spec.md §9 "Do not attempt semantic NLP").
		if strings.ContainsAny(word, "_.") {
			row.Unknown = append(row.Unknown, word)
		}
	}
	return row
}

// verifyExplain checks an explain block in strict or loose mode (spec.md
// §4.5): strict requires one row per top-level body statement (E390), no
// duplicate rows (E391), a recognized operation per row (E394), and known
// references (E392); loose mode only checks well-formedness and reference
// existence.
func (v *verifier) verifyExplain(name string, t *ast.ExplainAnnotation, body *ast.Body, fn *ast.FunctionDef, strict bool) {
	concepts := v.conceptNames(fn)

	if strict && body != nil {
		stmtCount := len(body.Statements)
		if body.IsImplicitMatch {
			stmtCount = len(body.Arms)
		}
		if len(t.Rows) != stmtCount {
			v.errorf(t.Span(), diagnostics.EExplainRowCount,
				"explain block of `%s` has %d rows for %d body statements",
				name, len(t.Rows), stmtCount).
				WithNote("in strict mode (the function declares `ensures`) every top-level statement needs exactly one row")
		}
	}

	seen := map[string]bool{}
	for _, row := range t.Rows {
		normalized := strings.Join(tokenizeWords(row.Text), " ")
		if strict && seen[normalized] {
			v.errorf(row.Span, diagnostics.EExplainDuplicate,
				"duplicate explain row in `%s`", name)
		}
		seen[normalized] = true

		parsed := v.parseRow(row.Text, concepts)
		if strict && parsed.Operation == "" {
			v.errorf(row.Span, diagnostics.EExplainUnknownOp,
				"explain row has no recognized operation").
				WithNote("add custom operations under [explain].operations in the project manifest")
			continue
		}
		for _, unk := range parsed.Unknown {
			v.errorf(row.Span, diagnostics.EProofUnknownRef,
				"explain row references unknown identifier `%s`", unk)
		}
		if strict && parsed.Operation != "" {
			v.checkOperationClaim(row, parsed, fn)
		}
	}
}

// checkOperationClaim compares a row's claimed operation against the
// contract of the function it maps to, when that callee exists in the body
// and declares ensures; an incompatible claim is a warning (spec.md §4.5
// "a known lookup table maps operation verbs to expected contract
// shapes").
func (v *verifier) checkOperationClaim(row ast.ExplainRow, parsed cnlRow, fn *ast.FunctionDef) {
	shape, _ := v.cfg.ShapeFor(parsed.Operation)
	if shape == "" || shape == "none" || fn == nil || fn.Body == nil {
		return
	}
	callee := v.calledFunctionNamed(fn.Body, parsed.Operation)
	if callee == nil {
		return
	}
	var ensuresTexts []string
	for _, a := range callee.Annotations {
		if e, ok := a.(*ast.EnsuresAnnotation); ok {
			ensuresTexts = append(ensuresTexts, exprFingerprint(e.Predicate))
		}
	}
	if len(ensuresTexts) == 0 {
		return // the chain walker already reports the missing contract
	}
	if !shapeCompatible(shape, strings.Join(ensuresTexts, " ")) {
		v.warnf(row.Span, diagnostics.WIncompatibleClaim,
			"explain row claims `%s` (%s) but `%s`'s ensures clauses do not state it",
			parsed.Operation, shape, callee.Name)
	}
}

func (v *verifier) calledFunctionNamed(body *ast.Body, name string) *ast.FunctionDef {
	var found *ast.FunctionDef
	ast.Inspect(body, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		call, ok := n.(*ast.Call)
		if !ok {
			return true
		}
		ident, ok := call.Callee.(*ast.Identifier)
		if !ok || ident.Name != name {
			return true
		}
		if symID, bound := v.res.Uses[ident]; bound {
			found = v.functionBySym(symID)
		}
		return true
	})
	return found
}

// shapeCompatible is a deliberately light structural check: the callee's
// ensures text must carry the comparison shape the operation implies
// (spec.md §9 "Do not attempt semantic NLP").
func shapeCompatible(shape, ensures string) bool {
	switch shape {
	case "bounded":
		return strings.Contains(ensures, ">=") || strings.Contains(ensures, "<=")
	case "monotone-nondecreasing-on-nonnegative":
		return strings.Contains(ensures, ">=")
	case "length-preserving", "length-nonincreasing", "length-additive", "output-shape":
		return strings.Contains(ensures, "len")
	case "ordered":
		return strings.Contains(ensures, "<=") || strings.Contains(ensures, "sorted")
	case "idempotent", "commutative":
		// Not structurally checkable without running the callee; accept.
		return true
	default:
		return true
	}
}
