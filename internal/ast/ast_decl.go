package ast

import "github.com/kennedyshead/prove/internal/sourcemap"

// Param is one function parameter: `(identifier, type-expr, optional
// where-clause)` per spec.md §3.
type Param struct {
	Name  string
	Type  TypeExpr
	Where Expression // optional refinement predicate attached at the parameter, nil if absent
	Span  sourcemap.Span
}

// FunctionDef is a verb-prefixed function declaration (spec.md §3, §4.2).
type FunctionDef struct {
	declBase
	Verb       string // one of transforms/validates/reads/creates/matches/inputs/outputs
	Name       string
	Params     []Param
	ReturnType TypeExpr // nil => implicit Boolean for validates
	Fails      bool     // trailing `!` fail marker

	Annotations []Annotation
	Body        *Body

	Doc string
}

func (f *FunctionDef) Accept(v Visitor) { v.VisitFunctionDef(f) }

// MainDef is the program entry point (spec.md §3).
type MainDef struct {
	declBase
	Fails       bool
	Annotations []Annotation
	Body        *Body
}

func (m *MainDef) Accept(v Visitor) { v.VisitMainDef(m) }

// VariantField is one field of an algebraic-type variant constructor.
type VariantField struct {
	Name string
	Type TypeExpr
}

// TypeDef declares a type: an algebraic, record, refinement, or alias
// type (spec.md §3 "Type expressions").
type TypeDef struct {
	declBase
	Name string
	Type TypeExpr
	Doc  string
}

func (t *TypeDef) Accept(v Visitor) { v.VisitTypeDef(t) }

// ConstantDef declares a module-level constant.
type ConstantDef struct {
	declBase
	Name string
	Type TypeExpr // optional
	Value Expression
}

func (c *ConstantDef) Accept(v Visitor) { v.VisitConstantDef(c) }

// ForeignFunc is one `extern`-style binding inside a ForeignBlock.
type ForeignFunc struct {
	Name       string // prv-side name
	CName      string // the bound C symbol
	Params     []TypeExpr
	ReturnType TypeExpr
	Span       sourcemap.Span
}

// ForeignBlock binds C functions from a named system library (spec.md §3,
// §4.6 "Foreign block").
type ForeignBlock struct {
	declBase
	Library   string
	Functions []ForeignFunc
}

func (f *ForeignBlock) Accept(v Visitor) { v.VisitForeignBlock(f) }

// InvariantNetwork is a named group of invariants a function's `satisfies`
// annotation can reference (spec.md §3, §4.5 "satisfies N").
type InvariantNetwork struct {
	declBase
	Name       string
	Invariants []Expression
}

func (n *InvariantNetwork) Accept(v Visitor) { v.VisitInvariantNetwork(n) }

// --- Annotations (spec.md §3 "Annotations") ---

// Annotation is the common interface for every tagged annotation variant
// a FunctionDef/MainDef can carry, recorded in source order (spec.md §4.2).
type Annotation interface {
	Node
	annotationNode()
	Keyword() string
}

type annotationBase struct{ span sourcemap.Span }

func (a *annotationBase) Span() sourcemap.Span      { return a.span }
func (a *annotationBase) SetSpan(s sourcemap.Span)  { a.span = s }
func (a *annotationBase) annotationNode()           {}

// RequiresAnnotation: `requires P`.
type RequiresAnnotation struct {
	annotationBase
	Predicate Expression
}

func (a *RequiresAnnotation) Accept(v Visitor)  { v.VisitRequiresAnnotation(a) }
func (a *RequiresAnnotation) Keyword() string   { return "requires" }

// EnsuresAnnotation: `ensures P`.
type EnsuresAnnotation struct {
	annotationBase
	Predicate Expression
}

func (a *EnsuresAnnotation) Accept(v Visitor) { v.VisitEnsuresAnnotation(a) }
func (a *EnsuresAnnotation) Keyword() string  { return "ensures" }

// TerminatesAnnotation: `terminates M`.
type TerminatesAnnotation struct {
	annotationBase
	Measure Expression
}

func (a *TerminatesAnnotation) Accept(v Visitor) { v.VisitTerminatesAnnotation(a) }
func (a *TerminatesAnnotation) Keyword() string  { return "terminates" }

// TrustedAnnotation: `trusted "reason"`.
type TrustedAnnotation struct {
	annotationBase
	Reason string
}

func (a *TrustedAnnotation) Accept(v Visitor) { v.VisitTrustedAnnotation(a) }
func (a *TrustedAnnotation) Keyword() string  { return "trusted" }

// KnowAnnotation: `know P`.
type KnowAnnotation struct {
	annotationBase
	Predicate Expression
}

func (a *KnowAnnotation) Accept(v Visitor) { v.VisitKnowAnnotation(a) }
func (a *KnowAnnotation) Keyword() string  { return "know" }

// AssumeAnnotation: `assume P`.
type AssumeAnnotation struct {
	annotationBase
	Predicate Expression
}

func (a *AssumeAnnotation) Accept(v Visitor) { v.VisitAssumeAnnotation(a) }
func (a *AssumeAnnotation) Keyword() string  { return "assume" }

// BelieveAnnotation: `believe P`.
type BelieveAnnotation struct {
	annotationBase
	Predicate Expression
}

func (a *BelieveAnnotation) Accept(v Visitor) { v.VisitBelieveAnnotation(a) }
func (a *BelieveAnnotation) Keyword() string  { return "believe" }

// WhyNotAnnotation: `why_not "text"` (rejected-alternative rationale).
type WhyNotAnnotation struct {
	annotationBase
	Text string
}

func (a *WhyNotAnnotation) Accept(v Visitor) { v.VisitWhyNotAnnotation(a) }
func (a *WhyNotAnnotation) Keyword() string  { return "why_not" }

// ChosenAnnotation: `chosen "text"` (rationale for the taken design).
type ChosenAnnotation struct {
	annotationBase
	Text string
}

func (a *ChosenAnnotation) Accept(v Visitor) { v.VisitChosenAnnotation(a) }
func (a *ChosenAnnotation) Keyword() string  { return "chosen" }

// NearMissCase is one `input => expected` row of a near_miss annotation.
type NearMissCase struct {
	Input    Expression
	Expected Expression
}

// NearMissAnnotation: `near_miss input => expected` (spec.md §4.5).
type NearMissAnnotation struct {
	annotationBase
	Cases []NearMissCase
}

func (a *NearMissAnnotation) Accept(v Visitor) { v.VisitNearMissAnnotation(a) }
func (a *NearMissAnnotation) Keyword() string  { return "near_miss" }

// SatisfiesAnnotation: `satisfies N` referencing an InvariantNetwork.
type SatisfiesAnnotation struct {
	annotationBase
	NetworkName string
}

func (a *SatisfiesAnnotation) Accept(v Visitor) { v.VisitSatisfiesAnnotation(a) }
func (a *SatisfiesAnnotation) Keyword() string  { return "satisfies" }

// IntentAnnotation: `intent "text"` (free-text design rationale).
type IntentAnnotation struct {
	annotationBase
	Text string
}

func (a *IntentAnnotation) Accept(v Visitor) { v.VisitIntentAnnotation(a) }
func (a *IntentAnnotation) Keyword() string  { return "intent" }

// ExplainRow is one row of an explain block: verbatim text plus the span it
// came from, preserved for the CNL tokenizer (spec.md §4.2, §4.5).
type ExplainRow struct {
	Text string
	Span sourcemap.Span
}

// ExplainAnnotation: `explain` followed by rows (spec.md §4.2, §4.5).
type ExplainAnnotation struct {
	annotationBase
	Rows []ExplainRow
}

func (a *ExplainAnnotation) Accept(v Visitor) { v.VisitExplainAnnotation(a) }
func (a *ExplainAnnotation) Keyword() string  { return "explain" }

// ProofObligationRow is one `identifier : text` row of a (legacy) proof
// block (spec.md §4.2, §4.5).
type ProofObligationRow struct {
	Name string
	Text string
	Span sourcemap.Span
}

// ProofAnnotation: `proof` followed by named obligation rows.
type ProofAnnotation struct {
	annotationBase
	Obligations []ProofObligationRow
}

func (a *ProofAnnotation) Accept(v Visitor) { v.VisitProofAnnotation(a) }
func (a *ProofAnnotation) Keyword() string  { return "proof" }
