// Package ast defines the immutable tree of tagged variants produced by
// the parser (spec.md §3 "AST"). Every node is a sum-type discriminated by
// its Go type, dispatched through a single Visitor (spec.md §9
// "Tagged variants over inheritance").
package ast

import (
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// Node is the base interface every AST node implements.
type Node interface {
	Span() sourcemap.Span
	Accept(v Visitor)
}

// Decl is a top-level declaration inside a Module.
type Decl interface {
	Node
	declNode()
}

// Statement is a Node appearing in a function body.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node producing a value, annotated with its Type once the
// checker completes (spec.md §3 invariants: "Every typed expression
// carries a non-null type after the checker").
type Expression interface {
	Node
	expressionNode()
	ExprType() typesystem.Type
	SetExprType(typesystem.Type)
}

// TypeExpr is a type-expression node (SimpleType, GenericType, …).
type TypeExpr interface {
	Node
	typeExprNode()
}

// Pattern is a match-arm pattern node.
type Pattern interface {
	Node
	patternNode()
}

// exprBase gives every Expression its span and type-annotation slot.
type exprBase struct {
	span sourcemap.Span
	typ  typesystem.Type
}

func (e *exprBase) Span() sourcemap.Span            { return e.span }
func (e *exprBase) SetSpan(s sourcemap.Span)        { e.span = s }
func (e *exprBase) ExprType() typesystem.Type        { return e.typ }
func (e *exprBase) SetExprType(t typesystem.Type)    { e.typ = t }
func (e *exprBase) expressionNode()                  {}

// declBase gives every Decl its span.
type declBase struct{ span sourcemap.Span }

func (d *declBase) Span() sourcemap.Span     { return d.span }
func (d *declBase) SetSpan(s sourcemap.Span) { d.span = s }
func (d *declBase) declNode()                {}

// stmtBase gives every Statement its span.
type stmtBase struct{ span sourcemap.Span }

func (s *stmtBase) Span() sourcemap.Span      { return s.span }
func (s *stmtBase) SetSpan(sp sourcemap.Span) { s.span = sp }
func (s *stmtBase) statementNode()            {}

// typeBase gives every TypeExpr its span.
type typeBase struct{ span sourcemap.Span }

func (t *typeBase) Span() sourcemap.Span      { return t.span }
func (t *typeBase) SetSpan(sp sourcemap.Span) { t.span = sp }
func (t *typeBase) typeExprNode()             {}

// patternBase gives every Pattern its span.
type patternBase struct{ span sourcemap.Span }

func (p *patternBase) Span() sourcemap.Span      { return p.span }
func (p *patternBase) SetSpan(sp sourcemap.Span) { p.span = sp }
func (p *patternBase) patternNode()              {}

// Module is the root of a single source file's AST (spec.md §3).
type Module struct {
	FileSpan sourcemap.Span
	Narrative string

	Imports   []*Import
	Types     []*TypeDef
	Constants []*ConstantDef
	Functions []*FunctionDef
	Main      *MainDef
	Foreign   []*ForeignBlock
	Networks  []*InvariantNetwork
}

func (m *Module) Span() sourcemap.Span { return m.FileSpan }
func (m *Module) Accept(v Visitor)     { v.VisitModule(m) }

// Import is one `ModuleName verb ident ident ...` import group, or a
// `types X Y` group (spec.md §4.2 "Imports").
type Import struct {
	span       sourcemap.Span
	ModuleName string
	Verb       string // "" for a bare group, "types" for a types-group, else a verb keyword
	Names      []string
}

func (i *Import) Span() sourcemap.Span { return i.span }
func (i *Import) Accept(v Visitor)     { v.VisitImport(i) }

// NewImport constructs an Import.
func NewImport(span sourcemap.Span, module, verb string, names []string) *Import {
	return &Import{span: span, ModuleName: module, Verb: verb, Names: names}
}
