// Package symbols implements the flat symbol table and scope tree of
// spec.md §3 "Symbol" / "Scope tree" and §9 "Graph of symbols": scopes
// hold symbol IDs, not object references, so symbols live in one flat
// table indexed by ID. This mirrors the teacher's own symbol-table
// package shape (internal/symbols/symbol_table_core.go's ID-indexed
// design), generalized to verb-dispatched function identity instead of
// name-only lookup, and informed by gmofishsauce-wut4/grailbio-gql's
// hand-rolled ID-table idiom (SPEC_FULL.md §5).
package symbols

import (
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// Kind discriminates the Symbol variants of spec.md §3 "Symbol".
type Kind int

const (
	KindFunction Kind = iota
	KindBuiltinFunction
	KindVariantConstructor
	KindTypeDef
	KindConstant
	KindParameter
	KindLocal
	KindField
	KindModule
	KindForeign
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindBuiltinFunction:
		return "BuiltinFunction"
	case KindVariantConstructor:
		return "VariantConstructor"
	case KindTypeDef:
		return "TypeDef"
	case KindConstant:
		return "Constant"
	case KindParameter:
		return "Parameter"
	case KindLocal:
		return "Local"
	case KindField:
		return "Field"
	case KindModule:
		return "Module"
	case KindForeign:
		return "Foreign"
	default:
		return "Unknown"
	}
}

// ID identifies a Symbol within a Table.
type ID int

// Symbol is one entry of spec.md §3 "Symbol { kind, name, span, type,
// extra }". Extra carries kind-specific bookkeeping (e.g. a Function
// symbol's declared Verb and Identity, a VariantConstructor's owning
// Algebraic type name, a Foreign symbol's bound C name and library).
type Symbol struct {
	ID   ID
	Kind Kind
	Name string
	Span sourcemap.Span
	Type typesystem.Type

	Verb       string              // populated for KindFunction
	Identity   typesystem.Identity // populated for KindFunction
	Pure       bool                // populated for KindFunction: verb is in config.PureVerbs
	Fails      bool                // populated for KindFunction
	OwnerType  string              // populated for KindVariantConstructor / KindField: owning Algebraic/Record name
	ForeignLib string              // populated for KindForeign
	ForeignC   string              // populated for KindForeign: bound C symbol name
}

// Table is the flat, ID-indexed symbol store every Scope references into
// (spec.md §9 "Graph of symbols": "scopes hold symbol IDs, not object
// references; symbols live in a flat table indexed by ID").
type Table struct {
	symbols []*Symbol
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Insert adds sym to the table, assigns it an ID, and returns that ID.
func (t *Table) Insert(sym Symbol) ID {
	id := ID(len(t.symbols))
	sym.ID = id
	t.symbols = append(t.symbols, &sym)
	return id
}

// Get returns the Symbol for id.
func (t *Table) Get(id ID) *Symbol {
	if int(id) < 0 || int(id) >= len(t.symbols) {
		return nil
	}
	return t.symbols[id]
}

// All returns every symbol in insertion order.
func (t *Table) All() []*Symbol {
	return t.symbols
}
