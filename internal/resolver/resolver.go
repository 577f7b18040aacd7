// Package resolver implements the two-pass name resolution of spec.md
// §4.3: declaration collection into the root scope's verb-dispatched
// function table, then reference resolution through the scope tree.
package resolver

import (
	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// Result is everything later stages need from resolution.
type Result struct {
	Table *symbols.Table
	Root  *symbols.Scope

	// Uses maps an identifier, type-identifier, or assignment node to the
	// symbol it resolved to, when resolution was unambiguous without type
	// context. Call sites with several verb-variants stay unmapped here;
	// the checker finishes them with context-aware resolution (spec.md
	// §4.3).
	Uses map[ast.Node]symbols.ID

	// FuncSymbols maps each function definition to its declared symbol.
	FuncSymbols map[*ast.FunctionDef]symbols.ID

	// NamedTypes holds every module-level type definition by name; built-in
	// types are not entered here.
	NamedTypes map[string]typesystem.Type

	// Networks holds invariant networks by name for `satisfies` lookup.
	Networks map[string]*ast.InvariantNetwork

	Diags []*diagnostics.Diagnostic
}

type resolver struct {
	mod   *ast.Module
	table *symbols.Table
	root  *symbols.Scope
	res   *Result

	lower *typeLowerer
}

// Resolve runs both passes over one module. Resolving the same module
// twice yields an equivalent Result; the input AST is not mutated.
func Resolve(mod *ast.Module) *Result {
	table := symbols.NewTable()
	root := symbols.NewRootScope()
	res := &Result{
		Table:       table,
		Root:        root,
		Uses:        map[ast.Node]symbols.ID{},
		FuncSymbols: map[*ast.FunctionDef]symbols.ID{},
		NamedTypes:  map[string]typesystem.Type{},
		Networks:    map[string]*ast.InvariantNetwork{},
	}
	r := &resolver{mod: mod, table: table, root: root, res: res}
	r.lower = newTypeLowerer(mod, res, r.report)

	r.declareBuiltins()
	r.collectDeclarations()
	r.resolveReferences()
	return res
}

func (r *resolver) report(d *diagnostics.Diagnostic) {
	r.res.Diags = append(r.res.Diags, d)
}

// collectDeclarations is pass 1 (spec.md §4.3 "Declaration collection").
func (r *resolver) collectDeclarations() {
	for _, td := range r.mod.Types {
		r.declareTypeDef(td)
	}
	for _, cd := range r.mod.Constants {
		r.declareConstant(cd)
	}
	for _, fb := range r.mod.Foreign {
		r.declareForeignBlock(fb)
	}
	for _, nw := range r.mod.Networks {
		if _, dup := r.res.Networks[nw.Name]; dup {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.EResDuplicateCtor, nw.Span(),
				"duplicate invariant network `"+nw.Name+"`"))
			continue
		}
		r.res.Networks[nw.Name] = nw
	}
	for _, fn := range r.mod.Functions {
		r.declareFunction(fn)
	}
}

func (r *resolver) declareTypeDef(td *ast.TypeDef) {
	t := r.lower.lowerTypeDef(td)
	r.res.NamedTypes[td.Name] = t

	id := r.table.Insert(symbols.Symbol{
		Kind: symbols.KindTypeDef, Name: td.Name, Span: td.Span(), Type: t,
	})
	if !r.root.DeclareType(td.Name, id) {
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResDuplicateCtor, td.Span(),
			"type `"+td.Name+"` is already declared"))
		return
	}

	// Algebraic variants register by their CamelCase name plus arity,
	// retrievable both as a constructor callable and as a pattern head
	// (spec.md §4.3 Pass 1).
	if alg, ok := t.(typesystem.Algebraic); ok {
		for _, v := range alg.Variants {
			params := make([]typesystem.Type, len(v.Fields))
			for i, f := range v.Fields {
				params[i] = f.Type
			}
			ctorID := r.table.Insert(symbols.Symbol{
				Kind: symbols.KindVariantConstructor, Name: v.Name, Span: td.Span(),
				Type:      typesystem.Function{Verb: "creates", Params: params, Return: typesystem.Algebraic{Name: alg.Name}},
				OwnerType: alg.Name,
			})
			if !r.root.DeclareType(v.Name, ctorID) {
				r.report(diagnostics.New(diagnostics.SeverityError,
					diagnostics.EResDuplicateCtor, td.Span(),
					"variant constructor `"+v.Name+"` is already declared"))
			}
		}
	}
}

func (r *resolver) declareConstant(cd *ast.ConstantDef) {
	var t typesystem.Type
	if cd.Type != nil {
		t = r.lower.lowerTypeExpr(cd.Type)
	} else {
		t = literalType(cd.Value)
	}
	id := r.table.Insert(symbols.Symbol{
		Kind: symbols.KindConstant, Name: cd.Name, Span: cd.Span(), Type: t,
	})
	if !r.root.Declare(cd.Name, id) {
		r.report(diagnostics.New(diagnostics.SeverityError,
			diagnostics.EResDuplicateCtor, cd.Span(),
			"constant `"+cd.Name+"` is already declared"))
	}
}

func (r *resolver) declareForeignBlock(fb *ast.ForeignBlock) {
	for _, ff := range fb.Functions {
		params := make([]typesystem.Type, len(ff.Params))
		for i, pt := range ff.Params {
			params[i] = r.lower.lowerTypeExpr(pt)
		}
		var ret typesystem.Type = typesystem.Unit{}
		if ff.ReturnType != nil {
			ret = r.lower.lowerTypeExpr(ff.ReturnType)
		}
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindForeign, Name: ff.Name, Span: ff.Span,
			Type:       typesystem.Function{Params: params, Return: ret},
			ForeignLib: fb.Library, ForeignC: ff.CName,
		})
		if !r.root.Declare(ff.Name, id) {
			r.report(diagnostics.New(diagnostics.SeverityError,
				diagnostics.EResDuplicateCtor, ff.Span,
				"foreign function `"+ff.Name+"` is already declared"))
		}
	}
}

func (r *resolver) declareFunction(fn *ast.FunctionDef) {
	params := make([]typesystem.Type, len(fn.Params))
	for i, p := range fn.Params {
		if p.Type != nil {
			params[i] = r.lower.lowerTypeExpr(p.Type)
		} else {
			params[i] = typesystem.GenericParam{Name: "_p"}
		}
		if p.Where != nil {
			// A parameter-level where clause refines the declared type; the
			// identity key normalizes it away (spec.md §3 "Symbol").
			params[i] = typesystem.Refined{Base: params[i], Constraint: ConstraintFromExpr(p.Where)}
		}
	}
	var ret typesystem.Type
	switch {
	case fn.ReturnType != nil:
		ret = r.lower.lowerTypeExpr(fn.ReturnType)
	case fn.Verb == "validates":
		ret = typesystem.Boolean()
	default:
		ret = typesystem.Unit{}
	}
	ftype := typesystem.Function{Verb: fn.Verb, Params: params, Return: ret, Fails: fn.Fails}

	identity := typesystem.NewIdentity(fn.Verb, fn.Name, params)
	id := r.table.Insert(symbols.Symbol{
		Kind: symbols.KindFunction, Name: fn.Name, Span: fn.Span(), Type: ftype,
		Verb: fn.Verb, Identity: identity,
		Pure: config.PureVerbs[fn.Verb], Fails: fn.Fails,
	})
	if !r.root.DeclareFunction(identity, id) {
		code := diagnostics.EResDuplicateFunc
		if fn.Verb == "inputs" || fn.Verb == "outputs" {
			code = diagnostics.EIdentityDuplicate
		}
		prev, _ := r.root.LookupFunction(identity)
		d := diagnostics.New(diagnostics.SeverityError, code, fn.Span(),
			"duplicate function identity `"+identity.String()+"`")
		if prevSym := r.table.Get(prev); prevSym != nil {
			d.WithLabel(prevSym.Span, "previously declared here")
		}
		r.report(d)
		return
	}
	r.res.FuncSymbols[fn] = id
}

// literalType gives an untyped constant declaration its type from the
// literal shape alone.
func literalType(e ast.Expression) typesystem.Type {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return typesystem.Integer()
	case *ast.DecimalLiteral:
		return typesystem.Decimal()
	case *ast.BooleanLiteral:
		return typesystem.Boolean()
	case *ast.StringLiteral:
		return typesystem.StringT()
	case *ast.Parenthesized:
		return literalType(v.Inner)
	}
	return nil
}
