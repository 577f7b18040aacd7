// Package checker is the type & verb checker (spec.md §4.4): bidirectional
// typing over the resolved AST, context-aware call resolution, refinement
// checking, exhaustiveness, fallibility propagation, verb purity, and the
// monomorphization table.
package checker

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// Instantiation is one row of the per-module monomorphization table
// (spec.md §4.4 "Generics").
type Instantiation struct {
	FuncSym  symbols.ID
	Name     string
	Resolved []typesystem.Type // parameter types after substitution
	Key      string
	// UID disambiguates emitted names when two instantiations would
	// otherwise collide after C-identifier sanitization; derived
	// deterministically from Key so re-emission is byte-identical.
	UID string
}

// Result carries the checker's side tables to the verifier and emitter.
type Result struct {
	Res *resolver.Result

	// Monomorphs maps MonomorphKey to its instantiation; MonomorphOrder
	// keeps the keys sorted so emission order is deterministic.
	Monomorphs     map[string]Instantiation
	MonomorphOrder []string

	// RuntimeChecks marks assignment-site nodes whose refined target type
	// could not be discharged statically (spec.md §4.4 "the checker
	// inserts a runtime check at the assignment site").
	RuntimeChecks map[ast.Node]typesystem.Refined

	// DesugaredPipes maps each Pipe to the Call it lowers to; the desugar
	// happens at the typed-AST stage (spec.md §4.2, §4.6 "Pipe").
	DesugaredPipes map[*ast.Pipe]*ast.Call

	Diags []*diagnostics.Diagnostic
}

type checker struct {
	mod   *ast.Module
	res   *resolver.Result
	table *symbols.Table
	out   *Result

	// env is the stack of lexical frames mapping locals to their types.
	env []map[string]typesystem.Type

	// current function context
	curVerb    string
	curFails   bool
	curRet     typesystem.Type
	curFn      *ast.FunctionDef
	curFnSym   symbols.ID

	// calls records the user-function call graph for recursion checking.
	calls map[symbols.ID]map[symbols.ID]bool
	// callSites records, per calling function, every same-module call
	// expression with its callee, for the terminates measure check on
	// recursive call sites (direct or through a cycle).
	callSites map[symbols.ID][]callSite
	// patternOrigins maps a pattern-bound local name to the parameter it
	// was destructured from, inside the current arm.
	patternOrigins map[string]string

	// quiet suppresses diagnostics and side-table recording while probing
	// candidate signatures during context-aware call resolution.
	quiet int
}

// Check runs the type & verb checker over one resolved module.
func Check(mod *ast.Module, res *resolver.Result) *Result {
	out := &Result{
		Res:            res,
		Monomorphs:     map[string]Instantiation{},
		RuntimeChecks:  map[ast.Node]typesystem.Refined{},
		DesugaredPipes: map[*ast.Pipe]*ast.Call{},
	}
	c := &checker{
		mod: mod, res: res, table: res.Table, out: out,
		calls:          map[symbols.ID]map[symbols.ID]bool{},
		callSites:      map[symbols.ID][]callSite{},
		patternOrigins: map[string]string{},
	}

	for _, cd := range mod.Constants {
		c.checkConstant(cd)
	}
	for _, fn := range mod.Functions {
		c.checkFunction(fn)
	}
	if mod.Main != nil {
		c.checkMain(mod.Main)
	}
	c.checkRecursion()
	return out
}

func (c *checker) errorf(span sourcemap.Span, code, format string, args ...interface{}) *diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.SeverityError, code, span, fmt.Sprintf(format, args...))
	if c.quiet == 0 {
		c.out.Diags = append(c.out.Diags, d)
	}
	return d
}

func (c *checker) warnf(span sourcemap.Span, code, format string, args ...interface{}) *diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.SeverityWarning, code, span, fmt.Sprintf(format, args...))
	if c.quiet == 0 {
		c.out.Diags = append(c.out.Diags, d)
	}
	return d
}

func (c *checker) pushFrame() { c.env = append(c.env, map[string]typesystem.Type{}) }
func (c *checker) popFrame()  { c.env = c.env[:len(c.env)-1] }

func (c *checker) bind(name string, t typesystem.Type) {
	c.env[len(c.env)-1][name] = t
}

func (c *checker) lookupLocal(name string) (typesystem.Type, bool) {
	for i := len(c.env) - 1; i >= 0; i-- {
		if t, ok := c.env[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (c *checker) checkConstant(cd *ast.ConstantDef) {
	var expected typesystem.Type
	if cd.Type != nil {
		if id, ok := c.res.Root.Lookup(cd.Name); ok {
			expected = c.table.Get(id).Type
		}
	}
	c.pushFrame()
	got := c.checkExpr(cd.Value, expected)
	c.popFrame()
	if expected != nil {
		c.expectAssignable(cd.Value, got, expected)
	}
}

func (c *checker) checkMain(m *ast.MainDef) {
	c.curVerb = "main"
	c.curFails = m.Fails
	c.curRet = typesystem.Unit{}
	c.curFn = nil
	c.curFnSym = -1
	c.pushFrame()
	c.checkAnnotations(m.Annotations)
	c.checkBody(m.Body, nil)
	c.popFrame()
}

func (c *checker) checkFunction(fn *ast.FunctionDef) {
	symID, ok := c.res.FuncSymbols[fn]
	if !ok {
		return // duplicate identity already reported by the resolver
	}
	sym := c.table.Get(symID)
	ftype := sym.Type.(typesystem.Function)

	c.curVerb = fn.Verb
	c.curFails = fn.Fails
	c.curRet = ftype.Return
	c.curFn = fn
	c.curFnSym = symID

	c.pushFrame()
	defer c.popFrame()
	for i, p := range fn.Params {
		c.bind(p.Name, ftype.Params[i])
		if p.Where != nil {
			got := c.checkExpr(p.Where, typesystem.Boolean())
			c.expectAssignable(p.Where, got, typesystem.Boolean())
		}
	}

	c.checkAnnotations(fn.Annotations)

	// `matches` requires an algebraic first parameter (spec.md §4.2,
	// checked post-resolution).
	if fn.Verb == "matches" {
		if len(ftype.Params) == 0 {
			c.errorf(fn.Span(), diagnostics.ETypeArity,
				"`matches` functions need at least one parameter")
		} else if _, isAlg := typesystem.Base(ftype.Params[0]).(typesystem.Algebraic); !isAlg {
			c.errorf(fn.Params[0].Span, diagnostics.ETypeUnify,
				"`matches` requires an algebraic first parameter, got %s", ftype.Params[0].String())
		}
	}

	var firstParam typesystem.Type
	if len(ftype.Params) > 0 {
		firstParam = ftype.Params[0]
	}
	c.checkBody(fn.Body, firstParam)
}

// checkAnnotations type-checks contract predicates: requires/ensures/
// know/assume/believe must be Boolean, terminates numeric (spec.md §4.5
// obligation table's "Rejects" column for the type-shaped rejections).
func (c *checker) checkAnnotations(anns []ast.Annotation) {
	c.pushFrame()
	defer c.popFrame()
	c.bind("result", c.curRet)

	for _, a := range anns {
		switch v := a.(type) {
		case *ast.RequiresAnnotation:
			c.expectBooleanPredicate(v.Predicate, "requires")
		case *ast.EnsuresAnnotation:
			c.expectBooleanPredicate(v.Predicate, "ensures")
		case *ast.AssumeAnnotation:
			c.expectBooleanPredicate(v.Predicate, "assume")
		case *ast.KnowAnnotation:
			c.expectBooleanPredicate(v.Predicate, "know")
		case *ast.BelieveAnnotation:
			c.expectBooleanPredicate(v.Predicate, "believe")
		case *ast.TerminatesAnnotation:
			got := c.checkExpr(v.Measure, nil)
			if got != nil && !isNumeric(got) {
				c.errorf(v.Measure.Span(), diagnostics.ETypeUnify,
					"`terminates` measure must be numeric, got %s", got.String())
			}
		case *ast.NearMissAnnotation:
			for _, nm := range v.Cases {
				c.checkExpr(nm.Input, nil)
				c.checkExpr(nm.Expected, nil)
			}
		}
	}
}

func (c *checker) expectBooleanPredicate(e ast.Expression, kw string) {
	if e == nil {
		return
	}
	got := c.checkExpr(e, typesystem.Boolean())
	if got != nil && !typesystem.Equal(typesystem.Base(got), typesystem.Boolean()) {
		c.errorf(e.Span(), diagnostics.ETypeUnify,
			"`%s` takes a Boolean predicate, got %s", kw, got.String())
	}
}

// checkBody type-checks a function body; the terminal expression checks
// against the declared return type (spec.md §4.2 "The final non-var-decl
// expression ... is the return value").
func (c *checker) checkBody(body *ast.Body, firstParam typesystem.Type) {
	if body == nil {
		return
	}
	if body.IsImplicitMatch {
		if firstParam == nil {
			c.errorf(body.Span(), diagnostics.ETypeUnify,
				"implicit match body needs an algebraic first parameter")
			return
		}
		c.checkMatchArms(body.Span(), firstParam, body.Arms, c.curRet, c.firstParamName())
		return
	}

	terminal := body.TerminalExpression()
	for _, st := range body.Statements {
		switch v := st.(type) {
		case *ast.VarDecl:
			c.checkVarDecl(v)
		case *ast.Assignment:
			c.checkAssignment(v)
		case *ast.ExprStmt:
			var expected typesystem.Type
			if v.Value == terminal {
				expected = c.curRet
			}
			got := c.checkExpr(v.Value, expected)
			if v.Value == terminal && expected != nil {
				if _, isUnit := expected.(typesystem.Unit); !isUnit {
					c.expectAssignable(v.Value, got, expected)
				}
				if _, isLambda := v.Value.(*ast.Lambda); isLambda {
					c.errorf(v.Value.Span(), diagnostics.ELambdaCapture,
						"lambdas cannot be returned; they may only be passed as arguments")
				}
			}
		}
	}
}

func (c *checker) firstParamName() string {
	if c.curFn != nil && len(c.curFn.Params) > 0 {
		return c.curFn.Params[0].Name
	}
	return ""
}

func (c *checker) checkVarDecl(v *ast.VarDecl) {
	var declared typesystem.Type
	if id, ok := c.res.Uses[v]; ok {
		declared = c.table.Get(id).Type
	}
	if _, isLambda := v.Value.(*ast.Lambda); isLambda {
		c.errorf(v.Value.Span(), diagnostics.ELambdaCapture,
			"lambdas cannot be assigned to a local; they may only be passed as arguments")
	}
	got := c.checkExpr(v.Value, declared)
	if declared == nil {
		declared = got
	} else {
		c.checkRefinedAssignment(v, v.Value, got, declared)
	}
	if declared == nil {
		declared = typesystem.Unit{}
	}
	c.bind(v.Name, declared)
}

func (c *checker) checkAssignment(v *ast.Assignment) {
	target, ok := c.lookupLocal(v.Name)
	if !ok {
		if id, found := c.res.Uses[v]; found {
			target = c.table.Get(id).Type
		}
	}
	if target == nil {
		return // unknown identifier already reported
	}
	if !typesystem.HasModifier(target, "Mutable") {
		c.errorf(v.Span(), diagnostics.ETypeImmutableAssign,
			"cannot assign to `%s`: only identifiers typed `Mutable` can be reassigned", v.Name)
	}
	got := c.checkExpr(v.Value, target)
	c.checkRefinedAssignment(v, v.Value, got, target)
}

func isNumeric(t typesystem.Type) bool {
	p, ok := typesystem.Base(t).(typesystem.Primitive)
	if !ok {
		return false
	}
	return p.Name == "Integer" || p.Name == "Decimal" || p.Name == "Float" || p.Name == "Byte"
}

// recordMonomorph registers a generic instantiation (spec.md §4.4).
func (c *checker) recordMonomorph(symID symbols.ID, name string, resolved []typesystem.Type) {
	if c.quiet > 0 {
		return
	}
	key := typesystem.MonomorphKey(name, resolved)
	if _, seen := c.out.Monomorphs[key]; seen {
		return
	}
	c.out.Monomorphs[key] = Instantiation{
		FuncSym: symID, Name: name, Resolved: resolved, Key: key,
		UID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()[:8],
	}
	c.out.MonomorphOrder = append(c.out.MonomorphOrder, key)
	sort.Strings(c.out.MonomorphOrder)
}
