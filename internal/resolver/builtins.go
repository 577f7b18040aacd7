package resolver

import (
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

// builtinSpec describes one built-in function registered in every module's
// root scope. IO builtins carry the inputs/outputs verb so purity
// enforcement and context-aware resolution treat them like user IO
// functions (spec.md §4.4 E362; the name set lives in config.IOBuiltins).
type builtinSpec struct {
	name  string
	verb  string
	typ   typesystem.Function
}

func gp(n string) typesystem.Type { return typesystem.GenericParam{Name: n} }

var builtinFunctions = []builtinSpec{
	{"println", "outputs", typesystem.Function{Verb: "outputs", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.Unit{}}},
	{"print", "outputs", typesystem.Function{Verb: "outputs", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.Unit{}}},
	{"readln", "inputs", typesystem.Function{Verb: "inputs", Params: nil, Return: typesystem.Result{Ok: typesystem.StringT(), Err: typesystem.StringT()}, Fails: true}},
	{"read_file", "inputs", typesystem.Function{Verb: "inputs", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.Result{Ok: typesystem.StringT(), Err: typesystem.StringT()}, Fails: true}},
	{"write_file", "outputs", typesystem.Function{Verb: "outputs", Params: []typesystem.Type{typesystem.StringT(), typesystem.StringT()}, Return: typesystem.Result{Ok: typesystem.Unit{}, Err: typesystem.StringT()}, Fails: true}},
	{"open", "inputs", typesystem.Function{Verb: "inputs", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.Result{Ok: typesystem.Integer(), Err: typesystem.StringT()}, Fails: true}},
	{"close", "outputs", typesystem.Function{Verb: "outputs", Params: []typesystem.Type{typesystem.Integer()}, Return: typesystem.Unit{}}},
	{"flush", "outputs", typesystem.Function{Verb: "outputs", Params: nil, Return: typesystem.Unit{}}},
	{"sleep", "outputs", typesystem.Function{Verb: "outputs", Params: []typesystem.Type{typesystem.Integer()}, Return: typesystem.Unit{}}},

	{"len", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}}, Return: typesystem.Integer()}},
	{"len", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.Integer()}},
	{"head", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}}, Return: typesystem.Option{Elem: gp("T")}}},
	{"tail", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}}, Return: typesystem.List{Elem: gp("T")}}},
	{"concat", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}, typesystem.List{Elem: gp("T")}}, Return: typesystem.List{Elem: gp("T")}}},
	{"map", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}, typesystem.Function{Verb: "transforms", Params: []typesystem.Type{gp("T")}, Return: gp("U")}}, Return: typesystem.List{Elem: gp("U")}}},
	{"filter", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.List{Elem: gp("T")}, typesystem.Function{Verb: "validates", Params: []typesystem.Type{gp("T")}, Return: typesystem.Boolean()}}, Return: typesystem.List{Elem: gp("T")}}},

	{"max", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.Integer(), typesystem.Integer()}, Return: typesystem.Integer()}},
	{"min", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.Integer(), typesystem.Integer()}, Return: typesystem.Integer()}},
	{"clamp", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.Integer(), typesystem.Integer(), typesystem.Integer()}, Return: typesystem.Integer()}},
	{"abs", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.Integer()}, Return: typesystem.Integer()}},

	{"trim", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.StringT()}},
	{"lower", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.StringT()}},
	{"upper", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{typesystem.StringT()}, Return: typesystem.StringT()}},
	{"contains", "validates", typesystem.Function{Verb: "validates", Params: []typesystem.Type{typesystem.StringT(), typesystem.StringT()}, Return: typesystem.Boolean()}},
	{"to_string", "transforms", typesystem.Function{Verb: "transforms", Params: []typesystem.Type{gp("T")}, Return: typesystem.StringT()}},
}

// builtinConstants are pre-declared module-level values.
var builtinConstants = map[string]typesystem.Type{
	"pi": typesystem.Decimal(),
}

func (r *resolver) declareBuiltins() {
	for _, b := range builtinFunctions {
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindBuiltinFunction, Name: b.name, Type: b.typ,
			Verb: b.verb, Identity: typesystem.NewIdentity(b.verb, b.name, b.typ.Params),
			Pure: b.verb != "inputs" && b.verb != "outputs", Fails: b.typ.Fails,
		})
		r.root.DeclareFunction(typesystem.NewIdentity(b.verb, b.name, b.typ.Params), id)
	}
	for name, t := range builtinConstants {
		id := r.table.Insert(symbols.Symbol{
			Kind: symbols.KindConstant, Name: name, Type: t,
		})
		r.root.Declare(name, id)
	}
}
