package emitter

import (
	"strings"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/symbols"
	"github.com/kennedyshead/prove/internal/typesystem"
)

func (f *fnEmitter) emitCall(blk *block, call *ast.Call) string {
	args := make([]string, len(call.Args))
	for i, a := range call.Args {
		args[i] = f.emitExpr(blk, a)
	}

	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		id, ok := f.e.res.Uses[callee]
		if !ok {
			return callee.Name + "(" + strings.Join(args, ", ") + ")"
		}
		sym := f.e.res.Table.Get(id)
		switch sym.Kind {
		case symbols.KindBuiltinFunction:
			return f.emitBuiltinCall(call, sym.Name, args)
		case symbols.KindForeign:
			return sym.ForeignC + "(" + strings.Join(args, ", ") + ")"
		case symbols.KindFunction:
			name := mangle(sym.Verb, sym.Name, sym.Identity.ParamKey)
			if ft, isFn := sym.Type.(typesystem.Function); isFn && len(ft.FreeVars()) > 0 {
				// Generic call site: the monomorphized copy's name carries
				// the resolved parameter key (spec.md §4.4, §4.6).
				resolved := make([]typesystem.Type, len(call.Args))
				for i, a := range call.Args {
					resolved[i] = f.typeOf(a)
				}
				name = mangle(sym.Verb, sym.Name, typesystem.ParamKey(resolved))
			}
			return name + "(" + strings.Join(args, ", ") + ")"
		default:
			return callee.Name + "(" + strings.Join(args, ", ") + ")"
		}

	case *ast.TypeIdentifier:
		id, ok := f.e.res.Uses[callee]
		if !ok {
			return "0"
		}
		sym := f.e.res.Table.Get(id)
		return "Type_" + sym.OwnerType + "_" + sym.Name + "(" + strings.Join(args, ", ") + ")"

	default:
		fn := f.emitExpr(blk, call.Callee)
		return fn + "(" + strings.Join(args, ", ") + ")"
	}
}

// emitBuiltinCall maps the built-in surface onto the runtime ABI's C entry
// points (spec.md §6.3; the runtime itself is an external collaborator per
// spec.md §9).
func (f *fnEmitter) emitBuiltinCall(call *ast.Call, name string, args []string) string {
	join := strings.Join(args, ", ")
	switch name {
	case "len":
		if len(call.Args) == 1 && cType(f.typeOf(call.Args[0])) == "Prove_String*" {
			return "prove_string_len(" + join + ")"
		}
		return "prove_list_len(" + join + ")"
	case "head":
		return "prove_list_head(" + join + ")"
	case "tail":
		return "prove_list_tail(" + join + ")"
	case "concat":
		return "prove_list_concat(" + join + ")"
	case "map":
		return "prove_list_map(" + join + ")"
	case "filter":
		return "prove_list_filter(" + join + ")"
	case "trim":
		return "prove_string_trim(" + join + ")"
	case "lower":
		return "prove_string_lower(" + join + ")"
	case "upper":
		return "prove_string_upper(" + join + ")"
	case "contains":
		return "prove_string_contains(" + join + ")"
	case "to_string":
		if len(call.Args) == 1 {
			return stringify(args[0], f.typeOf(call.Args[0]))
		}
		return "prove_string_from_cstr(\"\")"
	default:
		// println, print, readln, read_file, write_file, open, close,
		// flush, sleep, max, min, clamp, abs.
		return "prove_" + name + "(" + join + ")"
	}
}
