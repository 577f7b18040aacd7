package emitter

import (
	"strings"

	"github.com/kennedyshead/prove/internal/typesystem"
)

// cType maps a canonical type to the C type the runtime ABI dictates
// (spec.md §4.6, §6.3). Refinements erase to their base; modifiers erase
// except for the allocation decision handled separately.
func cType(t typesystem.Type) string {
	t = typesystem.Unmodified(typesystem.Base(t))
	switch v := t.(type) {
	case typesystem.Primitive:
		switch v.Name {
		case "Integer":
			return "int64_t"
		case "Decimal", "Float":
			return "double"
		case "Boolean":
			return "bool"
		case "Byte":
			return "uint8_t"
		case "Character":
			return "uint32_t"
		case "String":
			return "Prove_String*"
		}
	case typesystem.Algebraic:
		return "Type_" + v.Name
	case typesystem.Record:
		return "Type_" + v.Name
	case typesystem.List:
		return "Prove_List*"
	case typesystem.Option:
		return "Prove_Option"
	case typesystem.Result:
		return "Prove_Result"
	case typesystem.Unit:
		return "void"
	case typesystem.Never:
		return "void"
	case typesystem.Applied:
		if v.Head == "Table" {
			return "Prove_Table*"
		}
		return "Type_" + v.Head
	case typesystem.Function:
		// Captureless lambdas pass as plain function pointers; the
		// signature is regenerated at the use site.
		return "void*"
	}
	return "int64_t"
}

// cValueType is cType except Unit maps to a storable placeholder for
// temporaries.
func cValueType(t typesystem.Type) string {
	ct := cType(t)
	if ct == "void" {
		return "int64_t"
	}
	return ct
}

// payloadField picks the Prove_Result/Prove_Option payload-union arm for a
// type: the payload-carrying form of spec.md §9 Open Question (b) is a
// union of int64/double/pointer.
func payloadField(t typesystem.Type) string {
	switch cType(t) {
	case "double":
		return "d"
	case "int64_t", "bool", "uint8_t", "uint32_t":
		return "i"
	default:
		return "ptr"
	}
}

// payloadRead renders reading a union payload back at the target type.
func payloadRead(expr string, t typesystem.Type) string {
	field := payloadField(t)
	ct := cValueType(t)
	switch field {
	case "i":
		if ct == "int64_t" {
			return expr + ".i"
		}
		return "(" + ct + ")" + expr + ".i"
	case "d":
		return expr + ".d"
	default:
		return "(" + ct + ")" + expr + ".ptr"
	}
}

// payloadWrite renders a designated-initializer payload for storing value
// at type t.
func payloadWrite(value string, t typesystem.Type) string {
	switch payloadField(t) {
	case "i":
		return "{.i = (int64_t)(" + value + ")}"
	case "d":
		return "{.d = (" + value + ")}"
	default:
		return "{.ptr = (void*)(" + value + ")}"
	}
}

// isHeap reports whether values of t carry the runtime's refcount header
// and need retain/release at scope boundaries (spec.md §4.6 "Memory
// model"). Arena-allocated values opt out and are freed en masse.
func isHeap(t typesystem.Type) bool {
	if typesystem.HasModifier(t, "Arena") {
		return false
	}
	switch typesystem.Unmodified(typesystem.Base(t)).(type) {
	case typesystem.List:
		return true
	}
	p, ok := typesystem.Unmodified(typesystem.Base(t)).(typesystem.Primitive)
	return ok && p.Name == "String"
}

// sanitizeKey rewrites a parameter-type-key into a C identifier fragment.
func sanitizeKey(key string) string {
	if key == "" {
		return "void"
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '|' || r == ',':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// mangle builds the emitted function name prove_<verb>_<name>_<paramkey>
// (spec.md §4.6 "Name mangling").
func mangle(verb, name, paramKey string) string {
	return "prove_" + verb + "_" + name + "_" + sanitizeKey(paramKey)
}
