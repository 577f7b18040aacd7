// Package config holds fixed compiler-wide constants: the source file
// extension, default indentation width, the built-in IO function set used
// by purity enforcement, and the embedded CNL operation table consulted by
// the contract verifier. This mirrors the shape (not the content) of the
// teacher's internal/config/constants.go.
package config

// Version is the compiler's own version, printed in provec's usage
// banner.
var Version = "0.1.0"

const SourceFileExt = ".prv"

// SourceFileExtensions lists every recognized source extension.
var SourceFileExtensions = []string{SourceFileExt}

// DefaultTabWidth is the indentation width a tab normalizes to when no
// project manifest overrides it (spec.md §4.1).
const DefaultTabWidth = 4

// PureVerbs is the set of verbs forbidden IO and fallibility (spec.md §4.4
// "Verb purity"; spec.md GLOSSARY "Pure verb").
var PureVerbs = map[string]bool{
	"transforms": true, "validates": true, "reads": true,
	"creates": true, "matches": true,
}

// DispatchPreference is the tie-break order for context-aware call
// resolution step 4 (spec.md §4.3).
var DispatchPreference = []string{
	"transforms", "validates", "reads", "creates", "matches", "inputs", "outputs",
}

// IOBuiltins is the set of built-in identifiers a pure verb may not call
// (spec.md §4.4 E362). Purity enforcement checks built-ins against this
// name set and user functions by their inputs/outputs verb; functions
// bound in a `foreign` block carry no verb and are not checked for purity.
var IOBuiltins = map[string]bool{
	"println": true, "print": true, "readln": true,
	"read_file": true, "write_file": true,
	"open": true, "close": true, "flush": true, "sleep": true,
}

// SugarWords are ignored by the CNL tokenizer when parsing explain rows
// (spec.md §4.5).
var SugarWords = map[string]bool{
	"the": true, "a": true, "an": true, "all": true,
	"applicable": true, "every": true, "some": true,
}
