// Package manifest defines the typed shape of a project's manifest
// (spec.md §6.2). Parsing the TOML file itself is the external project
// scaffolder/config loader's job (spec.md §1 Non-goals); this package only
// gives the core pipeline a stable struct to receive already-parsed values
// into; Default returns one with the documented defaults applied.
package manifest

// Package is the `[package]` table.
type Package struct {
	Name    string // default "untitled"
	Version string // default "0.0.0"
}

// Build is the `[build]` table.
type Build struct {
	Target    string // default "native"; only "native" is implemented
	Optimize  bool   // default false; passes -O2 to the C compiler
	CFlags    []string
	LinkFlags []string
}

// Test is the `[test]` table.
type Test struct {
	PropertyRounds int // default 1000
}

// Style is the `[style]` table (consumed by the external formatter).
type Style struct {
	LineLength int // default 90
}

// Explain is the `[explain]` table augmenting the CNL operation table
// (internal/config.ExplainConfig).
type Explain struct {
	Operations []string
	Connectors []string
}

// Project is the fully-defaulted manifest shape.
type Project struct {
	Package Package
	Build   Build
	Test    Test
	Style   Style
	Explain Explain
}

// Default returns a Project with every documented default applied.
func Default() Project {
	return Project{
		Package: Package{Name: "untitled", Version: "0.0.0"},
		Build:   Build{Target: "native"},
		Test:    Test{PropertyRounds: 1000},
		Style:   Style{LineLength: 90},
	}
}
