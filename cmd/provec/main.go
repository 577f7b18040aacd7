// Command provec is the thin dispatcher over the compilation pipeline
// (spec.md §1 "The CLI is a thin dispatcher"): `check` prints diagnostics,
// `build` additionally hands the generated C to the system compiler,
// `test` runs the property harness after a successful build.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/driver"
	"github.com/kennedyshead/prove/internal/manifest"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() int {
	fmt.Fprintf(os.Stderr, `provec %s

usage:
  provec check [path...]   type-check and verify, print diagnostics
  provec build [path...]   check, emit C, invoke the system C compiler
  provec test  [path...]   build, then run the property-test harness
`, config.Version)
	return 1
}

func run(args []string) int {
	if len(args) == 0 {
		return usage()
	}
	cmd := args[0]
	roots := args[1:]
	if len(roots) == 0 {
		roots = []string{"."}
	}

	switch cmd {
	case "check":
		res, code := compile(roots)
		if res == nil {
			return code
		}
		return res.Bag.ExitCode()
	case "build":
		return build(roots, false)
	case "test":
		return build(roots, true)
	default:
		return usage()
	}
}

func compile(roots []string) (*driver.Result, int) {
	project := manifest.Default()
	res, err := driver.Compile(driver.Options{Project: project, Roots: roots})
	if err != nil {
		// Internal errors abort the driver with a context trail
		// (spec.md §7).
		fmt.Fprintf(os.Stderr, "error[%s]: %v\n", diagnostics.EInternalIO, err)
		return nil, 1
	}
	r := diagnostics.NewRenderer(res.SMap, nil, false)
	r.RenderAll(res.Bag.All())
	return res, res.Bag.ExitCode()
}

func build(roots []string, runTests bool) int {
	project := manifest.Default()
	res, code := compile(roots)
	if res == nil || code != 0 {
		return code
	}

	outDir := filepath.Join(".", "build")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error[%s]: %v\n", diagnostics.EInternalIO, err)
		return 1
	}
	var cFiles []string
	for _, unit := range res.Units {
		path := filepath.Join(outDir, unit.Name)
		if err := os.WriteFile(path, []byte(unit.Source), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error[%s]: %v\n", diagnostics.EInternalIO, err)
			return 1
		}
		if filepath.Ext(path) == ".c" {
			cFiles = append(cFiles, path)
		}
	}

	// The invocation wrapper for the system C compiler is an external
	// collaborator (spec.md §1); the dispatcher just executes the argv the
	// driver assembles and propagates the compiler's exit code (spec.md §7).
	ccArgs := driver.CCArgs(project, cFiles, outDir, res.Libraries)
	cc := exec.Command("cc", ccArgs...)
	cc.Stdout = os.Stdout
	cc.Stderr = os.Stderr
	if err := cc.Run(); err != nil {
		if exit, ok := err.(*exec.ExitError); ok {
			return exit.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "error[%s]: %v\n", diagnostics.EInternalIO, err)
		return 1
	}

	if runTests {
		harness := exec.Command(filepath.Join(outDir, project.Package.Name+"_proptest"))
		harness.Stdout = os.Stdout
		harness.Stderr = os.Stderr
		if err := harness.Run(); err != nil {
			if exit, ok := err.(*exec.ExitError); ok {
				return exit.ExitCode()
			}
			fmt.Fprintln(os.Stderr, "test: property harness not generated; run the harness generator first")
			return 1
		}
	}
	return 0
}
