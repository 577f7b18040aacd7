package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/kennedyshead/prove/internal/manifest"
)

// writeArchive materializes a txtar fixture into a temp project tree.
func writeArchive(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	ar := txtar.Parse([]byte(archive))
	for _, f := range ar.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

const helloProject = `-- src/hello.prv --
main()!
from
    println("Hello from Prove!")
`

const mixedProject = `-- src/good.prv --
transforms double_it(x Integer) Integer
from
    x * 2
-- src/bad.prv --
transforms shout(a String) String
from
    println(a)
    upper(a)
`

func TestDiscoverSourcesFindsNestedFiles(t *testing.T) {
	dir := writeArchive(t, helloProject+`-- src/nested/util.prv --
transforms triple_it(x Integer) Integer
from
    x * 3
-- src/readme.txt --
not a source file
`)
	paths, err := DiscoverSources([]string{dir})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 .prv files, got %v", paths)
	}
	for _, p := range paths {
		if !strings.HasSuffix(p, ".prv") {
			t.Fatalf("non-source file discovered: %s", p)
		}
	}
}

func TestCompileHelloWorldSucceeds(t *testing.T) {
	dir := writeArchive(t, helloProject)
	res, err := Compile(Options{Project: manifest.Default(), Roots: []string{dir}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Bag.ExitCode() != 0 {
		for _, d := range res.Bag.All() {
			t.Logf("[%s] %s", d.Code, d.Message)
		}
		t.Fatalf("hello world must compile clean")
	}
	if len(res.Units) != 2 {
		t.Fatalf("expected a .h and a .c unit, got %d", len(res.Units))
	}
	var cSrc string
	for _, u := range res.Units {
		if strings.HasSuffix(u.Name, ".c") {
			cSrc = u.Source
		}
	}
	if !strings.Contains(cSrc, "Hello from Prove!") {
		t.Fatalf("generated C lost the greeting")
	}
}

func TestFailingModuleSkipsEmissionButOthersContinue(t *testing.T) {
	dir := writeArchive(t, mixedProject)
	res, err := Compile(Options{Project: manifest.Default(), Roots: []string{dir}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Bag.ExitCode() != 1 {
		t.Fatalf("a module with E362 must fail the run")
	}
	// bad.prv must not emit; good.prv still does (spec.md §7).
	var names []string
	for _, u := range res.Units {
		names = append(names, u.Name)
	}
	joined := strings.Join(names, " ")
	if strings.Contains(joined, "bad.") {
		t.Fatalf("failing module must not reach emission: %v", names)
	}
	if !strings.Contains(joined, "good.") {
		t.Fatalf("error-free module must still emit: %v", names)
	}
}

func TestCCArgsReflectManifest(t *testing.T) {
	project := manifest.Default()
	project.Package.Name = "waterline"
	project.Build.Optimize = true
	project.Build.CFlags = []string{"-Wall"}
	project.Build.LinkFlags = []string{"-static"}

	args := CCArgs(project, []string{"build/main.c"}, "build", []string{"m"})
	joined := strings.Join(args, " ")
	for _, want := range []string{"-O2", "-Wall", "build/main.c", "-o", "-lm", "-static"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("cc args missing %q: %v", want, args)
		}
	}
	if !strings.Contains(joined, filepath.Join("build", "waterline")) {
		t.Fatalf("output binary name missing: %v", args)
	}
}

func TestCacheKeyStableAndSourceSensitive(t *testing.T) {
	dir := writeArchive(t, helloProject)
	res, err := Compile(Options{Project: manifest.Default(), Roots: []string{dir}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	key1 := CacheKey(res.SMap, res.Modules[0])
	key2 := CacheKey(res.SMap, res.Modules[0])
	if key1 != key2 || key1 == "" {
		t.Fatalf("cache key must be stable, got %q vs %q", key1, key2)
	}

	dir2 := writeArchive(t, strings.Replace(helloProject, "Hello", "Goodbye", 1))
	res2, err := Compile(Options{Project: manifest.Default(), Roots: []string{dir2}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if CacheKey(res2.SMap, res2.Modules[0]) == key1 {
		t.Fatalf("different source must hash to a different cache key")
	}
}
