// Package driver wires the pipeline stages together (spec.md §2): source
// load, lex, parse, resolve, check, verify, emit, with per-module
// front-end work fanned out concurrently and the monomorphization merge
// and emission kept on a single goroutine (spec.md §5).
package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/kennedyshead/prove/internal/ast"
	"github.com/kennedyshead/prove/internal/checker"
	"github.com/kennedyshead/prove/internal/config"
	"github.com/kennedyshead/prove/internal/diagnostics"
	"github.com/kennedyshead/prove/internal/emitter"
	"github.com/kennedyshead/prove/internal/lexer"
	"github.com/kennedyshead/prove/internal/manifest"
	"github.com/kennedyshead/prove/internal/parser"
	"github.com/kennedyshead/prove/internal/resolver"
	"github.com/kennedyshead/prove/internal/sourcemap"
	"github.com/kennedyshead/prove/internal/verifier"
)

// Options configures one compilation run.
type Options struct {
	Project manifest.Project

	// Roots are directories (or doublestar glob patterns) searched for
	// `.prv` sources.
	Roots []string
}

// ModuleResult is one compiled module's artifacts.
type ModuleResult struct {
	Path   string
	File   sourcemap.FileID
	Module *ast.Module
	Res    *resolver.Result
	Chk    *checker.Result

	// Failed is set when the module produced error diagnostics; later
	// stages are skipped for it but other modules continue (spec.md §7).
	Failed bool

	lexDiags   []*diagnostics.Diagnostic
	parseDiags []*diagnostics.Diagnostic
}

// Result is everything a CLI command needs after Compile.
type Result struct {
	SMap    *sourcemap.Map
	Bag     *diagnostics.Bag
	Modules []*ModuleResult

	Units     []emitter.TranslationUnit
	Libraries []string
}

// DiscoverSources expands roots into the sorted set of source files.
func DiscoverSources(roots []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err == nil && info.IsDir() {
			matches, globErr := doublestar.FilepathGlob(filepath.Join(root, "**", "*"+config.SourceFileExt))
			if globErr != nil {
				return nil, globErr
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		if err == nil {
			add(root)
			continue
		}
		// Not a file on disk: treat the root itself as a glob pattern.
		matches, globErr := doublestar.FilepathGlob(root)
		if globErr != nil {
			return nil, fmt.Errorf("source root %q: %w", root, globErr)
		}
		for _, m := range matches {
			if strings.HasSuffix(m, config.SourceFileExt) {
				add(m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Compile runs the pipeline over every discovered source. The returned
// error is reserved for internal failures (source I/O); language problems
// land in Result.Bag (spec.md §7).
func Compile(opts Options) (*Result, error) {
	paths, err := DiscoverSources(opts.Roots)
	if err != nil {
		return nil, err
	}

	smap := sourcemap.New()
	bag := &diagnostics.Bag{}
	res := &Result{SMap: smap, Bag: bag}

	type loaded struct {
		path string
		id   sourcemap.FileID
	}
	var files []loaded
	for _, p := range paths {
		content, readErr := os.ReadFile(p)
		if readErr != nil {
			// Internal error: fatal, aborts the pipeline (spec.md §7).
			return nil, fmt.Errorf("loading %s: %w", p, readErr)
		}
		files = append(files, loaded{path: p, id: smap.AddFile(p, content)})
	}

	// Per-module front-end fan-out; each slot is written by exactly one
	// goroutine, the merge below runs after Wait (spec.md §5).
	mods := make([]*ModuleResult, len(files))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			mods[i] = compileModule(smap, f.id, f.path)
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}
	res.Modules = mods

	explainCfg, cfgErr := config.LoadExplainConfig()
	if cfgErr != nil {
		return nil, cfgErr
	}
	explainCfg = explainCfg.Merge(opts.Project.Explain.Operations, opts.Project.Explain.Connectors)

	for _, m := range mods {
		collectDiagnostics(bag, m)
		if m.Failed {
			continue
		}
		verRes := verify(m, explainCfg)
		bag.Add(verRes...)
		for _, d := range verRes {
			if d.IsError() {
				m.Failed = true
			}
		}
	}

	// Emission only for error-free modules; one goroutine (spec.md §5).
	for _, m := range mods {
		if m.Failed {
			continue
		}
		name := moduleName(m.Path)
		out := emitter.Emit(m.Module, m.Res, m.Chk, name)
		res.Units = append(res.Units, out.Units...)
		res.Libraries = append(res.Libraries, out.Libraries...)
	}
	return res, nil
}

func compileModule(smap *sourcemap.Map, id sourcemap.FileID, path string) *ModuleResult {
	m := &ModuleResult{Path: path, File: id}

	lx := lexer.New(id, smap.Content(id))
	toks := lx.Lex()

	p := parser.New(toks, smap, id)
	m.Module = p.ParseModule()

	m.Res = resolver.Resolve(m.Module)
	m.Chk = checker.Check(m.Module, m.Res)

	for _, d := range lx.Diagnostics() {
		if d.IsError() {
			m.Failed = true
		}
	}
	for _, d := range p.Diagnostics() {
		if d.IsError() {
			m.Failed = true
		}
	}
	for _, d := range m.Res.Diags {
		if d.IsError() {
			m.Failed = true
		}
	}
	for _, d := range m.Chk.Diags {
		if d.IsError() {
			m.Failed = true
		}
	}
	m.lexDiags = lx.Diagnostics()
	m.parseDiags = p.Diagnostics()
	return m
}

func verify(m *ModuleResult, cfg *config.ExplainConfig) []*diagnostics.Diagnostic {
	return verifier.Verify(m.Module, m.Res, m.Chk, cfg).Diags
}

func collectDiagnostics(bag *diagnostics.Bag, m *ModuleResult) {
	bag.Add(m.lexDiags...)
	bag.Add(m.parseDiags...)
	bag.Add(m.Res.Diags...)
	bag.Add(m.Chk.Diags...)
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, config.SourceFileExt)
}

// CCArgs assembles the system C compiler invocation the external wrapper
// executes for `build` (spec.md §6.2, §7): optimize adds -O2, c_flags and
// link_flags pass through, foreign libraries add -l flags.
func CCArgs(project manifest.Project, cFiles []string, outDir string, libraries []string) []string {
	args := []string{}
	if project.Build.Optimize {
		args = append(args, "-O2")
	}
	args = append(args, project.Build.CFlags...)
	args = append(args, cFiles...)
	args = append(args, "-o", filepath.Join(outDir, project.Package.Name))
	seen := map[string]bool{}
	for _, lib := range libraries {
		if lib == "" || seen[lib] {
			continue
		}
		seen[lib] = true
		args = append(args, "-l"+lib)
	}
	args = append(args, project.Build.LinkFlags...)
	return args
}

// CacheKey computes a stable hash of a module's source plus its resolved
// import set. Nothing consumes it yet; it is the hook an identity-bound
// incremental build would key on (spec.md §9 Open Question c).
func CacheKey(smap *sourcemap.Map, m *ModuleResult) string {
	h := sha256.New()
	h.Write(smap.Content(m.File))
	var imports []string
	for _, imp := range m.Module.Imports {
		imports = append(imports, imp.ModuleName+"/"+imp.Verb+"/"+strings.Join(imp.Names, ","))
	}
	sort.Strings(imports)
	for _, imp := range imports {
		h.Write([]byte(imp))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
