package graph

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/treesitter"
)

// FileFacts is what the linker needs to know about one ingested file.
type FileFacts struct {
	Path     string
	Language string
	Symbols  treesitter.Symbols
	Chunks   []chunking.Chunk
}

// LinkStats counts the cross-file edges that found both endpoints.
type LinkStats struct {
	Imports int
	Calls   int
}

// Linker derives IMPORTS and CALLS edges from raw symbol facts. Resolution
// is heuristic: relative JS/TS specifiers, Python module paths, and callee
// names matched against function chunks in the same file and then in
// imported files. Go imports name packages, not files, and are skipped.
type Linker struct {
	store  Store
	logger *slog.Logger
}

// NewLinker wraps a Store.
func NewLinker(store Store) *Linker {
	return &Linker{
		store:  store,
		logger: slog.Default().With("component", "graph_linker"),
	}
}

// Link resolves and merges cross-file edges for all files. It must run after
// every file's nodes are written; unresolved endpoints are skipped by the
// store rather than created.
func (l *Linker) Link(ctx context.Context, files []FileFacts) (LinkStats, error) {
	importEdges, callEdges := l.Resolve(files)

	var stats LinkStats
	var err error
	if stats.Imports, err = l.store.MergeEdges(ctx, importEdges); err != nil {
		return stats, errors.GraphError(err, "failed to merge IMPORTS edges")
	}
	if stats.Calls, err = l.store.MergeEdges(ctx, callEdges); err != nil {
		return stats, errors.GraphError(err, "failed to merge CALLS edges")
	}

	l.logger.Info("cross-file edges linked",
		"imports_candidates", len(importEdges), "imports_linked", stats.Imports,
		"calls_candidates", len(callEdges), "calls_linked", stats.Calls)
	return stats, nil
}

// Resolve computes candidate edges without touching the store.
func (l *Linker) Resolve(files []FileFacts) (imports, calls []GraphEdge) {
	known := make(map[string]bool, len(files))
	funcs := make(map[string]map[string]string) // file -> symbol -> chunk id
	for _, f := range files {
		known[f.Path] = true
		for _, c := range f.Chunks {
			if c.Kind != chunking.KindFunction {
				continue
			}
			if funcs[f.Path] == nil {
				funcs[f.Path] = make(map[string]string)
			}
			funcs[f.Path][c.Symbol] = c.ID
		}
	}

	for _, f := range files {
		targets := resolveImports(f, known)
		seen := make(map[string]bool)
		for _, t := range targets {
			if t == f.Path || seen[t] {
				continue
			}
			seen[t] = true
			imports = append(imports, GraphEdge{
				Kind: Imports, FromLabel: LabelModule, From: f.Path, ToLabel: LabelModule, To: t,
			})
		}

		calls = append(calls, resolveCalls(f, targets, funcs)...)
	}
	return imports, calls
}

func resolveCalls(f FileFacts, importedFiles []string, funcs map[string]map[string]string) []GraphEdge {
	var out []GraphEdge
	seen := make(map[[2]string]bool)

	for _, call := range f.Symbols.Calls {
		caller := enclosingFunction(f.Chunks, call.StartByte)
		if caller == nil {
			continue
		}
		name := calleeName(call.Callee)
		if name == "" {
			continue
		}

		target, ok := funcs[f.Path][name]
		if !ok {
			for _, imp := range importedFiles {
				if id, found := funcs[imp][name]; found {
					target, ok = id, true
					break
				}
			}
		}
		if !ok {
			continue
		}

		key := [2]string{caller.ID, target}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, GraphEdge{
			Kind: Calls, FromLabel: LabelFunction, From: caller.ID, ToLabel: LabelFunction, To: target,
		})
	}
	return out
}

// enclosingFunction finds the function chunk whose span contains offset.
// Calls inside class or module chunks have no Function caller.
func enclosingFunction(chunks []chunking.Chunk, offset int) *chunking.Chunk {
	for i := range chunks {
		c := &chunks[i]
		if offset >= c.StartByte && offset < c.EndByte {
			if c.Kind == chunking.KindFunction {
				return c
			}
			return nil
		}
	}
	return nil
}

var identTail = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*$`)

// calleeName reduces a callee expression to its last identifier:
// "os.path.join" -> "join", "this.save" -> "save", "foo" -> "foo".
func calleeName(callee string) string {
	callee = strings.TrimSpace(callee)
	if i := strings.IndexAny(callee, "(<["); i >= 0 {
		callee = callee[:i]
	}
	return identTail.FindString(callee)
}

var (
	jsFromSpec   = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
	jsBareSpec   = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	pyFromModule = regexp.MustCompile(`^from\s+(\.*[\w.]*)\s+import\s+(.+)$`)
	pyImport     = regexp.MustCompile(`^import\s+(.+)$`)
)

var jsExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

func resolveImports(f FileFacts, known map[string]bool) []string {
	var out []string
	for _, raw := range f.Symbols.Imports {
		stmt := strings.Join(strings.Fields(raw), " ")
		switch f.Language {
		case "javascript", "typescript", "jsx", "tsx":
			if t := resolveJSImport(f.Path, stmt, known); t != "" {
				out = append(out, t)
			}
		case "python":
			out = append(out, resolvePythonImport(f.Path, stmt, known)...)
		}
	}
	return out
}

func resolveJSImport(file, stmt string, known map[string]bool) string {
	var specifier string
	if m := jsFromSpec.FindStringSubmatch(stmt); m != nil {
		specifier = m[1]
	} else if m := jsBareSpec.FindStringSubmatch(stmt); m != nil {
		specifier = m[1]
	}
	if !strings.HasPrefix(specifier, ".") {
		return "" // package import
	}

	base := path.Join(path.Dir(file), specifier)
	candidates := []string{base}
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, ext := range jsExtensions {
		candidates = append(candidates, base+ext)
		// ESM TypeScript imports name the emitted .js file
		if path.Ext(base) != "" {
			candidates = append(candidates, stem+ext)
		}
	}
	for _, ext := range jsExtensions {
		candidates = append(candidates, path.Join(base, "index"+ext))
	}
	for _, c := range candidates {
		if known[c] {
			return c
		}
	}
	return ""
}

func resolvePythonImport(file, stmt string, known map[string]bool) []string {
	var modules []string
	if m := pyFromModule.FindStringSubmatch(stmt); m != nil {
		mod := m[1]
		modules = append(modules, mod)
		// "from pkg import sub" may name a submodule
		names := strings.Trim(m[2], "() ")
		for _, n := range strings.Split(names, ",") {
			n = strings.TrimSpace(strings.SplitN(strings.TrimSpace(n), " ", 2)[0])
			if n == "" || n == "*" {
				continue
			}
			if strings.HasSuffix(mod, ".") {
				modules = append(modules, mod+n)
			} else {
				modules = append(modules, mod+"."+n)
			}
		}
	} else if m := pyImport.FindStringSubmatch(stmt); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			name := strings.TrimSpace(strings.SplitN(strings.TrimSpace(part), " ", 2)[0])
			if name != "" {
				modules = append(modules, name)
			}
		}
	}

	var out []string
	for _, mod := range modules {
		if t := resolvePythonModule(file, mod, known); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// resolvePythonModule maps a dotted (possibly relative) module name to a
// known file. Absolute names are tried from the root and from each ancestor
// of the importing file, which covers src/ layouts.
func resolvePythonModule(file, mod string, known map[string]bool) string {
	dots := len(mod) - len(strings.TrimLeft(mod, "."))
	rest := strings.ReplaceAll(mod[dots:], ".", "/")

	var bases []string
	if dots > 0 {
		dir := path.Dir(file)
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		bases = []string{dir}
	} else {
		for dir := path.Dir(file); ; dir = path.Dir(dir) {
			bases = append(bases, dir)
			if dir == "." || dir == "/" {
				break
			}
		}
	}

	for _, b := range bases {
		p := path.Join(b, rest)
		if rest == "" {
			if c := path.Join(b, "__init__.py"); known[c] {
				return c
			}
			continue
		}
		for _, c := range []string{p + ".py", p + ".pyi", path.Join(p, "__init__.py")} {
			if known[c] {
				return c
			}
		}
	}
	return ""
}
