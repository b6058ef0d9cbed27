package treesitter

import (
	"fmt"
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Registry maps language tags to tree-sitter grammars.
// A new sitter.Parser is created per Parse call, so a Registry is safe to
// share between goroutines.
type Registry struct {
	languages map[string]*sitter.Language
}

// NewRegistry registers the JavaScript, TypeScript, TSX, Python and Go grammars.
func NewRegistry() *Registry {
	js := sitter.NewLanguage(tree_sitter_javascript.Language())
	return &Registry{
		languages: map[string]*sitter.Language{
			"javascript": js,
			"jsx":        js,
			"typescript": sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			"tsx":        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			"python":     sitter.NewLanguage(tree_sitter_python.Language()),
			"go":         sitter.NewLanguage(tree_sitter_go.Language()),
		},
	}
}

// Supports reports whether a grammar is registered for lang.
func (r *Registry) Supports(lang string) bool {
	_, ok := r.languages[grammarFor(lang, "")]
	return ok
}

// Languages returns the registered language tags, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.languages))
	for l := range r.languages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// grammarFor picks the grammar key. TypeScript files with a .tsx extension
// need the TSX grammar even though their language tag is "typescript".
func grammarFor(lang, ext string) string {
	if lang == "typescript" && ext == ".tsx" {
		return "tsx"
	}
	return lang
}

// Parse parses content with the grammar for lang. ext disambiguates
// dialects that share a language tag. Caller must Close the returned Tree.
func (r *Registry) Parse(lang, ext string, content []byte) (*Tree, error) {
	language, ok := r.languages[grammarFor(lang, ext)]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language %s: %w", lang, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s source", lang)
	}
	return &Tree{tree: tree}, nil
}

// Tree owns a parsed syntax tree (cgo memory; Close is required).
type Tree struct {
	tree *sitter.Tree
}

// Root returns the root node, or nil for a nil tree.
func (t *Tree) Root() Node {
	if t == nil || t.tree == nil {
		return nil
	}
	return wrap(t.tree.RootNode())
}

// HasErrors reports whether the parser had to recover from syntax errors.
func (t *Tree) HasErrors() bool {
	if t == nil || t.tree == nil {
		return false
	}
	return t.tree.RootNode().HasError()
}

// Close releases the tree. Safe on a nil Tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}
