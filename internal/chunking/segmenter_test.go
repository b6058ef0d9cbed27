package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/treesitter"
)

// fakeNode is a hand-built syntax node for shapes that are awkward to
// produce from a real grammar.
type fakeNode struct {
	kind       string
	start, end int
	fields     map[string]*fakeNode
	children   []*fakeNode
}

func (f *fakeNode) Kind() string { return f.kind }

func (f *fakeNode) ChildByFieldName(name string) treesitter.Node {
	if c, ok := f.fields[name]; ok {
		return c
	}
	return nil
}

func (f *fakeNode) NamedChildCount() int { return len(f.children) }
func (f *fakeNode) NamedChild(i int) treesitter.Node { return f.children[i] }
func (f *fakeNode) ChildCount() int { return len(f.children) }
func (f *fakeNode) Child(i int) treesitter.Node { return f.children[i] }
func (f *fakeNode) StartByte() int { return f.start }
func (f *fakeNode) EndByte() int { return f.end }

func segmentSource(t *testing.T, file, lang, ext, src string) []Chunk {
	t.Helper()
	content := []byte(src)
	tree, err := treesitter.NewRegistry().Parse(lang, ext, content)
	require.NoError(t, err)
	defer tree.Close()
	return Segment(file, lang, content, tree.Root())
}

func TestSegment_SingleFunction(t *testing.T) {
	src := "function add(a,b){return a+b;}"
	chunks := segmentSource(t, "file.js", "javascript", ".js", src)

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "file.js#add", c.ID)
	assert.Equal(t, "file.js", c.ParentID)
	assert.Equal(t, "add", c.Symbol)
	assert.Equal(t, KindFunction, c.Kind)
	assert.Equal(t, src, c.Text)
}

func TestSegment_NoDeclarationsFallsBackToModule(t *testing.T) {
	src := "const a = 1;\nconst b = 2;\nconsole.log(a + b);\n"
	chunks := segmentSource(t, "scripts/run.js", "javascript", ".js", src)

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "scripts/run.js#module", c.ID)
	assert.Equal(t, KindModule, c.Kind)
	assert.Equal(t, ModuleSymbol, c.Symbol)
	assert.Empty(t, c.ParentID)
	assert.Equal(t, src, c.Text)
	assert.Equal(t, 0, c.StartByte)
	assert.Equal(t, len(src), c.EndByte)
}

func TestSegment_NilRoot(t *testing.T) {
	content := []byte("public class Main {}")
	chunks := Segment("Main.java", "java", content, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Main.java#module", chunks[0].ID)
	assert.Equal(t, string(content), chunks[0].Text)
}

func TestSegment_ClassIsNotDescended(t *testing.T) {
	src := `class Greeter {
  hello() { return "hi"; }
  bye() { return "bye"; }
}
function top() {}
`
	chunks := segmentSource(t, "greet.js", "javascript", ".js", src)

	require.Len(t, chunks, 2)
	assert.Equal(t, "greet.js#Greeter", chunks[0].ID)
	assert.Equal(t, KindClass, chunks[0].Kind)
	assert.Contains(t, chunks[0].Text, "hello()")
	assert.Equal(t, "greet.js#top", chunks[1].ID)
	assert.Equal(t, KindFunction, chunks[1].Kind)
}

func TestSegment_Python(t *testing.T) {
	src := "class A:\n    def m(self):\n        pass\n\ndef f():\n    return 1\n"
	chunks := segmentSource(t, "pkg/a.py", "python", ".py", src)

	require.Len(t, chunks, 2)
	assert.Equal(t, "pkg/a.py#A", chunks[0].ID)
	assert.Equal(t, "pkg/a.py#f", chunks[1].ID)
	for _, c := range chunks {
		assert.Equal(t, "pkg/a.py", c.ParentID)
		assert.Equal(t, "python", c.Language)
	}
}

func TestSegment_GoMethodsAndFunctions(t *testing.T) {
	src := "package main\n\ntype S struct{}\n\nfunc (s S) Run() {}\n\nfunc main() {}\n"
	chunks := segmentSource(t, "main.go", "go", ".go", src)

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"main.go#Run", "main.go#main"}, ids)
}

func TestSegment_NestedDeclarationsFoundThroughWrappers(t *testing.T) {
	src := "export function wrapped() { return 1; }\n"
	chunks := segmentSource(t, "mod.ts", "typescript", ".ts", src)

	require.Len(t, chunks, 1)
	assert.Equal(t, "mod.ts#wrapped", chunks[0].ID)
	assert.Equal(t, "function wrapped() { return 1; }", chunks[0].Text)
}

func TestSegment_TextIsExactSliceAndReparses(t *testing.T) {
	src := "// header\nfunction one() { return 1; }\n\nclass Two { go() {} }\n"
	content := []byte(src)
	chunks := segmentSource(t, "x.js", "javascript", ".js", src)
	require.Len(t, chunks, 2)

	reg := treesitter.NewRegistry()
	for _, c := range chunks {
		assert.Equal(t, src[c.StartByte:c.EndByte], c.Text)

		tree, err := reg.Parse("javascript", ".js", []byte(c.Text))
		require.NoError(t, err)
		root := tree.Root()
		assert.Equal(t, 0, root.StartByte())
		assert.Equal(t, len(c.Text), root.EndByte())
		tree.Close()
	}
	assert.Equal(t, content, []byte(src), "content must not be mutated")
}

func TestSegment_Deterministic(t *testing.T) {
	src := "function a() {}\nfunction b() {}\nclass C {}\n"
	first := segmentSource(t, "d.js", "javascript", ".js", src)
	second := segmentSource(t, "d.js", "javascript", ".js", src)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ParentID, second[i].ParentID)
	}
}

func TestSegment_DistinctNamesHaveDistinctIDs(t *testing.T) {
	chunks := segmentSource(t, "u.js", "javascript", ".js", "function a() {}\nfunction b() {}\nfunction c() {}\n")

	seen := map[string]bool{}
	for _, c := range chunks {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestSegment_AnonymousDeclaration(t *testing.T) {
	content := []byte("function () {}")
	root := &fakeNode{kind: "program", end: len(content), children: []*fakeNode{
		{kind: "function_declaration", start: 0, end: len(content)},
	}}

	chunks := Segment("anon.js", "javascript", content, root)

	require.Len(t, chunks, 1)
	assert.Equal(t, "anon.js#anonymous", chunks[0].ID)
	assert.Equal(t, "anonymous", chunks[0].Symbol)
}

func TestSegment_PreOrderThroughWrappers(t *testing.T) {
	content := []byte("aaaa bbbb")
	name := func(s, e int) map[string]*fakeNode {
		return map[string]*fakeNode{"name": {kind: "identifier", start: s, end: e}}
	}
	root := &fakeNode{kind: "program", end: len(content), children: []*fakeNode{
		{kind: "export_statement", end: 4, children: []*fakeNode{
			{kind: "function_declaration", end: 4, fields: name(0, 4)},
		}},
		{kind: "class_declaration", start: 5, end: 9, fields: name(5, 9)},
	}}

	chunks := Segment("q.js", "javascript", content, root)

	require.Len(t, chunks, 2)
	assert.Equal(t, "q.js#aaaa", chunks[0].ID)
	assert.Equal(t, "q.js#bbbb", chunks[1].ID)
}

func TestSegment_SourceOrderWithExports(t *testing.T) {
	src := "export function first() {}\nfunction second() {}\nexport class Third {}\n"
	chunks := segmentSource(t, "o.js", "javascript", ".js", src)

	ids := make([]string, 0, len(chunks))
	for i, c := range chunks {
		ids = append(ids, c.ID)
		if i > 0 {
			assert.Greater(t, c.StartByte, chunks[i-1].StartByte)
		}
	}
	assert.Equal(t, []string{"o.js#first", "o.js#second", "o.js#Third"}, ids)
}

func TestSegment_DuplicateNameLaterInSourceComesLast(t *testing.T) {
	src := "export function dup() { return 1; }\nfunction dup() { return 2; }\n"
	chunks := segmentSource(t, "d.js", "javascript", ".js", src)

	require.Len(t, chunks, 2)
	assert.Equal(t, chunks[0].ID, chunks[1].ID)
	assert.Equal(t, "function dup() { return 2; }", chunks[1].Text)
}

func TestChunk_Helpers(t *testing.T) {
	assert.Equal(t, "Foo", SymbolFromID("src/a.ts#Foo"))
	assert.Equal(t, "src/a.ts", FileFromID("src/a.ts#Foo"))
	assert.Equal(t, "", SymbolFromID("src/a.ts"))

	mod := ModuleChunk("a.py", "python", []byte("x = 1"))
	assert.Equal(t, "a.py", mod.GraphNodeID())
	assert.Nil(t, mod.Metadata()["parentId"])

	fn := Chunk{ID: "a.py#f", ParentID: "a.py", Kind: KindFunction}
	assert.Equal(t, "a.py#f", fn.GraphNodeID())
	assert.Equal(t, "a.py", fn.Metadata()["parentId"])
}
