// Package chunking turns a parsed source file into identity-bearing chunks:
// one per top-level function or class, or a single module chunk when the
// file declares neither.
package chunking

import "strings"

// Kind is the chunk category.
type Kind string

const (
	KindModule   Kind = "module"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
)

// ModuleSymbol is the symbol name given to fallback module chunks.
const ModuleSymbol = "main"

// Chunk is the unit of retrieval. ID is "<file>#<symbol>" for declarations
// and "<file>#module" for the fallback chunk. ParentID is the id of the
// enclosing container: the file path for top-level declarations, a class
// chunk id for members, and empty for module chunks.
type Chunk struct {
	ID        string
	ParentID  string
	File      string
	Symbol    string
	Kind      Kind
	Language  string
	Text      string
	StartByte int
	EndByte   int
}

// ChunkID builds the stable identifier for a declaration.
func ChunkID(file, symbol string) string {
	return file + "#" + symbol
}

// ModuleChunkID is the identifier of a file's fallback chunk.
func ModuleChunkID(file string) string {
	return file + "#module"
}

// SymbolFromID returns the component after the last '#', or "" if id has none.
func SymbolFromID(id string) string {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return ""
	}
	return id[i+1:]
}

// FileFromID returns the component before the last '#', or id itself.
func FileFromID(id string) string {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return id
	}
	return id[:i]
}

// Metadata is the flat record stored alongside the chunk's embedding.
// parentId is nil for module chunks so it is dropped on flattening.
func (c Chunk) Metadata() map[string]any {
	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	return map[string]any{
		"id":       c.ID,
		"parentId": parent,
		"file":     c.File,
		"symbol":   c.Symbol,
		"type":     string(c.Kind),
		"language": c.Language,
		"text":     c.Text,
	}
}

// GraphNodeID is the id of the graph node that represents this chunk.
// Module chunks are represented by their file's Module node.
func (c Chunk) GraphNodeID() string {
	if c.Kind == KindModule {
		return c.File
	}
	return c.ID
}
