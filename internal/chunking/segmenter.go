package chunking

import (
	"github.com/rohankatakam/codegraph/internal/treesitter"
)

// anonymousSymbol names declarations without a "name" field.
const anonymousSymbol = "anonymous"

type pending struct {
	node     treesitter.Node
	parentID string
}

// Segment splits a file into chunks. The traversal is pre-order over named
// children with an owned stack, so chunks come out in source order; a
// matched declaration is emitted and not descended into. Its text is exactly content[start:end]. When nothing
// matches (or root is nil), a single module chunk spanning the whole file is
// returned.
//
// Two declarations with the same name in one file share an id; the later one
// overwrites the earlier in both stores.
func Segment(file, language string, content []byte, root treesitter.Node) []Chunk {
	var chunks []Chunk

	if root != nil {
		stack := []pending{{node: root, parentID: file}}
		for len(stack) > 0 {
			item := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := item.node

			kind, ok := classify(n.Kind())
			if ok {
				symbol := treesitter.DeclName(n, content)
				if symbol == "" {
					symbol = anonymousSymbol
				}
				start, end := clampSpan(n.StartByte(), n.EndByte(), len(content))
				chunks = append(chunks, Chunk{
					ID:        ChunkID(file, symbol),
					ParentID:  item.parentID,
					File:      file,
					Symbol:    symbol,
					Kind:      kind,
					Language:  language,
					Text:      string(content[start:end]),
					StartByte: start,
					EndByte:   end,
				})
				continue
			}

			// reverse push keeps document order on pop
			for i := n.NamedChildCount() - 1; i >= 0; i-- {
				if child := n.NamedChild(i); child != nil {
					stack = append(stack, pending{node: child, parentID: item.parentID})
				}
			}
		}
	}

	if len(chunks) == 0 {
		return []Chunk{ModuleChunk(file, language, content)}
	}
	return chunks
}

// ModuleChunk is the fallback chunk covering an entire file.
func ModuleChunk(file, language string, content []byte) Chunk {
	return Chunk{
		ID:        ModuleChunkID(file),
		File:      file,
		Symbol:    ModuleSymbol,
		Kind:      KindModule,
		Language:  language,
		Text:      string(content),
		StartByte: 0,
		EndByte:   len(content),
	}
}

func classify(nodeKind string) (Kind, bool) {
	switch {
	case treesitter.IsFunctionKind(nodeKind):
		return KindFunction, true
	case treesitter.IsClassKind(nodeKind):
		return KindClass, true
	default:
		return "", false
	}
}

func clampSpan(start, end, size int) (int, int) {
	if end > size {
		end = size
	}
	if start > end {
		start = end
	}
	return start, end
}
