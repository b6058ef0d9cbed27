package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Node is the read-only view of a syntax node used by chunking and symbol
// extraction. Methods that look up another node return a nil interface
// when that node does not exist.
type Node interface {
	Kind() string
	ChildByFieldName(name string) Node
	NamedChildCount() int
	NamedChild(i int) Node
	ChildCount() int
	Child(i int) Node
	StartByte() int
	EndByte() int
}

type sitterNode struct {
	n *sitter.Node
}

// wrap converts a possibly-nil *sitter.Node into a Node without producing a
// non-nil interface holding a nil pointer.
func wrap(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return sitterNode{n: n}
}

func (s sitterNode) Kind() string { return s.n.Kind() }

func (s sitterNode) ChildByFieldName(name string) Node {
	return wrap(s.n.ChildByFieldName(name))
}

func (s sitterNode) NamedChildCount() int { return int(s.n.NamedChildCount()) }

func (s sitterNode) NamedChild(i int) Node { return wrap(s.n.NamedChild(uint(i))) }

func (s sitterNode) ChildCount() int { return int(s.n.ChildCount()) }

func (s sitterNode) Child(i int) Node { return wrap(s.n.Child(uint(i))) }

func (s sitterNode) StartByte() int { return int(s.n.StartByte()) }

func (s sitterNode) EndByte() int { return int(s.n.EndByte()) }

// Text returns the source bytes covered by n, clamped to content.
func Text(n Node, content []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if end > len(content) {
		end = len(content)
	}
	if start > end {
		return ""
	}
	return string(content[start:end])
}
