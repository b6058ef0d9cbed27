package graph

import (
	"context"
	"sync"
)

type nodeRef struct {
	label Label
	id    string
}

type edgeRef struct {
	kind     EdgeKind
	from, to nodeRef
}

// MemoryStore is an in-process Store for tests and throwaway runs.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[nodeRef]map[string]any
	order []nodeRef
	edges map[edgeRef]struct{}
	adj   map[nodeRef][]edgeRef
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[nodeRef]map[string]any),
		edges: make(map[edgeRef]struct{}),
		adj:   make(map[nodeRef][]edgeRef),
	}
}

func (m *MemoryStore) InitSchema(context.Context) error { return nil }

func (m *MemoryStore) MergeNodes(_ context.Context, nodes []GraphNode) error {
	if _, _, err := groupNodes(nodes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		ref := nodeRef{label: n.Label, id: n.ID}
		props, ok := m.nodes[ref]
		if !ok {
			props = map[string]any{"id": n.ID}
			m.nodes[ref] = props
			m.order = append(m.order, ref)
		}
		for k, v := range n.Properties {
			props[k] = v
		}
	}
	return nil
}

func (m *MemoryStore) MergeEdges(_ context.Context, edges []GraphEdge) (int, error) {
	if _, _, err := groupEdges(edges); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	linked := 0
	for _, e := range edges {
		from := nodeRef{label: e.FromLabel, id: e.From}
		to := nodeRef{label: e.ToLabel, id: e.To}
		if _, ok := m.nodes[from]; !ok {
			continue
		}
		if _, ok := m.nodes[to]; !ok {
			continue
		}
		linked++
		ref := edgeRef{kind: e.Kind, from: from, to: to}
		if _, ok := m.edges[ref]; ok {
			continue
		}
		m.edges[ref] = struct{}{}
		m.adj[from] = append(m.adj[from], ref)
		if to != from {
			m.adj[to] = append(m.adj[to], ref)
		}
	}
	return linked, nil
}

// Neighbors does a breadth-first search by hop distance. Any node on a
// relationship-unique path of length <= maxHops is also within maxHops by
// shortest distance, so the result set matches the Cypher expansion.
func (m *MemoryStore) Neighbors(_ context.Context, id string, kinds []EdgeKind, maxHops, limit int) ([]Neighbor, error) {
	b := NewCypherBuilder()
	if _, err := b.BuildNeighbors(id, kinds, maxHops, limit); err != nil {
		return nil, err
	}
	allowed := make(map[EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := make(map[nodeRef]bool)
	var frontier []nodeRef
	for _, ref := range m.order {
		if ref.id == id {
			visited[ref] = true
			frontier = append(frontier, ref)
		}
	}

	var out []Neighbor
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []nodeRef
		for _, cur := range frontier {
			for _, e := range m.adj[cur] {
				if !allowed[e.kind] {
					continue
				}
				other := e.to
				if other == cur {
					other = e.from
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				next = append(next, other)
				if other.id == id {
					continue
				}
				name, _ := m.nodes[other]["name"].(string)
				if name == "" {
					name = other.id
				}
				out = append(out, Neighbor{ID: other.id, Type: string(other.label), Name: name})
				if len(out) >= limit {
					return out, nil
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (m *MemoryStore) Stats(context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Nodes: map[string]int{}, Edges: map[string]int{}}
	for ref := range m.nodes {
		stats.Nodes[string(ref.label)]++
	}
	for ref := range m.edges {
		stats.Edges[string(ref.kind)]++
	}
	return stats, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// Node returns a copy of a node's properties.
func (m *MemoryStore) Node(label Label, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	props, ok := m.nodes[nodeRef{label: label, id: id}]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out, true
}

// OutEdges lists outgoing edges of one kind from a node.
func (m *MemoryStore) OutEdges(label Label, id string, kind EdgeKind) []GraphEdge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	from := nodeRef{label: label, id: id}
	var out []GraphEdge
	for _, e := range m.adj[from] {
		if e.kind == kind && e.from == from {
			out = append(out, GraphEdge{Kind: e.kind, FromLabel: e.from.label, From: e.from.id, ToLabel: e.to.label, To: e.to.id})
		}
	}
	return out
}
